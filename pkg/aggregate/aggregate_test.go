package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

var emotionLabels = []string{"angry", "happy", "neutral", "sad"}

func dist(scores ...float64) models.Distribution {
	return models.Distribution{Labels: emotionLabels, Scores: scores}
}

func TestJoinSegments(t *testing.T) {
	segs := []models.DataSegment{{Text: " Hola"}, {Text: "a todos."}, {Text: "¿Qué tal? "}}
	assert.Equal(t, "Hola a todos. ¿Qué tal?", JoinSegments(segs))
	assert.Equal(t, "", JoinSegments(nil))
}

func TestMeanDistribution(t *testing.T) {
	windows := []models.Distribution{
		dist(10, 60, 20, 10),
		dist(30, 20, 40, 10),
		dist(20, 40, 30, 10),
	}

	dominant, mean, err := MeanDistribution(windows)
	require.NoError(t, err)
	assert.Equal(t, "happy", dominant)
	assert.Equal(t, emotionLabels, mean.Labels)

	// 每个标签的结果等于各窗口的算术平均
	for j, label := range emotionLabels {
		var sum float64
		for _, w := range windows {
			sum += w.Scores[j]
		}
		got, ok := mean.Get(label)
		require.True(t, ok)
		assert.InDelta(t, sum/float64(len(windows)), got, 1e-9)
	}
	assert.InDelta(t, 100, mean.Sum(), 1e-9)
}

func TestMeanDistributionSingleWindow(t *testing.T) {
	dominant, mean, err := MeanDistribution([]models.Distribution{dist(5, 5, 85, 5)})
	require.NoError(t, err)
	assert.Equal(t, "neutral", dominant)
	assert.Equal(t, []float64{5, 5, 85, 5}, mean.Scores)
}

func TestMeanDistributionTieKeepsEnumerationOrder(t *testing.T) {
	dominant, _, err := MeanDistribution([]models.Distribution{dist(10, 40, 40, 10)})
	require.NoError(t, err)
	assert.Equal(t, "happy", dominant)
}

func TestMeanDistributionReorderedLabels(t *testing.T) {
	other := models.Distribution{
		Labels: []string{"sad", "neutral", "happy", "angry"},
		Scores: []float64{10, 20, 30, 40},
	}
	_, mean, err := MeanDistribution([]models.Distribution{dist(40, 30, 20, 10), other})
	require.NoError(t, err)
	angry, _ := mean.Get("angry")
	assert.InDelta(t, 40, angry, 1e-9)
}

func TestMeanDistributionErrors(t *testing.T) {
	_, _, err := MeanDistribution(nil)
	assert.ErrorIs(t, err, utils.ErrEmptyInput)

	_, _, err = MeanDistribution([]models.Distribution{dist(1, 2, 3, 4), {Labels: []string{"a"}, Scores: []float64{1}}})
	assert.Error(t, err)
}

func TestRankTopK(t *testing.T) {
	d := models.Distribution{
		Labels: []string{"Speech", "Music", "Siren", "Vehicle", "Dog", "Wind", "Rain"},
		Scores: []float64{10, 3, 20, 7, 5.0, 6, 8},
	}
	got := RankTopK(d, DefaultTopK, DefaultDisplayThreshold)

	// 前 5 名: Siren 20, Speech 10, Rain 8, Vehicle 7, Wind 6；Dog 5.0 排第 6 被截掉
	require.Len(t, got, 5)
	assert.Equal(t, "Siren", got[0].Label)
	assert.Equal(t, "Speech", got[1].Label)
	assert.Equal(t, "Wind", got[4].Label)
}

func TestRankTopKThreshold(t *testing.T) {
	d := models.Distribution{
		Labels: []string{"Speech", "Music", "Siren"},
		Scores: []float64{10, 4.99, 5.0},
	}
	got := RankTopK(d, DefaultTopK, DefaultDisplayThreshold)
	require.Len(t, got, 2)
	assert.Equal(t, "Speech", got[0].Label)
	// 等于阈值的标签保留
	assert.Equal(t, "Siren", got[1].Label)
}

func TestRankTopKStableTies(t *testing.T) {
	d := models.Distribution{
		Labels: []string{"c", "a", "b", "d"},
		Scores: []float64{50, 50, 50, 90},
	}
	got := RankTopK(d, 3, 0)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"d", "c", "a"}, []string{got[0].Label, got[1].Label, got[2].Label})

	// 多次调用结果一致
	for i := 0; i < 10; i++ {
		assert.Equal(t, got, RankTopK(d, 3, 0))
	}
}

func TestRankTopKDoesNotMutateInput(t *testing.T) {
	d := models.Distribution{Labels: []string{"a", "b"}, Scores: []float64{1, 9}}
	RankTopK(d, 5, 0)
	assert.Equal(t, []string{"a", "b"}, d.Labels)
}
