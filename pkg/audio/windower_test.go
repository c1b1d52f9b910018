package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/audio-analyzer/pkg/models"
)

const testRate = 16000

func ramp(n int) *models.Waveform {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i + 1)
	}
	return &models.Waveform{Samples: s, SampleRate: testRate, Channels: 1}
}

func TestSplitShortInputIsPadded(t *testing.T) {
	w := NewWindower(testRate)

	for _, n := range []int{1, testRate, 3*testRate - 1} {
		wf := ramp(n)
		windows, err := w.Split(wf, 3.0, 2.0)
		require.NoError(t, err)
		require.Len(t, windows, 1)
		win := windows[0]
		assert.Equal(t, 0, win.Offset)
		assert.Len(t, win.Samples, 3*testRate)
		assert.Equal(t, wf.Samples, win.Samples[:n])
		for _, v := range win.Samples[n:] {
			assert.Equal(t, 0.0, v)
		}
	}
}

func TestSplitEightSecondClip(t *testing.T) {
	w := NewWindower(testRate)
	windows, err := w.Split(ramp(8*testRate), 3.0, 2.0)
	require.NoError(t, err)

	require.Len(t, windows, 3)
	offsets := []int{windows[0].Offset, windows[1].Offset, windows[2].Offset}
	assert.Equal(t, []int{0, 2 * testRate, 4 * testRate}, offsets)
	for i, win := range windows {
		assert.Equal(t, i, win.Index)
	}
}

func TestSplitStrideLongerThanWindow(t *testing.T) {
	w := NewWindower(testRate)
	wf := ramp(10 * testRate)
	windows, err := w.Split(wf, 2.0, 3.0)
	require.NoError(t, err)

	require.Len(t, windows, 3)
	offsets := []int{windows[0].Offset, windows[1].Offset, windows[2].Offset}
	assert.Equal(t, []int{0, 3 * testRate, 6 * testRate}, offsets)
	for _, win := range windows {
		assert.Len(t, win.Samples, 2*testRate)
		assert.Equal(t, wf.Samples[win.Offset:win.Offset+2*testRate], win.Samples)
	}
}

func TestSplitWindowProperties(t *testing.T) {
	w := NewWindower(testRate)
	cases := []struct {
		samples int
		window  float64
		stride  float64
	}{
		{3 * testRate, 3.0, 2.0},
		{10*testRate + 123, 3.0, 2.0},
		{5 * testRate, 1.0, 0.5},
		{7 * testRate, 2.0, 2.0},
		{9*testRate + 7, 0.96, 0.48},
	}

	for _, c := range cases {
		wf := ramp(c.samples)
		windows, err := w.Split(wf, c.window, c.stride)
		require.NoError(t, err)
		require.NotEmpty(t, windows)

		winLen := w.samples(c.window)
		stride := w.samples(c.stride)
		for i, win := range windows {
			assert.Len(t, win.Samples, winLen)
			assert.LessOrEqual(t, win.Offset+winLen, c.samples)
			assert.Equal(t, wf.Samples[win.Offset:win.Offset+winLen], win.Samples)
			if i > 0 {
				assert.Equal(t, stride, win.Offset-windows[i-1].Offset)
			}
		}
		// 下一个窗口放不下
		last := windows[len(windows)-1]
		assert.Greater(t, last.Offset+stride+winLen, c.samples)
	}
}

func TestSplitWindowsAreCopies(t *testing.T) {
	w := NewWindower(testRate)
	wf := ramp(4 * testRate)
	windows, err := w.Split(wf, 3.0, 1.0)
	require.NoError(t, err)

	windows[0].Samples[0] = -1
	assert.Equal(t, 1.0, wf.Samples[0])
}

func TestSplitEmptyAndInvalid(t *testing.T) {
	w := NewWindower(testRate)

	windows, err := w.Split(&models.Waveform{SampleRate: testRate, Channels: 1}, 3.0, 2.0)
	require.NoError(t, err)
	assert.Empty(t, windows)

	_, err = w.Split(ramp(10), 0, 2.0)
	assert.Error(t, err)
	_, err = w.Split(ramp(10), 3.0, -1)
	assert.Error(t, err)

	_, err = w.Split(&models.Waveform{Samples: []float64{1}, SampleRate: 8000, Channels: 1}, 3.0, 2.0)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	w := NewWindower(testRate)

	long := ramp(12 * testRate)
	head := w.Truncate(long, 10.0)
	assert.Len(t, head.Samples, 10*testRate)
	assert.Equal(t, long.Samples[:10*testRate], head.Samples)

	short := ramp(testRate)
	same := w.Truncate(short, 10.0)
	assert.Len(t, same.Samples, testRate)
	same.Samples[0] = -1
	assert.Equal(t, 1.0, short.Samples[0])

	assert.Nil(t, w.Truncate(nil, 10.0))
}
