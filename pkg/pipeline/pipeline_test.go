package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/audio-analyzer/pkg/asr"
	"github.com/ccp-p/audio-analyzer/pkg/audio"
	"github.com/ccp-p/audio-analyzer/pkg/classify"
	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

type fakeTranscriber struct {
	segments []models.DataSegment
	err      error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wf *models.Waveform, opts asr.Options) (*asr.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &asr.Transcript{Segments: f.segments, Language: opts.Language}, nil
}

// fakeLogits 根据窗口平均幅度给出确定的原始分数
type fakeLogits struct {
	mu      sync.Mutex
	calls   int32
	lengths []int
}

func (f *fakeLogits) Logits(ctx context.Context, samples []float64, sampleRate int) ([]string, []float64, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.lengths = append(f.lengths, len(samples))
	f.mu.Unlock()

	var energy float64
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		energy += s
	}
	energy /= float64(len(samples))
	return []string{"angry", "happy", "neutral", "sad"}, []float64{energy * 4, energy * 2, 1 - energy, 0.1}, nil
}

type fixedScorer struct {
	dist models.Distribution
	err  error
}

func (f *fixedScorer) Score(ctx context.Context, samples []float64, sampleRate int) (models.Distribution, error) {
	return f.dist, f.err
}

type panicScorer struct{}

func (panicScorer) Score(ctx context.Context, samples []float64, sampleRate int) (models.Distribution, error) {
	panic("tensor shape mismatch")
}

type testEnv struct {
	pipeline *Pipeline
	logits   *fakeLogits
	tempDir  string
	inputDir string
	metrics  *Metrics
}

func newTestEnv(t *testing.T, transcriber asr.Transcriber, emotion, environment classify.Scorer) *testEnv {
	utils.InitLogger(utils.LogLevelWarn, "")

	env := &testEnv{tempDir: t.TempDir(), inputDir: t.TempDir()}
	config := models.NewDefaultConfig()
	config.TempDir = env.tempDir

	if transcriber == nil {
		transcriber = &fakeTranscriber{}
	}
	if emotion == nil {
		env.logits = &fakeLogits{}
		emotion = classify.NewSingleLabel(env.logits)
	}
	if environment == nil {
		environment = &fixedScorer{dist: models.Distribution{Labels: []string{"Speech"}, Scores: []float64{50}}}
	}

	m, err := NewModels(transcriber, emotion, environment, "cpu")
	require.NoError(t, err)
	env.metrics = NewMetrics(prometheus.NewRegistry())
	env.pipeline, err = New(config, m, env.metrics)
	require.NoError(t, err)
	return env
}

// writeClip 写入 seconds 秒的单声道 16 位 WAV，value 为固定样本值
func (e *testEnv) writeClip(t *testing.T, name string, seconds float64, rate, value int) string {
	path := filepath.Join(e.inputDir, name)
	data := make([]int, int(seconds*float64(rate)))
	for i := range data {
		data[i] = value
	}
	require.NoError(t, audio.WriteWAVInt(path, data, rate, 1, 16))
	return path
}

func (e *testEnv) assertTempDirEmpty(t *testing.T) {
	entries, err := os.ReadDir(e.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "临时文件没有被清理")
}

func TestNewModels(t *testing.T) {
	_, err := NewModels(nil, &fixedScorer{}, &fixedScorer{}, "cpu")
	assert.Error(t, err)

	m, err := NewModels(&fakeTranscriber{}, &fixedScorer{}, &fixedScorer{}, "")
	require.NoError(t, err)
	assert.Equal(t, "cpu", m.Device())
}

func TestParseTask(t *testing.T) {
	for name, want := range map[string]Task{"trans": TaskTranscribe, "Emotion": TaskEmotion, "environment": TaskEnvironment} {
		got, err := ParseTask(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseTask("karaoke")
	assert.Error(t, err)
	assert.Equal(t, "emotion", TaskEmotion.String())
	assert.Equal(t, "task(9)", Task(9).String())
}

func TestEmotionOneSecondSilentClip(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	src := env.writeClip(t, "silence.wav", 1, 8000, 0)

	res := env.pipeline.Handle(context.Background(), Request{Task: TaskEmotion, Path: src})
	require.Empty(t, res.Err())

	er, ok := res.(*models.EmotionResult)
	require.True(t, ok)
	assert.Equal(t, "silence.wav", er.Filename)
	assert.Equal(t, 1, er.Windows)
	assert.Equal(t, int32(1), atomic.LoadInt32(&env.logits.calls))
	assert.Equal(t, []int{3 * 16000}, env.logits.lengths)
	assert.Equal(t, "neutral", er.DominantEmotion)
	assert.True(t, strings.HasSuffix(er.Confidence, "%"))
	assert.Len(t, er.Emotions, 4)
	assert.GreaterOrEqual(t, er.ElapsedSeconds, 0.0)

	// 不属于流水线的输入文件保留
	assert.FileExists(t, src)
	env.assertTempDirEmpty(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.requestsTotal.WithLabelValues("emotion", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.windowsTotal))
}

func TestEmotionEightSecondClip(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	src := env.writeClip(t, "speech.wav", 8, 16000, 8000)

	res := env.pipeline.Handle(context.Background(), Request{Task: TaskEmotion, Path: src})
	require.Empty(t, res.Err())

	er := res.(*models.EmotionResult)
	assert.Equal(t, 3, er.Windows)
	assert.Equal(t, int32(3), atomic.LoadInt32(&env.logits.calls))

	var sum float64
	for _, v := range er.Emotions {
		sum += v
	}
	assert.InDelta(t, 100, sum, 0.05)
}

func TestEmotionIdempotent(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	src := env.writeClip(t, "clip.wav", 7.5, 22050, 3000)

	run := func() []byte {
		res := env.pipeline.Handle(context.Background(), Request{Task: TaskEmotion, Path: src})
		require.Empty(t, res.Err())
		er := *res.(*models.EmotionResult)
		er.ElapsedSeconds = 0
		b, err := json.Marshal(er)
		require.NoError(t, err)
		return b
	}

	assert.Equal(t, run(), run())
}

func TestEnvironmentSirenAndSpeech(t *testing.T) {
	scorer := &fixedScorer{dist: models.Distribution{
		Labels: []string{"Speech", "Music", "Siren"},
		Scores: []float64{10.0, 1.0, 20.0},
	}}
	env := newTestEnv(t, nil, nil, scorer)
	src := env.writeClip(t, "street.wav", 2, 16000, 100)

	res := env.pipeline.Handle(context.Background(), Request{Task: TaskEnvironment, Path: src})
	require.Empty(t, res.Err())

	er := res.(*models.EnvironmentResult)
	assert.Equal(t, models.RiskElevated, er.RiskVerdict)
	assert.Equal(t, []string{"Siren"}, er.Alerts)
	assert.Equal(t, []models.Detection{
		{Label: "Siren", Probability: 20.0},
		{Label: "Speech", Probability: 10.0},
	}, er.Detections)
	env.assertTempDirEmpty(t)
}

func TestEnvironmentNormal(t *testing.T) {
	scorer := &fixedScorer{dist: models.Distribution{
		Labels: []string{"Speech", "Siren"},
		Scores: []float64{80.0, 12.0},
	}}
	env := newTestEnv(t, nil, nil, scorer)
	src := env.writeClip(t, "office.wav", 1, 16000, 100)

	er := env.pipeline.Handle(context.Background(), Request{Task: TaskEnvironment, Path: src}).(*models.EnvironmentResult)
	assert.Empty(t, er.Error)
	assert.Equal(t, models.RiskNormal, er.RiskVerdict)
	assert.Empty(t, er.Alerts)
	assert.Len(t, er.Detections, 2)
}

func TestTranscribe(t *testing.T) {
	tr := &fakeTranscriber{segments: []models.DataSegment{
		{Text: " Buenos días", StartTime: 0, EndTime: 1.1},
		{Text: " a todos.", StartTime: 1.1, EndTime: 2},
	}}
	env := newTestEnv(t, tr, nil, nil)
	src := env.writeClip(t, "saludo.wav", 2, 44100, 100)

	res := env.pipeline.Handle(context.Background(), Request{Task: TaskTranscribe, Path: src, Language: "es"})
	require.Empty(t, res.Err())
	r := res.(*models.TranscriptionResult)
	assert.Equal(t, "Buenos días  a todos.", r.Text)
	assert.Equal(t, "es", r.Language)
	assert.Len(t, r.Segments, 2)
}

func TestTranscribeSilentClip(t *testing.T) {
	// 静音片段没有任何语音段，仍然是成功结果
	env := newTestEnv(t, &fakeTranscriber{}, nil, nil)
	src := env.writeClip(t, "silencio.wav", 1, 16000, 0)

	res := env.pipeline.Handle(context.Background(), Request{Task: TaskTranscribe, Path: src})
	require.Empty(t, res.Err())
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, `{"texto":""}`, string(b))
}

func TestCorruptInputOwnedUploadDeleted(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	upload := filepath.Join(env.tempDir, "upload_corrupt.mp3")

	for _, task := range Tasks {
		require.NoError(t, os.WriteFile(upload, []byte("this is not audio at all"), 0644))
		res := env.pipeline.Handle(context.Background(), Request{Task: task, Path: upload, Owned: true})

		assert.NotEmpty(t, res.Err(), task.String())
		b, err := json.Marshal(res)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"error"`)
		assert.NoFileExists(t, upload)
		env.assertTempDirEmpty(t)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.requestsTotal.WithLabelValues("emotion", "decode")))
}

func TestInferenceFailure(t *testing.T) {
	scorer := &fixedScorer{err: utils.InferenceError("模型服务不可用", errors.New("connection refused"))}
	env := newTestEnv(t, nil, scorer, scorer)
	src := env.writeClip(t, "clip.wav", 4, 16000, 100)

	res := env.pipeline.Handle(context.Background(), Request{Task: TaskEmotion, Path: src})
	assert.Contains(t, res.Err(), "connection refused")
	res = env.pipeline.Handle(context.Background(), Request{Task: TaskEnvironment, Path: src})
	assert.Contains(t, res.Err(), "模型服务不可用")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.requestsTotal.WithLabelValues("environment", "inference")))
}

func TestPanicRecovered(t *testing.T) {
	env := newTestEnv(t, nil, panicScorer{}, nil)
	upload := filepath.Join(env.tempDir, "upload.wav")
	data := make([]int, 16000)
	require.NoError(t, audio.WriteWAVInt(upload, data, 16000, 1, 16))

	res := env.pipeline.Handle(context.Background(), Request{Task: TaskEmotion, Path: upload, Owned: true})
	assert.Contains(t, res.Err(), "tensor shape mismatch")
	assert.NoFileExists(t, upload)
	env.assertTempDirEmpty(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.requestsTotal.WithLabelValues("emotion", "internal")))
}

func TestUnknownTask(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	upload := filepath.Join(env.tempDir, "upload.wav")
	require.NoError(t, os.WriteFile(upload, []byte("x"), 0644))

	res := env.pipeline.Handle(context.Background(), Request{Task: Task(42), Path: upload, Owned: true})
	_, ok := res.(*models.ErrorResult)
	assert.True(t, ok)
	assert.NotEmpty(t, res.Err())
	assert.NoFileExists(t, upload)
}

func TestConcurrentRequests(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	src := env.writeClip(t, "shared.wav", 5, 16000, 2000)

	var wg sync.WaitGroup
	results := make([]models.TaskResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.pipeline.Handle(context.Background(), Request{Task: TaskEmotion, Path: src})
		}(i)
	}
	wg.Wait()

	first := results[0].(*models.EmotionResult)
	for _, r := range results {
		er := r.(*models.EmotionResult)
		assert.Empty(t, er.Error)
		assert.Equal(t, first.Emotions, er.Emotions)
	}
	env.assertTempDirEmpty(t)
}
