package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ccp-p/audio-analyzer/pkg/aggregate"
	"github.com/ccp-p/audio-analyzer/pkg/asr"
	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// strategy 每种任务的 分窗 -> 打分 -> 聚合 策略
type strategy interface {
	run(ctx context.Context, p *Pipeline, wf *models.Waveform, req Request) (models.TaskResult, error)
	failed(req Request, msg string) models.TaskResult
}

// 百分比保留的小数位数
const percentPlaces = 2

// transcribeStrategy 整段波形交给转写模型，按顺序拼接段落
type transcribeStrategy struct{}

func (transcribeStrategy) run(ctx context.Context, p *Pipeline, wf *models.Waveform, req Request) (models.TaskResult, error) {
	start := time.Now()
	tr, err := p.models.transcriber.Transcribe(ctx, wf, asr.Options{Language: req.Language, Prompt: req.Prompt})
	p.metrics.observeScoring(TaskTranscribe, time.Since(start), 1)
	if err != nil {
		return nil, err
	}

	return &models.TranscriptionResult{
		Text:     aggregate.JoinSegments(tr.Segments),
		Segments: tr.Segments,
		Language: tr.Language,
	}, nil
}

func (transcribeStrategy) failed(req Request, msg string) models.TaskResult {
	return &models.TranscriptionResult{Error: msg}
}

// emotionStrategy 分窗后逐窗口做单标签分类，取各窗口分布的平均
type emotionStrategy struct{}

func (emotionStrategy) run(ctx context.Context, p *Pipeline, wf *models.Waveform, req Request) (models.TaskResult, error) {
	windows, err := p.windower.Split(wf, p.config.WindowSeconds, p.config.StrideSeconds)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	dists, err := p.scoreWindows(ctx, windows)
	elapsed := time.Since(start)
	p.metrics.observeScoring(TaskEmotion, elapsed, len(windows))
	if err != nil {
		return nil, err
	}

	dominant, mean, err := aggregate.MeanDistribution(dists)
	if err != nil {
		return nil, err
	}
	confidence, _ := mean.Get(dominant)

	emotions := make(map[string]float64, len(mean.Labels))
	for i, label := range mean.Labels {
		emotions[label] = utils.RoundTo(mean.Scores[i], percentPlaces)
	}

	return &models.EmotionResult{
		Filename:        req.displayName(),
		DominantEmotion: dominant,
		Confidence:      utils.FormatPercent(confidence),
		Emotions:        emotions,
		ElapsedSeconds:  utils.RoundTo(elapsed.Seconds(), percentPlaces),
		Windows:         len(windows),
	}, nil
}

func (emotionStrategy) failed(req Request, msg string) models.TaskResult {
	return &models.EmotionResult{Filename: req.displayName(), Error: msg}
}

// scoreWindows 并发地对窗口打分，结果按窗口序号存放
// 聚合看到的顺序与完成顺序无关
func (p *Pipeline) scoreWindows(ctx context.Context, windows []models.Window) ([]models.Distribution, error) {
	dists := make([]models.Distribution, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxWorkers)
	for i := range windows {
		i := i
		g.Go(func() (err error) {
			// panic 不会跨 goroutine 传播到 Handle，在这里转换为错误
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("窗口 %d 打分时发生异常: %v", i, r)
				}
			}()
			d, err := p.models.emotion.Score(gctx, windows[i].Samples, p.config.SampleRate)
			if err != nil {
				return err
			}
			dists[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dists, nil
}

// environmentStrategy 截取开头一段作为单个窗口做多标签分类，再按阈值筛选展示结果和告警
type environmentStrategy struct{}

func (environmentStrategy) run(ctx context.Context, p *Pipeline, wf *models.Waveform, req Request) (models.TaskResult, error) {
	clip := p.windower.Truncate(wf, p.config.EnvClipSeconds)
	if clip.Len() == 0 {
		return nil, utils.EmptyInputError("截取后没有可用音频")
	}

	start := time.Now()
	dist, err := p.models.environment.Score(ctx, clip.Samples, p.config.SampleRate)
	elapsed := time.Since(start)
	p.metrics.observeScoring(TaskEnvironment, elapsed, 1)
	if err != nil {
		return nil, err
	}

	detections := aggregate.RankTopK(dist, p.config.TopK, p.config.DisplayThreshold)
	report := p.alerts.Classify(detections)

	for i := range detections {
		detections[i].Probability = utils.RoundTo(detections[i].Probability, percentPlaces)
	}

	return &models.EnvironmentResult{
		Filename:       req.displayName(),
		RiskVerdict:    report.Verdict,
		Alerts:         report.Alerts,
		Detections:     detections,
		ElapsedSeconds: utils.RoundTo(elapsed.Seconds(), percentPlaces),
	}, nil
}

func (environmentStrategy) failed(req Request, msg string) models.TaskResult {
	return &models.EnvironmentResult{Filename: req.displayName(), Error: msg}
}
