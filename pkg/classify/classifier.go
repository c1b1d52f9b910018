package classify

import (
	"context"
	"fmt"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// Scorer 对一段音频打分，返回标签 -> 置信度 [0,100]
type Scorer interface {
	Score(ctx context.Context, samples []float64, sampleRate int) (models.Distribution, error)
}

// LogitsSource 返回模型对一段音频的原始分数，Labels 保持模型的枚举顺序
type LogitsSource interface {
	Logits(ctx context.Context, samples []float64, sampleRate int) (labels []string, logits []float64, err error)
}

// SingleLabel 单标签分类器，标签之间互斥，输出经过 softmax
type SingleLabel struct {
	Source LogitsSource
}

// MultiLabel 多标签分类器，每个标签独立，输出经过 sigmoid
type MultiLabel struct {
	Source LogitsSource
}

// NewSingleLabel 创建单标签分类器
func NewSingleLabel(src LogitsSource) *SingleLabel {
	return &SingleLabel{Source: src}
}

// NewMultiLabel 创建多标签分类器
func NewMultiLabel(src LogitsSource) *MultiLabel {
	return &MultiLabel{Source: src}
}

// Score 实现 Scorer 接口
func (c *SingleLabel) Score(ctx context.Context, samples []float64, sampleRate int) (models.Distribution, error) {
	return score(ctx, c.Source, samples, sampleRate, Softmax)
}

// Score 实现 Scorer 接口
func (c *MultiLabel) Score(ctx context.Context, samples []float64, sampleRate int) (models.Distribution, error) {
	return score(ctx, c.Source, samples, sampleRate, Sigmoid)
}

func score(ctx context.Context, src LogitsSource, samples []float64, sampleRate int, activate func([]float64) []float64) (models.Distribution, error) {
	if len(samples) == 0 {
		return models.Distribution{}, utils.InferenceError("打分输入为空", nil)
	}

	labels, logits, err := src.Logits(ctx, samples, sampleRate)
	if err != nil {
		return models.Distribution{}, utils.InferenceError("模型打分失败", err)
	}
	if len(labels) == 0 || len(labels) != len(logits) {
		return models.Distribution{}, utils.InferenceError(
			fmt.Sprintf("模型输出不完整: %d 个标签, %d 个分数", len(labels), len(logits)), nil)
	}

	return models.Distribution{
		Labels: append([]string(nil), labels...),
		Scores: activate(logits),
	}, nil
}
