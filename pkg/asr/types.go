package asr

import (
	"context"

	"github.com/ccp-p/audio-analyzer/pkg/models"
)

// Options 单次转写的可选参数
type Options struct {
	Language string // 语言提示，空表示由模型自动检测
	Prompt   string // 上下文提示词
}

// Transcript 转写结果，Segments 按时间顺序排列
type Transcript struct {
	Segments []models.DataSegment
	Language string
}

// Transcriber 语音转写能力
// 输入是完整的规范化波形，分段由模型内部完成；实现不得修改共享的模型状态
type Transcriber interface {
	Transcribe(ctx context.Context, wf *models.Waveform, opts Options) (*Transcript, error)
}
