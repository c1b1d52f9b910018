package pipeline

import (
	"errors"

	"github.com/ccp-p/audio-analyzer/pkg/asr"
	"github.com/ccp-p/audio-analyzer/pkg/classify"
)

// Models 进程级别的只读模型上下文，启动时构建一次，在所有请求之间共享
type Models struct {
	transcriber asr.Transcriber
	emotion     classify.Scorer
	environment classify.Scorer
	device      string
}

// NewModels 创建模型上下文，device 在此之后不可更改
func NewModels(transcriber asr.Transcriber, emotion, environment classify.Scorer, device string) (*Models, error) {
	if transcriber == nil || emotion == nil || environment == nil {
		return nil, errors.New("模型未全部加载")
	}
	if device == "" {
		device = "cpu"
	}
	return &Models{
		transcriber: transcriber,
		emotion:     emotion,
		environment: environment,
		device:      device,
	}, nil
}

// Device 返回启动时选定的计算设备
func (m *Models) Device() string {
	return m.device
}
