package asr

import (
	"context"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ccp-p/audio-analyzer/pkg/audio"
	"github.com/ccp-p/audio-analyzer/pkg/modelserver"
	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// 贪心解码，与模型服务端的默认设置保持一致
const defaultBeamSize = 1

// WhisperASR 调用远程 Whisper 模型服务的转写实现
type WhisperASR struct {
	client   *modelserver.Client
	tempDir  string
	BeamSize int
}

// whisperResponse 模型服务 /transcribe 的响应结构
type whisperResponse struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Language string `json:"language"`
}

// NewWhisperASR 创建 Whisper 转写客户端，tempDir 用于存放上传给模型服务的 WAV
func NewWhisperASR(client *modelserver.Client, tempDir string) *WhisperASR {
	return &WhisperASR{
		client:   client,
		tempDir:  tempDir,
		BeamSize: defaultBeamSize,
	}
}

// Transcribe 实现 Transcriber 接口
func (w *WhisperASR) Transcribe(ctx context.Context, wf *models.Waveform, opts Options) (*Transcript, error) {
	if wf.Len() == 0 {
		return nil, utils.InferenceError("转写输入为空", nil)
	}

	f, err := os.CreateTemp(w.tempDir, "whisper_*.wav")
	if err != nil {
		return nil, utils.IOError("创建转写临时文件失败", err)
	}
	wavPath := f.Name()
	f.Close()
	defer func() {
		if err := utils.RemoveIfExists(wavPath); err != nil {
			utils.Warn("删除转写临时文件失败 %s: %v", wavPath, err)
		}
	}()

	if err := audio.WriteWAV(wavPath, wf); err != nil {
		return nil, utils.IOError("写入转写临时文件失败", err)
	}

	fields := map[string]string{
		"language":  opts.Language,
		"prompt":    opts.Prompt,
		"beam_size": strconv.Itoa(w.BeamSize),
		"device":    w.client.Device,
	}

	var resp whisperResponse
	if err := w.client.PostFile(ctx, "/transcribe", "file", wavPath, fields, &resp); err != nil {
		return nil, utils.InferenceError("语音转写失败", errors.Wrap(err, w.client.Name))
	}

	return w.makeTranscript(&resp), nil
}

// makeTranscript 处理识别结果
func (w *WhisperASR) makeTranscript(resp *whisperResponse) *Transcript {
	t := &Transcript{Language: resp.Language}
	for _, item := range resp.Segments {
		t.Segments = append(t.Segments, models.DataSegment{
			Text:      item.Text,
			StartTime: item.Start,
			EndTime:   item.End,
		})
	}
	return t
}
