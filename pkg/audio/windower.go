package audio

import (
	"fmt"
	"math"

	"github.com/ccp-p/audio-analyzer/pkg/models"
)

// Windower 将波形切分为固定长度的分析窗口
type Windower struct {
	SampleRate int
}

// NewWindower 创建分窗器
func NewWindower(sampleRate int) *Windower {
	return &Windower{SampleRate: sampleRate}
}

// Split 按 windowSeconds 窗长、strideSeconds 步长切分波形
// 短于一个窗口的波形右侧补零成恰好一个窗口；否则只输出完整窗口，尾部不足一个窗口的部分丢弃。
// 空波形返回空切片，由聚合阶段报告 EmptyInputError。
func (w *Windower) Split(wf *models.Waveform, windowSeconds, strideSeconds float64) ([]models.Window, error) {
	if windowSeconds <= 0 || strideSeconds <= 0 {
		return nil, fmt.Errorf("无效的分窗参数: window=%.2fs stride=%.2fs", windowSeconds, strideSeconds)
	}
	if wf != nil && wf.SampleRate != w.SampleRate {
		return nil, fmt.Errorf("采样率不匹配: 波形 %d Hz，分窗器 %d Hz", wf.SampleRate, w.SampleRate)
	}

	winLen := w.samples(windowSeconds)
	stride := w.samples(strideSeconds)
	if winLen < 1 || stride < 1 {
		return nil, fmt.Errorf("分窗参数过小: window=%d stride=%d 样本", winLen, stride)
	}

	n := wf.Len()
	if n == 0 {
		return []models.Window{}, nil
	}

	if n < winLen {
		padded := make([]float64, winLen)
		copy(padded, wf.Samples)
		return []models.Window{{Index: 0, Offset: 0, Samples: padded}}, nil
	}

	windows := make([]models.Window, 0, (n-winLen)/stride+1)
	for offset := 0; offset+winLen <= n; offset += stride {
		chunk := make([]float64, winLen)
		copy(chunk, wf.Samples[offset:offset+winLen])
		windows = append(windows, models.Window{
			Index:   len(windows),
			Offset:  offset,
			Samples: chunk,
		})
	}
	return windows, nil
}

// Truncate 截取波形开头 seconds 秒，短于该时长的波形原样复制返回，不补零
func (w *Windower) Truncate(wf *models.Waveform, seconds float64) *models.Waveform {
	if wf == nil {
		return nil
	}
	n := wf.Len()
	if limit := w.samples(seconds); seconds > 0 && limit < n {
		n = limit
	}
	out := make([]float64, n)
	copy(out, wf.Samples[:n])
	return &models.Waveform{Samples: out, SampleRate: wf.SampleRate, Channels: wf.Channels}
}

func (w *Windower) samples(seconds float64) int {
	return int(math.Round(seconds * float64(w.SampleRate)))
}
