package models

import "time"

// DataSegment 表示一个语音识别结果段落
type DataSegment struct {
	Text      string  `json:"text"`  // 识别出的文本内容
	StartTime float64 `json:"start"` // 开始时间（秒）
	EndTime   float64 `json:"end"`   // 结束时间（秒）
}

// Waveform 规范化后的单声道波形，样本取值范围 [-1, 1]
type Waveform struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Len 返回样本数
func (w *Waveform) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Samples)
}

// Duration 返回波形时长
func (w *Waveform) Duration() time.Duration {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// Window 一个固定长度的分析窗口
// Samples 是独立的副本，不与波形共享底层数组
type Window struct {
	Index   int       // 窗口序号
	Offset  int       // 在波形中的起始样本位置
	Samples []float64 // 恰好 windowSeconds*R 个样本
}

// Distribution 标签 -> 置信度 [0,100]
// Labels 保持模型枚举标签的顺序，排序时用于稳定地打破平局
type Distribution struct {
	Labels []string
	Scores []float64
}

// Get 返回指定标签的置信度
func (d Distribution) Get(label string) (float64, bool) {
	for i, l := range d.Labels {
		if l == label {
			return d.Scores[i], true
		}
	}
	return 0, false
}

// Map 转换为 map，用于输出
func (d Distribution) Map() map[string]float64 {
	out := make(map[string]float64, len(d.Labels))
	for i, l := range d.Labels {
		out[l] = d.Scores[i]
	}
	return out
}

// Sum 返回所有置信度之和
func (d Distribution) Sum() float64 {
	var s float64
	for _, v := range d.Scores {
		s += v
	}
	return s
}

// Detection 多标签检测结果中的一项
type Detection struct {
	Label       string  `json:"etiqueta"`
	Probability float64 `json:"probabilidad"`
}
