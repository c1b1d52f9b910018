package models

import "encoding/json"

// 风险判定
const (
	RiskNormal   = "NORMAL"
	RiskElevated = "PELIGRO DETECTADO"
)

// TaskResult 是所有任务结果的公共接口
type TaskResult interface {
	// Err 返回错误信息，成功时为空
	Err() string
}

// TranscriptionResult 语音转写结果
type TranscriptionResult struct {
	Text     string        `json:"texto"`
	Error    string        `json:"error,omitempty"`
	Segments []DataSegment `json:"-"` // 仅供 SRT 导出使用，不出现在接口响应中
	Language string        `json:"-"`
}

// EmotionResult 情绪分析结果
type EmotionResult struct {
	Filename        string             `json:"archivo,omitempty"`
	DominantEmotion string             `json:"emocion_dominante,omitempty"`
	Confidence      string             `json:"confianza,omitempty"` // 例如 "87.25%"
	Emotions        map[string]float64 `json:"emociones,omitempty"` // 标签 -> 百分比
	ElapsedSeconds  float64            `json:"tiempo_proceso"`
	Windows         int                `json:"-"`
	Error           string             `json:"error,omitempty"`
}

// EnvironmentResult 环境声音分析结果
type EnvironmentResult struct {
	Filename       string      `json:"archivo,omitempty"`
	RiskVerdict    string      `json:"estado,omitempty"` // NORMAL 或 PELIGRO DETECTADO
	Alerts         []string    `json:"alertas"`
	Detections     []Detection `json:"detecciones"`
	ElapsedSeconds float64     `json:"tiempo_proceso"`
	Error          string      `json:"error,omitempty"`
}

// ErrorResult 只包含错误信息的结果，用于任务类型未知或请求本身无效的情况
type ErrorResult struct {
	Error string `json:"error"`
}

// Err 实现 TaskResult
func (r *ErrorResult) Err() string { return r.Error }

// Err 实现 TaskResult
func (r *TranscriptionResult) Err() string { return r.Error }

// MarshalJSON 成功时总是输出 texto（没有语音时为空字符串），失败时只输出 error
func (r *TranscriptionResult) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(&ErrorResult{Error: r.Error})
	}
	return json.Marshal(struct {
		Text string `json:"texto"`
	}{r.Text})
}

// Err 实现 TaskResult
func (r *EmotionResult) Err() string { return r.Error }

// Err 实现 TaskResult
func (r *EnvironmentResult) Err() string { return r.Error }
