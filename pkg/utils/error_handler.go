package utils

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// 错误类别，配合 errors.Is 使用
var (
	// ErrDecode 音频无法解析或已损坏
	ErrDecode = errors.New("音频解码失败")
	// ErrEmptyInput 归一化或分窗后没有可用音频
	ErrEmptyInput = errors.New("没有可用的音频数据")
	// ErrInference 模型推理调用失败
	ErrInference = errors.New("模型推理失败")
	// ErrIO 临时文件创建或删除失败
	ErrIO = errors.New("文件读写失败")
)

// AnalysisError 是音频分析错误的基础类型
type AnalysisError struct {
	Kind    error
	Message string
	Cause   error
}

// Error 实现error接口
func (e *AnalysisError) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", msg, e.Cause.Error())
	}
	return msg
}

// Unwrap 支持error chain
func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Is 让 errors.Is(err, ErrDecode) 这类判断对包装后的错误同样成立
func (e *AnalysisError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// NewError 创建一个新的AnalysisError
func NewError(kind error, message string, cause error) error {
	return &AnalysisError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// DecodeError 创建解码错误
func DecodeError(message string, cause error) error {
	return NewError(ErrDecode, message, cause)
}

// EmptyInputError 创建空输入错误
func EmptyInputError(message string) error {
	return NewError(ErrEmptyInput, message, nil)
}

// InferenceError 创建推理错误
func InferenceError(message string, cause error) error {
	return NewError(ErrInference, message, cause)
}

// IOError 创建文件读写错误
func IOError(message string, cause error) error {
	return NewError(ErrIO, message, cause)
}

// KindOf 返回错误所属的类别名称，用于日志和指标标签
func KindOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrInference):
		return "inference"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "internal"
	}
}

// ErrorHandler 处理错误和重试
// 只用于启动阶段的模型服务预热，请求级别的推理失败不重试
type ErrorHandler struct {
	MaxRetries int
	RetryDelay float64
	ErrorStats map[string]map[string]int // 操作 -> 错误信息 -> 计数
	mu         sync.Mutex
}

// NewErrorHandler 创建新的错误处理器
func NewErrorHandler(maxRetries int, retryDelay float64) *ErrorHandler {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ErrorHandler{
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
		ErrorStats: make(map[string]map[string]int),
	}
}

// Retry 执行函数并在失败时重试
func (h *ErrorHandler) Retry(operation string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < h.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil // 成功执行
		}

		lastErr = err
		h.updateErrorStats(operation, err.Error())

		if attempt < h.MaxRetries-1 {
			delay := h.RetryDelay * float64(attempt+1)
			Warn("操作 %s 失败 (尝试 %d/%d): %s", operation, attempt+1, h.MaxRetries, err)
			Warn("等待 %.1f 秒后重试...", delay)
			time.Sleep(time.Duration(delay * float64(time.Second)))
		}
	}

	return fmt.Errorf("操作 %s 重试 %d 次后仍然失败: %w", operation, h.MaxRetries, lastErr)
}

// 更新错误统计
func (h *ErrorHandler) updateErrorStats(operation string, errMsg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ErrorStats[operation] == nil {
		h.ErrorStats[operation] = make(map[string]int)
	}
	h.ErrorStats[operation][errMsg]++
}

// GetErrorStats 获取错误统计信息的副本
func (h *ErrorHandler) GetErrorStats() map[string]map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]map[string]int, len(h.ErrorStats))
	for op, errs := range h.ErrorStats {
		inner := make(map[string]int, len(errs))
		for msg, n := range errs {
			inner[msg] = n
		}
		out[op] = inner
	}
	return out
}

// PrintErrorStats 打印错误统计信息
func (h *ErrorHandler) PrintErrorStats() {
	stats := h.GetErrorStats()
	if len(stats) == 0 {
		Info("没有错误记录")
		return
	}

	Info("错误统计:")
	for operation, errors := range stats {
		Info("操作: %s", operation)
		for errMsg, count := range errors {
			Info("  - %s: %d次", errMsg, count)
		}
	}
}
