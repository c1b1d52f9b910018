package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ccp-p/audio-analyzer/pkg/models"
)

// JSONExporter 将分析结果以 JSON 写到输出流，每个结果一行
// 结果只输出不落盘
type JSONExporter struct {
	w      io.Writer
	mu     sync.Mutex
	Indent bool // 为 true 时使用缩进格式，便于人工阅读
}

// NewJSONExporter 创建一个新的JSON导出器
func NewJSONExporter(w io.Writer) *JSONExporter {
	return &JSONExporter{w: w}
}

// Export 写出一个结果，可被多个 goroutine 并发调用
func (e *JSONExporter) Export(res models.TaskResult) error {
	var (
		data []byte
		err  error
	)
	if e.Indent {
		data, err = json.MarshalIndent(res, "", "  ")
	} else {
		data, err = json.Marshal(res)
	}
	if err != nil {
		return fmt.Errorf("JSON编码失败: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("写入JSON失败: %w", err)
	}
	return nil
}
