package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/pipeline"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// Analyzer 对单个请求执行分析
type Analyzer interface {
	Handle(ctx context.Context, req pipeline.Request) models.TaskResult
}

// ResultSink 接收分析结果，例如写到标准输出
type ResultSink func(filePath string, res models.TaskResult)

// AnalysisHandler 对监控目录中新出现的音频执行分析
// 收件箱中的文件不属于流水线，分析后保留原位
type AnalysisHandler struct {
	analyzer       Analyzer
	template       pipeline.Request
	sink           ResultSink
	processedFiles map[string]time.Time // 路径 -> 分析时的修改时间
	mutex          sync.Mutex
}

// NewAnalysisHandler 创建分析处理器，template 提供任务类型和转写参数
func NewAnalysisHandler(analyzer Analyzer, template pipeline.Request, sink ResultSink) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer:       analyzer,
		template:       template,
		sink:           sink,
		processedFiles: make(map[string]time.Time),
	}
}

// OnFileCreated 处理文件创建事件，同一文件内容未变化时不重复分析
func (h *AnalysisHandler) OnFileCreated(ctx context.Context, filePath string) {
	info, err := os.Stat(filePath)
	if err != nil {
		return
	}

	h.mutex.Lock()
	if mod, ok := h.processedFiles[filePath]; ok && mod.Equal(info.ModTime()) {
		h.mutex.Unlock()
		return
	}
	h.processedFiles[filePath] = info.ModTime()
	h.mutex.Unlock()

	req := h.template
	req.Path = filePath
	req.Filename = filepath.Base(filePath)
	req.Owned = false

	res := h.analyzer.Handle(ctx, req)
	if res.Err() != "" {
		utils.Warn("分析失败 %s: %s", filePath, res.Err())
	}
	if h.sink != nil {
		h.sink(filePath, res)
	}
}

// OnFileDeleted 处理文件删除事件
func (h *AnalysisHandler) OnFileDeleted(filePath string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.processedFiles, filePath)
}

// StartFolderMonitoring 开始监控文件夹并分析新文件，返回停止函数
func StartFolderMonitoring(ctx context.Context, folder string, accept func(string) bool, handler FileEventHandler, debounce time.Duration) (func(), error) {
	monitor, err := NewFolderMonitor(folder, accept, handler, debounce)
	if err != nil {
		return nil, err
	}
	if err := monitor.Start(ctx); err != nil {
		monitor.Stop()
		return nil, err
	}
	return monitor.Stop, nil
}
