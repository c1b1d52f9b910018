package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ccp-p/audio-analyzer/internal/ui"
	"github.com/ccp-p/audio-analyzer/pkg/models"
)

// BatchResult 批量分析中单个文件的结果
type BatchResult struct {
	FilePath    string
	Result      models.TaskResult
	ProcessTime time.Duration
}

// Success 分析是否成功
func (r *BatchResult) Success() bool {
	return r.Result != nil && r.Result.Err() == ""
}

// BatchProgressCallback 批处理进度回调，result 为 nil 表示文件开始处理
type BatchProgressCallback func(current, total int, filename string, result *BatchResult)

// Batch 批量分析多个文件，文件之间并发，单个文件内部仍走完整的流水线
type Batch struct {
	Pipeline         *Pipeline
	MaxConcurrency   int
	ProgressCallback BatchProgressCallback
	ProgressManager  *ui.ProgressManager
}

// NewBatch 创建批处理器
func NewBatch(p *Pipeline, maxConcurrency int, callback BatchProgressCallback) *Batch {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Batch{
		Pipeline:         p,
		MaxConcurrency:   maxConcurrency,
		ProgressCallback: callback,
	}
}

// SetProgressManager 设置进度管理器
func (b *Batch) SetProgressManager(manager *ui.ProgressManager) {
	b.ProgressManager = manager
}

// Run 对 files 逐个执行 template 描述的任务，结果顺序与 files 一致
// 输入文件不属于流水线，处理完成后保留
func (b *Batch) Run(ctx context.Context, template Request, files []string) []BatchResult {
	results := make([]BatchResult, len(files))
	if len(files) == 0 {
		return results
	}

	if b.ProgressManager != nil {
		b.ProgressManager.CreateProgressBar("batch_overall", len(files),
			"总体进度", fmt.Sprintf("0/%d 文件已处理", len(files)))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	sem := make(chan struct{}, b.MaxConcurrency) // 信号量限制并发

	for i, filePath := range files {
		wg.Add(1)
		sem <- struct{}{} // 获取信号量

		go func(index int, path string) {
			defer wg.Done()
			defer func() { <-sem }() // 释放信号量

			filename := filepath.Base(path)
			if b.ProgressCallback != nil {
				b.ProgressCallback(index+1, len(files), filename, nil)
			}

			req := template
			req.Path = path
			req.Filename = filename
			req.Owned = false

			startTime := time.Now()
			result := BatchResult{
				FilePath: path,
				Result:   b.Pipeline.Handle(ctx, req),
			}
			result.ProcessTime = time.Since(startTime)
			results[index] = result

			if b.ProgressCallback != nil {
				b.ProgressCallback(index+1, len(files), filename, &result)
			}

			mu.Lock()
			done++
			current := done
			mu.Unlock()
			if b.ProgressManager != nil {
				b.ProgressManager.UpdateProgressBar("batch_overall", current,
					fmt.Sprintf("%d/%d 文件已处理", current, len(files)))
			}
		}(i, filePath)
	}

	wg.Wait()

	if b.ProgressManager != nil {
		b.ProgressManager.CompleteProgressBar("batch_overall", "所有文件处理完成")
	}
	return results
}
