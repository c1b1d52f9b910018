package watcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// FileEventHandler 是处理文件事件的接口
type FileEventHandler interface {
	// OnFileCreated 文件写入完成（去抖之后）时调用
	OnFileCreated(ctx context.Context, filePath string)
	// OnFileDeleted 文件被删除或移走时调用
	OnFileDeleted(filePath string)
}

// FolderMonitor 监控文件夹变化
type FolderMonitor struct {
	watcher      *fsnotify.Watcher
	folderPath   string
	accept       func(path string) bool
	handler      FileEventHandler
	debounceTime time.Duration
	pendingFiles map[string]*time.Timer
	mutex        sync.Mutex
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewFolderMonitor 创建新的文件夹监控器，accept 决定哪些文件需要处理
func NewFolderMonitor(folderPath string, accept func(string) bool, handler FileEventHandler, debounceTime time.Duration) (*FolderMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	return &FolderMonitor{
		watcher:      watcher,
		folderPath:   folderPath,
		accept:       accept,
		handler:      handler,
		debounceTime: debounceTime,
		pendingFiles: make(map[string]*time.Timer),
		stopChan:     make(chan struct{}),
	}, nil
}

// Start 开始监控文件夹，ctx 结束时自动停止
func (m *FolderMonitor) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.folderPath, 0755); err != nil {
		return fmt.Errorf("创建文件夹失败: %w", err)
	}

	if err := m.watcher.Add(m.folderPath); err != nil {
		return fmt.Errorf("添加监控文件夹失败: %w", err)
	}

	m.wg.Add(1)
	go m.watchLoop(ctx)

	utils.Info("开始监控文件夹: %s", m.folderPath)
	return nil
}

// Stop 停止监控，等待正在处理的文件完成
func (m *FolderMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.watcher.Close()

		m.mutex.Lock()
		for path, timer := range m.pendingFiles {
			if timer.Stop() {
				m.wg.Done()
			}
			delete(m.pendingFiles, path)
		}
		m.mutex.Unlock()

		m.wg.Wait()
		utils.Info("停止监控文件夹: %s", m.folderPath)
	})
}

// watchLoop 监控循环
func (m *FolderMonitor) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopChan:
			return
		case <-ctx.Done():
			go m.Stop()
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleFileEvent(ctx, event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			utils.Error("监控文件夹时出错: %v", err)
		}
	}
}

// 处理文件事件
func (m *FolderMonitor) handleFileEvent(ctx context.Context, event fsnotify.Event) {
	filePath := event.Name

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		m.cancelPending(filePath)
		if m.handler != nil {
			m.handler.OnFileDeleted(filePath)
		}
		return
	}

	// 只处理创建和修改事件
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !m.isTargetFile(filePath) {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	select {
	case <-m.stopChan:
		return
	default:
	}

	// 文件仍在写入时重置定时器
	if timer, exists := m.pendingFiles[filePath]; exists {
		if timer.Stop() {
			m.wg.Done()
		}
	}

	m.wg.Add(1)
	m.pendingFiles[filePath] = time.AfterFunc(m.debounceTime, func() {
		defer m.wg.Done()
		m.processFile(ctx, filePath)
	})

	utils.Debug("检测到文件变化: %s", filePath)
}

func (m *FolderMonitor) cancelPending(filePath string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if timer, exists := m.pendingFiles[filePath]; exists {
		if timer.Stop() {
			m.wg.Done()
		}
		delete(m.pendingFiles, filePath)
	}
}

// 判断是否为目标文件类型
func (m *FolderMonitor) isTargetFile(filePath string) bool {
	fileInfo, err := os.Stat(filePath)
	if err != nil || fileInfo.IsDir() {
		return false
	}
	return m.accept == nil || m.accept(filePath)
}

// 处理文件
func (m *FolderMonitor) processFile(ctx context.Context, filePath string) {
	m.mutex.Lock()
	delete(m.pendingFiles, filePath)
	m.mutex.Unlock()

	// 检查文件是否仍然存在
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return
	}

	utils.Info("准备处理文件: %s", filePath)
	if m.handler != nil {
		m.handler.OnFileCreated(ctx, filePath)
	}
}
