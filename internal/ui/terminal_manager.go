package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// TerminalManager 管理终端输出，确保进度条和消息不会混乱
// 标准输出留给分析结果，进度和提示默认写到标准错误
type TerminalManager struct {
	mu     sync.Mutex
	out    io.Writer
	inLine bool // 当前行是否被进度条占用
}

var (
	// 全局终端管理器实例
	globalTerminalManager *TerminalManager
	once                  sync.Once
)

// NewTerminalManager 创建写到 w 的终端管理器
func NewTerminalManager(w io.Writer) *TerminalManager {
	return &TerminalManager{out: w}
}

// GetTerminalManager 获取全局终端管理器实例
func GetTerminalManager() *TerminalManager {
	once.Do(func() {
		globalTerminalManager = NewTerminalManager(os.Stderr)
	})
	return globalTerminalManager
}

// PrintMsg 安全地打印一行消息
func (tm *TerminalManager) PrintMsg(format string, args ...interface{}) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.inLine {
		// 清除当前行，以防止与进度条冲突
		fmt.Fprint(tm.out, "\033[2K\r")
		tm.inLine = false
	}
	fmt.Fprintf(tm.out, format+"\n", args...)
}

// UpdateProgress 覆盖当前行显示进度
func (tm *TerminalManager) UpdateProgress(line string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	fmt.Fprint(tm.out, "\033[2K\r")
	// 直接打印文本，避免 % 被当作格式符
	fmt.Fprint(tm.out, line)
	tm.inLine = true
}

// EndProgress 结束进度行并换行
func (tm *TerminalManager) EndProgress() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.inLine {
		fmt.Fprintln(tm.out)
		tm.inLine = false
	}
}
