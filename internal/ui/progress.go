package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// ProgressBar 进度条结构
type ProgressBar struct {
	Total      int       // 总步数
	Current    int       // 当前进度
	Prefix     string    // 前缀
	Suffix     string    // 后缀
	Width      int       // 进度条宽度
	FillChar   string    // 填充字符
	EmptyChar  string    // 空白字符
	StartTime  time.Time // 开始时间
	LastUpdate time.Time // 上次更新时间

	mu   sync.Mutex
	term *TerminalManager
}

// NewProgressBar 创建新的进度条，输出到全局终端管理器
func NewProgressBar(total int, prefix string, suffix string) *ProgressBar {
	return newProgressBar(GetTerminalManager(), total, prefix, suffix)
}

func newProgressBar(term *TerminalManager, total int, prefix, suffix string) *ProgressBar {
	now := time.Now()
	return &ProgressBar{
		Total:      total,
		Prefix:     prefix,
		Suffix:     suffix,
		Width:      30,
		FillChar:   "█",
		EmptyChar:  "░",
		StartTime:  now,
		LastUpdate: now,
		term:       term,
	}
}

// Update 更新进度，超过总数时按总数处理，负值忽略
func (p *ProgressBar) Update(current int, suffix string) {
	if current < 0 {
		return
	}

	p.mu.Lock()
	if current > p.Total {
		current = p.Total
	}
	p.Current = current
	if suffix != "" {
		p.Suffix = suffix
	}
	p.LastUpdate = time.Now()
	line := p.line()
	p.mu.Unlock()

	p.term.UpdateProgress(color.CyanString(line))
}

// Increment 增加进度
func (p *ProgressBar) Increment(suffix string) {
	p.mu.Lock()
	next := p.Current + 1
	p.mu.Unlock()
	p.Update(next, suffix)
}

// Complete 完成进度条
func (p *ProgressBar) Complete(suffix string) {
	p.Update(p.Total, suffix)
	p.term.EndProgress()
}

// Percent 返回完成百分比
func (p *ProgressBar) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent() * 100
}

func (p *ProgressBar) percent() float64 {
	if p.Total <= 0 {
		return 1
	}
	return float64(p.Current) / float64(p.Total)
}

// 构建带耗时和剩余时间估计的进度行，调用方持有锁
func (p *ProgressBar) line() string {
	percent := p.percent()
	elapsed := time.Since(p.StartTime)

	// 估计剩余时间
	var remaining time.Duration
	if p.Current > 0 {
		remaining = time.Duration(float64(elapsed) / percent * (1 - percent))
	}

	return fmt.Sprintf("%s %s %3.0f%% | %d/%d | %s<%s | %s",
		p.Prefix, p.bar(), percent*100, p.Current, p.Total,
		formatDuration(elapsed), formatDuration(remaining), p.Suffix)
}

func (p *ProgressBar) bar() string {
	filled := int(p.percent() * float64(p.Width))
	if filled > p.Width {
		filled = p.Width
	}
	return "[" + strings.Repeat(p.FillChar, filled) + strings.Repeat(p.EmptyChar, p.Width-filled) + "]"
}

// String 返回进度条的字符串表示
func (p *ProgressBar) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("%s %s %3.0f%% | %d/%d", p.Prefix, p.bar(), p.percent()*100, p.Current, p.Total)
}

// 格式化持续时间为 MM:SS 格式
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
