package ui

import (
	"sort"
	"sync"
)

// ProgressManager 管理多个进度条
type ProgressManager struct {
	progressBars map[string]*ProgressBar
	mutex        sync.Mutex
	enabled      bool
	term         *TerminalManager
}

// NewProgressManager 创建新的进度管理器，未启用时所有操作都是空操作
func NewProgressManager(enabled bool) *ProgressManager {
	return NewProgressManagerWithTerminal(enabled, GetTerminalManager())
}

// NewProgressManagerWithTerminal 创建输出到指定终端管理器的进度管理器
func NewProgressManagerWithTerminal(enabled bool, term *TerminalManager) *ProgressManager {
	return &ProgressManager{
		progressBars: make(map[string]*ProgressBar),
		enabled:      enabled,
		term:         term,
	}
}

// Enabled 是否启用
func (pm *ProgressManager) Enabled() bool {
	return pm.enabled
}

// CreateProgressBar 创建并注册一个新的进度条
func (pm *ProgressManager) CreateProgressBar(id string, total int, prefix string, suffix string) *ProgressBar {
	if !pm.enabled {
		return nil
	}

	pm.mutex.Lock()
	old, exists := pm.progressBars[id]
	bar := newProgressBar(pm.term, total, prefix, suffix)
	pm.progressBars[id] = bar
	pm.mutex.Unlock()

	// 如果已经存在同名进度条，先完成它
	if exists {
		old.Complete("已被替换")
	}
	return bar
}

// GetProgressBar 获取已存在的进度条
func (pm *ProgressManager) GetProgressBar(id string) *ProgressBar {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	return pm.progressBars[id]
}

// UpdateProgressBar 更新进度条
func (pm *ProgressManager) UpdateProgressBar(id string, current int, suffix string) {
	if bar := pm.GetProgressBar(id); bar != nil {
		bar.Update(current, suffix)
	}
}

// CompleteProgressBar 完成并移除进度条
func (pm *ProgressManager) CompleteProgressBar(id string, suffix string) {
	pm.mutex.Lock()
	bar, exists := pm.progressBars[id]
	delete(pm.progressBars, id)
	pm.mutex.Unlock()

	if exists {
		bar.Complete(suffix)
	}
}

// CloseAll 完成所有进度条
func (pm *ProgressManager) CloseAll(suffix string) {
	pm.mutex.Lock()
	bars := pm.progressBars
	pm.progressBars = make(map[string]*ProgressBar)
	pm.mutex.Unlock()

	for _, id := range sortedIDs(bars) {
		bars[id].Complete(suffix)
	}
}

// PrintStatus 打印当前所有进度条的状态
func (pm *ProgressManager) PrintStatus() {
	if !pm.enabled {
		return
	}

	pm.mutex.Lock()
	bars := make(map[string]*ProgressBar, len(pm.progressBars))
	for id, bar := range pm.progressBars {
		bars[id] = bar
	}
	pm.mutex.Unlock()

	pm.term.PrintMsg("当前进度状态:")
	for _, id := range sortedIDs(bars) {
		bar := bars[id]
		pm.term.PrintMsg("- %s: %.1f%% %s", id, bar.Percent(), bar.String())
	}
}

func sortedIDs(bars map[string]*ProgressBar) []string {
	ids := make([]string, 0, len(bars))
	for id := range bars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
