package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// TempScope 管理单个请求产生的临时文件
// 文件名带有请求级别的 UUID，并发请求之间不会冲突；Close 删除所有登记过的文件
type TempScope struct {
	dir   string
	id    string
	mu    sync.Mutex
	paths []string
	seq   int
}

// NewTempScope 创建临时文件作用域，dir 为空时使用系统临时目录
func NewTempScope(dir string) *TempScope {
	if dir == "" {
		dir = os.TempDir()
	}
	return &TempScope{
		dir: dir,
		id:  uuid.New().String(),
	}
}

// ID 返回作用域的唯一标识，同时用作请求 ID
func (s *TempScope) ID() string {
	return s.id
}

// NewPath 生成并登记一个新的临时文件路径，suffix 形如 ".wav"
func (s *TempScope) NewPath(suffix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	p := filepath.Join(s.dir, fmt.Sprintf("temp_%s_%d%s", s.id, s.seq, suffix))
	s.paths = append(s.paths, p)
	return p
}

// Track 登记一个由调用方创建的文件，例如上传的原始音频
func (s *TempScope) Track(path string) {
	if path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
}

// Paths 返回已登记的文件
func (s *TempScope) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Close 删除所有登记过的文件，不存在的文件忽略
// 某个文件删除失败不影响其余文件的删除，返回第一个错误
func (s *TempScope) Close() error {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	var firstErr error
	for _, p := range paths {
		if err := utils.RemoveIfExists(p); err != nil {
			utils.Warn("删除临时文件失败 %s: %v", p, err)
			if firstErr == nil {
				firstErr = utils.IOError(fmt.Sprintf("删除临时文件失败: %s", p), err)
			}
			continue
		}
		utils.Debug("已删除临时文件: %s", p)
	}
	return firstErr
}
