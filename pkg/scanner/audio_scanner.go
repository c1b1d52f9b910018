package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// AudioFile 表示一个待分析的音频文件
type AudioFile struct {
	Path    string    // 文件路径
	Name    string    // 文件名
	Ext     string    // 文件扩展名
	Size    int64     // 文件大小（字节）
	ModTime time.Time // 修改时间
	IsVideo bool      // 视频容器，分析其中的音轨
}

// AudioScanner 查找可以被归一化器解码的文件
type AudioScanner struct {
	AudioExtensions []string
	VideoExtensions []string
}

// NewAudioScanner 创建新的扫描器
func NewAudioScanner() *AudioScanner {
	return &AudioScanner{
		AudioExtensions: []string{".wav", ".mp3", ".m4a", ".flac", ".ogg", ".opus", ".aac", ".webm", ".amr"},
		VideoExtensions: []string{".mp4", ".mov", ".mkv"},
	}
}

// IsSupported 判断文件扩展名是否受支持
func (s *AudioScanner) IsSupported(path string) bool {
	audio, video := s.classify(path)
	return audio || video
}

func (s *AudioScanner) classify(path string) (isAudio, isVideo bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range s.AudioExtensions {
		if ext == e {
			return true, false
		}
	}
	for _, e := range s.VideoExtensions {
		if ext == e {
			return false, true
		}
	}
	return false, false
}

// ScanDirectory 扫描指定目录中的音频文件（非递归），跳过隐藏文件，按文件名排序
func (s *AudioScanner) ScanDirectory(dir string) ([]AudioFile, error) {
	utils.Debug("开始扫描目录: %s", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []AudioFile
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		isAudio, isVideo := s.classify(path)
		if !isAudio && !isVideo {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			utils.Warn("获取文件信息失败: %v", err)
			continue
		}
		files = append(files, AudioFile{
			Path:    path,
			Name:    entry.Name(),
			Ext:     strings.ToLower(filepath.Ext(path)),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsVideo: isVideo,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	utils.Debug("扫描完成，共找到 %d 个音频文件", len(files))
	return files, nil
}

// Collect 展开命令行参数：目录展开为其中的音频文件，文件原样保留
// 显式指定的文件即使扩展名不在列表中也会保留，交给归一化器判断能否解码
func (s *AudioScanner) Collect(args []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("无法访问 %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		files, err := s.ScanDirectory(arg)
		if err != nil {
			return nil, fmt.Errorf("扫描目录 %s 失败: %w", arg, err)
		}
		for _, f := range files {
			add(f.Path)
		}
	}
	return out, nil
}

// FilterNewFiles 根据已处理记录过滤出新文件
func (s *AudioScanner) FilterNewFiles(files []AudioFile, processedPaths map[string]bool) []AudioFile {
	var newFiles []AudioFile
	for _, file := range files {
		if !processedPaths[file.Path] {
			newFiles = append(newFiles, file)
		}
	}
	return newFiles
}
