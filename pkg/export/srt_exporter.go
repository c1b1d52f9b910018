package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// 结束时间缺失时字幕的默认显示时长（秒）
const defaultCueSeconds = 5.0

// SRTExporter 将转写段落导出为SRT字幕
type SRTExporter struct {
	w io.Writer
}

// NewSRTExporter 创建一个新的SRT导出器
func NewSRTExporter(w io.Writer) *SRTExporter {
	return &SRTExporter{w: w}
}

// GenerateSRTContent 生成SRT格式内容，空白段落跳过，序号保持连续
func GenerateSRTContent(segments []models.DataSegment) string {
	var srtLines []string
	index := 0

	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		index++

		startTime := segment.StartTime
		endTime := segment.EndTime
		if endTime <= startTime {
			endTime = startTime + defaultCueSeconds
		}

		srtLines = append(srtLines, fmt.Sprintf("%d", index))
		srtLines = append(srtLines, fmt.Sprintf("%s --> %s", utils.FormatSRTTime(startTime), utils.FormatSRTTime(endTime)))
		srtLines = append(srtLines, text)
		srtLines = append(srtLines, "") // 空行分隔
	}

	return strings.Join(srtLines, "\n")
}

// Export 写出转写结果的SRT字幕
func (e *SRTExporter) Export(res *models.TranscriptionResult) error {
	if res.Error != "" {
		return fmt.Errorf("转写失败，无法导出字幕: %s", res.Error)
	}
	if _, err := io.WriteString(e.w, GenerateSRTContent(res.Segments)); err != nil {
		return fmt.Errorf("写入SRT失败: %w", err)
	}
	return nil
}
