package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// 环境分析展示的默认参数
const (
	DefaultTopK             = 5
	DefaultDisplayThreshold = 5.0
)

// JoinSegments 按顺序以单个空格拼接段落文本，并去掉首尾空白
func JoinSegments(segments []models.DataSegment) string {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// MeanDistribution 计算各窗口分布的逐标签算术平均，每个窗口权重相同
// 返回平均值最大的标签，并列时取模型枚举顺序中靠前的标签
func MeanDistribution(dists []models.Distribution) (string, models.Distribution, error) {
	if len(dists) == 0 {
		return "", models.Distribution{}, utils.EmptyInputError("没有可聚合的窗口")
	}

	labels := dists[0].Labels
	sums := make([]float64, len(labels))
	for i, d := range dists {
		if len(d.Labels) != len(labels) {
			return "", models.Distribution{}, fmt.Errorf("窗口 %d 的标签数 %d 与第一个窗口 %d 不一致", i, len(d.Labels), len(labels))
		}
		for j, label := range labels {
			// 同一模型输出的标签顺序一致，顺序不同时按名称查找
			if d.Labels[j] == label {
				sums[j] += d.Scores[j]
				continue
			}
			v, ok := d.Get(label)
			if !ok {
				return "", models.Distribution{}, fmt.Errorf("窗口 %d 缺少标签 %s", i, label)
			}
			sums[j] += v
		}
	}

	mean := models.Distribution{
		Labels: append([]string(nil), labels...),
		Scores: make([]float64, len(labels)),
	}
	n := float64(len(dists))
	dominant := -1
	for j, s := range sums {
		mean.Scores[j] = s / n
		if dominant < 0 || mean.Scores[j] > mean.Scores[dominant] {
			dominant = j
		}
	}
	if dominant < 0 {
		return "", mean, utils.EmptyInputError("模型没有返回任何标签")
	}

	return mean.Labels[dominant], mean, nil
}

// RankTopK 按置信度降序取前 k 个标签，再丢弃低于展示阈值的标签
// 使用稳定排序，置信度相同的标签保持模型枚举顺序
func RankTopK(dist models.Distribution, k int, displayThreshold float64) []models.Detection {
	ranked := make([]models.Detection, len(dist.Labels))
	for i, label := range dist.Labels {
		ranked[i] = models.Detection{Label: label, Probability: dist.Scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})

	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]models.Detection, 0, len(ranked))
	for _, d := range ranked {
		if d.Probability < displayThreshold {
			continue
		}
		out = append(out, d)
	}
	return out
}
