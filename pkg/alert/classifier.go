package alert

import (
	"fmt"

	"github.com/ccp-p/audio-analyzer/pkg/models"
)

// DefaultThreshold 告警阈值（百分比）
const DefaultThreshold = 15.0

// Report 告警判定结果
type Report struct {
	Alerts  []string // 按展示顺序排列的告警标签
	Verdict string   // models.RiskNormal 或 models.RiskElevated
}

// Elevated 是否存在告警
func (r Report) Elevated() bool {
	return len(r.Alerts) > 0
}

// Classifier 根据危险标签白名单和告警阈值筛选告警
// 只读，可在并发请求之间共享
type Classifier struct {
	hazards          map[string]struct{}
	threshold        float64
	displayThreshold float64
}

// NewClassifier 创建告警分类器
// 告警阈值必须严格大于展示阈值，保证告警总是展示结果的子集
func NewClassifier(hazardLabels []string, threshold, displayThreshold float64) (*Classifier, error) {
	if threshold <= displayThreshold {
		return nil, fmt.Errorf("告警阈值 %.2f 必须大于展示阈值 %.2f", threshold, displayThreshold)
	}
	if len(hazardLabels) == 0 {
		return nil, fmt.Errorf("危险标签列表不能为空")
	}

	hazards := make(map[string]struct{}, len(hazardLabels))
	for _, l := range hazardLabels {
		hazards[l] = struct{}{}
	}
	return &Classifier{
		hazards:          hazards,
		threshold:        threshold,
		displayThreshold: displayThreshold,
	}, nil
}

// IsHazard 标签是否在白名单中
func (c *Classifier) IsHazard(label string) bool {
	_, ok := c.hazards[label]
	return ok
}

// Classify 从展示结果中挑出告警
func (c *Classifier) Classify(detections []models.Detection) Report {
	report := Report{Alerts: []string{}, Verdict: models.RiskNormal}
	for _, d := range detections {
		if c.IsHazard(d.Label) && d.Probability > c.threshold {
			report.Alerts = append(report.Alerts, d.Label)
		}
	}
	if report.Elevated() {
		report.Verdict = models.RiskElevated
	}
	return report
}
