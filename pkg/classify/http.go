package classify

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ccp-p/audio-analyzer/pkg/modelserver"
)

// logitsRequest 模型服务 /logits 的请求体
type logitsRequest struct {
	Samples      []float64 `json:"samples"`
	SamplingRate int       `json:"sampling_rate"`
	Device       string    `json:"device"`
}

// logitsResponse 模型服务 /logits 的响应体
type logitsResponse struct {
	Labels []string  `json:"labels"`
	Logits []float64 `json:"logits"`
}

// HTTPLogits 通过模型服务获取原始分数
type HTTPLogits struct {
	client *modelserver.Client
}

// NewHTTPLogits 创建基于 HTTP 的分数来源
func NewHTTPLogits(client *modelserver.Client) *HTTPLogits {
	return &HTTPLogits{client: client}
}

// Logits 实现 LogitsSource 接口
func (h *HTTPLogits) Logits(ctx context.Context, samples []float64, sampleRate int) ([]string, []float64, error) {
	req := logitsRequest{
		Samples:      samples,
		SamplingRate: sampleRate,
		Device:       h.client.Device,
	}
	var resp logitsResponse
	if err := h.client.PostJSON(ctx, "/logits", req, &resp); err != nil {
		return nil, nil, errors.Wrap(err, h.client.Name)
	}
	return resp.Labels, resp.Logits, nil
}
