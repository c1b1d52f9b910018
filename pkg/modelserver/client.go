package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// Client 远程模型服务的基础客户端
// 模型服务按固定的输入输出约定对外提供推理接口，客户端本身不保存请求相关的状态
type Client struct {
	BaseURL    string
	Name       string
	Device     string // 启动时确定的计算设备，随每次请求发送
	HTTPClient *http.Client
}

// NewClient 创建模型服务客户端
func NewClient(svc models.ModelService, device string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(svc.URL, "/"),
		Name:       svc.Name,
		Device:     device,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Health 检查模型服务是否已加载完成
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return errors.Wrap(err, "创建健康检查请求失败")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "模型服务 %s 不可达", c.Name)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("模型服务 %s 未就绪: %s", c.Name, resp.Status)
	}
	return nil
}

// PostJSON 以 JSON 请求体调用 path，并把响应解码到 out
func (c *Client) PostJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "序列化请求失败")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "创建HTTP请求失败")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// PostFile 以 multipart 表单上传文件，fields 为附加的表单字段
func (c *Client) PostFile(ctx context.Context, path, fileField, filePath string, fields map[string]string, out interface{}) error {
	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := writer.WriteField(k, v); err != nil {
			return errors.Wrap(err, "写入表单字段失败")
		}
	}

	part, err := writer.CreateFormFile(fileField, filepath.Base(filePath))
	if err != nil {
		return errors.Wrap(err, "创建表单文件失败")
	}
	f, err := os.Open(filePath)
	if err != nil {
		return errors.Wrap(err, "打开上传文件失败")
	}
	defer f.Close()
	if _, err = io.Copy(part, f); err != nil {
		return errors.Wrap(err, "写入文件数据失败")
	}
	if err = writer.Close(); err != nil {
		return errors.Wrap(err, "关闭表单写入器失败")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &requestBody)
	if err != nil {
		return errors.Wrap(err, "创建HTTP请求失败")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "请求模型服务 %s 失败", c.Name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("模型服务 %s 返回 %s: %s", c.Name, resp.Status, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "解析模型服务 %s 响应失败", c.Name)
	}
	return nil
}

// String 用于日志输出
func (c *Client) String() string {
	return fmt.Sprintf("%s(%s)", c.Name, c.BaseURL)
}

// WarmUp 在开始服务前确认所有模型服务可用，按 handler 的重试策略重试
// 任一服务最终不可用时返回错误，调用方应当终止进程
func WarmUp(ctx context.Context, handler *utils.ErrorHandler, clients ...*Client) error {
	for _, c := range clients {
		utils.Info("检查模型服务: %s", c)
		err := handler.Retry("warmup_"+c.Name, func() error {
			return c.Health(ctx)
		})
		if err != nil {
			return errors.Wrapf(err, "模型服务 %s 加载失败", c.Name)
		}
		utils.Info("模型服务就绪: %s", c.Name)
	}
	return nil
}
