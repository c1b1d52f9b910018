package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/ccp-p/audio-analyzer/pkg/models"
	"github.com/ccp-p/audio-analyzer/pkg/pipeline"
	"github.com/ccp-p/audio-analyzer/pkg/utils"
)

// 上传表单的文件字段
const uploadField = "file"

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status     string                    `json:"status"`
	Device     string                    `json:"device"`
	Models     map[string]string         `json:"models"`
	ErrorStats map[string]map[string]int `json:"error_stats,omitempty"`
}

// --- Helper Functions ---

// respondWithError 发送错误 JSON 响应
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, &models.ErrorResult{Error: message})
}

// respondWithJSON 发送 JSON 响应
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		utils.Error("JSON 序列化错误: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "内部服务器错误：无法序列化响应"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// --- API Handlers ---

// handleAnalyze 接收上传的音频并执行 task
// 上传本身不合法时返回 400；分析失败返回 200 和只含 error 的结果
func (s *Server) handleAnalyze(task pipeline.Task) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		maxBytes := int64(s.config.MaxUploadMB) << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, uploadErrorMessage(err))
			return
		}
		defer file.Close()

		path, err := s.saveUpload(file, header)
		if err != nil {
			utils.Error("保存上传文件失败: %v", err)
			respondWithError(w, http.StatusInternalServerError, "无法保存上传文件")
			return
		}

		req := pipeline.Request{
			Task:     task,
			Path:     path,
			Filename: filepath.Base(header.Filename),
			Owned:    true, // 上传文件由流水线负责删除
		}
		if task == pipeline.TaskTranscribe {
			req.Language = r.URL.Query().Get("language")
			req.Prompt = r.FormValue("prompt")
		}

		res := s.analyzer.Handle(r.Context(), req)
		if msg := res.Err(); msg != "" {
			respondWithJSON(w, http.StatusOK, &models.ErrorResult{Error: msg})
			return
		}
		respondWithJSON(w, http.StatusOK, res)
	}
}

// handleHealth 返回设备、模型和预热错误统计
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := HealthResponse{
		Status: "ok",
		Device: s.opts.Device,
		Models: map[string]string{
			pipeline.TaskTranscribe.String():  s.config.Whisper.Name,
			pipeline.TaskEmotion.String():     s.config.Emotion.Name,
			pipeline.TaskEnvironment.String(): s.config.Environment.Name,
		},
	}
	if s.opts.ErrorHandler != nil {
		if stats := s.opts.ErrorHandler.GetErrorStats(); len(stats) > 0 {
			resp.ErrorStats = stats
		}
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// saveUpload 把上传内容写到临时目录中唯一命名的文件，保留原扩展名便于 ffmpeg 识别格式
func (s *Server) saveUpload(src multipart.File, header *multipart.FileHeader) (string, error) {
	dir := s.config.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	path := filepath.Join(dir, fmt.Sprintf("upload_%s%s", uuid.New().String(), ext))

	dst, err := os.Create(path)
	if err != nil {
		return "", utils.IOError("创建上传文件失败", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", utils.IOError("写入上传文件失败", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", utils.IOError("关闭上传文件失败", err)
	}
	return path, nil
}

func uploadErrorMessage(err error) string {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return fmt.Sprintf("上传文件超过大小限制 (%s)", utils.FormatFileSize(tooLarge.Limit))
	case errors.Is(err, http.ErrMissingFile):
		return fmt.Sprintf("缺少上传文件字段 '%s'", uploadField)
	default:
		return "无效的上传请求: " + err.Error()
	}
}
