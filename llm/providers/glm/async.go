package glm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/BaSui01/glmllm/llm"
	"github.com/BaSui01/glmllm/llm/providers"
)

// 异步任务状态
const (
	TaskStatusProcessing = "PROCESSING"
	TaskStatusSuccess    = "SUCCESS"
	TaskStatusFail       = "FAIL"
	TaskStatusFailed     = "FAILED"
)

// AsyncTask 是提交异步任务后的回执
type AsyncTask struct {
	ID         string `json:"id"`
	RequestID  string `json:"request_id,omitempty"`
	Model      string `json:"model"`
	TaskStatus string `json:"task_status"`
}

// AsyncTaskResult 是异步任务查询结果，成功时携带 choices 与 usage
type AsyncTaskResult struct {
	providers.OpenAICompatResponse
	TaskStatus string `json:"task_status"`
	Error      *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Done 表示任务已结束（成功或失败）
func (r *AsyncTaskResult) Done() bool {
	switch r.TaskStatus {
	case TaskStatusSuccess, TaskStatusFail, TaskStatusFailed:
		return true
	}
	return false
}

// SubmitAsync 提交异步补全任务
func (p *GLMProvider) SubmitAsync(ctx context.Context, req *llm.ChatRequest) (*AsyncTask, error) {
	body, err := p.BuildBody(ctx, req, false)
	if err != nil {
		return nil, err
	}

	var task AsyncTask
	if err := p.DoJSON(ctx, http.MethodPost, asyncSubmitPath, body, &task); err != nil {
		return nil, err
	}
	if task.ID == "" {
		return nil, &llm.Error{
			Code: llm.ErrEmptyResponse, Message: "async submit returned no task id",
			HTTPStatus: http.StatusBadGateway, Provider: p.Name(),
		}
	}
	return &task, nil
}

// AsyncResult 查询异步任务结果
func (p *GLMProvider) AsyncResult(ctx context.Context, taskID string) (*AsyncTaskResult, error) {
	if taskID == "" {
		return nil, &llm.Error{
			Code: llm.ErrInvalidRequest, Message: "task id is required",
			HTTPStatus: http.StatusBadRequest, Provider: p.Name(),
		}
	}

	var result AsyncTaskResult
	if err := p.DoJSON(ctx, http.MethodGet, asyncResultPath+url.PathEscape(taskID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ChatResponse 将成功的任务结果转换为 llm.ChatResponse
func (r *AsyncTaskResult) ChatResponse(provider string) *llm.ChatResponse {
	return providers.ToLLMChatResponse(r.OpenAICompatResponse, provider)
}

// failure 返回失败任务对应的错误
func (r *AsyncTaskResult) failure(provider string) *llm.Error {
	msg := fmt.Sprintf("async task %s failed", r.ID)
	if r.Error != nil && r.Error.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, r.Error.Message)
	}
	return &llm.Error{
		Code: llm.ErrUpstreamError, Message: msg,
		HTTPStatus: http.StatusBadGateway, Provider: provider,
	}
}
