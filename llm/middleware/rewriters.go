package middleware

import (
	"context"
	"errors"

	llmpkg "github.com/BaSui01/glmllm/llm"
)

// EmptyToolsCleaner 在 Tools 为空时清除 ToolChoice，
// 上游不允许在没有 tools 的情况下设置 tool_choice。
type EmptyToolsCleaner struct{}

// NewEmptyToolsCleaner 创建空工具清理器
func NewEmptyToolsCleaner() *EmptyToolsCleaner {
	return &EmptyToolsCleaner{}
}

func (r *EmptyToolsCleaner) Name() string { return "empty_tools_cleaner" }

func (r *EmptyToolsCleaner) Rewrite(_ context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatRequest, error) {
	if req == nil || len(req.Tools) > 0 || req.ToolChoice == "" {
		return req, nil
	}
	out := clone(req)
	out.ToolChoice = ""
	return out, nil
}

// TemperatureClamp 将 temperature 限制在 [Min, Max] 区间内。
type TemperatureClamp struct {
	Min float32
	Max float32
}

// NewTemperatureClamp 创建温度裁剪器
func NewTemperatureClamp(min, max float32) *TemperatureClamp {
	return &TemperatureClamp{Min: min, Max: max}
}

func (r *TemperatureClamp) Name() string { return "temperature_clamp" }

func (r *TemperatureClamp) Rewrite(_ context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatRequest, error) {
	if req == nil || req.Temperature == nil {
		return req, nil
	}
	t := *req.Temperature
	switch {
	case t < r.Min:
		t = r.Min
	case t > r.Max:
		t = r.Max
	default:
		return req, nil
	}
	out := clone(req)
	out.Temperature = &t
	return out, nil
}

// ErrNoMessages is returned when a request carries no messages.
var ErrNoMessages = errors.New("request has no messages")

// MessagesRequired 拒绝没有任何消息的请求。
type MessagesRequired struct{}

func (r MessagesRequired) Name() string { return "messages_required" }

func (r MessagesRequired) Rewrite(_ context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatRequest, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	return req, nil
}
