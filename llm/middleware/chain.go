package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/glmllm/internal/logging"
	llmpkg "github.com/BaSui01/glmllm/llm"
	"github.com/BaSui01/glmllm/llm/tokenizer"
)

// Handler 处理一个请求并返回一个响应.
type Handler func(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatResponse, error)

// Middleware 将处理器包裹并添加额外功能.
type Middleware func(next Handler) Handler

// Chain 表示中间件链.
type Chain struct {
	middlewares []Middleware
	mu          sync.RWMutex
}

// NewChain 创建新的中间件链.
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{
		middlewares: middlewares,
	}
}

// Use 将中间件添加到链尾.
func (c *Chain) Use(m Middleware) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = append(c.middlewares, m)
	return c
}

// Then 用链中的所有中间件包裹一个处理器，第一个中间件位于最外层.
func (c *Chain) Then(h Handler) Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}

// Len 返回链中的中间件数量.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.middlewares)
}

// 内置中间件

// LoggingMiddleware 记录请求/响应摘要，错误信息中的密钥会被脱敏.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatResponse, error) {
			start := time.Now()
			logger.Debug("llm request",
				zap.String("model", req.Model),
				zap.Int("messages", len(req.Messages)),
				zap.String("trace_id", req.TraceID))

			resp, err := next(ctx, req)

			duration := time.Since(start)
			if err != nil {
				logger.Error("llm request failed",
					zap.String("model", req.Model),
					zap.String("error", logging.RedactError(err)),
					zap.Duration("duration", duration))
				return resp, err
			}
			logger.Debug("llm response",
				zap.String("model", resp.Model),
				zap.Int("total_tokens", resp.Usage.TotalTokens),
				zap.Duration("duration", duration))
			return resp, nil
		}
	}
}

// TimeoutMiddleware 对请求添加超时，timeout <= 0 时不做处理.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Handler) Handler {
		if timeout <= 0 {
			return next
		}
		return func(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// MetricsCollector 定义指标收集接口，internal/metrics.Collector 实现了它.
type MetricsCollector interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration)
	RecordLLMTokens(provider, model string, promptTokens, completionTokens int)
}

// MetricsMiddleware 收集请求的指标，失败请求的 status 为错误码.
func MetricsMiddleware(provider string, collector MetricsCollector) Middleware {
	return func(next Handler) Handler {
		if collector == nil {
			return next
		}
		return func(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			collector.RecordLLMRequest(provider, req.Model, StatusOf(err), duration)
			if err == nil && resp != nil {
				collector.RecordLLMTokens(provider, req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			}
			return resp, err
		}
	}
}

// StatusOf 返回指标使用的状态标签.
func StatusOf(err error) string {
	if err == nil {
		return "success"
	}
	if llmErr, ok := llmpkg.AsError(err); ok {
		return string(llmErr.Code)
	}
	return "error"
}

// TracingMiddleware 为每次请求创建 span.
func TracingMiddleware(tracer trace.Tracer, provider string) Middleware {
	return func(next Handler) Handler {
		if tracer == nil {
			return next
		}
		return func(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatResponse, error) {
			ctx, span := tracer.Start(ctx, "llm.completion",
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("llm.provider", provider),
					attribute.String("llm.model", req.Model),
					attribute.Int("llm.messages", len(req.Messages)),
				))
			defer span.End()

			resp, err := next(ctx, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, StatusOf(err))
				return resp, err
			}
			if resp != nil {
				span.SetAttributes(
					attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
					attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
				)
			}
			span.SetStatus(codes.Ok, "")
			return resp, nil
		}
	}
}

// Validator 定义请求验证接口.
type Validator interface {
	Validate(req *llmpkg.ChatRequest) error
}

// ValidatorFunc 将函数适配为 Validator.
type ValidatorFunc func(req *llmpkg.ChatRequest) error

func (f ValidatorFunc) Validate(req *llmpkg.ChatRequest) error { return f(req) }

// ValidatorMiddleware 在处理前对请求进行验证.
func ValidatorMiddleware(validators ...Validator) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatResponse, error) {
			for _, v := range validators {
				if err := v.Validate(req); err != nil {
					return nil, err
				}
			}
			return next(ctx, req)
		}
	}
}

// ContextWindowValidator 校验提示词加输出上限不超过上下文窗口.
type ContextWindowValidator struct {
	Tokenizer     tokenizer.Tokenizer
	ContextWindow int
	Provider      string
}

// NewContextWindowValidator 创建上下文窗口校验器.
func NewContextWindowValidator(tk tokenizer.Tokenizer, contextWindow int, provider string) *ContextWindowValidator {
	return &ContextWindowValidator{Tokenizer: tk, ContextWindow: contextWindow, Provider: provider}
}

func (v *ContextWindowValidator) Validate(req *llmpkg.ChatRequest) error {
	if v.Tokenizer == nil || v.ContextWindow <= 0 {
		return nil
	}
	msgs := make([]tokenizer.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, tokenizer.Message{Role: string(m.Role), Content: m.Content})
	}
	prompt, err := v.Tokenizer.CountMessages(msgs)
	if err != nil {
		// 计数失败不阻断请求，交给上游判定
		return nil
	}
	if prompt+req.MaxTokens > v.ContextWindow {
		return &llmpkg.Error{
			Code: llmpkg.ErrContextOverflow,
			Message: fmt.Sprintf("prompt uses %d tokens, with max_tokens %d exceeds context window %d",
				prompt, req.MaxTokens, v.ContextWindow),
			HTTPStatus: 400,
			Provider:   v.Provider,
		}
	}
	return nil
}

// RecoveryMiddleware 从 panic 中恢复并转为 *PanicError.
func RecoveryMiddleware(onPanic func(any)) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *llmpkg.ChatRequest) (resp *llmpkg.ChatResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					if onPanic != nil {
						onPanic(r)
					}
					resp = nil
					err = &PanicError{Value: r}
				}
			}()
			return next(ctx, req)
		}
	}
}

// PanicError 表示已恢复的 panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.Value)
}
