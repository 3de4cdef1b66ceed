package glm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/glmllm/internal/logging"
	"github.com/BaSui01/glmllm/llm"
	"github.com/BaSui01/glmllm/llm/middleware"
	"github.com/BaSui01/glmllm/llm/providers"
	"github.com/BaSui01/glmllm/llm/tokenizer"
)

// MetricsRecorder 是 LLM 使用的指标接口，internal/metrics.Collector 实现了它
type MetricsRecorder interface {
	middleware.MetricsCollector
	RecordStreamChunk(provider, model string)
	RecordAsyncPoll(provider, model, taskStatus string)
}

// AsyncProvider 是支持异步任务的 Provider
type AsyncProvider interface {
	SubmitAsync(ctx context.Context, req *llm.ChatRequest) (*AsyncTask, error)
	AsyncResult(ctx context.Context, taskID string) (*AsyncTaskResult, error)
}

// Option 配置 LLM
type Option func(*LLM)

// WithEmptyOnError 失败时记录日志并返回空文本与 nil 错误
func WithEmptyOnError() Option {
	return func(l *LLM) { l.emptyOnError = true }
}

// WithMetrics 设置指标收集器
func WithMetrics(m MetricsRecorder) Option {
	return func(l *LLM) { l.metrics = m }
}

// WithTracer 设置 OpenTelemetry tracer
func WithTracer(t trace.Tracer) Option {
	return func(l *LLM) { l.tracer = t }
}

// WithTokenizer 覆盖上下文窗口校验使用的分词器，nil 表示不校验
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(l *LLM) {
		l.tokenizer = t
		l.tokenizerSet = true
	}
}

// WithProvider 替换底层 Provider，实现 AsyncProvider 时同时用于异步补全
func WithProvider(p llm.Provider) Option {
	return func(l *LLM) { l.provider = p }
}

// LLM 把 GLM 聊天接口适配为 llm.CompletionModel：
// 提示词作为单条 user 消息发送，使用固定温度与输出上限。
type LLM struct {
	cfg    providers.GLMConfig
	meta   llm.Metadata
	logger *zap.Logger

	provider     llm.Provider
	metrics      MetricsRecorder
	tracer       trace.Tracer
	tokenizer    tokenizer.Tokenizer
	tokenizerSet bool
	emptyOnError bool

	validator *middleware.ContextWindowValidator
	handler   middleware.Handler
}

// NewLLM 创建 GLM 补全模型
func NewLLM(cfg providers.GLMConfig, logger *zap.Logger, opts ...Option) (*LLM, error) {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NumOutput > cfg.ContextWindow {
		return nil, fmt.Errorf("num_output %d exceeds context_window %d", cfg.NumOutput, cfg.ContextWindow)
	}

	l := &LLM{
		cfg: cfg,
		meta: llm.Metadata{
			ContextWindow: cfg.ContextWindow,
			NumOutput:     cfg.NumOutput,
			ModelName:     cfg.Model,
			IsChatModel:   true,
		},
		logger:       logger.With(zap.String("component", "glm_llm")),
		emptyOnError: cfg.EmptyOnError,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.provider == nil {
		l.provider = NewGLMProvider(cfg, logger)
	}
	if !l.tokenizerSet && cfg.Tokenizer != providers.TokenizerNone {
		tk, err := tokenizer.New(cfg.Tokenizer, cfg.Model)
		if err != nil {
			return nil, err
		}
		l.tokenizer = tk
	}
	l.validator = middleware.NewContextWindowValidator(l.tokenizer, cfg.ContextWindow, l.provider.Name())

	chain := middleware.NewChain(
		middleware.RecoveryMiddleware(func(v any) {
			l.logger.Error("panic in completion", zap.Any("panic", v))
		}),
		middleware.TracingMiddleware(l.tracer, l.provider.Name()),
		middleware.LoggingMiddleware(l.logger),
	)
	if l.metrics != nil {
		chain.Use(middleware.MetricsMiddleware(l.provider.Name(), l.metrics))
	}
	chain.Use(middleware.ValidatorMiddleware(l.validator))
	chain.Use(middleware.TimeoutMiddleware(cfg.Timeout))
	l.handler = chain.Then(l.provider.Completion)

	return l, nil
}

// Metadata 返回构造时确定的模型元数据
func (l *LLM) Metadata() llm.Metadata { return l.meta }

// chatRequest 把提示词原样包装为单条 user 消息
func (l *LLM) chatRequest(prompt string) *llm.ChatRequest {
	temperature := l.cfg.TemperatureValue()
	return &llm.ChatRequest{
		Model:       l.cfg.Model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   l.cfg.NumOutput,
		Temperature: &temperature,
	}
}

// Complete 发起同步补全，返回首个 choice 的文本
func (l *LLM) Complete(ctx context.Context, prompt string) (*llm.CompletionResponse, error) {
	resp, err := l.handler(ctx, l.chatRequest(prompt))
	if err != nil {
		return l.fail("complete", prompt, err)
	}
	text, err := llm.FirstText(resp, l.provider.Name())
	if err != nil {
		return l.fail("complete", prompt, err)
	}
	return &llm.CompletionResponse{Text: text, Raw: resp}, nil
}

// StreamComplete 发起流式补全。
// 打开流之前的错误直接返回；流中途的错误作为最后一个带 Err 的增量发送。
func (l *LLM) StreamComplete(ctx context.Context, prompt string) (<-chan llm.CompletionDelta, error) {
	req := l.chatRequest(prompt)
	name := l.provider.Name()
	start := time.Now()

	var span trace.Span
	if l.tracer != nil {
		ctx, span = l.tracer.Start(ctx, "llm.stream",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attribute.String("llm.provider", name), attribute.String("llm.model", req.Model)))
	}

	if err := l.validator.Validate(req); err != nil {
		l.endStream(span, req.Model, start, err, nil)
		return nil, l.logFailure("stream", prompt, err)
	}

	chunks, err := l.provider.Stream(ctx, req)
	if err != nil {
		l.endStream(span, req.Model, start, err, nil)
		return nil, l.logFailure("stream", prompt, err)
	}

	out := make(chan llm.CompletionDelta)
	go func() {
		defer close(out)

		var (
			text   strings.Builder
			usage  *llm.ChatUsage
			result error
		)
		defer func() { l.endStream(span, req.Model, start, result, usage) }()

		send := func(d llm.CompletionDelta) bool {
			select {
			case <-ctx.Done():
				return false
			case out <- d:
				return true
			}
		}

		for chunk := range chunks {
			if chunk.Err != nil {
				result = chunk.Err
				_ = l.logFailure("stream", prompt, chunk.Err)
				send(llm.CompletionDelta{Text: text.String(), Err: chunk.Err})
				return
			}
			if chunk.Usage != nil {
				usage = chunk.Usage
			}
			if chunk.Delta.Content == "" && chunk.FinishReason == "" && chunk.Usage == nil {
				continue
			}
			text.WriteString(chunk.Delta.Content)
			if l.metrics != nil && chunk.Delta.Content != "" {
				l.metrics.RecordStreamChunk(name, req.Model)
			}
			if !send(llm.CompletionDelta{
				Text:         text.String(),
				Delta:        chunk.Delta.Content,
				FinishReason: chunk.FinishReason,
				Usage:        chunk.Usage,
			}) {
				result = ctx.Err()
				return
			}
		}
		if err := ctx.Err(); err != nil {
			result = err
		}
	}()
	return out, nil
}

// endStream 记录流式请求的指标并结束 span
func (l *LLM) endStream(span trace.Span, model string, start time.Time, err error, usage *llm.ChatUsage) {
	name := l.provider.Name()
	if l.metrics != nil {
		l.metrics.RecordLLMRequest(name, model, middleware.StatusOf(err), time.Since(start))
		if usage != nil {
			l.metrics.RecordLLMTokens(name, model, usage.PromptTokens, usage.CompletionTokens)
		}
	}
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, middleware.StatusOf(err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AsyncComplete 提交异步任务并轮询结果，最多 MaxPolls 次，每次间隔 PollInterval
func (l *LLM) AsyncComplete(ctx context.Context, prompt string) (*llm.CompletionResponse, error) {
	ap, ok := l.provider.(AsyncProvider)
	if !ok {
		return l.fail("async", prompt, &llm.Error{
			Code: llm.ErrProviderUnavailable, Message: "provider does not support async tasks",
			HTTPStatus: http.StatusNotImplemented, Provider: l.provider.Name(),
		})
	}

	req := l.chatRequest(prompt)
	if err := l.validator.Validate(req); err != nil {
		return l.fail("async", prompt, err)
	}

	task, err := ap.SubmitAsync(ctx, req)
	if err != nil {
		return l.fail("async", prompt, err)
	}
	l.logger.Debug("async task submitted", zap.String("task_id", task.ID), zap.String("request_id", task.RequestID))

	name := l.provider.Name()
	timer := time.NewTimer(l.cfg.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= l.cfg.MaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return l.fail("async", prompt, providers.TransportError(ctx.Err(), name))
		case <-timer.C:
		}

		result, err := ap.AsyncResult(ctx, task.ID)
		if err != nil {
			return l.fail("async", prompt, err)
		}
		if l.metrics != nil {
			l.metrics.RecordAsyncPoll(name, req.Model, result.TaskStatus)
		}
		l.logger.Debug("async task polled",
			zap.String("task_id", task.ID),
			zap.Int("attempt", attempt),
			zap.String("task_status", result.TaskStatus))

		switch result.TaskStatus {
		case TaskStatusSuccess:
			resp := result.ChatResponse(name)
			text, err := llm.FirstText(resp, name)
			if err != nil {
				return l.fail("async", prompt, err)
			}
			return &llm.CompletionResponse{Text: text, Raw: resp}, nil
		case TaskStatusFail, TaskStatusFailed:
			return l.fail("async", prompt, result.failure(name))
		}
		timer.Reset(l.cfg.PollInterval)
	}

	return l.fail("async", prompt, &llm.Error{
		Code:       llm.ErrUpstreamTimeout,
		Message:    fmt.Sprintf("async task %s not finished after %d polls", task.ID, l.cfg.MaxPolls),
		HTTPStatus: http.StatusGatewayTimeout,
		Retryable:  true,
		Provider:   name,
	})
}

// fail 记录失败并按配置返回错误或空结果
func (l *LLM) fail(op, prompt string, err error) (*llm.CompletionResponse, error) {
	llmErr := l.logFailure(op, prompt, err)
	if l.emptyOnError {
		return &llm.CompletionResponse{}, nil
	}
	return nil, llmErr
}

// logFailure 以 error 级别记录失败，返回规范化后的 *llm.Error
func (l *LLM) logFailure(op, prompt string, err error) *llm.Error {
	llmErr := l.normalize(err)
	l.logger.Error("glm "+op+" failed",
		zap.String("model", l.cfg.Model),
		zap.String("prompt", logging.TruncatePrompt(prompt)),
		zap.String("code", string(llmErr.Code)),
		zap.Int("http_status", llmErr.HTTPStatus),
		zap.String("error", logging.RedactError(llmErr)))
	return llmErr
}

func (l *LLM) normalize(err error) *llm.Error {
	if llmErr, ok := llm.AsError(err); ok {
		return llmErr
	}
	return &llm.Error{
		Code:       llm.ErrUpstreamError,
		Message:    err.Error(),
		HTTPStatus: http.StatusBadGateway,
		Provider:   l.provider.Name(),
		Cause:      err,
	}
}

var _ llm.CompletionModel = (*LLM)(nil)
