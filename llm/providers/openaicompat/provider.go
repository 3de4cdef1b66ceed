// =============================================================================
// GLM OpenAI-Compatible Transport
// =============================================================================
// Shared HTTP transport for OpenAI-compatible chat APIs. The GLM provider
// embeds this and only overrides what differs (paths, auth token, error codes,
// extra body fields).
// =============================================================================

package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/glmllm/internal/tlsutil"
	"github.com/BaSui01/glmllm/llm"
	"github.com/BaSui01/glmllm/llm/middleware"
	"github.com/BaSui01/glmllm/llm/providers"
)

// Config holds the configuration for an OpenAI-compatible provider.
type Config struct {
	// ProviderName is the unique identifier for this provider (e.g., "glm").
	ProviderName string

	// APIKey is the authentication key for the provider's API.
	APIKey string

	// BaseURL is the base URL for the provider's API (e.g., "https://open.bigmodel.cn").
	BaseURL string

	// DefaultModel is the model to use when none is specified in the request.
	DefaultModel string

	// FallbackModel is used when both request and DefaultModel are empty.
	FallbackModel string

	// Timeout bounds non-streaming calls (DoJSON, HealthCheck, ListModels)
	// through a ctx deadline. Streams are bounded only by the caller's ctx.
	// Defaults to 30s if zero.
	Timeout time.Duration

	// EndpointPath is the chat completions endpoint path. Defaults to "/v1/chat/completions".
	EndpointPath string

	// ModelsEndpoint is the models list endpoint path. Defaults to "/v1/models".
	ModelsEndpoint string

	// BuildHeaders is an optional function to set custom headers on each request.
	// If nil, the default "Authorization: Bearer <token>" header is used.
	BuildHeaders func(req *http.Request, token string)

	// TokenSource turns the API key into the bearer token sent upstream.
	// If nil, the key itself is sent.
	TokenSource func(apiKey string) (string, error)

	// RequestHook is an optional function to modify the request body before sending.
	RequestHook func(req *llm.ChatRequest, body *providers.OpenAICompatRequest)

	// ErrorMapper maps an error response body to an *llm.Error.
	// If nil, providers.MapHTTPError is used with the parsed message.
	ErrorMapper func(status int, body []byte, provider string) *llm.Error

	// SupportsTools indicates whether this provider supports native function calling.
	// Defaults to true if not set.
	SupportsTools *bool
}

// Provider is the base implementation for OpenAI-compatible LLM providers.
type Provider struct {
	Cfg           Config
	Client        *http.Client
	Logger        *zap.Logger
	RewriterChain *middleware.RewriterChain
}

// New creates a new OpenAI-compatible provider with the given config.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = "/v1/models"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		Cfg:    cfg,
		// Client.Timeout 会截断 SSE body 的读取，超时改由 ctx 控制
		Client: tlsutil.SecureHTTPClient(0),
		Logger: logger.With(zap.String("component", "openaicompat"), zap.String("provider", cfg.ProviderName)),
		RewriterChain: middleware.NewRewriterChain(
			middleware.MessagesRequired{},
			middleware.NewEmptyToolsCleaner(),
		),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.Cfg.ProviderName }

// SupportsNativeFunctionCalling returns whether this provider supports tool calling.
func (p *Provider) SupportsNativeFunctionCalling() bool {
	if p.Cfg.SupportsTools != nil {
		return *p.Cfg.SupportsTools
	}
	return true
}

// SetBuildHeaders sets custom header builder for the provider.
func (p *Provider) SetBuildHeaders(fn func(req *http.Request, token string)) {
	p.Cfg.BuildHeaders = fn
}

// buildHeaders applies headers to the HTTP request.
func (p *Provider) buildHeaders(req *http.Request, token string) {
	if p.Cfg.BuildHeaders != nil {
		p.Cfg.BuildHeaders(req, token)
		return
	}
	providers.BearerTokenHeaders(req, token)
}

// resolveAPIKey returns the API key, checking for context override first.
func (p *Provider) resolveAPIKey(ctx context.Context) string {
	if c, ok := llm.CredentialOverrideFromContext(ctx); ok {
		if strings.TrimSpace(c.APIKey) != "" {
			return strings.TrimSpace(c.APIKey)
		}
	}
	return p.Cfg.APIKey
}

// authToken resolves the key for ctx and converts it through TokenSource.
func (p *Provider) authToken(ctx context.Context) (string, error) {
	key := p.resolveAPIKey(ctx)
	if p.Cfg.TokenSource == nil {
		return key, nil
	}
	token, err := p.Cfg.TokenSource(key)
	if err != nil {
		return "", &llm.Error{
			Code:       llm.ErrUnauthorized,
			Message:    fmt.Sprintf("failed to build auth token: %v", err),
			HTTPStatus: http.StatusUnauthorized,
			Provider:   p.Name(),
			Cause:      err,
		}
	}
	return token, nil
}

// withTimeout bounds a non-streaming call by Cfg.Timeout.
func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.Cfg.Timeout)
}

// endpoint builds the full URL for a given path.
func (p *Provider) endpoint(path string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(p.Cfg.BaseURL, "/"), path)
}

// mapError reads the error body of resp and maps it.
func (p *Provider) mapError(resp *http.Response) *llm.Error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.MapHTTPError(resp.StatusCode, "failed to read error response", p.Name())
	}
	return p.mapErrorBody(resp.StatusCode, data)
}

func (p *Provider) mapErrorBody(status int, data []byte) *llm.Error {
	if p.Cfg.ErrorMapper != nil {
		return p.Cfg.ErrorMapper(status, data, p.Name())
	}
	return providers.MapHTTPError(status, providers.ParseErrorBody(data).Text(), p.Name())
}

// NewRequest builds an authenticated request against path. body may be nil.
func (p *Provider) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	token, err := p.authToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, p.endpoint(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, token)
	return httpReq, nil
}

// DoJSON sends a JSON request and decodes a JSON response into out.
// Non-2xx responses are mapped through the configured ErrorMapper.
func (p *Provider) DoJSON(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	httpReq, err := p.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return providers.TransportError(err, p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return p.mapError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.DecodeError(err, p.Name())
	}
	return nil
}

// HealthCheck verifies the provider is reachable.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	httpReq, err := p.NewRequest(ctx, http.MethodGet, p.Cfg.ModelsEndpoint, nil)
	if err != nil {
		return &llm.HealthStatus{Healthy: false}, err
	}

	resp, err := p.Client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, providers.TransportError(err, p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, p.mapError(resp)
	}

	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// ListModels returns the list of available models.
func (p *Provider) ListModels(ctx context.Context) ([]llm.Model, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	token, err := p.authToken(ctx)
	if err != nil {
		return nil, err
	}
	return providers.ListModelsOpenAICompat(
		ctx, p.Client, p.Cfg.BaseURL, token, p.Cfg.ProviderName,
		p.Cfg.ModelsEndpoint, p.buildHeaders,
	)
}

// BuildBody runs the rewriter chain and converts req into the wire body.
func (p *Provider) BuildBody(ctx context.Context, req *llm.ChatRequest, stream bool) (*providers.OpenAICompatRequest, error) {
	rewrittenReq, err := p.RewriterChain.Execute(ctx, req)
	if err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    fmt.Sprintf("request rewrite failed: %v", err),
			HTTPStatus: http.StatusBadRequest,
			Provider:   p.Name(),
			Cause:      err,
		}
	}
	req = rewrittenReq

	body := &providers.OpenAICompatRequest{
		Model:       providers.ChooseModel(req, p.Cfg.DefaultModel, p.Cfg.FallbackModel),
		Messages:    providers.ConvertMessagesToOpenAI(req.Messages),
		Tools:       providers.ConvertToolsToOpenAI(req.Tools),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      stream,
	}
	if req.ToolChoice != "" {
		body.ToolChoice = req.ToolChoice
	}

	// Apply provider-specific request hook
	if p.Cfg.RequestHook != nil {
		p.Cfg.RequestHook(req, body)
	}
	return body, nil
}

// Completion performs a non-streaming chat completion.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body, err := p.BuildBody(ctx, req, false)
	if err != nil {
		return nil, err
	}

	var oaResp providers.OpenAICompatResponse
	if err := p.DoJSON(ctx, http.MethodPost, p.Cfg.EndpointPath, body, &oaResp); err != nil {
		return nil, err
	}

	result := providers.ToLLMChatResponse(oaResp, p.Name())
	if result.Model == "" {
		result.Model = body.Model
	}
	p.Logger.Debug("completion finished",
		zap.String("model", result.Model),
		zap.String("request_id", result.RequestID),
		zap.Int("total_tokens", result.Usage.TotalTokens))
	return result, nil
}

// Stream performs a streaming chat completion via SSE.
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	body, err := p.BuildBody(ctx, req, true)
	if err != nil {
		return nil, err
	}

	httpReq, err := p.NewRequest(ctx, http.MethodPost, p.Cfg.EndpointPath, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, providers.TransportError(err, p.Name())
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, p.mapError(resp)
	}

	return streamSSE(ctx, resp.Body, p.Name(), func(status int, data []byte, _ string) *llm.Error {
		return p.mapErrorBody(status, data)
	}), nil
}

// StreamSSE parses an SSE stream from an OpenAI-compatible API and returns a channel of StreamChunks.
// The caller is responsible for ensuring the response status is OK before calling this.
func StreamSSE(ctx context.Context, body io.ReadCloser, providerName string) <-chan llm.StreamChunk {
	return streamSSE(ctx, body, providerName, func(status int, data []byte, provider string) *llm.Error {
		return providers.MapHTTPError(status, providers.ParseErrorBody(data).Text(), provider)
	})
}

func streamSSE(ctx context.Context, body io.ReadCloser, providerName string, mapErr func(int, []byte, string) *llm.Error) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk)
	go func() {
		defer body.Close()
		defer close(ch)

		send := func(chunk llm.StreamChunk) bool {
			select {
			case <-ctx.Done():
				return false
			case ch <- chunk:
				return true
			}
		}

		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
				if err != io.EOF && ctx.Err() == nil {
					send(llm.StreamChunk{Provider: providerName, Err: providers.TransportError(err, providerName)})
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var oaResp providers.OpenAICompatResponse
			if err := json.Unmarshal([]byte(data), &oaResp); err != nil {
				send(llm.StreamChunk{Provider: providerName, Err: providers.DecodeError(err, providerName)})
				return
			}

			// 流中途的错误事件: data: {"error":{...}}
			if len(oaResp.Choices) == 0 && oaResp.Usage == nil {
				if eb := providers.ParseErrorBody([]byte(data)); eb.Message != "" || eb.Code != "" {
					send(llm.StreamChunk{Provider: providerName, Err: mapErr(http.StatusBadGateway, []byte(data), providerName)})
					return
				}
				continue
			}

			var usage *llm.ChatUsage
			if oaResp.Usage != nil {
				u := providers.ToLLMUsage(*oaResp.Usage)
				usage = &u
			}

			// 仅带 usage 的最终 chunk
			if len(oaResp.Choices) == 0 {
				if !send(llm.StreamChunk{ID: oaResp.ID, Provider: providerName, Model: oaResp.Model, Usage: usage}) {
					return
				}
				continue
			}

			for i, choice := range oaResp.Choices {
				chunk := llm.StreamChunk{
					ID:           oaResp.ID,
					Provider:     providerName,
					Model:        oaResp.Model,
					Index:        choice.Index,
					FinishReason: choice.FinishReason,
					Delta: llm.Message{
						Role: llm.RoleAssistant,
					},
				}
				if choice.Delta != nil {
					chunk.Delta.Content = choice.Delta.Content
					chunk.Delta.ToolCalls = providers.ConvertToolCallsFromOpenAI(choice.Delta.ToolCalls)
				}
				if i == len(oaResp.Choices)-1 {
					chunk.Usage = usage
				}
				if !send(chunk) {
					return
				}
			}
		}
	}()
	return ch
}
