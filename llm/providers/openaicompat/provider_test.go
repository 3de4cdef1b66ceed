package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/glmllm/llm"
	"github.com/BaSui01/glmllm/llm/providers"
)

func userRequest(content string) *llm.ChatRequest {
	return &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: content}}}
}

func textResponse(content string) providers.OpenAICompatResponse {
	return providers.OpenAICompatResponse{
		ID:    "chatcmpl-1",
		Model: "glm-4-flash",
		Choices: []providers.OpenAICompatChoice{{
			Index: 0, FinishReason: "stop",
			Message: providers.OpenAICompatMessage{Role: "assistant", Content: content},
		}},
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc, mutate func(*Config)) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := Config{
		ProviderName:  "glm",
		APIKey:        "test-key",
		BaseURL:       server.URL,
		FallbackModel: "glm-4-flash",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, zap.NewNop())
}

func writeSSE(w http.ResponseWriter, events ...any) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, e := range events {
		if s, ok := e.(string); ok {
			fmt.Fprintf(w, "data: %s\n\n", s)
			continue
		}
		data, _ := json.Marshal(e)
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
}

// ---------------------------------------------------------------------------
// New() constructor
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	tests := []struct {
		name             string
		cfg              Config
		wantEndpoint     string
		wantModels       string
		wantToolsSupport bool
		wantTimeout      time.Duration
	}{
		{
			name:             "all defaults applied",
			cfg:              Config{ProviderName: "glm"},
			wantEndpoint:     "/v1/chat/completions",
			wantModels:       "/v1/models",
			wantToolsSupport: true,
			wantTimeout:      30 * time.Second,
		},
		{
			name: "zhipu paths preserved",
			cfg: Config{
				ProviderName:   "glm",
				EndpointPath:   "/api/paas/v4/chat/completions",
				ModelsEndpoint: "/api/paas/v4/models",
				Timeout:        10 * time.Second,
			},
			wantEndpoint:     "/api/paas/v4/chat/completions",
			wantModels:       "/api/paas/v4/models",
			wantToolsSupport: true,
			wantTimeout:      10 * time.Second,
		},
		{
			name:             "supports tools false",
			cfg:              Config{ProviderName: "glm", SupportsTools: boolPtr(false)},
			wantEndpoint:     "/v1/chat/completions",
			wantModels:       "/v1/models",
			wantToolsSupport: false,
			wantTimeout:      30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg, nil)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantEndpoint, p.Cfg.EndpointPath)
			assert.Equal(t, tt.wantModels, p.Cfg.ModelsEndpoint)
			assert.Equal(t, "glm", p.Name())
			assert.Equal(t, tt.wantToolsSupport, p.SupportsNativeFunctionCalling())
			assert.Equal(t, tt.wantTimeout, p.Cfg.Timeout)
			assert.Zero(t, p.Client.Timeout, "streams must not be cut by Client.Timeout")
			assert.NotNil(t, p.Logger)
			assert.Equal(t, 2, p.RewriterChain.Len())
		})
	}
}

func TestSetBuildHeaders(t *testing.T) {
	p := New(Config{ProviderName: "glm", APIKey: "key"}, nil)

	p.SetBuildHeaders(func(r *http.Request, token string) {
		r.Header.Set("X-Token", token)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	p.buildHeaders(req, "tok")
	assert.Equal(t, "tok", req.Header.Get("X-Token"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func TestProvider_Completion_Success(t *testing.T) {
	var body providers.OpenAICompatRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		resp := textResponse("你好！")
		resp.RequestID = "req-42"
		resp.Usage = &providers.OpenAICompatUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}
		resp.Created = 1700000000
		_ = json.NewEncoder(w).Encode(resp)
	}, nil)

	temp := float32(0.7)
	req := userRequest("你好")
	req.Temperature = &temp
	req.MaxTokens = 4096

	resp, err := p.Completion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "glm", resp.Provider)
	assert.Equal(t, "req-42", resp.RequestID)
	assert.Equal(t, "你好！", resp.Choices[0].Message.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.False(t, resp.CreatedAt.IsZero())

	assert.Equal(t, "glm-4-flash", body.Model)
	require.NotNil(t, body.Temperature)
	assert.InDelta(t, 0.7, *body.Temperature, 1e-6)
	assert.Equal(t, 4096, body.MaxTokens)
	assert.False(t, body.Stream)
}

func TestProvider_Completion_ZeroTemperatureIsSent(t *testing.T) {
	var raw map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_ = json.NewEncoder(w).Encode(textResponse("ok"))
	}, nil)

	zero := float32(0)
	req := userRequest("hi")
	req.Temperature = &zero
	_, err := p.Completion(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, raw, "temperature")
}

func TestProvider_Completion_EmptyMessagesRejected(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called")
	}, nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	llmErr, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrInvalidRequest, llmErr.Code)
}

func TestProvider_Completion_HTTPError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantCode   llm.ErrorCode
	}{
		{"401 unauthorized", http.StatusUnauthorized, `{"error":{"code":"1000","message":"invalid key"}}`, llm.ErrUnauthorized},
		{"429 rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, llm.ErrRateLimited},
		{"500 server error", http.StatusInternalServerError, `{"error":{"message":"oops"}}`, llm.ErrUpstreamError},
		{"plain text body", http.StatusBadGateway, "bad gateway", llm.ErrUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.body)
			}, nil)

			_, err := p.Completion(context.Background(), userRequest("hi"))
			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.wantCode, llmErr.Code)
			assert.Equal(t, tt.statusCode, llmErr.HTTPStatus)
		})
	}
}

func TestProvider_Completion_ErrorMapper(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":"1301","message":"unsafe"}}`)
	}, func(c *Config) {
		c.ErrorMapper = func(status int, body []byte, provider string) *llm.Error {
			assert.Contains(t, string(body), "1301")
			return &llm.Error{Code: llm.ErrContentFiltered, HTTPStatus: status, Provider: provider}
		}
	})

	_, err := p.Completion(context.Background(), userRequest("hi"))
	llmErr, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrContentFiltered, llmErr.Code)
}

func TestProvider_Completion_InvalidJSON(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}, nil)

	_, err := p.Completion(context.Background(), userRequest("hi"))
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
	assert.Contains(t, llmErr.Message, "malformed response")
}

func TestProvider_Completion_NetworkError(t *testing.T) {
	p := New(Config{ProviderName: "glm", APIKey: "key", BaseURL: "http://127.0.0.1:1"}, nil)

	_, err := p.Completion(context.Background(), userRequest("hi"))
	llmErr, ok := llm.AsError(err)
	require.True(t, ok)
	assert.True(t, llmErr.Retryable)
	assert.NotNil(t, llmErr.Cause)
}

func TestProvider_Completion_CredentialOverride(t *testing.T) {
	var auth string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(textResponse("ok"))
	}, nil)

	ctx := llm.WithCredentialOverride(context.Background(), llm.CredentialOverride{APIKey: "override-key"})
	_, err := p.Completion(ctx, userRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer override-key", auth)
}

func TestProvider_Completion_TokenSource(t *testing.T) {
	var auth string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(textResponse("ok"))
	}, func(c *Config) {
		c.TokenSource = func(apiKey string) (string, error) { return "signed-" + apiKey, nil }
	})

	_, err := p.Completion(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer signed-test-key", auth)
}

func TestProvider_Completion_TokenSourceError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called")
	}, func(c *Config) {
		c.TokenSource = func(string) (string, error) { return "", errors.New("malformed key") }
	})

	_, err := p.Completion(context.Background(), userRequest("hi"))
	llmErr, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrUnauthorized, llmErr.Code)
}

func TestProvider_Completion_RequestHook(t *testing.T) {
	var body providers.OpenAICompatRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(textResponse("ok"))
	}, func(c *Config) {
		c.DefaultModel = "glm-4-air"
		c.RequestHook = func(req *llm.ChatRequest, b *providers.OpenAICompatRequest) {
			b.RequestID = "fixed-id"
		}
	})

	_, err := p.Completion(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "glm-4-air", body.Model)
	assert.Equal(t, "fixed-id", body.RequestID)
}

// ---------------------------------------------------------------------------
// Stream
// ---------------------------------------------------------------------------

func TestProvider_Stream_Success(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var body providers.OpenAICompatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.True(t, body.Stream)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		writeSSE(w,
			providers.OpenAICompatResponse{ID: "s1", Model: "glm-4-flash", Choices: []providers.OpenAICompatChoice{
				{Index: 0, Delta: &providers.OpenAICompatMessage{Role: "assistant", Content: "你"}},
			}},
			providers.OpenAICompatResponse{ID: "s1", Model: "glm-4-flash", Choices: []providers.OpenAICompatChoice{
				{Index: 0, Delta: &providers.OpenAICompatMessage{Content: "好"}},
			}},
			providers.OpenAICompatResponse{ID: "s1", Model: "glm-4-flash",
				Choices: []providers.OpenAICompatChoice{{Index: 0, FinishReason: "stop", Delta: &providers.OpenAICompatMessage{}}},
				Usage:   &providers.OpenAICompatUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
			},
			"[DONE]",
		)
	}, nil)

	ch, err := p.Stream(context.Background(), userRequest("hi"))
	require.NoError(t, err)

	var content strings.Builder
	var last llm.StreamChunk
	for chunk := range ch {
		require.Nil(t, chunk.Err)
		content.WriteString(chunk.Delta.Content)
		last = chunk
	}
	assert.Equal(t, "你好", content.String())
	assert.Equal(t, "stop", last.FinishReason)
	require.NotNil(t, last.Usage)
	assert.Equal(t, 5, last.Usage.TotalTokens)
}

func TestProvider_Stream_OutlivesTimeout(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 6; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"c%d\"}}]}\n\n", i)
			flusher.Flush()
			time.Sleep(100 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}, func(c *Config) { c.Timeout = 250 * time.Millisecond })

	ch, err := p.Stream(context.Background(), userRequest("hi"))
	require.NoError(t, err)

	var content strings.Builder
	for chunk := range ch {
		require.Nil(t, chunk.Err)
		content.WriteString(chunk.Delta.Content)
	}
	assert.Equal(t, "c0c1c2c3c4c5", content.String())
}

func TestProvider_Stream_MidStreamErrorUsesErrorMapper(t *testing.T) {
	var gotStatus int
	var gotProvider string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, `{"error":{"code":"1301","message":"blocked"}}`)
	}, func(c *Config) {
		c.ErrorMapper = func(status int, body []byte, provider string) *llm.Error {
			gotStatus, gotProvider = status, provider
			return &llm.Error{Code: llm.ErrContentFiltered, Message: string(body), Provider: provider}
		}
	})

	ch, err := p.Stream(context.Background(), userRequest("hi"))
	require.NoError(t, err)

	var chunks []llm.StreamChunk
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 1)
	require.NotNil(t, chunks[0].Err)
	assert.Equal(t, llm.ErrContentFiltered, chunks[0].Err.Code)
	assert.Equal(t, http.StatusBadGateway, gotStatus)
	assert.Equal(t, "glm", gotProvider)
}

func TestProvider_DoJSON_Timeout(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, func(c *Config) { c.Timeout = 50 * time.Millisecond })

	_, err := p.Completion(context.Background(), userRequest("hi"))
	llmErr, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrUpstreamTimeout, llmErr.Code)
}

func TestProvider_Stream_UsageOnlyChunk(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w,
			providers.OpenAICompatResponse{ID: "s1", Choices: []providers.OpenAICompatChoice{
				{Index: 0, Delta: &providers.OpenAICompatMessage{Content: "ok"}},
			}},
			providers.OpenAICompatResponse{ID: "s1", Usage: &providers.OpenAICompatUsage{TotalTokens: 9}},
			"[DONE]",
		)
	}, nil)

	ch, err := p.Stream(context.Background(), userRequest("hi"))
	require.NoError(t, err)

	var chunks []llm.StreamChunk
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 2)
	assert.Nil(t, chunks[0].Usage)
	require.NotNil(t, chunks[1].Usage)
	assert.Equal(t, 9, chunks[1].Usage.TotalTokens)
}

func TestProvider_Stream_MidStreamError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w,
			providers.OpenAICompatResponse{ID: "s1", Choices: []providers.OpenAICompatChoice{
				{Index: 0, Delta: &providers.OpenAICompatMessage{Content: "partial"}},
			}},
			`{"error":{"code":"1301","message":"unsafe content"}}`,
		)
	}, nil)

	ch, err := p.Stream(context.Background(), userRequest("hi"))
	require.NoError(t, err)

	var chunks []llm.StreamChunk
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 2)
	assert.Equal(t, "partial", chunks[0].Delta.Content)
	require.NotNil(t, chunks[1].Err)
	assert.Equal(t, "unsafe content", chunks[1].Err.Message)
}

func TestProvider_Stream_MalformedChunk(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "{broken")
	}, nil)

	ch, err := p.Stream(context.Background(), userRequest("hi"))
	require.NoError(t, err)

	chunk, ok := <-ch
	require.True(t, ok)
	require.NotNil(t, chunk.Err)
	assert.Equal(t, llm.ErrUpstreamError, chunk.Err.Code)

	_, ok = <-ch
	assert.False(t, ok, "channel must close after an error chunk")
}

func TestProvider_Stream_EOFWithoutDone(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		data, _ := json.Marshal(providers.OpenAICompatResponse{Choices: []providers.OpenAICompatChoice{
			{Index: 0, Delta: &providers.OpenAICompatMessage{Content: "tail"}},
		}})
		fmt.Fprintf(w, ": keep-alive\n\ndata: %s", data)
	}, nil)

	ch, err := p.Stream(context.Background(), userRequest("hi"))
	require.NoError(t, err)

	var content string
	for chunk := range ch {
		require.Nil(t, chunk.Err)
		content += chunk.Delta.Content
	}
	assert.Equal(t, "tail", content)
}

func TestProvider_Stream_HTTPError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}, nil)

	_, err := p.Stream(context.Background(), userRequest("hi"))
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrRateLimited, llmErr.Code)
}

func TestProvider_Stream_ToolCallDelta(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w,
			providers.OpenAICompatResponse{ID: "s1", Choices: []providers.OpenAICompatChoice{{
				Index: 0,
				Delta: &providers.OpenAICompatMessage{ToolCalls: []providers.OpenAICompatToolCall{{
					ID: "call_1", Type: "function",
					Function: providers.OpenAICompatFunction{Name: "weather", Arguments: json.RawMessage(`{"city":"北京"}`)},
				}}},
			}}},
			"[DONE]",
		)
	}, nil)

	ch, err := p.Stream(context.Background(), userRequest("hi"))
	require.NoError(t, err)

	var toolCalls []llm.ToolCall
	for chunk := range ch {
		require.Nil(t, chunk.Err)
		toolCalls = append(toolCalls, chunk.Delta.ToolCalls...)
	}
	require.Len(t, toolCalls, 1)
	assert.Equal(t, "weather", toolCalls[0].Name)
	assert.Equal(t, "call_1", toolCalls[0].ID)
}

func TestProvider_Stream_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 3; i++ {
			fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"content":"x"}}]}`+"\n\n")
		}
		flusher.Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, nil)
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Stream(ctx, userRequest("hi"))
	require.NoError(t, err)

	<-ch
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
}

// ---------------------------------------------------------------------------
// HealthCheck / ListModels / DoJSON
// ---------------------------------------------------------------------------

func TestProvider_HealthCheck(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/models", r.URL.Path)
		fmt.Fprint(w, `{"object":"list","data":[]}`)
	}, nil)

	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.GreaterOrEqual(t, status.Latency, time.Duration(0))
}

func TestProvider_HealthCheck_Failure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}, nil)

	status, err := p.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
	llmErr, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrUnauthorized, llmErr.Code)
}

func TestProvider_ListModels(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []llm.Model{{ID: "glm-4-flash"}, {ID: "glm-4-plus"}},
		})
	}, nil)

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "glm-4-plus", models[1].ID)
}

func TestProvider_DoJSON(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprint(w, `{"id":"task-1"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"message":"no such task"}}`)
		}
	}, nil)

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, p.DoJSON(context.Background(), http.MethodGet, "/ok", nil, &out))
	assert.Equal(t, "task-1", out.ID)

	err := p.DoJSON(context.Background(), http.MethodGet, "/missing", nil, &out)
	llmErr, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, llmErr.HTTPStatus)
	assert.Equal(t, "no such task", llmErr.Message)
}

func TestProvider_resolveAPIKey(t *testing.T) {
	p := New(Config{ProviderName: "glm", APIKey: "cfg-key"}, nil)

	assert.Equal(t, "cfg-key", p.resolveAPIKey(context.Background()))

	ctx := llm.WithCredentialOverride(context.Background(), llm.CredentialOverride{APIKey: "ctx-key"})
	assert.Equal(t, "ctx-key", p.resolveAPIKey(ctx))

	// Whitespace override falls back
	ctx = llm.WithCredentialOverride(context.Background(), llm.CredentialOverride{APIKey: "   "})
	assert.Equal(t, "cfg-key", p.resolveAPIKey(ctx))
}

func boolPtr(b bool) *bool { return &b }
