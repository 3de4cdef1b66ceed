// Package openaicompat provides the shared HTTP transport for
// OpenAI-compatible chat completion APIs.
//
// The GLM provider embeds openaicompat.Provider and only overrides what
// differs from the OpenAI wire format:
//
//   - Provider name, endpoint paths and fallback model
//   - TokenSource, which turns the configured key into a bearer token
//   - RequestHook for provider-specific body fields
//   - ErrorMapper for provider business error codes
//
// Streaming responses are parsed from SSE "data:" lines until "[DONE]".
// A usage block on the final chunk is forwarded on the last StreamChunk.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName:  "glm",
//	    APIKey:        cfg.APIKey,
//	    BaseURL:       "https://open.bigmodel.cn",
//	    EndpointPath:  "/api/paas/v4/chat/completions",
//	    FallbackModel: "glm-4-flash",
//	}, logger)
package openaicompat
