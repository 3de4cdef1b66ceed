package glm

import (
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/glmllm/llm"
	"github.com/BaSui01/glmllm/llm/middleware"
	"github.com/BaSui01/glmllm/llm/providers"
	"github.com/BaSui01/glmllm/llm/providers/openaicompat"
)

// ProviderName 是 GLM Provider 的唯一标识
const ProviderName = "glm"

// Zhipu 开放平台 v4 接口路径
const (
	chatCompletionsPath = "/api/paas/v4/chat/completions"
	modelsPath          = "/api/paas/v4/models"
	asyncSubmitPath     = "/api/paas/v4/async/chat/completions"
	asyncResultPath     = "/api/paas/v4/async-result/"
)

// 请求 Metadata 中识别的键
const (
	MetadataRequestID = "request_id"
	MetadataDoSample  = "do_sample"
)

// GLMProvider 实现 Zhipu AI GLM LLM 提供者.
// GLM 使用 OpenAI 兼容的 API 格式，差异部分通过 openaicompat 的钩子注入。
type GLMProvider struct {
	*openaicompat.Provider
	cfg providers.GLMConfig
}

// NewGLMProvider 创建新的 GLM 提供者实例。
func NewGLMProvider(cfg providers.GLMConfig, logger *zap.Logger) *GLMProvider {
	cfg = cfg.WithDefaults()

	ocfg := openaicompat.Config{
		ProviderName:   ProviderName,
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		DefaultModel:   cfg.Model,
		FallbackModel:  providers.GLMDefaultModel,
		Timeout:        cfg.Timeout,
		EndpointPath:   chatCompletionsPath,
		ModelsEndpoint: modelsPath,
		RequestHook:    requestHook,
		ErrorMapper:    mapError,
	}
	if cfg.AuthMode == providers.AuthModeJWT {
		ocfg.TokenSource = newTokenSigner(cfg.TokenTTL).Token
	}

	base := openaicompat.New(ocfg, logger)
	// GLM 接受的 temperature 区间为 [0, 1]
	base.RewriterChain.AddRewriter(middleware.NewTemperatureClamp(0, 1))

	return &GLMProvider{
		Provider: base,
		cfg:      cfg,
	}
}

// Config 返回填充默认值后的配置
func (p *GLMProvider) Config() providers.GLMConfig { return p.cfg }

// requestHook 填充 request_id 与 do_sample。
// temperature 为 0 时关闭采样，等价于贪心解码。
func requestHook(req *llm.ChatRequest, body *providers.OpenAICompatRequest) {
	body.RequestID = req.Metadata[MetadataRequestID]
	if body.RequestID == "" {
		body.RequestID = req.TraceID
	}
	if body.RequestID == "" {
		body.RequestID = uuid.NewString()
	}

	if v, ok := req.Metadata[MetadataDoSample]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			body.DoSample = &b
			return
		}
	}
	if req.Temperature != nil && *req.Temperature == 0 {
		off := false
		body.DoSample = &off
	}
}

var _ llm.Provider = (*GLMProvider)(nil)
