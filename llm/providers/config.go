package providers

import "time"

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key" env:"API_KEY"`
	BaseURL string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// 鉴权方式
const (
	AuthModeAPIKey = "api_key" // Authorization: Bearer <api key>
	AuthModeJWT    = "jwt"     // Authorization: Bearer <HS256 签名的 JWT>
)

// 分词器类型
const (
	TokenizerEstimator = "estimator"
	TokenizerTiktoken  = "tiktoken"
	TokenizerNone      = "none"
)

// GLMConfig Zhipu AI GLM Provider 配置
type GLMConfig struct {
	BaseProviderConfig `yaml:",inline" env:"inline"`

	// AuthMode: api_key 或 jwt
	AuthMode string `json:"auth_mode,omitempty" yaml:"auth_mode,omitempty" env:"AUTH_MODE"`
	// TokenTTL JWT 有效期
	TokenTTL time.Duration `json:"token_ttl,omitempty" yaml:"token_ttl,omitempty" env:"TOKEN_TTL"`

	// Temperature 每次补全固定使用的温度，nil 表示使用 GLMDefaultTemperature，
	// 显式的 0 保留为贪心解码
	Temperature *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" env:"TEMPERATURE"`
	// ContextWindow 上下文窗口大小（token）
	ContextWindow int `json:"context_window" yaml:"context_window" env:"CONTEXT_WINDOW"`
	// NumOutput 单次输出上限（token）
	NumOutput int `json:"num_output" yaml:"num_output" env:"NUM_OUTPUT"`
	// Tokenizer 上下文窗口校验使用的分词器: estimator / tiktoken / none
	Tokenizer string `json:"tokenizer,omitempty" yaml:"tokenizer,omitempty" env:"TOKENIZER"`

	// EmptyOnError 失败时记录日志并返回空文本，而不是返回错误
	EmptyOnError bool `json:"empty_on_error,omitempty" yaml:"empty_on_error,omitempty" env:"EMPTY_ON_ERROR"`

	// 异步任务轮询
	MaxPolls     int           `json:"max_polls,omitempty" yaml:"max_polls,omitempty" env:"MAX_POLLS"`
	PollInterval time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty" env:"POLL_INTERVAL"`
}

// GLM 默认值
const (
	GLMDefaultBaseURL       = "https://open.bigmodel.cn"
	GLMDefaultModel         = "glm-4-flash"
	GLMDefaultTemperature   = 0.7
	GLMDefaultContextWindow = 8192
	GLMDefaultNumOutput     = 4096
	GLMDefaultTimeout       = 60 * time.Second
	GLMDefaultTokenTTL      = 3 * time.Minute
	GLMDefaultMaxPolls      = 5
	GLMDefaultPollInterval  = 2 * time.Second
)

// WithDefaults 返回零值字段被默认值填充后的副本。
// Temperature 仅在未设置（nil）时填充，显式的 0 不会被覆盖。
func (c GLMConfig) WithDefaults() GLMConfig {
	if c.Temperature == nil {
		t := float32(GLMDefaultTemperature)
		c.Temperature = &t
	} else {
		t := *c.Temperature
		c.Temperature = &t
	}
	if c.BaseURL == "" {
		c.BaseURL = GLMDefaultBaseURL
	}
	if c.Model == "" {
		c.Model = GLMDefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = GLMDefaultTimeout
	}
	if c.AuthMode == "" {
		c.AuthMode = AuthModeAPIKey
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = GLMDefaultTokenTTL
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = GLMDefaultContextWindow
	}
	if c.NumOutput == 0 {
		c.NumOutput = GLMDefaultNumOutput
	}
	if c.Tokenizer == "" {
		c.Tokenizer = TokenizerEstimator
	}
	if c.MaxPolls == 0 {
		c.MaxPolls = GLMDefaultMaxPolls
	}
	if c.PollInterval == 0 {
		c.PollInterval = GLMDefaultPollInterval
	}
	return c
}

// TemperatureValue 返回生效的温度，未设置时为 GLMDefaultTemperature
func (c GLMConfig) TemperatureValue() float32 {
	if c.Temperature == nil {
		return GLMDefaultTemperature
	}
	return *c.Temperature
}

// Float32 返回 v 的指针，便于构造 GLMConfig.Temperature
func Float32(v float32) *float32 { return &v }
