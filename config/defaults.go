// =============================================================================
// 📦 GLM 适配器默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"github.com/BaSui01/glmllm/llm/providers"
)

// 默认模型参数
const (
	DefaultModel         = providers.GLMDefaultModel
	DefaultTemperature   = providers.GLMDefaultTemperature
	DefaultContextWindow = providers.GLMDefaultContextWindow
	DefaultNumOutput     = providers.GLMDefaultNumOutput
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		GLM:       DefaultGLMConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultGLMConfig 返回默认 GLM 配置
func DefaultGLMConfig() providers.GLMConfig {
	return providers.GLMConfig{
		BaseProviderConfig: providers.BaseProviderConfig{
			BaseURL: providers.GLMDefaultBaseURL,
			Model:   DefaultModel,
			Timeout: providers.GLMDefaultTimeout,
		},
		AuthMode:      providers.AuthModeAPIKey,
		TokenTTL:      providers.GLMDefaultTokenTTL,
		Temperature:   providers.Float32(DefaultTemperature),
		ContextWindow: DefaultContextWindow,
		NumOutput:     DefaultNumOutput,
		Tokenizer:     providers.TokenizerEstimator,
		MaxPolls:      providers.GLMDefaultMaxPolls,
		PollInterval:  providers.GLMDefaultPollInterval,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		File:        "logs/app.log",
		MaxSizeMB:   100,
		MaxAgeDays:  10,
		Compress:    true,
		RotateDaily: true,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "glmllm",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "glmllm",
		SampleRate:   1.0,
		Insecure:     true,
	}
}
