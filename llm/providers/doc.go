// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 是 GLM Provider 与 OpenAI 兼容传输层的公共基础，
负责请求/响应转换、错误映射与配置结构。

# 核心类型

  - BaseProviderConfig：共享的基础配置（APIKey、BaseURL、Model、Timeout）
  - GLMConfig：Zhipu GLM 配置：鉴权方式、温度、上下文窗口、异步轮询
  - OpenAICompat* 系列：OpenAI 兼容 API 的请求/响应/工具调用结构体
  - ErrorBody：解析后的错误响应体，code 兼容字符串与数字

# 核心函数

  - MapHTTPError：将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - TransportError / DecodeError：网络与解析失败的统一错误
  - ConvertMessagesToOpenAI / ConvertToolsToOpenAI：消息与工具格式转换
  - ToLLMChatResponse：OpenAI 兼容响应到 llm.ChatResponse 的转换
  - ChooseModel：按优先级选择模型（请求 > 默认 > 兜底）
  - ListModelsOpenAICompat：通用模型列表获取
*/
package providers
