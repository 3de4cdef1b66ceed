// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 middleware 提供 GLM 请求处理的中间件链与请求改写器链。

# 概述

Handler / Middleware 采用函数式组合，将日志、超时、指标、追踪、
校验与 panic 恢复从 Provider 调用中解耦。RewriterChain 在请求
发送到上游之前清理与转换参数，改写器只修改请求副本。

# 核心类型

  - Handler：func(ctx, *ChatRequest) (*ChatResponse, error)
  - Middleware：func(Handler) Handler
  - Chain：中间件链，Use 追加，Then 组合，第一个中间件位于最外层
  - RequestRewriter / RewriterChain：请求改写器及其链
  - MetricsCollector / Validator：中间件依赖的辅助接口

# 内置中间件

  - LoggingMiddleware：基于 zap 记录请求摘要，错误信息脱敏
  - TimeoutMiddleware：为请求添加 context 超时
  - MetricsMiddleware：记录请求状态、耗时与 Token 用量
  - TracingMiddleware：基于 OpenTelemetry 创建 client span
  - ValidatorMiddleware + ContextWindowValidator：提示词超过上下文窗口时返回 LLM_CONTEXT_OVERFLOW
  - RecoveryMiddleware：捕获 panic 并转为 *PanicError

# 内置改写器

  - EmptyToolsCleaner：没有 tools 时清除 tool_choice
  - TemperatureClamp：将 temperature 限制在区间内
  - MessagesRequired：拒绝空消息请求
*/
package middleware
