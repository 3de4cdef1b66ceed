// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义 GLM 适配层的统一类型与接口。

# 概述

本包屏蔽上游模型服务在请求结构、错误语义和流式协议上的差异，
向宿主框架暴露一致的请求/响应模型。

# 核心接口

  - [Provider]：面向聊天协议的 Provider 接口，提供 Completion / Stream /
    HealthCheck / Name / SupportsNativeFunctionCalling
  - [CompletionModel]：面向宿主框架的补全契约，提供 Metadata /
    Complete / StreamComplete

# 错误

所有 Provider 错误均为 [*Error]，携带 [ErrorCode]、HTTP 状态与可重试标记，
可通过 [AsError] 或 errors.As 提取。

# 凭据覆盖

[WithCredentialOverride] 允许在单次请求的 context 中覆盖 API Key。
*/
package llm
