// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的 LLM 调用指标采集。

# 概述

Collector 通过 promauto.With 将指标注册到调用方传入的 Registerer，
测试中可使用独立的 prometheus.NewRegistry 避免重复注册。
所有指标按 namespace 隔离，按 provider/model 分组。

# 指标

  - llm_requests_total：请求总数，按 status 区分成功与错误码
  - llm_request_duration_seconds：请求耗时
  - llm_tokens_used_total：Token 用量（prompt/completion）
  - llm_stream_chunks_total：流式增量数
  - llm_async_polls_total：异步任务查询次数，按 task_status 分组
*/
package metrics
