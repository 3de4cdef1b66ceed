// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 glm 命令行工具。

# 概述

cmd/glm 通过 YAML / .env / 环境变量加载配置，构建 GLM 补全模型，
用于在终端快速验证密钥、模型与网络连通性。

# 子命令

  - complete  同步补全，输出完整文本
  - stream    流式补全，逐段输出增量
  - async     提交异步任务并轮询结果
  - metadata  输出模型元数据（JSON）
  - models    列出可用模型
  - health    健康检查
  - version   版本信息

提示词取自位置参数；位置参数为 "-" 或缺省时从标准输入读取。

# 可观测性

metrics.enabled 时注册 Prometheus 指标，metrics.addr 非空时在该地址
暴露 /metrics；telemetry.enabled 时经 OTLP gRPC 导出 trace。
Version、BuildTime、GitCommit 通过 ldflags 注入。
*/
package main
