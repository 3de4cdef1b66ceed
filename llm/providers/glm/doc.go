// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 glm 把智谱 AI GLM 聊天接口（open.bigmodel.cn）适配为宿主框架可插拔的
补全模型。GLMProvider 基于 openaicompat 传输层，LLM 在其上实现
llm.CompletionModel。

# 核心结构体

  - GLMProvider：嵌入 openaicompat.Provider，配置智谱专属路径、
    鉴权、request_id/do_sample 字段与业务错误码映射
  - LLM：补全模型：Metadata / Complete / StreamComplete / AsyncComplete

# 鉴权

  - api_key（默认）：Authorization: Bearer <key>
  - jwt：key 形如 <id>.<secret>，签发 HS256 JWT（header sign_type=SIGN，
    claims api_key/exp/timestamp，单位毫秒），缓存至临近过期

# 错误

所有失败均以 *llm.Error 返回。业务码 1113 映射为额度不足，1261 为请求无效，
1301 为内容拦截，1302/1303/1305 为限流。WithEmptyOnError 让 Complete 与
AsyncComplete 在失败时记录日志并返回空文本。

# 异步任务

AsyncComplete 提交 /api/paas/v4/async/chat/completions，随后按 PollInterval
轮询 /api/paas/v4/async-result/{id}，最多 MaxPolls 次。
*/
package glm
