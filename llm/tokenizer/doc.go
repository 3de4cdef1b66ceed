// Package tokenizer 提供统一的 Token 计数接口，
// 支持 CJK 感知的估算器与 tiktoken 计数，用于补全前的上下文窗口校验。
package tokenizer
