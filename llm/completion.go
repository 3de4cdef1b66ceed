package llm

import "context"

// Metadata 描述一个补全模型的静态能力，由宿主框架用于提示词预算。
type Metadata struct {
	ContextWindow int    `json:"context_window"`
	NumOutput     int    `json:"num_output"`
	ModelName     string `json:"model_name"`
	IsChatModel   bool   `json:"is_chat_model"`
}

// CompletionResponse 是一次同步补全的结果。
type CompletionResponse struct {
	Text string        `json:"text"`
	Raw  *ChatResponse `json:"raw,omitempty"`
}

// CompletionDelta 是流式补全中的一个增量。
// Text 为截至当前的累计文本，Delta 为本次新增片段。
type CompletionDelta struct {
	Text         string     `json:"text"`
	Delta        string     `json:"delta"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *ChatUsage `json:"usage,omitempty"`
	Err          *Error     `json:"error,omitempty"`
}

// CompletionModel 是宿主框架接入语言模型的契约：输入提示词，输出补全文本。
type CompletionModel interface {
	Metadata() Metadata
	Complete(ctx context.Context, prompt string) (*CompletionResponse, error)
	StreamComplete(ctx context.Context, prompt string) (<-chan CompletionDelta, error)
}
