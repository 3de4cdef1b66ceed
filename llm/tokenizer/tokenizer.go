package tokenizer

import "fmt"

// Tokenizer 是统一的 token 计数接口.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// CountMessages 返回消息列表的总 token 数,
	// 包括每条消息的开销（角色标记、分隔符等）。
	CountMessages(messages []Message) (int, error)

	// Name 返回分词器的名称.
	Name() string
}

// Message 是 tokenizer 包使用的轻量级消息结构，避免依赖 llm 包。
type Message struct {
	Role    string
	Content string
}

// 每条消息与整段对话的固定开销
const (
	perMessageOverhead      = 4
	conversationEndOverhead = 3
)

// New 按类型创建分词器: estimator / tiktoken。
func New(kind, model string) (Tokenizer, error) {
	switch kind {
	case "", "estimator":
		return NewEstimatorTokenizer(), nil
	case "tiktoken":
		return NewTiktokenTokenizer(model), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", kind)
	}
}

func countMessages(t Tokenizer, messages []Message) (int, error) {
	total := 0
	for _, msg := range messages {
		tokens, err := t.CountTokens(msg.Content)
		if err != nil {
			return 0, err
		}
		total += tokens + perMessageOverhead
	}
	return total + conversationEndOverhead, nil
}
