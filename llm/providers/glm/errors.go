package glm

import (
	"net/http"

	"github.com/BaSui01/glmllm/llm"
	"github.com/BaSui01/glmllm/llm/providers"
)

// Zhipu 业务错误码
const (
	codeInsufficientBalance = "1113" // 余额不足或无可用资源包
	codePromptTooLong       = "1261" // prompt 超长
	codeContentFiltered     = "1301" // 内容安全拦截
	codeConcurrencyLimit    = "1302" // 并发数过高
	codeFrequencyLimit      = "1303" // 请求频率过高
	codeDailyLimit          = "1305" // 当日调用次数过多
)

// mapError 先按 HTTP 状态映射，再用响应体中的业务码细化
func mapError(status int, body []byte, provider string) *llm.Error {
	eb := providers.ParseErrorBody(body)
	msg := eb.Text()
	if msg == "" {
		msg = http.StatusText(status)
	}
	out := providers.MapHTTPError(status, msg, provider)

	switch eb.Code {
	case codeInsufficientBalance:
		out.Code = llm.ErrQuotaExceeded
		out.Retryable = false
	case codePromptTooLong:
		out.Code = llm.ErrInvalidRequest
		out.Retryable = false
	case codeContentFiltered:
		out.Code = llm.ErrContentFiltered
		out.Retryable = false
	case codeConcurrencyLimit, codeFrequencyLimit, codeDailyLimit:
		out.Code = llm.ErrRateLimited
		out.Retryable = true
	}
	return out
}
