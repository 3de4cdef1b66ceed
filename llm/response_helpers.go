package llm

import "net/http"

// FirstChoice returns the first choice of resp, or an ErrEmptyResponse error
// when the upstream returned none.
func FirstChoice(resp *ChatResponse, provider string) (ChatChoice, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return ChatChoice{}, &Error{
			Code:       ErrEmptyResponse,
			Message:    "empty choices in chat response",
			HTTPStatus: http.StatusBadGateway,
			Provider:   provider,
		}
	}
	return resp.Choices[0], nil
}

// FirstText returns the content of the first choice.
func FirstText(resp *ChatResponse, provider string) (string, error) {
	choice, err := FirstChoice(resp, provider)
	if err != nil {
		return "", err
	}
	return choice.Message.Content, nil
}
