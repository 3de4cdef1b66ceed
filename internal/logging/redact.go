package logging

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxPromptLogLength is the maximum number of runes of a prompt written to a log line.
	MaxPromptLogLength = 200
	// RedactedText replaces sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// Authorization headers: Bearer <api key or JWT>
	bearerPattern = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_.=]+`)

	// Bare JWTs (three base64url segments)
	jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]*`)

	// api_key=..., "api_key":"..."
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key"?\s*[:=]\s*"?)[A-Za-z0-9\-_.]{8,}`)

	// Zhipu keys are "<id>.<secret>"
	zhipuKeyPattern = regexp.MustCompile(`\b[0-9a-f]{32}\.[A-Za-z0-9]{16}\b`)
)

// Redact removes bearer tokens, JWTs and API keys from s.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = jwtPattern.ReplaceAllString(s, RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}"+RedactedText)
	return zhipuKeyPattern.ReplaceAllString(s, RedactedText)
}

// RedactError renders err with secrets removed.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return Redact(err.Error())
}

// TruncatePrompt shortens a prompt for logging.
func TruncatePrompt(prompt string) string {
	if utf8.RuneCountInString(prompt) <= MaxPromptLogLength {
		return prompt
	}
	runes := []rune(prompt)
	return string(runes[:MaxPromptLogLength]) + "...[truncated]"
}
