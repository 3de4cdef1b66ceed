package tokenizer

import "unicode/utf8"

// EstimatorTokenizer is a character-count-based token estimator.
// GLM prompts are frequently Chinese, so CJK and ASCII runes are weighted
// separately instead of a naive len/4.
type EstimatorTokenizer struct {
	cjkCharsPerToken   float64
	asciiCharsPerToken float64
}

// NewEstimatorTokenizer creates the estimator with GLM-calibrated ratios.
func NewEstimatorTokenizer() *EstimatorTokenizer {
	return &EstimatorTokenizer{
		cjkCharsPerToken:   1.5,
		asciiCharsPerToken: 4.0,
	}
}

func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	totalChars := utf8.RuneCountInString(text)
	cjkCount := 0
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		}
	}

	estimated := int(float64(cjkCount)/e.cjkCharsPerToken + float64(totalChars-cjkCount)/e.asciiCharsPerToken)
	if estimated == 0 {
		estimated = 1
	}
	return estimated, nil
}

func (e *EstimatorTokenizer) CountMessages(messages []Message) (int, error) {
	return countMessages(e, messages)
}

func (e *EstimatorTokenizer) Name() string {
	return "estimator"
}

// isCJK returns true if the rune is a CJK character.
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified Ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x20000 && r <= 0x2A6DF) || // CJK Extension B
		(r >= 0xF900 && r <= 0xFAFF) || // CJK Compatibility Ideographs
		(r >= 0x3000 && r <= 0x303F) || // CJK Symbols and Punctuation
		(r >= 0xFF00 && r <= 0xFFEF) // Halfwidth and Fullwidth Forms
}
