package model

import "errors"

// AIRequest is the body of POST /api/ai.
type AIRequest struct {
	Prompt string `json:"prompt"`
}

// AIResponse carries the generated text.
type AIResponse struct {
	Result string `json:"result"`
}

const MaxPromptLength = 8000

var (
	ErrPromptRequired = errors.New("prompt is required")
	ErrPromptTooLong  = errors.New("prompt too long")
	ErrAIDisabled     = errors.New("ai assistant is not configured")
	ErrAIEmptyResult  = errors.New("ai returned no text")
)
