package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"bookpassport/internal/model"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/"

// AIService forwards prompts to Gemini's generateContent endpoint.
type AIService struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewAIService(apiKey, modelName string, timeout time.Duration) *AIService {
	return &AIService{
		apiKey:     apiKey,
		model:      modelName,
		baseURL:    geminiBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate returns the model's text for prompt.
func (s *AIService) Generate(ctx context.Context, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", model.ErrAIDisabled
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", model.ErrPromptRequired
	}
	if utf8.RuneCountInString(prompt) > model.MaxPromptLength {
		return "", model.ErrPromptTooLong
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := s.baseURL + s.model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}

	var sb strings.Builder
	if len(result.Candidates) > 0 {
		for _, part := range result.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", model.ErrAIEmptyResult
	}
	return sb.String(), nil
}
