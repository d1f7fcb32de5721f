package handler

import (
	"context"
	"errors"
	"net/http"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
)

type AIService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type AIHandler struct {
	aiService AIService
}

func NewAIHandler(aiService AIService) *AIHandler {
	return &AIHandler{aiService: aiService}
}

// Generate handles POST /api/ai
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req model.AIRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	result, err := h.aiService.Generate(r.Context(), req.Prompt)
	if errors.Is(err, model.ErrAIEmptyResult) {
		httputil.WriteError(w, http.StatusBadGateway, httputil.ErrCodeUnavailable, "The assistant returned no answer")
		return
	}
	if err != nil {
		writeServiceError(w, r, err, "generate answer")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.AIResponse{Result: result})
}
