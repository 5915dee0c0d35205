package http

import (
	"errors"
	"log"
	"net/http"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/generator"
)

// GenerateHandler exposes the question generator to remote quiz hosts.
type GenerateHandler struct {
	generator app.Generator
}

func NewGenerateHandler(gen app.Generator) *GenerateHandler {
	return &GenerateHandler{generator: gen}
}

type questionsResponse struct {
	Questions domain.QuestionSet `json:"questions"`
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	req, err := req.Normalize()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	questions, err := h.generator.Generate(r.Context(), req)
	if err == nil {
		err = questions.Validate()
	}
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, questionsResponse{Questions: questions})
	case errors.Is(err, generator.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "question generation is not configured"})
	default:
		log.Printf("generate questions failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to generate questions"})
	}
}
