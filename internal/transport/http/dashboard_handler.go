package http

import (
	"net/http"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
)

// DashboardHandler serves the persistence API used by quiz sessions and the
// user's dashboard.
type DashboardHandler struct {
	attempts *app.AttemptService
	verifier TokenVerifier
}

func NewDashboardHandler(attempts *app.AttemptService, verifier TokenVerifier) *DashboardHandler {
	return &DashboardHandler{attempts: attempts, verifier: verifier}
}

// Register mounts the dashboard routes on mux. Every route requires a user.
func (h *DashboardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /dashboard/save-state", requireUser(h.verifier, h.saveState))
	mux.HandleFunc("GET /dashboard/resume/{id}", requireUser(h.verifier, h.resume))
	mux.HandleFunc("POST /dashboard/save-quiz", requireUser(h.verifier, h.saveQuiz))
	mux.HandleFunc("GET /dashboard/ongoing", requireUser(h.verifier, h.ongoing))
	mux.HandleFunc("GET /dashboard/history", requireUser(h.verifier, h.history))
	mux.HandleFunc("GET /dashboard/stats", requireUser(h.verifier, h.stats))
	mux.HandleFunc("GET /dashboard/performance-by-category", requireUser(h.verifier, h.performance))
	mux.HandleFunc("GET /dashboard/quiz/{id}", requireUser(h.verifier, h.detail))
	mux.HandleFunc("DELETE /dashboard/quiz/{id}", requireUser(h.verifier, h.delete))
}

type savedResponse struct {
	QuizID  string `json:"quiz_id"`
	Message string `json:"message"`
}

func (h *DashboardHandler) saveState(w http.ResponseWriter, r *http.Request) {
	var snap domain.Snapshot
	if err := decodeJSON(r, &snap); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	id, err := h.attempts.SaveState(r.Context(), userFromContext(r.Context()), snap)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, savedResponse{QuizID: id, Message: "quiz state saved"})
}

func (h *DashboardHandler) resume(w http.ResponseWriter, r *http.Request) {
	snap, err := h.attempts.Resume(r.Context(), userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *DashboardHandler) saveQuiz(w http.ResponseWriter, r *http.Request) {
	var result domain.Result
	if err := decodeJSON(r, &result); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	id, err := h.attempts.SaveResult(r.Context(), userFromContext(r.Context()), result)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, savedResponse{QuizID: id, Message: "quiz saved"})
}

func (h *DashboardHandler) ongoing(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.attempts.Ongoing(r.Context(), userFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *DashboardHandler) history(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 20, 1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	offset, err := parseIntParam(r, "offset", 0, 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	attempts, err := h.attempts.History(r.Context(), userFromContext(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *DashboardHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.attempts.Stats(r.Context(), userFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) performance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.attempts.PerformanceByCategory(r.Context(), userFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

func (h *DashboardHandler) detail(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.attempts.Detail(r.Context(), userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *DashboardHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.attempts.Delete(r.Context(), userFromContext(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, savedResponse{QuizID: id, Message: "quiz deleted"})
}
