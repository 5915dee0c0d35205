package http

import (
	"net/http"

	"ai-quiz-service/internal/app"
)

// RouterDeps collects the collaborators served over HTTP. A nil Attempts
// disables the dashboard API; a nil Generator disables generation.
type RouterDeps struct {
	Attempts  *app.AttemptService
	Generator app.Generator
	Verifier  TokenVerifier
	Session   app.SessionOptions
}

// NewRouter wires every route of the service.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if deps.Attempts != nil && deps.Verifier != nil {
		NewDashboardHandler(deps.Attempts, deps.Verifier).Register(mux)
	}
	if deps.Generator != nil {
		mux.Handle("POST /api/generate-questions", NewGenerateHandler(deps.Generator))
	}
	ws := NewWSHandler(deps.Generator, deps.Attempts, deps.Verifier, deps.Session)
	mux.HandleFunc("GET /ws/quiz", ws.ServeWS)
	return mux
}
