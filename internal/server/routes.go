package server

import "net/http"

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Rounds
	mux.HandleFunc("POST /app", s.handleRound)
	mux.HandleFunc("POST /api/rounds", s.handleRound)

	// Ledger
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("GET /api/tasks/{name}", s.handleGetTask)

	return s.requestID(s.accessLog(s.recoverPanics(mux)))
}
