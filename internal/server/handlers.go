package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/josephgoksu/PageWing/internal/pipeline"
)

// handleRoot
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, map[string]string{"status": "PageWing API is running"})
}

// handleHealth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, map[string]string{"status": "ok"})
}

// handleRound authenticates, validates and runs one round.
func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	var req RoundRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.secret)) != 1 {
		writeError(w, http.StatusUnauthorized, "Invalid secret")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	if !s.locks.TryLock(req.Task) {
		writeError(w, http.StatusConflict, fmt.Sprintf("a round for task %s is already in progress", req.Task))
		return
	}
	defer s.locks.Unlock(req.Task)

	// A round keeps going if the caller disconnects; publication is the side effect of record.
	ctx := context.WithoutCancel(r.Context())

	res, err := s.runner.Run(ctx, req.toPipeline())
	if err != nil {
		status, detail := statusFor(err)
		s.log.Warn("round rejected",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("task", req.Task),
			zap.Int("status", status),
			zap.Error(err))
		writeError(w, status, detail)
		return
	}

	writeAPIJSON(w, res)
}

// handleListTasks
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, TaskListResponse{Tasks: entries, Count: len(entries)})
}

// handleGetTask
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	entry, ok, err := s.ledger.Get(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeAPIJSON(w, entry)
}

// statusFor maps a round error to a status code and a caller-facing detail.
func statusFor(err error) (int, string) {
	switch pipeline.Classify(err) {
	case pipeline.KindClient:
		return http.StatusBadRequest, err.Error()
	case pipeline.KindGeneration:
		return http.StatusInternalServerError, "LLM generation failed: " + err.Error()
	case pipeline.KindPublication:
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Detail: detail})
}

func writeAPIJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
