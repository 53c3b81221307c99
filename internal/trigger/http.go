package trigger

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the caller-chosen execution id.
const RequestIDHeader = "X-Request-Id"

type errorResponse struct {
	Error       string `json:"error"`
	ExecutionID string `json:"execution_id"`
}

type httpTrigger struct {
	runner Runner
	logger zerolog.Logger
}

// NewHTTPHandler returns the HTTP trigger router. metrics may be nil.
func NewHTTPHandler(runner Runner, metrics http.Handler, logger zerolog.Logger) http.Handler {
	h := &httpTrigger{runner: runner, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealthz)
	r.Post("/v1/runs", h.handleRun)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleRun runs one invocation. A disconnecting client does not cancel it.
func (h *httpTrigger) handleRun(w http.ResponseWriter, r *http.Request) {
	executionID := r.Header.Get(RequestIDHeader)
	if executionID == "" {
		executionID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, executionID)

	result, err := h.runner.Run(context.WithoutCancel(r.Context()), executionID)
	if err != nil {
		h.logger.Error().Err(err).Str("execution_id", executionID).Msg("http triggered run failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), ExecutionID: executionID})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
