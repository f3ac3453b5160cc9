package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ppiankov/verbatim/internal/llm"
	"github.com/ppiankov/verbatim/internal/model"
	"github.com/ppiankov/verbatim/internal/pipeline"
	"github.com/ppiankov/verbatim/internal/store"
	"github.com/ppiankov/verbatim/internal/validate"
)

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps pipeline and store errors onto HTTP status codes
func statusFor(err error) int {
	var verr *validate.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrPrecondition),
		errors.Is(err, pipeline.ErrInProgress),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, model.ErrTerminalState):
		return http.StatusConflict
	case errors.Is(err, llm.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeInvalidInput(w http.ResponseWriter, err error) {
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid input", Details: verr.Violations})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid input", Details: err.Error()})
}
