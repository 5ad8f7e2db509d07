package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"estimator/internal/gateway"
	"estimator/internal/log"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Default(log.ComponentHTTP).Warn("Failed to encode response", log.FieldError, err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// errorStatus is the single mapping from handler errors to HTTP responses.
// Anything that is not a *gateway.Error with a client status is a 500 whose
// cause stays in the log.
func errorStatus(err error) (int, string) {
	var ge *gateway.Error
	if errors.As(err, &ge) && ge.Status >= 400 && ge.Status < 500 {
		msg := ge.Message
		if msg == "" {
			msg = http.StatusText(ge.Status)
		}
		return ge.Status, msg
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "Request cancelled"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	logger := log.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err, log.FieldStatusCode, status)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldStatusCode, status)
	}
	writeMessage(w, status, msg)
}
