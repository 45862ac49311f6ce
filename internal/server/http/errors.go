package httpserver

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/logging"
)

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is the only place errors become responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthenticated", Message: "authentication required"})
	case errors.Is(err, errs.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden", Message: "not allowed"})
	case errors.Is(err, errs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "record not found"})
	case errors.Is(err, errs.ErrValidation):
		body := errorBody{Error: "validation", Message: "invalid input"}
		var ve *errs.ValidationError
		if errors.As(err, &ve) {
			body.Fields = ve.Fields
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, errs.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limited", Message: "too many requests"})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"})
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, retry time.Duration) {
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, r, errs.ErrRateLimited)
}
