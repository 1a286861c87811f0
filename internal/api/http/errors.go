package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Timestamp time.Time           `json:"timestamp"`
	Status    int                 `json:"status"`
	Error     string              `json:"error"`
	Code      domain.ErrorCode    `json:"code,omitempty"`
	Message   string              `json:"message"`
	Errors    []domain.FieldError `json:"errors,omitempty"`
}

func statusFor(err error) int {
	switch domain.CodeOf(err) {
	case domain.CodeNotOwner:
		return http.StatusForbidden
	case domain.CodeInvalidSignature:
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExternalProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status its kind maps to. Unclassified
// errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Code:      domain.CodeOf(err),
		Message:   err.Error(),
	}

	var de *domain.Error
	if errors.As(err, &de) {
		body.Message = de.Message
		body.Errors = de.Fields
	}
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Message = "internal server error"
	}
	if domain.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError(domain.CodeInvalidArgument, "malformed request body: "+err.Error())
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints where the body may be empty.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return domain.NewValidationError(domain.CodeInvalidArgument, "malformed request body: "+err.Error())
}
