package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"carrental-backend/internal/config"
	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/security"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext returns the authenticated caller set by AuthMiddleware.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// AuthMiddleware checks the bearer token on every route whose security
// level is not public and stores the caller's user id in the context.
func AuthMiddleware(tm security.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := ""
			if route := mux.CurrentRoute(r); route != nil {
				name = route.GetName()
			}
			if config.GetSecurityLevel(name) == config.SecurityPublic {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				writeUnauthorized(w, "authorization token is not provided")
				return
			}

			claims, err := tm.ValidateToken(token)
			if err != nil {
				writeUnauthorized(w, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Timestamp: time.Now().UTC(),
		Status:    http.StatusUnauthorized,
		Error:     http.StatusText(http.StatusUnauthorized),
		Message:   msg,
	})
}

func requireUser(r *http.Request) (int64, error) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		return 0, domain.NewValidationError(domain.CodeInvalidArgument, "missing caller identity")
	}
	return id, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs one line per request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		args := []any{"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start)}
		if rec.status >= http.StatusInternalServerError {
			logger.Error("HTTP request", args...)
			return
		}
		logger.Info("HTTP request", args...)
	})
}
