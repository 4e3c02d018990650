// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/applicant-pipeline/apperr"
	"github.com/danielhkuo/applicant-pipeline/auth"
	"github.com/danielhkuo/applicant-pipeline/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// WithLogging wraps a handler with request logging
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Debug("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", GetClientIP(r),
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", GetClientIP(r),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// RequireKey rejects requests whose header does not carry the expected key
func RequireKey(header, expected string) func(http.HandlerFunc) http.HandlerFunc {
	return RequireAnyKey(KeyCheck{Header: header, Expected: expected})
}

// KeyCheck pairs a request header with the key it must carry.
type KeyCheck struct {
	Header   string
	Expected string
}

// RequireAnyKey lets a request through when at least one check passes.
func RequireAnyKey(checks ...KeyCheck) func(http.HandlerFunc) http.HandlerFunc {
	headers := make([]string, len(checks))
	for i, c := range checks {
		headers[i] = c.Header
	}
	message := "Invalid or missing " + strings.Join(headers, " or ")

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			for _, c := range checks {
				if auth.ValidateKey(r.Header.Get(c.Header), c.Expected) == nil {
					next(w, r)
					return
				}
			}
			slog.Warn("rejected request", "path", r.URL.Path, "headers", headers)
			ErrorResponse(w, http.StatusUnauthorized, message)
		}
	}
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeInvalidTransition, apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodePurgeConfirmationRequired:
		return http.StatusPreconditionRequired
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a JSON error. Internal errors are logged and
// their detail is withheld from the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.CodeOf(err)
	status := StatusFor(code)

	resp := models.ErrorResponse{
		Error: http.StatusText(status),
		Code:  string(code),
	}

	var appErr *apperr.Error
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp.Message = "Internal server error"
	} else if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Details = appErr.Metadata
	} else {
		resp.Message = err.Error()
	}

	JSONResponse(w, status, resp)
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return err
	}
	return nil
}

// ParseOptionalJSONBody is ParseJSONBody for endpoints whose body may be empty
func ParseOptionalJSONBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := ParseJSONBody(r, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// CORS middleware allows cross-origin requests from the coordinator console
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
			"Content-Type", auth.HeaderAdminKey, auth.HeaderElectionKey, auth.HeaderActorID,
		}, ", "))
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP extracts the client IP address
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		return addr[:i]
	}
	return addr
}
