package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/newscrawler/internal/apperrors"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteAppError maps an apperrors.Kind to an HTTP status code and writes it.
func WriteAppError(w http.ResponseWriter, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		WriteError(w, http.StatusBadRequest, err.Error())
	case apperrors.KindNotFound:
		WriteError(w, http.StatusNotFound, err.Error())
	case apperrors.KindDuplicate:
		WriteError(w, http.StatusConflict, err.Error())
	case apperrors.KindStateViolation:
		WriteError(w, http.StatusConflict, err.Error())
	case apperrors.KindRateLimit:
		WriteError(w, http.StatusTooManyRequests, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// extractIDFromPath extracts the ID (and optional trailing subpath) from a
// URL path given its known prefix.
// Example: "/api/jobs/abc-123/priority" with prefix "/api/jobs/" returns ("abc-123", "priority").
func extractIDFromPath(path, prefix string) (id string, rest string) {
	if !strings.HasPrefix(path, prefix) {
		return "", ""
	}
	trimmed := strings.TrimPrefix(path, prefix)
	trimmed = strings.TrimSuffix(trimmed, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	id = parts[0]
	if len(parts) > 1 {
		rest = parts[1]
	}
	return id, rest
}

func queryBool(r *http.Request, key string) (bool, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryTime(r *http.Request, key string) *time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}
