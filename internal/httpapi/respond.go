package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// errorResponse is the error body shape clients already parse.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func okJSON(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// queryLimit parses ?limit= with a default. ok is false when the value is
// present but not an integer in [min, max].
func queryLimit(r *http.Request, def, min, max int) (n int, ok bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || (max > 0 && n > max) {
		return 0, false
	}
	return n, true
}
