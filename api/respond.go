package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fitagent/backend/supabase"
)

const maxBodySize = 1 << 20

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a bounded request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// storeStatus maps store errors onto HTTP statuses: missing rows are the
// caller's 404, everything else is an upstream failure.
func storeStatus(err error) int {
	if errors.Is(err, supabase.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
