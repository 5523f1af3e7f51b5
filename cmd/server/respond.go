package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"example.com/minitweet/internal/apperr"
)

// maxBodyBytes caps request bodies; tweets and comments are tiny.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logg.Error("http", "Failed to encode response", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError maps the apperr taxonomy onto HTTP statuses. Internal causes are logged
// and replaced with a generic message.
func writeError(w http.ResponseWriter, module string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logg.Error(module, "Request failed", err)
		msg = "internal error"
	} else {
		logg.Debug(module, "Request rejected: "+msg)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a JSON request body into dst, rejecting malformed input as a
// validation error.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
