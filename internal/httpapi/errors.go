package httpapi

import (
	"encoding/json"
	"net/http"

	"wifirouterd/internal/router"
	"wifirouterd/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeRouterError maps the router error taxonomy to HTTP status codes.
func writeRouterError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case router.IsNotConfigured(err):
		return http.StatusNotFound
	case router.IsAmbiguousInstance(err):
		return http.StatusConflict
	case router.IsResourceExhausted(err):
		return http.StatusInsufficientStorage
	case router.IsBadConfiguration(err):
		return http.StatusUnprocessableEntity
	case router.IsStartupTimeout(err), router.IsProcessDied(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
