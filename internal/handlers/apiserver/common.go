package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"matchlink/internal/services"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONResponse sends a JSON response with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already out; nothing useful left to do.
			log.Printf("Failed to encode JSON response: %v", err)
		}
	}
}

// writeJSONError sends a JSON error response.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError maps service-layer sentinel errors onto HTTP status
// codes. Unknown errors are logged and reported as internal errors without
// leaking details.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSelfInvitation),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrInvalidStatus):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeJSONError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		writeJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrProfileNotFound),
		errors.Is(err, services.ErrUserNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrDuplicateInvitation),
		errors.Is(err, services.ErrProfileExists),
		errors.Is(err, services.ErrUserAlreadyExists):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrTransient):
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Printf("Internal error: %v", err)
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
