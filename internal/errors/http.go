// Package errors defines the JSON error envelope returned by every HTTP
// endpoint and the helpers that write it.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/3leaps/lingoflow/pkg/intake"
	"github.com/3leaps/lingoflow/pkg/storage"
)

// Error codes returned in the envelope.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// HTTPErrorResponse is the wire shape of every error the API returns.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail carries the error code, message, and optional context.
type HTTPErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// WriteError writes the envelope with the given code and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetail(w, status, HTTPErrorDetail{Code: code, Message: message})
}

// WriteErrorDetail writes the envelope from a fully populated detail.
func WriteErrorDetail(w http.ResponseWriter, status int, detail HTTPErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: detail})
}

// RespondWithError maps an application error onto the envelope. Validation
// failures become 400s with the reason exposed; everything else is a 500
// with the detail kept out of the response body.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *intake.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, CodeValidationError, ve.Error())
	case storage.IsNotFound(err):
		WriteError(w, http.StatusNotFound, CodeNotFound, "object not found")
	default:
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}

// NotFoundHandler is the router-level 404 responder.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, CodeNotFound, "resource not found")
}

// MethodNotAllowedHandler is the router-level 405 responder.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}
