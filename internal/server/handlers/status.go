package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/3leaps/lingoflow/pkg/intake"
	"github.com/3leaps/lingoflow/pkg/status"
)

// StatusHandler serves translation status queries.
type StatusHandler struct {
	resolver *status.Resolver
}

// NewStatusHandler creates the handler.
func NewStatusHandler(resolver *status.Resolver) *StatusHandler {
	return &StatusHandler{resolver: resolver}
}

// Get resolves the state of a request id passed as the request_id query
// parameter.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		respondWithError(w, r, &intake.ValidationError{
			Reason: "query parameter \"request_id\" is required",
		})
		return
	}

	resp, err := h.resolver.Resolve(r.Context(), requestID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
