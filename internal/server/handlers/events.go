package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/3leaps/lingoflow/pkg/intake"
	"github.com/3leaps/lingoflow/pkg/pipeline"
)

// maxEventBytes bounds the notification body read. Event payloads are small;
// anything larger is not a notification.
const maxEventBytes = 1 << 20

// EventSink accepts parsed object-created events for asynchronous handling.
type EventSink interface {
	Enqueue(ctx context.Context, ev pipeline.ObjectCreated) error
}

// EventsHandler receives storage object-created notifications, either as raw
// S3 event JSON or wrapped in an SNS delivery envelope.
type EventsHandler struct {
	sink   EventSink
	logger *zap.Logger
}

// NewEventsHandler creates the handler.
func NewEventsHandler(sink EventSink, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{sink: sink, logger: logger}
}

// snsEnvelope is the SNS HTTP delivery wrapper around the S3 event payload.
type snsEnvelope struct {
	Type         string `json:"Type"`
	Message      string `json:"Message"`
	SubscribeURL string `json:"SubscribeURL"`
}

// acceptedResponse reports how many events were queued.
type acceptedResponse struct {
	Accepted int `json:"accepted"`
}

// Receive parses the notification body and enqueues every object-created
// event it carries. SNS subscription confirmations are acknowledged without
// producing events.
func (h *EventsHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		respondWithError(w, r, fmt.Errorf("read event body: %w", err))
		return
	}

	payload := body
	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Type != "" {
		switch envelope.Type {
		case "SubscriptionConfirmation":
			h.logger.Info("Received SNS subscription confirmation",
				zap.String("subscribe_url", envelope.SubscribeURL))
			w.WriteHeader(http.StatusOK)
			return
		case "Notification":
			payload = []byte(envelope.Message)
		}
	}

	events, err := pipeline.ParseObjectCreatedEvents(payload)
	if err != nil {
		respondWithError(w, r, &intake.ValidationError{Reason: "unrecognized event payload"})
		return
	}

	accepted := 0
	for _, ev := range events {
		if err := h.sink.Enqueue(r.Context(), ev); err != nil {
			h.logger.Warn("Failed to enqueue event",
				zap.String("bucket", ev.Bucket),
				zap.String("key", ev.Key),
				zap.Error(err))
			continue
		}
		accepted++
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(acceptedResponse{Accepted: accepted})
}
