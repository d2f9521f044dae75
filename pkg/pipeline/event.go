package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// ObjectCreated is a storage "object created" notification. Delivery is
// at-least-once; handlers must tolerate replays of the same key.
type ObjectCreated struct {
	Bucket string
	Key    string
	Size   int64
}

// Handler processes one object-created event. Implementations own their
// failure recording; a returned error means the event could not be handled
// at all (it is logged, not redelivered).
type Handler interface {
	HandleObjectCreated(ctx context.Context, ev ObjectCreated) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev ObjectCreated) error

// HandleObjectCreated implements Handler.
func (f HandlerFunc) HandleObjectCreated(ctx context.Context, ev ObjectCreated) error {
	return f(ctx, ev)
}

// s3Event mirrors the S3 notification JSON shape.
type s3Event struct {
	Records []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key  string `json:"key"`
				Size int64  `json:"size"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseObjectCreatedEvents decodes an S3 event notification payload into
// ObjectCreated events. Keys arrive URL-encoded in notifications and are
// decoded here; a key that fails to decode is passed through as-is.
func ParseObjectCreatedEvents(payload []byte) ([]ObjectCreated, error) {
	var ev s3Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("parse s3 event: %w", err)
	}

	out := make([]ObjectCreated, 0, len(ev.Records))
	for _, rec := range ev.Records {
		key := rec.S3.Object.Key
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		out = append(out, ObjectCreated{
			Bucket: rec.S3.Bucket.Name,
			Key:    key,
			Size:   rec.S3.Object.Size,
		})
	}
	return out, nil
}
