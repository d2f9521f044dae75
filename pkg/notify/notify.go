// Package notify defines the advisory notification publisher.
//
// Publishes are fire-and-forget: correctness never depends on them, and
// callers log publish failures instead of propagating them.
package notify

import "context"

// Publisher sends advisory event messages to interested listeners.
type Publisher interface {
	// Publish sends message under subject. The message is serialized by the
	// implementation.
	Publish(ctx context.Context, subject string, message any) error
}

// Nop is a Publisher that discards every message. Useful in tests and when
// no topic is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(ctx context.Context, subject string, message any) error {
	return nil
}
