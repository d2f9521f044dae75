package pipeline

import (
	"context"

	"go.uber.org/zap"
)

// Router fans object-created events out to the pipeline stage owning the
// bucket: intake uploads go to the orchestrator, batch output goes to the
// completion notifier. Events for unknown buckets are logged and dropped.
type Router struct {
	inputBucket  string
	outputBucket string
	orchestrator Handler
	completion   Handler
	logger       *zap.Logger
}

// NewRouter wires bucket names to their stage handlers.
func NewRouter(inputBucket, outputBucket string, orchestrator, completion Handler, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		inputBucket:  inputBucket,
		outputBucket: outputBucket,
		orchestrator: orchestrator,
		completion:   completion,
		logger:       logger,
	}
}

// HandleObjectCreated implements Handler.
func (r *Router) HandleObjectCreated(ctx context.Context, ev ObjectCreated) error {
	switch ev.Bucket {
	case r.inputBucket:
		return r.orchestrator.HandleObjectCreated(ctx, ev)
	case r.outputBucket:
		return r.completion.HandleObjectCreated(ctx, ev)
	default:
		r.logger.Warn("Event for unrouted bucket dropped",
			zap.String("bucket", ev.Bucket),
			zap.String("key", ev.Key))
		return nil
	}
}
