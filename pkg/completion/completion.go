// Package completion reacts to translated documents landing in the output
// bucket: it resolves the owning request through the external job id embedded
// in the output key and marks the job record complete.
package completion

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/3leaps/lingoflow/pkg/jobstore"
	"github.com/3leaps/lingoflow/pkg/notify"
	"github.com/3leaps/lingoflow/pkg/pipeline"
)

// Service is the completion notification stage.
type Service struct {
	jobs      *jobstore.Store
	publisher notify.Publisher
	logger    *zap.Logger
}

// New creates the completion service. publisher may be nil to disable
// advisory notifications.
func New(jobs *jobstore.Store, publisher notify.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{jobs: jobs, publisher: publisher, logger: logger}
}

// completeMessage is the advisory notification body published when a
// translation result is available.
type completeMessage struct {
	Event          string `json:"event"`
	RequestID      string `json:"request_id"`
	JobID          string `json:"job_id"`
	TargetLanguage string `json:"target_language"`
	OutputBucket   string `json:"output_bucket"`
	OutputKey      string `json:"output_key"`
}

// HandleObjectCreated processes one output bucket notification.
//
// Auxiliary artifacts and directory markers are skipped; the batch job
// writes per-document detail files alongside the deliverable. Events whose
// job id has no owning record are dropped with a log line: the record may
// belong to another deployment sharing the bucket, and redelivery would not
// help.
func (s *Service) HandleObjectCreated(ctx context.Context, ev pipeline.ObjectCreated) error {
	if pipeline.IsDirectoryMarker(ev.Key, ev.Size) || pipeline.IsAuxiliaryKey(ev.Key) {
		s.logger.Debug("Skipping non-deliverable output object", zap.String("key", ev.Key))
		return nil
	}

	jobID, ok := pipeline.JobIDFromOutputKey(ev.Key)
	if !ok {
		s.logger.Warn("Output key carries no job id",
			zap.String("bucket", ev.Bucket),
			zap.String("key", ev.Key))
		return nil
	}

	logger := s.logger.With(
		zap.String("job_id", jobID),
		zap.String("key", ev.Key))

	rec, matches, err := s.jobs.FindByJobID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("resolve job %s: %w", jobID, err)
	}
	if rec == nil {
		logger.Info("No record owns this job id, dropping event")
		return nil
	}
	if matches > 1 {
		logger.Warn("Multiple records share a job id, completing the oldest",
			zap.Int("matches", matches),
			zap.String("request_id", rec.RequestID))
	}

	updated, err := s.jobs.MarkComplete(ctx, rec.RequestID, ev.Bucket, ev.Key)
	if err != nil {
		return fmt.Errorf("mark complete %s: %w", rec.RequestID, err)
	}
	if !updated {
		logger.Debug("Record already terminal, ignoring replayed completion",
			zap.String("request_id", rec.RequestID))
		return nil
	}

	logger.Info("Translation complete",
		zap.String("request_id", rec.RequestID),
		zap.String("target_language", rec.TargetLanguage))

	if err := s.publisher.Publish(ctx, "Translation complete", completeMessage{
		Event:          "translation_complete",
		RequestID:      rec.RequestID,
		JobID:          jobID,
		TargetLanguage: rec.TargetLanguage,
		OutputBucket:   ev.Bucket,
		OutputKey:      ev.Key,
	}); err != nil {
		logger.Warn("Advisory notification failed", zap.Error(err))
	}

	return nil
}
