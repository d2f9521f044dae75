// Package status resolves the client-facing state of a translation request.
//
// The job record is the source of truth, but completion notifications can be
// lost. For in-flight requests the resolver also asks the translation service
// directly and, when the job finished without a completion event arriving,
// reconciles the record in the same call.
package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/lingoflow/pkg/doctype"
	"github.com/3leaps/lingoflow/pkg/jobstore"
	"github.com/3leaps/lingoflow/pkg/pipeline"
	"github.com/3leaps/lingoflow/pkg/storage"
	"github.com/3leaps/lingoflow/pkg/translate"
)

// Config configures status resolution.
type Config struct {
	// PresignExpiry bounds download URLs. Default: 1 hour.
	PresignExpiry time.Duration
}

// DefaultConfig returns the default resolver configuration.
func DefaultConfig() Config {
	return Config{PresignExpiry: time.Hour}
}

// Resolver answers status queries for translation requests.
type Resolver struct {
	jobs       *jobstore.Store
	translator translate.Translator
	output     storage.Store
	presigner  storage.Presigner
	config     Config
	logger     *zap.Logger
}

// New creates a status resolver. output and presigner must be scoped to the
// translation output bucket.
func New(jobs *jobstore.Store, translator translate.Translator, output storage.Store, presigner storage.Presigner, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = DefaultConfig().PresignExpiry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		jobs:       jobs,
		translator: translator,
		output:     output,
		presigner:  presigner,
		config:     cfg,
		logger:     logger,
	}
}

// Response is the client-facing view of a request.
type Response struct {
	RequestID      string          `json:"request_id"`
	Status         jobstore.Status `json:"status"`
	JobID          string          `json:"job_id,omitempty"`
	TargetLanguage string          `json:"target_language,omitempty"`
	DownloadURL    string          `json:"download_url,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Resolve reports the current state of a request.
//
// Unknown request ids resolve to pending rather than an error: the upload
// notification may simply not have been processed yet, and clients are
// expected to poll. Reconciliation failures degrade to the stored state.
func (r *Resolver) Resolve(ctx context.Context, requestID string) (*Response, error) {
	rec, err := r.jobs.Get(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("read job record: %w", err)
	}
	if rec == nil {
		return &Response{RequestID: requestID, Status: jobstore.StatusPending}, nil
	}
	if rec.Status.Terminal() {
		return r.respond(ctx, rec), nil
	}
	if rec.JobID == "" {
		// Intake has run but the orchestrator has not linked a job yet.
		return r.respond(ctx, rec), nil
	}

	reconciled, err := r.reconcile(ctx, rec)
	if err != nil {
		r.logger.Warn("Status reconciliation failed, reporting stored state",
			zap.String("request_id", rec.RequestID),
			zap.String("job_id", rec.JobID),
			zap.Error(err))
		return r.respond(ctx, rec), nil
	}
	return r.respond(ctx, reconciled), nil
}

// reconcile asks the translation service for the live job state and folds a
// missed completion or failure back into the record. Returns the record to
// report from, which is the input record when nothing changed.
func (r *Resolver) reconcile(ctx context.Context, rec *jobstore.JobRecord) (*jobstore.JobRecord, error) {
	status, err := r.translator.DescribeJob(ctx, rec.JobID)
	if err != nil {
		return nil, fmt.Errorf("describe job: %w", err)
	}

	switch {
	case status.Done():
		key, err := r.findOutputKey(ctx, rec.JobID)
		if err != nil {
			return nil, err
		}
		if key == "" {
			// The job finished but the deliverable has not surfaced yet.
			return rec, nil
		}
		if _, err := r.jobs.MarkComplete(ctx, rec.RequestID, r.output.Bucket(), key); err != nil {
			return nil, err
		}
		r.logger.Info("Reconciled missed completion",
			zap.String("request_id", rec.RequestID),
			zap.String("job_id", rec.JobID),
			zap.String("output_key", key))

	case status == translate.JobStatusFailed || status == translate.JobStatusStopped:
		msg := fmt.Sprintf("translation job %s reported %s", rec.JobID, status)
		if err := r.jobs.MarkFailed(ctx, rec.RequestID, msg); err != nil {
			return nil, err
		}

	default:
		return rec, nil
	}

	updated, err := r.jobs.Get(ctx, rec.RequestID)
	if err != nil {
		return nil, fmt.Errorf("reread job record: %w", err)
	}
	if updated == nil {
		return rec, nil
	}
	return updated, nil
}

// findOutputKey locates the deliverable for a job in the output bucket.
// Auxiliary artifacts and directory markers are filtered out; when several
// candidates remain the largest object wins, the deliverable being the
// document itself rather than a manifest.
func (r *Resolver) findOutputKey(ctx context.Context, jobID string) (string, error) {
	marker := pipeline.OutputJobMarker + jobID

	var best storage.ObjectSummary
	token := ""
	for {
		page, err := r.output.List(ctx, storage.ListOptions{ContinuationToken: token})
		if err != nil {
			return "", fmt.Errorf("list output bucket: %w", err)
		}
		for _, obj := range page.Objects {
			if !strings.Contains(obj.Key, marker) {
				continue
			}
			if pipeline.IsAuxiliaryKey(obj.Key) || pipeline.IsDirectoryMarker(obj.Key, obj.Size) {
				continue
			}
			if obj.Size > best.Size || best.Key == "" {
				best = obj
			}
		}
		if page.ContinuationToken == "" {
			break
		}
		token = page.ContinuationToken
	}

	return best.Key, nil
}

// respond renders a record, attaching a presigned download URL for completed
// requests. A presign failure downgrades to a response without a URL.
func (r *Resolver) respond(ctx context.Context, rec *jobstore.JobRecord) *Response {
	resp := &Response{
		RequestID:      rec.RequestID,
		Status:         rec.Status,
		JobID:          rec.JobID,
		TargetLanguage: rec.TargetLanguage,
		Error:          rec.Error,
	}

	if rec.Status == jobstore.StatusComplete && rec.OutputKey != "" && r.presigner != nil {
		name := downloadFilename(rec.OriginalFilename, rec.TargetLanguage, rec.OutputKey)
		url, err := r.presigner.PresignGet(ctx, rec.OutputKey, storage.PresignGetOptions{
			Expiry:             r.config.PresignExpiry,
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", name),
			ContentType:        doctype.ContentTypeForExt(doctype.Ext(rec.OutputKey)),
		})
		if err != nil {
			r.logger.Warn("Presigning download failed",
				zap.String("request_id", rec.RequestID),
				zap.Error(err))
		} else {
			resp.DownloadURL = url
		}
	}

	return resp
}

// downloadFilename builds the client-facing filename: the original basename
// tagged with the target language, carrying the deliverable's extension.
// PDFs translate into plain text, so the extension comes from the output key
// rather than the upload.
func downloadFilename(original, lang, outputKey string) string {
	ext := doctype.Ext(outputKey)
	base := strings.TrimSuffix(original, doctype.Ext(original))
	if base == "" {
		base = "document"
	}
	return fmt.Sprintf("%s_translated_%s%s", base, lang, ext)
}
