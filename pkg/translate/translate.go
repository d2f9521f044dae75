// Package translate defines the translation service abstraction.
//
// Two modes are exposed: a synchronous single-document call bounded by a
// small payload size, and an asynchronous batch job over a storage prefix
// identified by an opaque job id that completes out-of-band.
package translate

import (
	"context"
	"errors"
)

// SourceAuto requests source-language auto-detection.
const SourceAuto = "auto"

// JobStatus is the lifecycle state of a batch translation job as reported
// by the external service.
type JobStatus string

const (
	JobStatusSubmitted          JobStatus = "submitted"
	JobStatusInProgress         JobStatus = "in_progress"
	JobStatusCompleted          JobStatus = "completed"
	JobStatusCompletedWithError JobStatus = "completed_with_error"
	JobStatusFailed             JobStatus = "failed"
	JobStatusStopped            JobStatus = "stopped"
	JobStatusUnknown            JobStatus = "unknown"
)

// Terminal reports whether the status will no longer change.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusCompletedWithError, JobStatusFailed, JobStatusStopped:
		return true
	}
	return false
}

// Done reports whether the job finished with output available. Jobs that
// completed with per-document errors still write output for the documents
// that succeeded.
func (s JobStatus) Done() bool {
	return s == JobStatusCompleted || s == JobStatusCompletedWithError
}

// ErrJobNotFound indicates the service has no job with the given id.
var ErrJobNotFound = errors.New("translation job not found")

// SyncRequest is a synchronous single-document translation call.
type SyncRequest struct {
	// Content is the raw document payload. Kept small by callers; the
	// service enforces its own payload ceiling.
	Content []byte

	// ContentType is text/plain or text/html.
	ContentType string

	// SourceLang is a language code, or SourceAuto for detection.
	SourceLang string

	// TargetLang is the language to translate into.
	TargetLang string
}

// BatchRequest starts an asynchronous batch job over a storage prefix.
type BatchRequest struct {
	// JobName labels the job at the provider. Reusing a name is allowed.
	JobName string

	// InputURI is the storage prefix holding documents to translate
	// (e.g. s3://bucket/prefix/).
	InputURI string

	// OutputURI is the storage prefix results are written under.
	OutputURI string

	// ContentType applies to every document under InputURI.
	ContentType string

	// DataAccessRole grants the service read/write access to the buckets.
	DataAccessRole string

	// SourceLang is a language code, or SourceAuto for detection.
	SourceLang string

	// TargetLangs lists languages to translate into.
	TargetLangs []string

	// ClientToken makes retried starts idempotent at the provider.
	// Empty lets the implementation choose.
	ClientToken string
}

// Translator abstracts the external translation service.
type Translator interface {
	// TranslateSync translates a single small document and returns the
	// translated bytes directly.
	TranslateSync(ctx context.Context, req SyncRequest) ([]byte, error)

	// StartBatch starts an asynchronous batch job and returns its id.
	// The job completes out-of-band; watch the output prefix or poll
	// DescribeJob.
	StartBatch(ctx context.Context, req BatchRequest) (string, error)

	// DescribeJob reports current batch job status.
	// Returns ErrJobNotFound for unknown ids.
	DescribeJob(ctx context.Context, jobID string) (JobStatus, error)
}
