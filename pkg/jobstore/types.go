package jobstore

import "time"

// Status is the client-visible lifecycle state of a translation request.
//
// NOTE: These values are persisted and are part of the stable on-disk
// contract. Status only moves forward: pending is implicit (no record),
// processing and in_progress are working states, complete and failed are
// terminal.
type Status string

const (
	// StatusPending is reported for request ids with no record yet. It is
	// never stored.
	StatusPending Status = "pending"

	// StatusProcessing is written at intake, before the orchestrator runs.
	StatusProcessing Status = "processing"

	// StatusInProgress is written once an external translation job has
	// been started.
	StatusInProgress Status = "in_progress"

	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// MaxErrorLen bounds the stored error message so failed records cannot grow
// without limit.
const MaxErrorLen = 500

// TruncateError clamps an error message to MaxErrorLen.
func TruncateError(msg string) string {
	if len(msg) <= MaxErrorLen {
		return msg
	}
	return msg[:MaxErrorLen]
}

// JobRecord is the durable per-request status entry. It is the single
// source of truth for client-visible progress; payload bytes live in the
// object store, linked only by RequestID (in storage keys) and JobID (in
// output paths).
type JobRecord struct {
	// RequestID is the primary key, assigned at intake, immutable.
	RequestID string

	// JobID identifies the external translation job. Empty until the
	// orchestrator starts one.
	JobID string

	Status Status

	// TargetLanguage and OriginalFilename are descriptive metadata set at
	// intake or job start.
	TargetLanguage   string
	OriginalFilename string

	// OutputBucket and OutputKey are set only on transition to complete.
	OutputBucket string
	OutputKey    string

	// Error is set only on transition to failed, truncated to MaxErrorLen.
	Error string

	CreatedAt time.Time
	UpdatedAt time.Time
}
