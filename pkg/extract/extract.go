// Package extract defines the text-extraction service abstraction.
//
// Extraction runs as an asynchronous external job: Submit returns a token,
// Poll is called until the job reaches a terminal state, then the remaining
// result pages are drained through the same Poll call. Line-level text
// fragments may be spread across multiple result pages.
package extract

import (
	"context"
	"errors"
)

// JobState is the lifecycle state of an extraction job.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// Terminal reports whether the state will no longer change.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// Sentinel errors for extraction outcomes. These are distinct so callers can
// record precise failure causes.
var (
	// ErrJobFailed indicates the extraction job itself reported failure.
	ErrJobFailed = errors.New("extraction job failed")

	// ErrNoText indicates the job succeeded but produced no extractable text.
	ErrNoText = errors.New("no extractable text found in document")

	// ErrPollBudgetExceeded indicates the job did not reach a terminal state
	// within the caller's poll budget.
	ErrPollBudgetExceeded = errors.New("extraction job did not finish within poll budget")
)

// DocumentRef locates a document blob for extraction.
type DocumentRef struct {
	Bucket string
	Key    string
}

// PollResult is one page of an extraction job's status and output.
type PollResult struct {
	// State is the job lifecycle state as of this poll.
	State JobState

	// Lines holds line-level text fragments from this result page, in
	// document order. Only populated once State is succeeded.
	Lines []string

	// NextPageToken resumes result paging. Empty means no more pages.
	NextPageToken string

	// StatusMessage carries the backend's failure detail, if any.
	StatusMessage string
}

// Extractor abstracts an asynchronous text-extraction service.
type Extractor interface {
	// Submit starts an extraction job against the referenced document and
	// returns an opaque job token.
	Submit(ctx context.Context, doc DocumentRef) (string, error)

	// Poll reports job state and, once succeeded, returns one page of
	// results. Pass pageToken from a previous PollResult to continue paging;
	// empty requests the first page.
	Poll(ctx context.Context, token, pageToken string) (*PollResult, error)
}
