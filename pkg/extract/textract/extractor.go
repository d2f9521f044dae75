// Package textract implements the extraction interface on Amazon Textract's
// asynchronous document-text-detection API.
package textract

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/3leaps/lingoflow/pkg/extract"
)

// Config configures the Textract client.
type Config struct {
	// Region is the AWS region. Empty defers to the SDK default chain.
	Region string

	// Profile is the AWS profile name to use from shared config.
	Profile string
}

// Extractor drives asynchronous text detection jobs on Amazon Textract.
type Extractor struct {
	client *textract.Client
}

var _ extract.Extractor = (*Extractor)(nil)

// New creates a Textract-backed extractor using the SDK default credential chain.
func New(ctx context.Context, cfg Config) (*Extractor, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Extractor{client: textract.NewFromConfig(awsCfg)}, nil
}

// NewFromClient wraps an existing Textract client.
func NewFromClient(client *textract.Client) *Extractor {
	return &Extractor{client: client}
}

// Submit starts an asynchronous text detection job for the referenced document.
func (e *Extractor) Submit(ctx context.Context, doc extract.DocumentRef) (string, error) {
	out, err := e.client.StartDocumentTextDetection(ctx, &textract.StartDocumentTextDetectionInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{
				Bucket: aws.String(doc.Bucket),
				Name:   aws.String(doc.Key),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("start text detection for s3://%s/%s: %w", doc.Bucket, doc.Key, err)
	}
	return aws.ToString(out.JobId), nil
}

// Poll reports job state and returns one page of line text once the job
// has succeeded.
func (e *Extractor) Poll(ctx context.Context, token, pageToken string) (*extract.PollResult, error) {
	input := &textract.GetDocumentTextDetectionInput{
		JobId: aws.String(token),
	}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := e.client.GetDocumentTextDetection(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get text detection %s: %w", token, err)
	}

	result := &extract.PollResult{
		State:         mapJobStatus(out.JobStatus),
		StatusMessage: aws.ToString(out.StatusMessage),
	}
	if out.NextToken != nil {
		result.NextPageToken = *out.NextToken
	}

	if result.State != extract.JobStateSucceeded {
		return result, nil
	}

	for _, block := range out.Blocks {
		if block.BlockType != types.BlockTypeLine {
			continue
		}
		if text := aws.ToString(block.Text); text != "" {
			result.Lines = append(result.Lines, text)
		}
	}

	return result, nil
}

// mapJobStatus converts Textract job statuses to the extraction lifecycle.
// Partial success still carries usable text, so it maps to succeeded.
func mapJobStatus(status types.JobStatus) extract.JobState {
	switch status {
	case types.JobStatusSucceeded, types.JobStatusPartialSuccess:
		return extract.JobStateSucceeded
	case types.JobStatusFailed:
		return extract.JobStateFailed
	default:
		return extract.JobStatePending
	}
}
