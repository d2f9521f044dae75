// Package awstranslate implements the translation interface on Amazon Translate.
package awstranslate

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awstranslate "github.com/aws/aws-sdk-go-v2/service/translate"
	"github.com/aws/aws-sdk-go-v2/service/translate/types"

	"github.com/3leaps/lingoflow/pkg/translate"
)

// Config configures the Translate client.
type Config struct {
	// Region is the AWS region. Empty defers to the SDK default chain.
	Region string

	// Profile is the AWS profile name to use from shared config.
	Profile string
}

// Translator drives Amazon Translate in both synchronous document mode and
// asynchronous batch mode.
type Translator struct {
	client *awstranslate.Client
}

var _ translate.Translator = (*Translator)(nil)

// New creates an Amazon Translate client using the SDK default credential chain.
func New(ctx context.Context, cfg Config) (*Translator, error) {
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

	return &Translator{client: awstranslate.NewFromConfig(awsCfg)}, nil
}

// NewFromClient wraps an existing Translate client.
func NewFromClient(client *awstranslate.Client) *Translator {
	return &Translator{client: client}
}

// TranslateSync translates a single document and returns the translated bytes.
func (t *Translator) TranslateSync(ctx context.Context, req translate.SyncRequest) ([]byte, error) {
	out, err := t.client.TranslateDocument(ctx, &awstranslate.TranslateDocumentInput{
		Document: &types.Document{
			Content:     req.Content,
			ContentType: aws.String(req.ContentType),
		},
		SourceLanguageCode: aws.String(req.SourceLang),
		TargetLanguageCode: aws.String(req.TargetLang),
	})
	if err != nil {
		return nil, fmt.Errorf("translate document: %w", err)
	}
	if out.TranslatedDocument == nil {
		return nil, fmt.Errorf("translate document: empty result")
	}
	return out.TranslatedDocument.Content, nil
}

// StartBatch starts an asynchronous batch translation job over a prefix.
func (t *Translator) StartBatch(ctx context.Context, req translate.BatchRequest) (string, error) {
	input := &awstranslate.StartTextTranslationJobInput{
		JobName: aws.String(req.JobName),
		InputDataConfig: &types.InputDataConfig{
			S3Uri:       aws.String(req.InputURI),
			ContentType: aws.String(req.ContentType),
		},
		OutputDataConfig: &types.OutputDataConfig{
			S3Uri: aws.String(req.OutputURI),
		},
		DataAccessRoleArn:   aws.String(req.DataAccessRole),
		SourceLanguageCode:  aws.String(req.SourceLang),
		TargetLanguageCodes: req.TargetLangs,
	}
	if req.ClientToken != "" {
		input.ClientToken = aws.String(req.ClientToken)
	}

	out, err := t.client.StartTextTranslationJob(ctx, input)
	if err != nil {
		return "", fmt.Errorf("start batch translation %s: %w", req.JobName, err)
	}
	return aws.ToString(out.JobId), nil
}

// DescribeJob reports the current status of a batch job.
func (t *Translator) DescribeJob(ctx context.Context, jobID string) (translate.JobStatus, error) {
	out, err := t.client.DescribeTextTranslationJob(ctx, &awstranslate.DescribeTextTranslationJobInput{
		JobId: aws.String(jobID),
	})
	if err != nil {
		var rnf *types.ResourceNotFoundException
		if errors.As(err, &rnf) {
			return translate.JobStatusUnknown, translate.ErrJobNotFound
		}
		return translate.JobStatusUnknown, fmt.Errorf("describe translation job %s: %w", jobID, err)
	}
	if out.TextTranslationJobProperties == nil {
		return translate.JobStatusUnknown, fmt.Errorf("describe translation job %s: empty properties", jobID)
	}
	return mapJobStatus(out.TextTranslationJobProperties.JobStatus), nil
}

func mapJobStatus(status types.JobStatus) translate.JobStatus {
	switch status {
	case types.JobStatusSubmitted:
		return translate.JobStatusSubmitted
	case types.JobStatusInProgress:
		return translate.JobStatusInProgress
	case types.JobStatusCompleted:
		return translate.JobStatusCompleted
	case types.JobStatusCompletedWithError:
		return translate.JobStatusCompletedWithError
	case types.JobStatusFailed:
		return translate.JobStatusFailed
	case types.JobStatusStopRequested, types.JobStatusStopped:
		return translate.JobStatusStopped
	default:
		return translate.JobStatusUnknown
	}
}
