// Package sns implements the advisory publisher on Amazon SNS.
package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/3leaps/lingoflow/pkg/notify"
)

// Config configures the SNS publisher.
type Config struct {
	// TopicARN is the topic every message is published to (required).
	TopicARN string

	// Region is the AWS region. Empty defers to the SDK default chain.
	Region string

	// Profile is the AWS profile name to use from shared config.
	Profile string
}

// Publisher publishes JSON-encoded advisory messages to a single SNS topic.
type Publisher struct {
	client   *awssns.Client
	topicARN string
}

var _ notify.Publisher = (*Publisher)(nil)

// New creates an SNS publisher using the SDK default credential chain.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.TopicARN == "" {
		return nil, fmt.Errorf("sns publisher: topic ARN is required")
	}

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

	return &Publisher{
		client:   awssns.NewFromConfig(awsCfg),
		topicARN: cfg.TopicARN,
	}, nil
}

// Publish JSON-encodes message and publishes it under subject.
func (p *Publisher) Publish(ctx context.Context, subject string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = p.client.Publish(ctx, &awssns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.topicARN, err)
	}
	return nil
}
