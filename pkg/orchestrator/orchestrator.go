// Package orchestrator reacts to uploads landing in the input bucket: it
// classifies each document, runs PDF text extraction when needed, starts the
// batch translation job, and records the job linkage.
//
// Every handling failure is recorded against the request's job record and
// then acknowledged. Returning an error from the handler only signals that
// the event could not be attributed to a request at all.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/lingoflow/pkg/doctype"
	"github.com/3leaps/lingoflow/pkg/extract"
	"github.com/3leaps/lingoflow/pkg/jobstore"
	"github.com/3leaps/lingoflow/pkg/notify"
	"github.com/3leaps/lingoflow/pkg/pipeline"
	"github.com/3leaps/lingoflow/pkg/retry"
	"github.com/3leaps/lingoflow/pkg/storage"
	"github.com/3leaps/lingoflow/pkg/translate"
)

// Config configures orchestration behavior.
type Config struct {
	// OutputBucket receives batch translation results.
	OutputBucket string

	// DataAccessRole is the role ARN granted to the translation service for
	// reading inputs and writing outputs.
	DataAccessRole string

	// JobNamePrefix labels batch jobs at the provider. Default: "lingoflow-".
	JobNamePrefix string

	// DefaultTargetLanguage applies when the upload carries no language
	// metadata. Default: "es".
	DefaultTargetLanguage string

	// HeadRetry absorbs the read-after-write race between the notification
	// and object visibility. Default: 8 attempts from 250ms, capped at 5s.
	HeadRetry retry.Policy

	// ExtractPoll bounds extraction job polling. Default: 60 attempts at a
	// fixed 5s interval.
	ExtractPoll retry.Policy
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		JobNamePrefix:         "lingoflow-",
		DefaultTargetLanguage: "es",
		HeadRetry:             retry.Backoff(8, 250*time.Millisecond, 5*time.Second),
		ExtractPoll:           retry.Fixed(60, 5*time.Second),
	}
}

// Service is the translation orchestration stage.
type Service struct {
	input      storage.Store
	scratch    storage.Store
	extractor  extract.Extractor
	translator translate.Translator
	jobs       *jobstore.Store
	publisher  notify.Publisher
	config     Config
	logger     *zap.Logger
}

// New creates the orchestrator. publisher may be nil to disable advisory
// notifications; scratch may equal input when a separate scratch bucket is
// not configured.
func New(input, scratch storage.Store, extractor extract.Extractor, translator translate.Translator, jobs *jobstore.Store, publisher notify.Publisher, cfg Config, logger *zap.Logger) *Service {
	def := DefaultConfig()
	if cfg.JobNamePrefix == "" {
		cfg.JobNamePrefix = def.JobNamePrefix
	}
	if cfg.DefaultTargetLanguage == "" {
		cfg.DefaultTargetLanguage = def.DefaultTargetLanguage
	}
	if cfg.HeadRetry.MaxAttempts == 0 {
		cfg.HeadRetry = def.HeadRetry
	}
	if cfg.ExtractPoll.MaxAttempts == 0 {
		cfg.ExtractPoll = def.ExtractPoll
	}
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		input:      input,
		scratch:    scratch,
		extractor:  extractor,
		translator: translator,
		jobs:       jobs,
		publisher:  publisher,
		config:     cfg,
		logger:     logger,
	}
}

// jobStartedMessage is the advisory notification body published when a batch
// job has been started.
type jobStartedMessage struct {
	Event          string `json:"event"`
	RequestID      string `json:"request_id"`
	JobID          string `json:"job_id"`
	TargetLanguage string `json:"target_language"`
	Filename       string `json:"filename"`
}

// HandleObjectCreated processes one upload notification.
//
// Failures after the request id is known are recorded via MarkFailed and
// acknowledged with a nil return; redelivering the event would reproduce the
// same failure, and the status endpoint is the surface that reports it.
func (s *Service) HandleObjectCreated(ctx context.Context, ev pipeline.ObjectCreated) error {
	if pipeline.IsDirectoryMarker(ev.Key, ev.Size) {
		s.logger.Debug("Skipping directory marker", zap.String("key", ev.Key))
		return nil
	}

	requestID, filename, err := pipeline.ParseUploadKey(ev.Key)
	if err != nil {
		s.logger.Warn("Ignoring object outside upload convention",
			zap.String("bucket", ev.Bucket),
			zap.String("key", ev.Key),
			zap.Error(err))
		return nil
	}

	logger := s.logger.With(
		zap.String("request_id", requestID),
		zap.String("key", ev.Key))

	meta, err := s.headUpload(ctx, ev.Key)
	if err != nil {
		return s.fail(ctx, logger, requestID, fmt.Errorf("read upload metadata: %w", err))
	}

	target := meta.Metadata[pipeline.MetaTargetLanguage]
	if target == "" {
		target = s.config.DefaultTargetLanguage
	}
	source := meta.Metadata[pipeline.MetaSourceLanguage]
	if source == "" {
		source = translate.SourceAuto
	}

	class := doctype.Classify(filename)
	if !class.Supported() {
		return s.fail(ctx, logger, requestID,
			fmt.Errorf("unsupported document format %q", doctype.Ext(filename)))
	}

	var inputURI, contentType string
	switch {
	case class.BatchCapable():
		inputURI = pipeline.S3URI(s.input.Bucket(), pipeline.PrefixOf(ev.Key))
		contentType = class.ContentType()

	default:
		// PDFs go through extraction first; batch translation consumes the
		// extracted plain text from the scratch prefix.
		scratchDir, err := s.extractToScratch(ctx, logger, requestID, ev)
		if err != nil {
			return s.fail(ctx, logger, requestID, err)
		}
		inputURI = pipeline.S3URI(s.scratch.Bucket(), scratchDir)
		contentType = "text/plain"
	}

	jobID, err := s.translator.StartBatch(ctx, translate.BatchRequest{
		JobName:        s.config.JobNamePrefix + requestID,
		InputURI:       inputURI,
		OutputURI:      pipeline.S3URI(s.config.OutputBucket, ""),
		ContentType:    contentType,
		DataAccessRole: s.config.DataAccessRole,
		SourceLang:     source,
		TargetLangs:    []string{target},
		ClientToken:    requestID,
	})
	if err != nil {
		return s.fail(ctx, logger, requestID, fmt.Errorf("start batch translation: %w", err))
	}

	if err := s.jobs.MarkInProgress(ctx, requestID, jobID, target, filename); err != nil {
		return err
	}

	logger.Info("Batch translation job started",
		zap.String("job_id", jobID),
		zap.String("target_language", target),
		zap.String("input_uri", inputURI))

	if err := s.publisher.Publish(ctx, "Translation job started", jobStartedMessage{
		Event:          "translation_started",
		RequestID:      requestID,
		JobID:          jobID,
		TargetLanguage: target,
		Filename:       filename,
	}); err != nil {
		logger.Warn("Advisory notification failed", zap.Error(err))
	}

	return nil
}

// headUpload reads object metadata, retrying transient absence: the
// notification can outrun object visibility on eventually consistent stores.
func (s *Service) headUpload(ctx context.Context, key string) (*storage.ObjectMeta, error) {
	var meta *storage.ObjectMeta
	err := s.config.HeadRetry.Do(ctx, func(ctx context.Context) error {
		m, err := s.input.Head(ctx, key)
		if err != nil {
			return err
		}
		meta = m
		return nil
	}, storage.IsNotFound)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// errExtractPending drives the poll loop; it never escapes extractToScratch.
var errExtractPending = errors.New("extraction still running")

// extractToScratch runs the full extraction flow for one document: submit,
// poll to a terminal state, drain all result pages, and write the combined
// text to the scratch prefix. Returns the scratch directory the batch job
// should read from.
func (s *Service) extractToScratch(ctx context.Context, logger *zap.Logger, requestID string, ev pipeline.ObjectCreated) (string, error) {
	token, err := s.extractor.Submit(ctx, extract.DocumentRef{Bucket: ev.Bucket, Key: ev.Key})
	if err != nil {
		return "", fmt.Errorf("submit extraction: %w", err)
	}
	logger.Debug("Extraction job submitted", zap.String("token", token))

	var first *extract.PollResult
	err = s.config.ExtractPoll.Do(ctx, func(ctx context.Context) error {
		res, err := s.extractor.Poll(ctx, token, "")
		if err != nil {
			return err
		}
		if !res.State.Terminal() {
			return errExtractPending
		}
		first = res
		return nil
	}, func(err error) bool { return errors.Is(err, errExtractPending) })
	if err != nil {
		if errors.Is(err, retry.ErrBudgetExhausted) {
			return "", fmt.Errorf("%w (token %s)", extract.ErrPollBudgetExceeded, token)
		}
		return "", fmt.Errorf("poll extraction: %w", err)
	}

	if first.State == extract.JobStateFailed {
		if first.StatusMessage != "" {
			return "", fmt.Errorf("%w: %s", extract.ErrJobFailed, first.StatusMessage)
		}
		return "", extract.ErrJobFailed
	}

	lines := first.Lines
	for pageToken := first.NextPageToken; pageToken != ""; {
		res, err := s.extractor.Poll(ctx, token, pageToken)
		if err != nil {
			return "", fmt.Errorf("drain extraction results: %w", err)
		}
		lines = append(lines, res.Lines...)
		pageToken = res.NextPageToken
	}

	text := strings.Join(lines, "\n")
	if strings.TrimSpace(text) == "" {
		return "", extract.ErrNoText
	}

	scratchKey := pipeline.ScratchKey(requestID)
	err = s.scratch.Put(ctx, scratchKey, []byte(text), storage.PutOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return "", fmt.Errorf("write extracted text: %w", err)
	}

	logger.Info("Extracted text staged for translation",
		zap.String("scratch_key", scratchKey),
		zap.Int("lines", len(lines)))

	return pipeline.ScratchDir(requestID), nil
}

// fail records the failure on the job record and acknowledges the event.
// Only a job store write failure propagates, so the event can be retried
// against a healthy store.
func (s *Service) fail(ctx context.Context, logger *zap.Logger, requestID string, cause error) error {
	logger.Error("Orchestration failed", zap.Error(cause))
	if err := s.jobs.MarkFailed(ctx, requestID, cause.Error()); err != nil {
		return fmt.Errorf("record failure for %s: %w", requestID, err)
	}
	return nil
}
