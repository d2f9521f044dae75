// Package intake validates and stores inbound documents, choosing between
// the synchronous fast path (small text/HTML translated inline) and the
// asynchronous batch path (stored for the orchestrator, tracked by a job
// record).
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3leaps/lingoflow/pkg/doctype"
	"github.com/3leaps/lingoflow/pkg/jobstore"
	"github.com/3leaps/lingoflow/pkg/pipeline"
	"github.com/3leaps/lingoflow/pkg/storage"
	"github.com/3leaps/lingoflow/pkg/translate"
)

// ValidationError rejects bad client input. It is surfaced synchronously at
// intake with a 4xx-equivalent, never recorded in the job store.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid upload: " + e.Reason
}

// IsValidation reports whether err is a client input rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Config configures intake thresholds and defaults.
type Config struct {
	// SyncThresholdBytes is the exclusive upper bound for the fast path.
	// Payloads of exactly this size take the async path.
	// Default: 100 KiB.
	SyncThresholdBytes int64

	// MaxPayloadBytes is the inclusive ceiling for async uploads.
	// Default: 5 MiB.
	MaxPayloadBytes int64

	// DefaultTargetLanguage applies when the client omits one.
	// Default: "es".
	DefaultTargetLanguage string

	// PresignExpiry bounds direct-upload URLs. Default: 1 hour.
	PresignExpiry time.Duration

	// ValidateLanguage, when set, gates target language codes. Nil accepts
	// any non-empty code.
	ValidateLanguage func(code string) bool
}

// DefaultConfig returns the default intake configuration.
func DefaultConfig() Config {
	return Config{
		SyncThresholdBytes:    100 << 10,
		MaxPayloadBytes:       5 << 20,
		DefaultTargetLanguage: "es",
		PresignExpiry:         time.Hour,
	}
}

// Service is the upload intake stage.
type Service struct {
	store      storage.Store
	presigner  storage.Presigner
	translator translate.Translator
	jobs       *jobstore.Store
	config     Config
	logger     *zap.Logger
}

// New creates the intake service. presigner may be nil when direct uploads
// are not offered.
func New(store storage.Store, presigner storage.Presigner, translator translate.Translator, jobs *jobstore.Store, cfg Config, logger *zap.Logger) *Service {
	def := DefaultConfig()
	if cfg.SyncThresholdBytes <= 0 {
		cfg.SyncThresholdBytes = def.SyncThresholdBytes
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = def.MaxPayloadBytes
	}
	if cfg.DefaultTargetLanguage == "" {
		cfg.DefaultTargetLanguage = def.DefaultTargetLanguage
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = def.PresignExpiry
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:      store,
		presigner:  presigner,
		translator: translator,
		jobs:       jobs,
		config:     cfg,
		logger:     logger,
	}
}

// Request is an inbound document submission.
type Request struct {
	Filename       string
	TargetLanguage string
	SourceLanguage string
	Content        []byte
}

// Result is the intake outcome. Exactly one of Translated or RequestID is
// meaningful: Translated carries fast-path output inline, RequestID points
// at an async job to poll.
type Result struct {
	// RequestID identifies the async job (slow path only).
	RequestID string

	// Key is the stored object key (slow path only).
	Key string

	// Translated holds the fast-path translated document bytes.
	Translated []byte

	// ContentType describes Translated.
	ContentType string
}

// Submit validates a document and either translates it inline or stores it
// for asynchronous processing.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	filename, target, source, class, err := s.validate(req.Filename, req.TargetLanguage, req.SourceLanguage)
	if err != nil {
		return nil, err
	}
	if len(req.Content) == 0 {
		return nil, &ValidationError{Reason: "empty document payload"}
	}

	// Fast path: small text/HTML translates inline, no job record.
	if class.BatchCapable() && int64(len(req.Content)) < s.config.SyncThresholdBytes {
		return s.submitSync(ctx, req.Content, class, source, target)
	}

	if int64(len(req.Content)) > s.config.MaxPayloadBytes {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("payload exceeds %d byte limit", s.config.MaxPayloadBytes),
		}
	}

	requestID := uuid.New().String()
	key := pipeline.UploadKey(requestID, filename)

	err = s.store.Put(ctx, key, req.Content, storage.PutOptions{
		ContentType: doctype.ContentTypeForExt(doctype.Ext(filename)),
		Metadata: map[string]string{
			pipeline.MetaTargetLanguage: target,
			pipeline.MetaSourceLanguage: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	// The initial record is what keeps the status endpoint from reporting
	// "not found" before the orchestrator has seen the object.
	if err := s.jobs.MarkProcessing(ctx, requestID, target, filename); err != nil {
		return nil, fmt.Errorf("write initial job record: %w", err)
	}

	s.logger.Info("Document accepted for async translation",
		zap.String("request_id", requestID),
		zap.String("key", key),
		zap.String("target_language", target),
		zap.Int("size", len(req.Content)))

	return &Result{RequestID: requestID, Key: key}, nil
}

func (s *Service) submitSync(ctx context.Context, content []byte, class doctype.Class, source, target string) (*Result, error) {
	translated, err := s.translator.TranslateSync(ctx, translate.SyncRequest{
		Content:     content,
		ContentType: class.ContentType(),
		SourceLang:  source,
		TargetLang:  target,
	})
	if err != nil {
		return nil, fmt.Errorf("sync translation: %w", err)
	}

	s.logger.Info("Document translated inline",
		zap.String("target_language", target),
		zap.Int("size", len(content)))

	return &Result{Translated: translated, ContentType: class.ContentType()}, nil
}

// PresignRequest asks for a direct-upload URL.
type PresignRequest struct {
	Filename       string
	TargetLanguage string
	SourceLanguage string
}

// PresignResult carries the direct-upload reference.
type PresignResult struct {
	RequestID string
	Key       string
	UploadURL string
}

// PresignUpload issues a time-bounded direct upload URL for the intake
// bucket and writes the initial job record. Direct uploads always take the
// async path.
func (s *Service) PresignUpload(ctx context.Context, req PresignRequest) (*PresignResult, error) {
	if s.presigner == nil {
		return nil, errors.New("direct uploads are not configured")
	}

	filename, target, source, _, err := s.validate(req.Filename, req.TargetLanguage, req.SourceLanguage)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	key := pipeline.UploadKey(requestID, filename)

	url, err := s.presigner.PresignPut(ctx, key, storage.PresignPutOptions{
		Expiry:      s.config.PresignExpiry,
		ContentType: doctype.ContentTypeForExt(doctype.Ext(filename)),
		Metadata: map[string]string{
			pipeline.MetaTargetLanguage: target,
			pipeline.MetaSourceLanguage: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	if err := s.jobs.MarkProcessing(ctx, requestID, target, filename); err != nil {
		return nil, fmt.Errorf("write initial job record: %w", err)
	}

	return &PresignResult{RequestID: requestID, Key: key, UploadURL: url}, nil
}

// validate normalizes and checks the descriptive fields shared by Submit
// and PresignUpload.
func (s *Service) validate(filename, target, source string) (string, string, string, doctype.Class, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", "", "", doctype.ClassUnsupported, &ValidationError{Reason: "filename is required"}
	}
	if strings.Contains(filename, "/") {
		return "", "", "", doctype.ClassUnsupported, &ValidationError{Reason: "filename must not contain path separators"}
	}

	class := doctype.Classify(filename)
	if !class.Supported() {
		return "", "", "", class, &ValidationError{
			Reason: fmt.Sprintf("unsupported format %q; supported: %s",
				doctype.Ext(filename), strings.Join(doctype.SupportedExtensions(), ", ")),
		}
	}

	target = strings.TrimSpace(target)
	if target == "" {
		target = s.config.DefaultTargetLanguage
	}
	if s.config.ValidateLanguage != nil && !s.config.ValidateLanguage(target) {
		return "", "", "", class, &ValidationError{Reason: fmt.Sprintf("unsupported target language %q", target)}
	}

	source = strings.TrimSpace(source)
	if source == "" {
		source = translate.SourceAuto
	}

	return filename, target, source, class, nil
}
