package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3leaps/lingoflow/pkg/extract"
	"github.com/3leaps/lingoflow/pkg/jobstore"
	"github.com/3leaps/lingoflow/pkg/pipeline"
	"github.com/3leaps/lingoflow/pkg/retry"
	"github.com/3leaps/lingoflow/pkg/storage"
	"github.com/3leaps/lingoflow/pkg/translate"
)

type memStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]memObject
	// headMisses makes the first N Head calls per key report absence, to
	// exercise the read-after-write retry.
	headMisses int
	headCalls  map[string]int
}

type memObject struct {
	body []byte
	opts storage.PutOptions
}

func newMemStore(bucket string) *memStore {
	return &memStore{
		bucket:    bucket,
		objects:   make(map[string]memObject),
		headCalls: make(map[string]int),
	}
}

func (m *memStore) put(key string, body []byte, opts storage.PutOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{body: body, opts: opts}
}

func (m *memStore) Put(ctx context.Context, key string, body []byte, opts storage.PutOptions) error {
	m.put(key, body, opts)
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return obj.body, nil
}

func (m *memStore) Head(ctx context.Context, key string) (*storage.ObjectMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.headCalls[key]++
	if m.headCalls[key] <= m.headMisses {
		return nil, storage.ErrNotFound
	}

	obj, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.ObjectMeta{
		ObjectSummary: storage.ObjectSummary{Key: key, Size: int64(len(obj.body))},
		ContentType:   obj.opts.ContentType,
		Metadata:      obj.opts.Metadata,
	}, nil
}

func (m *memStore) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &storage.ListResult{}
	for key, obj := range m.objects {
		if strings.HasPrefix(key, opts.Prefix) {
			res.Objects = append(res.Objects, storage.ObjectSummary{Key: key, Size: int64(len(obj.body))})
		}
	}
	return res, nil
}

func (m *memStore) Bucket() string { return m.bucket }
func (m *memStore) Close() error   { return nil }

type fakeExtractor struct {
	token string
	// polls are returned in order for status polls (empty page token).
	polls   []extract.PollResult
	pollIdx int
	// pages maps page tokens to their result page.
	pages     map[string]extract.PollResult
	submitErr error
}

func (f *fakeExtractor) Submit(ctx context.Context, doc extract.DocumentRef) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.token == "" {
		f.token = "tok-1"
	}
	return f.token, nil
}

func (f *fakeExtractor) Poll(ctx context.Context, token, pageToken string) (*extract.PollResult, error) {
	if pageToken != "" {
		res, ok := f.pages[pageToken]
		if !ok {
			return nil, extract.ErrJobFailed
		}
		return &res, nil
	}
	if f.pollIdx >= len(f.polls) {
		last := f.polls[len(f.polls)-1]
		return &last, nil
	}
	res := f.polls[f.pollIdx]
	f.pollIdx++
	return &res, nil
}

type fakeBatchTranslator struct {
	jobID    string
	startErr error
	requests []translate.BatchRequest
}

func (f *fakeBatchTranslator) TranslateSync(ctx context.Context, req translate.SyncRequest) ([]byte, error) {
	return req.Content, nil
}

func (f *fakeBatchTranslator) StartBatch(ctx context.Context, req translate.BatchRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.startErr != nil {
		return "", f.startErr
	}
	return f.jobID, nil
}

func (f *fakeBatchTranslator) DescribeJob(ctx context.Context, jobID string) (translate.JobStatus, error) {
	return translate.JobStatusInProgress, nil
}

type capturingPublisher struct {
	mu       sync.Mutex
	subjects []string
	messages []any
}

func (p *capturingPublisher) Publish(ctx context.Context, subject string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.messages = append(p.messages, message)
	return nil
}

type orchFixture struct {
	svc        *Service
	input      *memStore
	scratch    *memStore
	extractor  *fakeExtractor
	translator *fakeBatchTranslator
	publisher  *capturingPublisher
	jobs       *jobstore.Store
}

func newFixture(t *testing.T, mutate func(*Config)) *orchFixture {
	t.Helper()
	jobs, err := jobstore.Open(context.Background(), jobstore.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Close() })

	cfg := Config{
		OutputBucket: "out-bucket",
		HeadRetry:    retry.Fixed(3, 0),
		ExtractPoll:  retry.Fixed(5, 0),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	f := &orchFixture{
		input:      newMemStore("in-bucket"),
		scratch:    newMemStore("scratch-bucket"),
		extractor:  &fakeExtractor{},
		translator: &fakeBatchTranslator{jobID: "job-42"},
		publisher:  &capturingPublisher{},
		jobs:       jobs,
	}
	f.svc = New(f.input, f.scratch, f.extractor, f.translator, jobs, f.publisher, cfg, zap.NewNop())
	return f
}

func (f *orchFixture) handle(t *testing.T, key string, size int64) error {
	t.Helper()
	return f.svc.HandleObjectCreated(context.Background(), pipeline.ObjectCreated{
		Bucket: f.input.Bucket(), Key: key, Size: size,
	})
}

func TestHandleObjectCreated_TextUploadStartsBatchJob(t *testing.T) {
	f := newFixture(t, nil)
	key := pipeline.UploadKey("req-1", "report.txt")
	f.input.put(key, []byte("hello world"), storage.PutOptions{
		ContentType: "text/plain",
		Metadata: map[string]string{
			pipeline.MetaTargetLanguage: "de",
			pipeline.MetaSourceLanguage: "en",
		},
	})

	require.NoError(t, f.handle(t, key, 11))

	require.Len(t, f.translator.requests, 1)
	req := f.translator.requests[0]
	assert.Equal(t, "lingoflow-req-1", req.JobName)
	assert.Equal(t, "s3://in-bucket/uploads/req-1/", req.InputURI)
	assert.Equal(t, "s3://out-bucket/", req.OutputURI)
	assert.Equal(t, "text/plain", req.ContentType)
	assert.Equal(t, "en", req.SourceLang)
	assert.Equal(t, []string{"de"}, req.TargetLangs)
	assert.Equal(t, "req-1", req.ClientToken)

	rec, err := f.jobs.Get(context.Background(), "req-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, jobstore.StatusInProgress, rec.Status)
	assert.Equal(t, "job-42", rec.JobID)
	assert.Equal(t, "report.txt", rec.OriginalFilename)

	require.Len(t, f.publisher.subjects, 1)
	assert.Equal(t, "Translation job started", f.publisher.subjects[0])
}

func TestHandleObjectCreated_DefaultsWhenMetadataMissing(t *testing.T) {
	f := newFixture(t, nil)
	key := pipeline.UploadKey("req-2", "page.html")
	f.input.put(key, []byte("<p>hi</p>"), storage.PutOptions{})

	require.NoError(t, f.handle(t, key, 9))

	require.Len(t, f.translator.requests, 1)
	assert.Equal(t, []string{"es"}, f.translator.requests[0].TargetLangs)
	assert.Equal(t, translate.SourceAuto, f.translator.requests[0].SourceLang)
	assert.Equal(t, "text/html", f.translator.requests[0].ContentType)
}

func TestHandleObjectCreated_HeadRetriesTransientAbsence(t *testing.T) {
	f := newFixture(t, nil)
	f.input.headMisses = 2
	key := pipeline.UploadKey("req-3", "doc.txt")
	f.input.put(key, []byte("text"), storage.PutOptions{})

	require.NoError(t, f.handle(t, key, 4))
	require.Len(t, f.translator.requests, 1)
}

func TestHandleObjectCreated_MissingObjectRecordsFailure(t *testing.T) {
	f := newFixture(t, nil)
	key := pipeline.UploadKey("req-4", "doc.txt")

	require.NoError(t, f.handle(t, key, 4))
	assert.Empty(t, f.translator.requests)

	rec, err := f.jobs.Get(context.Background(), "req-4")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, jobstore.StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.Error)
}

func TestHandleObjectCreated_PDFGoesThroughExtraction(t *testing.T) {
	f := newFixture(t, nil)
	f.extractor.polls = []extract.PollResult{
		{State: extract.JobStatePending},
		{State: extract.JobStateSucceeded, Lines: []string{"first line"}, NextPageToken: "p2"},
	}
	f.extractor.pages = map[string]extract.PollResult{
		"p2": {State: extract.JobStateSucceeded, Lines: []string{"second line"}},
	}

	key := pipeline.UploadKey("req-5", "manual.pdf")
	f.input.put(key, []byte("%PDF"), storage.PutOptions{
		Metadata: map[string]string{pipeline.MetaTargetLanguage: "ja"},
	})

	require.NoError(t, f.handle(t, key, 4))

	scratchKey := pipeline.ScratchKey("req-5")
	text, err := f.scratch.Get(context.Background(), scratchKey)
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", string(text))

	require.Len(t, f.translator.requests, 1)
	req := f.translator.requests[0]
	assert.Equal(t, "s3://scratch-bucket/scratch/req-5/", req.InputURI)
	assert.Equal(t, "text/plain", req.ContentType)
	assert.Equal(t, []string{"ja"}, req.TargetLangs)
}

func TestHandleObjectCreated_ExtractionFailureRecorded(t *testing.T) {
	tests := []struct {
		name  string
		polls []extract.PollResult
	}{
		{"job failed", []extract.PollResult{
			{State: extract.JobStateFailed, StatusMessage: "unreadable document"},
		}},
		{"no text", []extract.PollResult{
			{State: extract.JobStateSucceeded, Lines: []string{"   ", ""}},
		}},
		{"poll budget exceeded", []extract.PollResult{
			{State: extract.JobStatePending},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.extractor.polls = tt.polls

			key := pipeline.UploadKey("req-6", "doc.pdf")
			f.input.put(key, []byte("%PDF"), storage.PutOptions{})

			require.NoError(t, f.handle(t, key, 4))
			assert.Empty(t, f.translator.requests)

			rec, err := f.jobs.Get(context.Background(), "req-6")
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, jobstore.StatusFailed, rec.Status)
		})
	}
}

func TestHandleObjectCreated_StartBatchFailureRecorded(t *testing.T) {
	f := newFixture(t, nil)
	f.translator.startErr = assert.AnError
	key := pipeline.UploadKey("req-7", "doc.txt")
	f.input.put(key, []byte("text"), storage.PutOptions{})

	require.NoError(t, f.handle(t, key, 4))

	rec, err := f.jobs.Get(context.Background(), "req-7")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, jobstore.StatusFailed, rec.Status)
}

func TestHandleObjectCreated_SkipsNonUploadShapes(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.handle(t, "uploads/req-8/", 0))
	require.NoError(t, f.handle(t, "random/key.txt", 10))

	assert.Empty(t, f.translator.requests)
	rec, err := f.jobs.Get(context.Background(), "req-8")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestHandleObjectCreated_FailureNeverOverwritesCompletion(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.jobs.MarkInProgress(ctx, "req-9", "job-9", "es", "doc.txt"))
	updated, err := f.jobs.MarkComplete(ctx, "req-9", "out-bucket", "1-TranslateText-job-9/es.doc.txt")
	require.NoError(t, err)
	require.True(t, updated)

	// Redelivered event for an already-completed request fails on Head
	// (the upload was cleaned up), but the record must stay complete.
	require.NoError(t, f.handle(t, pipeline.UploadKey("req-9", "doc.txt"), 4))

	rec, err := f.jobs.Get(ctx, "req-9")
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatusComplete, rec.Status)
}
