package intake

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3leaps/lingoflow/pkg/jobstore"
	"github.com/3leaps/lingoflow/pkg/pipeline"
	"github.com/3leaps/lingoflow/pkg/storage"
	"github.com/3leaps/lingoflow/pkg/translate"
)

type fakeStore struct {
	puts map[string]putCall
}

type putCall struct {
	body []byte
	opts storage.PutOptions
}

func newFakeStore() *fakeStore {
	return &fakeStore{puts: make(map[string]putCall)}
}

func (f *fakeStore) Put(ctx context.Context, key string, body []byte, opts storage.PutOptions) error {
	f.puts[key] = putCall{body: body, opts: opts}
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	call, ok := f.puts[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return call.body, nil
}

func (f *fakeStore) Head(ctx context.Context, key string) (*storage.ObjectMeta, error) {
	call, ok := f.puts[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.ObjectMeta{
		ObjectSummary: storage.ObjectSummary{Key: key, Size: int64(len(call.body))},
		ContentType:   call.opts.ContentType,
		Metadata:      call.opts.Metadata,
	}, nil
}

func (f *fakeStore) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	return &storage.ListResult{}, nil
}

func (f *fakeStore) Bucket() string { return "test-input" }
func (f *fakeStore) Close() error   { return nil }

type fakePresigner struct{}

func (fakePresigner) PresignGet(ctx context.Context, key string, opts storage.PresignGetOptions) (string, error) {
	return "https://example.test/get/" + key, nil
}

func (fakePresigner) PresignPut(ctx context.Context, key string, opts storage.PresignPutOptions) (string, error) {
	return "https://example.test/put/" + key, nil
}

type fakeTranslator struct {
	syncCalls int
	syncErr   error
}

func (f *fakeTranslator) TranslateSync(ctx context.Context, req translate.SyncRequest) ([]byte, error) {
	f.syncCalls++
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return append([]byte("translated:"), req.Content...), nil
}

func (f *fakeTranslator) StartBatch(ctx context.Context, req translate.BatchRequest) (string, error) {
	return "job-1", nil
}

func (f *fakeTranslator) DescribeJob(ctx context.Context, jobID string) (translate.JobStatus, error) {
	return translate.JobStatusInProgress, nil
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeTranslator, *jobstore.Store) {
	t.Helper()
	jobs, err := jobstore.Open(context.Background(), jobstore.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Close() })

	store := newFakeStore()
	translator := &fakeTranslator{}
	svc := New(store, fakePresigner{}, translator, jobs, Config{
		SyncThresholdBytes: 64,
		MaxPayloadBytes:    1024,
	}, zap.NewNop())
	return svc, store, translator, jobs
}

func TestSubmit_FastPathReturnsBytesInline(t *testing.T) {
	svc, store, translator, jobs := newTestService(t)

	res, err := svc.Submit(context.Background(), Request{
		Filename:       "page.html",
		TargetLanguage: "es",
		Content:        []byte("<p>hello</p>"),
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("translated:<p>hello</p>"), res.Translated)
	assert.Equal(t, "text/html", res.ContentType)
	assert.Empty(t, res.RequestID)
	assert.Equal(t, 1, translator.syncCalls)

	// No object stored and no record created on the fast path.
	assert.Empty(t, store.puts)
	rec, _, err := jobs.FindByJobID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSubmit_SizeBoundary(t *testing.T) {
	t.Run("one byte under threshold goes sync", func(t *testing.T) {
		svc, store, translator, _ := newTestService(t)

		res, err := svc.Submit(context.Background(), Request{
			Filename: "doc.txt",
			Content:  bytes.Repeat([]byte("a"), 63),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Translated)
		assert.Equal(t, 1, translator.syncCalls)
		assert.Empty(t, store.puts)
	})

	t.Run("exactly threshold goes async", func(t *testing.T) {
		svc, store, translator, _ := newTestService(t)

		res, err := svc.Submit(context.Background(), Request{
			Filename: "doc.txt",
			Content:  bytes.Repeat([]byte("a"), 64),
		})
		require.NoError(t, err)
		assert.Nil(t, res.Translated)
		assert.NotEmpty(t, res.RequestID)
		assert.Zero(t, translator.syncCalls)
		assert.Len(t, store.puts, 1)
	})
}

func TestSubmit_PDFAlwaysAsync(t *testing.T) {
	svc, store, translator, jobs := newTestService(t)

	res, err := svc.Submit(context.Background(), Request{
		Filename:       "small.pdf",
		TargetLanguage: "fr",
		Content:        []byte("%PDF-1.4 tiny"),
	})
	require.NoError(t, err)

	assert.Zero(t, translator.syncCalls)
	require.NotEmpty(t, res.RequestID)
	assert.Equal(t, pipeline.UploadKey(res.RequestID, "small.pdf"), res.Key)

	call := store.puts[res.Key]
	assert.Equal(t, "application/pdf", call.opts.ContentType)
	assert.Equal(t, "fr", call.opts.Metadata[pipeline.MetaTargetLanguage])
	assert.Equal(t, "auto", call.opts.Metadata[pipeline.MetaSourceLanguage])

	rec, err := jobs.Get(context.Background(), res.RequestID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, jobstore.StatusProcessing, rec.Status)
	assert.Equal(t, "fr", rec.TargetLanguage)
	assert.Equal(t, "small.pdf", rec.OriginalFilename)
}

func TestSubmit_Rejections(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
	}{
		{"unsupported extension", Request{Filename: "archive.zip", Content: []byte("x")}},
		{"no extension", Request{Filename: "README", Content: []byte("x")}},
		{"missing filename", Request{Content: []byte("x")}},
		{"path separator in filename", Request{Filename: "../evil.txt", Content: []byte("x")}},
		{"empty payload", Request{Filename: "doc.txt"}},
		{"oversized payload", Request{Filename: "doc.txt", Content: bytes.Repeat([]byte("a"), 2048)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestSubmit_LanguageValidation(t *testing.T) {
	jobs, err := jobstore.Open(context.Background(), jobstore.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Close() })

	svc := New(newFakeStore(), nil, &fakeTranslator{}, jobs, Config{
		ValidateLanguage: func(code string) bool { return code == "es" },
	}, zap.NewNop())

	_, err = svc.Submit(context.Background(), Request{
		Filename:       "doc.txt",
		TargetLanguage: "xx",
		Content:        []byte("hello"),
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "xx")
}

func TestPresignUpload(t *testing.T) {
	svc, _, _, jobs := newTestService(t)

	res, err := svc.PresignUpload(context.Background(), PresignRequest{
		Filename:       "doc.html",
		TargetLanguage: "de",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, pipeline.UploadKey(res.RequestID, "doc.html"), res.Key)
	assert.Contains(t, res.UploadURL, res.Key)

	rec, err := jobs.Get(context.Background(), res.RequestID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, jobstore.StatusProcessing, rec.Status)
}

func TestPresignUpload_NotConfigured(t *testing.T) {
	jobs, err := jobstore.Open(context.Background(), jobstore.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Close() })

	svc := New(newFakeStore(), nil, &fakeTranslator{}, jobs, Config{}, zap.NewNop())

	_, err = svc.PresignUpload(context.Background(), PresignRequest{Filename: "doc.txt"})
	require.Error(t, err)
	assert.False(t, IsValidation(err))
}
