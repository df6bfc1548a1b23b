package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docinsight/constants"
	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/extract"
	"github.com/joseph-ayodele/docinsight/internal/llm"
	"github.com/joseph-ayodele/docinsight/internal/llm/gemini"
	"github.com/joseph-ayodele/docinsight/internal/ocr"
	"github.com/joseph-ayodele/docinsight/internal/testutil"
	"github.com/joseph-ayodele/docinsight/internal/upload"
)

// countingStore counts release attempts on top of a real store.
type countingStore struct {
	*upload.Store
	releases atomic.Int32
}

func (s *countingStore) Release(ctx context.Context, doc upload.Document) error {
	s.releases.Add(1)
	return s.Store.Release(ctx, doc)
}

func newStore(t *testing.T) *countingStore {
	t.Helper()
	return &countingStore{Store: upload.NewStore(common.UploadConfig{BaseURL: "file://" + t.TempDir(), MaxBytes: 1 << 20}, nil)}
}

type fakeExtractor struct {
	text  string
	err   error
	panic bool
}

func (f fakeExtractor) Extract(context.Context, []byte, constants.ContentType) (extract.Result, error) {
	if f.panic {
		panic("extractor exploded")
	}
	if f.err != nil {
		return extract.Result{}, f.err
	}
	return extract.Result{Text: f.text, Format: constants.FormatPDF, Pages: 1}, nil
}

type fakeDirectory struct {
	models      []llm.ModelDescriptor
	err         error
	calls       int
	invalidated int
}

func (f *fakeDirectory) ListCapableModels(context.Context, string) ([]llm.ModelDescriptor, error) {
	f.calls++
	return f.models, f.err
}

func (f *fakeDirectory) Invalidate(string) { f.invalidated++ }

type fakeEnricher struct {
	raw   string
	err   error
	panic bool
	model string
}

func (f *fakeEnricher) Enrich(_ context.Context, _ string, modelID, _ string) (string, error) {
	if f.panic {
		panic("enricher exploded")
	}
	f.model = modelID
	return f.raw, f.err
}

var flash = []llm.ModelDescriptor{{Name: "models/gemini-2.5-flash", SupportedGenerationMethods: []string{llm.GenerateContentMethod}}}

const goodRaw = "```json\n{\"summary\":\"Greeting\",\"sentiment\":\"Neutral\",\"hashtags\":[\"hello\"],\"key_points\":[\"Add emojis\"],\"engagement_prediction\":40}\n```"

func enrichCfg() EnrichConfig {
	return EnrichConfig{Credential: "k", Preferences: common.DefaultModelPreferences, VendorMarker: "gemini", Timeout: time.Second}
}

func process(t *testing.T, p *Processor) (Result, error) {
	t.Helper()
	return p.ProcessBytes(context.Background(), "doc.pdf", constants.ContentTypePDF, strings.NewReader("%PDF"))
}

func TestProcess_Success(t *testing.T) {
	store := newStore(t)
	dir := &fakeDirectory{models: flash}
	enr := &fakeEnricher{raw: goodRaw}
	p := NewProcessor(nil, store, fakeExtractor{text: "Hello World"}, NewEnrichStage(nil, enrichCfg(), dir, enr))

	res, err := process(t, p)
	require.NoError(t, err)

	assert.Equal(t, constants.StateCompleted, res.State)
	assert.Equal(t, "Hello World", res.Extraction.Text)
	require.NotNil(t, res.Enrichment)
	assert.Equal(t, "models/gemini-2.5-flash", res.Enrichment.Model)
	assert.Equal(t, "models/gemini-2.5-flash", enr.model)
	assert.Equal(t, []string{"hello"}, res.Enrichment.Insight.Hashtags)
	assert.NotEmpty(t, res.RequestID)
	assert.EqualValues(t, 1, store.releases.Load())
}

// checkingDirectory runs check before answering like fakeDirectory.
type checkingDirectory struct {
	fakeDirectory
	check func()
}

func (d *checkingDirectory) ListCapableModels(ctx context.Context, credential string) ([]llm.ModelDescriptor, error) {
	d.check()
	return d.fakeDirectory.ListCapableModels(ctx, credential)
}

func TestProcess_ReleasesBeforeEnrichment(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	doc, err := store.Save(ctx, "doc.pdf", constants.ContentTypePDF, strings.NewReader("%PDF"))
	require.NoError(t, err)

	stillStored := true
	dir := &checkingDirectory{fakeDirectory: fakeDirectory{models: flash}}
	dir.check = func() {
		exists, existsErr := store.Exists(ctx, doc)
		assert.NoError(t, existsErr)
		stillStored = exists
	}
	p := NewProcessor(nil, store, fakeExtractor{text: "Hello World"}, NewEnrichStage(nil, enrichCfg(), dir, &fakeEnricher{raw: goodRaw}))

	res, err := p.Process(ctx, doc)
	require.NoError(t, err)
	require.NotNil(t, res.Enrichment)
	assert.False(t, stillStored, "upload is removed once its bytes are read")
	assert.EqualValues(t, 1, store.releases.Load())
}

func TestProcess_EnrichmentDegrades(t *testing.T) {
	tests := []struct {
		name            string
		dir             *fakeDirectory
		enr             *fakeEnricher
		wantInvalidated int
	}{
		{
			name: "provider unavailable",
			dir:  &fakeDirectory{err: common.NewAppError(common.CodeProviderUnavailable, "list models", errors.New("503"))},
			enr:  &fakeEnricher{},
		},
		{
			name: "unauthorized invalidates directory",
			dir:  &fakeDirectory{err: common.NewAppError(common.CodeProviderUnavailable, "list models", common.ErrUnauthorized)},
			enr:  &fakeEnricher{}, wantInvalidated: 1,
		},
		{
			name:            "no capable model",
			dir:             &fakeDirectory{models: []llm.ModelDescriptor{{Name: "models/other", SupportedGenerationMethods: []string{llm.GenerateContentMethod}}}},
			enr:             &fakeEnricher{},
			wantInvalidated: 1,
		},
		{
			name: "request failed",
			dir:  &fakeDirectory{models: flash},
			enr:  &fakeEnricher{err: common.NewAppError(common.CodeEnrichmentRequestFailed, "generate", errors.New("boom"))},
		},
		{
			name: "malformed output",
			dir:  &fakeDirectory{models: flash},
			enr:  &fakeEnricher{raw: "sorry, I cannot help"},
		},
		{
			name: "enricher panics",
			dir:  &fakeDirectory{models: flash},
			enr:  &fakeEnricher{panic: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			p := NewProcessor(nil, store, fakeExtractor{text: "Hello World"}, NewEnrichStage(nil, enrichCfg(), tt.dir, tt.enr))

			res, err := process(t, p)
			require.NoError(t, err)
			assert.Equal(t, constants.StateCompleted, res.State)
			assert.Equal(t, "Hello World", res.Extraction.Text)
			assert.Nil(t, res.Enrichment)
			assert.Equal(t, tt.wantInvalidated, tt.dir.invalidated)
			assert.EqualValues(t, 1, store.releases.Load())
		})
	}
}

func TestProcess_ExtractionFailure(t *testing.T) {
	store := newStore(t)
	dir := &fakeDirectory{models: flash}
	cause := common.NewAppError(common.CodeExtractionFailed, "pdf extraction failed", errors.New("bad xref"))
	p := NewProcessor(nil, store, fakeExtractor{err: cause}, NewEnrichStage(nil, enrichCfg(), dir, &fakeEnricher{}))

	res, err := process(t, p)
	require.Error(t, err)
	assert.Equal(t, common.CodeExtractionFailed, common.CodeOf(err))
	assert.Equal(t, constants.StateFailed, res.State)
	assert.Zero(t, dir.calls, "enrichment never starts after a failed extraction")
	assert.EqualValues(t, 1, store.releases.Load())
}

func TestProcess_ReleasesOnPanic(t *testing.T) {
	store := newStore(t)
	p := NewProcessor(nil, store, fakeExtractor{panic: true}, nil)

	doc, err := store.Save(context.Background(), "doc.pdf", constants.ContentTypePDF, strings.NewReader("%PDF"))
	require.NoError(t, err)

	assert.Panics(t, func() { _, _ = p.Process(context.Background(), doc) })
	assert.EqualValues(t, 1, store.releases.Load())

	ok, err := store.Exists(context.Background(), doc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcess_SkipsEnrichment(t *testing.T) {
	t.Run("no credential", func(t *testing.T) {
		dir := &fakeDirectory{models: flash}
		cfg := enrichCfg()
		cfg.Credential = ""
		p := NewProcessor(nil, newStore(t), fakeExtractor{text: "x"}, NewEnrichStage(nil, cfg, dir, &fakeEnricher{raw: goodRaw}))

		res, err := process(t, p)
		require.NoError(t, err)
		assert.Nil(t, res.Enrichment)
		assert.Zero(t, dir.calls)
	})
	t.Run("empty text", func(t *testing.T) {
		dir := &fakeDirectory{models: flash}
		p := NewProcessor(nil, newStore(t), fakeExtractor{text: ""}, NewEnrichStage(nil, enrichCfg(), dir, &fakeEnricher{raw: goodRaw}))

		res, err := process(t, p)
		require.NoError(t, err)
		assert.Equal(t, constants.StateCompleted, res.State)
		assert.Nil(t, res.Enrichment)
		assert.Zero(t, dir.calls)
	})
	t.Run("nil stage", func(t *testing.T) {
		p := NewProcessor(nil, newStore(t), fakeExtractor{text: "x"}, nil)
		res, err := process(t, p)
		require.NoError(t, err)
		assert.Nil(t, res.Enrichment)
	})
}

func TestEnrichStage_Timeout(t *testing.T) {
	slow := &slowDirectory{}
	cfg := enrichCfg()
	cfg.Timeout = 20 * time.Millisecond
	s := NewEnrichStage(nil, cfg, slow, &fakeEnricher{})

	start := time.Now()
	_, err := s.Run(context.Background(), "text")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

type slowDirectory struct{}

func (slowDirectory) ListCapableModels(ctx context.Context, _ string) ([]llm.ModelDescriptor, error) {
	<-ctx.Done()
	return nil, common.NewAppError(common.CodeProviderUnavailable, "list models", ctx.Err())
}

func TestProcess_EndToEndHelloWorldPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/models":
			_, _ = io.WriteString(w, `{"models":[{"name":"models/gemini-2.5-flash","supportedGenerationMethods":["generateContent"]}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/models/gemini-2.5-flash:generateContent":
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"summary\":\"Greeting\",\"sentiment\":\"Neutral\",\"hashtags\":[\"hello\"],\"key_points\":[\"Add emojis\"],\"engagement_prediction\":40}"}]}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client := gemini.NewClient(gemini.Config{BaseURL: srv.URL, Temperature: 0.6, MaxOutputTokens: 2048, Timeout: 2 * time.Second}, nil)
	dispatcher := extract.NewDispatcher(
		extract.NewOCRAdapter(ocr.NewPDFExtractor(ocr.Config{}, nil)),
		extract.NewOCRAdapter(ocr.NewImageExtractor(ocr.Config{}, nil)),
		nil,
	)
	store := newStore(t)
	p := NewProcessor(nil, store, dispatcher, NewEnrichStage(nil, enrichCfg(), client, client))

	res, err := p.ProcessBytes(context.Background(), "hello.pdf", constants.ContentTypePDF, strings.NewReader(string(testutil.BuildPDF("Hello World"))))
	require.NoError(t, err)

	assert.Equal(t, "Hello World", res.Extraction.Text)
	require.NotNil(t, res.Enrichment)
	require.NotNil(t, res.Enrichment.Insight.Clamped())
	assert.Equal(t, 40, *res.Enrichment.Insight.Clamped())
	assert.Equal(t, []string{"hello"}, res.Enrichment.Insight.Hashtags)
	assert.EqualValues(t, 1, store.releases.Load())
}
