package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ppiankov/claimcheck/internal/analytics"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/search"
	"github.com/ppiankov/claimcheck/internal/store"
)

const (
	feedSource = "https://feed.example/rss"
	downSource = "https://down.example/news"
)

const rateFeed = `<?xml version="1.0"?>
<rss><channel>
<item>
  <title>Central bank raises overnight policy rate</title>
  <link>https://feed.example/news/opr</link>
  <description>The central bank raised the overnight policy rate by 25 basis points.</description>
</item>
<item>
  <title>Quarterly GDP report</title>
  <link>https://feed.example/news/gdp</link>
  <description>The economy grew in the third quarter.</description>
</item>
</channel></rss>`

type fakeAnalyzer struct {
	phrases []string
	lang    string
	err     error
}

func (a *fakeAnalyzer) Name() string { return "fake" }

func (a *fakeAnalyzer) Analyze(_ context.Context, _ string, _ string) (*analytics.Result, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &analytics.Result{Language: a.lang, KeyPhrases: a.phrases}, nil
}

type fakeProvider struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, req.Prompt)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.GenerateResponse{Text: p.text, Model: "fake-model"}, nil
}

func (p *fakeProvider) IsAvailable(context.Context) bool { return true }

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

type memStore struct {
	mu      sync.Mutex
	records []*model.VerdictRecord
	err     error
}

func (s *memStore) Put(_ context.Context, rec *model.VerdictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type failingIndex struct{}

func (failingIndex) Index(context.Context, *model.VerdictRecord) error {
	return errors.New("index unavailable")
}

type fixture struct {
	fetcher  *fakeFetcher
	analyzer *fakeAnalyzer
	provider *fakeProvider
	store    *memStore
	pipeline *Pipeline
}

func newFixture(t *testing.T, index Indexer) *fixture {
	t.Helper()

	cfg := model.DefaultConfig()
	cfg.Sources = []string{feedSource, downSource}
	cfg.LLM.Model = "fake-model"

	f := &fixture{
		fetcher:  newFakeFetcher(),
		analyzer: &fakeAnalyzer{phrases: []string{"central bank", "overnight policy rate"}, lang: "en-US"},
		provider: &fakeProvider{text: `{"verdict":"Supported","confidence":0.9,"used":[1],"explanation":"doc 1 confirms the rate rise"}`},
		store:    &memStore{},
	}
	f.fetcher.feed(feedSource, rateFeed)
	f.fetcher.fail(downSource, &model.FetchError{URL: downSource, StatusCode: 503})

	logger := zaptest.NewLogger(t)
	f.pipeline = NewPipeline(cfg, Deps{
		Fetcher:    f.fetcher,
		Analyzer:   f.analyzer,
		Classifier: llm.NewClassifier(f.provider, logger),
		Store:      f.store,
		Index:      index,
		Logger:     logger,
	})
	f.pipeline.newID = func() string { return "fixed-id" }
	return f
}

func TestVerify_TextClaim(t *testing.T) {
	f := newFixture(t, nil)

	rec, err := f.pipeline.Verify(context.Background(), Request{Text: "The central bank raised the overnight policy rate"})
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", rec.ID)
	assert.Equal(t, "central bank, overnight policy rate", rec.Claim)
	assert.Equal(t, model.VerdictSupported, rec.Verdict)
	assert.InDelta(t, 0.9, rec.Confidence, 1e-9)
	assert.Equal(t, []int{1}, rec.Used)
	assert.Equal(t, "en", rec.Language)
	assert.Equal(t, "fake", rec.Provider)
	assert.Equal(t, "fake-model", rec.Model)
	assert.False(t, rec.CreatedAt.IsZero())

	require.Len(t, rec.Evidence, 1)
	assert.Equal(t, "https://feed.example/news/opr", rec.Evidence[0].URL)
	assert.Contains(t, rec.Evidence[0].Snippet, "25 basis points")

	require.Equal(t, 1, f.store.len())
	require.Equal(t, 1, f.provider.calls())
	prompt := f.provider.prompts[0]
	assert.Contains(t, prompt, "central bank, overnight policy rate")
	assert.Contains(t, prompt, "[Doc 1]")
	assert.NotContains(t, prompt, "[Doc 2]")
	assert.False(t, f.fetcher.fetched("https://feed.example/news/opr"), "feed snippet should be used as-is")
}

func TestVerify_MissingInput(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.pipeline.Verify(context.Background(), Request{Text: "   "})
	require.Error(t, err)
	assert.True(t, model.IsInputError(err))
	assert.ErrorIs(t, err, model.ErrMissingInput)
	assert.Equal(t, 0, f.store.len())
	assert.Equal(t, 0, f.provider.calls())
}

func TestVerify_InvalidURL(t *testing.T) {
	f := newFixture(t, nil)

	for _, raw := range []string{"not a url", "ftp://files.example/x", "/relative/path"} {
		_, err := f.pipeline.Verify(context.Background(), Request{URL: raw})
		assert.True(t, model.IsInputError(err), "expected input error for %q, got %v", raw, err)
	}
	assert.Equal(t, 0, f.store.len())
}

func TestVerify_NoEvidenceSkipsModel(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.fail(feedSource, errors.New("dns failure"))

	rec, err := f.pipeline.Verify(context.Background(), Request{Text: "The central bank raised rates"})
	require.NoError(t, err)

	assert.Equal(t, model.VerdictUnclear, rec.Verdict)
	assert.Equal(t, model.DefaultConfidence, rec.Confidence)
	assert.Equal(t, NoEvidenceExplanation, rec.Explanation)
	assert.Empty(t, rec.Evidence)
	assert.Equal(t, []int{}, rec.Used)
	assert.Equal(t, 0, f.provider.calls())
	assert.Equal(t, 1, f.store.len())
}

func TestVerify_ModelFailureDegrades(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.err = errors.New("throttled")

	rec, err := f.pipeline.Verify(context.Background(), Request{Text: "The central bank raised the overnight policy rate"})
	require.NoError(t, err)

	assert.Equal(t, model.VerdictUnclear, rec.Verdict)
	assert.Equal(t, model.DefaultConfidence, rec.Confidence)
	assert.Equal(t, ModelFailedExplanation, rec.Explanation)
	assert.Len(t, rec.Evidence, 1)
	assert.Equal(t, 1, f.store.len())
}

func TestVerify_UnparseableModelOutput(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.text = "I think it is probably true."

	rec, err := f.pipeline.Verify(context.Background(), Request{Text: "The central bank raised the overnight policy rate"})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictUnclear, rec.Verdict)
	assert.Equal(t, model.DefaultConfidence, rec.Confidence)
	assert.Equal(t, []int{}, rec.Used)
}

func TestVerify_AnalyticsFailureUsesRawText(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.err = &model.AnalyticsError{Op: "detect_language", Err: errors.New("timeout")}

	text := "Central bank overnight policy rate " + strings.Repeat("padding ", 60)
	rec, err := f.pipeline.Verify(context.Background(), Request{Text: text})
	require.NoError(t, err)

	assert.Equal(t, "en", rec.Language)
	assert.True(t, strings.HasPrefix(rec.Claim, "Central bank overnight policy rate"))
	assert.LessOrEqual(t, len([]rune(rec.Claim)), analytics.SignatureFallbackChars)
}

func TestVerify_URLClaim(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.phrases = nil
	f.fetcher.html("https://news.example/story", "<html><body><script>track()</script><p>Central bank raises overnight policy rate</p></body></html>")

	rec, err := f.pipeline.Verify(context.Background(), Request{URL: "https://news.example/story"})
	require.NoError(t, err)

	assert.Equal(t, "Central bank raises overnight policy rate", rec.Claim)
	assert.Equal(t, "https://news.example/story", rec.URL)
	assert.Equal(t, model.VerdictSupported, rec.Verdict)
}

func TestVerify_URLClaimFromFeed(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.phrases = nil
	f.fetcher.feed("https://news.example/feed.xml", `<?xml version="1.0"?>
<rss><channel><item>
  <title><![CDATA[Central bank raises overnight policy rate]]></title>
  <link>https://news.example/opr</link>
  <description><![CDATA[<p>The rate rose by 25 basis points.</p>]]></description>
</item></channel></rss>`)

	rec, err := f.pipeline.Verify(context.Background(), Request{URL: "https://news.example/feed.xml"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rec.Claim, "Central bank raises overnight policy rate"), "claim: %q", rec.Claim)
	assert.Contains(t, rec.Claim, "25 basis points")
	assert.NotContains(t, rec.Claim, "CDATA")
	assert.NotContains(t, rec.Claim, "]]>")
}

func TestVerify_URLClaimFetchFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.phrases = nil
	f.fetcher.fail("https://gone.example/story", errors.New("connection refused"))

	rec, err := f.pipeline.Verify(context.Background(), Request{URL: "https://gone.example/story"})
	require.NoError(t, err)
	assert.Equal(t, "Content from: https://gone.example/story", rec.Claim)
}

func TestVerify_PersistenceFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.err = errors.New("disk full")

	_, err := f.pipeline.Verify(context.Background(), Request{Text: "The central bank raised the overnight policy rate"})
	require.Error(t, err)
	assert.True(t, model.IsPersistenceError(err))
	assert.False(t, model.IsInputError(err))
}

func TestVerify_IndexFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, failingIndex{})

	rec, err := f.pipeline.Verify(context.Background(), Request{Text: "The central bank raised the overnight policy rate"})
	require.NoError(t, err)
	f.pipeline.Wait()
	assert.Equal(t, model.VerdictSupported, rec.Verdict)
}

func TestVerify_SQLiteAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	index := search.NewRedisIndexWithClient(client, "test", time.Second)
	t.Cleanup(func() { _ = index.Close() })

	db, err := store.Open(context.Background(), model.StoreConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "claims.db"),
		Table:  "claims",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := newFixture(t, index)
	f.pipeline.store = db

	rec, err := f.pipeline.Verify(context.Background(), Request{Text: "The central bank raised the overnight policy rate", ID: "req-1"})
	require.NoError(t, err)
	assert.Equal(t, "req-1", rec.ID)
	f.pipeline.Wait()

	stored, err := db.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Verdict, stored.Verdict)
	assert.Equal(t, rec.Claim, stored.Claim)

	hits, err := index.Search(context.Background(), "overnight policy", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "req-1", hits[0].ID)

	// Records are append-only: a repeated id is rejected.
	_, err = f.pipeline.Verify(context.Background(), Request{Text: "Another claim entirely", ID: "req-1"})
	require.Error(t, err)
	assert.True(t, model.IsPersistenceError(err))
	assert.ErrorIs(t, err, store.ErrDuplicateID)
}

func TestVerifyInput(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.phrases = nil
	f.fetcher.html("https://news.example/story", "<p>Central bank raises overnight policy rate</p>")

	rec, err := f.pipeline.VerifyInput(context.Background(), "  https://news.example/story ")
	require.NoError(t, err)
	assert.Equal(t, "https://news.example/story", rec.URL)

	rec, err = f.pipeline.VerifyInput(context.Background(), "central bank overnight policy rate")
	require.NoError(t, err)
	assert.Empty(t, rec.URL)
	assert.Equal(t, "central bank overnight policy rate", rec.Claim)
}
