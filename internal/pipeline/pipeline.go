package pipeline

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/analytics"
	"github.com/ppiankov/claimcheck/internal/extract"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
	"github.com/ppiankov/claimcheck/internal/telemetry"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// Explanations used when the classifier is not consulted or fails
const (
	NoEvidenceExplanation  = "no evidence retrieved from trusted sources"
	ModelFailedExplanation = "model call failed"
)

// indexTimeout bounds the detached search-index write
const indexTimeout = 10 * time.Second

// Classifier judges a rendered prompt
type Classifier interface {
	Classify(ctx context.Context, prompt string, evidenceCount int) (*llm.Result, error)
	ProviderName() string
}

// RecordStore is the required durable store
type RecordStore interface {
	Put(ctx context.Context, rec *model.VerdictRecord) error
}

// Indexer is the best-effort search index
type Indexer interface {
	Index(ctx context.Context, rec *model.VerdictRecord) error
}

// Deps are the collaborators of a Pipeline, constructed once at start-up
type Deps struct {
	Fetcher    DocumentFetcher
	Analyzer   analytics.Analyzer
	Classifier Classifier
	Store      RecordStore
	Index      Indexer // Optional
	Logger     *zap.Logger
}

// Pipeline orchestrates one verification: claim, evidence, verdict, persistence
type Pipeline struct {
	config     *model.Config
	fetcher    DocumentFetcher
	registry   *extract.Registry
	assembler  *Assembler
	analyzer   analytics.Analyzer
	classifier Classifier
	store      RecordStore
	index      Indexer
	logger     *zap.Logger

	now   func() time.Time
	newID func() string

	indexing sync.WaitGroup
}

// Request is one verification request; Text or URL is required
type Request struct {
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
	ID   string `json:"id,omitempty"`
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		config:     cfg,
		fetcher:    deps.Fetcher,
		registry:   extract.NewRegistry(extract.OptionsFromConfig(cfg.Ranking)),
		assembler:  NewAssembler(deps.Fetcher, cfg.Ranking.SnippetChars, cfg.Concurrency.SnippetFetches, logger),
		analyzer:   deps.Analyzer,
		classifier: deps.Classifier,
		store:      deps.Store,
		index:      deps.Index,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Verify runs the full pipeline for one request.
// Only an InputError or a PersistenceError is returned; every other failure
// degrades the evidence or the verdict instead.
func (p *Pipeline) Verify(ctx context.Context, req Request) (*model.VerdictRecord, error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.Verify")
	defer span.End()

	rec, err := p.verify(ctx, req)
	metrics.VerificationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		kind := "other"
		switch {
		case model.IsInputError(err):
			kind = "input"
		case model.IsPersistenceError(err):
			kind = "persistence"
		}
		metrics.VerificationErrors.WithLabelValues(kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.VerificationsTotal.WithLabelValues(string(rec.Verdict)).Inc()
	span.SetAttributes(
		attribute.String("claimcheck.id", rec.ID),
		attribute.String("claimcheck.verdict", string(rec.Verdict)),
		attribute.Int("claimcheck.evidence", len(rec.Evidence)),
	)
	p.logger.Info("verification complete",
		zap.String("id", rec.ID),
		zap.String("verdict", string(rec.Verdict)),
		zap.Float64("confidence", rec.Confidence),
		zap.Int("evidence", len(rec.Evidence)),
		zap.Duration("elapsed", time.Since(start)))
	return rec, nil
}

// VerifyInput verifies a batch line: an absolute http(s) URL or claim text
func (p *Pipeline) VerifyInput(ctx context.Context, input string) (*model.VerdictRecord, error) {
	input = strings.TrimSpace(input)
	if isWebURL(input) {
		return p.Verify(ctx, Request{URL: input})
	}
	return p.Verify(ctx, Request{Text: input})
}

func (p *Pipeline) verify(ctx context.Context, req Request) (*model.VerdictRecord, error) {
	req.Text = strings.TrimSpace(req.Text)
	req.URL = strings.TrimSpace(req.URL)
	req.ID = strings.TrimSpace(req.ID)

	// 1. Validate input
	if req.Text == "" && req.URL == "" {
		return nil, &model.InputError{Err: model.ErrMissingInput}
	}
	if req.URL != "" && !isWebURL(req.URL) {
		return nil, &model.InputError{Reason: "'url' must be an absolute http(s) URL"}
	}

	// 2. Normalize the claim
	claim := p.buildClaim(ctx, req)

	// 3. Gather candidates from every trusted source
	candidates := p.gather(ctx)

	// 4. Rank and assemble evidence
	ranked := score.Rank(candidates, claim.Text, p.config.Ranking.TopK, p.config.Ranking.MinScore)
	evidence := p.assemble(ctx, ranked)

	// 5. Classify
	result := p.classify(ctx, claim, evidence)

	// 6. Persist (required)
	id := req.ID
	if id == "" {
		id = p.newID()
	}
	rec := &model.VerdictRecord{
		ID:          id,
		Claim:       claim.Text,
		Verdict:     result.Verdict,
		Confidence:  result.Confidence,
		Evidence:    lo.Map(evidence, func(e model.EvidenceCandidate, _ int) model.EvidenceRef { return e.Ref() }),
		Used:        result.Used,
		Language:    claim.Language,
		URL:         req.URL,
		Explanation: result.Explanation,
		Model:       p.config.LLM.Model,
		Provider:    p.classifier.ProviderName(),
		CreatedAt:   p.now(),
	}

	if err := p.persist(ctx, rec); err != nil {
		return nil, &model.PersistenceError{ID: rec.ID, Err: err}
	}

	// 7. Index (best-effort, detached from the response)
	p.indexAsync(ctx, rec)

	return rec, nil
}

// buildClaim derives the claim text: the request text, or the fetched page,
// compressed to a key-phrase signature
func (p *Pipeline) buildClaim(ctx context.Context, req Request) model.Claim {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.Claim")
	defer span.End()

	claim := model.Claim{
		Raw:       req.Text,
		SourceURL: req.URL,
		Origin:    model.ClaimOriginText,
	}

	if claim.Raw == "" {
		claim.Raw, claim.Origin = p.pageClaim(ctx, req.URL)
	}

	claim.Language = p.config.Analytics.DefaultLanguage
	res, err := p.analyzer.Analyze(ctx, claim.Raw, "")
	if err != nil {
		op := "analyze"
		var ae *model.AnalyticsError
		if errors.As(err, &ae) {
			op = ae.Op
		}
		metrics.AnalyticsFailures.WithLabelValues(op).Inc()
		p.logger.Warn("text analytics failed, using raw text",
			zap.String("analyzer", p.analyzer.Name()),
			zap.Error(err))
	} else {
		claim.Language = analytics.CanonicalLanguage(res.Language, claim.Language)
		claim.Phrases = res.KeyPhrases
	}

	claim.Text = analytics.Signature(claim.Phrases, claim.Raw)
	span.SetAttributes(
		attribute.String("claimcheck.origin", string(claim.Origin)),
		attribute.String("claimcheck.language", claim.Language),
		attribute.Int("claimcheck.phrases", len(claim.Phrases)),
	)
	return claim
}

// pageClaim fetches a user-supplied URL and returns its visible text.
// When the page cannot be read the claim names the URL instead.
func (p *Pipeline) pageClaim(ctx context.Context, pageURL string) (string, model.ClaimOrigin) {
	fallback := "Content from: " + pageURL

	res, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		p.logger.Warn("claim page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return fallback, model.ClaimOriginFallback
	}

	text := SnippetText(res, p.config.Ranking.PageTextChars)
	if text == "" {
		p.logger.Warn("claim page has no text", zap.String("url", pageURL))
		return fallback, model.ClaimOriginFallback
	}
	return text, model.ClaimOriginPage
}

// gather fetches every trusted source concurrently and settles all of them.
// A failed source contributes no candidates.
func (p *Pipeline) gather(ctx context.Context) []model.CandidateItem {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.Gather")
	defer span.End()

	sources := p.config.Sources
	outcomes := worker.Settle(ctx, sources, p.config.Concurrency.SourceFetches, func(ctx context.Context, src string) ([]model.CandidateItem, error) {
		res, err := p.fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		items, grammar, err := p.registry.Extract(src, res.Body, res.Structured)
		if err != nil {
			return nil, err
		}
		metrics.CandidatesExtracted.WithLabelValues(grammar).Add(float64(len(items)))
		p.logger.Debug("source extracted",
			zap.String("source", src),
			zap.String("grammar", grammar),
			zap.Int("items", len(items)))
		return items, nil
	})

	var candidates []model.CandidateItem
	failed := 0
	for i, o := range outcomes {
		if o.Err != nil {
			failed++
			metrics.SourceFetchFailures.WithLabelValues(sourceLabel(sources[i])).Inc()
			p.logger.Warn("trusted source failed", zap.String("source", sources[i]), zap.Error(o.Err))
			continue
		}
		candidates = append(candidates, o.Value...)
	}

	span.SetAttributes(
		attribute.Int("claimcheck.sources", len(sources)),
		attribute.Int("claimcheck.sources_failed", failed),
		attribute.Int("claimcheck.candidates", len(candidates)),
	)
	return candidates
}

func (p *Pipeline) assemble(ctx context.Context, ranked []model.ScoredCandidate) []model.EvidenceCandidate {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.Assemble")
	defer span.End()

	evidence := p.assembler.Assemble(ctx, ranked)
	span.SetAttributes(
		attribute.Int("claimcheck.ranked", len(ranked)),
		attribute.Int("claimcheck.evidence", len(evidence)),
	)
	return evidence
}

// classify asks the model for a verdict. Without evidence the model is not
// consulted; a failed call degrades to the default verdict.
func (p *Pipeline) classify(ctx context.Context, claim model.Claim, evidence []model.EvidenceCandidate) llm.Result {
	if len(evidence) == 0 {
		return defaultResult(NoEvidenceExplanation)
	}

	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.Classify")
	defer span.End()
	span.SetAttributes(attribute.String("claimcheck.provider", p.classifier.ProviderName()))

	prompt := llm.BuildPrompt(claim.Text, evidence)
	result, err := p.classifier.Classify(ctx, prompt, len(evidence))
	if err != nil {
		span.RecordError(err)
		p.logger.Warn("classifier call failed",
			zap.String("provider", p.classifier.ProviderName()),
			zap.Error(err))
		return defaultResult(ModelFailedExplanation)
	}
	span.SetAttributes(attribute.Bool("claimcheck.parsed", result.Parsed))
	return *result
}

func (p *Pipeline) persist(ctx context.Context, rec *model.VerdictRecord) error {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.Persist")
	defer span.End()

	if err := p.store.Put(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		p.logger.Error("persist verdict failed", zap.String("id", rec.ID), zap.Error(err))
		return err
	}
	return nil
}

// indexAsync writes rec to the search index without blocking the caller.
// Failures are counted and logged only.
func (p *Pipeline) indexAsync(ctx context.Context, rec *model.VerdictRecord) {
	if p.index == nil {
		return
	}
	snapshot := *rec

	p.indexing.Add(1)
	go func() {
		defer p.indexing.Done()

		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexTimeout)
		defer cancel()

		if err := p.index.Index(ictx, &snapshot); err != nil {
			metrics.IndexFailures.Inc()
			p.logger.Warn("search index write failed", zap.String("id", snapshot.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until pending index writes finish
func (p *Pipeline) Wait() {
	p.indexing.Wait()
}

func defaultResult(explanation string) llm.Result {
	return llm.Result{
		Verdict:     model.VerdictUnclear,
		Confidence:  model.DefaultConfidence,
		Used:        []int{},
		Explanation: explanation,
	}
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func sourceLabel(src string) string {
	if u, err := url.Parse(src); err == nil && u.Host != "" {
		return u.Host
	}
	return src
}
