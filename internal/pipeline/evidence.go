package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/extract"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// DocumentFetcher retrieves one document; *Fetcher is the production implementation
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// Assembler fills in snippet text for ranked candidates
type Assembler struct {
	fetcher      DocumentFetcher
	snippetChars int
	concurrency  int
	logger       *zap.Logger
}

// NewAssembler creates an assembler with the given snippet budget and fetch fan-out
func NewAssembler(fetcher DocumentFetcher, snippetChars, concurrency int, logger *zap.Logger) *Assembler {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		fetcher:      fetcher,
		snippetChars: snippetChars,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// Assemble returns evidence in ranking order. Candidates that already carry a
// snippet are only truncated; the rest are fetched, and a failed fetch drops
// that candidate without affecting the others.
func (a *Assembler) Assemble(ctx context.Context, ranked []model.ScoredCandidate) []model.EvidenceCandidate {
	outcomes := worker.Settle(ctx, ranked, a.concurrency, func(ctx context.Context, c model.ScoredCandidate) (model.EvidenceCandidate, error) {
		if c.Snippet != "" {
			c.Snippet = extract.Truncate(c.Snippet, a.snippetChars)
			return model.EvidenceCandidate{ScoredCandidate: c}, nil
		}

		res, err := a.fetcher.Fetch(ctx, c.URL)
		if err != nil {
			return model.EvidenceCandidate{}, err
		}
		c.Snippet = SnippetText(res, a.snippetChars)
		return model.EvidenceCandidate{ScoredCandidate: c}, nil
	})

	evidence := make([]model.EvidenceCandidate, 0, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			metrics.SnippetFetchFailures.Inc()
			a.logger.Warn("snippet fetch failed",
				zap.String("url", ranked[i].URL),
				zap.String("source", ranked[i].SourceSite),
				zap.Error(o.Err))
			continue
		}
		evidence = append(evidence, o.Value)
	}
	return evidence
}

// SnippetText reduces a fetched document to plain text of at most limit characters
func SnippetText(res *FetchResult, limit int) string {
	if res.Structured {
		return extract.Truncate(extract.StripMarkup(res.Body), limit)
	}
	return extract.PageText(res.Body, limit)
}
