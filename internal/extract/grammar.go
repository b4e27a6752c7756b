package extract

import (
	"github.com/ppiankov/claimcheck/internal/model"
)

// Grammar parses a fetched document into candidate items
type Grammar interface {
	// Name returns the grammar name
	Name() string

	// Detect checks whether this grammar applies to the body
	Detect(body string, structured bool) bool

	// Extract returns candidate items in discovery order
	Extract(sourceURL string, body string) ([]model.CandidateItem, error)
}

// Options bounds the built-in grammars
type Options struct {
	FeedItemLimit int
	MinAnchorText int
	MaxAnchorText int
}

// OptionsFromConfig derives grammar options from the ranking config
func OptionsFromConfig(cfg model.RankingConfig) Options {
	return Options{
		FeedItemLimit: cfg.FeedItemLimit,
		MinAnchorText: cfg.MinAnchorText,
		MaxAnchorText: cfg.MaxAnchorText,
	}
}

// Registry holds grammars in priority order plus a fallback
type Registry struct {
	grammars []Grammar
	fallback Grammar
}

// NewRegistry creates a registry with the feed grammar and the link fallback
func NewRegistry(opts Options) *Registry {
	registry := &Registry{}
	registry.Register(NewFeedGrammar(opts.FeedItemLimit))
	registry.fallback = NewLinkGrammar(opts.MinAnchorText, opts.MaxAnchorText)
	return registry
}

// Register appends a grammar ahead of the fallback
func (r *Registry) Register(g Grammar) {
	r.grammars = append(r.grammars, g)
}

// Extract runs the first detected grammar that yields items,
// falling back to the link grammar when none does.
// It returns the items and the name of the grammar that produced them.
func (r *Registry) Extract(sourceURL, body string, structured bool) ([]model.CandidateItem, string, error) {
	for _, g := range r.grammars {
		if !g.Detect(body, structured) {
			continue
		}
		items, err := g.Extract(sourceURL, body)
		if err != nil {
			return nil, g.Name(), err
		}
		if len(items) > 0 {
			return items, g.Name(), nil
		}
	}

	items, err := r.fallback.Extract(sourceURL, body)
	return items, r.fallback.Name(), err
}
