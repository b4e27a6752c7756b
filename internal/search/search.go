// Package search maintains the optional full-text index over verdict records.
package search

import (
	"context"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Field weights: claim terms outrank evidence terms
const (
	ClaimWeight    = 2.0
	EvidenceWeight = 1.0
)

// Index is the search gateway
type Index interface {
	// Index upserts rec by id
	Index(ctx context.Context, rec *model.VerdictRecord) error

	// Search returns records matching q, best match first
	Search(ctx context.Context, q string, limit int) ([]model.VerdictRecord, error)

	// Enabled reports whether a backend is configured
	Enabled() bool

	// Ping checks that the backend answers
	Ping(ctx context.Context) error

	Close() error
}

// NopIndex is used when no search backend is configured
type NopIndex struct{}

func (NopIndex) Index(context.Context, *model.VerdictRecord) error { return nil }

func (NopIndex) Search(context.Context, string, int) ([]model.VerdictRecord, error) {
	return []model.VerdictRecord{}, nil
}

func (NopIndex) Enabled() bool { return false }

func (NopIndex) Ping(context.Context) error { return nil }

func (NopIndex) Close() error { return nil }

// New returns a Redis index when cfg names an address, otherwise a NopIndex
func New(cfg model.SearchConfig) Index {
	if cfg.RedisAddr == "" {
		return NopIndex{}
	}
	return NewRedisIndex(cfg)
}
