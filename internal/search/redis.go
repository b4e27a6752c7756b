package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
)

// RedisIndex keeps an inverted index in Redis.
//
// Keys, under the configured prefix:
//
//	{p}:doc:{id}    record JSON
//	{p}:terms:{id}  set of terms the record is indexed under
//	{p}:term:{tok}  sorted set of record ids scored by field weight
type RedisIndex struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisIndex connects lazily to cfg.RedisAddr
func NewRedisIndex(cfg model.SearchConfig) *RedisIndex {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisIndexWithClient(client, cfg.Prefix, cfg.Timeout)
}

// NewRedisIndexWithClient wraps an existing client
func NewRedisIndexWithClient(client *redis.Client, prefix string, timeout time.Duration) *RedisIndex {
	if prefix == "" {
		prefix = "claimcheck"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RedisIndex{client: client, prefix: prefix, timeout: timeout}
}

func (r *RedisIndex) Enabled() bool { return true }

func (r *RedisIndex) Close() error { return r.client.Close() }

func (r *RedisIndex) docKey(id string) string { return r.prefix + ":doc:" + id }
func (r *RedisIndex) termsKey(id string) string { return r.prefix + ":terms:" + id }
func (r *RedisIndex) termKey(tok string) string { return r.prefix + ":term:" + tok }
func (r *RedisIndex) scratchKey() string { return r.prefix + ":query:" + uuid.NewString() }

// Weights returns the per-term weight of rec: claim terms count ClaimWeight,
// evidence title and snippet terms count EvidenceWeight, summed per field.
func Weights(rec *model.VerdictRecord) map[string]float64 {
	weights := make(map[string]float64)
	for _, tok := range lo.Uniq(score.Tokenize(rec.Claim)) {
		weights[tok] += ClaimWeight
	}

	var evidenceTokens []string
	for _, e := range rec.Evidence {
		evidenceTokens = append(evidenceTokens, score.Tokenize(e.Title+" "+e.Snippet)...)
	}
	for _, tok := range lo.Uniq(evidenceTokens) {
		weights[tok] += EvidenceWeight
	}
	return weights
}

// Index upserts rec, replacing any terms from an earlier version
func (r *RedisIndex) Index(ctx context.Context, rec *model.VerdictRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	previous, err := r.client.SMembers(ctx, r.termsKey(rec.ID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read indexed terms: %w", err)
	}

	weights := Weights(rec)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tok := range previous {
			pipe.ZRem(ctx, r.termKey(tok), rec.ID)
		}
		pipe.Del(ctx, r.termsKey(rec.ID))
		pipe.Set(ctx, r.docKey(rec.ID), doc, 0)

		terms := make([]any, 0, len(weights))
		for tok, w := range weights {
			pipe.ZAdd(ctx, r.termKey(tok), redis.Z{Score: w, Member: rec.ID})
			terms = append(terms, tok)
		}
		if len(terms) > 0 {
			pipe.SAdd(ctx, r.termsKey(rec.ID), terms...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("index record %s: %w", rec.ID, err)
	}
	return nil
}

// Search ranks records by the summed weight of matching query terms
func (r *RedisIndex) Search(ctx context.Context, q string, limit int) ([]model.VerdictRecord, error) {
	tokens := lo.Uniq(score.Tokenize(q))
	if len(tokens) == 0 || limit <= 0 {
		return []model.VerdictRecord{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	keys := make([]string, len(tokens))
	for i, tok := range tokens {
		keys[i] = r.termKey(tok)
	}

	scratch := r.scratchKey()
	var ranked *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZUnionStore(ctx, scratch, &redis.ZStore{Keys: keys, Aggregate: "SUM"})
		ranked = pipe.ZRevRange(ctx, scratch, 0, int64(limit-1))
		pipe.Del(ctx, scratch)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}

	ids := ranked.Val()
	if len(ids) == 0 {
		return []model.VerdictRecord{}, nil
	}

	docKeys := make([]string, len(ids))
	for i, id := range ids {
		docKeys[i] = r.docKey(id)
	}
	docs, err := r.client.MGet(ctx, docKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load search hits: %w", err)
	}

	records := make([]model.VerdictRecord, 0, len(docs))
	for _, raw := range docs {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var rec model.VerdictRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Ping checks connectivity
func (r *RedisIndex) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
