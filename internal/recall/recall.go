// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recall produces the candidate pool for a request by running
// store queries in tiers: full-text, then weighted substring, then most
// recent. The first tier with rows answers the request.
package recall

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/policy-match/internal/metrics"
	"github.com/pdiddy/policy-match/internal/query"
	"github.com/pdiddy/policy-match/pkg/types"
)

// Mode selects how full-text term clauses combine.
type Mode string

const (
	// ModeStrict requires every term to match. Used by plain search.
	ModeStrict Mode = "strict"

	// ModeRecall lets any term match. Used to build a wide pool for ranking.
	ModeRecall Mode = "recall"
)

// Tier names the strategy that produced a result.
type Tier string

const (
	TierFullText  Tier = "fulltext"
	TierSubstring Tier = "substring"
	TierRecent    Tier = "recent"
	TierNone      Tier = "none"
)

// DefaultLimit is used when a request has no positive limit.
const DefaultLimit = 80

// Store is the query surface the engine needs.
type Store interface {
	MatchFullText(ctx context.Context, expr string, f types.Filters, limit int) ([]types.Record, error)
	MatchSubstring(ctx context.Context, terms []string, f types.Filters, limit int) ([]types.Record, error)
	Recent(ctx context.Context, limit int) ([]types.Record, error)
}

// Request describes one recall.
type Request struct {
	Query   string
	Filters types.Filters
	Limit   int
	Mode    Mode
}

// Result holds the recalled rows and how they were found.
type Result struct {
	Records []types.Record
	Tier    Tier

	// Terms are the normalised query terms. Expression is the full-text
	// expression built from them, empty when the tier was skipped.
	Terms      []string
	Expression string
}

// Engine runs tiered recall against a Store.
type Engine struct {
	store    Store
	log      zerolog.Logger
	metrics  *metrics.Metrics
	maxTerms int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for tier failures.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxTerms caps the number of query terms.
func WithMaxTerms(n int) Option {
	return func(e *Engine) { e.maxTerms = n }
}

// New returns an Engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		log:      zerolog.Nop(),
		maxTerms: query.DefaultMaxTerms,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recall returns rows from the first tier that yields any. Full-text and
// substring failures are logged and fall through; only a failure of the
// recency tier is returned. An empty store yields an empty result and no
// error.
func (e *Engine) Recall(ctx context.Context, req Request) (Result, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeRecall
	}

	res := Result{Terms: query.SplitTerms(req.Query, e.maxTerms)}

	if len(res.Terms) > 0 {
		if mode == ModeStrict {
			res.Expression = query.StrictExpression(res.Terms)
		} else {
			res.Expression = query.RecallExpression(res.Terms)
		}
		recs, err := e.store.MatchFullText(ctx, res.Expression, req.Filters, limit)
		switch {
		case err != nil:
			e.tierFailed(TierFullText, err).Str("expr", res.Expression).Msg("full-text tier failed, falling through")
		case len(recs) > 0:
			return e.done(res, mode, TierFullText, recs), nil
		}
	}

	recs, err := e.store.MatchSubstring(ctx, res.Terms, req.Filters, limit)
	switch {
	case err != nil:
		e.tierFailed(TierSubstring, err).Strs("terms", res.Terms).Msg("substring tier failed, falling through")
	case len(recs) > 0:
		return e.done(res, mode, TierSubstring, recs), nil
	}

	recs, err = e.store.Recent(ctx, limit)
	if err != nil {
		return Result{}, fmt.Errorf("recency tier: %w", err)
	}
	if len(recs) == 0 {
		return e.done(res, mode, TierNone, []types.Record{}), nil
	}
	return e.done(res, mode, TierRecent, recs), nil
}

func (e *Engine) tierFailed(tier Tier, err error) *zerolog.Event {
	e.metrics.RecordTierError(string(tier))
	return e.log.Warn().Err(err).Str("tier", string(tier))
}

func (e *Engine) done(res Result, mode Mode, tier Tier, recs []types.Record) Result {
	res.Tier = tier
	res.Records = recs
	e.metrics.RecordRecall(string(mode), string(tier))
	e.log.Debug().
		Str("mode", string(mode)).
		Str("tier", string(tier)).
		Int("rows", len(recs)).
		Msg("recall complete")
	return res
}
