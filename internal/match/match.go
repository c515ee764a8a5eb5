// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match runs the request pipelines: strict search over the store,
// and matching, which recalls a wide pool, asks the ranking stage to pick
// from it, and merges and backfills the picks into exactly top-K results.
// Every result is a stored record that the recall stage returned for
// the same request, or a backfill from the store itself.
package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/policy-match/internal/candidate"
	"github.com/pdiddy/policy-match/internal/metrics"
	"github.com/pdiddy/policy-match/internal/query"
	"github.com/pdiddy/policy-match/internal/reason"
	"github.com/pdiddy/policy-match/internal/recall"
	"github.com/pdiddy/policy-match/internal/rerank"
	"github.com/pdiddy/policy-match/pkg/types"
)

// ErrMissingUserContext is returned by Match when the request has no
// user context.
var ErrMissingUserContext = rerank.ErrMissingUserContext

// Search types reported with results.
const (
	SearchTypeStrict   = "FTS5+LIKE (STRICT)"
	SearchTypeFilter   = "필터 검색"
	SearchTypeRanked   = "Recall-first + LLM"
	SearchTypeLatest   = "Latest fallback"
	defaultSearchLimit = 50
)

// Recaller produces a recall pool.
type Recaller interface {
	Recall(ctx context.Context, req recall.Request) (recall.Result, error)
}

// Ranker picks and justifies candidates.
type Ranker interface {
	Rerank(ctx context.Context, userContext string, candidates []types.Candidate, topK int) ([]types.Selection, error)
}

// Recency lists the newest stored records.
type Recency interface {
	Recent(ctx context.Context, limit int) ([]types.Record, error)
}

// Pipeline wires the stages together. It holds no per-request state.
type Pipeline struct {
	recaller  Recaller
	ranker    Ranker
	recency   Recency
	projector candidate.Projector
	synth     reason.Synthesizer
	cfg       types.MatchConfig
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock fixes the time used for deadline summaries.
func WithClock(synth reason.Synthesizer) Option {
	return func(p *Pipeline) { p.synth = synth }
}

// New returns a Pipeline. Zero config fields take their defaults.
func New(recaller Recaller, ranker Ranker, recency Recency, cfg types.MatchConfig, opts ...Option) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = rerank.DefaultTopK
	}
	if cfg.RecallLimit <= 0 {
		cfg.RecallLimit = recall.DefaultLimit
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	p := &Pipeline{
		recaller:  recaller,
		ranker:    ranker,
		recency:   recency,
		projector: candidate.Projector{URLTemplate: cfg.URLTemplate},
		cfg:       cfg,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request is a match request.
type Request struct {
	Query       string
	Region      string
	Industry    string
	UserContext string
	TopK        int
}

// Response carries the ranked results and how they were produced.
type Response struct {
	Results    []types.RankedResult `json:"results"`
	Query      string               `json:"originalQuery"`
	SearchType string               `json:"searchType"`
	Tier       recall.Tier          `json:"tier"`
}

// Match returns exactly TopK results whenever the store holds at least
// that many records. Ranking failures are absorbed by the ranking stage;
// an error here means the user context was missing or the store failed.
func (p *Pipeline) Match(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.UserContext) == "" {
		return Response{}, ErrMissingUserContext
	}
	topK := req.TopK
	if topK <= 0 {
		topK = p.cfg.TopK
	}

	pool, err := p.recaller.Recall(ctx, recall.Request{
		Query:   req.Query,
		Filters: types.Filters{Region: strings.TrimSpace(req.Region), Industry: strings.TrimSpace(req.Industry)},
		Limit:   p.cfg.RecallLimit,
		Mode:    recall.ModeRecall,
	})
	if err != nil {
		return Response{}, fmt.Errorf("recall: %w", err)
	}

	if len(pool.Records) == 0 {
		results, err := p.LatestFallback(ctx, req.UserContext, topK)
		if err != nil {
			return Response{}, err
		}
		return Response{Results: results, Query: req.Query, SearchType: SearchTypeLatest, Tier: pool.Tier}, nil
	}

	selections, err := p.ranker.Rerank(ctx, req.UserContext, p.projector.ProjectAll(pool.Records), topK)
	if err != nil {
		return Response{}, err
	}

	m := p.merger()
	results := m.Merge(selections, pool.Records, req.UserContext)
	if len(results) > topK {
		results = results[:topK]
	}

	var added int
	results, added = m.Backfill(results, pool.Records, topK, req.UserContext)
	p.metrics.RecordBackfill(SourcePool, added)

	if len(results) < topK {
		latest, err := p.recency.Recent(ctx, topK*2)
		if err != nil {
			p.log.Warn().Err(err).Int("have", len(results)).Int("top_k", topK).Msg("recency backfill failed")
		} else {
			results, added = m.Backfill(results, latest, topK, req.UserContext)
			p.metrics.RecordBackfill(SourceRecent, added)
		}
	}

	return Response{Results: results, Query: req.Query, SearchType: SearchTypeRanked, Tier: pool.Tier}, nil
}

// LatestFallback returns the topK newest records with synthesized reasons
// and scores 5, 4.9, ... It serves requests whose pipeline failed.
func (p *Pipeline) LatestFallback(ctx context.Context, userContext string, topK int) ([]types.RankedResult, error) {
	if topK <= 0 {
		topK = p.cfg.TopK
	}
	latest, err := p.recency.Recent(ctx, topK)
	if err != nil {
		return nil, fmt.Errorf("latest fallback: %w", err)
	}
	results, added := p.merger().Backfill([]types.RankedResult{}, latest, topK, userContext)
	p.metrics.RecordBackfill(SourceRecent, added)
	return results, nil
}

// SearchRequest is a strict search request.
type SearchRequest struct {
	Query    string
	Region   string
	Industry string
}

// SearchResponse carries strict search rows.
type SearchResponse struct {
	Items         []types.Record `json:"items"`
	OriginalQuery string         `json:"originalQuery"`
	EnhancedQuery string         `json:"enhancedQuery"`
	SearchType    string         `json:"searchType"`
	Tier          recall.Tier    `json:"tier"`
}

// Search expands the query with synonyms and runs strict recall.
func (p *Pipeline) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	q := strings.TrimSpace(req.Query)
	enhanced := query.Enhance(q)

	res, err := p.recaller.Recall(ctx, recall.Request{
		Query:   enhanced,
		Filters: types.Filters{Region: strings.TrimSpace(req.Region), Industry: strings.TrimSpace(req.Industry)},
		Limit:   p.cfg.SearchLimit,
		Mode:    recall.ModeStrict,
	})
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}

	searchType := SearchTypeFilter
	if q != "" {
		searchType = SearchTypeStrict
	}
	return SearchResponse{
		Items:         res.Records,
		OriginalQuery: req.Query,
		EnhancedQuery: enhanced,
		SearchType:    searchType,
		Tier:          res.Tier,
	}, nil
}

func (p *Pipeline) merger() Merger {
	return Merger{
		Reasoner: p.synth.Build,
		URL:      p.projector.ResolveURL,
		Dropped: func(id int64) {
			p.metrics.RecordIntegrityDrop()
			p.log.Warn().Int64("id", id).Msg("ranking selected an id outside the recall pool, dropped")
		},
	}
}
