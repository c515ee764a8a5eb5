// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rerank asks an external language model to pick and justify the
// best candidates for a requester. Model output is untrusted: every
// selection is validated against the candidates that were sent, and any
// failure degrades to a deterministic fallback ranking.
package rerank

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/policy-match/internal/metrics"
	"github.com/pdiddy/policy-match/pkg/types"
)

// ErrMissingUserContext is returned when a request has no user context.
var ErrMissingUserContext = errors.New("userContext is required")

// FallbackReason marks selections produced without the model. Callers
// detect it with IsFallbackReason and substitute a synthesized reason.
const FallbackReason = "기본 필터 일치(LLM 폴백). 상세 검토 필요."

const fallbackMarker = "기본 필터 일치"

// Defaults applied by New when the config leaves a field zero.
const (
	DefaultMaxCandidates = 40
	DefaultTimeout       = 20 * time.Second
	DefaultTopK          = 3
)

// Outcome labels for metrics.
const (
	outcomeOK       = "ok"
	outcomeError    = "fallback_error"
	outcomeEmpty    = "fallback_empty"
	outcomeDisabled = "fallback_disabled"
)

// Backend sends a rendered prompt to a model and returns its raw text.
// Implementations do not interpret the response.
type Backend interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Reranker validates model selections and falls back when the model fails.
type Reranker struct {
	backend       Backend
	log           zerolog.Logger
	metrics       *metrics.Metrics
	timeout       time.Duration
	maxCandidates int
}

// Option configures a Reranker.
type Option func(*Reranker)

// WithLogger sets the logger for ranking failures.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reranker) { r.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reranker) { r.metrics = m }
}

// New returns a Reranker over backend. A nil backend always falls back.
func New(backend Backend, cfg types.RankerConfig, opts ...Option) *Reranker {
	r := &Reranker{
		backend:       backend,
		log:           zerolog.Nop(),
		timeout:       cfg.Timeout,
		maxCandidates: cfg.MaxCandidates,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.maxCandidates <= 0 || r.maxCandidates > DefaultMaxCandidates {
		r.maxCandidates = DefaultMaxCandidates
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank returns at most topK selections drawn from candidates. Only the
// first maxCandidates candidates are sent, never more than
// DefaultMaxCandidates. Ids in the response that name no sent candidate
// are logged, counted as integrity drops, and discarded. Backend errors, timeouts, and
// responses with no usable item all yield Fallback; the only error
// returned is ErrMissingUserContext.
func (r *Reranker) Rerank(ctx context.Context, userContext string, candidates []types.Candidate, topK int) ([]types.Selection, error) {
	if strings.TrimSpace(userContext) == "" {
		return nil, ErrMissingUserContext
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(candidates) > r.maxCandidates {
		candidates = candidates[:r.maxCandidates]
	}
	if len(candidates) == 0 {
		return []types.Selection{}, nil
	}

	start := time.Now()
	if r.backend == nil {
		r.metrics.RecordRerank(outcomeDisabled, time.Since(start))
		return Fallback(candidates, topK), nil
	}

	prompt, err := BuildPrompt(userContext, candidates, topK)
	if err != nil {
		r.log.Error().Err(err).Msg("building ranking prompt")
		r.metrics.RecordRerank(outcomeError, time.Since(start))
		return Fallback(candidates, topK), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.backend.Complete(callCtx, prompt)
	if err != nil {
		r.log.Warn().Err(err).
			Int("candidates", len(candidates)).
			Dur("elapsed", time.Since(start)).
			Msg("ranking call failed, using fallback")
		r.metrics.RecordRerank(outcomeError, time.Since(start))
		return Fallback(candidates, topK), nil
	}

	selections, unknown, err := ParseSelections(raw, candidates, topK)
	for _, id := range unknown {
		r.metrics.RecordIntegrityDrop()
		r.log.Warn().Int64("id", id).Msg("ranking selected an id outside the candidates, dropped")
	}
	if err != nil {
		r.log.Warn().Err(err).Str("response", truncate(raw, 200)).Msg("unparsable ranking response, using fallback")
		r.metrics.RecordRerank(outcomeError, time.Since(start))
		return Fallback(candidates, topK), nil
	}
	if len(selections) == 0 {
		r.log.Warn().Str("response", truncate(raw, 200)).Msg("ranking response had no usable items, using fallback")
		r.metrics.RecordRerank(outcomeEmpty, time.Since(start))
		return Fallback(candidates, topK), nil
	}

	r.metrics.RecordRerank(outcomeOK, time.Since(start))
	return selections, nil
}

// Fallback selects the first topK candidates in order with scores 5, 4.9,
// 4.8, ... and FallbackReason.
func Fallback(candidates []types.Candidate, topK int) []types.Selection {
	n := min(topK, len(candidates))
	out := make([]types.Selection, n)
	for i := range n {
		out[i] = types.Selection{
			ID:                candidates[i].ID,
			Score:             types.Float(StepDown(5, i)),
			Reason:            FallbackReason,
			MatchedConditions: []string{},
			URL:               candidates[i].URL,
		}
	}
	return out
}

// StepDown returns start minus steps tenths, rounded to one decimal.
func StepDown(start float64, steps int) float64 {
	return math.Round((start-0.1*float64(steps))*10) / 10
}

// IsFallbackReason reports whether reason came from Fallback.
func IsFallbackReason(reason string) bool {
	return strings.Contains(reason, fallbackMarker)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
