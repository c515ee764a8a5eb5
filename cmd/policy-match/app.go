// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/pdiddy/policy-match/internal/logger"
	"github.com/pdiddy/policy-match/internal/match"
	"github.com/pdiddy/policy-match/internal/metrics"
	"github.com/pdiddy/policy-match/internal/policy"
	"github.com/pdiddy/policy-match/internal/recall"
	"github.com/pdiddy/policy-match/internal/rerank"
	"github.com/pdiddy/policy-match/pkg/types"
)

// app holds the components one command needs.
type app struct {
	cfg      types.Config
	store    *policy.Store
	pipeline *match.Pipeline
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// openStore opens the configured database. Maintenance commands need
// write access; everything else runs read-only.
func openStore(cfg types.Config, writable bool) (*policy.Store, error) {
	sc := cfg.Store
	sc.ReadOnly = !writable
	return policy.Open(sc)
}

// newApp opens the store read-only and wires the pipeline. withMetrics
// registers collectors on a fresh registry for the HTTP server.
func newApp(cfg types.Config, withMetrics bool) (*app, error) {
	store, err := openStore(cfg, false)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: store}
	if withMetrics {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = metrics.New(a.registry)
	}

	backend, err := newBackend(cfg.Ranker, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	engine := recall.New(store,
		recall.WithLogger(logger.Component(log, "recall")),
		recall.WithMetrics(a.metrics),
		recall.WithMaxTerms(cfg.Match.MaxTerms),
	)
	ranker := rerank.New(backend, cfg.Ranker,
		rerank.WithLogger(logger.Component(log, "rerank")),
		rerank.WithMetrics(a.metrics),
	)
	a.pipeline = match.New(engine, ranker, store, cfg.Match,
		match.WithLogger(logger.Component(log, "match")),
		match.WithMetrics(a.metrics),
	)
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// newBackend selects the ranking service. A missing API key disables
// ranking rather than failing, so matching still serves fallback results.
func newBackend(cfg types.RankerConfig, log zerolog.Logger) (rerank.Backend, error) {
	switch cfg.Backend {
	case types.RankerDisabled:
		log.Info().Msg("ranking disabled, serving fallback order")
		return nil, nil
	case types.RankerOpenAI, types.RankerClaude:
	default:
		return nil, fmt.Errorf("unknown ranker backend %q: use openai, claude, or none", cfg.Backend)
	}

	if cfg.APIKey == "" {
		log.Warn().Str("backend", string(cfg.Backend)).Msg("no API key found, ranking disabled")
		return nil, nil
	}

	if cfg.Backend == types.RankerClaude {
		b, err := rerank.NewClaudeBackend(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	b, err := rerank.NewOpenAIBackend(cfg)
	if err != nil {
		return nil, err
	}
	return b, nil
}
