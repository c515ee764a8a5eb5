// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the search and match pipelines over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/policy-match/internal/match"
	"github.com/pdiddy/policy-match/internal/metrics"
	"github.com/pdiddy/policy-match/pkg/types"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":3000"

const (
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 20
	fallbackTopK    = 3
	fallbackNote    = "LLM/검색 오류 폴백"
)

// Matcher runs the request pipelines.
type Matcher interface {
	Match(ctx context.Context, req match.Request) (match.Response, error)
	Search(ctx context.Context, req match.SearchRequest) (match.SearchResponse, error)
	LatestFallback(ctx context.Context, userContext string, topK int) ([]types.RankedResult, error)
}

// Inspector reports on the backing database for /debug/db.
type Inspector interface {
	Tables(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]types.Record, error)
}

// Server is the HTTP front end.
type Server struct {
	cfg      types.ServerConfig
	matcher  Matcher
	db       Inspector
	log      zerolog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	handler  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics records request metrics to m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// New returns a Server. Routes are fixed at construction.
func New(cfg types.ServerConfig, matcher Matcher, db Inspector, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	s := &Server{
		cfg:     cfg,
		matcher: matcher,
		db:      db,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", s.instrument("health", s.handleHealth))
	mux.Handle("GET /debug/db", s.instrument("debug_db", s.handleDebugDB))
	mux.Handle("POST /search", s.instrument("search", s.handleSearch))
	mux.Handle("POST /match", s.instrument("match", s.handleMatch))
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type debugDBResponse struct {
	Tables        []string      `json:"tables"`
	PoliciesCount int           `json:"policiesCount"`
	SampleKeys    []string      `json:"sampleKeys"`
	Sample        *types.Policy `json:"sample"`
}

func (s *Server) handleDebugDB(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tables, err := s.db.Tables(ctx)
	if err != nil {
		s.internalError(w, "debug/db", err)
		return
	}
	count, err := s.db.Count(ctx)
	if err != nil {
		s.internalError(w, "debug/db", err)
		return
	}
	sample, err := s.db.Recent(ctx, 1)
	if err != nil {
		s.internalError(w, "debug/db", err)
		return
	}

	resp := debugDBResponse{Tables: tables, PoliciesCount: count, SampleKeys: []string{}}
	if len(sample) > 0 {
		resp.Sample = &sample[0].Policy
		resp.SampleKeys = policyKeys
	}
	writeJSON(w, http.StatusOK, resp)
}

// policyKeys are the stored columns, in schema order.
var policyKeys = []string{
	"id", "title", "region", "industry", "period", "conditions",
	"url", "hashtags", "source", "notice_id",
}

type searchRequest struct {
	Q        string `json:"q"`
	Region   string `json:"region"`
	Industry string `json:"industry"`
}

type searchResponse struct {
	Items         []types.Record `json:"items"`
	OriginalQuery string         `json:"originalQuery"`
	EnhancedQuery string         `json:"enhancedQuery"`
	SearchType    string         `json:"searchType"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	res, err := s.matcher.Search(r.Context(), match.SearchRequest{
		Query:    req.Q,
		Region:   req.Region,
		Industry: req.Industry,
	})
	if err != nil {
		s.log.Error().Err(err).Str("q", req.Q).Msg("search failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "search failed"})
		return
	}

	items := res.Items
	if items == nil {
		items = []types.Record{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Items:         items,
		OriginalQuery: res.OriginalQuery,
		EnhancedQuery: res.EnhancedQuery,
		SearchType:    res.SearchType,
	})
}

type matchRequest struct {
	Q           string     `json:"q"`
	Region      string     `json:"region"`
	Industry    string     `json:"industry"`
	UserContext string     `json:"userContext"`
	TopK        lenientInt `json:"topK"`
}

// lenientInt decodes a JSON number or numeric string. Any other value
// decodes to 0, which selects the default.
type lenientInt int

func (n *lenientInt) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = 0
	switch x := v.(type) {
	case float64:
		*n = lenientInt(x)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			*n = lenientInt(i)
		}
	}
	return nil
}

type matchResponse struct {
	OK            bool                 `json:"ok"`
	Count         int                  `json:"count"`
	Results       []types.RankedResult `json:"results"`
	OriginalQuery string               `json:"originalQuery,omitempty"`
	SearchType    string               `json:"searchType,omitempty"`
	Note          string               `json:"note,omitempty"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	res, err := s.matcher.Match(r.Context(), match.Request{
		Query:       req.Q,
		Region:      req.Region,
		Industry:    req.Industry,
		UserContext: req.UserContext,
		TopK:        int(req.TopK),
	})
	switch {
	case errors.Is(err, match.ErrMissingUserContext):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "userContext is required."})
		return
	case err != nil:
		s.log.Error().Err(err).Str("q", req.Q).Msg("match pipeline failed, serving latest records")
		results, ferr := s.matcher.LatestFallback(r.Context(), req.UserContext, fallbackTopK)
		if ferr != nil {
			s.log.Error().Err(ferr).Msg("latest fallback failed")
			results = []types.RankedResult{}
		}
		writeJSON(w, http.StatusOK, matchResponse{OK: true, Count: len(results), Results: results, Note: fallbackNote})
		return
	}

	writeJSON(w, http.StatusOK, matchResponse{
		OK:            true,
		Count:         len(res.Results),
		Results:       res.Results,
		OriginalQuery: res.Query,
		SearchType:    res.SearchType,
	})
}

// --- helpers ---

type errorBody struct {
	Error string `json:"error"`
}

// decodeBody reads a JSON object from the request. An empty body decodes
// to the zero value.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) internalError(w http.ResponseWriter, route string, err error) {
	s.log.Error().Err(err).Str("route", route).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		elapsed := time.Since(start)
		s.metrics.RecordHTTP(route, strconv.Itoa(rec.status), elapsed)
		s.log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}
