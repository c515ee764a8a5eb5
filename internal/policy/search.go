// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/policy-match/pkg/types"
)

// Substring hit weights for MatchSubstring scoring.
const (
	weightTitle      = 3
	weightConditions = 2
	weightHashtags   = 1
)

// MatchFullText runs an FTS5 match expression against title and
// conditions, joined back to the policies table. Rows are ordered by bm25
// ascending (lower is better), then newest first. A malformed expression
// surfaces as an error from the FTS5 engine.
func (s *Store) MatchFullText(ctx context.Context, expr string, f types.Filters, limit int) ([]types.Record, error) {
	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(`SELECT ` + policyColumns + `, bm25(policies_fts) AS relevance_score
		FROM policies_fts
		JOIN policies p ON p.id = policies_fts.rowid
		WHERE policies_fts MATCH ?`)
	args = append(args, expr)

	args = appendFilters(&qb, args, f)

	qb.WriteString(` ORDER BY relevance_score ASC, p.rowid DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("full-text query %q: %w", expr, err)
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("full-text query %q: %w", expr, err)
	}
	return recs, nil
}

// MatchSubstring scores each row by weighted substring hits per term
// (title 3, conditions 2, hashtags 1) and returns rows matching at least
// one term and every filter, ordered by score descending then newest
// first. With no terms, every row passing the filters matches with score 0.
func (s *Store) MatchSubstring(ctx context.Context, terms []string, f types.Filters, limit int) ([]types.Record, error) {
	var (
		qb        strings.Builder
		args      []any
		scoreArgs []any
		hitArgs   []any
	)

	score := "0"
	var hits []string
	if len(terms) > 0 {
		parts := make([]string, len(terms))
		hits = make([]string, len(terms))
		for i, t := range terms {
			like := "%" + t + "%"
			parts[i] = fmt.Sprintf(`(CASE WHEN p.title LIKE ? THEN %d ELSE 0 END) +
				(CASE WHEN IFNULL(p.conditions,'') LIKE ? THEN %d ELSE 0 END) +
				(CASE WHEN IFNULL(p.hashtags,'') LIKE ? THEN %d ELSE 0 END)`,
				weightTitle, weightConditions, weightHashtags)
			scoreArgs = append(scoreArgs, like, like, like)

			hits[i] = `p.title LIKE ? OR IFNULL(p.conditions,'') LIKE ? OR IFNULL(p.hashtags,'') LIKE ?`
			hitArgs = append(hitArgs, like, like, like)
		}
		score = strings.Join(parts, " + ")
	}

	qb.WriteString(`SELECT ` + policyColumns + `, (` + score + `) AS relevance_score
		FROM policies p
		WHERE 1=1`)
	args = append(args, scoreArgs...)

	if len(hits) > 0 {
		qb.WriteString(` AND (` + strings.Join(hits, " OR ") + `)`)
		args = append(args, hitArgs...)
	}

	args = appendFilters(&qb, args, f)

	qb.WriteString(` ORDER BY relevance_score DESC, p.rowid DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("substring query %v: %w", terms, err)
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("substring query %v: %w", terms, err)
	}
	return recs, nil
}

// Recent returns the most recently inserted policies, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+`, NULL FROM policies p ORDER BY p.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent query: %w", err)
	}
	return scanRecords(rows)
}

// All returns every policy in insertion order.
func (s *Store) All(ctx context.Context) ([]types.Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+`, NULL FROM policies p ORDER BY p.rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing policies: %w", err)
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	policies := make([]types.Policy, len(recs))
	for i, r := range recs {
		policies[i] = r.Policy
	}
	return policies, nil
}

// appendFilters adds one substring predicate per non-empty filter.
func appendFilters(qb *strings.Builder, args []any, f types.Filters) []any {
	for _, fl := range []struct {
		column string
		value  string
	}{
		{"region", strings.TrimSpace(f.Region)},
		{"industry", strings.TrimSpace(f.Industry)},
	} {
		if fl.value == "" {
			continue
		}
		like := "%" + fl.value + "%"
		fmt.Fprintf(qb, ` AND (IFNULL(p.%s,'') LIKE ? OR p.title LIKE ? OR IFNULL(p.conditions,'') LIKE ? OR IFNULL(p.hashtags,'') LIKE ?)`, fl.column)
		args = append(args, like, like, like, like)
	}
	return args
}
