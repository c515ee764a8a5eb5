// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/policy-match/internal/candidate"
	"github.com/pdiddy/policy-match/pkg/types"
)

// Dictionaries for filling empty region and industry fields. Order matters:
// the first entry found in the text wins.
var (
	knownRegions = []string{
		"서울", "부산", "대구", "인천", "광주", "대전", "울산", "세종",
		"경기", "강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
		"전북특별자치도", "경기도", "전라남도", "전라북도",
	}
	knownIndustries = []string{
		"요식업", "음식점", "식음료", "제조업", "도소매", "숙박", "관광", "문화",
		"IT", "정보통신", "교육", "헬스케어", "물류", "프랜차이즈", "농업", "수산", "라이브커머스",
	}
)

// maxParallelParse bounds concurrent seed-file decoding.
const maxParallelParse = 4

// LoadSummary reports the outcome of a Load call.
type LoadSummary struct {
	Files    int
	Loaded   int
	Inferred int
}

// Load reads seed files and writes their rows to the store. Each file
// holds a YAML (or JSON) list of objects; field names may follow any feed
// convention that candidate.PolicyFromRow accepts. Rows missing region or
// industry get them inferred from title, hashtags, and conditions. Files
// are decoded concurrently and written in one transaction, so a failure
// leaves the store unchanged. Progress is written to w.
func (s *Store) Load(ctx context.Context, paths []string, w io.Writer) (LoadSummary, error) {
	if s.readOnly {
		return LoadSummary{}, ErrReadOnly
	}

	parsed := make([][]types.Policy, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelParse)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := readRows(path)
			if err != nil {
				return err
			}
			policies := make([]types.Policy, len(rows))
			for j, row := range rows {
				policies[j] = candidate.PolicyFromRow(row)
			}
			parsed[i] = policies
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return LoadSummary{}, err
	}

	var (
		summary LoadSummary
		all     []types.Policy
	)
	for i, policies := range parsed {
		for j := range policies {
			if inferFields(&policies[j]) {
				summary.Inferred++
			}
		}
		fmt.Fprintf(w, "parsed  %s (%d rows)\n", filepath.Base(paths[i]), len(policies))
		all = append(all, policies...)
		summary.Files++
	}

	ids, err := s.PutAll(ctx, all)
	if err != nil {
		return LoadSummary{}, err
	}
	summary.Loaded = len(ids)

	total, err := s.Count(ctx)
	if err != nil {
		return summary, err
	}
	fmt.Fprintf(w, "\nfiles: %d, loaded: %d, inferred: %d, total: %d\n",
		summary.Files, summary.Loaded, summary.Inferred, total)
	return summary, nil
}

func readRows(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var rows []map[string]any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &rows)
	} else {
		err = yaml.Unmarshal(data, &rows)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rows, nil
}

// inferFields fills empty region and industry from the policy text and
// reports whether either was filled. Source defaults to the seed feed.
func inferFields(p *types.Policy) bool {
	if p.Source == "" {
		p.Source = "sbiz24"
	}
	text := strings.Join([]string{p.Title, p.Hashtags, p.Conditions}, " ")
	filled := false
	if p.Region == "" {
		if r := firstContained(text, knownRegions); r != "" {
			p.Region = r
			filled = true
		}
	}
	if p.Industry == "" {
		if ind := firstContained(text, knownIndustries); ind != "" {
			p.Industry = ind
			filled = true
		}
	}
	return filled
}

func firstContained(text string, words []string) string {
	for _, w := range words {
		if strings.Contains(text, w) {
			return w
		}
	}
	return ""
}
