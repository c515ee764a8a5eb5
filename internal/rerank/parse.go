// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rerank

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/pdiddy/policy-match/pkg/types"
)

// ParseSelections decodes a model response into validated selections.
// The response may be a bare list or an object with a "results" list;
// anything else decodes to no selections. Items are kept only when their
// id names a candidate not already selected. Scores outside [0,10] or of
// the wrong type become nil; a missing matchedConditions becomes empty.
// At most topK selections are returned, along with the ids that named no
// candidate.
func ParseSelections(raw string, candidates []types.Candidate, topK int) ([]types.Selection, []int64, error) {
	var doc any
	if err := unmarshalLenient(stripFences(raw), &doc); err != nil {
		return nil, nil, fmt.Errorf("decoding ranking response: %w", err)
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["results"].([]any)
	}

	byID := make(map[int64]types.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	seen := make(map[int64]bool)
	out := []types.Selection{}
	var unknown []int64
	for _, item := range items {
		if len(out) == topK {
			break
		}
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := parseID(m["id"])
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		c, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}

		sel := types.Selection{
			ID:                id,
			Score:             parseScore(m["score"]),
			MatchedConditions: stringList(m["matchedConditions"]),
			URL:               c.URL,
		}
		if s, ok := m["reason"].(string); ok {
			sel.Reason = strings.TrimSpace(s)
		}
		if s, ok := m["url"].(string); ok && strings.TrimSpace(s) != "" {
			sel.URL = strings.TrimSpace(s)
		}
		out = append(out, sel)
	}
	return out, unknown, nil
}

// unmarshalLenient retries through jsonrepair when the input is not
// well-formed JSON.
func unmarshalLenient(data string, v any) error {
	err := json.Unmarshal([]byte(data), v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, rerr := jsonrepair.JSONRepair(data)
	if rerr != nil {
		return fmt.Errorf("repairing JSON: %w", rerr)
	}
	return json.Unmarshal([]byte(fixed), v)
}

// stripFences removes a surrounding ``` or ```json code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// parseID accepts integral JSON numbers and numeric strings.
func parseID(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if x != float64(int64(x)) {
			return 0, false
		}
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func parseScore(v any) *float64 {
	f, ok := v.(float64)
	if !ok || f < 0 || f > 10 {
		return nil
	}
	return types.Float(f)
}

func stringList(v any) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
