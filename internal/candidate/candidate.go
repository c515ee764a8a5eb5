// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package candidate projects stored policies into the canonical candidate
// shape handed to the ranking stage, and normalises raw source rows whose
// field names vary between feeds.
package candidate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/policy-match/pkg/types"
)

// DefaultURLTemplate builds an announcement link from a notice id.
const DefaultURLTemplate = "https://www.sbiz24.kr/#/extldPbanc/%s"

// conditionSep matches the separators seen in condition strings: ASCII and
// full-width punctuation, pipes, and runs of two or more spaces.
var conditionSep = regexp.MustCompile(`[;,/、，|；／｜]|\s{2,}`)

// Projector converts policies to candidates.
type Projector struct {
	// URLTemplate is used when a policy has no URL but has a NoticeID.
	// Empty uses DefaultURLTemplate.
	URLTemplate string
}

// Project converts one policy. Conditions are split into trimmed,
// non-empty phrases; the URL falls back to the notice-id template.
func (p Projector) Project(pol types.Policy) types.Candidate {
	return types.Candidate{
		ID:         pol.ID,
		Title:      pol.Title,
		Region:     pol.Region,
		Industry:   pol.Industry,
		Period:     pol.Period,
		Conditions: SplitConditions(pol.Conditions),
		URL:        p.ResolveURL(pol),
	}
}

// ProjectAll converts records in order.
func (p Projector) ProjectAll(recs []types.Record) []types.Candidate {
	out := make([]types.Candidate, len(recs))
	for i, r := range recs {
		out[i] = p.Project(r.Policy)
	}
	return out
}

// ResolveURL returns the stored URL, or a link built from the notice id,
// or "".
func (p Projector) ResolveURL(pol types.Policy) string {
	if u := strings.TrimSpace(pol.URL); u != "" {
		return u
	}
	id := strings.TrimSpace(pol.NoticeID)
	if id == "" {
		return ""
	}
	tmpl := p.URLTemplate
	if tmpl == "" {
		tmpl = DefaultURLTemplate
	}
	return fmt.Sprintf(tmpl, id)
}

// SplitConditions splits a conditions string on the known separators.
// Always returns a non-nil slice.
func SplitConditions(s string) []string {
	out := []string{}
	for _, part := range conditionSep.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Alternate field names accepted by PolicyFromRow, first match wins.
var (
	titleKeys    = []string{"title", "공고명", "pbancNm"}
	regionKeys   = []string{"region", "지역"}
	industryKeys = []string{"industry", "업종"}
	periodKeys   = []string{"period", "aplyPd", "신청기간"}
	urlKeys      = []string{"url", "link", "URL"}
	hashtagKeys  = []string{"hashtags", "해시태그", "tags"}
	sourceKeys   = []string{"source"}
	noticeKeys   = []string{"notice_id", "noticeId", "pbancId"}

	// Columns combined into conditions when no conditions field exists.
	conditionParts = []string{"지원대상", "사업유형", "주관기관"}
)

// PolicyFromRow builds a Policy from a loosely-typed row such as a decoded
// YAML or JSON object. Conditions and hashtags may be strings or lists;
// list conditions are joined with " | " and list hashtags with ",".
func PolicyFromRow(row map[string]any) types.Policy {
	p := types.Policy{
		ID:       toInt(row["id"]),
		Title:    firstString(row, titleKeys),
		Region:   firstString(row, regionKeys),
		Industry: firstString(row, industryKeys),
		Period:   firstString(row, periodKeys),
		URL:      firstString(row, urlKeys),
		Source:   firstString(row, sourceKeys),
		NoticeID: firstString(row, noticeKeys),
	}

	if v, ok := row["conditions"]; ok && v != nil {
		p.Conditions = joinValue(v, " | ")
	} else {
		var parts []string
		for _, k := range conditionParts {
			if s := toString(row[k]); s != "" {
				parts = append(parts, s)
			}
		}
		p.Conditions = strings.Join(parts, " | ")
	}

	for _, k := range hashtagKeys {
		if v, ok := row[k]; ok && v != nil {
			p.Hashtags = NormalizeHashtags(joinValue(v, ","))
			break
		}
	}
	return p
}

// NormalizeHashtags turns a bracketed, quoted list such as
// "['금융','전북']" into "금융,전북".
func NormalizeHashtags(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.Trim(t, "'\" \t"); t != "" {
			tags = append(tags, t)
		}
	}
	return strings.Join(tags, ",")
}

func firstString(row map[string]any, keys []string) string {
	for _, k := range keys {
		if s := toString(row[k]); s != "" {
			return s
		}
	}
	return ""
}

func joinValue(v any, sep string) string {
	list, ok := v.([]any)
	if !ok {
		return toString(v)
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if s := toString(item); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func toInt(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int64:
		return x
	case uint64:
		return int64(x)
	case float64:
		return int64(x)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n
	}
	return 0
}
