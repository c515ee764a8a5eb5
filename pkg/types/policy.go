// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the policy-match pipeline:
// stored policy records, per-request candidates and ranked results, and the
// configuration for each stage.
package types

// Policy is a stored support-policy record. Records are immutable once
// stored and replaced wholesale on re-ingest.
type Policy struct {
	// ID is the primary key. It doubles as the full-text index rowid.
	ID int64 `json:"id" yaml:"id"`

	// Title is the announcement title.
	Title string `json:"title" yaml:"title"`

	// Region is a free-form region label (e.g. "서울"). May be empty.
	Region string `json:"region" yaml:"region"`

	// Industry is a free-form industry label (e.g. "제조업"). May be empty.
	Industry string `json:"industry" yaml:"industry"`

	// Period is the application period, either a date range such as
	// "2025.01.01~2025.01.31" or free text such as "상시".
	Period string `json:"period" yaml:"period"`

	// Conditions holds eligibility clauses joined by pipes or commas.
	Conditions string `json:"conditions" yaml:"conditions"`

	// URL is the announcement link. Empty when the source had none.
	URL string `json:"url" yaml:"url,omitempty"`

	// Hashtags is a comma-joined tag list. Empty when the source had none.
	Hashtags string `json:"hashtags" yaml:"hashtags,omitempty"`

	// Source tags the origin feed (e.g. "sbiz24", "bizinfo").
	Source string `json:"source" yaml:"source"`

	// NoticeID is the feed's own announcement identifier, used to build a
	// canonical link when URL is empty.
	NoticeID string `json:"notice_id,omitempty" yaml:"notice_id,omitempty"`
}

// Record is a Policy as returned by a store query, with the relevance
// column the query computed. Relevance is nil for unranked queries.
type Record struct {
	Policy `yaml:",inline"`

	// Relevance follows the producing query's convention: bm25 (lower is
	// better) for full-text matches, weighted hit count (higher is better)
	// for substring matches.
	Relevance *float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`
}

// Filters narrows a store query by region and industry. Each non-empty
// field must appear as a substring of the region/industry column, the
// title, the conditions, or the hashtags.
type Filters struct {
	Region   string
	Industry string
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f.Region == "" && f.Industry == ""
}

// Candidate is the canonical shape handed to the ranking stage. It is
// derived per request and never persisted.
type Candidate struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Region     string   `json:"region"`
	Industry   string   `json:"industry"`
	Period     string   `json:"period"`
	Conditions []string `json:"conditions"`
	URL        string   `json:"url"`
}

// Selection is one validated pick from the ranking stage.
type Selection struct {
	// ID always refers to a candidate that was sent to the ranking stage.
	ID int64 `json:"id"`

	// Score is in [0,10], or nil when the ranking stage gave none or an
	// invalid one.
	Score *float64 `json:"score"`

	// Reason is the ranking stage's short justification.
	Reason string `json:"reason"`

	// MatchedConditions lists condition phrases the ranking stage matched.
	MatchedConditions []string `json:"matchedConditions"`

	// URL is optional.
	URL string `json:"url,omitempty"`
}

// RankedResult is a full policy record joined with its ranking outcome.
type RankedResult struct {
	Policy

	Score             *float64 `json:"score"`
	MatchedConditions []string `json:"matchedConditions"`
	Reason            string   `json:"reason"`
}

// Float returns a pointer to v, for optional scores.
func Float(v float64) *float64 {
	return &v
}
