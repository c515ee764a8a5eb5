// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query normalizes free-text input into bounded term lists,
// applies synonym expansion, and builds FTS5 match expressions.
package query

import (
	"strings"
)

// DefaultMaxTerms is the term cap used when the caller passes zero.
const DefaultMaxTerms = 6

// specialChars replaces characters with meaning in FTS5 query syntax.
var specialChars = strings.NewReplacer(
	`"`, " ",
	"'", " ",
	"(", " ",
	")", " ",
	"*", " ",
	"^", " ",
)

// SplitTerms strips FTS5 special characters from text and returns at most
// max whitespace-separated terms in input order. A max of zero or less
// uses DefaultMaxTerms.
func SplitTerms(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxTerms
	}
	fields := strings.Fields(specialChars.Replace(text))
	if len(fields) > max {
		fields = fields[:max]
	}
	return fields
}

// synonym pairs a trigger with the text appended when it occurs.
type synonym struct {
	key       string
	expansion string
}

// synonyms is ordered; the first key found in the input wins.
var synonyms = []synonym{
	{"창업", "창업 사업시작 사업개시"},
	{"사업", "사업 창업 영업"},
	{"지원", "지원 도움 혜택"},
	{"자금", "자금 돈 자본"},
	{"교육", "교육 훈련 학습"},
	{"컨설팅", "컨설팅 상담 자문"},
	{"마케팅", "마케팅 홍보 판촉"},
	{"기술", "기술 기술력 기술개발"},
	{"디지털", "디지털 온라인 인터넷"},
	{"온라인", "온라인 인터넷 디지털"},
}

// Enhance appends the expansion of the first synonym key contained in
// text. At most one family is appended per call. Empty input is returned
// unchanged.
func Enhance(text string) string {
	if text == "" {
		return text
	}
	for _, s := range synonyms {
		if strings.Contains(text, s.key) {
			return text + " " + s.expansion
		}
	}
	return text
}

// termClause matches a term as an exact phrase or as a prefix.
func termClause(term string) string {
	return `"` + term + `" OR ` + term + "*"
}

// RecallExpression ORs every term clause together. Any term may match.
func RecallExpression(terms []string) string {
	clauses := make([]string, len(terms))
	for i, t := range terms {
		clauses[i] = termClause(t)
	}
	return strings.Join(clauses, " OR ")
}

// StrictExpression ANDs the term clauses. Every term must match.
func StrictExpression(terms []string) string {
	clauses := make([]string, len(terms))
	for i, t := range terms {
		clauses[i] = "(" + termClause(t) + ")"
	}
	return strings.Join(clauses, " AND ")
}
