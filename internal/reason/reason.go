// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reason writes short Korean justifications for a policy from its
// own fields and the requester's context. Output depends only on the
// inputs and the clock, so tests pin the clock.
package reason

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/policy-match/pkg/types"
)

// KST is the fixed zone used for deadline arithmetic.
var KST = time.FixedZone("KST", 9*60*60)

// Generic is returned when a policy carries no structural signal.
const Generic = "조건 적합 가능성"

// rule maps a pattern to a label. Rule lists are ordered; the first match
// wins unless noted.
type rule struct {
	re    *regexp.Regexp
	label string
}

var industryRules = []rule{
	{regexp.MustCompile(`(it|sw|소프트웨어|정보통신|디지털|온라인)`), "IT 스타트업"},
	{regexp.MustCompile(`(제조|스마트공장|설비|장비)`), "제조업"},
	{regexp.MustCompile(`(요식|음식|식당|프랜차이즈|카페|베이커리)`), "요식/프랜차이즈"},
	{regexp.MustCompile(`(콘텐츠|영상|디자인|브랜딩|광고)`), "콘텐츠/디자인"},
	{regexp.MustCompile(`(수출|해외|바이어|무역)`), "수출/해외"},
}

var (
	preFounding   = regexp.MustCompile(`예비창업`)
	foundedWithin = regexp.MustCompile(`창업\s*([0-9]{1,2})\s*년\s*(이내|미만)?`)
	earlyStage    = regexp.MustCompile(`초기|1~3년|1-3년|1-2년|1년차|2년차|3년차`)
	midStage      = regexp.MustCompile(`중기|4~7년|4-7년|5년차`)
)

// topicRules are all evaluated; at most maxTopics labels are kept.
var topicRules = []rule{
	{regexp.MustCompile(`(마케팅|홍보|브랜딩|판촉|광고|바우처)`), "마케팅"},
	{regexp.MustCompile(`(디지털전환|온라인전환|e-?commerce|쇼핑몰|플랫폼)`), "디지털 전환"},
	{regexp.MustCompile(`(기술개발|r&d|연구개발|테스트베드)`), "기술개발"},
	{regexp.MustCompile(`(수출|해외|바이어|전시회)`), "해외/수출"},
	{regexp.MustCompile(`(컨설팅|멘토링|코칭|교육)`), "교육/컨설팅"},
	{regexp.MustCompile(`(운영자금|시설|장비|임대|보증|대출|융자|이차보전)`), "자금/보증"},
}

const maxTopics = 2

var fundingRules = []rule{
	{regexp.MustCompile(`(보조금|무상|바우처)`), "보조금/바우처"},
	{regexp.MustCompile(`(보증|보증서|신보|기보)`), "보증 연계"},
	{regexp.MustCompile(`(대출|융자|이차보전)`), "대출/이차보전"},
}

var (
	nonDatePeriod = regexp.MustCompile(`상이|별도 공고|수시|상시`)
	periodSep     = regexp.MustCompile(`[~∼～]`)
	datePattern   = regexp.MustCompile(`(20\d{2})[.\-/](\d{1,2})[.\-/](\d{1,2})`)
)

// Synthesizer builds justifications against a clock.
type Synthesizer struct {
	// Now returns the evaluation time. Nil uses time.Now.
	Now func() time.Time
}

func (s Synthesizer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Build returns a justification of the form
// "{region} {industry} {stage} 대상. {topics} 지원, {funding}. {period}"
// with empty segments omitted. It never returns "".
func (s Synthesizer) Build(p types.Policy, userContext string) string {
	head := joinNonEmpty(" ", strings.TrimSpace(p.Region), Industry(p), Stage(p))

	var out strings.Builder
	if head != "" {
		out.WriteString(head + " 대상")
	} else {
		out.WriteString(Generic)
	}

	var body []string
	if topics := Topics(p, userContext); len(topics) > 0 {
		body = append(body, strings.Join(topics, "·")+" 지원")
	}
	if fund := Funding(p); fund != "" {
		body = append(body, fund)
	}
	if len(body) > 0 {
		out.WriteString(". " + strings.Join(body, ", "))
	}

	if period := s.SummarizePeriod(p.Period); period != "" {
		out.WriteString(". " + period)
	}
	return out.String()
}

// Build uses the wall clock.
func Build(p types.Policy, userContext string) string {
	return Synthesizer{}.Build(p, userContext)
}

// Industry returns a normalised industry label, defaulting to the
// policy's own industry field.
func Industry(p types.Policy) string {
	blob := strings.ToLower(strings.Join([]string{p.Industry, p.Title, p.Hashtags, p.Conditions}, " "))
	for _, r := range industryRules {
		if r.re.MatchString(blob) {
			return r.label
		}
	}
	return strings.TrimSpace(p.Industry)
}

// Stage returns a business-stage label parsed from conditions and title.
func Stage(p types.Policy) string {
	blob := p.Conditions + " " + p.Title
	if preFounding.MatchString(blob) {
		return "예비창업"
	}
	if m := foundedWithin.FindStringSubmatch(blob); m != nil {
		qualifier := m[2]
		if qualifier == "" {
			qualifier = "이내"
		}
		return fmt.Sprintf("창업 %s년 %s", m[1], qualifier)
	}
	if earlyStage.MatchString(blob) {
		return "초기(1~3년)"
	}
	if midStage.MatchString(blob) {
		return "중기(4~7년)"
	}
	return ""
}

// Topics returns up to two support topics found in the policy text and
// the requester's context.
func Topics(p types.Policy, userContext string) []string {
	base := strings.ToLower(strings.Join([]string{p.Title, p.Conditions, p.Hashtags, userContext}, " "))
	var topics []string
	for _, r := range topicRules {
		if len(topics) == maxTopics {
			break
		}
		if r.re.MatchString(base) {
			topics = append(topics, r.label)
		}
	}
	return topics
}

// Funding returns the funding-type label, or "".
func Funding(p types.Policy) string {
	blob := strings.ToLower(strings.Join([]string{p.Title, p.Conditions, p.Hashtags}, " "))
	for _, r := range fundingRules {
		if r.re.MatchString(blob) {
			return r.label
		}
	}
	return ""
}

// SummarizePeriod renders an application period with a days-remaining
// marker: "신청기간 2025.01.01~2025.01.31 (D-3)" for a range, or
// "마감 2025.01.31 (마감)" for a single date. Rolling or unparsable
// periods give "".
func (s Synthesizer) SummarizePeriod(raw string) string {
	txt := strings.TrimSpace(raw)
	if txt == "" || nonDatePeriod.MatchString(txt) {
		return ""
	}
	now := s.now()

	if parts := periodSep.Split(txt, -1); len(parts) >= 2 {
		start, okStart := parseDate(parts[0])
		end, okEnd := parseDate(parts[1])
		if okStart && okEnd {
			return fmt.Sprintf("신청기간 %s~%s %s", formatDate(start), formatDate(end), status(end, now))
		}
	}

	if one, ok := parseDate(txt); ok {
		return fmt.Sprintf("마감 %s %s", formatDate(one), status(one, now))
	}
	return ""
}

// parseDate finds the first YYYY.MM.DD date (any of . - / as delimiter)
// and returns midnight of that day in KST.
func parseDate(s string) (time.Time, bool) {
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, KST), true
}

func formatDate(t time.Time) string {
	return t.In(KST).Format("2006.01.02")
}

// status gives "(D-n)" with n the ceiling of days left, or "(마감)" once
// the deadline has passed.
func status(deadline, now time.Time) string {
	days := int(math.Ceil(deadline.Sub(now).Hours() / 24))
	if days >= 0 {
		return fmt.Sprintf("(D-%d)", days)
	}
	return "(마감)"
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
