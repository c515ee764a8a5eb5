package reason

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/policy-match/pkg/types"
)

func at(y int, m time.Month, d, h int) Synthesizer {
	t := time.Date(y, m, d, h, 0, 0, 0, KST)
	return Synthesizer{Now: func() time.Time { return t }}
}

func TestBuildHeadline(t *testing.T) {
	p := types.Policy{
		Region:     "서울",
		Industry:   "제조",
		Title:      "스마트 작업장 구축 지원",
		Conditions: "예비창업자 | 서울 소재",
	}
	got := at(2025, time.January, 10, 12).Build(p, "공장을 준비하는 중입니다")
	assert.True(t, strings.HasPrefix(got, "서울 제조업 예비창업 대상"), got)
}

func TestBuildNeverEmpty(t *testing.T) {
	for _, p := range []types.Policy{
		{},
		{Title: "공고"},
		{Period: "상시"},
		{Region: "  "},
	} {
		got := Build(p, "")
		assert.NotEmpty(t, got)
	}
	assert.Equal(t, Generic, Build(types.Policy{Title: "공고"}, ""))
}

func TestBuildComposition(t *testing.T) {
	p := types.Policy{
		Region:     "부산",
		Title:      "소상공인 판로 마케팅 바우처",
		Conditions: "창업 3년 미만 사업자",
		Period:     "2025.03.01~2025.03.31",
	}
	got := at(2025, time.March, 20, 12).Build(p, "")
	assert.Equal(t, "부산 창업 3년 미만 대상. 마케팅 지원, 보조금/바우처. 신청기간 2025.03.01~2025.03.31 (D-11)", got)
}

func TestBuildGenericWithBody(t *testing.T) {
	got := Build(types.Policy{Title: "융자 공고"}, "컨설팅이 필요")
	assert.Equal(t, "조건 적합 가능성. 교육/컨설팅·자금/보증 지원, 대출/이차보전", got)
}

func TestIndustry(t *testing.T) {
	tests := []struct {
		p    types.Policy
		want string
	}{
		{types.Policy{Title: "SW 개발 지원"}, "IT 스타트업"},
		{types.Policy{Hashtags: "온라인,판로"}, "IT 스타트업"},
		{types.Policy{Conditions: "설비 교체"}, "제조업"},
		{types.Policy{Title: "카페 창업"}, "요식/프랜차이즈"},
		{types.Policy{Title: "영상 제작"}, "콘텐츠/디자인"},
		{types.Policy{Title: "바이어 발굴"}, "수출/해외"},
		{types.Policy{Industry: " 농업 ", Title: "청년 농부"}, "농업"},
		{types.Policy{}, ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Industry(tc.p), tc.p.Title)
	}
}

func TestStage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"예비창업자 대상", "예비창업"},
		{"창업 7년 이내 기업", "창업 7년 이내"},
		{"창업3년미만", "창업 3년 미만"},
		{"창업 5 년", "창업 5년 이내"},
		{"초기 기업", "초기(1~3년)"},
		{"업력 1-3년", "초기(1~3년)"},
		{"5년차 사업자", "중기(4~7년)"},
		{"소상공인", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Stage(types.Policy{Conditions: tc.text}), tc.text)
	}
}

func TestTopicsCapAndOrder(t *testing.T) {
	p := types.Policy{Title: "수출 바우처", Conditions: "컨설팅 제공", Hashtags: "R&D"}
	assert.Equal(t, []string{"마케팅", "기술개발"}, Topics(p, ""))

	assert.Equal(t, []string{"디지털 전환"}, Topics(types.Policy{}, "E-Commerce 쇼핑몰 운영"))
	assert.Empty(t, Topics(types.Policy{Title: "공고"}, ""))
}

func TestFunding(t *testing.T) {
	assert.Equal(t, "보조금/바우처", Funding(types.Policy{Title: "무상 지원"}))
	assert.Equal(t, "보증 연계", Funding(types.Policy{Conditions: "신보 보증서 발급"}))
	assert.Equal(t, "대출/이차보전", Funding(types.Policy{Hashtags: "이차보전"}))
	assert.Equal(t, "", Funding(types.Policy{Title: "교육"}))
}

func TestSummarizePeriod(t *testing.T) {
	tests := []struct {
		name string
		s    Synthesizer
		in   string
		want string
	}{
		{"open range", at(2025, time.January, 10, 12), "2025.01.01~2025.01.31", "신청기간 2025.01.01~2025.01.31 (D-21)"},
		{"last day", at(2025, time.January, 31, 9), "2025.01.01~2025.01.31", "신청기간 2025.01.01~2025.01.31 (D-0)"},
		{"closed range", at(2025, time.February, 2, 0), "2025.01.01~2025.01.31", "신청기간 2025.01.01~2025.01.31 (마감)"},
		{"mixed delimiters", at(2025, time.January, 10, 12), "2025-1-5 ∼ 2025/01/20", "신청기간 2025.01.05~2025.01.20 (D-10)"},
		{"full-width tilde", at(2025, time.January, 10, 12), "2025.01.05～2025.01.20 18:00", "신청기간 2025.01.05~2025.01.20 (D-10)"},
		{"single deadline", at(2025, time.June, 1, 12), "~ 2025.06.03 까지", "마감 2025.06.03 (D-2)"},
		{"rolling", at(2025, time.January, 1, 0), "수시", ""},
		{"ongoing", at(2025, time.January, 1, 0), "상시 접수", ""},
		{"separate notice", at(2025, time.January, 1, 0), "별도 공고 참조", ""},
		{"varies", at(2025, time.January, 1, 0), "사업별 상이", ""},
		{"unparsable", at(2025, time.January, 1, 0), "추후 안내", ""},
		{"empty", at(2025, time.January, 1, 0), "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.s.SummarizePeriod(tc.in))
		})
	}
}
