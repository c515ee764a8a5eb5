// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTerms(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"empty", "", 6, []string{}},
		{"whitespace only", "   \t ", 6, []string{}},
		{"simple", "창업 지원", 6, []string{"창업", "지원"}},
		{"strips specials", `"창업"(지원)* ^마케팅 '자금'`, 6, []string{"창업", "지원", "마케팅", "자금"}},
		{"caps at max", "a b c d e f g h", 6, []string{"a", "b", "c", "d", "e", "f"}},
		{"default max", "a b c d e f g h", 0, []string{"a", "b", "c", "d", "e", "f"}},
		{"custom max", "a b c", 2, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitTerms(tt.text, tt.max))
		})
	}
}

func TestEnhance(t *testing.T) {
	assert.Equal(t, "", Enhance(""))
	assert.Equal(t, "카페 운영", Enhance("카페 운영"))

	// "창업" precedes "지원" in table order, so only its family is added.
	got := Enhance("창업 지원")
	assert.Equal(t, "창업 지원 창업 사업시작 사업개시", got)
	assert.NotContains(t, got, "혜택")

	assert.Equal(t, "마케팅 비용 마케팅 홍보 판촉", Enhance("마케팅 비용"))
}

func TestEnhanceAppendsOneFamilyPerCall(t *testing.T) {
	once := Enhance("창업 지원")
	twice := Enhance(once)

	// A second pass appends exactly one more copy of the same family.
	assert.Equal(t, once+" 창업 사업시작 사업개시", twice)
	assert.Equal(t, 1, strings.Count(once, "사업시작"))
}

func TestRecallExpression(t *testing.T) {
	assert.Equal(t, "", RecallExpression(nil))
	assert.Equal(t, `"창업" OR 창업*`, RecallExpression([]string{"창업"}))
	assert.Equal(t, `"창업" OR 창업* OR "지원" OR 지원*`, RecallExpression([]string{"창업", "지원"}))
}

func TestStrictExpression(t *testing.T) {
	assert.Equal(t, `("창업" OR 창업*)`, StrictExpression([]string{"창업"}))
	assert.Equal(t, `("창업" OR 창업*) AND ("지원" OR 지원*)`, StrictExpression([]string{"창업", "지원"}))
}
