package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/policy-match/internal/query"
	"github.com/pdiddy/policy-match/pkg/types"
)

// --- test helpers ---

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "soho.db")
	store, err := Open(types.StoreConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func samplePolicies() []types.Policy {
	return []types.Policy{
		{
			ID: 1, Title: "서울 예비창업자 사업화 자금 지원", Region: "서울", Industry: "",
			Period: "2025.01.01~2025.01.31", Conditions: "예비창업자 | 서울 소재",
			Hashtags: "창업,자금", Source: "sbiz24",
		},
		{
			ID: 2, Title: "부산 제조업 스마트공장 구축", Region: "부산", Industry: "제조업",
			Period: "상시", Conditions: "제조 소상공인 | 업력 1년 이상",
			Hashtags: "스마트공장", Source: "sbiz24", NoticeID: "PBLN_0002",
		},
		{
			ID: 3, Title: "온라인 판로 마케팅 바우처", Region: "", Industry: "",
			Period: "2025.03.01~2025.04.30", Conditions: "소상공인 누구나",
			Hashtags: "마케팅,온라인", Source: "sbiz24", URL: "https://example.com/3",
		},
	}
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	_, err := s.PutAll(context.Background(), samplePolicies())
	require.NoError(t, err)
}

func ids(recs []types.Record) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

// --- schema and writes ---

func TestOpenCreatesSchema(t *testing.T) {
	s, _ := openTestStore(t)
	tables, err := s.Tables(context.Background())
	require.NoError(t, err)
	assert.Contains(t, tables, "policies")
	assert.Contains(t, tables, "policies_fts")
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(types.StoreConfig{})
	assert.Error(t, err)
}

func TestPutAndGet(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seed(t, s)

	p, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "부산 제조업 스마트공장 구축", p.Title)
	assert.Equal(t, "PBLN_0002", p.NoticeID)
	assert.Empty(t, p.URL)

	_, err = s.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPutAssignsID(t *testing.T) {
	s, _ := openTestStore(t)
	id, err := s.Put(context.Background(), types.Policy{Title: "새 공고"})
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestIndexFollowsWrites(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seed(t, s)

	expr := query.RecallExpression([]string{"스마트공장"})
	recs, err := s.MatchFullText(ctx, expr, types.Filters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(recs))

	// Update: the old title must stop matching, the new one must match.
	p := samplePolicies()[1]
	p.Title = "부산 제조업 설비 고도화"
	_, err = s.Put(ctx, p)
	require.NoError(t, err)

	recs, err = s.MatchFullText(ctx, expr, types.Filters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = s.MatchFullText(ctx, query.RecallExpression([]string{"설비"}), types.Filters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(recs))

	// Delete: the row must vanish from the index.
	require.NoError(t, s.Delete(ctx, 2))
	recs, err = s.MatchFullText(ctx, query.RecallExpression([]string{"설비"}), types.Filters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	assert.ErrorIs(t, s.Delete(ctx, 2), ErrNotFound)
}

func TestReindex(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seed(t, s)

	require.NoError(t, s.Reindex(ctx))

	recs, err := s.MatchFullText(ctx, query.RecallExpression([]string{"바우처"}), types.Filters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(recs))
}

func TestReadOnly(t *testing.T) {
	s, path := openTestStore(t)
	seed(t, s)
	require.NoError(t, s.Close())

	ro, err := Open(types.StoreConfig{Path: path, ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()

	ctx := context.Background()
	_, err = ro.Put(ctx, types.Policy{Title: "x"})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, ro.Delete(ctx, 1), ErrReadOnly)
	assert.ErrorIs(t, ro.Reindex(ctx), ErrReadOnly)

	recs, err := ro.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestReadOnlyMissingDatabase(t *testing.T) {
	_, err := Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "none.db"), ReadOnly: true})
	assert.Error(t, err)
}

// --- queries ---

func TestMatchFullTextModes(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seed(t, s)

	terms := []string{"사업화", "스마트공장"}

	recs, err := s.MatchFullText(ctx, query.RecallExpression(terms), types.Filters{}, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids(recs))
	for _, r := range recs {
		require.NotNil(t, r.Relevance)
	}

	recs, err = s.MatchFullText(ctx, query.StrictExpression(terms), types.Filters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMatchFullTextPrefix(t *testing.T) {
	s, _ := openTestStore(t)
	seed(t, s)

	// "예비창업자" is a single token; the prefix clause reaches it.
	recs, err := s.MatchFullText(context.Background(), query.RecallExpression([]string{"예비"}), types.Filters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(recs))
}

func TestMatchFullTextMalformed(t *testing.T) {
	s, _ := openTestStore(t)
	seed(t, s)

	_, err := s.MatchFullText(context.Background(), `"unterminated`, types.Filters{}, 10)
	assert.Error(t, err)
}

func TestMatchSubstringWeights(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seed(t, s)

	// Title hit (3) outranks hashtag-only hit (1).
	_, err := s.Put(ctx, types.Policy{ID: 4, Title: "일반 공고", Hashtags: "마케팅"})
	require.NoError(t, err)

	recs, err := s.MatchSubstring(ctx, []string{"마케팅"}, types.Filters{}, 10)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 4}, ids(recs))
	assert.Equal(t, 4.0, *recs[0].Relevance)
	assert.Equal(t, 1.0, *recs[1].Relevance)
}

func TestMatchSubstringNoTerms(t *testing.T) {
	s, _ := openTestStore(t)
	seed(t, s)

	recs, err := s.MatchSubstring(context.Background(), nil, types.Filters{Region: "부산"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(recs))
}

func TestFiltersMatchAnyTextField(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seed(t, s)
	_, err := s.Put(ctx, types.Policy{ID: 5, Title: "서울시 소상공인 마케팅 교육", Conditions: "서울 소재 사업자"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		filters types.Filters
		want    []int64
	}{
		{"region column or title", types.Filters{Region: "서울"}, []int64{5, 1}},
		{"industry column", types.Filters{Industry: "제조"}, []int64{2}},
		{"both filters", types.Filters{Region: "서울", Industry: "제조"}, nil},
		{"blank filters ignored", types.Filters{Region: "  "}, []int64{5, 3, 2, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recs, err := s.MatchSubstring(ctx, nil, tc.filters, 10)
			require.NoError(t, err)
			if tc.want == nil {
				assert.Empty(t, recs)
				return
			}
			assert.Equal(t, tc.want, ids(recs))
		})
	}
}

func TestRecentNewestFirst(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	recs, err := s.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, recs)

	seed(t, s)
	recs, err = s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(recs))
	assert.Nil(t, recs[0].Relevance)
}

// --- load and export ---

func TestLoadInfersFields(t *testing.T) {
	s, _ := openTestStore(t)
	dir := t.TempDir()

	seedYAML := `- 공고명: 전북 음식점 경영개선 지원
  신청기간: 2025.05.01~2025.05.31
  해시태그: "['금융','전북']"
  지원대상: 소상공인
  주관기관: 전북특별자치도
  pbancId: PBLN_100
- title: 온라인 판로 지원
  period: 상시
  conditions: [온라인 셀러, 소상공인]
  hashtags: [온라인, 판로]
`
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	var out strings.Builder
	summary, err := s.Load(context.Background(), []string{path}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Files)
	assert.Equal(t, 2, summary.Loaded)
	assert.Equal(t, 1, summary.Inferred)
	assert.Contains(t, out.String(), "seed.yaml (2 rows)")

	recs, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	first := recs[1].Policy
	assert.Equal(t, "전북", first.Region)
	assert.Equal(t, "음식점", first.Industry)
	assert.Equal(t, "금융,전북", first.Hashtags)
	assert.Equal(t, "소상공인 | 전북특별자치도", first.Conditions)
	assert.Equal(t, "PBLN_100", first.NoticeID)
	assert.Equal(t, "sbiz24", first.Source)

	second := recs[0].Policy
	assert.Equal(t, "온라인 셀러 | 소상공인", second.Conditions)
	assert.Equal(t, "온라인,판로", second.Hashtags)
}

func TestLoadBadFileWritesNothing(t *testing.T) {
	s, _ := openTestStore(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("- title: 정상 공고\n"), 0o644))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))

	_, err := s.Load(context.Background(), []string{good, bad}, &strings.Builder{})
	require.Error(t, err)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExportRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seed(t, s)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "out", "export.yaml")
	n, err := s.ExportYAML(ctx, yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	var policies []types.Policy
	require.NoError(t, yaml.Unmarshal(data, &policies))
	assert.Equal(t, samplePolicies(), policies)

	jsonPath := filepath.Join(dir, "export.json")
	_, err = s.ExportJSON(ctx, jsonPath)
	require.NoError(t, err)
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	policies = nil
	require.NoError(t, json.Unmarshal(data, &policies))
	assert.Len(t, policies, 3)

	// Re-loading the export replaces rows in place.
	other, _ := openTestStore(t)
	_, err = other.Load(ctx, []string{yamlPath, yamlPath}, &strings.Builder{})
	require.NoError(t, err)
	count, err := other.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
