package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRecall("recall", "fulltext")
		m.RecordTierError("fulltext")
		m.RecordRerank("ok", time.Second)
		m.RecordIntegrityDrop()
		m.RecordBackfill("recent", 2)
		m.RecordHTTP("/match", "200", time.Millisecond)
	})
}

func TestRecordCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRecall("strict", "substring")
	m.RecordRecall("strict", "substring")
	m.RecordTierError("fulltext")
	m.RecordRerank("fallback_error", 3*time.Second)
	m.RecordIntegrityDrop()
	m.RecordBackfill("pool", 2)
	m.RecordBackfill("recent", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecallTotal.WithLabelValues("strict", "substring")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecallTierErrors.WithLabelValues("fulltext")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RerankTotal.WithLabelValues("fallback_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntegrityDrops))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BackfillTotal.WithLabelValues("pool")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BackfillTotal.WithLabelValues("recent")))
}
