// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"github.com/pdiddy/policy-match/internal/rerank"
	"github.com/pdiddy/policy-match/pkg/types"
)

// Backfill sources, also used as metric labels.
const (
	SourcePool   = "pool"
	SourceRecent = "recent"
)

// Merger joins ranking selections to stored records and fills short
// result lists. Reasons it writes come from Reasoner.
type Merger struct {
	Reasoner func(p types.Policy, userContext string) string

	// URL, when set, replaces each result's URL with its resolved link.
	URL func(p types.Policy) string

	// Dropped is called with the id of each selection absent from the pool.
	Dropped func(id int64)
}

// Merge resolves each selection, in order, against the recall pool.
// Selections whose id is not in the pool are dropped. The selection's
// reason is kept unless it is empty or the fallback marker, in which
// case one is synthesized from the record.
func (m Merger) Merge(selections []types.Selection, pool []types.Record, userContext string) []types.RankedResult {
	index := make(map[int64]types.Policy, len(pool))
	for _, r := range pool {
		index[r.ID] = r.Policy
	}

	out := make([]types.RankedResult, 0, len(selections))
	seen := make(map[int64]bool, len(selections))
	for _, sel := range selections {
		p, ok := index[sel.ID]
		if !ok {
			if m.Dropped != nil {
				m.Dropped(sel.ID)
			}
			continue
		}
		if seen[sel.ID] {
			continue
		}
		seen[sel.ID] = true

		reason := sel.Reason
		if reason == "" || rerank.IsFallbackReason(reason) {
			reason = m.Reasoner(p, userContext)
		}
		matched := sel.MatchedConditions
		if matched == nil {
			matched = []string{}
		}
		out = append(out, types.RankedResult{
			Policy:            m.resolve(p),
			Score:             sel.Score,
			MatchedConditions: matched,
			Reason:            reason,
		})
	}
	return out
}

// Backfill appends records from source, skipping ids already present,
// until current holds topK results or source is exhausted. Each added
// result scores one tenth below its predecessor (5 when current is empty)
// and gets a synthesized reason. It returns the extended list and the
// number of records added.
func (m Merger) Backfill(current []types.RankedResult, source []types.Record, topK int, userContext string) ([]types.RankedResult, int) {
	have := make(map[int64]bool, len(current))
	for _, r := range current {
		have[r.ID] = true
	}

	added := 0
	for _, rec := range source {
		if len(current) >= topK {
			break
		}
		if have[rec.ID] {
			continue
		}
		have[rec.ID] = true

		score := 5.0
		if n := len(current); n > 0 {
			prev := 5.0
			if s := current[n-1].Score; s != nil {
				prev = *s
			}
			score = rerank.StepDown(prev, 1)
		}
		current = append(current, types.RankedResult{
			Policy:            m.resolve(rec.Policy),
			Score:             types.Float(score),
			MatchedConditions: []string{},
			Reason:            m.Reasoner(rec.Policy, userContext),
		})
		added++
	}
	return current, added
}

func (m Merger) resolve(p types.Policy) types.Policy {
	if m.URL != nil {
		p.URL = m.URL(p)
	}
	return p
}
