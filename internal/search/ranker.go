package search

import (
	"math"
	"sort"
	"time"

	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
)

// Weights are the fused ranking coefficients. Alpha weighs vector
// similarity, Beta the editorial featured flag, Gamma the recency boost.
// They are independently tunable and need not sum to 1.
type Weights struct {
	Alpha float64
	Beta  float64
	Gamma float64
}

// RankedHit is a ScoredHit after business-signal fusion.
type RankedHit struct {
	FinalScore float64
	Hit        vectorstore.ScoredHit
}

// timestampLayouts are tried in order when parsing updated_at payloads.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// RecencyBoost decays exponentially with whole days elapsed since
// updatedAt: 1.0 at zero days, halved roughly every 21 days. A missing or
// unparseable timestamp yields exactly 0, never an error.
func RecencyBoost(updatedAt string, now time.Time) float64 {
	if updatedAt == "" {
		return 0
	}
	var t time.Time
	var err error
	for _, layout := range timestampLayouts {
		t, err = time.Parse(layout, updatedAt)
		if err == nil {
			break
		}
	}
	if err != nil {
		return 0
	}
	days := int(now.Sub(t).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return math.Exp(-float64(days) / 30.0)
}

// Rank fuses similarity with the featured flag and recency boost from each
// hit's payload and orders hits by final score descending. The sort is
// stable, so exact ties keep the index's original similarity order.
func Rank(hits []vectorstore.ScoredHit, w Weights, now time.Time) []RankedHit {
	ranked := make([]RankedHit, len(hits))
	for i, h := range hits {
		featured := 0.0
		if b, ok := h.Payload["featured"].(bool); ok && b {
			featured = 1.0
		}
		updatedAt, _ := h.Payload["updated_at"].(string)

		final := w.Alpha*float64(h.Score) + w.Beta*featured + w.Gamma*RecencyBoost(updatedAt, now)
		ranked[i] = RankedHit{FinalScore: final, Hit: h}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	return ranked
}

// Paginate slices a fully ranked result set. Page is zero-indexed. It must
// only be called after Rank has ordered the complete candidate set;
// paginating candidates before the fused sort drops higher-ranked items.
func Paginate(ranked []RankedHit, page, size int) []RankedHit {
	if page < 0 || size <= 0 {
		return nil
	}
	start := page * size
	if start >= len(ranked) {
		return nil
	}
	end := start + size
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[start:end]
}
