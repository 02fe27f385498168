package intake

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/coa-verifier/internal/reconcile"
)

const maxSuggestions = 10

// SimilarFoods ranks candidates against food. A candidate qualifies when its similarity is at
// least floor or when one name contains the other.
func SimilarFoods(food string, candidates []string, floor float64, limit int) []string {
	food = strings.TrimSpace(food)
	if food == "" {
		return nil
	}
	type scored struct {
		name  string
		score float64
	}
	var hits []scored
	for _, c := range candidates {
		if c == "" || c == food {
			continue
		}
		score := reconcile.Similarity(food, c)
		if score >= floor || strings.Contains(c, food) || strings.Contains(food, c) {
			hits = append(hits, scored{c, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].name < hits[j].name
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}
