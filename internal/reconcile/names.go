package reconcile

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

// resolveName tries exact, substring and fuzzy matching, then falls back to the name as written.
func (e *Engine) resolveName(ctx context.Context, row entity.ResultRow, res *resolution) {
	lookup := row.LookupName
	if lookup == "" {
		lookup = row.Name
	}

	name, err := e.store.FindName(ctx, lookup)
	if err == nil {
		res.canonical, res.tier = name, constants.NameExact
		res.nameMatch = strings.EqualFold(row.Name, name)
		return
	}
	e.storeErr("find_name", err, "name", lookup)

	name, err = e.store.FindNameContaining(ctx, lookup)
	if err == nil {
		res.canonical, res.tier = name, constants.NameSubstring
		return
	}
	e.storeErr("find_name_containing", err, "name", lookup)

	names, err := e.store.CanonicalNames(ctx)
	e.storeErr("canonical_names", err)
	if best, score, ok := BestMatch(lookup, names, e.rules.SimilarityFloor); ok {
		e.logger.Debug("reconcile.name.fuzzy", "name", lookup, "match", best, "similarity", score)
		res.canonical, res.tier = best, constants.NameFuzzy
		return
	}

	res.canonical, res.tier = lookup, constants.NameVerbatim
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)) over lowercased runes.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.Distance(a, b, nil))/float64(maxLen)
}

// BestMatch returns the most similar candidate scoring strictly above floor.
// Ties keep the earlier candidate.
func BestMatch(query string, candidates []string, floor float64) (string, float64, bool) {
	best, bestScore := "", -1.0
	for _, c := range candidates {
		if s := Similarity(query, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	if best == "" || bestScore <= floor {
		return "", bestScore, false
	}
	return best, bestScore, true
}
