package matching

import "github.com/scandelicious/promo-engine/internal/promoindex"

// dedupeHits merges the hit lists of all queries belonging to one item,
// keeping the first occurrence of each identifier. Hits with an empty
// identifier are never treated as duplicates. Runs before relevance
// filtering so threshold and expiry checks happen once per unique hit.
func dedupeHits(hits []promoindex.Hit) []promoindex.Hit {
	seen := make(map[string]struct{}, len(hits))
	out := make([]promoindex.Hit, 0, len(hits))
	for _, h := range hits {
		if h.ID != "" {
			if _, dup := seen[h.ID]; dup {
				continue
			}
			seen[h.ID] = struct{}{}
		}
		out = append(out, h)
	}
	return out
}
