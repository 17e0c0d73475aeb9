// Package matching implements the promo matching pipeline: query
// construction, vector retrieval, deduplication, relevance filtering
// and category-broadening fallback.
package matching

import (
	"fmt"
	"strconv"
	"time"

	"github.com/scandelicious/promo-engine/internal/profile"
)

// catchAllCategory is the bucket for items the enrichment step could
// not categorize. It carries no retrieval signal, so it never appears
// in query text or filters.
const catchAllCategory = "Other"

// SearchQuery is one textual query plus its metadata filter, built per
// interest item (or per brand within a brand-loyal item).
type SearchQuery struct {
	Text   string
	Filter map[string]interface{}
}

// todayEpoch encodes a date as a YYYYMMDD integer. The index filter
// predicate only supports numeric comparison, so promo validity dates
// are pre-encoded this way at indexing time.
func todayEpoch(now time.Time) int {
	n, _ := strconv.Atoi(now.Format("20060102"))
	return n
}

// expiryFilter matches only promos whose validity window has not ended.
func expiryFilter(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"validity_end_epoch": map[string]interface{}{"$gte": todayEpoch(now)},
	}
}

// itemFilter conjoins the category constraint, when present, with the
// expiry constraint.
func itemFilter(granularCategory string, now time.Time) map[string]interface{} {
	expiry := expiryFilter(now)
	if granularCategory == "" {
		return expiry
	}
	return map[string]interface{}{
		"$and": []map[string]interface{}{
			{"granular_category": map[string]interface{}{"$eq": granularCategory}},
			expiry,
		},
	}
}

// categorySuffix returns the " (<category>)" query-text suffix, or ""
// when the category is absent or the catch-all bucket.
func categorySuffix(granularCategory string) string {
	if granularCategory == "" || granularCategory == catchAllCategory {
		return ""
	}
	return fmt.Sprintf(" (%s)", granularCategory)
}

// BuildQueries turns one interest item into its search queries. Brand
// loyal items get one query per brand; everything else gets exactly
// one. The result is never empty.
func BuildQueries(item profile.InterestItem, now time.Time) []SearchQuery {
	suffix := categorySuffix(item.GranularCategory)
	filter := itemFilter(item.GranularCategory, now)

	if item.InterestCategory == profile.InterestBrandLoyal && len(item.Brands) > 0 {
		queries := make([]SearchQuery, 0, len(item.Brands))
		for _, brand := range item.Brands {
			queries = append(queries, SearchQuery{
				Text:   fmt.Sprintf("%s %s%s", brand, item.NormalizedName, suffix),
				Filter: filter,
			})
		}
		return queries
	}

	return []SearchQuery{{
		Text:   item.NormalizedName + suffix,
		Filter: filter,
	}}
}
