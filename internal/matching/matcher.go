package matching

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/scandelicious/promo-engine/internal/observability"
	"github.com/scandelicious/promo-engine/internal/profile"
	"github.com/scandelicious/promo-engine/internal/promoindex"
)

// Searcher is the one operation the pipeline needs from the retrieval
// backend: dense search with optional metadata filter and integrated
// rerank.
type Searcher interface {
	Search(ctx context.Context, req promoindex.SearchRequest) ([]promoindex.Hit, error)
}

// Config holds the tunable pipeline parameters. Thresholds live here
// rather than in package globals so tests and the bench tool can run
// with alternates.
type Config struct {
	SearchTopK     int
	RerankTopN     int
	ScoreThreshold float64
	ItemDelay      time.Duration
}

// DefaultConfig returns production matching parameters.
func DefaultConfig() Config {
	return Config{
		SearchTopK:     20,
		RerankTopN:     5,
		ScoreThreshold: 0.55,
		ItemDelay:      200 * time.Millisecond,
	}
}

// Matcher runs the per-item pipeline: query, search, dedup, filter,
// fallback.
type Matcher struct {
	searcher Searcher
	cfg      Config
	log      *observability.Logger
	now      func() time.Time
}

// NewMatcher creates a matcher over the given retrieval backend.
func NewMatcher(searcher Searcher, cfg Config, log *observability.Logger) *Matcher {
	if cfg.SearchTopK <= 0 {
		cfg.SearchTopK = DefaultConfig().SearchTopK
	}
	if cfg.RerankTopN <= 0 {
		cfg.RerankTopN = DefaultConfig().RerankTopN
	}
	if log == nil {
		log = observability.DefaultLogger()
	}
	return &Matcher{
		searcher: searcher,
		cfg:      cfg,
		log:      log.WithComponent("matching"),
		now:      time.Now,
	}
}

// MatchItem finds relevant promos for one interest item. Per-query
// search failures degrade to zero hits; only authentication failures
// and context cancellation abort the run.
func (m *Matcher) MatchItem(ctx context.Context, item profile.InterestItem) ([]PromoRecord, error) {
	now := m.now()
	queries := BuildQueries(item, now)

	var all []promoindex.Hit
	for _, q := range queries {
		hits, err := m.search(ctx, q.Text, q.Filter)
		if err != nil {
			return nil, err
		}

		// Retry without the category constraint when the filtered
		// search comes up empty; expiry is still enforced.
		if len(hits) == 0 && item.GranularCategory != "" {
			hits, err = m.search(ctx, q.Text, expiryFilter(now))
			if err != nil {
				return nil, err
			}
		}
		all = append(all, hits...)
	}

	relevant := m.filterHits(dedupeHits(all), now)

	if len(relevant) == 0 && m.fallbackEligible(item) {
		fallback, err := m.fallbackSearch(ctx, item, queries, now)
		if err != nil {
			return nil, err
		}
		relevant = fallback
	}

	if len(relevant) > m.cfg.RerankTopN {
		relevant = relevant[:m.cfg.RerankTopN]
	}
	return relevant, nil
}

// search issues one backend call. Transient failures are absorbed here
// as an empty hit list so a single bad query never sinks the run.
func (m *Matcher) search(ctx context.Context, text string, filter map[string]interface{}) ([]promoindex.Hit, error) {
	hits, err := m.searcher.Search(ctx, promoindex.SearchRequest{
		Text:   text,
		TopK:   m.cfg.SearchTopK,
		TopN:   m.cfg.RerankTopN,
		Filter: filter,
	})
	if err != nil {
		if errors.Is(err, promoindex.ErrUnauthorized) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		m.log.Warn().Err(err).Str("query", text).Msg("promo search failed, treating as zero hits")
		return nil, nil
	}
	return hits, nil
}

// filterHits applies the score threshold, then price and expiry
// validation, preserving relevance order.
func (m *Matcher) filterHits(hits []promoindex.Hit, now time.Time) []PromoRecord {
	relevant := make([]PromoRecord, 0, len(hits))
	for _, h := range hits {
		if h.Score < m.cfg.ScoreThreshold {
			continue
		}
		record := buildRecord(h.Fields, h.Score)
		if !record.priceValid() {
			m.log.Debug().Str("hit", h.ID).Msg("dropping promo with implausible prices")
			continue
		}
		if record.expired(now) {
			m.log.Debug().Str("hit", h.ID).Str("validity_end", record.ValidityEnd).Msg("dropping expired promo")
			continue
		}
		relevant = append(relevant, record)
	}
	return relevant
}

// fallbackEligible gates the category-broadening retry. Items that are
// themselves category fallbacks never broaden again.
func (m *Matcher) fallbackEligible(item profile.InterestItem) bool {
	return item.GranularCategory != "" && item.InterestCategory != profile.InterestCategoryFallback
}

// fallbackSearch re-runs the pipeline once with a broadened term
// derived from the category ("Salami & Sausage" becomes "salami"),
// still carrying the category filter. Skipped when the broadened term
// repeats a query already issued for this item, since rerunning it
// gains nothing.
func (m *Matcher) fallbackSearch(ctx context.Context, item profile.InterestItem, tried []SearchQuery, now time.Time) ([]PromoRecord, error) {
	term := strings.ToLower(strings.Split(item.GranularCategory, " & ")[0])
	for _, q := range tried {
		if term == q.Text {
			return nil, nil
		}
	}

	hits, err := m.search(ctx, term, itemFilter(item.GranularCategory, now))
	if err != nil {
		return nil, err
	}

	m.log.Debug().Str("item", item.NormalizedName).Str("fallback", term).Int("hits", len(hits)).Msg("category fallback search")
	return m.filterHits(hits, now), nil
}
