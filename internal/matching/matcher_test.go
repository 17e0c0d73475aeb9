package matching

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scandelicious/promo-engine/internal/observability"
	"github.com/scandelicious/promo-engine/internal/profile"
	"github.com/scandelicious/promo-engine/internal/promoindex"
)

type fakeSearcher struct {
	respond func(req promoindex.SearchRequest) ([]promoindex.Hit, error)
	calls   []promoindex.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req promoindex.SearchRequest) ([]promoindex.Hit, error) {
	f.calls = append(f.calls, req)
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(req)
}

// byText routes responses on query text alone.
func byText(responses map[string][]promoindex.Hit) func(promoindex.SearchRequest) ([]promoindex.Hit, error) {
	return func(req promoindex.SearchRequest) ([]promoindex.Hit, error) {
		return responses[req.Text], nil
	}
}

func newTestMatcher(s Searcher, cfg Config) *Matcher {
	m := NewMatcher(s, cfg, observability.Nop())
	m.now = func() time.Time { return testNow }
	return m
}

func validHit(id string, score float64) promoindex.Hit {
	return promoindex.Hit{
		ID:    id,
		Score: score,
		Fields: map[string]interface{}{
			"normalized_name": "promo " + id,
			"original_price":  5.0,
			"promo_price":     3.5,
			"validity_end":    "2026-09-15",
		},
	}
}

func TestMatchItem_AboveThresholdAccepted(t *testing.T) {
	s := &fakeSearcher{respond: byText(map[string][]promoindex.Hit{
		"melkchocolade (Chocolate)": {validHit("p1", 0.9), validHit("p2", 0.61), validHit("p3", 0.4)},
	})}
	m := newTestMatcher(s, DefaultConfig())

	promos, err := m.MatchItem(context.Background(), profile.InterestItem{
		NormalizedName:   "melkchocolade",
		GranularCategory: "Chocolate",
	})
	require.NoError(t, err)

	require.Len(t, promos, 2)
	assert.Equal(t, 0.9, promos[0].RelevanceScore)
	assert.Equal(t, 0.61, promos[1].RelevanceScore)
}

func TestMatchItem_CategoryFallback(t *testing.T) {
	s := &fakeSearcher{respond: byText(map[string][]promoindex.Hit{
		"salami (Salami & Sausage)": {},
		"salami":                    {validHit("f1", 0.8), validHit("f2", 0.7)},
	})}
	m := newTestMatcher(s, DefaultConfig())

	promos, err := m.MatchItem(context.Background(), profile.InterestItem{
		NormalizedName:   "salami",
		GranularCategory: "Salami & Sausage",
		InterestCategory: profile.InterestGeneric,
	})
	require.NoError(t, err)

	require.Len(t, promos, 2)
	assert.Equal(t, "promo f1", promos[0].NormalizedName)
	assert.Equal(t, "promo f2", promos[1].NormalizedName)
	for _, p := range promos {
		require.NotNil(t, p.OriginalPrice)
		require.NotNil(t, p.PromoPrice)
		assert.Greater(t, *p.OriginalPrice, 0.0)
		assert.LessOrEqual(t, *p.PromoPrice, *p.OriginalPrice)
		assert.False(t, p.expired(testNow))
	}

	// The broadened query still carries the category filter.
	last := s.calls[len(s.calls)-1]
	assert.Equal(t, "salami", last.Text)
	require.Contains(t, last.Filter, "$and")
}

func TestMatchItem_FallbackSkippedForCategoryFallbackItems(t *testing.T) {
	s := &fakeSearcher{}
	m := newTestMatcher(s, DefaultConfig())

	promos, err := m.MatchItem(context.Background(), profile.InterestItem{
		NormalizedName:   "salami",
		GranularCategory: "Salami & Sausage",
		InterestCategory: profile.InterestCategoryFallback,
	})
	require.NoError(t, err)
	assert.Empty(t, promos)

	// Primary query plus the unconstrained retry, no broadening.
	require.Len(t, s.calls, 2)
	assert.Equal(t, "salami (Salami & Sausage)", s.calls[0].Text)
	assert.Equal(t, "salami (Salami & Sausage)", s.calls[1].Text)
	assert.NotContains(t, s.calls[1].Filter, "$and")
}

func TestMatchItem_FallbackSkippedWhenTermRepeatsQuery(t *testing.T) {
	s := &fakeSearcher{}
	m := newTestMatcher(s, DefaultConfig())

	// The catch-all category suppresses the query suffix, so the
	// broadened term "other" repeats the primary query text exactly.
	promos, err := m.MatchItem(context.Background(), profile.InterestItem{
		NormalizedName:   "other",
		GranularCategory: "Other",
	})
	require.NoError(t, err)
	assert.Empty(t, promos)

	// Primary query plus the unconstrained retry; re-searching the
	// same text would gain nothing, so no third call.
	require.Len(t, s.calls, 2)
	assert.Equal(t, "other", s.calls[0].Text)
	assert.Equal(t, "other", s.calls[1].Text)
}

func TestMatchItem_RetryWithoutCategoryFilter(t *testing.T) {
	s := &fakeSearcher{respond: func(req promoindex.SearchRequest) ([]promoindex.Hit, error) {
		if _, constrained := req.Filter["$and"]; constrained {
			return nil, nil
		}
		return []promoindex.Hit{validHit("p1", 0.9)}, nil
	}}
	m := newTestMatcher(s, DefaultConfig())

	promos, err := m.MatchItem(context.Background(), profile.InterestItem{
		NormalizedName:   "speculoos",
		GranularCategory: "Biscuits",
	})
	require.NoError(t, err)
	require.Len(t, promos, 1)
}

func TestMatchItem_BrandLoyalDedupFirstSeenWins(t *testing.T) {
	s := &fakeSearcher{respond: byText(map[string][]promoindex.Hit{
		"Jupiler pils (Beer)": {validHit("p1", 0.9)},
		"Maes pils (Beer)":    {validHit("p1", 0.95), validHit("p2", 0.4)},
	})}
	m := newTestMatcher(s, DefaultConfig())

	promos, err := m.MatchItem(context.Background(), profile.InterestItem{
		NormalizedName:   "pils",
		GranularCategory: "Beer",
		InterestCategory: profile.InterestBrandLoyal,
		Brands:           []string{"Jupiler", "Maes"},
	})
	require.NoError(t, err)

	require.Len(t, promos, 1)
	assert.Equal(t, 0.9, promos[0].RelevanceScore)
}

func TestMatchItem_RejectsPromoMoreExpensive(t *testing.T) {
	bad := promoindex.Hit{ID: "p1", Score: 0.95, Fields: map[string]interface{}{
		"original_price": 5.0,
		"promo_price":    7.0,
	}}
	s := &fakeSearcher{respond: byText(map[string][]promoindex.Hit{"wasmiddel": {bad}})}
	m := newTestMatcher(s, DefaultConfig())

	promos, err := m.MatchItem(context.Background(), profile.InterestItem{NormalizedName: "wasmiddel"})
	require.NoError(t, err)
	assert.Empty(t, promos)
}

func TestMatchItem_RejectsExpired(t *testing.T) {
	stale := promoindex.Hit{ID: "p1", Score: 0.95, Fields: map[string]interface{}{
		"validity_end": "2026-08-30",
	}}
	s := &fakeSearcher{respond: byText(map[string][]promoindex.Hit{"wasmiddel": {stale}})}
	m := newTestMatcher(s, DefaultConfig())

	promos, err := m.MatchItem(context.Background(), profile.InterestItem{NormalizedName: "wasmiddel"})
	require.NoError(t, err)
	assert.Empty(t, promos)
}

func TestMatchItem_ThresholdMonotonicity(t *testing.T) {
	hits := []promoindex.Hit{validHit("a", 0.9), validHit("b", 0.6), validHit("c", 0.35)}
	item := profile.InterestItem{NormalizedName: "kaas"}

	var prev = len(hits) + 1
	for _, threshold := range []float64{0.3, 0.55, 0.7, 0.95} {
		cfg := DefaultConfig()
		cfg.ScoreThreshold = threshold
		s := &fakeSearcher{respond: byText(map[string][]promoindex.Hit{"kaas": hits})}
		m := newTestMatcher(s, cfg)

		promos, err := m.MatchItem(context.Background(), item)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(promos), prev, "threshold %v", threshold)
		prev = len(promos)
	}
}

func TestMatchItem_CapsAtTopN(t *testing.T) {
	var hits []promoindex.Hit
	for i := 0; i < 8; i++ {
		hits = append(hits, validHit(fmt.Sprintf("p%d", i), 0.9))
	}
	s := &fakeSearcher{respond: byText(map[string][]promoindex.Hit{"koffie": hits})}
	m := newTestMatcher(s, DefaultConfig())

	promos, err := m.MatchItem(context.Background(), profile.InterestItem{NormalizedName: "koffie"})
	require.NoError(t, err)
	assert.Len(t, promos, 5)
}

func TestMatchItem_SearchFailureDegradesToEmpty(t *testing.T) {
	s := &fakeSearcher{respond: func(promoindex.SearchRequest) ([]promoindex.Hit, error) {
		return nil, fmt.Errorf("search: %w", promoindex.ErrRateLimited)
	}}
	m := newTestMatcher(s, DefaultConfig())

	promos, err := m.MatchItem(context.Background(), profile.InterestItem{NormalizedName: "koffie"})
	require.NoError(t, err)
	assert.Empty(t, promos)
}

func TestMatchItem_AuthFailureIsFatal(t *testing.T) {
	s := &fakeSearcher{respond: func(promoindex.SearchRequest) ([]promoindex.Hit, error) {
		return nil, fmt.Errorf("search: %w", promoindex.ErrUnauthorized)
	}}
	m := newTestMatcher(s, DefaultConfig())

	_, err := m.MatchItem(context.Background(), profile.InterestItem{NormalizedName: "koffie"})
	assert.ErrorIs(t, err, promoindex.ErrUnauthorized)
}

func TestMatchItem_Idempotent(t *testing.T) {
	s := &fakeSearcher{respond: byText(map[string][]promoindex.Hit{
		"kaas": {validHit("a", 0.9), validHit("b", 0.6)},
	})}
	m := newTestMatcher(s, DefaultConfig())
	item := profile.InterestItem{NormalizedName: "kaas"}

	first, err := m.MatchItem(context.Background(), item)
	require.NoError(t, err)
	second, err := m.MatchItem(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
