package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseNow = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) // a Monday

func TestParseBriefing(t *testing.T) {
	raw := `{
		"weekly_savings": 7.5,
		"deal_count": 2,
		"top_picks": [
			{"brand": "Milka", "product_name": "Melkchocolade", "original_price": 4.0,
			 "promo_price": 2.0, "savings": 2.0, "discount_percentage": 99,
			 "mechanism": "1+1 Gratis", "page_number": 13.0}
		],
		"stores": [
			{"store_name": "Colruyt", "total_savings": 7.5, "items": [
				{"brand": "Jupiler", "product_name": "Pils", "original_price": 12.0,
				 "promo_price": 8.5, "savings": 3.5, "page_number": null}
			]}
		],
		"smart_switch": null,
		"summary": {"total_items": 2, "total_savings": 7.5, "closing_nudge": "Go get them."}
	}`

	b, err := ParseBriefing(raw, parseNow)
	require.NoError(t, err)

	assert.Equal(t, 7.5, b.WeeklySavings)
	assert.Equal(t, 2, b.DealCount)
	require.Len(t, b.TopPicks, 1)

	// Float page numbers coerce to integers.
	require.NotNil(t, b.TopPicks[0].PageNumber)
	assert.Equal(t, PageNumber(13), *b.TopPicks[0].PageNumber)
	assert.Nil(t, b.Stores[0].Items[0].PageNumber)

	// Discount percentages are recomputed, not trusted.
	assert.Equal(t, 50, b.TopPicks[0].DiscountPercentage)
	assert.Equal(t, 29, b.Stores[0].Items[0].DiscountPercentage)

	// Promo week is always computed server side.
	assert.Equal(t, "31/08", b.PromoWeek.Start)
	assert.Equal(t, "06/09", b.PromoWeek.End)
	assert.Equal(t, "Week 36", b.PromoWeek.Label)
}

func TestParseBriefing_UnparseablePageNumberBecomesNull(t *testing.T) {
	raw := `{
		"top_picks": [
			{"brand": "Lay's", "product_name": "Chips", "original_price": 3.0,
			 "promo_price": 1.5, "page_number": "see folder"},
			{"brand": "Alpro", "product_name": "Sojadrink", "original_price": 2.0,
			 "promo_price": 1.0, "page_number": "7"}
		]
	}`

	b, err := ParseBriefing(raw, parseNow)
	require.NoError(t, err)
	require.Len(t, b.TopPicks, 2)

	assert.Nil(t, b.TopPicks[0].PageNumber)
	require.NotNil(t, b.TopPicks[1].PageNumber)
	assert.Equal(t, PageNumber(7), *b.TopPicks[1].PageNumber)
}

func TestParseBriefing_StripsCodeFences(t *testing.T) {
	raw := "```json\n{\"weekly_savings\": 3, \"deal_count\": 1}\n```"
	b, err := ParseBriefing(raw, parseNow)
	require.NoError(t, err)
	assert.Equal(t, 3.0, b.WeeklySavings)
}

func TestParseBriefing_StripsTrailingCommas(t *testing.T) {
	raw := `{"weekly_savings": 3, "top_picks": [{"brand": "Alpro",},],}`
	b, err := ParseBriefing(raw, parseNow)
	require.NoError(t, err)
	require.Len(t, b.TopPicks, 1)
	assert.Equal(t, "Alpro", b.TopPicks[0].Brand)
}

func TestParseBriefing_CapsTopPicks(t *testing.T) {
	raw := `{"top_picks": [{"brand":"a"},{"brand":"b"},{"brand":"c"},{"brand":"d"},{"brand":"e"}]}`
	b, err := ParseBriefing(raw, parseNow)
	require.NoError(t, err)
	assert.Len(t, b.TopPicks, 3)
}

func TestParseBriefing_InvalidJSON(t *testing.T) {
	_, err := ParseBriefing("I could not find any deals, sorry!", parseNow)
	assert.Error(t, err)
}

func TestParseBriefing_EmptySections(t *testing.T) {
	b, err := ParseBriefing(`{"weekly_savings": 0}`, parseNow)
	require.NoError(t, err)
	assert.NotNil(t, b.TopPicks)
	assert.NotNil(t, b.Stores)
	assert.NotNil(t, b.Summary.StoresBreakdown)
}

func TestComputePromoWeek(t *testing.T) {
	// Wednesday mid-week resolves to the surrounding Mon-Sun window.
	wed := time.Date(2026, 9, 2, 18, 0, 0, 0, time.UTC)
	week := computePromoWeek(wed)
	assert.Equal(t, "31/08", week.Start)
	assert.Equal(t, "06/09", week.End)
	assert.Equal(t, "Week 36", week.Label)

	// Sunday still belongs to the week that started the previous Monday.
	sun := time.Date(2026, 9, 6, 23, 0, 0, 0, time.UTC)
	week = computePromoWeek(sun)
	assert.Equal(t, "31/08", week.Start)
}
