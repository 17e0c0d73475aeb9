package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestBuildRecord(t *testing.T) {
	fields := map[string]interface{}{
		"normalized_name":   "melkchocolade",
		"brand":             "Milka",
		"granular_category": "Chocolate",
		"original_price":    4.99,
		"promo_price":       "2.99",
		"promo_mechanism":   "1+1 gratis",
		"validity_start":    "2026-08-28",
		"validity_end":      "2026-09-03",
		"source_retailer":   "Colruyt",
		"page_number":       float64(13),
	}

	r := buildRecord(fields, 0.87654321)

	assert.Equal(t, 0.8765, r.RelevanceScore)
	assert.Equal(t, "melkchocolade", r.NormalizedName)
	assert.Equal(t, "Milka", r.Brand)
	require.NotNil(t, r.OriginalPrice)
	assert.Equal(t, 4.99, *r.OriginalPrice)
	require.NotNil(t, r.PromoPrice)
	assert.Equal(t, 2.99, *r.PromoPrice)
	assert.Equal(t, "Colruyt", r.SourceRetailer)
	assert.Equal(t, float64(13), r.PageNumber)
	assert.Nil(t, r.PromoFolderURL)
}

func TestBuildRecord_EmptyFields(t *testing.T) {
	r := buildRecord(map[string]interface{}{}, 0.6)
	assert.Equal(t, 0.6, r.RelevanceScore)
	assert.Empty(t, r.NormalizedName)
	assert.Nil(t, r.OriginalPrice)
	assert.Nil(t, r.PromoPrice)
}

func TestPriceValid(t *testing.T) {
	tests := []struct {
		name     string
		original *float64
		promo    *float64
		want     bool
	}{
		{"both missing", nil, nil, true},
		{"only original", floatPtr(3.5), nil, true},
		{"only promo", nil, floatPtr(2.0), true},
		{"normal discount", floatPtr(5.0), floatPtr(3.5), true},
		{"equal prices", floatPtr(5.0), floatPtr(5.0), true},
		{"promo more expensive", floatPtr(5.0), floatPtr(7.0), false},
		{"zero original", floatPtr(0), floatPtr(0), false},
		{"negative original", floatPtr(-1), floatPtr(-2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PromoRecord{OriginalPrice: tt.original, PromoPrice: tt.promo}
			assert.Equal(t, tt.want, r.priceValid())
		})
	}
}

func TestExpired(t *testing.T) {
	tests := []struct {
		name        string
		validityEnd string
		want        bool
	}{
		{"no date", "", false},
		{"future", "2026-09-15", false},
		{"today", "2026-08-31", false},
		{"yesterday", "2026-08-30", true},
		{"long past", "2025-01-01", true},
		{"unparseable", "next week", false},
		{"wrong format", "31/08/2026", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PromoRecord{ValidityEnd: tt.validityEnd}
			assert.Equal(t, tt.want, r.expired(testNow))
		})
	}
}

func TestFieldFloat(t *testing.T) {
	fields := map[string]interface{}{
		"number":  2.5,
		"numeric": "3.95",
		"junk":    "two euros",
		"flag":    true,
	}

	require.NotNil(t, fieldFloat(fields, "number"))
	assert.Equal(t, 2.5, *fieldFloat(fields, "number"))
	require.NotNil(t, fieldFloat(fields, "numeric"))
	assert.Equal(t, 3.95, *fieldFloat(fields, "numeric"))
	assert.Nil(t, fieldFloat(fields, "junk"))
	assert.Nil(t, fieldFloat(fields, "flag"))
	assert.Nil(t, fieldFloat(fields, "missing"))
}
