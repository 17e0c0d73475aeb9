// Package profile provides the enriched shopping profile model and its
// Postgres repository. Profiles are produced by the receipt enrichment
// pipeline; this package only reads and stores them.
package profile

import "time"

// InterestCategory classifies how an interest item was derived.
type InterestCategory string

const (
	// InterestGeneric marks an item bought regularly without brand loyalty.
	InterestGeneric InterestCategory = "generic"
	// InterestBrandLoyal marks an item the user buys in specific brands.
	InterestBrandLoyal InterestCategory = "brand_loyal"
	// InterestCategoryFallback marks a broader category-level interest
	// synthesized when item-level data was too sparse.
	InterestCategoryFallback InterestCategory = "category_fallback"
)

// ItemMetrics carries purchase-history metrics for one interest item.
// Nil fields mean insufficient data for that calculation.
type ItemMetrics struct {
	TotalSpend            *float64 `json:"total_spend"`
	TripCount             *int     `json:"trip_count"`
	AvgUnitsPerTrip       *float64 `json:"avg_units_per_trip"`
	AvgUnitPrice          *float64 `json:"avg_unit_price"`
	PurchaseFrequencyDays *float64 `json:"purchase_frequency_days"`
	RestockUrgency        *float64 `json:"restock_urgency"`
}

// InterestItem is a normalized product the user is inferred to want deals on.
type InterestItem struct {
	NormalizedName     string           `json:"normalized_name"`
	GranularCategory   string           `json:"granular_category,omitempty"`
	InterestCategory   InterestCategory `json:"interest_category"`
	Brands             []string         `json:"brands,omitempty"`
	Tags               []string         `json:"tags,omitempty"`
	Metrics            *ItemMetrics     `json:"metrics,omitempty"`
	IsCategoryFallback bool             `json:"is_category_fallback,omitempty"`
}

// EnrichedProfile is the aggregated shopping profile for one user.
type EnrichedProfile struct {
	UserID           string                 `json:"user_id"`
	ShoppingHabits   map[string]interface{} `json:"shopping_habits"`
	InterestItems    []InterestItem         `json:"promo_interest_items"`
	DataPeriodStart  *time.Time             `json:"data_period_start"`
	DataPeriodEnd    *time.Time             `json:"data_period_end"`
	ReceiptsAnalyzed int                    `json:"receipts_analyzed"`
	LastRebuiltAt    *time.Time             `json:"last_rebuilt_at"`
}
