package recommend

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// PageNumber tolerates the numeric sloppiness of generated output:
// integers, floats and numeric strings all coerce to an int, anything
// else decodes to null.
type PageNumber int

// pageNumberInvalid marks values the coercion could not interpret.
// The parser nulls these out so they render as JSON null, never 0.
const pageNumberInvalid PageNumber = math.MinInt32

// UnmarshalJSON implements json.Unmarshaler.
func (p *PageNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*p = PageNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*p = PageNumber(f)
			return nil
		}
	}
	*p = pageNumberInvalid
	return nil
}

// PromoWeek is the Monday-to-Sunday window the briefing covers,
// rendered Belgian style (DD/MM).
type PromoWeek struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

// computePromoWeek returns the promo week containing the given day.
func computePromoWeek(now time.Time) PromoWeek {
	weekday := int(now.Weekday()+6) % 7 // Monday = 0
	monday := now.AddDate(0, 0, -weekday)
	sunday := monday.AddDate(0, 0, 6)
	_, week := now.ISOWeek()
	return PromoWeek{
		Start: monday.Format("02/01"),
		End:   sunday.Format("02/01"),
		Label: fmt.Sprintf("Week %d", week),
	}
}

// Deal is one promoted product in the briefing.
type Deal struct {
	Brand              string      `json:"brand"`
	ProductName        string      `json:"product_name"`
	Emoji              string      `json:"emoji"`
	Store              string      `json:"store,omitempty"`
	OriginalPrice      float64     `json:"original_price"`
	PromoPrice         float64     `json:"promo_price"`
	Savings            float64     `json:"savings"`
	DiscountPercentage int         `json:"discount_percentage"`
	Mechanism          string      `json:"mechanism"`
	ValidityStart      string      `json:"validity_start"`
	ValidityEnd        string      `json:"validity_end"`
	Reason             string      `json:"reason,omitempty"`
	PageNumber         *PageNumber `json:"page_number"`
	PromoFolderURL     *string     `json:"promo_folder_url"`
}

// StoreDeals groups one store's deals.
type StoreDeals struct {
	StoreName    string  `json:"store_name"`
	StoreColor   string  `json:"store_color"`
	TotalSavings float64 `json:"total_savings"`
	ValidityEnd  string  `json:"validity_end"`
	Items        []Deal  `json:"items"`
	Tip          string  `json:"tip"`
}

// SmartSwitch suggests swapping one premium brand for a cheaper
// alternative currently on promo.
type SmartSwitch struct {
	FromBrand   string  `json:"from_brand"`
	ToBrand     string  `json:"to_brand"`
	Emoji       string  `json:"emoji"`
	ProductType string  `json:"product_type"`
	Savings     float64 `json:"savings"`
	Mechanism   string  `json:"mechanism"`
	Reason      string  `json:"reason"`
}

// StoreBreakdown is one store's line in the summary.
type StoreBreakdown struct {
	Store   string  `json:"store"`
	Items   int     `json:"items"`
	Savings float64 `json:"savings"`
}

// Summary closes the briefing.
type Summary struct {
	TotalItems       int              `json:"total_items"`
	TotalSavings     float64          `json:"total_savings"`
	StoresBreakdown  []StoreBreakdown `json:"stores_breakdown"`
	BestValueStore   *string          `json:"best_value_store"`
	BestValueSavings float64          `json:"best_value_savings"`
	BestValueItems   int              `json:"best_value_items"`
	ClosingNudge     string           `json:"closing_nudge"`
}

// Briefing is the full weekly savings briefing returned to the client.
type Briefing struct {
	WeeklySavings float64      `json:"weekly_savings"`
	DealCount     int          `json:"deal_count"`
	PromoWeek     PromoWeek    `json:"promo_week"`
	TopPicks      []Deal       `json:"top_picks"`
	Stores        []StoreDeals `json:"stores"`
	SmartSwitch   *SmartSwitch `json:"smart_switch"`
	Summary       Summary      `json:"summary"`
}

// EmptyBriefing is returned when there is nothing to recommend.
func EmptyBriefing(nudge string, now time.Time) *Briefing {
	return &Briefing{
		PromoWeek: computePromoWeek(now),
		TopPicks:  []Deal{},
		Stores:    []StoreDeals{},
		Summary: Summary{
			StoresBreakdown: []StoreBreakdown{},
			ClosingNudge:    nudge,
		},
	}
}
