// Package recommend turns match results into a weekly savings briefing
// via an external text-generation collaborator.
package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/scandelicious/promo-engine/internal/matching"
	"github.com/scandelicious/promo-engine/internal/profile"
)

// BuildContext renders the user message handed to the generation step:
// a compact profile summary, the interest items with purchase metrics,
// and every matched promotion.
func BuildContext(p *profile.EnrichedProfile, results matching.MatchResult) string {
	var parts []string

	parts = append(parts, "## USER PROFILE")
	parts = append(parts, fmt.Sprintf("Receipts: %d (%s to %s)",
		p.ReceiptsAnalyzed, dateOrNull(p.DataPeriodStart), dateOrNull(p.DataPeriodEnd)))

	habits := p.ShoppingHabits
	parts = append(parts, fmt.Sprintf("Total spend: €%.2f | Avg receipt: €%.2f | %vx/week",
		habitNum(habits, "total_spend"),
		habitNum(habits, "avg_receipt_total"),
		habitVal(habits, "shopping_frequency_per_week")))

	if stores := habitList(habits, "preferred_stores"); len(stores) > 0 {
		if len(stores) > 5 {
			stores = stores[:5]
		}
		lines := make([]string, 0, len(stores))
		for _, s := range stores {
			lines = append(lines, fmt.Sprintf("  %s: €%.2f (%v%%, %v visits)",
				s["name"], habitNum(s, "spend"), habitVal(s, "pct"), habitVal(s, "visits")))
		}
		parts = append(parts, "Stores:\n"+strings.Join(lines, "\n"))
	}

	if hs, ok := habits["avg_health_score"]; ok && hs != nil {
		parts = append(parts, fmt.Sprintf("Health score: %v/5 | Premium ratio: %.0f%%",
			hs, habitNum(habits, "premium_brand_ratio")*100))
	}

	if ht := habitMap(habits, "health_trend"); ht != nil {
		if trend, _ := ht["trend"].(string); trend != "" {
			parts = append(parts, fmt.Sprintf("Health trend: %s (4w avg: %v vs prev: %v)",
				trend, habitOr(ht, "current_4w_avg"), habitOr(ht, "previous_4w_avg")))
			parts = append(parts, fmt.Sprintf("Fresh produce: %v%% of food | Ready meals: %v%%",
				habitVal(ht, "fresh_produce_pct"), habitVal(ht, "ready_meals_pct")))
		}
	}

	if ss := habitMap(habits, "savings_summary"); ss != nil {
		parts = append(parts, fmt.Sprintf("Current savings: €%.2f total (%v%% rate, ~€%.2f/mo)",
			habitNum(ss, "total_saved"), habitVal(ss, "savings_rate_pct"), habitNum(ss, "monthly_savings_avg")))
	}

	if bsp := habitMap(habits, "brand_savings_potential"); bsp != nil {
		parts = append(parts, fmt.Sprintf("Brand split: €%.2f premium / €%.2f house brand / €%.2f unbranded",
			habitNum(bsp, "premium_spend"), habitNum(bsp, "house_brand_spend"), habitNum(bsp, "unbranded_spend")))
		if switchSavings := habitNum(bsp, "estimated_monthly_savings_if_switch"); switchSavings > 0 {
			parts = append(parts, fmt.Sprintf("Potential savings switching to house brands: €%.2f/mo", switchSavings))
		}
	}

	if ind := habitMap(habits, "indulgence_tracker"); ind != nil && habitNum(ind, "total_indulgence") > 0 {
		parts = append(parts, fmt.Sprintf("Indulgence: €%.2f (%v%%) — ~€%.0f/yr",
			habitNum(ind, "total_indulgence"), habitVal(ind, "indulgence_pct"), habitNum(ind, "estimated_yearly")))
	}

	if sl := habitMap(habits, "store_loyalty"); sl != nil {
		parts = append(parts, fmt.Sprintf("Store concentration: %.2f HHI | %v stores visited",
			habitNum(sl, "concentration_score"), habitVal(sl, "stores_visited_count")))
	}

	if se := habitMap(habits, "shopping_efficiency"); se != nil {
		parts = append(parts, fmt.Sprintf("Small trips (<5 items): %v (%v%%), avg €%.2f",
			habitVal(se, "small_trips_count"), habitVal(se, "small_trips_pct"), habitNum(se, "small_trips_avg_cost")))
		if wp := habitNum(se, "weekend_premium_pct"); wp != 0 {
			parts = append(parts, fmt.Sprintf("Weekend premium: %+.1f%% vs weekday", wp))
		}
	}

	parts = append(parts, "\n## ITEMS TO FIND DEALS FOR")
	parts = append(parts, "(Note: null metrics indicate insufficient data for that calculation)")
	for _, item := range p.InterestItems {
		parts = append(parts, renderInterestItem(item))
	}

	parts = append(parts, "\n## MATCHED PROMOTIONS")
	itemsWithPromos := 0
	totalPromos := 0
	for _, item := range p.InterestItems {
		promos := results[item.NormalizedName]
		if len(promos) == 0 {
			continue
		}
		itemsWithPromos++
		parts = append(parts, fmt.Sprintf("\n### %s", item.NormalizedName))
		for _, promo := range promos {
			totalPromos++
			parts = append(parts, renderPromo(promo))
		}
	}

	parts = append(parts, fmt.Sprintf("\n**%d promos matched across %d/%d items.**",
		totalPromos, itemsWithPromos, len(results)))
	parts = append(parts, "\nGenerate the weekly promo briefing now.")

	return strings.Join(parts, "\n")
}

func renderInterestItem(item profile.InterestItem) string {
	brands := strings.Join(item.Brands, ", ")
	if brands == "" {
		brands = "no brand"
	}
	tags := strings.Join(item.Tags, ", ")
	if tags == "" {
		tags = "none"
	}

	var metricParts []string
	var urgency string
	if m := item.Metrics; m != nil {
		if m.TotalSpend != nil {
			metricParts = append(metricParts, fmt.Sprintf("€%.2f spent", *m.TotalSpend))
		}
		if m.TripCount != nil {
			metricParts = append(metricParts, fmt.Sprintf("%d trips", *m.TripCount))
		}
		if m.AvgUnitsPerTrip != nil {
			metricParts = append(metricParts, fmt.Sprintf("~%v units/trip", *m.AvgUnitsPerTrip))
		}
		if m.AvgUnitPrice != nil {
			metricParts = append(metricParts, fmt.Sprintf("€%.2f/unit", *m.AvgUnitPrice))
		}
		if m.PurchaseFrequencyDays != nil {
			metricParts = append(metricParts, fmt.Sprintf("every ~%vd", *m.PurchaseFrequencyDays))
		}
		if m.RestockUrgency != nil {
			switch u := *m.RestockUrgency; {
			case u >= 1.5:
				urgency = fmt.Sprintf(" | OVERDUE (urgency %.1f)", u)
			case u >= 1.0:
				urgency = fmt.Sprintf(" | DUE NOW (urgency %.1f)", u)
			case u >= 0.7:
				urgency = fmt.Sprintf(" | due soon (urgency %.1f)", u)
			}
		}
	}

	metrics := "limited data"
	if len(metricParts) > 0 {
		metrics = strings.Join(metricParts, " | ")
	}

	fallback := ""
	if item.IsCategoryFallback {
		fallback = " [CATEGORY FALLBACK]"
	}

	return fmt.Sprintf("- **%s** [%s]%s\n  brands=%s | category=%s | tags=%s\n  %s%s",
		item.NormalizedName, orUnknown(item.GranularCategory), fallback,
		brands, string(item.InterestCategory), tags, metrics, urgency)
}

func renderPromo(p matching.PromoRecord) string {
	savings := ""
	if p.OriginalPrice != nil && p.PromoPrice != nil {
		savings = fmt.Sprintf(" (save €%.2f)", *p.OriginalPrice-*p.PromoPrice)
	}

	page := ""
	if p.PageNumber != nil {
		page = fmt.Sprintf(" | page=%v", p.PageNumber)
	}
	folder := ""
	if p.PromoFolderURL != nil {
		folder = fmt.Sprintf(" | folder_url=%v", p.PromoFolderURL)
	}

	description := p.OriginalDescription
	if description == "" {
		description = orUnknown(p.NormalizedName)
	}

	return fmt.Sprintf("- %s · %s\n  €%s → €%s%s | %s\n  %s | %s | %s to %s%s%s",
		orUnknown(p.Brand), description,
		priceOrUnknown(p.OriginalPrice), priceOrUnknown(p.PromoPrice), savings,
		orUnknown(p.PromoMechanism),
		orUnknown(p.SourceRetailer), orUnknown(p.UnitInfo),
		orUnknown(p.ValidityStart), orUnknown(p.ValidityEnd),
		page, folder)
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func priceOrUnknown(p *float64) string {
	if p == nil {
		return "?"
	}
	return fmt.Sprintf("%v", *p)
}

func dateOrNull(t *time.Time) string {
	if t == nil {
		return "null"
	}
	return t.Format("2006-01-02")
}

// habitVal reads a display value, defaulting missing keys to 0 so the
// rendered line never shows "<nil>".
func habitVal(m map[string]interface{}, key string) interface{} {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return 0
}

// habitOr reads a display value, showing "?" when absent.
func habitOr(m map[string]interface{}, key string) interface{} {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return "?"
}

func habitNum(m map[string]interface{}, key string) float64 {
	if f, ok := m[key].(float64); ok {
		return f
	}
	return 0
}

func habitMap(m map[string]interface{}, key string) map[string]interface{} {
	sub, _ := m[key].(map[string]interface{})
	return sub
}

func habitList(m map[string]interface{}, key string) []map[string]interface{} {
	raw, _ := m[key].([]interface{})
	out := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		if e, ok := entry.(map[string]interface{}); ok {
			out = append(out, e)
		}
	}
	return out
}
