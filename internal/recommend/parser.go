package recommend

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// maxTopPicks bounds the hero deals shown prominently in the app.
const maxTopPicks = 3

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// ParseBriefing decodes the generation step's JSON output and applies
// server-side fixups: markdown fence stripping, trailing comma removal,
// the top-picks cap and discount recalculation. The promo week is
// always computed server side rather than trusted from the output.
func ParseBriefing(raw string, now time.Time) (*Briefing, error) {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```") {
		parts := strings.SplitN(clean, "```", 3)
		if len(parts) >= 2 {
			clean = parts[1]
		}
		clean = strings.TrimPrefix(clean, "json")
		clean = strings.TrimSpace(clean)
	}

	clean = trailingCommaRe.ReplaceAllString(clean, "$1")

	var b Briefing
	if err := json.Unmarshal([]byte(clean), &b); err != nil {
		return nil, fmt.Errorf("parse briefing: %w", err)
	}

	if len(b.TopPicks) > maxTopPicks {
		b.TopPicks = b.TopPicks[:maxTopPicks]
	}
	if b.TopPicks == nil {
		b.TopPicks = []Deal{}
	}
	if b.Stores == nil {
		b.Stores = []StoreDeals{}
	}
	if b.Summary.StoresBreakdown == nil {
		b.Summary.StoresBreakdown = []StoreBreakdown{}
	}

	for i := range b.TopPicks {
		fixDeal(&b.TopPicks[i])
	}
	for i := range b.Stores {
		for j := range b.Stores[i].Items {
			fixDeal(&b.Stores[i].Items[j])
		}
	}

	b.PromoWeek = computePromoWeek(now)
	return &b, nil
}

// fixDeal recomputes the discount percentage from the prices (the
// generation step sometimes gets the arithmetic wrong) and nulls out
// page numbers that did not survive coercion.
func fixDeal(d *Deal) {
	if d.OriginalPrice > 0 {
		d.DiscountPercentage = int(math.Round((1 - d.PromoPrice/d.OriginalPrice) * 100))
	}
	if d.PageNumber != nil && *d.PageNumber == pageNumberInvalid {
		d.PageNumber = nil
	}
}
