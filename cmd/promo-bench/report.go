package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/scandelicious/promo-engine/internal/matching"
	"github.com/scandelicious/promo-engine/internal/profile"
	"github.com/scandelicious/promo-engine/internal/promoindex"
	"github.com/scandelicious/promo-engine/internal/recommend"
)

// verboseSearcher wraps the index client and prints every hit with a
// KEEP/DROP verdict against the active threshold.
type verboseSearcher struct {
	inner     *promoindex.Client
	threshold float64
}

func (v *verboseSearcher) Search(ctx context.Context, req promoindex.SearchRequest) ([]promoindex.Hit, error) {
	hits, err := v.inner.Search(ctx, req)
	if err != nil {
		return hits, err
	}

	rule := strings.Repeat("─", 60)
	fmt.Printf("\n%s\n", rule)
	fmt.Printf("SEARCH+RERANK RESULTS for query: %q\n", req.Text)
	fmt.Println(rule)
	if len(hits) == 0 {
		fmt.Println("  (no results)")
	}
	for i, h := range hits {
		verdict := color.New(color.FgRed).Sprint("[DROP]")
		if h.Score >= v.threshold {
			verdict = color.New(color.FgGreen).Sprint("[KEEP]")
		}
		fmt.Printf("\n  #%d  score=%.4f  %s\n", i+1, h.Score, verdict)

		keys := make([]string, 0, len(h.Fields))
		for k := range h.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %s: %v\n", k, h.Fields[k])
		}
	}
	fmt.Printf("%s\n\n", rule)

	return hits, nil
}

func printHeader(title string) {
	rule := strings.Repeat("=", 60)
	color.New(color.FgMagenta, color.Bold).Printf("%s\n%s\n%s\n", rule, title, rule)
}

func printProfile(p *profile.EnrichedProfile) {
	color.New(color.FgCyan).Printf("Profile: %d receipts analyzed, %d interest items\n\n",
		p.ReceiptsAnalyzed, len(p.InterestItems))

	for _, item := range p.InterestItems {
		brands := strings.Join(item.Brands, ", ")
		if brands == "" {
			brands = "-"
		}
		fmt.Printf("  %-30s [%s] %s brands=%s\n",
			item.NormalizedName, item.GranularCategory, item.InterestCategory, brands)
	}
	fmt.Println()
}

func printItemResult(item profile.InterestItem, promos []matching.PromoRecord) {
	if len(promos) == 0 {
		color.New(color.FgYellow).Printf("  %s: no matching promos\n", item.NormalizedName)
		return
	}

	scores := make([]string, len(promos))
	for i, p := range promos {
		scores[i] = fmt.Sprintf("%.2f", p.RelevanceScore)
	}
	color.New(color.FgGreen).Printf("  %s: %d promos (scores: %s)\n",
		item.NormalizedName, len(promos), strings.Join(scores, ", "))
}

func printMatchSummary(results matching.MatchResult) {
	matched := 0
	total := 0
	for _, promos := range results {
		if len(promos) > 0 {
			matched++
		}
		total += len(promos)
	}
	color.New(color.Bold).Printf("%d promos matched across %d/%d items\n\n", total, matched, len(results))
}

func printBriefing(b *recommend.Briefing) {
	printHeader("Personalized Promo Briefing")
	fmt.Printf("%s (%s to %s)\n", b.PromoWeek.Label, b.PromoWeek.Start, b.PromoWeek.End)
	color.New(color.FgGreen, color.Bold).Printf("Weekly savings: €%.2f across %d deals\n\n", b.WeeklySavings, b.DealCount)

	if len(b.TopPicks) > 0 {
		color.New(color.Bold).Println("Top picks:")
		for _, d := range b.TopPicks {
			fmt.Printf("  %s %s %s  €%.2f → €%.2f (%s) @ %s\n",
				d.Emoji, d.Brand, d.ProductName, d.OriginalPrice, d.PromoPrice, d.Mechanism, d.Store)
			if d.Reason != "" {
				fmt.Printf("     %s\n", d.Reason)
			}
		}
		fmt.Println()
	}

	for _, store := range b.Stores {
		color.New(color.Bold).Printf("%s %s (save €%.2f)\n", store.StoreColor, store.StoreName, store.TotalSavings)
		for _, d := range store.Items {
			fmt.Printf("  %s %s %s  €%.2f → €%.2f (%s)\n",
				d.Emoji, d.Brand, d.ProductName, d.OriginalPrice, d.PromoPrice, d.Mechanism)
		}
		if store.Tip != "" {
			fmt.Printf("  tip: %s\n", store.Tip)
		}
		fmt.Println()
	}

	if b.SmartSwitch != nil {
		color.New(color.FgCyan).Printf("Smart switch: %s → %s (save €%.2f) — %s\n\n",
			b.SmartSwitch.FromBrand, b.SmartSwitch.ToBrand, b.SmartSwitch.Savings, b.SmartSwitch.Reason)
	}

	fmt.Println(b.Summary.ClosingNudge)
}
