package matching

import (
	"math"
	"strconv"
	"time"
)

// PromoRecord is the normalized projection of a search hit's fields
// plus its rerank score. All fields serialize to primitives so the
// record can be handed verbatim to the recommendation step.
type PromoRecord struct {
	RelevanceScore      float64     `json:"relevance_score"`
	NormalizedName      string      `json:"normalized_name"`
	OriginalDescription string      `json:"original_description"`
	Brand               string      `json:"brand"`
	GranularCategory    string      `json:"granular_category"`
	ParentCategory      string      `json:"parent_category"`
	OriginalPrice       *float64    `json:"original_price"`
	PromoPrice          *float64    `json:"promo_price"`
	PromoMechanism      string      `json:"promo_mechanism"`
	UnitInfo            string      `json:"unit_info"`
	ValidityStart       string      `json:"validity_start"`
	ValidityEnd         string      `json:"validity_end"`
	SourceRetailer      string      `json:"source_retailer"`
	PageNumber          interface{} `json:"page_number"`
	PromoFolderURL      interface{} `json:"promo_folder_url"`
}

// buildRecord projects raw hit fields into a PromoRecord. Unknown or
// missing fields default to empty values rather than failing.
func buildRecord(fields map[string]interface{}, score float64) PromoRecord {
	return PromoRecord{
		RelevanceScore:      math.Round(score*10000) / 10000,
		NormalizedName:      fieldString(fields, "normalized_name"),
		OriginalDescription: fieldString(fields, "original_description"),
		Brand:               fieldString(fields, "brand"),
		GranularCategory:    fieldString(fields, "granular_category"),
		ParentCategory:      fieldString(fields, "parent_category"),
		OriginalPrice:       fieldFloat(fields, "original_price"),
		PromoPrice:          fieldFloat(fields, "promo_price"),
		PromoMechanism:      fieldString(fields, "promo_mechanism"),
		UnitInfo:            fieldString(fields, "unit_info"),
		ValidityStart:       fieldString(fields, "validity_start"),
		ValidityEnd:         fieldString(fields, "validity_end"),
		SourceRetailer:      fieldString(fields, "source_retailer"),
		PageNumber:          fields["page_number"],
		PromoFolderURL:      fields["promo_folder_url"],
	}
}

// priceValid rejects records with a non-positive original price or a
// promo price above the original. Missing or non-numeric prices pass,
// since they cannot be judged invalid.
func (p PromoRecord) priceValid() bool {
	if p.OriginalPrice == nil || p.PromoPrice == nil {
		return true
	}
	if *p.OriginalPrice <= 0 {
		return false
	}
	return *p.PromoPrice <= *p.OriginalPrice
}

// expired re-derives validity from the validity_end ISO string. Records
// indexed before the numeric expiry field existed slip past the filter
// level check, so this runs on every accepted hit. Unparseable or
// missing dates are kept.
func (p PromoRecord) expired(now time.Time) bool {
	if p.ValidityEnd == "" {
		return false
	}
	end, err := time.Parse("2006-01-02", p.ValidityEnd)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return end.Before(today)
}

func fieldString(fields map[string]interface{}, key string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return ""
}

// fieldFloat reads a price-like field. Both numbers and numeric
// strings appear in indexed data, so string values are parsed too.
func fieldFloat(fields map[string]interface{}, key string) *float64 {
	switch v := fields[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}
