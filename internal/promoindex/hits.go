package promoindex

import (
	"encoding/json"
	"fmt"
)

// Hit is a single search result in normalized form, regardless of which
// response shape the index returned it in.
type Hit struct {
	ID     string                 `json:"id"`
	Score  float64                `json:"score"`
	Fields map[string]interface{} `json:"fields"`
}

// searchResponse covers the response shapes the index API is known to
// emit. Newer deployments nest hits under result.hits, older ones return
// a top-level matches array.
type searchResponse struct {
	Result *struct {
		Hits []rawHit `json:"hits"`
	} `json:"result"`
	Matches []rawHit `json:"matches"`
}

type rawHit struct {
	ID       string                 `json:"_id"`
	AltID    string                 `json:"id"`
	Score    float64                `json:"_score"`
	AltScore float64                `json:"score"`
	Fields   map[string]interface{} `json:"fields"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (h rawHit) normalize() Hit {
	out := Hit{ID: h.ID, Score: h.Score, Fields: h.Fields}
	if out.ID == "" {
		out.ID = h.AltID
	}
	if out.Score == 0 {
		out.Score = h.AltScore
	}
	if out.Fields == nil {
		out.Fields = h.Metadata
	}
	if out.Fields == nil {
		out.Fields = map[string]interface{}{}
	}
	return out
}

// parseHits decodes a search response body into normalized hits. Bodies
// with neither a result.hits block nor a matches array decode to an
// empty slice rather than an error, matching how the index reports
// empty namespaces.
func parseHits(body []byte) ([]Hit, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal search response: %w", err)
	}

	var raw []rawHit
	switch {
	case resp.Result != nil:
		raw = resp.Result.Hits
	case resp.Matches != nil:
		raw = resp.Matches
	}

	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		hits = append(hits, h.normalize())
	}
	return hits, nil
}
