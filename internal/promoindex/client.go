// Package promoindex provides the search-with-rerank client for the
// promotions vector index.
package promoindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scandelicious/promo-engine/internal/observability"
)

const (
	// DefaultNamespace is the index namespace holding promo records.
	DefaultNamespace = "__default__"
	// DefaultRerankModel rescores lexical-semantic candidates server side.
	DefaultRerankModel = "bge-reranker-v2-m3"
)

// Client performs combined vector search and rerank against the promo
// index over its HTTP records API.
type Client struct {
	httpClient *http.Client
	host       string
	apiKey     string
	namespace  string
	rankModel  string
	retry      RetryConfig
	log        *observability.Logger
}

// Config holds promo index client configuration.
type Config struct {
	Host        string // index host, e.g. "promos-abc123.svc.pinecone.io"
	APIKey      string
	Namespace   string // Default: "__default__"
	RerankModel string // Default: "bge-reranker-v2-m3"
	Timeout     time.Duration
	Retry       *RetryConfig
}

// NewClient creates a new promo index client.
func NewClient(cfg Config, log *observability.Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("index host is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.RerankModel == "" {
		cfg.RerankModel = DefaultRerankModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}

	if log == nil {
		log = observability.DefaultLogger()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		host:       strings.TrimSuffix(cfg.Host, "/"),
		apiKey:     cfg.APIKey,
		namespace:  cfg.Namespace,
		rankModel:  cfg.RerankModel,
		retry:      retry,
		log:        log.WithComponent("promoindex"),
	}, nil
}

// SearchRequest describes one search-with-rerank call.
type SearchRequest struct {
	Text   string
	TopK   int
	TopN   int
	Filter map[string]interface{} // metadata filter; nil means unfiltered
}

type wireQuery struct {
	Inputs map[string]string      `json:"inputs"`
	TopK   int                    `json:"top_k"`
	Filter map[string]interface{} `json:"filter,omitempty"`
}

type wireRerank struct {
	Model      string   `json:"model"`
	RankFields []string `json:"rank_fields"`
	TopN       int      `json:"top_n"`
}

type searchRequestBody struct {
	Query  wireQuery  `json:"query"`
	Rerank wireRerank `json:"rerank"`
}

// Search runs a single embed-search-rerank round trip and returns the
// reranked hits in normalized form. Rate-limit responses are retried
// with exponential backoff; any failure that survives retries is
// returned as an error for the caller to degrade on.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	body := searchRequestBody{
		Query: wireQuery{
			Inputs: map[string]string{"text": req.Text},
			TopK:   req.TopK,
			Filter: req.Filter,
		},
		Rerank: wireRerank{
			Model:      c.rankModel,
			RankFields: []string{"text"},
			TopN:       req.TopN,
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	base := c.host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	url := fmt.Sprintf("%s/records/namespaces/%s/search", base, c.namespace)

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := backoffDuration(attempt-1, c.retry)
			c.log.Warn().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("promo index rate limited, retrying")
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
		}

		hits, retryable, err := c.doSearch(ctx, url, jsonBody)
		if err == nil {
			return hits, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrRateLimited, lastErr)
}

func (c *Client) doSearch(ctx context.Context, url string, jsonBody []byte) (hits []Hit, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-Api-Version", "2025-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, false, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
		}
		if isRateLimited(resp.StatusCode, respBody) {
			return nil, true, fmt.Errorf("index error: status %d, body: %s", resp.StatusCode, string(respBody))
		}
		return nil, false, fmt.Errorf("index error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	hits, err = parseHits(respBody)
	if err != nil {
		return nil, false, err
	}
	return hits, false, nil
}
