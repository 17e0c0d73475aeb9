package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scandelicious/promo-engine/cmd/promo-engine-api/middleware"
	"github.com/scandelicious/promo-engine/internal/observability"
	"github.com/scandelicious/promo-engine/internal/profile"
	"github.com/scandelicious/promo-engine/internal/ratelimit"
	"github.com/scandelicious/promo-engine/internal/recommend"
)

type fakeService struct {
	briefing *recommend.Briefing
	err      error
}

func (f *fakeService) GetBriefing(context.Context, string) (*recommend.Briefing, error) {
	return f.briefing, f.err
}

type fakeQuota struct {
	status ratelimit.Status
	err    error
}

func (f *fakeQuota) Allow(context.Context, string) (ratelimit.Status, error)     { return f.status, f.err }
func (f *fakeQuota) GetStatus(context.Context, string) (ratelimit.Status, error) { return f.status, f.err }

func doRequest(h *PromoHandler, handler http.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/promos/recommendations", nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "user-1")
	rec := httptest.NewRecorder()
	handler(rec, req.WithContext(ctx))
	return rec
}

func TestGetRecommendations(t *testing.T) {
	briefing := &recommend.Briefing{WeeklySavings: 7.5, DealCount: 2}
	h := NewPromoHandler(observability.Nop(), &fakeService{briefing: briefing}, nil)

	rec := doRequest(h, h.GetRecommendations)
	require.Equal(t, http.StatusOK, rec.Code)

	var got recommend.Briefing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 7.5, got.WeeklySavings)
	assert.Equal(t, 2, got.DealCount)
}

func TestGetRecommendations_ProfileNotFound(t *testing.T) {
	h := NewPromoHandler(observability.Nop(), &fakeService{err: profile.ErrProfileNotFound}, nil)

	rec := doRequest(h, h.GetRecommendations)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no_enriched_profile", resp.Error)
}

func TestGetRecommendations_GenerationUnavailable(t *testing.T) {
	h := NewPromoHandler(observability.Nop(), &fakeService{err: recommend.ErrGenerationFailed}, nil)

	rec := doRequest(h, h.GetRecommendations)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ai_service_unavailable", resp.Error)
}

func TestGetRecommendations_OtherErrors(t *testing.T) {
	h := NewPromoHandler(observability.Nop(), &fakeService{err: errors.New("db down")}, nil)

	rec := doRequest(h, h.GetRecommendations)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "service_error", resp.Error)
}

func TestGetRecommendations_QuotaExceeded(t *testing.T) {
	quota := &fakeQuota{status: ratelimit.Status{Allowed: false, RetryAfter: 3600}}
	h := NewPromoHandler(observability.Nop(), &fakeService{}, quota)

	rec := doRequest(h, h.GetRecommendations)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
}

func TestGetLimits(t *testing.T) {
	quota := &fakeQuota{status: ratelimit.Status{Allowed: true, Used: 12, Limit: 50, Remaining: 38}}
	h := NewPromoHandler(observability.Nop(), &fakeService{}, quota)

	rec := doRequest(h, h.GetLimits)
	require.Equal(t, http.StatusOK, rec.Code)

	var status ratelimit.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 12, status.Used)
	assert.Equal(t, 38, status.Remaining)
}
