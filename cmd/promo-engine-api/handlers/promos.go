// Package handlers provides HTTP handlers for the promo engine API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/scandelicious/promo-engine/cmd/promo-engine-api/middleware"
	"github.com/scandelicious/promo-engine/internal/observability"
	"github.com/scandelicious/promo-engine/internal/profile"
	"github.com/scandelicious/promo-engine/internal/ratelimit"
	"github.com/scandelicious/promo-engine/internal/recommend"
)

// BriefingService produces the weekly savings briefing for a user.
type BriefingService interface {
	GetBriefing(ctx context.Context, userID string) (*recommend.Briefing, error)
}

// Quota guards the monthly request budget. Nil-able; a nil quota means
// limiting is disabled.
type Quota interface {
	Allow(ctx context.Context, userID string) (ratelimit.Status, error)
	GetStatus(ctx context.Context, userID string) (ratelimit.Status, error)
}

// PromoHandler serves promo recommendation requests.
type PromoHandler struct {
	logger  *observability.Logger
	service BriefingService
	quota   Quota
}

// NewPromoHandler creates a new promo handler.
func NewPromoHandler(logger *observability.Logger, service BriefingService, quota Quota) *PromoHandler {
	return &PromoHandler{
		logger:  logger,
		service: service,
		quota:   quota,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetRecommendations handles GET /api/v1/promos/recommendations.
func (h *PromoHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	if h.quota != nil {
		status, err := h.quota.Allow(ctx, userID)
		if err != nil {
			h.logger.Error().Err(err).Str("user_id", userID).Msg("quota check failed")
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{
				Error:   "service_error",
				Message: "Could not generate promo recommendations. Please try again later.",
			})
			return
		}
		if !status.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(status.RetryAfter))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Monthly recommendation quota reached. Quota resets at the start of next month.",
			})
			return
		}
	}

	briefing, err := h.service.GetBriefing(ctx, userID)
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   "no_enriched_profile",
			Message: "No enriched profile found. Scan more receipts to unlock promo recommendations.",
		})
		return
	case errors.Is(err, recommend.ErrGenerationFailed):
		h.logger.Error().Err(err).Str("user_id", userID).Msg("briefing generation failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "ai_service_unavailable",
			Message: "Promo recommendation service is temporarily unavailable. Please try again later.",
		})
		return
	case err != nil:
		h.logger.Error().Err(err).Str("user_id", userID).Msg("promo recommendation failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "service_error",
			Message: "Could not generate promo recommendations. Please try again later.",
		})
		return
	}

	writeJSON(w, http.StatusOK, briefing)
}

// GetLimits handles GET /api/v1/promos/limits.
func (h *PromoHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	if h.quota == nil {
		writeJSON(w, http.StatusOK, ratelimit.Status{Allowed: true})
		return
	}

	status, err := h.quota.GetStatus(ctx, userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("quota status failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "service_error",
			Message: "Could not read quota status.",
		})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
