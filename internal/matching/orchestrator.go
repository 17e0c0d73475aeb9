package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scandelicious/promo-engine/internal/observability"
	"github.com/scandelicious/promo-engine/internal/profile"
)

// MatchResult maps each interest item name to its accepted promos,
// best first. Items with zero matches are present with an empty list
// so downstream consumers can report "no match" honestly.
type MatchResult map[string][]PromoRecord

// ProfileSource fetches enriched profiles. Satisfied by
// profile.Repository.
type ProfileSource interface {
	GetByUserID(ctx context.Context, userID string) (*profile.EnrichedProfile, error)
}

// Orchestrator drives the full matching run for a user: fetch profile,
// match every interest item in order, assemble the result mapping.
type Orchestrator struct {
	profiles ProfileSource
	matcher  *Matcher
	delay    time.Duration
	log      *observability.Logger
}

// NewOrchestrator creates the matching orchestrator.
func NewOrchestrator(profiles ProfileSource, matcher *Matcher, log *observability.Logger) *Orchestrator {
	if log == nil {
		log = observability.DefaultLogger()
	}
	return &Orchestrator{
		profiles: profiles,
		matcher:  matcher,
		delay:    matcher.cfg.ItemDelay,
		log:      log.WithComponent("orchestrator"),
	}
}

// MatchUser fetches the user's enriched profile and matches all of its
// interest items. A missing profile surfaces as
// profile.ErrProfileNotFound, never as an empty result.
func (o *Orchestrator) MatchUser(ctx context.Context, userID string) (*profile.EnrichedProfile, MatchResult, error) {
	runID := uuid.New().String()
	log := o.log.WithUser(userID).WithRunID(runID)

	p, err := o.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Int("interest_items", len(p.InterestItems)).Msg("starting matching run")

	results, err := o.MatchItems(ctx, p.InterestItems)
	if err != nil {
		return nil, nil, err
	}
	return p, results, nil
}

// MatchItems runs the per-item pipeline sequentially over the given
// items. A fixed delay separates items to respect upstream rate
// limits. Cancellation is honored between items.
func (o *Orchestrator) MatchItems(ctx context.Context, items []profile.InterestItem) (MatchResult, error) {
	results := make(MatchResult, len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("matching cancelled: %w", err)
		}

		promos, err := o.matcher.MatchItem(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", item.NormalizedName, err)
		}
		if promos == nil {
			promos = []PromoRecord{}
		}
		results[item.NormalizedName] = promos

		if len(promos) > 0 {
			scores := make([]float64, len(promos))
			for j, p := range promos {
				scores[j] = p.RelevanceScore
			}
			o.log.Info().
				Str("item", item.NormalizedName).
				Int("matches", len(promos)).
				Floats64("scores", scores).
				Msg("promo search matched")
		}

		if o.delay > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("matching cancelled: %w", ctx.Err())
			case <-time.After(o.delay):
			}
		}
	}

	return results, nil
}
