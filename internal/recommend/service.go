package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scandelicious/promo-engine/internal/matching"
	"github.com/scandelicious/promo-engine/internal/observability"
	"github.com/scandelicious/promo-engine/internal/profile"
)

// ErrGenerationFailed indicates the external generation step was
// unavailable or returned unusable output.
var ErrGenerationFailed = errors.New("recommendation generation failed")

// Generator is the external text-generation collaborator. It consumes
// a system prompt plus a structured context string and returns JSON.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Matcher is the pipeline entry point the service drives.
type Matcher interface {
	MatchUser(ctx context.Context, userID string) (*profile.EnrichedProfile, matching.MatchResult, error)
}

// Service produces weekly savings briefings: match promos for the
// user's interests, then hand the assembled context to the generator.
type Service struct {
	matcher   Matcher
	generator Generator
	log       *observability.Logger
	now       func() time.Time
}

// NewService creates a recommendation service.
func NewService(matcher Matcher, generator Generator, log *observability.Logger) *Service {
	if log == nil {
		log = observability.DefaultLogger()
	}
	return &Service{
		matcher:   matcher,
		generator: generator,
		log:       log.WithComponent("recommend"),
		now:       time.Now,
	}
}

// GetBriefing runs the full pipeline for one user. A missing profile
// surfaces as profile.ErrProfileNotFound; generation failures surface
// as ErrGenerationFailed. Unparseable generator output degrades to an
// empty briefing rather than an error.
func (s *Service) GetBriefing(ctx context.Context, userID string) (*Briefing, error) {
	p, results, err := s.matcher.MatchUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(p.InterestItems) == 0 {
		return EmptyBriefing("We need more receipt data to find you deals. Keep scanning!", s.now()), nil
	}

	userMessage := BuildContext(p, results)

	raw, err := s.generator.Generate(ctx, SystemPrompt, userMessage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	briefing, err := ParseBriefing(raw, s.now())
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("unparseable generation output")
		return EmptyBriefing("Could not generate recommendations — try again later.", s.now()), nil
	}

	return briefing, nil
}
