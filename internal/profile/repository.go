package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrProfileNotFound indicates no enriched profile exists for the user.
// Absence of a profile is a distinct, user-visible condition and must not
// be collapsed into "zero matches".
var ErrProfileNotFound = errors.New("enriched profile not found")

// DB represents a database connection interface.
type DB interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository handles enriched profile persistence.
type Repository struct {
	db DB
}

// NewRepository creates a new profile repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// GetByUserID retrieves the enriched profile for a user.
// Returns ErrProfileNotFound when no row exists.
func (r *Repository) GetByUserID(ctx context.Context, userID string) (*EnrichedProfile, error) {
	query := `
		SELECT user_id, shopping_habits, promo_interest_items,
		       data_period_start, data_period_end, receipts_analyzed, last_rebuilt_at
		FROM user_enriched_profiles WHERE user_id = $1
	`

	var (
		p             EnrichedProfile
		habitsJSON    []byte
		interestsJSON []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &habitsJSON, &interestsJSON,
		&p.DataPeriodStart, &p.DataPeriodEnd, &p.ReceiptsAnalyzed, &p.LastRebuiltAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query enriched profile: %w", err)
	}

	if len(habitsJSON) > 0 {
		if err := json.Unmarshal(habitsJSON, &p.ShoppingHabits); err != nil {
			return nil, fmt.Errorf("decode shopping_habits: %w", err)
		}
	}
	if len(interestsJSON) > 0 {
		if err := json.Unmarshal(interestsJSON, &p.InterestItems); err != nil {
			return nil, fmt.Errorf("decode promo_interest_items: %w", err)
		}
	}

	return &p, nil
}

// Upsert creates or replaces the enriched profile for a user.
func (r *Repository) Upsert(ctx context.Context, p *EnrichedProfile) error {
	habitsJSON, err := json.Marshal(p.ShoppingHabits)
	if err != nil {
		return fmt.Errorf("encode shopping_habits: %w", err)
	}
	interestsJSON, err := json.Marshal(p.InterestItems)
	if err != nil {
		return fmt.Errorf("encode promo_interest_items: %w", err)
	}

	now := time.Now()
	p.LastRebuiltAt = &now

	query := `
		INSERT INTO user_enriched_profiles
			(user_id, shopping_habits, promo_interest_items,
			 data_period_start, data_period_end, receipts_analyzed, last_rebuilt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			shopping_habits = EXCLUDED.shopping_habits,
			promo_interest_items = EXCLUDED.promo_interest_items,
			data_period_start = EXCLUDED.data_period_start,
			data_period_end = EXCLUDED.data_period_end,
			receipts_analyzed = EXCLUDED.receipts_analyzed,
			last_rebuilt_at = EXCLUDED.last_rebuilt_at,
			updated_at = now()
	`
	_, err = r.db.ExecContext(ctx, query,
		p.UserID, habitsJSON, interestsJSON,
		p.DataPeriodStart, p.DataPeriodEnd, p.ReceiptsAnalyzed, p.LastRebuiltAt,
	)
	if err != nil {
		return fmt.Errorf("upsert enriched profile: %w", err)
	}
	return nil
}
