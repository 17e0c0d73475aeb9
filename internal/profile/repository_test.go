package profile

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var profileColumns = []string{
	"user_id", "shopping_habits", "promo_interest_items",
	"data_period_start", "data_period_end", "receipts_analyzed", "last_rebuilt_at",
}

func TestGetByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	habits := []byte(`{"total_spend": 412.5, "avg_receipt_total": 34.4}`)
	interests := []byte(`[
		{"normalized_name": "pils", "granular_category": "Beer", "interest_category": "brand_loyal", "brands": ["Jupiler", "Maes"]},
		{"normalized_name": "salami", "granular_category": "Salami & Sausage", "interest_category": "generic"}
	]`)
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT user_id, shopping_habits, promo_interest_items").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(profileColumns).
			AddRow("user-1", habits, interests, start, end, 42, nil))

	repo := NewRepository(db)
	p, err := repo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, 412.5, p.ShoppingHabits["total_spend"])
	assert.Equal(t, 42, p.ReceiptsAnalyzed)
	require.Len(t, p.InterestItems, 2)
	assert.Equal(t, InterestBrandLoyal, p.InterestItems[0].InterestCategory)
	assert.Equal(t, []string{"Jupiler", "Maes"}, p.InterestItems[0].Brands)
	assert.Equal(t, "Salami & Sausage", p.InterestItems[1].GranularCategory)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUserID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT user_id, shopping_habits, promo_interest_items").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(profileColumns))

	repo := NewRepository(db)
	_, err = repo.GetByUserID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO user_enriched_profiles").
		WithArgs("user-1", sqlmock.AnyArg(), sqlmock.AnyArg(),
			nil, nil, 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRepository(db)
	p := &EnrichedProfile{
		UserID:           "user-1",
		ShoppingHabits:   map[string]interface{}{"total_spend": 99.0},
		InterestItems:    []InterestItem{{NormalizedName: "melkchocolade", InterestCategory: InterestGeneric}},
		ReceiptsAnalyzed: 7,
	}
	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.NotNil(t, p.LastRebuiltAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}
