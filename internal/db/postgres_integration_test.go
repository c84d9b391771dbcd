//go:build integration

package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"fitcoach/internal/fitness"
	"fitcoach/internal/models"
)

func newTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fitcoach"),
		postgrescontainer.WithUsername("fitcoach"),
		postgrescontainer.WithPassword("fitcoach"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool := waitForDatabase(t, ctx, connStr)
	t.Cleanup(pool.Close)

	store := NewPostgresDBFromPool(pool)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "schema must be re-appliable")
	return store
}

func waitForDatabase(t *testing.T, ctx context.Context, connStr string) *pgxpool.Pool {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.Connect(ctx, connStr)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool
			}
			pool.Close()
		}
		if time.Now().After(deadline) {
			require.NoError(t, err)
		}
		time.Sleep(time.Second)
	}
}

func seedUser(t *testing.T, store fitness.Repository, email string) *models.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "hash",
		Name:         "Sam",
		Profile:      models.Profile{Age: 30, Gender: models.GenderMale, HealthConditions: []models.HealthCondition{}, Allergies: []string{}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func TestPostgresUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgres(t)
	user := seedUser(t, store, "sam@example.com")

	err := store.CreateUser(ctx, &models.User{ID: uuid.NewString(), Email: "sam@example.com", PasswordHash: "x", Name: "Dup"})
	assert.ErrorIs(t, err, fitness.ErrEmailTaken)

	missing, err := store.GetUser(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	user.TelegramID = 4242
	user.Profile.ActivityLevel = models.ActivityModerate
	require.NoError(t, store.UpdateUser(ctx, user))
	require.NoError(t, store.SetTargetCalories(ctx, user.ID, 2128))
	require.NoError(t, store.SetPremium(ctx, user.ID, true))

	got, err := store.GetUserByTelegramID(ctx, 4242)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, 2128, got.Profile.TargetCalories)
	assert.Equal(t, models.ActivityModerate, got.Profile.ActivityLevel)
	assert.True(t, got.Premium)

	byEmail, err := store.GetUserByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "hash", byEmail.PasswordHash)
}

func TestPostgresPlanDocumentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgres(t)
	owner := seedUser(t, store, "owner@example.com")
	other := seedUser(t, store, "other@example.com")

	generated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	plan := &models.MealPlan{
		ID:               uuid.NewString(),
		UserID:           owner.ID,
		Name:             "Green Week",
		TargetCalories:   2100,
		DietType:         models.DietVegan,
		HealthConditions: []models.HealthCondition{models.ConditionPCOS},
		AIGenerated:      true,
		GeneratedAt:      generated,
		CreatedAt:        generated,
		Days: []models.MealDay{{Day: "Monday", Meals: []models.Meal{{
			Type: models.MealSnack, Name: "Apple", Ingredients: []string{"apple"}, Calories: "95", Protein: "0.5", Carbs: "25", Fats: "0.3",
		}}}},
	}
	require.NoError(t, store.SaveMealPlan(ctx, plan))

	got, err := store.GetMealPlan(ctx, owner.ID, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, plan, got)

	hidden, err := store.GetMealPlan(ctx, other.ID, plan.ID)
	require.NoError(t, err)
	assert.Nil(t, hidden)

	deleted, err := store.DeleteMealPlan(ctx, other.ID, plan.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	older := &models.WorkoutPlan{ID: uuid.NewString(), UserID: owner.ID, Name: "Old", CreatedAt: generated.Add(-time.Hour)}
	newer := &models.WorkoutPlan{ID: uuid.NewString(), UserID: owner.ID, Name: "New", CreatedAt: generated}
	require.NoError(t, store.SaveWorkoutPlan(ctx, older))
	require.NoError(t, store.SaveWorkoutPlan(ctx, newer))

	list, err := store.ListWorkoutPlans(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "New", list[0].Name)

	deleted, err = store.DeleteWorkoutPlan(ctx, owner.ID, older.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestPostgresProgressAndPayments(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgres(t)
	user := seedUser(t, store, "sam@example.com")

	for _, w := range []float64{80, 79.5, 79} {
		require.NoError(t, store.AppendProgress(ctx, user.ID, models.ProgressEntry{
			ID: uuid.NewString(), Date: time.Now().UTC(), Weight: w,
		}))
	}
	entries, err := store.ListProgress(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 79.5, entries[1].Weight)

	now := time.Now().UTC()
	require.NoError(t, store.SavePayment(ctx, &models.Payment{
		ID: uuid.NewString(), UserID: user.ID, Amount: 999, Currency: "usd",
		StripeSessionID: "cs_1", Status: models.PaymentPending, CreatedAt: now, UpdatedAt: now,
	}))
	p, err := store.CompletePayment(ctx, "cs_1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.PaymentCompleted, p.Status)
	assert.Equal(t, user.ID, p.UserID)

	unknown, err := store.CompletePayment(ctx, "cs_missing")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}
