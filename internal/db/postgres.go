package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"fitcoach/internal/fitness"
	"fitcoach/internal/models"
)

//go:embed schema.sql
var schema string

type PostgresConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// DSN renders the keyword/value connection string pgxpool expects.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.MaxOpenConns,
	)
}

// PostgresDB stores users as rows with a JSONB profile and plans as JSONB
// documents, so stored plans keep the exact JSON shape clients read.
type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(cfg PostgresConfig) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// NewPostgresDBFromPool wraps an existing pool.
func NewPostgresDBFromPool(pool *pgxpool.Pool) *PostgresDB {
	return &PostgresDB{pool: pool}
}

// Migrate creates missing tables. It is safe to run on every start.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const userColumns = `id, email, password_hash, name, telegram_id, premium, profile, created_at, updated_at`

func (db *PostgresDB) CreateUser(ctx context.Context, user *models.User) error {
	profile, err := json.Marshal(user.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	query := `
        INSERT INTO users (id, email, password_hash, name, telegram_id, premium, profile, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err = db.pool.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, nullableID(user.TelegramID),
		user.Premium, profile, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fitness.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetUser(ctx context.Context, id string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (db *PostgresDB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
}

func (db *PostgresDB) queryUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var (
		user       models.User
		telegramID *int64
		profile    []byte
	)
	err := db.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &telegramID,
		&user.Premium, &profile, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if telegramID != nil {
		user.TelegramID = *telegramID
	}
	if err := json.Unmarshal(profile, &user.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &user, nil
}

func (db *PostgresDB) UpdateUser(ctx context.Context, user *models.User) error {
	profile, err := json.Marshal(user.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	query := `
        UPDATE users
        SET name = $2, telegram_id = $3, premium = $4, profile = $5, updated_at = $6
        WHERE id = $1
    `
	tag, err := db.pool.Exec(ctx, query,
		user.ID, user.Name, nullableID(user.TelegramID), user.Premium, profile, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fitness.ErrUserNotFound
	}
	return nil
}

func (db *PostgresDB) SetTargetCalories(ctx context.Context, userID string, calories int) error {
	query := `
        UPDATE users
        SET profile = jsonb_set(profile, '{targetCalories}', to_jsonb($2::int)), updated_at = NOW()
        WHERE id = $1
    `
	return db.execUser(ctx, query, userID, calories)
}

func (db *PostgresDB) SetPremium(ctx context.Context, userID string, premium bool) error {
	return db.execUser(ctx, `UPDATE users SET premium = $2, updated_at = NOW() WHERE id = $1`, userID, premium)
}

func (db *PostgresDB) execUser(ctx context.Context, query, userID string, arg interface{}) error {
	tag, err := db.pool.Exec(ctx, query, userID, arg)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fitness.ErrUserNotFound
	}
	return nil
}

func (db *PostgresDB) SaveWorkoutPlan(ctx context.Context, plan *models.WorkoutPlan) error {
	return db.saveDocument(ctx, "workout_plans", plan.ID, plan.UserID, plan.CreatedAt, plan)
}

func (db *PostgresDB) ListWorkoutPlans(ctx context.Context, userID string) ([]models.WorkoutPlan, error) {
	plans := make([]models.WorkoutPlan, 0)
	err := db.listDocuments(ctx, "workout_plans", userID, func(doc []byte) error {
		var p models.WorkoutPlan
		if err := json.Unmarshal(doc, &p); err != nil {
			return err
		}
		plans = append(plans, p)
		return nil
	})
	return plans, err
}

func (db *PostgresDB) GetWorkoutPlan(ctx context.Context, userID, planID string) (*models.WorkoutPlan, error) {
	var plan models.WorkoutPlan
	found, err := db.getDocument(ctx, "workout_plans", userID, planID, &plan)
	if err != nil || !found {
		return nil, err
	}
	return &plan, nil
}

func (db *PostgresDB) DeleteWorkoutPlan(ctx context.Context, userID, planID string) (bool, error) {
	return db.deleteDocument(ctx, "workout_plans", userID, planID)
}

func (db *PostgresDB) SaveMealPlan(ctx context.Context, plan *models.MealPlan) error {
	return db.saveDocument(ctx, "meal_plans", plan.ID, plan.UserID, plan.CreatedAt, plan)
}

func (db *PostgresDB) ListMealPlans(ctx context.Context, userID string) ([]models.MealPlan, error) {
	plans := make([]models.MealPlan, 0)
	err := db.listDocuments(ctx, "meal_plans", userID, func(doc []byte) error {
		var p models.MealPlan
		if err := json.Unmarshal(doc, &p); err != nil {
			return err
		}
		plans = append(plans, p)
		return nil
	})
	return plans, err
}

func (db *PostgresDB) GetMealPlan(ctx context.Context, userID, planID string) (*models.MealPlan, error) {
	var plan models.MealPlan
	found, err := db.getDocument(ctx, "meal_plans", userID, planID, &plan)
	if err != nil || !found {
		return nil, err
	}
	return &plan, nil
}

func (db *PostgresDB) DeleteMealPlan(ctx context.Context, userID, planID string) (bool, error) {
	return db.deleteDocument(ctx, "meal_plans", userID, planID)
}

// table names below are package constants, never user input.

func (db *PostgresDB) saveDocument(ctx context.Context, table, id, userID string, createdAt time.Time, plan interface{}) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	query := `INSERT INTO ` + table + ` (id, user_id, document, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := db.pool.Exec(ctx, query, id, userID, doc, createdAt); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (db *PostgresDB) listDocuments(ctx context.Context, table, userID string, each func([]byte) error) error {
	query := `SELECT document FROM ` + table + ` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return fmt.Errorf("failed to scan %s: %w", table, err)
		}
		if err := each(doc); err != nil {
			return fmt.Errorf("failed to decode %s document: %w", table, err)
		}
	}
	return rows.Err()
}

func (db *PostgresDB) getDocument(ctx context.Context, table, userID, planID string, dst interface{}) (bool, error) {
	query := `SELECT document FROM ` + table + ` WHERE id = $1 AND user_id = $2`
	var doc []byte
	err := db.pool.QueryRow(ctx, query, planID, userID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", table, err)
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s document: %w", table, err)
	}
	return true, nil
}

func (db *PostgresDB) deleteDocument(ctx context.Context, table, userID, planID string) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND user_id = $2`, planID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (db *PostgresDB) AppendProgress(ctx context.Context, userID string, entry models.ProgressEntry) error {
	query := `
        INSERT INTO progress_entries (id, user_id, date, weight, notes)
        VALUES ($1, $2, $3, $4, $5)
    `
	if _, err := db.pool.Exec(ctx, query, entry.ID, userID, entry.Date, entry.Weight, entry.Notes); err != nil {
		return fmt.Errorf("failed to insert progress entry: %w", err)
	}
	return nil
}

func (db *PostgresDB) ListProgress(ctx context.Context, userID string) ([]models.ProgressEntry, error) {
	query := `
        SELECT id, date, weight, notes
        FROM progress_entries
        WHERE user_id = $1
        ORDER BY seq
    `
	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	entries := make([]models.ProgressEntry, 0)
	for rows.Next() {
		var e models.ProgressEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.Weight, &e.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan progress entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (db *PostgresDB) SavePayment(ctx context.Context, payment *models.Payment) error {
	query := `
        INSERT INTO payments (id, user_id, amount, currency, stripe_session_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := db.pool.Exec(ctx, query,
		payment.ID, payment.UserID, payment.Amount, payment.Currency,
		payment.StripeSessionID, payment.Status, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (db *PostgresDB) CompletePayment(ctx context.Context, sessionID string) (*models.Payment, error) {
	query := `
        UPDATE payments
        SET status = $2, updated_at = NOW()
        WHERE stripe_session_id = $1
        RETURNING id, user_id, amount, currency, stripe_session_id, status, created_at, updated_at
    `
	var payment models.Payment
	err := db.pool.QueryRow(ctx, query, sessionID, models.PaymentCompleted).Scan(
		&payment.ID, &payment.UserID, &payment.Amount, &payment.Currency,
		&payment.StripeSessionID, &payment.Status,
		&payment.CreatedAt, &payment.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete payment: %w", err)
	}
	return &payment, nil
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ fitness.Repository = (*PostgresDB)(nil)
