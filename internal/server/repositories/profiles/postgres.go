package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/dbx"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `user_id, security_question, security_answer_hash, pin_hash, failed_attempts, plan_id,
		extra_slots, extra_gb, extra_notes, extra_reminders,
		total_ad_views, ad_views_today, last_ad_view_at, created_at`

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, security_question, security_answer_hash, pin_hash)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, p.UserID, p.SecurityQuestion, p.SecurityAnswerHash, p.PINHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// EnsureExists creates an empty profile unless one exists. It returns
// common.ErrorNotFound when the user itself is gone.
func (r *PostgresRepository) EnsureExists(ctx context.Context, userID string) error {
	query := `
		INSERT INTO profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + selectColumns + `
		FROM profiles
		WHERE user_id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + selectColumns + `
		FROM profiles
		WHERE user_id = $1
		FOR UPDATE`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	p := &models.Profile{}
	var planID sql.NullInt64
	var lastAd sql.NullTime
	err := row.Scan(&p.UserID, &p.SecurityQuestion, &p.SecurityAnswerHash, &p.PINHash, &p.FailedAttempts, &planID,
		&p.ExtraSlots, &p.ExtraGB, &p.ExtraNotes, &p.ExtraReminders,
		&p.TotalAdViews, &p.AdViewsToday, &lastAd, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if planID.Valid {
		p.PlanID = &planID.Int64
	}
	if lastAd.Valid {
		p.LastAdViewAt = &lastAd.Time
	}
	return p, nil
}

func (r *PostgresRepository) IncrementFailedAttempts(ctx context.Context, userID string) (int, error) {
	query := `
		UPDATE profiles SET failed_attempts = failed_attempts + 1
		WHERE user_id = $1
		RETURNING failed_attempts
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ResetFailedAttempts(ctx context.Context, userID string) error {
	query := `
		UPDATE profiles SET failed_attempts = 0
		WHERE user_id = $1 AND failed_attempts <> 0
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetPlan(ctx context.Context, userID string, planID int64) error {
	query := `
		UPDATE profiles SET plan_id = $2
		WHERE user_id = $1
	`
	return r.execOne(ctx, query, userID, planID)
}

func (r *PostgresRepository) AddGrants(ctx context.Context, userID string, pack *models.Pack) error {
	query := `
		UPDATE profiles SET
			extra_slots = extra_slots + $2,
			extra_gb = extra_gb + $3,
			extra_notes = extra_notes + $4,
			extra_reminders = extra_reminders + $5
		WHERE user_id = $1
	`
	return r.execOne(ctx, query, userID, pack.ExtraSlots, pack.ExtraGB, pack.ExtraNotes, pack.ExtraReminders)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) RecordAdView(ctx context.Context, userID string, at time.Time) (int, int, error) {
	query := `
		UPDATE profiles SET
			total_ad_views = total_ad_views + 1,
			ad_views_today = CASE
				WHEN last_ad_view_at IS NOT NULL
				 AND (last_ad_view_at AT TIME ZONE 'UTC')::date = ($2::timestamptz AT TIME ZONE 'UTC')::date
				THEN ad_views_today + 1
				ELSE 1
			END,
			last_ad_view_at = $2
		WHERE user_id = $1
		RETURNING total_ad_views, ad_views_today
	`
	var total, today int
	if err := r.db.QueryRowContext(ctx, query, userID, at.UTC()).Scan(&total, &today); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, common.ErrorNotFound
		}
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return total, today, nil
}

// Stats aggregates the admin dashboard figures. A user counts as premium
// when their plan has a non-zero monthly price.
func (r *PostgresRepository) Stats(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT
			COUNT(u.id),
			COUNT(pl.id) FILTER (WHERE pl.monthly_price > 0),
			COALESCE(SUM(pl.monthly_price), 0)::float8,
			COALESCE(SUM(p.total_ad_views), 0)
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		LEFT JOIN plans pl ON pl.id = p.plan_id
	`
	s := &models.Stats{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&s.Users, &s.PremiumUsers, &s.MRR, &s.AdViews); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
