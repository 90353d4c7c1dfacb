package plans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/dbx"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Plan, error) {
	query := `
		SELECT id, name, monthly_price::float8, base_slots, base_gb, base_notes, base_reminders, ad_free
		FROM plans
		WHERE id = $1
	`
	p := &models.Plan{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.MonthlyPrice, &p.BaseSlots, &p.BaseGB, &p.BaseNotes, &p.BaseReminders, &p.AdFree)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Plan) (int64, error) {
	query := `
		INSERT INTO plans (name, monthly_price, base_slots, base_gb, base_notes, base_reminders, ad_free)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			monthly_price = EXCLUDED.monthly_price,
			base_slots = EXCLUDED.base_slots,
			base_gb = EXCLUDED.base_gb,
			base_notes = EXCLUDED.base_notes,
			base_reminders = EXCLUDED.base_reminders,
			ad_free = EXCLUDED.ad_free
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		p.Name, p.MonthlyPrice, p.BaseSlots, p.BaseGB, p.BaseNotes, p.BaseReminders, p.AdFree).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}
