package packs

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

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Pack, error) {
	query := `
		SELECT id, name, price::float8, extra_slots, extra_gb, extra_notes, extra_reminders
		FROM packs
		WHERE id = $1
	`
	p := &models.Pack{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.ExtraSlots, &p.ExtraGB, &p.ExtraNotes, &p.ExtraReminders)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Pack) (int64, error) {
	query := `
		INSERT INTO packs (name, price, extra_slots, extra_gb, extra_notes, extra_reminders)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			price = EXCLUDED.price,
			extra_slots = EXCLUDED.extra_slots,
			extra_gb = EXCLUDED.extra_gb,
			extra_notes = EXCLUDED.extra_notes,
			extra_reminders = EXCLUDED.extra_reminders
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		p.Name, p.Price, p.ExtraSlots, p.ExtraGB, p.ExtraNotes, p.ExtraReminders).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}
