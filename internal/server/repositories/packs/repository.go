// Package packs stores one-off add-on pack definitions.
package packs

import (
	"context"

	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*models.Pack, error)
	// Upsert creates or replaces the pack with the same name and returns its id.
	Upsert(ctx context.Context, p *models.Pack) (int64, error)
}
