// Package plans stores subscription tier definitions.
package plans

import (
	"context"

	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*models.Plan, error)
	// Upsert creates or replaces the plan with the same name and returns its id.
	Upsert(ctx context.Context, p *models.Plan) (int64, error)
}
