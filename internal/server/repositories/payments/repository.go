// Package payments records which payment events have already been applied.
package payments

import (
	"context"

	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
)

type Repository interface {
	// MarkProcessed records p. It reports false when the payment id was
	// already recorded, in which case nothing is written.
	MarkProcessed(ctx context.Context, p *models.ProcessedPayment) (bool, error)
}
