// Package secrets declares the repository for stored credentials.
package secrets

import (
	"context"

	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
)

// Repository persists secrets. Every lookup is scoped by user id, so a
// record owned by someone else behaves exactly like a missing one.
type Repository interface {
	Create(ctx context.Context, s *models.Secret) error
	Get(ctx context.Context, userID, id string) (*models.Secret, error)
	// List returns the user's secrets oldest first.
	List(ctx context.Context, userID string) ([]*models.Secret, error)
	Update(ctx context.Context, s *models.Secret) error
	Delete(ctx context.Context, userID, id string) error
	Count(ctx context.Context, userID string) (int, error)
	// EditableIDs returns the ids of the limit oldest secrets (by created_at,
	// ties broken by id).
	EditableIDs(ctx context.Context, userID string, limit int) ([]string, error)
}
