// Package files declares the repository for uploaded file metadata.
package files

import (
	"context"

	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
)

// Repository persists file metadata. Blob contents live in object storage.
type Repository interface {
	Create(ctx context.Context, f *models.File) error
	Get(ctx context.Context, userID, id string) (*models.File, error)
	List(ctx context.Context, userID string) ([]*models.File, error)
	Delete(ctx context.Context, userID, id string) error
	// SumSize returns the total plaintext bytes stored by userID.
	SumSize(ctx context.Context, userID string) (int64, error)
	// StorageKeys lists every blob key owned by userID.
	StorageKeys(ctx context.Context, userID string) ([]string, error)
}
