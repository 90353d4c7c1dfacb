// Package users declares the account principal repository.
package users

import (
	"context"

	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetActive(ctx context.Context, email string, active bool) error
	// Delete removes the principal. Profiles, secrets, files and refresh
	// tokens go with it through ON DELETE CASCADE.
	Delete(ctx context.Context, id string) error
}
