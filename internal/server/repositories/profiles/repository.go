// Package profiles persists per-principal security and entitlement state.
package profiles

import (
	"context"
	"time"

	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
)

// Repository manages the one-to-one profile row of each principal.
type Repository interface {
	// Create inserts a fully populated profile (used at registration).
	Create(ctx context.Context, p *models.Profile) error

	// EnsureExists backfills an empty profile for userID when none exists.
	EnsureExists(ctx context.Context, userID string) error

	Get(ctx context.Context, userID string) (*models.Profile, error)

	// GetForUpdate is Get with a row lock held until the surrounding
	// transaction ends. Only meaningful inside a transaction.
	GetForUpdate(ctx context.Context, userID string) (*models.Profile, error)

	// IncrementFailedAttempts atomically bumps the counter and returns the new value.
	IncrementFailedAttempts(ctx context.Context, userID string) (int, error)
	ResetFailedAttempts(ctx context.Context, userID string) error

	SetPlan(ctx context.Context, userID string, planID int64) error
	AddGrants(ctx context.Context, userID string, pack *models.Pack) error

	// RecordAdView increments the ad counters. The daily counter restarts
	// at 1 when the previous view was on an earlier UTC day.
	RecordAdView(ctx context.Context, userID string, at time.Time) (total int, today int, err error)

	Stats(ctx context.Context) (*models.Stats, error)
}
