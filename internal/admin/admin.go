// Package admin implements the operator tasks behind the vaultadm command:
// schema migrations, plan and pack catalogue maintenance, account
// enable/disable and read-only reporting.
package admin

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/repomanager"
)

type Admin struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func New(db *sql.DB, m repomanager.RepositoryManager) *Admin {
	return &Admin{db: db, repomanager: m}
}

func (a *Admin) Close() error {
	return a.db.Close()
}

func (a *Admin) Migrate(ctx context.Context) error {
	return a.repomanager.RunMigrations(ctx, a.db)
}

// PutPlan creates the plan or updates the one with the same name.
func (a *Admin) PutPlan(ctx context.Context, p *models.Plan) (int64, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return 0, fmt.Errorf("%w: plan name is required", common.ErrValidation)
	}
	if p.MonthlyPrice < 0 || p.BaseSlots < 0 || p.BaseGB < 0 || p.BaseNotes < 0 || p.BaseReminders < 0 {
		return 0, fmt.Errorf("%w: plan limits must not be negative", common.ErrValidation)
	}
	return a.repomanager.Plans(a.db).Upsert(ctx, p)
}

// PutPack creates the pack or updates the one with the same name.
func (a *Admin) PutPack(ctx context.Context, p *models.Pack) (int64, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return 0, fmt.Errorf("%w: pack name is required", common.ErrValidation)
	}
	if p.Price < 0 || p.ExtraSlots < 0 || p.ExtraGB < 0 || p.ExtraNotes < 0 || p.ExtraReminders < 0 {
		return 0, fmt.Errorf("%w: pack grants must not be negative", common.ErrValidation)
	}
	return a.repomanager.Packs(a.db).Upsert(ctx, p)
}

// SetUserActive enables or disables login for the account. Stored data
// is untouched.
func (a *Admin) SetUserActive(ctx context.Context, email string, active bool) error {
	return a.repomanager.Users(a.db).SetActive(ctx, strings.ToLower(strings.TrimSpace(email)), active)
}

func (a *Admin) Stats(ctx context.Context) (*models.Stats, error) {
	return a.repomanager.Profiles(a.db).Stats(ctx)
}
