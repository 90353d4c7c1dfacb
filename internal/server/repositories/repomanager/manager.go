package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/vaultkeeper/internal/dbx"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/packs"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/payments"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/plans"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/secrets"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can decide the transactional scope.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Plans(db dbx.DBTX) plans.Repository
	Packs(db dbx.DBTX) packs.Repository
	Secrets(db dbx.DBTX) secrets.Repository
	Files(db dbx.DBTX) files.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Payments(db dbx.DBTX) payments.Repository
}
