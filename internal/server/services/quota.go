package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/dbx"
	"github.com/dmitrijs2005/vaultkeeper/internal/logging"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/quota"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/repomanager"
)

// ProfileSummary is the usage overview shown to a user.
type ProfileSummary struct {
	PlanName       string
	SlotsUsed      int
	SlotsTotal     int
	StorageUsedMB  float64
	StorageTotalGB int64
	StoragePercent float64
	NotesTotal     int
	RemindersTotal int
	AdFree         bool
	TotalAdViews   int
}

// QuotaService enforces plan limits. Entitlements are recomputed from the
// database on every call.
type QuotaService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewQuotaService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *QuotaService {
	return &QuotaService{db: db, repomanager: m, log: log}
}

// entitlement loads the profile (creating an empty one if missing) and its
// plan. With lock set the profile row stays locked until tx ends, which
// serialises quota decisions for one user.
func (q *QuotaService) entitlement(ctx context.Context, db dbx.DBTX, userID string, lock bool) (quota.Entitlement, *models.Profile, error) {
	profiles := q.repomanager.Profiles(db)
	if err := ensureProfile(ctx, profiles, userID); err != nil {
		return quota.Entitlement{}, nil, err
	}

	get := profiles.Get
	if lock {
		get = profiles.GetForUpdate
	}
	profile, err := get(ctx, userID)
	if err != nil {
		return quota.Entitlement{}, nil, fmt.Errorf("error loading profile: %w", err)
	}

	var plan *models.Plan
	if profile.PlanID != nil {
		plan, err = q.repomanager.Plans(db).Get(ctx, *profile.PlanID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return quota.Entitlement{}, nil, fmt.Errorf("error loading plan: %w", err)
		}
	}

	return quota.Compute(plan, profile), profile, nil
}

// AuthorizeSecretCreate must run inside the transaction that inserts the
// secret. It fails with ErrQuotaExceeded when all slots are taken.
func (q *QuotaService) AuthorizeSecretCreate(ctx context.Context, tx dbx.DBTX, userID string) error {
	ent, _, err := q.entitlement(ctx, tx, userID, true)
	if err != nil {
		return err
	}
	count, err := q.repomanager.Secrets(tx).Count(ctx, userID)
	if err != nil {
		return fmt.Errorf("error counting secrets: %w", err)
	}
	if count >= ent.TotalSlots {
		return fmt.Errorf("%w: %d of %d account slots used", common.ErrQuotaExceeded, count, ent.TotalSlots)
	}
	return nil
}

// AuthorizeUpload must run inside the transaction that records the file.
// Files above quota.MaxFileBytes are refused whatever the remaining budget.
func (q *QuotaService) AuthorizeUpload(ctx context.Context, tx dbx.DBTX, userID string, size int64) error {
	if size > quota.MaxFileBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", common.ErrFileTooLarge, size, quota.MaxFileBytes)
	}
	ent, _, err := q.entitlement(ctx, tx, userID, true)
	if err != nil {
		return err
	}
	used, err := q.repomanager.Files(tx).SumSize(ctx, userID)
	if err != nil {
		return fmt.Errorf("error summing file sizes: %w", err)
	}
	if used+size > ent.TotalStorageBytes {
		return fmt.Errorf("%w: %d of %d bytes used, %d requested", common.ErrQuotaExceeded, used, ent.TotalStorageBytes, size)
	}
	return nil
}

// EditableSet returns the ids of the secrets the user may still modify:
// the TotalSlots oldest ones. Everything else is frozen.
func (q *QuotaService) EditableSet(ctx context.Context, db dbx.DBTX, userID string) (map[string]struct{}, error) {
	ent, _, err := q.entitlement(ctx, db, userID, false)
	if err != nil {
		return nil, err
	}
	ids, err := q.repomanager.Secrets(db).EditableIDs(ctx, userID, ent.TotalSlots)
	if err != nil {
		return nil, fmt.Errorf("error loading editable secrets: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (q *QuotaService) IsFrozen(ctx context.Context, db dbx.DBTX, userID, id string) (bool, error) {
	set, err := q.EditableSet(ctx, db, userID)
	if err != nil {
		return false, err
	}
	_, ok := set[id]
	return !ok, nil
}

// ApplyEntitlement applies a purchase exactly once per paymentID. A plan
// purchase replaces the current plan; excess records become frozen, never
// deleted. A pack purchase adds its grants.
func (q *QuotaService) ApplyEntitlement(ctx context.Context, userID, kind string, productID int64, paymentID string) error {
	if kind != models.PurchasePlan && kind != models.PurchasePack {
		return fmt.Errorf("%w: unknown purchase kind %q", common.ErrValidation, kind)
	}

	applied := false
	err := dbx.WithTx(ctx, q.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := q.repomanager.Users(tx).GetByID(ctx, userID); err != nil {
			return fmt.Errorf("error loading user %s: %w", userID, err)
		}
		if _, _, err := q.entitlement(ctx, tx, userID, true); err != nil {
			return err
		}

		fresh, err := q.repomanager.Payments(tx).MarkProcessed(ctx, &models.ProcessedPayment{
			PaymentID:    paymentID,
			UserID:       userID,
			PurchaseKind: kind,
			ProductID:    productID,
		})
		if err != nil {
			return fmt.Errorf("error recording payment: %w", err)
		}
		if !fresh {
			return nil
		}

		profiles := q.repomanager.Profiles(tx)
		switch kind {
		case models.PurchasePlan:
			plan, err := q.repomanager.Plans(tx).Get(ctx, productID)
			if err != nil {
				return fmt.Errorf("error loading plan %d: %w", productID, err)
			}
			if err := profiles.SetPlan(ctx, userID, plan.ID); err != nil {
				return fmt.Errorf("error setting plan: %w", err)
			}
		case models.PurchasePack:
			pack, err := q.repomanager.Packs(tx).Get(ctx, productID)
			if err != nil {
				return fmt.Errorf("error loading pack %d: %w", productID, err)
			}
			if err := profiles.AddGrants(ctx, userID, pack); err != nil {
				return fmt.Errorf("error adding grants: %w", err)
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}

	if applied {
		q.log.Info(ctx, "entitlement applied", "user_id", userID, "kind", kind, "product_id", productID, "payment_id", paymentID)
	} else {
		q.log.Info(ctx, "duplicate payment ignored", "user_id", userID, "payment_id", paymentID)
	}
	return nil
}

// Summary reports usage against the current entitlement.
func (q *QuotaService) Summary(ctx context.Context, userID string) (*ProfileSummary, error) {
	ent, profile, err := q.entitlement(ctx, q.db, userID, false)
	if err != nil {
		return nil, err
	}
	count, err := q.repomanager.Secrets(q.db).Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error counting secrets: %w", err)
	}
	used, err := q.repomanager.Files(q.db).SumSize(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error summing file sizes: %w", err)
	}

	var pct float64
	if ent.TotalStorageBytes > 0 {
		pct = round2(float64(used) / float64(ent.TotalStorageBytes) * 100)
	}

	return &ProfileSummary{
		PlanName:       ent.PlanName,
		SlotsUsed:      count,
		SlotsTotal:     ent.TotalSlots,
		StorageUsedMB:  round2(float64(used) / (1 << 20)),
		StorageTotalGB: ent.TotalStorageGB(),
		StoragePercent: pct,
		NotesTotal:     ent.TotalNotes,
		RemindersTotal: ent.TotalReminders,
		AdFree:         ent.AdFree,
		TotalAdViews:   profile.TotalAdViews,
	}, nil
}

// RecordAdView counts one ad impression and returns the new total and
// today's count.
func (q *QuotaService) RecordAdView(ctx context.Context, userID string) (int, int, error) {
	profiles := q.repomanager.Profiles(q.db)
	if err := ensureProfile(ctx, profiles, userID); err != nil {
		return 0, 0, err
	}
	total, today, err := profiles.RecordAdView(ctx, userID, time.Now())
	if err != nil {
		return 0, 0, fmt.Errorf("error recording ad view: %w", err)
	}
	return total, today, nil
}

// ensureProfile backfills the profile row. A principal deleted while its
// access token is still valid has no user row to attach one to.
func ensureProfile(ctx context.Context, repo profiles.Repository, userID string) error {
	err := repo.EnsureExists(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: account no longer exists", common.ErrorUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("error ensuring profile: %w", err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
