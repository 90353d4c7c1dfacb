package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/logging"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vaultFixture struct {
	mem     *memDB
	quota   *QuotaService
	secrets *SecretService
	files   *FileService
	blobs   *blobstore.MemoryStore
	userID  string
}

func newVaultFixture(t *testing.T) *vaultFixture {
	t.Helper()
	db := newTxDB(t)
	mem := newMemDB()
	rm := &fakeManager{m: mem}
	box := newTestBox(t)
	q := NewQuotaService(db, rm, logging.Nop{})
	blobs := blobstore.NewMemoryStore()
	f := &vaultFixture{
		mem:     mem,
		quota:   q,
		secrets: NewSecretService(db, rm, box, q, logging.Nop{}),
		files:   NewFileService(db, rm, box, blobs, q, logging.Nop{}),
		blobs:   blobs,
		userID:  "u1",
	}
	mem.users["u1"] = &models.User{ID: "u1", Email: "u1@example.com", IsActive: true}
	return f
}

func (f *vaultFixture) addPlan(name string, slots, gb int, price float64) int64 {
	id := int64(len(f.mem.plans) + 1)
	f.mem.plans[id] = &models.Plan{ID: id, Name: name, BaseSlots: slots, BaseGB: gb, BaseNotes: 5, BaseReminders: 5, MonthlyPrice: price, AdFree: price > 0}
	return id
}

func (f *vaultFixture) addPack(slots, gb int) int64 {
	id := int64(len(f.mem.packs) + 1)
	f.mem.packs[id] = &models.Pack{ID: id, Name: "pack", ExtraSlots: slots, ExtraGB: gb, ExtraNotes: 1, ExtraReminders: 1}
	return id
}

func TestAuthorizeSecretCreate_FreeTier(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	for i := 0; i < quota.FreePlan.BaseSlots; i++ {
		_, err := f.secrets.Create(ctx, f.userID, fields("user@example.com", "pw"))
		require.NoError(t, err, "secret %d", i)
	}
	_, err := f.secrets.Create(ctx, f.userID, fields("user@example.com", "pw"))
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
	assert.Len(t, f.mem.secrets, quota.FreePlan.BaseSlots)
}

func TestApplyEntitlement_PackIsIdempotent(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()
	pack := f.addPack(5, 2)

	require.NoError(t, f.quota.ApplyEntitlement(ctx, f.userID, models.PurchasePack, pack, "pay-1"))
	require.NoError(t, f.quota.ApplyEntitlement(ctx, f.userID, models.PurchasePack, pack, "pay-1"))

	p := f.mem.profiles[f.userID]
	assert.Equal(t, 5, p.ExtraSlots)
	assert.Equal(t, 2, p.ExtraGB)

	require.NoError(t, f.quota.ApplyEntitlement(ctx, f.userID, models.PurchasePack, pack, "pay-2"))
	assert.Equal(t, 10, f.mem.profiles[f.userID].ExtraSlots)
}

func TestApplyEntitlement_PlanReplacesPlan(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()
	pro := f.addPlan("Pro", 50, 10, 9.99)
	basic := f.addPlan("Basic", 20, 2, 0)

	require.NoError(t, f.quota.ApplyEntitlement(ctx, f.userID, models.PurchasePlan, pro, "pay-1"))
	assert.Equal(t, pro, *f.mem.profiles[f.userID].PlanID)

	require.NoError(t, f.quota.ApplyEntitlement(ctx, f.userID, models.PurchasePlan, basic, "pay-2"))
	assert.Equal(t, basic, *f.mem.profiles[f.userID].PlanID)
}

func TestApplyEntitlement_Errors(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	err := f.quota.ApplyEntitlement(ctx, f.userID, "gift", 1, "pay-1")
	require.ErrorIs(t, err, common.ErrValidation)

	err = f.quota.ApplyEntitlement(ctx, "ghost", models.PurchasePlan, 1, "pay-2")
	require.ErrorIs(t, err, common.ErrorNotFound)

	err = f.quota.ApplyEntitlement(ctx, f.userID, models.PurchasePack, 42, "pay-3")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSummary(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	s, err := f.quota.Summary(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, &ProfileSummary{
		PlanName:       quota.FreePlanName,
		SlotsTotal:     10,
		StorageTotalGB: 1,
		NotesTotal:     10,
		RemindersTotal: 10,
	}, s)

	pro := f.addPlan("Pro", 50, 10, 9.99)
	require.NoError(t, f.quota.ApplyEntitlement(ctx, f.userID, models.PurchasePlan, pro, "pay-1"))
	require.NoError(t, f.quota.ApplyEntitlement(ctx, f.userID, models.PurchasePack, f.addPack(2, 1), "pay-2"))
	_, err = f.secrets.Create(ctx, f.userID, fields("a@example.com", "pw"))
	require.NoError(t, err)
	_, err = f.files.Upload(ctx, f.userID, "a.bin", make([]byte, 3<<20))
	require.NoError(t, err)

	s, err = f.quota.Summary(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "Pro", s.PlanName)
	assert.Equal(t, 1, s.SlotsUsed)
	assert.Equal(t, 52, s.SlotsTotal)
	assert.Equal(t, 3.0, s.StorageUsedMB)
	assert.Equal(t, int64(11), s.StorageTotalGB)
	assert.Equal(t, 0.03, s.StoragePercent)
	assert.Equal(t, 6, s.NotesTotal)
	assert.True(t, s.AdFree)
}

func TestSummary_MissingPlanFallsBackToFree(t *testing.T) {
	f := newVaultFixture(t)
	gone := int64(99)
	f.mem.profiles[f.userID] = &models.Profile{UserID: f.userID, PlanID: &gone}

	s, err := f.quota.Summary(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, quota.FreePlanName, s.PlanName)
	assert.Equal(t, 10, s.SlotsTotal)
}

func TestRecordAdView(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	total, today, err := f.quota.RecordAdView(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, today)

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	f.mem.profiles[f.userID].LastAdViewAt = &yesterday
	f.mem.profiles[f.userID].AdViewsToday = 7

	total, today, err = f.quota.RecordAdView(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, today)
}

func TestDeletedAccount_IsUnauthorized(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()
	delete(f.mem.users, f.userID)

	_, err := f.secrets.Create(ctx, f.userID, fields("a@example.com", "pw"))
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = f.secrets.List(ctx, f.userID)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = f.files.Upload(ctx, f.userID, "a.txt", []byte("x"))
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = f.quota.Summary(ctx, f.userID)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	_, _, err = f.quota.RecordAdView(ctx, f.userID)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}
