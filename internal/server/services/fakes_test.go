package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/cryptox"
	"github.com/dmitrijs2005/vaultkeeper/internal/dbx"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/packs"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/payments"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/plans"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/secrets"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// cheapHasher keeps argon2 fast in tests.
var cheapHasher = cryptox.Hasher{Params: cryptox.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}}

// newTxDB returns an in-memory sqlite handle. The fake repositories ignore
// it; services only need it to begin and commit transactions.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestBox(t *testing.T) *cryptox.Box {
	t.Helper()
	box, err := cryptox.NewBoxFromBase64(cryptox.GenerateKey())
	require.NoError(t, err)
	return box
}

// memDB is the shared state behind every fake repository.
type memDB struct {
	mu        sync.Mutex
	clock     time.Time
	users     map[string]*models.User
	profiles  map[string]*models.Profile
	plans     map[int64]*models.Plan
	packs     map[int64]*models.Pack
	secrets   map[string]*models.Secret
	files     map[string]*models.File
	tokens    map[string]*models.RefreshToken
	processed map[string]*models.ProcessedPayment

	// createSecretErr is returned by secrets.Create when set.
	createSecretErr error
	createFileErr   error
}

func newMemDB() *memDB {
	return &memDB{
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:     map[string]*models.User{},
		profiles:  map[string]*models.Profile{},
		plans:     map[int64]*models.Plan{},
		packs:     map[int64]*models.Pack{},
		secrets:   map[string]*models.Secret{},
		files:     map[string]*models.File{},
		tokens:    map[string]*models.RefreshToken{},
		processed: map[string]*models.ProcessedPayment{},
	}
}

// tick returns a strictly increasing timestamp. Callers hold mu.
func (m *memDB) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type fakeManager struct{ m *memDB }

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeManager) Users(dbx.DBTX) users.Repository { return (*fakeUsers)(f.m) }
func (f *fakeManager) Profiles(dbx.DBTX) profiles.Repository { return (*fakeProfiles)(f.m) }
func (f *fakeManager) Plans(dbx.DBTX) plans.Repository { return (*fakePlans)(f.m) }
func (f *fakeManager) Packs(dbx.DBTX) packs.Repository { return (*fakePacks)(f.m) }
func (f *fakeManager) Secrets(dbx.DBTX) secrets.Repository { return (*fakeSecrets)(f.m) }
func (f *fakeManager) Files(dbx.DBTX) files.Repository { return (*fakeFiles)(f.m) }
func (f *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return (*fakeTokens)(f.m) }
func (f *fakeManager) Payments(dbx.DBTX) payments.Repository { return (*fakePayments)(f.m) }

// --- users ---

type fakeUsers memDB

func (r *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Email == u.Email {
			return nil, common.ErrDuplicateEmail
		}
	}
	cp := *u
	cp.ID = uuid.NewString()
	cp.CreatedAt = m.tick()
	m.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsers) SetActive(_ context.Context, email string, active bool) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u.IsActive = active
			return nil
		}
	}
	return common.ErrorNotFound
}

// Delete cascades like the foreign keys do.
func (r *fakeUsers) Delete(_ context.Context, id string) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.users, id)
	delete(m.profiles, id)
	for k, s := range m.secrets {
		if s.UserID == id {
			delete(m.secrets, k)
		}
	}
	for k, f := range m.files {
		if f.UserID == id {
			delete(m.files, k)
		}
	}
	for k, t := range m.tokens {
		if t.UserID == id {
			delete(m.tokens, k)
		}
	}
	return nil
}

// --- profiles ---

type fakeProfiles memDB

func (r *fakeProfiles) Create(_ context.Context, p *models.Profile) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.CreatedAt = m.tick()
	m.profiles[p.UserID] = &cp
	return nil
}

func (r *fakeProfiles) EnsureExists(_ context.Context, userID string) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return common.ErrorNotFound
	}
	if _, ok := m.profiles[userID]; !ok {
		m.profiles[userID] = &models.Profile{UserID: userID, CreatedAt: m.tick()}
	}
	return nil
}

func (r *fakeProfiles) Get(_ context.Context, userID string) (*models.Profile, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfiles) GetForUpdate(ctx context.Context, userID string) (*models.Profile, error) {
	return r.Get(ctx, userID)
}

func (r *fakeProfiles) IncrementFailedAttempts(_ context.Context, userID string) (int, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	p.FailedAttempts++
	return p.FailedAttempts, nil
}

func (r *fakeProfiles) ResetFailedAttempts(_ context.Context, userID string) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		p.FailedAttempts = 0
	}
	return nil
}

func (r *fakeProfiles) SetPlan(_ context.Context, userID string, planID int64) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return common.ErrorNotFound
	}
	p.PlanID = &planID
	return nil
}

func (r *fakeProfiles) AddGrants(_ context.Context, userID string, pack *models.Pack) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return common.ErrorNotFound
	}
	p.ExtraSlots += pack.ExtraSlots
	p.ExtraGB += pack.ExtraGB
	p.ExtraNotes += pack.ExtraNotes
	p.ExtraReminders += pack.ExtraReminders
	return nil
}

func (r *fakeProfiles) RecordAdView(_ context.Context, userID string, at time.Time) (int, int, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return 0, 0, common.ErrorNotFound
	}
	at = at.UTC()
	if p.LastAdViewAt == nil || p.LastAdViewAt.UTC().Format(time.DateOnly) != at.Format(time.DateOnly) {
		p.AdViewsToday = 0
	}
	p.TotalAdViews++
	p.AdViewsToday++
	p.LastAdViewAt = &at
	return p.TotalAdViews, p.AdViewsToday, nil
}

func (r *fakeProfiles) Stats(context.Context) (*models.Stats, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &models.Stats{Users: int64(len(m.users))}
	for _, p := range m.profiles {
		st.AdViews += int64(p.TotalAdViews)
		if p.PlanID != nil {
			if plan, ok := m.plans[*p.PlanID]; ok && plan.MonthlyPrice > 0 {
				st.PremiumUsers++
				st.MRR += plan.MonthlyPrice
			}
		}
	}
	return st, nil
}

// --- plans and packs ---

type fakePlans memDB

func (r *fakePlans) Get(_ context.Context, id int64) (*models.Plan, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePlans) Upsert(_ context.Context, p *models.Plan) (int64, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, x := range m.plans {
		if x.Name == p.Name {
			cp := *p
			cp.ID = id
			m.plans[id] = &cp
			return id, nil
		}
	}
	cp := *p
	cp.ID = int64(len(m.plans) + 1)
	m.plans[cp.ID] = &cp
	return cp.ID, nil
}

type fakePacks memDB

func (r *fakePacks) Get(_ context.Context, id int64) (*models.Pack, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.packs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePacks) Upsert(_ context.Context, p *models.Pack) (int64, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.ID = int64(len(m.packs) + 1)
	m.packs[cp.ID] = &cp
	return cp.ID, nil
}

// --- secrets ---

type fakeSecrets memDB

func (r *fakeSecrets) Create(_ context.Context, s *models.Secret) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createSecretErr != nil {
		return m.createSecretErr
	}
	s.CreatedAt = m.tick()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.secrets[s.ID] = &cp
	return nil
}

func (r *fakeSecrets) Get(_ context.Context, userID, id string) (*models.Secret, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.secrets[id]
	if !ok || s.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

// sorted returns the user's secrets oldest first. Callers hold mu.
func (m *memDB) sorted(userID string) []*models.Secret {
	var out []*models.Secret
	for _, s := range m.secrets {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *fakeSecrets) List(_ context.Context, userID string) ([]*models.Secret, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(userID), nil
}

func (r *fakeSecrets) Update(_ context.Context, s *models.Secret) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.secrets[s.ID]
	if !ok || old.UserID != s.UserID {
		return common.ErrorNotFound
	}
	s.CreatedAt = old.CreatedAt
	s.UpdatedAt = m.tick()
	cp := *s
	m.secrets[s.ID] = &cp
	return nil
}

func (r *fakeSecrets) Delete(_ context.Context, userID, id string) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.secrets[id]
	if !ok || s.UserID != userID {
		return common.ErrorNotFound
	}
	delete(m.secrets, id)
	return nil
}

func (r *fakeSecrets) Count(_ context.Context, userID string) (int, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sorted(userID)), nil
}

func (r *fakeSecrets) EditableIDs(_ context.Context, userID string, limit int) ([]string, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		return nil, nil
	}
	var ids []string
	for i, s := range m.sorted(userID) {
		if i >= limit {
			break
		}
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// --- files ---

type fakeFiles memDB

func (r *fakeFiles) Create(_ context.Context, f *models.File) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFileErr != nil {
		return m.createFileErr
	}
	f.CreatedAt = m.tick()
	cp := *f
	m.files[f.ID] = &cp
	return nil
}

func (r *fakeFiles) Get(_ context.Context, userID, id string) (*models.File, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok || f.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFiles) List(_ context.Context, userID string) ([]*models.File, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.File
	for _, f := range m.files {
		if f.UserID == userID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeFiles) Delete(_ context.Context, userID, id string) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok || f.UserID != userID {
		return common.ErrorNotFound
	}
	delete(m.files, id)
	return nil
}

func (r *fakeFiles) SumSize(_ context.Context, userID string) (int64, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, f := range m.files {
		if f.UserID == userID {
			sum += f.SizeBytes
		}
	}
	return sum, nil
}

func (r *fakeFiles) StorageKeys(_ context.Context, userID string) ([]string, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for _, f := range m.files {
		if f.UserID == userID {
			keys = append(keys, f.StorageKey)
		}
	}
	return keys, nil
}

// --- refresh tokens and payments ---

type fakeTokens memDB

func (r *fakeTokens) Create(_ context.Context, userID, token string, validity time.Duration) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *fakeTokens) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(m.tokens, token)
	return t, nil
}

func (r *fakeTokens) Delete(_ context.Context, token string) error {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

type fakePayments memDB

func (r *fakePayments) MarkProcessed(_ context.Context, p *models.ProcessedPayment) (bool, error) {
	m := (*memDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.processed[p.PaymentID]; ok {
		return false, nil
	}
	cp := *p
	m.processed[p.PaymentID] = &cp
	return true, nil
}
