package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/cryptox"
	"github.com/dmitrijs2005/vaultkeeper/internal/dbx"
	"github.com/dmitrijs2005/vaultkeeper/internal/logging"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// SecretFields carries user input for create and update. A nil field is
// left unchanged on update.
type SecretFields struct {
	Email       *string
	Password    *string
	Secret      *string
	SiteURL     *string
	SiteName    *string
	SiteIconURL *string
}

// SecretView is the decrypted, owner-facing form of a secret.
type SecretView struct {
	ID          string
	Email       string
	Password    cryptox.Plaintext
	Secret      cryptox.Plaintext
	SiteURL     string
	SiteName    string
	SiteIconURL string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Frozen records are readable but cannot be changed or deleted.
	Frozen bool
}

// SecretService stores credentials encrypted under the master key.
type SecretService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	box         *cryptox.Box
	quota       *QuotaService
	log         logging.Logger
}

func NewSecretService(db *sql.DB, m repomanager.RepositoryManager, box *cryptox.Box, q *QuotaService, log logging.Logger) *SecretService {
	return &SecretService{db: db, repomanager: m, box: box, quota: q, log: log}
}

// Create stores a new secret after checking the slot quota in the same
// transaction.
func (s *SecretService) Create(ctx context.Context, userID string, f SecretFields) (*SecretView, error) {
	if f.Email == nil || strings.TrimSpace(*f.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrValidation)
	}
	if f.Password == nil || *f.Password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrValidation)
	}

	rec := &models.Secret{ID: uuid.NewString(), UserID: userID}
	if err := s.apply(rec, f); err != nil {
		return nil, err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.quota.AuthorizeSecretCreate(ctx, tx, userID); err != nil {
			return err
		}
		return s.repomanager.Secrets(tx).Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	return s.ToView(rec, false), nil
}

// Update changes the given fields of a secret the user owns. Frozen
// secrets yield ErrFrozen.
func (s *SecretService) Update(ctx context.Context, userID, id string, f SecretFields) (*SecretView, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var rec *models.Secret
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Secrets(tx)
		var err error
		rec, err = repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := s.ensureEditable(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := s.apply(rec, f); err != nil {
			return err
		}
		return repo.Update(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.ToView(rec, false), nil
}

// Get returns one secret. Frozen secrets are readable.
func (s *SecretService) Get(ctx context.Context, userID, id string) (*SecretView, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	rec, err := s.repomanager.Secrets(s.db).Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	frozen, err := s.quota.IsFrozen(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	return s.ToView(rec, frozen), nil
}

// List returns every secret of the user, oldest first, with freeze flags.
func (s *SecretService) List(ctx context.Context, userID string) ([]*SecretView, error) {
	recs, err := s.repomanager.Secrets(s.db).List(ctx, userID)
	if err != nil {
		return nil, err
	}
	editable, err := s.quota.EditableSet(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	views := make([]*SecretView, 0, len(recs))
	for _, r := range recs {
		_, ok := editable[r.ID]
		views = append(views, s.ToView(r, !ok))
	}
	return views, nil
}

// Delete removes a secret the user owns. Frozen secrets yield ErrFrozen.
func (s *SecretService) Delete(ctx context.Context, userID, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Secrets(tx)
		if _, err := repo.Get(ctx, userID, id); err != nil {
			return err
		}
		if err := s.ensureEditable(ctx, tx, userID, id); err != nil {
			return err
		}
		return repo.Delete(ctx, userID, id)
	})
}

// checkID rejects ids that cannot name a stored record, since the id
// columns are uuids and the database refuses other text.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}
	return nil
}

func (s *SecretService) ensureEditable(ctx context.Context, tx dbx.DBTX, userID, id string) error {
	frozen, err := s.quota.IsFrozen(ctx, tx, userID, id)
	if err != nil {
		return err
	}
	if frozen {
		return common.ErrFrozen
	}
	return nil
}

// apply copies non-nil fields into rec, encrypting secret-bearing ones.
// When a site URL is set and no icon is known, an icon URL is derived.
func (s *SecretService) apply(rec *models.Secret, f SecretFields) error {
	if f.Email != nil {
		rec.Email = strings.TrimSpace(*f.Email)
	}
	if f.Password != nil {
		ct, err := s.box.EncryptText(*f.Password)
		if err != nil {
			return fmt.Errorf("error encrypting password: %w", err)
		}
		rec.PasswordEncrypted = ct
	}
	if f.Secret != nil {
		ct, err := s.box.EncryptText(*f.Secret)
		if err != nil {
			return fmt.Errorf("error encrypting secret: %w", err)
		}
		rec.SecretEncrypted = ct
	}
	if f.SiteName != nil {
		rec.SiteName = strings.TrimSpace(*f.SiteName)
	}
	if f.SiteIconURL != nil {
		rec.SiteIconURL = strings.TrimSpace(*f.SiteIconURL)
	}
	if f.SiteURL != nil {
		rec.SiteURL = strings.TrimSpace(*f.SiteURL)
		if rec.SiteIconURL == "" {
			rec.SiteIconURL = DeriveIconURL(rec.SiteURL)
		}
	}
	return nil
}

// ToView decrypts rec for its owner. Undecryptable fields are reported
// through cryptox.Plaintext.Status, never as ciphertext.
func (s *SecretService) ToView(rec *models.Secret, frozen bool) *SecretView {
	return &SecretView{
		ID:          rec.ID,
		Email:       rec.Email,
		Password:    s.box.DecryptText(rec.PasswordEncrypted),
		Secret:      s.box.DecryptText(rec.SecretEncrypted),
		SiteURL:     rec.SiteURL,
		SiteName:    rec.SiteName,
		SiteIconURL: rec.SiteIconURL,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		Frozen:      frozen,
	}
}
