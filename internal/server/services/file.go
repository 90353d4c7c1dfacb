package services

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/cryptox"
	"github.com/dmitrijs2005/vaultkeeper/internal/dbx"
	"github.com/dmitrijs2005/vaultkeeper/internal/logging"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/quota"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// FileView describes a stored file without its content.
type FileView struct {
	ID        string
	Name      string
	SizeBytes int64
	CreatedAt time.Time
}

// FileService stores file contents encrypted in the blob store and their
// metadata in the database.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	box         *cryptox.Box
	blobs       blobstore.Store
	quota       *QuotaService
	log         logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, box *cryptox.Box, blobs blobstore.Store,
	q *QuotaService, log logging.Logger) *FileService {
	return &FileService{db: db, repomanager: m, box: box, blobs: blobs, quota: q, log: log}
}

// Upload charges len(content) against the storage quota, then stores the
// encrypted content. If the metadata cannot be committed the blob is removed.
func (s *FileService) Upload(ctx context.Context, userID, name string, content []byte) (*FileView, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: file name is required", common.ErrValidation)
	}

	size := int64(len(content))
	if size > quota.MaxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", common.ErrFileTooLarge, size, quota.MaxFileBytes)
	}

	blob, err := s.box.EncryptBytes(content)
	if err != nil {
		return nil, fmt.Errorf("error encrypting file: %w", err)
	}

	rec := &models.File{
		ID:         uuid.NewString(),
		UserID:     userID,
		StorageKey: blobstore.NewStorageKey(),
		Name:       name,
		SizeBytes:  size,
	}

	stored := false
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.quota.AuthorizeUpload(ctx, tx, userID, size); err != nil {
			return err
		}
		if err := s.blobs.Put(ctx, rec.StorageKey, blob); err != nil {
			return fmt.Errorf("error storing file: %w", err)
		}
		stored = true
		return s.repomanager.Files(tx).Create(ctx, rec)
	})
	if err != nil {
		if stored {
			s.deleteBlob(context.WithoutCancel(ctx), rec.StorageKey)
		}
		return nil, err
	}

	return toFileView(rec), nil
}

// Download returns the decrypted content and the original file name.
// A blob that fails authentication yields ErrDecryptionFailed.
func (s *FileService) Download(ctx context.Context, userID, id string) ([]byte, string, error) {
	if err := checkID(id); err != nil {
		return nil, "", err
	}
	rec, err := s.repomanager.Files(s.db).Get(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	blob, err := s.blobs.Get(ctx, rec.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("error loading file: %w", err)
	}
	content, err := s.box.DecryptBytes(blob)
	if err != nil {
		return nil, "", fmt.Errorf("file %s: %w", rec.ID, err)
	}
	return content, rec.Name, nil
}

func (s *FileService) List(ctx context.Context, userID string) ([]*FileView, error) {
	recs, err := s.repomanager.Files(s.db).List(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]*FileView, 0, len(recs))
	for _, r := range recs {
		views = append(views, toFileView(r))
	}
	return views, nil
}

// Delete removes the metadata row, then the blob once the row is gone.
func (s *FileService) Delete(ctx context.Context, userID, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	var after dbx.AfterCommit
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)
		rec, err := repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, userID, id); err != nil {
			return err
		}
		after.Add(func() { s.deleteBlob(context.WithoutCancel(ctx), rec.StorageKey) })
		return nil
	})
	if err != nil {
		return err
	}
	after.Run()
	return nil
}

func (s *FileService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "failed to delete blob", "key", key, "error", err)
	}
}

func toFileView(r *models.File) *FileView {
	return &FileView{ID: r.ID, Name: r.Name, SizeBytes: r.SizeBytes, CreatedAt: r.CreatedAt}
}
