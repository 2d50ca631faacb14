// Package sqlite provides an embedded NoteStore on top of gorm and the pure-Go
// SQLite driver. It backs single-node deployments and engine tests.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dtroode/privenote-server/internal/model"
)

var _ model.NoteStore = (*Store)(nil)

type noteRecord struct {
	ID                string `gorm:"primaryKey;type:text"`
	OwnerID           string `gorm:"type:text;not null;uniqueIndex:idx_notes_owner_request,priority:1"`
	Ciphertext        []byte
	IV                []byte `gorm:"not null"`
	BlobKey           string
	CreatedAt         time.Time `gorm:"not null"`
	ExpiresAt         time.Time `gorm:"not null;index:idx_notes_purge,priority:1"`
	ViewOnce          bool      `gorm:"not null"`
	AttemptLimit      *int
	AttemptsRemaining int        `gorm:"not null"`
	IsDeleted         bool       `gorm:"not null;index:idx_notes_purge,priority:2"`
	DeletedAt         *time.Time // plain column, not gorm soft delete
	RequestID         *string    `gorm:"type:text;uniqueIndex:idx_notes_owner_request,priority:2"`
}

func (noteRecord) TableName() string { return "notes" }

// Store is a gorm-backed NoteStore.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at dsn and migrates the schema.
// Use ":memory:" or a file path; all access is serialized over one
// connection so the compare-and-set updates stay atomic.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&noteRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Create(ctx context.Context, note model.Note) (model.Note, error) {
	rec := toRecord(note)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rec.RequestID != nil {
			var existing noteRecord
			err := tx.Where("owner_id = ? AND request_id = ?", rec.OwnerID, *rec.RequestID).
				Take(&existing).Error
			if err == nil {
				rec = existing
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return model.Note{}, fmt.Errorf("failed to insert note: %w", err)
	}

	return fromRecord(rec)
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (model.Note, error) {
	var rec noteRecord
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id.String(), false).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Note{}, model.ErrNotFound
		}
		return model.Note{}, fmt.Errorf("failed to get note by id: %w", err)
	}

	return fromRecord(rec)
}

func (s *Store) DecrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var remaining int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&noteRecord{}).
			Where("id = ? AND is_deleted = ? AND attempt_limit IS NOT NULL AND attempts_remaining > 0", id.String(), false).
			UpdateColumn("attempts_remaining", gorm.Expr("attempts_remaining - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrNotFound
		}
		return tx.Model(&noteRecord{}).
			Select("attempts_remaining").
			Where("id = ?", id.String()).
			Scan(&remaining).Error
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to decrement attempts: %w", err)
	}

	return remaining, nil
}

func (s *Store) MarkDeleted(ctx context.Context, id uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Model(&noteRecord{}).
		Where("id = ? AND is_deleted = ?", id.String(), false).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark note deleted: %w", res.Error)
	}

	return res.RowsAffected == 1, nil
}

func (s *Store) Purge(ctx context.Context, before time.Time, limit int) ([]model.PurgedNote, error) {
	var out []model.PurgedNote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recs []noteRecord
		err := tx.Select("id", "blob_key").
			Where("(is_deleted = ? AND deleted_at < ?) OR expires_at < ?", true, before.UTC(), before.UTC()).
			Order("expires_at").
			Limit(limit).
			Find(&recs).Error
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}

		ids := make([]string, 0, len(recs))
		for _, r := range recs {
			id, err := uuid.Parse(r.ID)
			if err != nil {
				return err
			}
			ids = append(ids, r.ID)
			out = append(out, model.PurgedNote{ID: id, BlobKey: r.BlobKey})
		}
		return tx.Where("id IN ?", ids).Delete(&noteRecord{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to purge notes: %w", err)
	}

	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toRecord(n model.Note) noteRecord {
	rec := noteRecord{
		ID:                n.ID.String(),
		OwnerID:           n.OwnerID.String(),
		Ciphertext:        n.Ciphertext,
		IV:                n.IV,
		BlobKey:           n.BlobKey,
		CreatedAt:         n.CreatedAt.UTC(),
		ExpiresAt:         n.ExpiresAt.UTC(),
		ViewOnce:          n.ViewOnce,
		AttemptLimit:      n.AttemptLimit,
		AttemptsRemaining: n.AttemptsRemaining,
		IsDeleted:         n.IsDeleted,
		DeletedAt:         n.DeletedAt,
	}
	if n.RequestID != uuid.Nil {
		rid := n.RequestID.String()
		rec.RequestID = &rid
	}
	return rec
}

func fromRecord(rec noteRecord) (model.Note, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return model.Note{}, fmt.Errorf("failed to parse note id: %w", err)
	}
	owner, err := uuid.Parse(rec.OwnerID)
	if err != nil {
		return model.Note{}, fmt.Errorf("failed to parse owner id: %w", err)
	}

	n := model.Note{
		ID:                id,
		OwnerID:           owner,
		Ciphertext:        rec.Ciphertext,
		IV:                rec.IV,
		BlobKey:           rec.BlobKey,
		CreatedAt:         rec.CreatedAt.UTC(),
		ExpiresAt:         rec.ExpiresAt.UTC(),
		ViewOnce:          rec.ViewOnce,
		AttemptLimit:      rec.AttemptLimit,
		AttemptsRemaining: rec.AttemptsRemaining,
		IsDeleted:         rec.IsDeleted,
		DeletedAt:         rec.DeletedAt,
	}
	if rec.RequestID != nil {
		rid, err := uuid.Parse(*rec.RequestID)
		if err != nil {
			return model.Note{}, fmt.Errorf("failed to parse request id: %w", err)
		}
		n.RequestID = rid
	}

	return n, nil
}
