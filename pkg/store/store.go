package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"fapiaobox/models"
)

// Store persists invoice records keyed by id, plus the side-store of original
// PDF binaries under baseDir. All single-record mutations are serialized per
// id; operations on distinct ids proceed independently.
type Store struct {
	db      *gorm.DB
	baseDir string
	locks   *keyedLocks
}

func New(db *gorm.DB, pdfBaseDir string) *Store {
	return &Store{db: db, baseDir: pdfBaseDir, locks: newKeyedLocks()}
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *gorm.DB { return s.db }

// BaseDir returns the root of the PDF side-store.
func (s *Store) BaseDir() string { return s.baseDir }

// Insert stores a new record in state active. The id is normally assigned by
// the database; a caller-supplied id that collides fails with ErrDuplicateKey.
func (s *Store) Insert(rec *models.InvoiceRecord) error {
	rec.State = models.StateActive
	rec.RecycledAt = nil
	if rec.ID != 0 {
		var cnt int64
		if err := s.db.Model(&models.InvoiceRecord{}).Where("id = ?", rec.ID).Count(&cnt).Error; err != nil {
			return fmt.Errorf("check record id %d: %w", rec.ID, err)
		}
		if cnt > 0 {
			return ErrDuplicateKey
		}
	}
	if err := s.db.Create(rec).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert invoice record: %w", err)
	}
	return nil
}

// Get returns the record or ErrNotFound.
func (s *Store) Get(id uint) (*models.InvoiceRecord, error) {
	var rec models.InvoiceRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get invoice record %d: %w", id, err)
	}
	return &rec, nil
}

// List returns all records matching both filters, most recent first. The
// created_at DESC ordering is a user-facing contract.
func (s *Store) List(t models.InvoiceType, state models.State) ([]models.InvoiceRecord, error) {
	var recs []models.InvoiceRecord
	err := s.db.Where("invoice_type = ? AND state = ?", t, state).
		Order("created_at DESC, id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list invoice records: %w", err)
	}
	return recs, nil
}

// ListRecycleBin returns the recycled records of one type, most recently
// deleted first.
func (s *Store) ListRecycleBin(t models.InvoiceType) ([]models.InvoiceRecord, error) {
	var recs []models.InvoiceRecord
	err := s.db.Where("invoice_type = ? AND state = ?", t, models.StateRecycled).
		Order("recycled_at DESC, id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list recycle bin: %w", err)
	}
	return recs, nil
}

// ListRecycledBefore returns recycled records whose recycled_at is at or
// before cutoff, for the retention sweep.
func (s *Store) ListRecycledBefore(cutoff time.Time) ([]models.InvoiceRecord, error) {
	var recs []models.InvoiceRecord
	err := s.db.Where("state = ? AND recycled_at IS NOT NULL AND recycled_at <= ?", models.StateRecycled, cutoff).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list recycled records: %w", err)
	}
	return recs, nil
}

// UpdateState performs the transition iff it is forward-monotonic, setting
// recycled_at on the move out of active. Backward or sideways moves fail with
// ErrInvalidTransition.
func (s *Store) UpdateState(id uint, newState models.State, at time.Time) error {
	unlock := s.locks.lock(id)
	defer unlock()

	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	if !models.ForwardTransition(rec.State, newState) {
		return fmt.Errorf("%w: %s -> %s (id=%d)", ErrInvalidTransition, rec.State, newState, id)
	}
	updates := map[string]any{"state": newState}
	if rec.State == models.StateActive {
		// a direct active -> purged jump must still record when the record
		// left the active view
		updates["recycled_at"] = at
	}
	if err := s.db.Model(&models.InvoiceRecord{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update state of record %d: %w", id, err)
	}
	return nil
}

// DeleteStorage reclaims the PDF binary and the record row. Only purged
// records may be reclaimed.
func (s *Store) DeleteStorage(id uint) error {
	unlock := s.locks.lock(id)
	defer unlock()

	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	if rec.State != models.StatePurged {
		return fmt.Errorf("%w: delete storage requires purged state, got %s (id=%d)", ErrInvalidTransition, rec.State, id)
	}
	if rec.PdfPath != "" {
		full := filepath.Join(s.baseDir, rec.PdfPath)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove pdf %s: %w", full, err)
		}
	}
	if err := s.db.Delete(&models.InvoiceRecord{}, id).Error; err != nil {
		return fmt.Errorf("delete record row %d: %w", id, err)
	}
	return nil
}

// PdfFile resolves a record's pdf_reference to an absolute path, verifying
// the binary still exists.
func (s *Store) PdfFile(rec *models.InvoiceRecord) (string, error) {
	if rec.PdfPath == "" {
		return "", fmt.Errorf("record %d has no pdf reference", rec.ID)
	}
	full := filepath.Join(s.baseDir, rec.PdfPath)
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("pdf binary missing for record %d: %w", rec.ID, err)
	}
	return full, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "UNIQUE constraint") || strings.Contains(s, "already exists")
}
