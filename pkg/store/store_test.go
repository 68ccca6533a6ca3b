package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"fapiaobox/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.InvoiceRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db, filepath.Join(dir, "pdfs"))
}

func mustInsert(t *testing.T, s *Store, rec *models.InvoiceRecord) *models.InvoiceRecord {
	t.Helper()
	if rec.InvoiceType == "" {
		rec.InvoiceType = models.TypeSelfPaid
	}
	if rec.PurchaserName == "" {
		rec.PurchaserName = "tester"
	}
	if rec.PdfPath == "" {
		rec.PdfPath = "x.pdf"
	}
	if err := s.Insert(rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return rec
}

func TestInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	rec := mustInsert(t, s, &models.InvoiceRecord{InvoiceNumber: "12345678"})
	if rec.ID == 0 {
		t.Fatal("insert did not assign an id")
	}
	if rec.State != models.StateActive || rec.RecycledAt != nil {
		t.Fatalf("new record must be active with no recycled_at, got %s %v", rec.State, rec.RecycledAt)
	}

	got, err := s.Get(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.InvoiceNumber != "12345678" {
		t.Fatalf("got wrong record: %+v", got)
	}

	if _, err := s.Get(rec.ID + 1000); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: got %v want ErrNotFound", err)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	s := newTestStore(t)
	rec := mustInsert(t, s, &models.InvoiceRecord{})

	dup := &models.InvoiceRecord{
		ID:            rec.ID,
		InvoiceType:   models.TypeSelfPaid,
		PurchaserName: "tester",
		PdfPath:       "y.pdf",
	}
	if err := s.Insert(dup); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("duplicate id: got %v want ErrDuplicateKey", err)
	}

	// the original record stays untouched
	if got, err := s.Get(rec.ID); err != nil || got.PdfPath != "x.pdf" {
		t.Fatalf("original record changed: %+v err=%v", got, err)
	}
}

func TestInsertPreCheckSurfacesStoreFailure(t *testing.T) {
	s := newTestStore(t)
	rec := mustInsert(t, s, &models.InvoiceRecord{})

	sqlDB, err := s.DB().DB()
	if err != nil {
		t.Fatal(err)
	}
	_ = sqlDB.Close()

	dup := &models.InvoiceRecord{
		ID:            rec.ID,
		InvoiceType:   models.TypeSelfPaid,
		PurchaserName: "tester",
		PdfPath:       "y.pdf",
	}
	err = s.Insert(dup)
	if err == nil {
		t.Fatal("insert on a closed store must fail")
	}
	if errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("store outage must not be reported as a duplicate: %v", err)
	}
}

func TestListOrderingAndFilters(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Add(-3 * time.Hour)
	oldest := mustInsert(t, s, &models.InvoiceRecord{CreatedAt: base, InvoiceNumber: "1"})
	newest := mustInsert(t, s, &models.InvoiceRecord{CreatedAt: base.Add(2 * time.Hour), InvoiceNumber: "3"})
	middle := mustInsert(t, s, &models.InvoiceRecord{CreatedAt: base.Add(time.Hour), InvoiceNumber: "2"})
	other := mustInsert(t, s, &models.InvoiceRecord{InvoiceType: models.TypeCorporate})

	recs, err := s.List(models.TypeSelfPaid, models.StateActive)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("list: got %d records want 3", len(recs))
	}
	if recs[0].ID != newest.ID || recs[1].ID != middle.ID || recs[2].ID != oldest.ID {
		t.Fatalf("list order wrong: got %d,%d,%d", recs[0].ID, recs[1].ID, recs[2].ID)
	}

	corp, err := s.List(models.TypeCorporate, models.StateActive)
	if err != nil {
		t.Fatalf("list corporate: %v", err)
	}
	if len(corp) != 1 || corp[0].ID != other.ID {
		t.Fatalf("corporate filter wrong: %+v", corp)
	}

	// recycled records leave the active view and appear in the recycled one
	if err := s.UpdateState(middle.ID, models.StateRecycled, time.Now()); err != nil {
		t.Fatalf("recycle: %v", err)
	}
	active, _ := s.List(models.TypeSelfPaid, models.StateActive)
	recycled, _ := s.List(models.TypeSelfPaid, models.StateRecycled)
	if len(active) != 2 || len(recycled) != 1 || recycled[0].ID != middle.ID {
		t.Fatalf("view split wrong: active=%d recycled=%d", len(active), len(recycled))
	}
}

func TestUpdateStateMonotonic(t *testing.T) {
	s := newTestStore(t)
	rec := mustInsert(t, s, &models.InvoiceRecord{})
	at := time.Now()

	if err := s.UpdateState(rec.ID, models.StateRecycled, at); err != nil {
		t.Fatalf("active->recycled: %v", err)
	}
	got, _ := s.Get(rec.ID)
	if got.State != models.StateRecycled || got.RecycledAt == nil {
		t.Fatalf("recycled_at must be set on recycle: %+v", got)
	}

	if err := s.UpdateState(rec.ID, models.StateActive, at); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("recycled->active: got %v want ErrInvalidTransition", err)
	}
	if err := s.UpdateState(rec.ID, models.StateRecycled, at); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("recycled->recycled: got %v want ErrInvalidTransition", err)
	}

	if err := s.UpdateState(rec.ID, models.StatePurged, at); err != nil {
		t.Fatalf("recycled->purged: %v", err)
	}
	for _, back := range []models.State{models.StateActive, models.StateRecycled, models.StatePurged} {
		if err := s.UpdateState(rec.ID, back, at); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("purged->%s: got %v want ErrInvalidTransition", back, err)
		}
	}
}

func TestUpdateStateDirectPurgeStampsRecycledAt(t *testing.T) {
	s := newTestStore(t)
	rec := mustInsert(t, s, &models.InvoiceRecord{})
	at := time.Now()

	if err := s.UpdateState(rec.ID, models.StatePurged, at); err != nil {
		t.Fatalf("active->purged: %v", err)
	}
	got, err := s.Get(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != models.StatePurged || got.RecycledAt == nil {
		t.Fatalf("purged record must carry recycled_at: %+v", got)
	}
}

func TestListRecycledBefore(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	old := mustInsert(t, s, &models.InvoiceRecord{})
	fresh := mustInsert(t, s, &models.InvoiceRecord{})
	mustInsert(t, s, &models.InvoiceRecord{}) // stays active

	if err := s.UpdateState(old.ID, models.StateRecycled, now.Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateState(fresh.ID, models.StateRecycled, now); err != nil {
		t.Fatal(err)
	}

	recs, err := s.ListRecycledBefore(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("list recycled before: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != old.ID {
		t.Fatalf("cutoff filter wrong: %+v", recs)
	}

	// bin listing orders by deletion time, newest first
	bin, err := s.ListRecycleBin(models.TypeSelfPaid)
	if err != nil {
		t.Fatalf("list recycle bin: %v", err)
	}
	if len(bin) != 2 || bin[0].ID != fresh.ID || bin[1].ID != old.ID {
		t.Fatalf("recycle bin order wrong: %+v", bin)
	}
}

func TestDeleteStorage(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(s.BaseDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	pdf := filepath.Join(s.BaseDir(), "a.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := mustInsert(t, s, &models.InvoiceRecord{PdfPath: "a.pdf"})

	// only purged records may be reclaimed
	if err := s.DeleteStorage(rec.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("delete storage of active record: got %v want ErrInvalidTransition", err)
	}

	now := time.Now()
	if err := s.UpdateState(rec.ID, models.StateRecycled, now); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateState(rec.ID, models.StatePurged, now); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteStorage(rec.ID); err != nil {
		t.Fatalf("delete storage: %v", err)
	}

	if _, err := os.Stat(pdf); !os.IsNotExist(err) {
		t.Fatalf("pdf binary not reclaimed: %v", err)
	}
	if _, err := s.Get(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("row not reclaimed: %v", err)
	}
}
