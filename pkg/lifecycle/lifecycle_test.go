package lifecycle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"fapiaobox/models"
	"fapiaobox/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.InvoiceRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	base := filepath.Join(dir, "pdfs")
	if err := os.MkdirAll(base, 0o755); err != nil {
		t.Fatal(err)
	}
	return store.New(db, base)
}

func insertActive(t *testing.T, st *store.Store, pdfName string) *models.InvoiceRecord {
	t.Helper()
	if pdfName != "" {
		if err := os.WriteFile(filepath.Join(st.BaseDir(), pdfName), []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	rec := &models.InvoiceRecord{
		InvoiceType:   models.TypeSelfPaid,
		PurchaserName: "tester",
		PdfPath:       pdfName,
	}
	if err := st.Insert(rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return rec
}

func TestSoftDeleteIdempotent(t *testing.T) {
	st := newTestStore(t)
	mgr := NewManager(st, nil)
	rec := insertActive(t, st, "")

	ok, err := mgr.SoftDeleteOne(rec.ID)
	if err != nil || !ok {
		t.Fatalf("first soft delete: ok=%v err=%v", ok, err)
	}
	// re-deleting an already recycled record is a no-op, not an error
	ok, err = mgr.SoftDeleteOne(rec.ID)
	if err != nil || ok {
		t.Fatalf("second soft delete: ok=%v err=%v", ok, err)
	}

	got, err := st.Get(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != models.StateRecycled || got.RecycledAt == nil {
		t.Fatalf("record not recycled: %+v", got)
	}
}

func TestSoftDeleteCountsAndSkipsMissing(t *testing.T) {
	st := newTestStore(t)
	mgr := NewManager(st, nil)
	a := insertActive(t, st, "")
	b := insertActive(t, st, "")

	n, err := mgr.SoftDelete([]uint{a.ID, 9999, b.ID})
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted count: got %d want 2", n)
	}
}

func TestPurgeOneSkipsNonRecycled(t *testing.T) {
	st := newTestStore(t)
	mgr := NewManager(st, nil)
	rec := insertActive(t, st, "p.pdf")

	ok, err := mgr.PurgeOne(rec.ID)
	if err != nil || ok {
		t.Fatalf("purging an active record must be skipped: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(st.BaseDir(), "p.pdf")); err != nil {
		t.Fatalf("pdf must survive skipped purge: %v", err)
	}

	if _, err := mgr.SoftDeleteOne(rec.ID); err != nil {
		t.Fatal(err)
	}
	ok, err = mgr.PurgeOne(rec.ID)
	if err != nil || !ok {
		t.Fatalf("purge of recycled record: ok=%v err=%v", ok, err)
	}
	if _, err := st.Get(rec.ID); err == nil {
		t.Fatal("purged record still readable")
	}
	if _, err := os.Stat(filepath.Join(st.BaseDir(), "p.pdf")); !os.IsNotExist(err) {
		t.Fatalf("pdf binary not reclaimed: %v", err)
	}
}

func TestSweepRetentionBoundary(t *testing.T) {
	st := newTestStore(t)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewManager(st, func() time.Time { return t0 })

	rec := insertActive(t, st, "s.pdf")
	if _, err := mgr.SoftDeleteOne(rec.ID); err != nil {
		t.Fatal(err)
	}

	// 29 days in: still within retention
	n, err := mgr.SweepExpired(t0.Add(29 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("sweep purged %d records before retention elapsed", n)
	}
	if _, err := st.Get(rec.ID); err != nil {
		t.Fatalf("record must survive early sweep: %v", err)
	}

	// exactly 30 days: window elapsed
	n, err = mgr.SweepExpired(t0.Add(30 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("sweep purged %d records, want 1", n)
	}
	if _, err := st.Get(rec.ID); err == nil {
		t.Fatal("expired record still present after sweep")
	}
	if _, err := os.Stat(filepath.Join(st.BaseDir(), "s.pdf")); !os.IsNotExist(err) {
		t.Fatalf("pdf binary not reclaimed: %v", err)
	}
}

func TestSweepIgnoresActiveAndFresh(t *testing.T) {
	st := newTestStore(t)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewManager(st, func() time.Time { return t0 })

	insertActive(t, st, "")
	fresh := insertActive(t, st, "")
	if _, err := mgr.SoftDeleteOne(fresh.ID); err != nil {
		t.Fatal(err)
	}

	n, err := mgr.SweepExpired(t0.Add(24 * time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("sweep purged %d records, want 0", n)
	}
}

func TestSetRetention(t *testing.T) {
	st := newTestStore(t)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewManager(st, func() time.Time { return t0 })
	mgr.SetRetention(24 * time.Hour)

	rec := insertActive(t, st, "")
	if _, err := mgr.SoftDeleteOne(rec.ID); err != nil {
		t.Fatal(err)
	}
	n, err := mgr.SweepExpired(t0.Add(25 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("shortened retention not honored: purged %d", n)
	}
}
