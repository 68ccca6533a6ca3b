package lifecycle

import (
	"errors"
	"log"
	"time"

	"fapiaobox/models"
	"fapiaobox/pkg/store"
)

// DefaultRetention is how long a recycled record is kept before the sweep
// purges it. Retention is calendar-based, so the manager is driven by a
// real-time clock.
const DefaultRetention = 30 * 24 * time.Hour

// Manager owns the invoice lifecycle: active -> recycled on user delete,
// recycled -> purged on expiry or explicit purge. The clock is injectable so
// retention logic is testable without wall-clock waiting.
type Manager struct {
	store     *store.Store
	retention time.Duration
	now       func() time.Time
}

// NewManager builds a Manager around st. A nil clock means time.Now.
func NewManager(st *store.Store, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: st, retention: DefaultRetention, now: now}
}

// SetRetention overrides the purge window (tests and ops tuning).
func (m *Manager) SetRetention(d time.Duration) { m.retention = d }

// SoftDeleteOne moves one record from active to recycled. Records already
// recycled or purged are skipped, not errors — re-deleting is a no-op.
// Returns whether the record actually transitioned.
func (m *Manager) SoftDeleteOne(id uint) (bool, error) {
	err := m.store.UpdateState(id, models.StateRecycled, m.now())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrInvalidTransition) {
		return false, nil
	}
	return false, err
}

// SoftDelete applies SoftDeleteOne over an id set and returns the count that
// actually transitioned. Missing ids are skipped.
func (m *Manager) SoftDelete(ids []uint) (int, error) {
	n := 0
	for _, id := range ids {
		ok, err := m.SoftDeleteOne(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// PurgeOne permanently removes one recycled record: transition to purged,
// then reclaim the row and PDF binary. Records not currently recycled are
// skipped.
func (m *Manager) PurgeOne(id uint) (bool, error) {
	rec, err := m.store.Get(id)
	if err != nil {
		return false, err
	}
	if rec.State != models.StateRecycled {
		return false, nil
	}
	if err := m.store.UpdateState(id, models.StatePurged, m.now()); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			// lost the race to a concurrent purge/sweep
			return false, nil
		}
		return false, err
	}
	if err := m.store.DeleteStorage(id); err != nil {
		return false, err
	}
	return true, nil
}

// SweepExpired purges every recycled record whose retention window has
// elapsed at now. It works record by record and never aborts the pass on a
// single failure: a record that cannot be purged is logged and retried on the
// next scheduled run. Returns the number purged.
func (m *Manager) SweepExpired(now time.Time) (int, error) {
	cutoff := now.Add(-m.retention)
	recs, err := m.store.ListRecycledBefore(cutoff)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, rec := range recs {
		if rec.RecycledAt == nil {
			// should not happen per the state invariant; skip rather than crash
			log.Printf("sweep: record %d recycled without recycled_at, skipping", rec.ID)
			continue
		}
		if err := m.store.UpdateState(rec.ID, models.StatePurged, now); err != nil {
			if errors.Is(err, store.ErrInvalidTransition) || errors.Is(err, store.ErrNotFound) {
				continue // already purged concurrently
			}
			log.Printf("sweep: purge transition failed for record %d: %v", rec.ID, err)
			continue
		}
		if err := m.store.DeleteStorage(rec.ID); err != nil {
			log.Printf("sweep: storage reclaim failed for record %d: %v", rec.ID, err)
			continue
		}
		purged++
	}
	return purged, nil
}
