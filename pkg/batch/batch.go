package batch

import (
	"errors"
	"io"

	"fapiaobox/models"
	"fapiaobox/pkg/lifecycle"
	"fapiaobox/pkg/store"
)

// View is the caller's declared filter: batch operations only touch records
// that currently match it, preventing cross-type or cross-state mistakes
// (e.g. deleting a recycled record through the active-view delete action).
type View struct {
	Type  models.InvoiceType
	State models.State
}

// Outcome is the per-id result of a batch operation. Failures never abort
// the batch; successful ids stay committed.
type Outcome struct {
	ID     uint   `json:"id"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Coordinator validates and applies bulk operations over an explicit id set.
// There is no implicit "all records" mode: select-all is a client-side
// convenience over list().
type Coordinator struct {
	store   *store.Store
	manager *lifecycle.Manager
}

func NewCoordinator(st *store.Store, mgr *lifecycle.Manager) *Coordinator {
	return &Coordinator{store: st, manager: mgr}
}

// validate resolves one id against the declared view. A nil record with a
// reason means the id is reported failed and skipped.
func (c *Coordinator) validate(id uint, view View) (*models.InvoiceRecord, string) {
	rec, err := c.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "not found"
		}
		return nil, err.Error()
	}
	if rec.InvoiceType != view.Type || rec.State != view.State {
		return nil, "record does not match the requested view"
	}
	return rec, ""
}

// Delete soft-deletes every valid id, independently per record.
func (c *Coordinator) Delete(ids []uint, view View) []Outcome {
	out := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		if _, reason := c.validate(id, view); reason != "" {
			out = append(out, Outcome{ID: id, OK: false, Reason: reason})
			continue
		}
		if _, err := c.manager.SoftDeleteOne(id); err != nil {
			out = append(out, Outcome{ID: id, OK: false, Reason: err.Error()})
			continue
		}
		out = append(out, Outcome{ID: id, OK: true})
	}
	return out
}

// Purge permanently removes every valid id from the recycle bin view.
func (c *Coordinator) Purge(ids []uint, view View) []Outcome {
	out := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		if _, reason := c.validate(id, view); reason != "" {
			out = append(out, Outcome{ID: id, OK: false, Reason: reason})
			continue
		}
		if _, err := c.manager.PurgeOne(id); err != nil {
			out = append(out, Outcome{ID: id, OK: false, Reason: err.Error()})
			continue
		}
		out = append(out, Outcome{ID: id, OK: true})
	}
	return out
}

// Download writes a zip archive of the valid ids' PDF binaries to w. A
// missing binary fails only its own id; the archive still contains the rest.
func (c *Coordinator) Download(ids []uint, view View, w io.Writer) ([]Outcome, error) {
	bundle := newBundle(w)
	out := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		rec, reason := c.validate(id, view)
		if reason != "" {
			out = append(out, Outcome{ID: id, OK: false, Reason: reason})
			continue
		}
		src, err := c.store.PdfFile(rec)
		if err != nil {
			out = append(out, Outcome{ID: id, OK: false, Reason: "pdf binary missing"})
			continue
		}
		if err := bundle.add(entryName(rec), src); err != nil {
			out = append(out, Outcome{ID: id, OK: false, Reason: err.Error()})
			continue
		}
		out = append(out, Outcome{ID: id, OK: true})
	}
	if err := bundle.close(); err != nil {
		return out, err
	}
	return out, nil
}
