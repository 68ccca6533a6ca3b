// Package inbox ingests invoice PDFs dropped into a watched directory, so
// bulk scans can bypass the upload form. Processed files are moved aside so
// they are ingested only once.
package inbox

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"fapiaobox/models"
	"fapiaobox/pkg/ingest"
)

// Defaults are applied to every record ingested from the inbox; the drop
// folder carries no per-file metadata.
type Defaults struct {
	Type      string
	Purchaser string
}

func (d Defaults) invoiceType() models.InvoiceType {
	t := models.InvoiceType(d.Type)
	if !models.ValidType(t) {
		return models.TypeSelfPaid
	}
	return t
}

func (d Defaults) purchaser() string {
	if strings.TrimSpace(d.Purchaser) == "" {
		return "inbox"
	}
	return d.Purchaser
}

// Watch ingests PDFs already in dir, then watches for new ones until ctx is
// cancelled. Create events are debounced so half-written files are not read.
func Watch(ctx context.Context, dir string, svc *ingest.Service, defaults Defaults) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("inbox dir: %w", err)
	}
	for _, name := range listPDFs(dir) {
		processOne(dir, name, svc, defaults)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("watching inbox %s (debounced) ...", dir)

	// simple debounce map of pending files
	pending := map[string]time.Time{}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == fsnotify.Create || ev.Op&fsnotify.Write == fsnotify.Write {
				name := filepath.Base(ev.Name)
				if !isPDF(name) {
					continue
				}
				pending[name] = time.Now()
			}
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) > 500*time.Millisecond { // stable
					delete(pending, name)
					processOne(dir, name, svc, defaults)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("inbox watch error: %v", err)
		}
	}
}

func processOne(dir, name string, svc *ingest.Service, defaults Defaults) {
	full := filepath.Join(dir, name)
	f, err := os.Open(full)
	if err != nil {
		log.Printf("inbox open %s: %v", name, err)
		return
	}
	rec, err := svc.IngestPDF(f, name, defaults.invoiceType(), defaults.purchaser())
	_ = f.Close()
	if err != nil {
		log.Printf("inbox ingest %s: %v", name, err)
		return
	}
	log.Printf("inbox ingested %s as record %d", name, rec.ID)
	if err := moveToProcessed(dir, name); err != nil {
		log.Printf("WARN failed to move processed inbox file %s: %v", name, err)
	}
}

func listPDFs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isPDF(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// moveToProcessed moves an ingested file into <dir>/processed/<name>. It
// attempts an atomic rename and falls back to copy+remove.
func moveToProcessed(dir, name string) error {
	processedDir := filepath.Join(dir, "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	src := filepath.Join(dir, name)
	dst := filepath.Join(processedDir, name)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	return os.Remove(src)
}
