package batch

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"

	"fapiaobox/models"
)

// entryName names a zip entry by invoice number, falling back to the record
// id so every entry is guaranteed a filename.
func entryName(rec *models.InvoiceRecord) string {
	if rec.InvoiceNumber != "" {
		return rec.InvoiceNumber + ".pdf"
	}
	return fmt.Sprintf("invoice-%d.pdf", rec.ID)
}

// bundle streams PDF binaries into a zip archive, de-duplicating entry names
// (two records can share an OCR-extracted invoice number).
type bundle struct {
	zw   *zip.Writer
	used map[string]int
}

func newBundle(w io.Writer) *bundle {
	return &bundle{zw: zip.NewWriter(w), used: make(map[string]int)}
}

// uniqueName disambiguates repeated entry names: x.pdf, x (1).pdf, x (2).pdf.
func (b *bundle) uniqueName(name string) string {
	n := b.used[name]
	b.used[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s (%d).pdf", strings.TrimSuffix(name, ".pdf"), n)
}

func (b *bundle) add(name, srcPath string) error {
	name = b.uniqueName(name)
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	entry, err := b.zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry: %w", err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("write zip entry: %w", err)
	}
	return nil
}

func (b *bundle) close() error { return b.zw.Close() }
