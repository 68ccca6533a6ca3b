package ingest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fapiaobox/models"
	"fapiaobox/pkg/extract"
	"fapiaobox/pkg/ocr"
	"fapiaobox/pkg/store"
)

// Rasterizer renders page 1 of a PDF to a temp image for the OCR engine.
type Rasterizer func(pdfPath string) (string, error)

// DefaultOCRTimeout bounds a single OCR pass. Expiry degrades the upload to
// an all-null extraction; it never fails the record.
const DefaultOCRTimeout = 60 * time.Second

// Service turns an uploaded PDF into a stored active invoice record: save the
// binary, rasterize, recognize, extract, insert. A slow or failed OCR pass
// blocks only its own upload.
type Service struct {
	Store      *store.Store
	Engine     ocr.Engine
	Rasterize  Rasterizer
	OCRTimeout time.Duration
}

func NewService(st *store.Store, engine ocr.Engine) *Service {
	return &Service{
		Store:      st,
		Engine:     engine,
		Rasterize:  ocr.RasterizeFirstPage,
		OCRTimeout: DefaultOCRTimeout,
	}
}

// IngestPDF stores the PDF under the side-store and creates the record.
// Extraction is best effort: whatever OCR misses stays empty for later manual
// correction, and the record is created regardless.
func (s *Service) IngestPDF(src io.Reader, originalName string, t models.InvoiceType, purchaser string) (*models.InvoiceRecord, error) {
	if !models.ValidType(t) {
		return nil, fmt.Errorf("unknown invoice type %q", t)
	}
	if strings.TrimSpace(purchaser) == "" {
		return nil, fmt.Errorf("purchaser name required")
	}

	relPath, err := s.saveUnique(src, storedName(originalName))
	if err != nil {
		return nil, err
	}
	fullPath := filepath.Join(s.Store.BaseDir(), relPath)

	regions := s.recognize(fullPath)
	fields := extract.Extract(regions)

	rec := &models.InvoiceRecord{
		InvoiceType:   t,
		PurchaserName: strings.TrimSpace(purchaser),
		InvoiceNumber: fields.InvoiceNumber,
		IssueDate:     fields.IssueDate,
		TotalAmount:   fields.TotalAmount,
		Content:       fields.Content,
		SellerName:    fields.SellerName,
		BankName:      fields.BankName,
		BankAccount:   fields.BankAccount,
		PdfPath:       relPath,
	}
	if err := s.Store.Insert(rec); err != nil {
		_ = os.Remove(fullPath)
		return nil, err
	}
	return rec, nil
}

// recognize rasterizes and OCRs the stored PDF, degrading to no regions on
// any failure so the caller still gets a storable (all-null) extraction.
func (s *Service) recognize(pdfPath string) []ocr.Region {
	pagePath, err := s.Rasterize(pdfPath)
	if err != nil {
		log.Printf("rasterize failed for %s, storing with empty extraction: %v", pdfPath, err)
		return nil
	}
	defer os.Remove(pagePath)
	timeout := s.OCRTimeout
	if timeout <= 0 {
		timeout = DefaultOCRTimeout
	}
	return ocr.RecognizeWithTimeout(s.Engine, pagePath, timeout)
}

// saveUnique writes the PDF under relPath, appending a numeric suffix when the
// name is taken. Each stored binary is owned by exactly one record, so an
// existing file must never be truncated (two same-second uploads of one source
// file share the timestamp prefix).
func (s *Service) saveUnique(src io.Reader, relPath string) (string, error) {
	base := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	ext := filepath.Ext(relPath)
	for i := 0; i < 1000; i++ {
		name := relPath
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", base, i, ext)
		}
		err := savePDF(src, filepath.Join(s.Store.BaseDir(), name))
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free pdf name for %s", relPath)
}

func savePDF(src io.Reader, fullPath string) error {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("mkdir pdf store: %w", err)
	}
	out, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create pdf file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(fullPath)
		return fmt.Errorf("write pdf file: %w", err)
	}
	return out.Close()
}

// storedName builds a timestamp-prefixed sanitized filename for the
// side-store; saveUnique resolves any remaining collision.
func storedName(originalName string) string {
	base := filepath.Base(originalName)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if !strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base += ".pdf"
	}
	return time.Now().Format("20060102150405") + "_" + base
}
