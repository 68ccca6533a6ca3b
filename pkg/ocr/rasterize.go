package ocr

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

// RasterizeFirstPage renders page 1 of a PDF to a temp PNG for the OCR engine.
// Invoice PDFs are single-page in practice; later pages carry no fields we
// extract. Caller removes the returned file.
func RasterizeFirstPage(pdfPath string) (string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()
	if doc.NumPage() == 0 {
		return "", fmt.Errorf("pdf has no pages: %s", pdfPath)
	}
	img, err := doc.Image(0)
	if err != nil {
		return "", fmt.Errorf("render page 1: %w", err)
	}
	tmpFile, err := os.CreateTemp("", "invoice-page-*.png")
	if err != nil {
		return "", err
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()
	if err := imaging.Save(img, tmp); err != nil {
		removeQuiet(tmp)
		return "", fmt.Errorf("save page image: %w", err)
	}
	return tmp, nil
}
