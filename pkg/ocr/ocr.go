package ocr

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// Region is one recognized text fragment with its approximate position on the
// page. Regions arrive in reading order from the engine.
type Region struct {
	Text string
	Left int
	Top  int
}

// Engine recognizes text regions on a rasterized invoice page. Implementations
// may block while inference runs; callers bound them with RecognizeWithTimeout.
type Engine interface {
	Recognize(imagePath string) ([]Region, error)
}

// Client is the Tesseract-backed Engine used in production. Chinese invoices
// need the chi_sim traineddata next to eng for the label tokens.
type Client struct {
	Languages []string
}

// NewClient returns a Client configured for simplified Chinese + English.
func NewClient() *Client {
	return &Client{Languages: []string{"chi_sim", "eng"}}
}

// Recognize runs one preprocessed Tesseract pass and returns the word-level
// bounding boxes as regions. An image with no recognizable text yields an
// empty slice, not an error.
func (c *Client) Recognize(imagePath string) ([]Region, error) {
	tmp, cleanup, err := preprocessForOCR(imagePath)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	defer cleanup()

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage(c.Languages...)
	if err := client.SetImage(tmp); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("ocr error: %w", err)
	}
	regions := make([]Region, 0, len(boxes))
	for _, b := range boxes {
		if b.Word == "" {
			continue
		}
		regions = append(regions, Region{Text: b.Word, Left: b.Box.Min.X, Top: b.Box.Min.Y})
	}
	return regions, nil
}

// RecognizeWithTimeout runs the engine with a wall-clock bound. On timeout it
// returns an empty region list so the upload degrades to an all-null
// extraction instead of failing; the orphaned goroutine finishes on its own.
func RecognizeWithTimeout(eng Engine, imagePath string, timeout time.Duration) []Region {
	type result struct {
		regions []Region
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		regions, err := eng.Recognize(imagePath)
		ch <- result{regions, err}
	}()
	select {
	case res := <-ch:
		if res.err != nil {
			log.Printf("ocr recognize failed for %s: %v", imagePath, res.err)
			return nil
		}
		return res.regions
	case <-time.After(timeout):
		log.Printf("ocr recognize timed out after %s for %s", timeout, imagePath)
		return nil
	}
}

// removeQuiet deletes a temp artifact, ignoring errors.
func removeQuiet(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
