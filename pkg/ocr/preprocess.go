package ocr

import (
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
)

// preprocessForOCR prepares a rasterized page for Tesseract: grayscale, mild
// contrast/sharpen, upscale short pages, global threshold. Returns the path of
// the temp image and a cleanup func. On any failure it falls back to the
// original path so OCR still gets a chance.
func preprocessForOCR(path string) (string, func(), error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", func() {}, err
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < 1200 {
		gray = imaging.Resize(gray, 0, 1600, imaging.Lanczos)
	}
	bin := binarize(gray, 200)

	tmpFile, err := os.CreateTemp("", "invoice-ocr-*.png")
	if err != nil {
		return path, func() {}, nil
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()
	if err := imaging.Save(bin, tmp); err != nil {
		removeQuiet(tmp)
		return path, func() {}, nil
	}
	return tmp, func() { removeQuiet(tmp) }, nil
}

// binarize performs a simple global threshold on a grayscale image.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			gray := uint8((r + g + bb) / 3 >> 8)
			var v uint8 = 255
			if gray <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
