// Package pdfrender rasterizes the first page of a PDF bill.
package pdfrender

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is the resolution used for bill previews.
const DefaultDPI = 200

// ErrUnrenderable is returned when a PDF has no page that can be rasterized.
var ErrUnrenderable = errors.New("unable to render first page of PDF")

// Renderer turns a PDF document into a PNG of its first page.
type Renderer interface {
	FirstPagePNG(pdf []byte) ([]byte, error)
}

// FitzRenderer renders pages with MuPDF.
type FitzRenderer struct {
	DPI float64
}

// NewFitzRenderer returns a renderer at DefaultDPI.
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{DPI: DefaultDPI}
}

// FirstPagePNG renders page one. Empty, corrupt and zero-page documents all
// fail with ErrUnrenderable; the raw PDF is never returned as a fallback.
func (r *FitzRenderer) FirstPagePNG(pdf []byte) ([]byte, error) {
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrUnrenderable)
	}

	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnrenderable, err)
	}
	defer func() { _ = doc.Close() }()

	if doc.NumPage() < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrUnrenderable)
	}

	dpi := r.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	img, err := doc.ImageDPI(0, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnrenderable, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page image: %w", err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnrenderable)
	}
	return buf.Bytes(), nil
}
