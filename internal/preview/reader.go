// Package preview inspects rendered invoice documents with MuPDF.
package preview

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// DefaultDPI is the resolution of page previews
const DefaultDPI = 96.0

// Summary describes a rendered document
type Summary struct {
	Pages []PageText
}

// PageText is the extracted text of one page
type PageText struct {
	Number int
	Text   string
}

// PageCount returns the number of pages
func (s *Summary) PageCount() int {
	return len(s.Pages)
}

// Reader opens PDF documents from memory
type Reader struct {
	dpi    float64
	logger *zap.Logger
}

// NewReader creates a reader producing previews at dpi (DefaultDPI when zero)
func NewReader(dpi float64, logger *zap.Logger) *Reader {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Reader{dpi: dpi, logger: logger}
}

// Inspect extracts the text of every page
func (r *Reader) Inspect(content []byte) (*Summary, error) {
	doc, err := open(content)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	summary := &Summary{}
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text of page %d: %w", n+1, err)
		}
		summary.Pages = append(summary.Pages, PageText{Number: n + 1, Text: strings.TrimSpace(text)})
	}

	r.logger.Debug("Document inspected", zap.Int("pages", summary.PageCount()))
	return summary, nil
}

// PagePNG renders one page (1-based) as a PNG image
func (r *Reader) PagePNG(content []byte, page int) ([]byte, error) {
	doc, err := open(content)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range 1-%d", page, doc.NumPage())
	}

	img, err := doc.ImageDPI(page-1, r.dpi)
	if err != nil {
		r.logger.Warn("Failed to rasterize page", zap.Int("page", page), zap.Error(err))
		return nil, fmt.Errorf("failed to rasterize page %d: %w", page, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}

func open(content []byte) (*fitz.Document, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return doc, nil
}
