// Package pdfdoc opens uploaded PDFs and exposes per-page text and images.
package pdfdoc

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ContentType is the only accepted upload type.
const ContentType = "application/pdf"

// DefaultDPI is the rasterization resolution for page images.
const DefaultDPI = 150.0

// Document gives 1-based access to pages.
type Document interface {
	NumPages() int
	PageText(page int) (string, error)
	PageImage(page int, dpi float64) ([]byte, error)
	Close() error
}

// Opener turns raw bytes into a Document.
type Opener interface {
	Open(data []byte) (Document, error)
}

// FitzOpener opens documents with MuPDF.
type FitzOpener struct{}

func (FitzOpener) Open(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

// fitzDocument serializes access; MuPDF contexts are not shareable across goroutines.
type fitzDocument struct {
	mu  sync.Mutex
	doc *fitz.Document
}

func (d *fitzDocument) NumPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

func (d *fitzDocument) PageText(page int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	text, err := d.doc.Text(page - 1)
	if err != nil {
		return "", fmt.Errorf("failed to extract text of page %d: %w", page, err)
	}
	return text, nil
}

func (d *fitzDocument) PageImage(page int, dpi float64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	png, err := d.doc.ImagePNG(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	return png, nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}

// Validate runs a relaxed structural validation and returns the page count.
func Validate(data []byte) (int, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), cfg); err != nil {
		return 0, fmt.Errorf("failed to validate PDF: %w", err)
	}
	pageCount, err := api.PageCount(bytes.NewReader(data), cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return pageCount, nil
}

// LooksLikePDF checks the file header.
func LooksLikePDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n "), []byte("%PDF-"))
}
