package pipeline

import (
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Extraction is the result of extracting text from a PDF.
type Extraction struct {
	Text      string
	Title     string
	PageCount int
}

// PDFExtractor extracts text from PDF documents
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract extracts the text of all pages of a PDF, joined by blank lines.
// The title is read from the document metadata and falls back to
// fallbackTitle when the metadata has none. A PDF that cannot be parsed or
// yields no text returns an empty Extraction without error, the caller
// decides how to handle documents without extractable text.
func (e *PDFExtractor) Extract(data []byte, fallbackTitle string) (*Extraction, error) {
	if len(data) == 0 {
		return &Extraction{Title: fallbackTitle}, nil
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return &Extraction{Title: fallbackTitle}, nil
	}
	defer doc.Close()

	var textParts []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err == nil && strings.TrimSpace(text) != "" {
			textParts = append(textParts, text)
		}
	}

	title := fallbackTitle
	if metaTitle := strings.TrimSpace(doc.Metadata()["title"]); metaTitle != "" {
		title = metaTitle
	}

	return &Extraction{
		Text:      strings.Join(textParts, "\n\n"),
		Title:     title,
		PageCount: doc.NumPage(),
	}, nil
}
