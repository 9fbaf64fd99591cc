// Package document loads the documents being compared and combines them
// into the single text the comparison pipeline consumes.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/domain"
)

// Document is the extracted text of one input file.
type Document struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Text  string `json:"text"`
	Pages int    `json:"pages"`
}

// Supported reports whether the file extension can be loaded.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".pdf":
		return true
	default:
		return false
	}
}

// Load reads a plain-text, markdown or PDF file.
func Load(path string) (*Document, error) {
	if !Supported(path) {
		return nil, domain.ValidationError(fmt.Sprintf("unsupported document type: %s", filepath.Ext(path)), nil)
	}

	var (
		doc *Document
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		doc, err = loadPDF(path)
	} else {
		doc, err = loadText(path)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil, domain.ValidationError(fmt.Sprintf("document %s contains no text", doc.Name), nil)
	}

	return doc, nil
}

func loadText(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError("Failed to read document", err)
	}

	return &Document{
		Name:  filepath.Base(path),
		Path:  path,
		Text:  normalizeNewlines(string(data)),
		Pages: 1,
	}, nil
}

func loadPDF(path string) (*Document, error) {
	pdf, err := fitz.New(path)
	if err != nil {
		return nil, domain.IOError("Failed to open PDF", err)
	}
	defer pdf.Close()

	pages := pdf.NumPage()
	texts := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		text, err := pdf.Text(i)
		if err != nil {
			return nil, domain.IOError(fmt.Sprintf("Failed to extract text from page %d", i+1), err)
		}
		if text = strings.TrimSpace(normalizeNewlines(text)); text != "" {
			texts = append(texts, text)
		}
	}

	return &Document{
		Name:  filepath.Base(path),
		Path:  path,
		Text:  strings.Join(texts, "\n\n"),
		Pages: pages,
	}, nil
}

// FromText wraps text that did not come from a file.
func FromText(name, text string) *Document {
	return &Document{Name: name, Text: normalizeNewlines(text), Pages: 1}
}

// Combine labels each document "Document n:" and joins them with blank
// lines so paragraph and section chunkers see the boundary.
func Combine(docs ...*Document) string {
	if len(docs) == 1 {
		return docs[0].Text
	}

	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Document %d: %s\n\n", i+1, d.Name)
		b.WriteString(strings.TrimSpace(d.Text))
	}
	return b.String()
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
