// Package plaintext loads UTF-8 text files.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// PageBreak separates pages in text extracted from paginated sources.
const PageBreak = "\f"

const bom = "\uFEFF"

// Loader reads .txt files. Form feeds split the text into pages.
type Loader struct{}

// New creates a new plaintext loader.
func New() *Loader {
	return &Loader{}
}

// Type returns the document type this loader handles.
func (l *Loader) Type() domain.DocType {
	return domain.DocTypeText
}

// Load reads the file at path.
func (l *Loader) Load(ctx context.Context, path string) (*domain.LoadedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text := Decode(data)
	doc := &domain.LoadedDocument{
		Path: path,
		Type: domain.DocTypeText,
		Text: text,
	}
	if strings.Contains(text, PageBreak) {
		doc.Pages = SplitPages(text)
	}
	return doc, nil
}

// Decode converts file bytes to text, dropping a byte order mark and any
// invalid UTF-8 sequences.
func Decode(data []byte) string {
	text := strings.ToValidUTF8(string(data), "")
	return strings.TrimPrefix(text, bom)
}

// SplitPages splits text on form feeds into 1-based pages.
// Blank pages keep their number but are omitted.
func SplitPages(text string) []domain.Page {
	parts := strings.Split(text, PageBreak)
	pages := make([]domain.Page, 0, len(parts))
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: part})
	}
	return pages
}
