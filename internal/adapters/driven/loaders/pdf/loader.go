// Package pdf loads PDF files page by page.
//
// Text is extracted in-process with github.com/ledongthuc/pdf. When that
// fails or finds no text, pdftotext from poppler is tried if it is
// installed.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/recall/internal/adapters/driven/loaders/plaintext"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Command is the fallback extraction executable.
const Command = "pdftotext"

// ErrToolMissing indicates pdftotext is not installed.
var ErrToolMissing = errors.New("pdftotext not found")

// ErrNoText indicates a PDF parsed but none of its pages held text,
// e.g. a scanned document.
var ErrNoText = errors.New("no extractable text")

// Loader extracts per-page text from PDF files.
type Loader struct {
	runner driven.CommandRunner
}

// New creates a PDF loader. runner runs the pdftotext fallback; nil uses
// the real executable.
func New(runner driven.CommandRunner) *Loader {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Loader{runner: runner}
}

// Type returns the document type this loader handles.
func (l *Loader) Type() domain.DocType {
	return domain.DocTypePDF
}

// Load extracts the text of every page. Page numbers are 1-based and pages
// without text are omitted.
func (l *Loader) Load(ctx context.Context, path string) (*domain.LoadedDocument, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	pages, err := readPages(ctx, path)
	if err == nil && len(pages) > 0 {
		return newDocument(path, pages), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err == nil {
		err = ErrNoText
	}

	fallback, ferr := l.extract(ctx, path)
	switch {
	case ferr == nil:
		return fallback, nil
	case errors.Is(err, ErrNoText) && errors.Is(ferr, ErrToolMissing):
		// A parsed document without text is valid; it yields no chunks.
		return newDocument(path, nil), nil
	default:
		return nil, fmt.Errorf("extract %s: %w", path, errors.Join(err, ferr))
	}
}

// readPages parses the file in-process.
func readPages(ctx context.Context, path string) (pages []domain.Page, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		text = strings.TrimSpace(plaintext.Decode([]byte(text)))
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return pages, nil
}

// extract runs pdftotext. It ends each page with a form feed, so pages are
// recovered by splitting on it.
func (l *Loader) extract(ctx context.Context, path string) (*domain.LoadedDocument, error) {
	out, err := l.runner.Run(ctx, Command, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrToolMissing, InstallInstructions())
		}
		return nil, fmt.Errorf("%s: %w", Command, err)
	}

	text := plaintext.Decode(out)
	return &domain.LoadedDocument{
		Path:  path,
		Type:  domain.DocTypePDF,
		Text:  text,
		Pages: plaintext.SplitPages(text),
	}, nil
}

func newDocument(path string, pages []domain.Page) *domain.LoadedDocument {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return &domain.LoadedDocument{
		Path:  path,
		Type:  domain.DocTypePDF,
		Text:  strings.Join(texts, "\f"),
		Pages: pages,
	}
}

// InstallInstructions returns how to install the pdftotext fallback.
func InstallInstructions() string {
	return "install poppler for PDFs the built-in parser cannot read: " +
		"macOS: brew install poppler; " +
		"Debian/Ubuntu: apt install poppler-utils; " +
		"Fedora: dnf install poppler-utils"
}
