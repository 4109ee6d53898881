package loaders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

type fakeLoader struct {
	docType domain.DocType
	text    string
}

func (f *fakeLoader) Type() domain.DocType { return f.docType }

func (f *fakeLoader) Load(_ context.Context, path string) (*domain.LoadedDocument, error) {
	return &domain.LoadedDocument{Path: path, Type: f.docType, Text: f.text}, nil
}

func TestDefault_Supports(t *testing.T) {
	r := Default(nil)

	for _, path := range []string{"a.txt", "b.md", "c.MARKDOWN", "d.PDF"} {
		assert.True(t, r.Supports(path), path)
	}
	for _, path := range []string{"a.docx", "noext", "e.html"} {
		assert.False(t, r.Supports(path), path)
	}
	assert.Equal(t, []domain.DocType{"md", "pdf", "txt"}, r.Types())
}

func TestRegistry_LoadDispatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	doc, err := Default(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, domain.DocTypeText, doc.Type)
	assert.Equal(t, "hello", doc.Text)
}

func TestRegistry_Unsupported(t *testing.T) {
	_, err := Default(nil).Load(context.Background(), "slides.pptx")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = NewRegistry().Load(context.Background(), "notes.txt")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := Default(nil)
	r.Register(&fakeLoader{docType: domain.DocTypeMarkdown, text: "fake"})

	doc, err := r.Load(context.Background(), "whatever.md")
	require.NoError(t, err)
	assert.Equal(t, "fake", doc.Text)
}
