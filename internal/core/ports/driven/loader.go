package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// Loader extracts text from a file of one document type.
type Loader interface {
	// Type returns the document type this loader handles.
	Type() domain.DocType

	// Load reads the file at path.
	Load(ctx context.Context, path string) (*domain.LoadedDocument, error)
}

// LoaderRegistry dispatches to the loader registered for a file's type.
type LoaderRegistry interface {
	// Load extracts text from path using the loader for its extension.
	// Returns domain.ErrUnsupportedType when no loader matches.
	Load(ctx context.Context, path string) (*domain.LoadedDocument, error)

	// Register adds a loader, replacing any loader for the same type.
	Register(loader Loader)

	// Supports reports whether path has a registered loader.
	Supports(path string) bool
}

// CommandRunner executes an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
