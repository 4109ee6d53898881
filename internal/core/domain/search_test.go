package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIngestReport_Changed tests change detection on reports
func TestIngestReport_Changed(t *testing.T) {
	assert.False(t, (&IngestReport{Unchanged: 4, Scanned: 4}).Changed())
	assert.True(t, (&IngestReport{Added: 1}).Changed())
	assert.True(t, (&IngestReport{Updated: 1}).Changed())
	assert.True(t, (&IngestReport{Deleted: 1}).Changed())
}

// TestFileError tests per-file error formatting and unwrapping
func TestFileError(t *testing.T) {
	fe := FileError{Path: "/x/y.docx", Err: ErrUnsupportedType}

	assert.Equal(t, "/x/y.docx: unsupported type", fe.Error())
	assert.True(t, errors.Is(fe, ErrUnsupportedType))
}
