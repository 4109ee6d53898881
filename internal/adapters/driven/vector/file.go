package vector

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/recall/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/recall/internal/logger"
)

// indexFile caches the decoded contents of one index file.
type indexFile struct {
	path string

	mu      sync.Mutex
	idx     *flat.Index
	size    int64
	modTime time.Time
	loaded  bool
}

func newIndexFile(path string) *indexFile {
	return &indexFile{path: path}
}

// current returns the index on disk, or nil if the file does not exist.
// The cached copy is reused while the file's size and mtime are unchanged.
func (f *indexFile) current() (*flat.Index, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.idx, f.loaded = nil, true
		f.size, f.modTime = 0, time.Time{}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", f.path, err)
	}

	if f.loaded && f.idx != nil && info.Size() == f.size && info.ModTime().Equal(f.modTime) {
		return f.idx, nil
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.path, err)
	}
	defer file.Close()

	idx, err := flat.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filepath.Base(f.path), err)
	}

	logger.Debug("loaded %s: %d vectors, dimension %d", filepath.Base(f.path), idx.Len(), idx.Dimension())
	f.idx, f.loaded = idx, true
	f.size, f.modTime = info.Size(), info.ModTime()
	return idx, nil
}

// replace atomically writes idx to disk and caches it.
func (f *indexFile) replace(idx *flat.Index) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := writeAtomic(f.path, idx); err != nil {
		return err
	}

	info, err := os.Stat(f.path)
	if err != nil {
		// The new file is in place; force a reload on next access.
		f.loaded = false
		return nil
	}
	f.idx, f.loaded = idx, true
	f.size, f.modTime = info.Size(), info.ModTime()
	return nil
}

// writeAtomic writes idx to a temporary sibling of path, syncs it and
// renames it over path. On failure path is left untouched.
func writeAtomic(path string, idx *flat.Index) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	if _, err = idx.WriteTo(w); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}

	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry of a rename. Not every platform
// supports it, so failures are only logged.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		logger.Debug("fsync %s: %v", dir, err)
	}
}
