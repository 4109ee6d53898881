// Package vector implements driven.VectorIndexManager over two flat index
// files in one directory:
//
//	base.idx   snapshot of every active chunk at the last compaction
//	delta.idx  vectors appended since then
//
// Every write goes to a temporary file in the same directory, is synced,
// and is then renamed over the target, so readers see either the old file
// or the new one in full. Indices are cached in memory and reloaded when
// the file on disk changes.
package vector
