package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestConfigStore_PersistsAsTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("embedding.dimensions", 768))
	require.NoError(t, store.Set("compact.purge_metadata", true))
	require.NoError(t, store.Set("chunk.size", 512))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[embedding]")
	assert.Regexp(t, `provider = ['"]ollama['"]`, content)
	assert.Contains(t, content, "[compact]")

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "ollama", reloaded.GetString("embedding.provider"))
	assert.Equal(t, 768, reloaded.GetInt("embedding.dimensions"))
	assert.True(t, reloaded.GetBool("compact.purge_metadata"))
	assert.Equal(t, 512, reloaded.GetInt("chunk.size"))
	assert.Equal(t, []string{"chunk.size", "compact.purge_metadata", "embedding.dimensions", "embedding.provider"},
		reloaded.Keys())
}

func TestConfigStore_LoadHandWritten(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[chunk]
size = 1200
overlap = 100

[search]
top_k = 8

[embedding]
provider = "openai"
model = "text-embedding-3-large"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0o600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 1200, store.GetInt("chunk.size"))
	assert.Equal(t, 100, store.GetInt("chunk.overlap"))
	assert.Equal(t, 8, store.GetInt("search.top_k"))
	assert.Equal(t, "openai", store.GetString("embedding.provider"))
	assert.Equal(t, "text-embedding-3-large", store.GetString("embedding.model"))
}

func TestConfigStore_TypeMismatches(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("k", "text"))

	assert.Equal(t, 0, store.GetInt("k"))
	assert.False(t, store.GetBool("k"))
	assert.Equal(t, "", store.GetString("missing"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[broken"), 0o600))

	_, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
}

func TestConfigStore_InvalidKey(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Set("", 1))
	assert.Error(t, store.Set(".a", 1))
	assert.Error(t, store.Set("a.", 1))
}

func TestUnflattenMap(t *testing.T) {
	tree, err := unflattenMap(map[string]any{"a.b.c": 1, "a.d": "x", "e": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 1}, "d": "x"},
		"e": true,
	}, tree)
	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flattenMap(tree, ""))

	_, err = unflattenMap(map[string]any{"a": 1, "a.b": 2})
	assert.Error(t, err)
}
