package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
	assert.Equal(t, "memory", cfg.Index.Type)
	assert.Equal(t, 500, cfg.Chunker.MaxChunkWords)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, 5, cfg.Compare.MaxDocuments)
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("ollama:\n  model: mistral\nindex:\n  type: chroma\n  chroma:\n    url: http://chroma:9000\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Ollama.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "chroma", cfg.Index.Type)
	require.NotNil(t, cfg.Index.Chroma)
	assert.Equal(t, "http://chroma:9000", cfg.Index.Chroma.URL)
	assert.Equal(t, 30, cfg.Index.Chroma.TimeoutSecs)
	assert.Equal(t, 100, cfg.Index.BatchSize)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Server.Addr = ":9090"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", loaded.Server.Addr)
	assert.Equal(t, cfg.Retrieval.TopK, loaded.Retrieval.TopK)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
