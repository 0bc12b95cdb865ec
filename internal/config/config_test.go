package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8, cfg.Scan.Workers)
	assert.EqualValues(t, 1024*1024, cfg.Scan.MaxFileSize)
	assert.Equal(t, 10*time.Second, cfg.Scan.FileTimeout.Std())
	assert.Equal(t, 5*time.Minute, cfg.Scan.ScanTimeout.Std())
	assert.Equal(t, 70, cfg.Retrieval.SimilarityThreshold)
	assert.Equal(t, 2, cfg.Retrieval.MaxDepth)
	assert.Equal(t, 100, cfg.Retrieval.NodeCap)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scan:
  workers: 2
  file_timeout: 30s
  exclude:
    - "*_generated.py"
retrieval:
  node_cap: 40
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.Equal(t, 30*time.Second, cfg.Scan.FileTimeout.Std())
	assert.Equal(t, []string{"*_generated.py"}, cfg.Scan.ExcludeGlobs)
	assert.Equal(t, 40, cfg.Retrieval.NodeCap)

	// Untouched keys keep their defaults.
	assert.EqualValues(t, 1024*1024, cfg.Scan.MaxFileSize)
	assert.Equal(t, 70, cfg.Retrieval.SimilarityThreshold)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
