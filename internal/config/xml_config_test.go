package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ktechlab-docs.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data", "store"), cfg.Storage.DocumentsDirectory)
	assert.Equal(t, filepath.Join(dir, "data", "catalog.duckdb"), cfg.Storage.CatalogPath)
	assert.Empty(t, cfg.Storage.LibraryPath)
	assert.Equal(t, filepath.Join(dir, "data", "files"), cfg.Transfer.Root)
	assert.Empty(t, cfg.RemoteHosts(), "remote locations are off by default")
	assert.Equal(t, int64(32<<20), cfg.TransferLimit())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "<KTechlabDocs>")
	assert.Contains(t, string(content), "<HistoryDepth>50</HistoryDepth>")
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ktechlab-docs.config")
	require.NoError(t, os.WriteFile(path, []byte(`<KTechlabDocs>
  <Server><Port>9000</Port></Server>
  <Storage><DocumentsDirectory>/srv/docs</DocumentsDirectory><LibraryPath>parts.yaml</LibraryPath></Storage>
  <Sessions><SessionTimeoutMinutes>10</SessionTimeoutMinutes></Sessions>
</KTechlabDocs>`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/srv/docs", cfg.Storage.DocumentsDirectory)
	assert.Equal(t, filepath.Join(dir, "parts.yaml"), cfg.Storage.LibraryPath)
	assert.Equal(t, 10*time.Minute, cfg.SessionTimeout())
	// Absent elements keep their defaults.
	assert.Equal(t, 50, cfg.Sessions.HistoryDepth)
	assert.Equal(t, "info", cfg.Advanced.LogLevel)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ktechlab-docs.config")
	require.NoError(t, os.WriteFile(path, []byte("<KTechlabDocs><Server>"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("PORT", "7000")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "ktechlab-docs.config"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
	assert.Equal(t, filepath.Join(dataDir, "store"), cfg.Storage.DocumentsDirectory)
	assert.Equal(t, "127.0.0.1:7000", cfg.GetServerAddr())
	assert.Equal(t, filepath.Join(dataDir, "files"), cfg.Transfer.Root)
}

func TestEnsureDirectories(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "ktechlab-docs.config"))
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Storage.DocumentsDirectory)
	assert.DirExists(t, cfg.Storage.TempDirectory)
	assert.DirExists(t, cfg.Transfer.Root)
	assert.Equal(t, 60*time.Second, cfg.RemoteTimeout())
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval())
}

func TestTransferSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ktechlab-docs.config")
	require.NoError(t, os.WriteFile(path, []byte(`<KTechlabDocs>
  <Server><BodyLimit>2M</BodyLimit></Server>
  <Transfer><Root>shared</Root><AllowedHosts> parts.example.org, mirror.example.org:8443 ,</AllowedHosts></Transfer>
</KTechlabDocs>`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shared"), cfg.Transfer.Root)
	assert.Equal(t, []string{"parts.example.org", "mirror.example.org:8443"}, cfg.RemoteHosts())
	assert.Equal(t, int64(2<<20), cfg.TransferLimit())

	cfg.Server.BodyLimit = "lots"
	assert.Equal(t, int64(32<<20), cfg.TransferLimit())
}
