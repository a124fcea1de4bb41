package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	cfg := Default(dir)
	cfg.Accounts = []string{"12345678901", "98765432109"}
	cfg.LogLevel = "debug"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("accounts: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default("work")

	assert.Equal(t, filepath.Join("work", "statements"), cfg.BasePath)
	assert.Equal(t, filepath.Join("work", "tva_rules.json"), cfg.RulesFile)
	assert.Equal(t, filepath.Join("work", "reports.db"), cfg.ArchiveFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.Server.Addr)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(APIKeyEnv+"=from-dotenv\n"), 0o644))
	t.Setenv(APIKeyEnv, "placeholder") // register cleanup, then clear for the dotenv path
	os.Unsetenv(APIKeyEnv)

	assert.Equal(t, "from-dotenv", LoadEnv(dir))
}

func TestLoadEnv_MissingFile(t *testing.T) {
	t.Setenv(APIKeyEnv, "from-env")
	assert.Equal(t, "from-env", LoadEnv(t.TempDir()))
}
