package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		gdelt: {project_id: "my-project", data_limit_gb: 2.5},
		noaa: {token: "file-token"},
		wikipedia: {lang: "de"},
	}`), 0600))

	cfg, err := loadConfig(path, env(map[string]string{
		"NOAA_TOKEN":     "env-token",
		"X_BEARER_TOKEN": "bearer",
	}))
	require.NoError(t, err)

	require.Equal(t, "my-project", cfg.GDELT.ProjectID)
	require.Equal(t, 2.5, cfg.GDELT.DataLimitGB)
	require.Equal(t, "env-token", cfg.NOAA.Token)
	require.Equal(t, "bearer", cfg.X.BearerToken)
	require.Equal(t, "de", cfg.Wikipedia.Lang)
	require.Equal(t, 50, cfg.Wikipedia.MinWaitMs)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.json5"), env(nil))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnvKeepsFileValues(t *testing.T) {
	cfg := applyEnv(Config{NOAA: NOAAConfig{Token: "file-token"}}, env(map[string]string{
		"GOOGLE_APPLICATION_CREDENTIALS": "/secrets/key.json",
	}))
	require.Equal(t, "file-token", cfg.NOAA.Token)
	require.Equal(t, "/secrets/key.json", cfg.GDELT.CredentialsPath)
}
