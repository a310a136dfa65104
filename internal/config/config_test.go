package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "WikiArt5.pkl", cfg.ModelPath)
	require.Equal(t, "static/uploads", cfg.OutputDir)
	require.Equal(t, DefaultSecretKey, cfg.SecretKey)
	require.Equal(t, int64(16*1024*1024), cfg.MaxBodyBytes)
	require.Equal(t, "remote", cfg.Network.Backend)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, map[string]interface{}{"dir": "static/uploads"}, cfg.FileStore.Data)
	require.Equal(t, "0 * * * *", cfg.Retention.Spec)
	require.False(t, cfg.IsProduction())
	require.False(t, cfg.DefaultSecretOutsideDev())
}

func TestDefaultSecretOutsideDev(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")
	cfg, err := Load("")
	require.NoError(t, err)
	require.False(t, cfg.IsProduction())
	require.True(t, cfg.DefaultSecretOutsideDev())

	t.Setenv("ENVIRONMENT", "production")
	cfg, err = Load("")
	require.NoError(t, err)
	require.True(t, cfg.DefaultSecretOutsideDev())

	t.Setenv("SECRET_KEY", "s3cr3t")
	cfg, err = Load("")
	require.NoError(t, err)
	require.False(t, cfg.DefaultSecretOutsideDev())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": 9000,
		"model_path": "/models/file.pkl",
		"network": {"backend": "linear", "data": {"timeout_seconds": 5}},
		"log_config": {"level": "debug"}
	}`), 0o644))

	t.Setenv("MODEL_PATH", "/models/env.pkl")
	t.Setenv("UPLOAD_FOLDER", "/var/artgan")
	t.Setenv("SECRET_KEY", "s3cr3t")
	t.Setenv("NETWORK_URL", "http://sidecar:5001")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, "/models/env.pkl", cfg.ModelPath)
	require.Equal(t, "/var/artgan", cfg.OutputDir)
	require.Equal(t, "s3cr3t", cfg.SecretKey)
	require.Equal(t, "debug", cfg.LogConfig.Level)
	require.Equal(t, "/var/artgan", cfg.FileStore.Data.(map[string]interface{})["dir"])

	args := cfg.NetworkArgs()
	require.Equal(t, "/models/env.pkl", args["checkpoint"])
	require.Equal(t, "http://sidecar:5001", args["url"])
	require.EqualValues(t, 5, args["timeout_seconds"])
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	t.Setenv("PORT", "eighty")
	_, err = Load("")
	require.Error(t, err)

	t.Setenv("PORT", "")
	t.Setenv("FILE_STORE", "ftp")
	_, err = Load("")
	require.Error(t, err)

	t.Setenv("FILE_STORE", "s3")
	_, err = Load("")
	require.Error(t, err)
}
