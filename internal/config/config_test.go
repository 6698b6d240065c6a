package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("DATABASE_NAME", "gym_test")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, "gym_test", cfg.Database.Name)
	require.Equal(t, "s3cr3t", cfg.JWT.Secret)
	require.Equal(t, time.Hour, cfg.JWT.Expiration)
	require.Equal(t, time.Hour, cfg.S3.PresignTTL)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := "server:\n  address: \":9090\"\njwt:\n  secret: fromfile\n  expiration: 30m\ns3:\n  bucket_name: media\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Address)
	require.Equal(t, 30*time.Minute, cfg.JWT.Expiration)
	require.Equal(t, "media", cfg.S3.BucketName)
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
}
