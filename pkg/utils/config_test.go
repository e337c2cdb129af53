package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "luminous", cfg.Auth.JWTIssuer)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTDuration())
	assert.Equal(t, 240, cfg.Gate.FillerLimit)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luminous.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9999"
auth:
  jwt_issuer: file-issuer
  jwt_ttl_hours: 2
gate:
  filler_limit: 64
`), 0o644))

	t.Setenv("LUMINOUS_JWT_ISSUER", "env-issuer")
	t.Setenv("LUMINOUS_JWT_TTL_HOURS", "not-a-number")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "env-issuer", cfg.Auth.JWTIssuer)
	assert.Equal(t, 2*time.Hour, cfg.Auth.JWTDuration())
	assert.Equal(t, 64, cfg.Gate.FillerLimit)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
