package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data", cfg.RecordDir)
	assert.Equal(t, 4, cfg.TopK)
	assert.Equal(t, 3, cfg.WebMaxResults)
	assert.Equal(t, "gemini-pro-latest", cfg.GeminiModel)
	assert.Equal(t, 24*time.Hour, cfg.EmbeddingTTL)
}

func TestLoadEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PATIENT_DATA_DIR=/srv/records\nCARE_TEAM_CHAT_ID=42\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("PATIENT_DATA_DIR")
		os.Unsetenv("CARE_TEAM_CHAT_ID")
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "/srv/records", cfg.RecordDir)
	assert.Equal(t, int64(42), cfg.CareTeamChatID)
}

func TestEnvironmentOverridesEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=9000\n"), 0o644))
	t.Setenv("PORT", "7000")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
}
