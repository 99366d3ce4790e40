package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	require.NotNil(t, cfg.Retrieval.Threshold)
	assert.InDelta(t, 0.45, float64(*cfg.Retrieval.Threshold), 1e-6)
	assert.Equal(t, 6, cfg.Memory.Window)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_GROUNDER_KEY", "sk-from-env")
	t.Setenv("TEST_GROUNDER_ADMIN", "admin-secret")

	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"port": 9000,
		"admin_token": "${TEST_GROUNDER_ADMIN}",
		"ai": {
			"completion": {"provider": "openai", "api_key": "${TEST_GROUNDER_KEY}"},
			"embedding": {"provider": "openai", "api_key": "${TEST_GROUNDER_KEY}"}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.AI.Completion.APIKey)
	assert.Equal(t, "admin-secret", cfg.AdminToken)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 9000}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 6, cfg.Memory.Window)
	assert.Equal(t, "@every 10m", cfg.Maintenance.Schedule)
	assert.Equal(t, filepath.Join("./data", "knowledge.json"), cfg.SnapshotPath())
	assert.Equal(t, filepath.Join("./data", "audit.db"), cfg.AuditPath())
}

func TestValidateRejectsOddWindow(t *testing.T) {
	cfg := Default()
	cfg.Memory.Window = 5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "even")
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.Threshold = float32Ptr(1.5)
	assert.Error(t, cfg.Validate())
}

func TestLoadKeepsExplicitZeroThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"retrieval": {"threshold": 0}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// 0 is a real cutoff (cosine scores can be negative), not "unset".
	require.NotNil(t, cfg.Retrieval.Threshold)
	assert.Equal(t, float32(0), *cfg.Retrieval.Threshold)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Port = -1
	assert.Error(t, cfg.Validate())
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
