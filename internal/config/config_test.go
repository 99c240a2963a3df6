package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	t.Setenv("QFARM_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.DirExists(t, dir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Physics.BatchSize)
	assert.InDelta(t, 0.1, cfg.Physics.MaxEffectiveDT, 1e-12)
	assert.Equal(t, 6, cfg.Register.MaxQubits)
	assert.Equal(t, 7*24*time.Hour, cfg.Jobs.JournalRetention)
	assert.False(t, cfg.Backup.Enabled())
	assert.True(t, cfg.BiomeEnabled("anything"))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("QFARM_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "9100")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("BATCH_SIZE", "4")
	t.Setenv("BASE_DT", "0.01")
	t.Setenv("MAX_EFFECTIVE_DT", "0.08")
	t.Setenv("PHYSICS_TICK", "50ms")
	t.Setenv("MAX_QUBITS", "5")
	t.Setenv("RNG_SEED", "42")
	t.Setenv("ENABLED_BIOMES", "farm, forest,")
	t.Setenv("R2_ACCOUNT_ID", "acct")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_BUCKET", "journal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, []string{"farm", "forest"}, cfg.EnabledBiomes)
	assert.True(t, cfg.BiomeEnabled("forest"))
	assert.False(t, cfg.BiomeEnabled("market"))
	assert.True(t, cfg.Backup.Enabled())

	ev := cfg.EvolutionConfig()
	assert.Equal(t, 4, ev.BatchSize)
	assert.InDelta(t, 0.01, ev.BaseDT, 1e-12)
	assert.InDelta(t, 0.08, ev.MaxEffectiveDT, 1e-12)
	assert.Equal(t, 50*time.Millisecond, ev.TickInterval)

	q := cfg.QuantumConfig()
	assert.Equal(t, 5, q.MaxQubits)
	assert.Equal(t, int64(42), cfg.Register.Seed)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("QFARM_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "not-a-port")
	t.Setenv("TIME_SCALE", "fast")
	t.Setenv("STREAM_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, 1.0, cfg.Physics.TimeScale)
	assert.Equal(t, 250*time.Millisecond, cfg.StreamPeriod)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("QFARM_DATA_DIR", t.TempDir())
	t.Setenv("BATCH_SIZE", "0")
	t.Setenv("MAX_QUBITS", "12")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch size")
	assert.Contains(t, err.Error(), "MAX_QUBITS")
}
