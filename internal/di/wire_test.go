package di

import (
	"testing"
	"time"

	"github.com/aristath/qfarm/internal/biome"
	"github.com/aristath/qfarm/internal/config"
	"github.com/aristath/qfarm/internal/evolution"
	"github.com/aristath/qfarm/internal/journal"
	"github.com/aristath/qfarm/internal/quantum"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	sched := evolution.DefaultConfig()
	reg := quantum.DefaultConfig()
	return &config.Config{
		DataDir: t.TempDir(),
		Port:    8001,
		Physics: config.PhysicsConfig{
			TickInterval: sched.TickInterval,
			BaseDT:       sched.BaseDT,
			MaxBaseDT:    sched.MaxBaseDT,
			TimeScale:    sched.TimeScale,
			MinTimeScale: sched.MinTimeScale,
			MaxTimeScale: sched.MaxTimeScale,
			BatchSize:    sched.BatchSize,
			TickBudget:   sched.TickBudget,
		},
		Register: config.RegisterConfig{
			MaxQubits: reg.MaxQubits,
			Epsilon:   reg.Epsilon,
			MaxStepDT: reg.MaxStepDT,
			Seed:      42,
		},
		Jobs: config.JobsConfig{
			AuditSchedule:     "0 * * * * *",
			AuditTolerance:    1e-8,
			PruneSchedule:     "0 0 4 * * *",
			JournalRetention:  24 * time.Hour,
			BackupSchedule:    "0 30 4 * * *",
			BackupRetention:   7,
			IntegritySchedule: "0 15 3 * * *",
		},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)
	defer container.Close()

	assert.NotNil(t, container.JournalDB)
	assert.NotNil(t, container.JournalRepo)
	assert.NotNil(t, container.JournalWriter)
	assert.NotNil(t, container.Evolution)
	assert.Equal(t, []string{"farm", "forest", "market"}, container.Farm.Names())

	// Jobs
	assert.NotNil(t, jobs.InvariantAudit)
	assert.NotNil(t, jobs.JournalMaintenance)
	assert.NotNil(t, jobs.JournalIntegrity)
	assert.Nil(t, jobs.JournalBackup, "no R2 credentials")
	assert.Nil(t, container.BackupService)
	assert.Len(t, container.Jobs.Jobs(), 3)
	require.NoError(t, container.Jobs.RunNow("journal_integrity"))
}

func TestWireEnabledBiomes(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnabledBiomes = []string{"market"}

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()
	assert.Equal(t, []string{"market"}, container.Farm.Names())

	cfg = testConfig(t)
	cfg.EnabledBiomes = []string{"tundra"}
	_, _, err = Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestActionsReachTheJournal(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	require.NoError(t, container.Farm.Do("farm", func(b *biome.Biome) {
		res := b.Explore(2)
		require.True(t, res.Success)
		b.Measure(res.TerminalID)
	}))
	container.JournalWriter.Flush()

	entries, err := container.JournalRepo.List(journal.Filter{Biome: "farm"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	actions := []string{entries[0].Action, entries[1].Action}
	assert.ElementsMatch(t, []string{"explore", "measure"}, actions)

	require.NoError(t, container.Jobs.RunNow(jobs.InvariantAudit.Name()))
	audits, err := container.JournalRepo.LatestAudits(1)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, 3, audits[0].BiomesChecked)
	assert.Zero(t, audits[0].Failures)
}

func TestWireRejectsBadBiomeFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.BiomesFile = "/nonexistent/biomes.yaml"

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}
