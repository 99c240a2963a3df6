// Package reliability holds the periodic jobs that keep the farm honest:
// invariant audits, journal maintenance and off-site journal backups.
package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/qfarm/internal/journal"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Auditor checks register invariants for every biome.
type Auditor interface {
	Names() []string
	Audit(tol float64) map[string]error
}

// AuditStore persists audit outcomes.
type AuditStore interface {
	RecordAudit(run journal.AuditRun) error
}

// InvariantAuditJob checks every biome's density matrix and records the result.
type InvariantAuditJob struct {
	auditor   Auditor
	store     AuditStore
	tolerance float64
	log       zerolog.Logger
}

// NewInvariantAuditJob creates an audit job.
func NewInvariantAuditJob(auditor Auditor, store AuditStore, tolerance float64, log zerolog.Logger) *InvariantAuditJob {
	return &InvariantAuditJob{
		auditor:   auditor,
		store:     store,
		tolerance: tolerance,
		log:       log.With().Str("job", "invariant_audit").Logger(),
	}
}

// Run executes the audit. Violations are logged and recorded, and reported
// as an error so the scheduler logs the job as failed.
func (j *InvariantAuditJob) Run() error {
	names := j.auditor.Names()
	failures := j.auditor.Audit(j.tolerance)

	run := journal.AuditRun{
		RanAt:         time.Now(),
		BiomesChecked: len(names),
		Failures:      len(failures),
	}
	if len(failures) > 0 {
		run.Detail = make(map[string]string, len(failures))
		for name, err := range failures {
			run.Detail[name] = err.Error()
			j.log.Error().Err(err).Str("biome", name).Msg("Register invariant violated")
		}
	}

	if err := j.store.RecordAudit(run); err != nil {
		j.log.Warn().Err(err).Msg("Failed to record audit run")
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d biomes failed the invariant audit", len(failures), len(names))
	}
	j.log.Debug().Int("biomes", len(names)).Msg("Invariant audit passed")
	return nil
}

// Name returns the job name for scheduler
func (j *InvariantAuditJob) Name() string {
	return "invariant_audit"
}

// Pruner drops journal rows older than a cutoff.
type Pruner interface {
	Prune(cutoff time.Time) (int64, error)
}

// Checkpointer truncates a database's write-ahead log.
type Checkpointer interface {
	WALCheckpoint(mode string) error
}

// JournalMaintenanceJob prunes old journal entries, checkpoints the WAL and
// checks free disk space under the data directory.
type JournalMaintenanceJob struct {
	pruner    Pruner
	db        Checkpointer
	retention time.Duration
	dataDir   string
	minFreeGB float64
	log       zerolog.Logger
}

// NewJournalMaintenanceJob creates the journal maintenance job.
func NewJournalMaintenanceJob(pruner Pruner, db Checkpointer, retention time.Duration, dataDir string, log zerolog.Logger) *JournalMaintenanceJob {
	return &JournalMaintenanceJob{
		pruner:    pruner,
		db:        db,
		retention: retention,
		dataDir:   dataDir,
		minFreeGB: 0.5,
		log:       log.With().Str("job", "journal_maintenance").Logger(),
	}
}

// Run executes the maintenance job
func (j *JournalMaintenanceJob) Run() error {
	startTime := time.Now()

	removed, err := j.pruner.Prune(time.Now().Add(-j.retention))
	if err != nil {
		return err
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		// Not critical, the next run retries
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Int64("pruned", removed).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Journal maintenance completed")
	return nil
}

// Name returns the job name for scheduler
func (j *JournalMaintenanceJob) Name() string {
	return "journal_maintenance"
}

func (j *JournalMaintenanceJob) checkDiskSpace() error {
	if j.dataDir == "" {
		return nil
	}
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Str("path", j.dataDir).Msg("Failed to read disk usage")
		return nil
	}

	freeGB := float64(usage.Free) / 1e9
	j.log.Debug().
		Float64("free_gb", freeGB).
		Float64("used_percent", usage.UsedPercent).
		Msg("Disk space check")

	if freeGB < j.minFreeGB {
		return fmt.Errorf("only %.2f GB free under %s", freeGB, j.dataDir)
	}
	return nil
}

// JournalBackupJob uploads a journal archive and rotates old ones.
type JournalBackupJob struct {
	service *BackupService
	keep    int
	timeout time.Duration
	log     zerolog.Logger
}

// NewJournalBackupJob creates the backup job keeping the newest keep archives.
func NewJournalBackupJob(service *BackupService, keep int, log zerolog.Logger) *JournalBackupJob {
	return &JournalBackupJob{
		service: service,
		keep:    keep,
		timeout: 10 * time.Minute,
		log:     log.With().Str("job", "journal_backup").Logger(),
	}
}

// Run executes the backup job
func (j *JournalBackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUpload(ctx); err != nil {
		return err
	}
	if _, err := j.service.RotateOldBackups(ctx, j.keep); err != nil {
		// Upload succeeded; rotation retries next run
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// Name returns the job name for scheduler
func (j *JournalBackupJob) Name() string {
	return "journal_backup"
}
