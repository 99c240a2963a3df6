// Package di provides dependency injection for scheduler jobs.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/qfarm/internal/config"
	"github.com/aristath/qfarm/internal/reliability"
	"github.com/aristath/qfarm/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the maintenance jobs and adds them to a new cron
// scheduler. The scheduler is stored on the container but not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.Farm == nil || container.JournalRepo == nil {
		return nil, fmt.Errorf("container is missing the farm or the journal")
	}

	instances := &JobInstances{}
	jobs := scheduler.New(log)
	container.Jobs = jobs

	// Invariant audit over every biome register
	audit := reliability.NewInvariantAuditJob(container.Farm, container.JournalRepo, cfg.Jobs.AuditTolerance, log)
	if err := jobs.AddJob(cfg.Jobs.AuditSchedule, audit); err != nil {
		return nil, fmt.Errorf("failed to register invariant audit job: %w", err)
	}
	instances.InvariantAudit = audit

	// Journal pruning, WAL checkpoint and disk check
	maintenance := reliability.NewJournalMaintenanceJob(
		container.JournalRepo,
		container.JournalDB,
		cfg.Jobs.JournalRetention,
		cfg.DataDir,
		log,
	)
	if err := jobs.AddJob(cfg.Jobs.PruneSchedule, maintenance); err != nil {
		return nil, fmt.Errorf("failed to register journal maintenance job: %w", err)
	}
	instances.JournalMaintenance = maintenance

	// SQLite integrity check on the journal
	integrity := reliability.NewJournalIntegrityJob(container.JournalDB, log)
	if err := jobs.AddJob(cfg.Jobs.IntegritySchedule, integrity); err != nil {
		return nil, fmt.Errorf("failed to register journal integrity job: %w", err)
	}
	instances.JournalIntegrity = integrity

	// Off-site backups only when every R2 credential is present
	if cfg.Backup.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client, err := reliability.NewR2Client(ctx,
			cfg.Backup.AccountID,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			cfg.Backup.Bucket,
			log,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create R2 client: %w", err)
		}

		container.BackupService = reliability.NewBackupService(client, container.JournalDB, cfg.DataDir, log)
		backup := reliability.NewJournalBackupJob(container.BackupService, cfg.Jobs.BackupRetention, log)
		if err := jobs.AddJob(cfg.Jobs.BackupSchedule, backup); err != nil {
			return nil, fmt.Errorf("failed to register journal backup job: %w", err)
		}
		instances.JournalBackup = backup
	} else {
		log.Info().Msg("R2 credentials not configured, journal backups disabled")
	}

	log.Info().Int("jobs", len(jobs.Jobs())).Msg("Jobs registered")
	return instances, nil
}
