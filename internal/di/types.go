// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/qfarm/internal/biome"
	"github.com/aristath/qfarm/internal/database"
	"github.com/aristath/qfarm/internal/evolution"
	"github.com/aristath/qfarm/internal/journal"
	"github.com/aristath/qfarm/internal/reliability"
	"github.com/aristath/qfarm/internal/scheduler"
)

// Container holds all dependencies for the application.
//
// It is created by Wire and handed to the server and main. Databases come
// first, then the journal, then the physics (evolution scheduler, farm and
// biomes), then the maintenance jobs.
type Container struct {
	// Databases
	JournalDB *database.DB

	// Journal
	JournalRepo   *journal.Repository
	JournalWriter *journal.Writer

	// Physics
	Evolution *evolution.Scheduler
	Farm      *biome.Farm

	// Jobs
	Jobs *scheduler.Scheduler

	// Off-site backups, nil when R2 is not configured
	BackupService *reliability.BackupService
}

// JobInstances holds the registered maintenance jobs for manual triggering
type JobInstances struct {
	InvariantAudit     scheduler.Job
	JournalMaintenance scheduler.Job
	JournalIntegrity   scheduler.Job
	JournalBackup      scheduler.Job // nil when backups are disabled
}

// Close releases everything the container opened. The writer is flushed
// before the journal database closes.
func (c *Container) Close() error {
	if c.Evolution != nil {
		c.Evolution.Stop()
	}
	if c.Jobs != nil {
		c.Jobs.Stop()
	}
	if c.JournalWriter != nil {
		c.JournalWriter.Stop()
		c.JournalWriter.Flush()
	}
	if c.JournalDB != nil {
		return c.JournalDB.Close()
	}
	return nil
}
