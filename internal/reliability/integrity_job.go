package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const integrityCheckTimeout = 2 * time.Minute

// HealthChecker is a database that can verify itself.
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// JournalIntegrityJob runs SQLite's integrity check on the journal database.
// Corruption cannot be repaired in place; the job only reports it so the
// operator can restore from the latest backup.
type JournalIntegrityJob struct {
	db  HealthChecker
	log zerolog.Logger
}

// NewJournalIntegrityJob creates an integrity job for db
func NewJournalIntegrityJob(db HealthChecker, log zerolog.Logger) *JournalIntegrityJob {
	return &JournalIntegrityJob{
		db:  db,
		log: log.With().Str("job", "journal_integrity").Logger(),
	}
}

// Run executes the check
func (j *JournalIntegrityJob) Run() error {
	if j.db == nil {
		j.log.Warn().Msg("Database not initialized, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), integrityCheckTimeout)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("Journal integrity check failed")
		return fmt.Errorf("database %s is corrupted: %w", j.db.Name(), err)
	}

	j.log.Debug().Str("database", j.db.Name()).Msg("Database integrity OK")
	return nil
}

// Name returns the job name for scheduler
func (j *JournalIntegrityJob) Name() string {
	return "journal_integrity"
}
