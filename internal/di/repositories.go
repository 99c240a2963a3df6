// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"
	"time"

	"github.com/aristath/qfarm/internal/journal"
	"github.com/rs/zerolog"
)

const (
	journalQueueCapacity = 4096
	journalFlushInterval = time.Second
)

// InitializeRepositories creates the journal repository and its async writer
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.JournalDB == nil {
		return fmt.Errorf("container has no journal database")
	}

	container.JournalRepo = journal.NewRepository(container.JournalDB.Conn(), log)
	container.JournalWriter = journal.NewWriter(container.JournalRepo, journalQueueCapacity, journalFlushInterval, log)

	log.Info().Msg("Repositories initialized")
	return nil
}
