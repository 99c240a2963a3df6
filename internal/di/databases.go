// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/qfarm/internal/config"
	"github.com/aristath/qfarm/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the journal database and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// journal.db - append-only action history and audit runs
	journalDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "journal.db"),
		Profile: database.ProfileLedger,
		Name:    "journal",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal database: %w", err)
	}
	container.JournalDB = journalDB

	if err := journalDB.Migrate(); err != nil {
		journalDB.Close()
		return nil, fmt.Errorf("failed to migrate journal database: %w", err)
	}

	log.Info().Str("path", journalDB.Path()).Msg("Journal database initialized")

	return container, nil
}
