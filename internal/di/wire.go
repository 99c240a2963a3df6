// Package di builds the service graph for the qfarm server.
package di

import (
	"fmt"

	"github.com/aristath/qfarm/internal/config"
	"github.com/rs/zerolog"
)

// Wire opens the journal database, builds the journal repository and writer,
// loads the enabled biomes into a farm with its evolution scheduler, and
// registers the maintenance jobs.
//
// Nothing is started: the caller runs the evolution loop, the journal writer
// and the cron scheduler.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("journal database: %w", err)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"repositories", func() error { return InitializeRepositories(container, log) }},
		{"services", func() error { return InitializeServices(container, cfg, log) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			container.Close()
			return nil, nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}

	jobs, err := RegisterJobs(container, cfg, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("jobs: %w", err)
	}

	log.Info().
		Strs("biomes", container.Farm.Names()).
		Msg("Service graph wired")

	return container, jobs, nil
}
