// Package di provides dependency injection for the physics services.
package di

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/aristath/qfarm/internal/biome"
	"github.com/aristath/qfarm/internal/config"
	"github.com/aristath/qfarm/internal/evolution"
	"github.com/aristath/qfarm/internal/journal"
	"github.com/rs/zerolog"
)

// journalRecorder forwards biome events to the async journal writer.
type journalRecorder struct {
	writer *journal.Writer
}

func (r journalRecorder) Record(e biome.Event) {
	r.writer.Submit(journal.Entry{
		Biome:       e.Biome,
		Action:      e.Action,
		TerminalID:  e.Terminal,
		Qubit:       e.Qubit,
		Label:       e.Label,
		Probability: e.Probability,
		Success:     e.Success,
		Reason:      e.Reason,
	})
}

// InitializeServices builds the evolution scheduler, the farm and every
// enabled biome from the catalog.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	sched, err := evolution.New(cfg.EvolutionConfig(), log)
	if err != nil {
		return fmt.Errorf("failed to create evolution scheduler: %w", err)
	}
	container.Evolution = sched
	container.Farm = biome.NewFarm(sched, log)

	defs, err := biome.LoadDefinitions(cfg.BiomesFile)
	if err != nil {
		return fmt.Errorf("failed to load biome definitions: %w", err)
	}

	var recorder biome.Recorder
	if container.JournalWriter != nil {
		recorder = journalRecorder{writer: container.JournalWriter}
	}

	seed := cfg.Register.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	added := 0
	for i, def := range defs {
		if !cfg.BiomeEnabled(def.Name) {
			log.Debug().Str("biome", def.Name).Msg("Biome disabled by configuration")
			continue
		}
		// Each biome owns its RNG so measurement sequences stay reproducible
		// per biome under a fixed seed.
		rng := rand.New(rand.NewSource(seed + int64(i)))
		b, err := biome.New(def, cfg.QuantumConfig(), rng, recorder, log)
		if err != nil {
			return fmt.Errorf("failed to create biome %q: %w", def.Name, err)
		}
		if err := container.Farm.Add(b); err != nil {
			return err
		}
		added++
	}
	if added == 0 {
		return fmt.Errorf("no biomes enabled (catalog has %d)", len(defs))
	}

	log.Info().Int("biomes", added).Int64("seed", seed).Msg("Services initialized")
	return nil
}
