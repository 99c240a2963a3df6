package server

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qfarm/internal/biome"
	"github.com/aristath/qfarm/internal/journal"
)

// StatusMonitor periodically compares farm status with the previous check and
// logs the transitions: biomes going idle or active, new tick overruns, and
// journal entries dropped by the writer.
type StatusMonitor struct {
	farm   *biome.Farm
	writer *journal.Writer
	log    zerolog.Logger

	lastActive   map[string]bool
	lastOverruns uint64
	lastDropped  uint64

	stop chan struct{}
	once sync.Once
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(farm *biome.Farm, writer *journal.Writer, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		farm:       farm,
		writer:     writer,
		log:        log.With().Str("component", "status_monitor").Logger(),
		lastActive: make(map[string]bool),
		stop:       make(chan struct{}),
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	go m.monitor(interval)
}

// Stop ends the monitoring loop.
func (m *StatusMonitor) Stop() {
	m.once.Do(func() { close(m.stop) })
}

func (m *StatusMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.checkStatuses()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkStatuses()
		}
	}
}

// checkStatuses runs every check once and returns the number of changes seen.
func (m *StatusMonitor) checkStatuses() int {
	return m.checkBiomes() + m.checkEvolution() + m.checkJournal()
}

func (m *StatusMonitor) checkBiomes() int {
	changes := 0
	seen := make(map[string]bool)
	for _, stat := range m.farm.EvolutionStats().Targets {
		seen[stat.ID] = true
		prev, known := m.lastActive[stat.ID]
		if known && prev == stat.Active {
			continue
		}
		if known {
			m.log.Info().Str("biome", stat.ID).Bool("active", stat.Active).Msg("Biome activity changed")
			changes++
		}
		m.lastActive[stat.ID] = stat.Active
	}
	for id := range m.lastActive {
		if !seen[id] {
			m.log.Info().Str("biome", id).Msg("Biome no longer evolving")
			delete(m.lastActive, id)
			changes++
		}
	}
	return changes
}

func (m *StatusMonitor) checkEvolution() int {
	stats := m.farm.EvolutionStats()
	if stats.Overruns <= m.lastOverruns {
		return 0
	}
	m.log.Warn().
		Uint64("new_overruns", stats.Overruns-m.lastOverruns).
		Uint64("ticks", stats.Ticks).
		Dur("last_tick", stats.LastTick).
		Msg("Physics ticks exceeded their budget")
	m.lastOverruns = stats.Overruns
	return 1
}

func (m *StatusMonitor) checkJournal() int {
	if m.writer == nil {
		return 0
	}
	dropped := m.writer.Dropped()
	if dropped <= m.lastDropped {
		return 0
	}
	m.log.Warn().Uint64("dropped", dropped-m.lastDropped).Msg("Journal writer dropped entries")
	m.lastDropped = dropped
	return 1
}
