package biome

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aristath/qfarm/internal/evolution"
	"github.com/aristath/qfarm/internal/quantum"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownBiome is returned for a biome name that is not in the farm.
	ErrUnknownBiome = errors.New("unknown biome")
	// ErrDuplicateBiome is returned when a biome name is added twice.
	ErrDuplicateBiome = errors.New("biome already exists")
)

// Farm holds every biome and routes actions through the physics scheduler so
// they never interleave with an evolution step.
type Farm struct {
	biomes map[string]*Biome
	sched  *evolution.Scheduler
	mu     sync.RWMutex
	log    zerolog.Logger
}

// NewFarm creates an empty farm driven by sched.
func NewFarm(sched *evolution.Scheduler, log zerolog.Logger) *Farm {
	return &Farm{
		biomes: make(map[string]*Biome),
		sched:  sched,
		log:    log.With().Str("component", "farm").Logger(),
	}
}

// Add activates b if needed and registers it for evolution.
func (f *Farm) Add(b *Biome) error {
	if err := b.Activate(); err != nil {
		return fmt.Errorf("biome %q: %w", b.Name(), err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.biomes[b.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBiome, b.Name())
	}
	if err := f.sched.Register(b.Name(), b); err != nil {
		return fmt.Errorf("failed to schedule biome %q: %w", b.Name(), err)
	}
	f.biomes[b.Name()] = b
	f.log.Info().Str("biome", b.Name()).Msg("Biome added")
	return nil
}

// Remove stops evolving a biome and drops it.
func (f *Farm) Remove(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.biomes[name]; !ok {
		return false
	}
	f.sched.Unregister(name)
	delete(f.biomes, name)
	return true
}

// Biome returns a biome by name.
func (f *Farm) Biome(name string) (*Biome, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.biomes[name]
	return b, ok
}

// Names returns biome names sorted.
func (f *Farm) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.biomes))
	for name := range f.biomes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Do runs fn against the named biome between physics ticks.
func (f *Farm) Do(name string, fn func(b *Biome)) error {
	b, ok := f.Biome(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBiome, name)
	}
	f.sched.Exclusive(func() { fn(b) })
	return nil
}

// EntangleAcross entangles qubits named by biome. Registers are never
// combined, so pairs spanning two biomes are rejected.
func (f *Farm) EntangleAcross(biomeA string, qubitA int, biomeB string, qubitB int) quantum.GateResult {
	if biomeA != biomeB {
		f.log.Debug().
			Str("from", biomeA).
			Str("to", biomeB).
			Msg("Rejected cross-biome entanglement")
		return quantum.GateResult{Result: quantum.Failed("cannot entangle across biomes %q and %q", biomeA, biomeB)}
	}
	var res quantum.GateResult
	if err := f.Do(biomeA, func(b *Biome) { res = b.Entangle(qubitA, qubitB) }); err != nil {
		return quantum.GateResult{Result: quantum.Failed("%v", err)}
	}
	return res
}

// SetTimeScale changes the evolution speed and returns the clamped value.
func (f *Farm) SetTimeScale(scale float64) float64 {
	return f.sched.SetTimeScale(scale)
}

// Snapshots pulls a snapshot of every biome.
func (f *Farm) Snapshots() []Snapshot {
	names := f.Names()
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		if b, ok := f.Biome(name); ok {
			out = append(out, b.Snapshot())
		}
	}
	return out
}

// Audit checks every biome's invariants and returns the failures by name.
func (f *Farm) Audit(tol float64) map[string]error {
	failures := make(map[string]error)
	for _, name := range f.Names() {
		b, ok := f.Biome(name)
		if !ok {
			continue
		}
		var err error
		f.sched.Exclusive(func() { err = b.CheckInvariants(tol) })
		if err != nil {
			failures[name] = err
		}
	}
	return failures
}

// EvolutionStats returns the physics scheduler counters.
func (f *Farm) EvolutionStats() evolution.Stats {
	return f.sched.Stats()
}
