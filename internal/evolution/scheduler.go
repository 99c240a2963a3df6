// Package evolution steps many quantum registers on a fixed physics tick.
//
// Each tick visits targets in round-robin order and steps at most BatchSize
// of them, so a tick's cost does not grow with the number of biomes. Targets
// with nothing bound are skipped without using the batch budget.
package evolution

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aristath/qfarm/internal/quantum"
	"github.com/aristath/qfarm/internal/utils"
	"github.com/rs/zerolog"
)

// ErrDuplicateTarget is returned when an id is registered twice.
var ErrDuplicateTarget = errors.New("target already registered")

// Config controls batching and the effective time step.
type Config struct {
	// BaseDT is the nominal simulated time per tick.
	BaseDT float64
	// MaxBaseDT caps BaseDT to keep integration stable.
	MaxBaseDT float64
	// MaxEffectiveDT caps the scaled step. Zero falls back to MaxBaseDT.
	MaxEffectiveDT float64
	TimeScale      float64
	MinTimeScale   float64
	MaxTimeScale   float64
	// BatchSize is the maximum number of active targets stepped per tick.
	BatchSize int
	// TickInterval is the wall-clock period of Run.
	TickInterval time.Duration
	// TickBudget is the wall-clock time a tick may take before it is logged as an overrun.
	TickBudget time.Duration
}

// DefaultConfig returns a 60 Hz tick stepping two biomes at a time.
func DefaultConfig() Config {
	return Config{
		BaseDT:         1.0 / 60.0,
		MaxBaseDT:      0.05,
		MaxEffectiveDT: 0.1,
		TimeScale:      1,
		MinTimeScale:   0.1,
		MaxTimeScale:   16,
		BatchSize:      2,
		TickInterval:   time.Second / 60,
		TickBudget:     8 * time.Millisecond,
	}
}

// Validate checks the configuration for impossible values.
func (c Config) Validate() error {
	if c.BaseDT <= 0 || c.MaxBaseDT <= 0 {
		return fmt.Errorf("base dt and max base dt must be positive")
	}
	if c.MaxEffectiveDT < 0 || math.IsNaN(c.MaxEffectiveDT) {
		return fmt.Errorf("max effective dt must not be negative, got %g", c.MaxEffectiveDT)
	}
	if c.MinTimeScale <= 0 || c.MaxTimeScale < c.MinTimeScale {
		return fmt.Errorf("time scale range [%g, %g] is invalid", c.MinTimeScale, c.MaxTimeScale)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	return nil
}

type entry struct {
	id     string
	target quantum.Evolver
	steps  uint64
}

// TickReport describes one tick.
type TickReport struct {
	Tick     uint64        `json:"tick"`
	DT       float64       `json:"dt"`
	Stepped  []string      `json:"stepped"`
	Skipped  []string      `json:"skipped,omitempty"`
	Failed   []string      `json:"failed,omitempty"`
	Duration time.Duration `json:"duration"`
	Overrun  bool          `json:"overrun"`
}

// TargetStats is the per-target view in Stats.
type TargetStats struct {
	ID     string `json:"id"`
	Steps  uint64 `json:"steps"`
	Active bool   `json:"active"`
}

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Ticks       uint64        `json:"ticks"`
	Overruns    uint64        `json:"overruns"`
	LastTick    time.Duration `json:"last_tick_ns"`
	TimeScale   float64       `json:"time_scale"`
	EffectiveDT float64       `json:"effective_dt"`
	DTClamped   bool          `json:"dt_clamped"`
	BatchSize   int           `json:"batch_size"`
	Running     bool          `json:"running"`
	Targets     []TargetStats `json:"targets"`
}

// Scheduler steps registered targets on a fixed tick.
type Scheduler struct {
	cfg       Config
	timeScale float64

	entries []*entry
	index   map[string]int
	cursor  int

	ticks    uint64
	overruns uint64
	lastTick time.Duration

	running bool
	stop    chan struct{}
	stopped chan struct{}
	mu      sync.Mutex
	log     zerolog.Logger
}

// New creates a scheduler. The initial time scale is clamped into range.
func New(cfg Config, log zerolog.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	s := &Scheduler{
		cfg:   cfg,
		index: make(map[string]int),
		log:   log.With().Str("component", "evolution").Logger(),
	}
	s.timeScale = s.clampScale(cfg.TimeScale)
	if dt, clamped := s.effectiveDT(); clamped {
		s.log.Warn().Float64("dt", dt).Msg("Initial effective dt clamped to stability limit")
	}
	return s, nil
}

// Register appends a target to the end of the round-robin order.
func (s *Scheduler) Register(id string, target quantum.Evolver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTarget, id)
	}
	s.index[id] = len(s.entries)
	s.entries = append(s.entries, &entry{id: id, target: target})
	return nil
}

// Unregister removes a target. The cursor keeps pointing at the same next target.
func (s *Scheduler) Unregister(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return false
	}
	s.entries = append(s.entries[:pos], s.entries[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.entries); i++ {
		s.index[s.entries[i].id] = i
	}
	if s.cursor > pos {
		s.cursor--
	}
	if s.cursor >= len(s.entries) {
		s.cursor = 0
	}
	return true
}

// IDs returns target ids in round-robin order.
func (s *Scheduler) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.id
	}
	return ids
}

func (s *Scheduler) clampScale(scale float64) float64 {
	if math.IsNaN(scale) {
		return s.cfg.MinTimeScale
	}
	return math.Max(s.cfg.MinTimeScale, math.Min(s.cfg.MaxTimeScale, scale))
}

// SetTimeScale clamps scale into the configured range and returns the applied value.
func (s *Scheduler) SetTimeScale(scale float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := s.clampScale(scale)
	if applied != scale {
		s.log.Warn().
			Float64("requested", scale).
			Float64("applied", applied).
			Msg("Time scale clamped")
	}
	s.timeScale = applied
	if dt, clamped := s.effectiveDT(); clamped {
		s.log.Warn().
			Float64("time_scale", applied).
			Float64("dt", dt).
			Msg("Effective dt clamped to stability limit")
	}
	return applied
}

// TimeScale returns the current multiplier.
func (s *Scheduler) TimeScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeScale
}

// EffectiveDT returns min(BaseDT, MaxBaseDT) · TimeScale, clamped to MaxEffectiveDT.
func (s *Scheduler) EffectiveDT() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	dt, _ := s.effectiveDT()
	return dt
}

func (s *Scheduler) effectiveDT() (float64, bool) {
	limit := s.cfg.MaxEffectiveDT
	if limit == 0 {
		limit = s.cfg.MaxBaseDT
	}
	dt := math.Min(s.cfg.BaseDT, s.cfg.MaxBaseDT) * s.timeScale
	if dt > limit {
		return limit, true
	}
	return dt, false
}

// Tick advances one batch. Every stepped target integrates the same
// effective dt.
func (s *Scheduler) Tick() TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick()
}

func (s *Scheduler) tick() TickReport {
	timer := utils.NewTimer("physics_tick", s.log).WithBudget(s.cfg.TickBudget)

	s.ticks++
	dt, _ := s.effectiveDT()
	report := TickReport{Tick: s.ticks, DT: dt}

	n := len(s.entries)
	if n > 0 {
		pos := s.cursor
		visited := 0
		for visited < n && len(report.Stepped) < s.cfg.BatchSize {
			e := s.entries[pos]
			pos = (pos + 1) % n
			visited++

			if e.target.Occupied() == 0 {
				report.Skipped = append(report.Skipped, e.id)
				continue
			}
			res := e.target.Evolve(dt)
			if !res.Success {
				report.Failed = append(report.Failed, e.id)
				s.log.Error().Str("target", e.id).Str("reason", res.Reason).Msg("Evolution step failed")
				continue
			}
			e.steps++
			report.Stepped = append(report.Stepped, e.id)
		}
		s.cursor = pos
	}

	duration, over := timer.StopWithContext(map[string]interface{}{
		"tick":    s.ticks,
		"stepped": len(report.Stepped),
	})
	report.Duration = duration
	report.Overrun = over
	s.lastTick = duration
	if over {
		s.overruns++
	}
	return report
}

// Exclusive runs fn while no tick is in progress. Gameplay actions go through
// here so they never interleave with an evolution step.
func (s *Scheduler) Exclusive(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	dt, clamped := s.effectiveDT()
	st := Stats{
		Ticks:       s.ticks,
		Overruns:    s.overruns,
		LastTick:    s.lastTick,
		TimeScale:   s.timeScale,
		EffectiveDT: dt,
		DTClamped:   clamped,
		BatchSize:   s.cfg.BatchSize,
		Running:     s.running,
		Targets:     make([]TargetStats, 0, len(s.entries)),
	}
	for _, e := range s.entries {
		st.Targets = append(st.Targets, TargetStats{
			ID:     e.id,
			Steps:  e.steps,
			Active: e.target.Occupied() > 0,
		})
	}
	return st
}
