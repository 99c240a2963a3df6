// Package biome is the gameplay surface over one quantum register: plots are
// explored into terminals bound to register slots, measured, and popped, and
// the vocabulary (the set of qubit axes) grows and shrinks at runtime.
package biome

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/aristath/qfarm/internal/quantum"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotReady is returned by Activate when the biome fails its readiness check.
var ErrNotReady = errors.New("biome is not ready")

// Event is one gameplay action as seen by a Recorder.
type Event struct {
	Biome       string
	Action      string
	Terminal    string
	Qubit       int
	Label       string
	Probability float64
	Success     bool
	Reason      string
}

// Recorder receives every action a biome performs.
type Recorder interface {
	Record(e Event)
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}

// ExploreResult reports a new terminal.
type ExploreResult struct {
	quantum.Result
	TerminalID string `json:"terminal_id,omitempty"`
	Position   int    `json:"position"`
	Qubit      int    `json:"qubit"`
	North      string `json:"north,omitempty"`
	South      string `json:"south,omitempty"`
}

// MeasureOutcome is a measurement made through a terminal.
type MeasureOutcome struct {
	quantum.MeasureResult
	TerminalID string `json:"terminal_id"`
}

// PopResult reports a harvested terminal.
type PopResult struct {
	quantum.Result
	TerminalID  string  `json:"terminal_id"`
	Position    int     `json:"position"`
	Qubit       int     `json:"qubit"`
	Outcome     string  `json:"outcome,omitempty"`
	Probability float64 `json:"probability,omitempty"`
}

// ReentangleResult lists the blueprint pairs that were entangled again.
type ReentangleResult struct {
	quantum.Result
	Pairs []quantum.Edge `json:"pairs"`
}

// Biome owns one register and the terminals bound to it.
type Biome struct {
	def Definition
	reg *quantum.Register

	terminals map[string]*Terminal
	// plots maps an explored position to its qubit.
	plots map[int]int

	active   bool
	recorder Recorder
	now      func() time.Time
	mu       sync.Mutex
	log      zerolog.Logger
}

// New builds a biome from def with its starting vocabulary. The biome accepts
// no actions until Activate succeeds.
func New(def Definition, cfg quantum.Config, rng *rand.Rand, recorder Recorder, log zerolog.Logger) (*Biome, error) {
	if err := def.Validate(cfg.MaxQubits); err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	blog := log.With().Str("biome", def.Name).Logger()
	reg := quantum.NewRegister(cfg, def.IconSet(), rng, blog)
	for _, a := range def.Axes {
		if res := reg.Expand(a.North, a.South); !res.Success {
			return nil, fmt.Errorf("biome %q: %s", def.Name, res.Reason)
		}
	}
	return &Biome{
		def:       def,
		reg:       reg,
		terminals: make(map[string]*Terminal),
		plots:     make(map[int]int),
		recorder:  recorder,
		now:       time.Now,
		log:       blog.With().Str("component", "biome").Logger(),
	}, nil
}

// Activate runs the readiness check and opens the biome for actions.
func (b *Biome) Activate() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		return nil
	}
	if b.reg.NumQubits() != len(b.def.Axes) {
		return fmt.Errorf("%w: %d of %d axes built", ErrNotReady, b.reg.NumQubits(), len(b.def.Axes))
	}
	if !b.reg.Hamiltonian().IsHermitian(1e-12) {
		return fmt.Errorf("%w: Hamiltonian is not Hermitian", ErrNotReady)
	}
	if err := b.reg.CheckInvariants(1e-9); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	b.active = true
	b.log.Info().
		Int("qubits", b.reg.NumQubits()).
		Int("lindblad_terms", len(b.reg.LindbladTerms())).
		Msg("Biome activated")
	return nil
}

// Name returns the biome name.
func (b *Biome) Name() string { return b.def.Name }

// Active reports whether Activate has succeeded.
func (b *Biome) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *Biome) inactive() quantum.Result {
	return quantum.Failed("biome %q is not active", b.def.Name)
}

func (b *Biome) record(action string, res quantum.Result, e Event) {
	e.Biome = b.def.Name
	e.Action = action
	e.Success = res.Success
	e.Reason = res.Reason
	b.recorder.Record(e)
}

// Evolve advances the register. Inactive biomes do not evolve.
func (b *Biome) Evolve(dt float64) quantum.EvolveResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return quantum.EvolveResult{Result: quantum.Succeeded()}
	}
	return b.reg.Evolve(dt)
}

// Occupied returns the number of bound register slots.
func (b *Biome) Occupied() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return 0
	}
	return b.reg.Occupied()
}

// Explore binds position to the lowest free register slot.
func (b *Biome) Explore(position int) ExploreResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := b.explore(position)
	b.record("explore", res.Result, Event{Terminal: res.TerminalID, Qubit: res.Qubit})
	return res
}

func (b *Biome) explore(position int) ExploreResult {
	out := ExploreResult{Position: position, Qubit: -1}
	if !b.active {
		out.Result = b.inactive()
		return out
	}
	if position < 0 || position >= b.def.Plots {
		out.Result = quantum.Failed("position %d outside %d plots", position, b.def.Plots)
		return out
	}
	if _, taken := b.plots[position]; taken {
		out.Result = quantum.Failed("position %d already explored", position)
		return out
	}
	free := b.reg.Map().FreeQubits()
	if len(free) == 0 {
		out.Result = quantum.Failed("no free register slot")
		return out
	}

	q := free[0]
	b.reg.Map().Occupy(q)
	axis, _ := b.reg.Map().Axis(q)
	t := &Terminal{
		ID:       uuid.NewString(),
		State:    BoundUnmeasured,
		Position: position,
		Qubit:    q,
		North:    axis.North,
		South:    axis.South,
		BoundAt:  b.now(),
	}
	b.terminals[t.ID] = t
	b.plots[position] = q

	out.Result = quantum.Succeeded()
	out.TerminalID = t.ID
	out.Qubit = q
	out.North, out.South = axis.North, axis.South
	return out
}

// Measure collapses the terminal's qubit and clears the links of its component.
func (b *Biome) Measure(terminalID string) MeasureOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := b.measure(terminalID)
	b.record("measure", res.Result, Event{
		Terminal:    terminalID,
		Qubit:       res.Qubit,
		Label:       res.Outcome,
		Probability: res.Probability,
	})
	return res
}

func (b *Biome) measure(terminalID string) MeasureOutcome {
	out := MeasureOutcome{TerminalID: terminalID}
	out.Qubit = -1
	if !b.active {
		out.Result = b.inactive()
		return out
	}
	t, ok := b.terminals[terminalID]
	if !ok {
		out.Result = quantum.Failed("unknown terminal %s", terminalID)
		return out
	}
	if t.State != BoundUnmeasured {
		out.Qubit = t.Qubit
		out.Result = quantum.Failed("terminal %s is %s", terminalID, t.State)
		return out
	}

	res := b.reg.MeasureAxis(t.North, t.South)
	out.MeasureResult = res
	if !res.Success {
		return out
	}
	b.reg.ClearLinks(res.Component)

	measuredAt := b.now()
	t.State = BoundMeasured
	t.Outcome = res.Outcome
	t.Probability = res.Probability
	t.MeasuredAt = &measuredAt
	return out
}

// Pop harvests a measured terminal and frees its register slot.
func (b *Biome) Pop(terminalID string) PopResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := b.pop(terminalID)
	b.record("pop", res.Result, Event{
		Terminal:    terminalID,
		Qubit:       res.Qubit,
		Label:       res.Outcome,
		Probability: res.Probability,
	})
	return res
}

func (b *Biome) pop(terminalID string) PopResult {
	out := PopResult{TerminalID: terminalID, Qubit: -1, Position: -1}
	if !b.active {
		out.Result = b.inactive()
		return out
	}
	t, ok := b.terminals[terminalID]
	if !ok {
		out.Result = quantum.Failed("unknown terminal %s", terminalID)
		return out
	}
	if t.State != BoundMeasured {
		out.Result = quantum.Failed("terminal %s is %s", terminalID, t.State)
		return out
	}

	b.reg.Map().Vacate(t.Qubit)
	delete(b.plots, t.Position)
	delete(b.terminals, terminalID)
	t.State = Unbound

	out.Result = quantum.Succeeded()
	out.Qubit = t.Qubit
	out.Position = t.Position
	out.Outcome = t.Outcome
	out.Probability = t.Probability
	return out
}

// ApplyGate applies a named single-qubit gate.
func (b *Biome) ApplyGate(qubit int, name string, params ...float64) quantum.GateResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := b.applyGate(qubit, name, params)
	b.record("gate", res.Result, Event{Qubit: qubit, Label: name})
	return res
}

func (b *Biome) applyGate(qubit int, name string, params []float64) quantum.GateResult {
	if !b.active {
		return quantum.GateResult{Result: b.inactive()}
	}
	u, arity, err := quantum.GateByName(name, params...)
	if err != nil {
		return quantum.GateResult{Result: quantum.Failed("%v", err)}
	}
	if arity != 1 {
		return quantum.GateResult{Result: quantum.Failed("gate %s acts on %d qubits", name, arity)}
	}
	return b.reg.ApplyGate(qubit, u)
}

// ApplyGate2Q applies a named two-qubit gate with a as the control or first qubit.
func (b *Biome) ApplyGate2Q(a, c int, name string) quantum.GateResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := b.applyGate2Q(a, c, name)
	b.record("gate2q", res.Result, Event{Qubit: a, Label: name})
	return res
}

func (b *Biome) applyGate2Q(a, c int, name string) quantum.GateResult {
	if !b.active {
		return quantum.GateResult{Result: b.inactive()}
	}
	u, arity, err := quantum.GateByName(name)
	if err != nil {
		return quantum.GateResult{Result: quantum.Failed("%v", err)}
	}
	if arity != 2 {
		return quantum.GateResult{Result: quantum.Failed("gate %s acts on %d qubit", name, arity)}
	}
	return b.reg.ApplyGate2Q(a, c, u)
}

// Entangle prepares a Bell pair on (a, c) and stores it as a blueprint.
func (b *Biome) Entangle(a, c int) quantum.GateResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := quantum.GateResult{Result: b.inactive()}
	if b.active {
		res = b.reg.Entangle(a, c)
		if res.Success {
			b.reg.AddBlueprint(a, c)
		}
	}
	b.record("entangle", res.Result, Event{Qubit: a})
	return res
}

// Reentangle replays every stored blueprint whose qubits are unlinked and not
// held by a measured terminal.
func (b *Biome) Reentangle() ReentangleResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return ReentangleResult{Result: b.inactive()}
	}
	measured := make(map[int]bool)
	for _, t := range b.terminals {
		if t.State == BoundMeasured {
			measured[t.Qubit] = true
		}
	}

	out := ReentangleResult{Result: quantum.Succeeded(), Pairs: []quantum.Edge{}}
	for _, rec := range b.reg.InfraRecords() {
		for _, p := range rec.Blueprints {
			a, c := rec.Qubit, p
			if a > c || b.reg.IsLinked(a, c) || measured[a] || measured[c] {
				continue
			}
			if res := b.reg.Entangle(a, c); res.Success {
				out.Pairs = append(out.Pairs, quantum.Edge{A: a, B: c})
			}
		}
	}
	b.record("reentangle", out.Result, Event{Qubit: -1, Label: fmt.Sprintf("%d pairs", len(out.Pairs))})
	return out
}

// InstallGate records a single-qubit gate as the slot's persistent config.
func (b *Biome) InstallGate(qubit int, name string) quantum.Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := b.installGate(qubit, name)
	b.record("install_gate", res, Event{Qubit: qubit, Label: name})
	return res
}

func (b *Biome) installGate(qubit int, name string) quantum.Result {
	if !b.active {
		return b.inactive()
	}
	if name != "" {
		if _, arity, err := quantum.GateByName(name); err != nil || arity != 1 {
			return quantum.Failed("cannot install gate %q", name)
		}
	}
	if !b.reg.InstallGate(qubit, name) {
		return quantum.Failed("qubit %d out of range", qubit)
	}
	return quantum.Succeeded()
}

// ApplyDrive pumps population into label.
func (b *Biome) ApplyDrive(label string, rate, dt float64) quantum.DissipationResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := quantum.DissipationResult{Result: b.inactive(), Qubit: -1}
	if b.active {
		res = b.reg.ApplyDrive(label, rate, dt)
	}
	b.record("drive", res.Result, Event{Qubit: res.Qubit, Label: label, Probability: res.Transferred})
	return res
}

// ApplyDecay relaxes qubit toward north.
func (b *Biome) ApplyDecay(qubit int, rate, dt float64) quantum.DissipationResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := quantum.DissipationResult{Result: b.inactive(), Qubit: qubit}
	if b.active {
		res = b.reg.ApplyDecay(qubit, rate, dt)
	}
	b.record("decay", res.Result, Event{Qubit: qubit, Probability: res.Transferred})
	return res
}

// InjectVocabulary adds a qubit carrying a new label pair.
func (b *Biome) InjectVocabulary(north, south string) quantum.ExpandResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := quantum.ExpandResult{Result: b.inactive(), Qubit: -1}
	if b.active {
		res = b.reg.Expand(north, south)
	}
	b.record("inject", res.Result, Event{Qubit: res.Qubit, Label: north + "/" + south})
	return res
}

// RemoveVocabulary traces a free qubit out of the register and renumbers the
// terminals and plots that reference higher slots.
func (b *Biome) RemoveVocabulary(qubit int) quantum.ShrinkResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := quantum.ShrinkResult{Result: b.inactive(), Removed: qubit}
	if b.active {
		res = b.reg.Shrink(qubit)
		if res.Success {
			b.reindex(qubit)
		}
	}
	b.record("remove", res.Result, Event{Qubit: qubit, Label: res.RemovedLabels.North + "/" + res.RemovedLabels.South})
	return res
}

func (b *Biome) reindex(removed int) {
	for id, t := range b.terminals {
		q, ok := quantum.ShiftIndex(t.Qubit, removed)
		if !ok {
			// Occupied qubits cannot be removed, so this means the tables diverged.
			b.log.Error().Str("terminal", id).Int("qubit", t.Qubit).Msg("Terminal bound to removed qubit")
			delete(b.plots, t.Position)
			delete(b.terminals, id)
			continue
		}
		t.Qubit = q
	}
	for pos, q := range b.plots {
		if nq, ok := quantum.ShiftIndex(q, removed); ok {
			b.plots[pos] = nq
		} else {
			delete(b.plots, pos)
		}
	}
}

// Population returns the probability mass on label.
func (b *Biome) Population(label string) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reg.Population(label)
}

// Purity returns Tr(ρ²).
func (b *Biome) Purity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reg.Purity()
}

// Lookahead predicts the register's next steps without changing it.
func (b *Biome) Lookahead(steps int, dt float64) quantum.LookaheadResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return quantum.LookaheadResult{Result: b.inactive()}
	}
	return b.reg.Lookahead(steps, dt)
}

// Terminal returns a copy of one terminal.
func (b *Biome) Terminal(id string) (Terminal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.terminals[id]
	if !ok {
		return Terminal{}, false
	}
	return *t, true
}

// CheckInvariants verifies the register and the binding tables.
func (b *Biome) CheckInvariants(tol float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	errs := []error{b.reg.CheckInvariants(tol)}
	m := b.reg.Map()
	for id, t := range b.terminals {
		if !m.IsOccupied(t.Qubit) {
			errs = append(errs, fmt.Errorf("terminal %s holds unoccupied qubit %d", id, t.Qubit))
		}
		if q, ok := b.plots[t.Position]; !ok || q != t.Qubit {
			errs = append(errs, fmt.Errorf("terminal %s disagrees with plot %d", id, t.Position))
		}
	}
	if len(b.terminals) != m.OccupiedCount() {
		errs = append(errs, fmt.Errorf("%d terminals but %d occupied qubits", len(b.terminals), m.OccupiedCount()))
	}
	return errors.Join(errs...)
}

func (b *Biome) sortedTerminals() []Terminal {
	out := make([]Terminal, 0, len(b.terminals))
	for _, t := range b.terminals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
