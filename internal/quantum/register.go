package quantum

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Config bounds one register.
type Config struct {
	// MaxQubits caps growth; Expand beyond it is rejected up front.
	MaxQubits int
	// Epsilon is the numerical tolerance for invariants and degenerate measurements.
	Epsilon float64
	// MaxStepDT is the largest integration substep Evolve will take.
	MaxStepDT float64
}

// DefaultConfig returns the limits used by the game: six qubits (dim 64).
func DefaultConfig() Config {
	return Config{
		MaxQubits: 6,
		Epsilon:   1e-9,
		MaxStepDT: 0.02,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxQubits <= 0 {
		c.MaxQubits = d.MaxQubits
	}
	if c.Epsilon <= 0 {
		c.Epsilon = d.Epsilon
	}
	if c.MaxStepDT <= 0 {
		c.MaxStepDT = d.MaxStepDT
	}
	return c
}

// Register is one biome's quantum state: the density matrix, its label map,
// compiled operators and gameplay bookkeeping.
type Register struct {
	cfg    Config
	rho    *Matrix
	regmap *RegisterMap
	icons  IconSet

	hamiltonian *Matrix
	lindblad    []LindbladTerm
	// generator caches iH + ½Σγ L†L for the evolution step.
	generator *Matrix
	// jumps holds the sparse form of each Lindblad operator, nil when dense.
	jumps []*columnOp
	m0    *Matrix
	m0DT  float64

	links map[int]map[int]struct{}
	infra map[int]*QubitInfra

	rng *rand.Rand
	log zerolog.Logger
}

// NewRegister returns an empty register (zero qubits, ρ = [1]).
// A nil rng is replaced by a time-seeded source.
func NewRegister(cfg Config, icons IconSet, rng *rand.Rand, log zerolog.Logger) *Register {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if icons == nil {
		icons = IconSet{}
	}
	rho := NewMatrix(1)
	rho.Set(0, 0, 1)
	r := &Register{
		cfg:    cfg.withDefaults(),
		rho:    rho,
		regmap: NewRegisterMap(),
		icons:  icons.Clone(),
		links:  make(map[int]map[int]struct{}),
		infra:  make(map[int]*QubitInfra),
		rng:    rng,
		log:    log.With().Str("component", "register").Logger(),
	}
	r.rebuildOperators()
	return r
}

// Config returns the register limits.
func (r *Register) Config() Config { return r.cfg }

// NumQubits returns the current qubit count.
func (r *Register) NumQubits() int { return r.regmap.NumQubits() }

// Dim returns the Hilbert-space dimension.
func (r *Register) Dim() int { return r.rho.Dim() }

// Map exposes the label map for read-only lookups.
func (r *Register) Map() *RegisterMap { return r.regmap }

// DensityMatrix returns a copy of ρ.
func (r *Register) DensityMatrix() *Matrix { return r.rho.Clone() }

// Hamiltonian returns a copy of the compiled Hamiltonian.
func (r *Register) Hamiltonian() *Matrix { return r.hamiltonian.Clone() }

// LindbladTerms returns the compiled jump operators.
func (r *Register) LindbladTerms() []LindbladTerm {
	out := make([]LindbladTerm, len(r.lindblad))
	copy(out, r.lindblad)
	return out
}

// Icons returns a copy of the concept data the operators are built from.
func (r *Register) Icons() IconSet { return r.icons.Clone() }

// SetIcons replaces the concept data and recompiles the operators.
func (r *Register) SetIcons(icons IconSet) {
	if icons == nil {
		icons = IconSet{}
	}
	r.icons = icons.Clone()
	r.rebuildOperators()
}

// LoadDensityMatrix replaces ρ with a state of matching dimension.
// The state is Hermitized and must pass the invariant checks.
func (r *Register) LoadDensityMatrix(rho *Matrix) Result {
	if rho == nil || rho.Dim() != r.Dim() {
		return Failed("density matrix dimension mismatch: want %d", r.Dim())
	}
	prev := r.rho
	r.rho = rho.Clone()
	r.rho.Hermitize()
	if err := r.checkState(); err != nil {
		r.rho = prev
		return Failed("invalid density matrix: %v", err)
	}
	return Succeeded()
}

// Occupied reports the number of bound register slots.
func (r *Register) Occupied() int { return r.regmap.OccupiedCount() }

func (r *Register) validQubit(q int) bool {
	return q >= 0 && q < r.regmap.NumQubits()
}

// rebuildOperators recompiles H and the Lindblad terms from scratch.
func (r *Register) rebuildOperators() {
	ops := BuildOperators(r.icons, r.regmap)
	r.hamiltonian = ops.Hamiltonian
	r.lindblad = ops.Lindblad

	g := r.hamiltonian.Scaled(1i)
	r.jumps = make([]*columnOp, len(r.lindblad))
	for i, term := range r.lindblad {
		g.AddScaled(complex(0.5*term.Rate, 0), term.Op.Dagger().Mul(term.Op))
		r.jumps[i] = newColumnOp(term.Op)
	}
	r.generator = g
	r.m0 = nil
}

// ApplyGate conjugates ρ by the single-qubit unitary u acting on qubit.
func (r *Register) ApplyGate(qubit int, u *Matrix) GateResult {
	if !r.validQubit(qubit) {
		return GateResult{Result: Failed("qubit %d out of range (%d qubits)", qubit, r.NumQubits())}
	}
	if u == nil || u.Dim() != 2 {
		return GateResult{Result: Failed("single-qubit gate must be 2x2")}
	}
	if !u.IsUnitary(1e-9) {
		return GateResult{Result: Failed("gate is not unitary")}
	}
	full := EmbedSingle(u, qubit, r.NumQubits())
	r.rho = r.rho.Conjugate(full)
	r.rho.Hermitize()
	return GateResult{Result: Succeeded(), Qubits: []int{qubit}}
}

// ApplyGate2Q conjugates ρ by the 4×4 unitary u acting on (a, b), with a as
// the more significant index of u.
func (r *Register) ApplyGate2Q(a, b int, u *Matrix) GateResult {
	if !r.validQubit(a) || !r.validQubit(b) {
		return GateResult{Result: Failed("qubits (%d,%d) out of range (%d qubits)", a, b, r.NumQubits())}
	}
	if a == b {
		return GateResult{Result: Failed("two-qubit gate needs distinct qubits")}
	}
	if u == nil || u.Dim() != 4 {
		return GateResult{Result: Failed("two-qubit gate must be 4x4")}
	}
	if !u.IsUnitary(1e-9) {
		return GateResult{Result: Failed("gate is not unitary")}
	}
	full := EmbedTwo(u, a, b, r.NumQubits())
	r.rho = r.rho.Conjugate(full)
	r.rho.Hermitize()
	return GateResult{Result: Succeeded(), Qubits: []int{a, b}}
}

// Entangle applies H on a then CNOT(a→b) and records the link. From |00⟩ this
// prepares the Bell state φ+.
func (r *Register) Entangle(a, b int) GateResult {
	if !r.validQubit(a) || !r.validQubit(b) || a == b {
		return GateResult{Result: Failed("cannot entangle qubits (%d,%d)", a, b)}
	}
	if res := r.ApplyGate(a, Hadamard()); !res.Success {
		return res
	}
	res := r.ApplyGate2Q(a, b, CNOT())
	if res.Success {
		r.Link(a, b)
	}
	return res
}
