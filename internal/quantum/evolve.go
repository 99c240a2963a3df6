package quantum

import (
	"math"
	"math/cmplx"
)

// Evolve integrates the Lindblad master equation
//
//	dρ/dt = −i[H,ρ] + Σ γ (LρL† − ½{L†L, ρ})
//
// over dt, split into equal substeps no longer than Config.MaxStepDT.
func (r *Register) Evolve(dt float64) EvolveResult {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return EvolveResult{Result: Failed("invalid dt %v", dt)}
	}
	if dt == 0 || r.NumQubits() == 0 {
		return EvolveResult{Result: Succeeded()}
	}
	if r.hamiltonian.IsZero(0) && len(r.lindblad) == 0 {
		return EvolveResult{Result: Succeeded(), DT: dt}
	}

	steps := int(math.Ceil(dt / r.cfg.MaxStepDT))
	if steps < 1 {
		steps = 1
	}
	sub := dt / float64(steps)
	for i := 0; i < steps; i++ {
		r.step(sub)
	}
	return EvolveResult{Result: Succeeded(), Substeps: steps, DT: dt}
}

// step advances ρ by one substep in first-order Kraus form:
//
//	ρ' = M₀ρM₀† + dt Σ γ LρL†,  M₀ = I − dt(iH + ½Σ γ L†L)
//
// Every term is of the form AρA† with a non-negative weight, so ρ' stays
// positive semi-definite; the O(dt²) trace excess is removed by renormalizing.
func (r *Register) step(dt float64) {
	m0 := r.propagator(dt)

	// ρ is Hermitian, so M₀(M₀ρ)† = M₀ρM₀† with the sparse M₀ on the left
	// of both products.
	next := m0.Mul(m0.Mul(r.rho).Dagger())
	for i, term := range r.lindblad {
		w := complex(dt*term.Rate, 0)
		if jump := r.jumps[i]; jump != nil {
			jump.addConjugated(next, r.rho, w)
			continue
		}
		next.AddScaled(w, r.rho.Conjugate(term.Op))
	}
	next.Hermitize()
	if tr := real(next.Trace()); tr > r.cfg.Epsilon {
		next = next.Scaled(complex(1/tr, 0))
	}
	r.rho = next
}

// propagator returns M₀ for dt, reusing the last one while dt is unchanged.
func (r *Register) propagator(dt float64) *Matrix {
	if r.m0 == nil || r.m0DT != dt || r.m0.Dim() != r.Dim() {
		m0 := Identity(r.Dim())
		m0.AddScaled(complex(-dt, 0), r.generator)
		r.m0, r.m0DT = m0, dt
	}
	return r.m0
}

// columnOp is an operator with at most one nonzero entry per column: column
// k maps to row rows[k] with amplitude amps[k], or nowhere when rows[k] < 0.
// Every transfer, drive and decay jump operator has this shape.
type columnOp struct {
	rows []int
	amps []Complex
}

// newColumnOp returns nil when m has a column with more than one nonzero.
func newColumnOp(m *Matrix) *columnOp {
	n := m.Dim()
	op := &columnOp{rows: make([]int, n), amps: make([]Complex, n)}
	for k := 0; k < n; k++ {
		op.rows[k] = -1
		for i := 0; i < n; i++ {
			v := m.data[i*n+k]
			if v == 0 {
				continue
			}
			if op.rows[k] >= 0 {
				return nil
			}
			op.rows[k], op.amps[k] = i, v
		}
	}
	return op
}

// addConjugated accumulates w·LρL† into dst in O(dim²).
func (op *columnOp) addConjugated(dst, rho *Matrix, w Complex) {
	n := rho.Dim()
	for k, rk := range op.rows {
		if rk < 0 {
			continue
		}
		ak := w * op.amps[k]
		src := rho.data[k*n : (k+1)*n]
		out := dst.data[rk*n : (rk+1)*n]
		for l, rl := range op.rows {
			if rl < 0 {
				continue
			}
			out[rl] += ak * src[l] * cmplx.Conj(op.amps[l])
		}
	}
}
