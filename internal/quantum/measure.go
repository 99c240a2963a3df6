package quantum

import "math"

// poleProbability sums the diagonal of ρ over basis states where qubit sits on pole.
func (r *Register) poleProbability(qubit int, p Pole) float64 {
	shift := bitPos(qubit, r.NumQubits())
	want := p.Bit()
	sum := 0.0
	for i := 0; i < r.Dim(); i++ {
		if (i>>shift)&1 == want {
			sum += real(r.rho.At(i, i))
		}
	}
	return sum
}

// Population returns the probability mass in label's basis state.
func (r *Register) Population(label string) (float64, bool) {
	c, ok := r.regmap.Coordinate(label)
	if !ok {
		return 0, false
	}
	return r.poleProbability(c.Qubit, c.Pole), true
}

// MeasureAxis performs a projective measurement of the qubit carrying the two
// labels. The labels may be given in either order. The projector acts on the
// full state, so every qubit entangled with the measured one collapses too;
// clearing the recorded links of Component is left to the caller.
func (r *Register) MeasureAxis(north, south string) MeasureResult {
	cn, ok := r.regmap.Coordinate(north)
	if !ok {
		return MeasureResult{Result: Failed("label %q is not bound", north), Qubit: -1}
	}
	cs, ok := r.regmap.Coordinate(south)
	if !ok {
		return MeasureResult{Result: Failed("label %q is not bound", south), Qubit: -1}
	}
	if cn.Qubit != cs.Qubit || cn.Pole == cs.Pole {
		return MeasureResult{Result: Failed("labels %q and %q are not one axis", north, south), Qubit: -1}
	}
	return r.MeasureQubit(cn.Qubit)
}

// MeasureQubit measures qubit in its north/south basis.
func (r *Register) MeasureQubit(qubit int) MeasureResult {
	if !r.validQubit(qubit) {
		return MeasureResult{Result: Failed("qubit %d out of range (%d qubits)", qubit, r.NumQubits()), Qubit: qubit}
	}
	pn := math.Max(0, r.poleProbability(qubit, North))
	ps := math.Max(0, r.poleProbability(qubit, South))
	total := pn + ps
	if total < r.cfg.Epsilon {
		return MeasureResult{Result: Failed("axis population %.3g below epsilon", total), Qubit: qubit}
	}

	pole, prob := South, ps/total
	if r.rng.Float64()*total < pn {
		pole, prob = North, pn/total
	}
	component := r.ComponentOf(qubit)
	r.project(qubit, pole)

	axis, _ := r.regmap.Axis(qubit)
	r.log.Debug().
		Int("qubit", qubit).
		Str("outcome", axis.Label(pole)).
		Float64("probability", prob).
		Ints("component", component).
		Msg("Measured axis")

	return MeasureResult{
		Result:      Succeeded(),
		Qubit:       qubit,
		Outcome:     axis.Label(pole),
		Pole:        pole,
		Probability: prob,
		Component:   component,
	}
}

// project applies ρ ← ΠρΠ / Tr(ΠρΠ) with Π the projector onto pole of qubit.
// Zeroing rows and columns outside the subspace is ΠρΠ for a diagonal Π.
func (r *Register) project(qubit int, p Pole) {
	shift := bitPos(qubit, r.NumQubits())
	want := p.Bit()
	dim := r.Dim()
	out := NewMatrix(dim)
	tr := 0.0
	for i := 0; i < dim; i++ {
		if (i>>shift)&1 != want {
			continue
		}
		tr += real(r.rho.At(i, i))
		for j := 0; j < dim; j++ {
			if (j>>shift)&1 == want {
				out.Set(i, j, r.rho.At(i, j))
			}
		}
	}
	if tr > 0 {
		out = out.Scaled(complex(1/tr, 0))
	}
	out.Hermitize()
	r.rho = out
}
