package quantum

import "math"

// ApplyDrive pumps population into label's basis state on its qubit.
// The transfer probability for this step is clamp(rate·dt, 0, 1).
func (r *Register) ApplyDrive(label string, rate, dt float64) DissipationResult {
	c, ok := r.regmap.Coordinate(label)
	if !ok {
		return DissipationResult{Result: Failed("label %q is not bound", label), Qubit: -1}
	}
	if rate < 0 || dt < 0 {
		return DissipationResult{Result: Failed("rate and dt must be non-negative"), Qubit: c.Qubit}
	}
	moved := r.damp(c.Qubit, c.Pole.Opposite(), c.Pole, rate*dt)
	return DissipationResult{Result: Succeeded(), Qubit: c.Qubit, Transferred: moved}
}

// ApplyDecay relaxes qubit toward its north pole.
func (r *Register) ApplyDecay(qubit int, rate, dt float64) DissipationResult {
	if !r.validQubit(qubit) {
		return DissipationResult{Result: Failed("qubit %d out of range (%d qubits)", qubit, r.NumQubits()), Qubit: qubit}
	}
	if rate < 0 || dt < 0 {
		return DissipationResult{Result: Failed("rate and dt must be non-negative"), Qubit: qubit}
	}
	moved := r.damp(qubit, South, North, rate*dt)
	return DissipationResult{Result: Succeeded(), Qubit: qubit, Transferred: moved}
}

// damp applies the amplitude-damping channel from → to on qubit with
// probability p and returns the population moved. The Kraus pair
//
//	K0 = |to⟩⟨to| + √(1−p)|from⟩⟨from|,  K1 = √p |to⟩⟨from|
//
// is CPTP for every p in [0,1].
func (r *Register) damp(qubit int, from, to Pole, p float64) float64 {
	p = math.Max(0, math.Min(1, p))
	if p == 0 {
		return 0
	}
	before := r.poleProbability(qubit, from)

	k0 := NewMatrix(2)
	k0.Set(to.Bit(), to.Bit(), 1)
	k0.Set(from.Bit(), from.Bit(), complex(math.Sqrt(1-p), 0))
	k1 := NewMatrix(2)
	k1.Set(to.Bit(), from.Bit(), complex(math.Sqrt(p), 0))

	n := r.NumQubits()
	next := r.rho.Conjugate(EmbedSingle(k0, qubit, n))
	next = next.Plus(r.rho.Conjugate(EmbedSingle(k1, qubit, n)))
	next.Hermitize()
	r.rho = next
	return p * before
}
