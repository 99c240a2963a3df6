package quantum

// Expand appends a qubit carrying the two labels, initialised to north:
// ρ ← ρ ⊗ |0⟩⟨0|. Capacity and labels are validated before anything changes.
func (r *Register) Expand(north, south string) ExpandResult {
	n := r.NumQubits()
	if n >= r.cfg.MaxQubits {
		return ExpandResult{Result: Failed("register full: %d of %d qubits", n, r.cfg.MaxQubits), Qubit: -1, NewDim: r.Dim(), NewNumQubits: n}
	}
	if err := r.regmap.CanAdd(north, south); err != nil {
		return ExpandResult{Result: Failed("cannot add axis %s/%s: %v", north, south, err), Qubit: -1, NewDim: r.Dim(), NewNumQubits: n}
	}

	q, err := r.regmap.AddAxis(north, south)
	if err != nil {
		return ExpandResult{Result: Failed("cannot add axis %s/%s: %v", north, south, err), Qubit: -1, NewDim: r.Dim(), NewNumQubits: n}
	}
	r.rho = r.rho.Kron(poleProjector(North))
	r.rebuildOperators()

	r.log.Info().
		Str("north", north).
		Str("south", south).
		Int("qubit", q).
		Int("dim", r.Dim()).
		Msg("Register expanded")

	return ExpandResult{Result: Succeeded(), Qubit: q, NewDim: r.Dim(), NewNumQubits: r.NumQubits()}
}

// Shrink traces qubit out of ρ, removes its labels and renumbers everything
// above it. Occupied qubits are refused.
func (r *Register) Shrink(qubit int) ShrinkResult {
	n := r.NumQubits()
	if !r.validQubit(qubit) {
		return ShrinkResult{Result: Failed("qubit %d out of range (%d qubits)", qubit, n), Removed: qubit, NewDim: r.Dim(), NewNumQubits: n}
	}
	if r.regmap.IsOccupied(qubit) {
		return ShrinkResult{Result: Failed("qubit %d is bound to a terminal", qubit), Removed: qubit, NewDim: r.Dim(), NewNumQubits: n}
	}

	reduced := PartialTrace(r.rho, qubit, n)
	axis, _ := r.regmap.RemoveAxis(qubit)
	r.regmap.Compact(qubit)
	r.reindexAfterRemoval(qubit)
	r.rho = reduced
	r.rebuildOperators()

	r.log.Info().
		Str("north", axis.North).
		Str("south", axis.South).
		Int("qubit", qubit).
		Int("dim", r.Dim()).
		Msg("Register shrunk")

	return ShrinkResult{Result: Succeeded(), Removed: qubit, RemovedLabels: axis, NewDim: r.Dim(), NewNumQubits: r.NumQubits()}
}

// PartialTrace traces qubit out of an n-qubit operator by bit insertion: each
// reduced element (i, j) sums the entries with a 0 and a 1 inserted at the
// qubit's bit position.
func PartialTrace(rho *Matrix, qubit, n int) *Matrix {
	if n <= 0 || qubit < 0 || qubit >= n || rho.Dim() != 1<<n {
		panic("quantum: partial trace out of range")
	}
	p := bitPos(qubit, n)
	dim := 1 << (n - 1)
	out := NewMatrix(dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			var sum Complex
			for b := 0; b < 2; b++ {
				sum += rho.At(insertBit(i, p, b), insertBit(j, p, b))
			}
			out.Set(i, j, sum)
		}
	}
	return out
}

// insertBit inserts b at position p of i, shifting higher bits left.
func insertBit(i, p, b int) int {
	low := i & ((1 << p) - 1)
	return ((i >> p) << (p + 1)) | (b << p) | low
}

// ReducedState returns the density matrix of the listed qubits, tracing out
// every other one. The kept qubits stay in ascending order.
func (r *Register) ReducedState(keep ...int) (*Matrix, bool) {
	n := r.NumQubits()
	wanted := make(map[int]bool, len(keep))
	for _, q := range keep {
		if !r.validQubit(q) || wanted[q] {
			return nil, false
		}
		wanted[q] = true
	}
	rho := r.rho
	m := n
	// Trace from the highest index down so lower indices stay valid.
	for q := n - 1; q >= 0; q-- {
		if wanted[q] {
			continue
		}
		rho = PartialTrace(rho, q, m)
		m--
	}
	if rho == r.rho {
		rho = rho.Clone()
	}
	return rho, true
}
