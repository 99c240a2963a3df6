package quantum

import "sort"

// LindbladTerm is one jump operator with its rate. Source and Target name the
// labels the channel moves population between.
type LindbladTerm struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Rate   float64 `json:"rate"`
	Op     *Matrix `json:"-"`
}

// Operators is the compiled dynamics of one register.
type Operators struct {
	Hamiltonian *Matrix
	Lindblad    []LindbladTerm
}

// BuildOperators compiles icons against the current register map.
func BuildOperators(icons IconSet, m *RegisterMap) Operators {
	return Operators{
		Hamiltonian: BuildHamiltonian(icons, m),
		Lindblad:    BuildLindblad(icons, m),
	}
}

// BuildHamiltonian returns the Hermitian generator for the bound labels.
// Self energies add pole projectors; couplings add σx on a shared qubit or a
// flip-flop exchange between two qubits. Each unordered pair contributes once,
// averaged when both icons declare it.
func BuildHamiltonian(icons IconSet, m *RegisterMap) *Matrix {
	n := m.NumQubits()
	h := NewMatrix(m.Dim())
	if n == 0 {
		return h
	}

	type pair struct{ a, b string }
	sums := make(map[pair]float64)
	counts := make(map[pair]int)

	for _, label := range icons.Labels() {
		c, ok := m.Coordinate(label)
		if !ok {
			continue
		}
		ic := icons[label]
		if ic.SelfEnergy != 0 {
			h.AddScaled(complex(ic.SelfEnergy, 0), EmbedSingle(poleProjector(c.Pole), c.Qubit, n))
		}
		for _, other := range sortedKeys(ic.Couplings) {
			if other == label || !m.Has(other) {
				continue
			}
			key := pair{label, other}
			if other < label {
				key = pair{other, label}
			}
			sums[key] += ic.Couplings[other]
			counts[key]++
		}
	}

	keys := make([]pair, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})

	for _, k := range keys {
		g := sums[k] / float64(counts[k])
		if g == 0 {
			continue
		}
		ca, _ := m.Coordinate(k.a)
		cb, _ := m.Coordinate(k.b)
		var hop *Matrix
		if ca.Qubit == cb.Qubit {
			hop = EmbedSingle(poleTransition(cb.Pole, ca.Pole), ca.Qubit, n)
		} else {
			local := poleTransition(ca.Pole.Opposite(), ca.Pole).Kron(poleTransition(cb.Pole, cb.Pole.Opposite()))
			hop = EmbedTwo(local, ca.Qubit, cb.Qubit, n)
		}
		h.AddScaled(complex(g, 0), hop)
		h.AddScaled(complex(g, 0), hop.Dagger())
	}
	return h
}

// BuildLindblad returns the jump operators for the bound labels. Channels with
// the same source and target are merged by summing their rates.
func BuildLindblad(icons IconSet, m *RegisterMap) []LindbladTerm {
	n := m.NumQubits()
	if n == 0 {
		return nil
	}

	type channel struct{ src, dst string }
	var order []channel
	rates := make(map[channel]float64)
	ops := make(map[channel]*Matrix)

	add := func(src, dst string, rate float64, op *Matrix) {
		if rate <= 0 || op == nil {
			return
		}
		ch := channel{src, dst}
		if _, seen := rates[ch]; !seen {
			order = append(order, ch)
			ops[ch] = op
		}
		rates[ch] += rate
	}

	for _, label := range icons.Labels() {
		c, ok := m.Coordinate(label)
		if !ok {
			continue
		}
		ic := icons[label]
		for _, dst := range sortedKeys(ic.LindbladOutgoing) {
			add(label, dst, ic.LindbladOutgoing[dst], transferOperator(m, label, dst))
		}
		for _, src := range sortedKeys(ic.LindbladIncoming) {
			add(src, label, ic.LindbladIncoming[src], transferOperator(m, src, label))
		}
		if ic.Drive > 0 {
			axis, _ := m.Axis(c.Qubit)
			add(axis.Label(c.Pole.Opposite()), label, ic.Drive,
				EmbedSingle(poleTransition(c.Pole.Opposite(), c.Pole), c.Qubit, n))
		}
		if ic.Decay != nil && ic.Decay.Rate > 0 {
			target := ic.Decay.Target
			if target != "" && target != label && m.Has(target) {
				add(label, target, ic.Decay.Rate, transferOperator(m, label, target))
			} else {
				axis, _ := m.Axis(c.Qubit)
				add(label, axis.Label(c.Pole.Opposite()), ic.Decay.Rate,
					EmbedSingle(poleTransition(c.Pole, c.Pole.Opposite()), c.Qubit, n))
			}
		}
	}

	terms := make([]LindbladTerm, 0, len(order))
	for _, ch := range order {
		terms = append(terms, LindbladTerm{Source: ch.src, Target: ch.dst, Rate: rates[ch], Op: ops[ch]})
	}
	return terms
}

// transferOperator moves population from the src label's basis state into the
// dst label's basis state. It returns nil when either label is unbound.
func transferOperator(m *RegisterMap, src, dst string) *Matrix {
	if src == dst {
		return nil
	}
	cs, ok := m.Coordinate(src)
	if !ok {
		return nil
	}
	cd, ok := m.Coordinate(dst)
	if !ok {
		return nil
	}
	n := m.NumQubits()
	if cs.Qubit == cd.Qubit {
		return EmbedSingle(poleTransition(cs.Pole, cd.Pole), cs.Qubit, n)
	}
	local := poleTransition(cs.Pole, cs.Pole.Opposite()).Kron(poleTransition(cd.Pole.Opposite(), cd.Pole))
	return EmbedTwo(local, cs.Qubit, cd.Qubit, n)
}
