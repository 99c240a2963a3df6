package quantum

import "sort"

// QubitInfra is per-slot infrastructure that outlives measurement and rebinding.
type QubitInfra struct {
	// Blueprints lists partner qubits this slot should be re-entangled with.
	Blueprints map[int]struct{} `json:"-"`
	// GateConfig names the gate installed on this slot, if any.
	GateConfig string `json:"gate_config,omitempty"`
}

// Partners returns the blueprint partners in ascending order.
func (q *QubitInfra) Partners() []int {
	out := make([]int, 0, len(q.Blueprints))
	for p := range q.Blueprints {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Link records a symmetric entanglement edge between a and b.
func (r *Register) Link(a, b int) bool {
	if !r.validQubit(a) || !r.validQubit(b) || a == b {
		return false
	}
	r.addEdge(a, b)
	r.addEdge(b, a)
	return true
}

func (r *Register) addEdge(a, b int) {
	set, ok := r.links[a]
	if !ok {
		set = make(map[int]struct{})
		r.links[a] = set
	}
	set[b] = struct{}{}
}

// Unlink removes the edge between a and b in both directions.
func (r *Register) Unlink(a, b int) {
	r.dropEdge(a, b)
	r.dropEdge(b, a)
}

func (r *Register) dropEdge(a, b int) {
	set, ok := r.links[a]
	if !ok {
		return
	}
	delete(set, b)
	if len(set) == 0 {
		delete(r.links, a)
	}
}

// Links returns the direct partners of qubit in ascending order.
func (r *Register) Links(qubit int) []int {
	out := make([]int, 0, len(r.links[qubit]))
	for p := range r.links[qubit] {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// IsLinked reports whether a and b share an edge.
func (r *Register) IsLinked(a, b int) bool {
	_, ok := r.links[a][b]
	return ok
}

// ComponentOf returns every qubit reachable from qubit through recorded
// links, qubit included, in ascending order.
func (r *Register) ComponentOf(qubit int) []int {
	if !r.validQubit(qubit) {
		return nil
	}
	seen := map[int]struct{}{qubit: {}}
	queue := []int{qubit}
	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		for p := range r.links[q] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			queue = append(queue, p)
		}
	}
	out := make([]int, 0, len(seen))
	for q := range seen {
		out = append(out, q)
	}
	sort.Ints(out)
	return out
}

// ClearLinks drops every edge touching the given qubits.
func (r *Register) ClearLinks(qubits []int) {
	for _, q := range qubits {
		for p := range r.links[q] {
			r.dropEdge(p, q)
		}
		delete(r.links, q)
	}
}

// Edge is one undirected entanglement link with A < B.
type Edge struct {
	A int `json:"a" msgpack:"a"`
	B int `json:"b" msgpack:"b"`
}

// Edges lists every link once, sorted.
func (r *Register) Edges() []Edge {
	var out []Edge
	for a, set := range r.links {
		for b := range set {
			if a < b {
				out = append(out, Edge{A: a, B: b})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Infra returns the infrastructure record for qubit, creating it on first use.
func (r *Register) Infra(qubit int) (*QubitInfra, bool) {
	if !r.validQubit(qubit) {
		return nil, false
	}
	inf, ok := r.infra[qubit]
	if !ok {
		inf = &QubitInfra{Blueprints: make(map[int]struct{})}
		r.infra[qubit] = inf
	}
	return inf, true
}

// InstallGate records the gate configured on qubit. An empty name uninstalls.
func (r *Register) InstallGate(qubit int, name string) bool {
	inf, ok := r.Infra(qubit)
	if !ok {
		return false
	}
	inf.GateConfig = name
	return true
}

// AddBlueprint records that a and b should be kept entangled.
func (r *Register) AddBlueprint(a, b int) bool {
	if a == b {
		return false
	}
	ia, ok := r.Infra(a)
	if !ok {
		return false
	}
	ib, ok := r.Infra(b)
	if !ok {
		return false
	}
	ia.Blueprints[b] = struct{}{}
	ib.Blueprints[a] = struct{}{}
	return true
}

// reindexAfterRemoval drops graph edges and infra touching removed and shifts
// every higher index down by one.
func (r *Register) reindexAfterRemoval(removed int) {
	links := make(map[int]map[int]struct{}, len(r.links))
	for a, set := range r.links {
		na, ok := ShiftIndex(a, removed)
		if !ok {
			continue
		}
		for b := range set {
			nb, ok := ShiftIndex(b, removed)
			if !ok {
				continue
			}
			if links[na] == nil {
				links[na] = make(map[int]struct{})
			}
			links[na][nb] = struct{}{}
		}
	}
	r.links = links

	infra := make(map[int]*QubitInfra, len(r.infra))
	for q, inf := range r.infra {
		nq, ok := ShiftIndex(q, removed)
		if !ok {
			continue
		}
		bp := make(map[int]struct{}, len(inf.Blueprints))
		for p := range inf.Blueprints {
			if np, ok := ShiftIndex(p, removed); ok {
				bp[np] = struct{}{}
			}
		}
		infra[nq] = &QubitInfra{Blueprints: bp, GateConfig: inf.GateConfig}
	}
	r.infra = infra
}

// InfraRecord is a read-only copy of one slot's infrastructure.
type InfraRecord struct {
	Qubit      int    `json:"qubit"`
	GateConfig string `json:"gate_config,omitempty"`
	Blueprints []int  `json:"blueprints,omitempty"`
}

// InfraRecords lists every slot with an installed gate or blueprint, by qubit.
func (r *Register) InfraRecords() []InfraRecord {
	var out []InfraRecord
	for q, inf := range r.infra {
		if inf.GateConfig == "" && len(inf.Blueprints) == 0 {
			continue
		}
		out = append(out, InfraRecord{Qubit: q, GateConfig: inf.GateConfig, Blueprints: inf.Partners()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Qubit < out[j].Qubit })
	return out
}
