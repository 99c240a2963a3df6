package quantum

import (
	"errors"
	"sort"
)

// Pole selects one of the two basis outcomes of a qubit axis.
type Pole int

const (
	// North is the |0⟩ pole.
	North Pole = iota
	// South is the |1⟩ pole.
	South
)

// String returns the pole name.
func (p Pole) String() string {
	switch p {
	case North:
		return "north"
	case South:
		return "south"
	default:
		return "unknown"
	}
}

// Opposite returns the other pole.
func (p Pole) Opposite() Pole {
	if p == North {
		return South
	}
	return North
}

// Bit returns the basis bit value of the pole.
func (p Pole) Bit() int {
	return int(p)
}

// Coordinate locates a label inside the register.
type Coordinate struct {
	Qubit int  `json:"qubit" msgpack:"qubit"`
	Pole  Pole `json:"pole" msgpack:"pole"`
}

// Axis holds the two labels bound to one qubit.
type Axis struct {
	North string `json:"north" yaml:"north" msgpack:"north"`
	South string `json:"south" yaml:"south" msgpack:"south"`
}

// Label returns the label on the given pole.
func (a Axis) Label(p Pole) string {
	if p == North {
		return a.North
	}
	return a.South
}

var (
	// ErrInvalidAxis is returned for empty or identical axis labels.
	ErrInvalidAxis = errors.New("axis needs two distinct non-empty labels")
	// ErrLabelInUse is returned when a label is already bound in the register.
	ErrLabelInUse = errors.New("label already bound to a qubit")
)

// RegisterMap maps semantic labels to (qubit, pole) coordinates and back.
// It also tracks which qubits are occupied by an external binding.
type RegisterMap struct {
	numQubits   int
	coordinates map[string]Coordinate
	axes        map[int]Axis
	occupied    map[int]struct{}
}

// NewRegisterMap returns an empty map.
func NewRegisterMap() *RegisterMap {
	return &RegisterMap{
		coordinates: make(map[string]Coordinate),
		axes:        make(map[int]Axis),
		occupied:    make(map[int]struct{}),
	}
}

// NumQubits returns the number of axes.
func (m *RegisterMap) NumQubits() int { return m.numQubits }

// Dim returns 2^NumQubits.
func (m *RegisterMap) Dim() int { return 1 << m.numQubits }

// Has reports whether label is bound.
func (m *RegisterMap) Has(label string) bool {
	_, ok := m.coordinates[label]
	return ok
}

// Qubit returns the qubit owning label.
func (m *RegisterMap) Qubit(label string) (int, bool) {
	c, ok := m.coordinates[label]
	if !ok {
		return -1, false
	}
	return c.Qubit, true
}

// Coordinate returns the coordinate of label.
func (m *RegisterMap) Coordinate(label string) (Coordinate, bool) {
	c, ok := m.coordinates[label]
	return c, ok
}

// Axis returns the labels of qubit.
func (m *RegisterMap) Axis(qubit int) (Axis, bool) {
	a, ok := m.axes[qubit]
	return a, ok
}

// CanAdd checks whether an axis could be appended without mutating the map.
func (m *RegisterMap) CanAdd(north, south string) error {
	if north == "" || south == "" || north == south {
		return ErrInvalidAxis
	}
	if m.Has(north) || m.Has(south) {
		return ErrLabelInUse
	}
	return nil
}

// AddAxis appends a new qubit carrying the two labels and returns its index.
func (m *RegisterMap) AddAxis(north, south string) (int, error) {
	if err := m.CanAdd(north, south); err != nil {
		return -1, err
	}
	q := m.numQubits
	m.axes[q] = Axis{North: north, South: south}
	m.coordinates[north] = Coordinate{Qubit: q, Pole: North}
	m.coordinates[south] = Coordinate{Qubit: q, Pole: South}
	m.numQubits++
	return q, nil
}

// RemoveAxis erases both labels of qubit and its occupancy. Remaining indices
// are left untouched; call Compact to renumber them.
func (m *RegisterMap) RemoveAxis(qubit int) (Axis, bool) {
	a, ok := m.axes[qubit]
	if !ok {
		return Axis{}, false
	}
	delete(m.axes, qubit)
	delete(m.coordinates, a.North)
	delete(m.coordinates, a.South)
	delete(m.occupied, qubit)
	m.numQubits--
	return a, true
}

// Compact shifts every qubit index above removed down by one.
func (m *RegisterMap) Compact(removed int) {
	axes := make(map[int]Axis, len(m.axes))
	for q, a := range m.axes {
		nq, ok := ShiftIndex(q, removed)
		if !ok {
			continue
		}
		axes[nq] = a
		m.coordinates[a.North] = Coordinate{Qubit: nq, Pole: North}
		m.coordinates[a.South] = Coordinate{Qubit: nq, Pole: South}
	}
	m.axes = axes

	occupied := make(map[int]struct{}, len(m.occupied))
	for q := range m.occupied {
		if nq, ok := ShiftIndex(q, removed); ok {
			occupied[nq] = struct{}{}
		}
	}
	m.occupied = occupied
}

// Labels returns every bound label in qubit order, north before south.
func (m *RegisterMap) Labels() []string {
	out := make([]string, 0, 2*len(m.axes))
	for _, q := range m.Qubits() {
		a := m.axes[q]
		out = append(out, a.North, a.South)
	}
	return out
}

// Qubits returns the used qubit indices in ascending order.
func (m *RegisterMap) Qubits() []int {
	qs := make([]int, 0, len(m.axes))
	for q := range m.axes {
		qs = append(qs, q)
	}
	sort.Ints(qs)
	return qs
}

// Occupy marks qubit as bound by an external occupant.
func (m *RegisterMap) Occupy(qubit int) bool {
	if _, ok := m.axes[qubit]; !ok {
		return false
	}
	if _, taken := m.occupied[qubit]; taken {
		return false
	}
	m.occupied[qubit] = struct{}{}
	return true
}

// Vacate releases qubit.
func (m *RegisterMap) Vacate(qubit int) bool {
	if _, ok := m.occupied[qubit]; !ok {
		return false
	}
	delete(m.occupied, qubit)
	return true
}

// IsOccupied reports whether qubit is bound.
func (m *RegisterMap) IsOccupied(qubit int) bool {
	_, ok := m.occupied[qubit]
	return ok
}

// OccupiedCount returns the number of bound qubits.
func (m *RegisterMap) OccupiedCount() int { return len(m.occupied) }

// FreeQubits returns unbound qubit indices in ascending order.
func (m *RegisterMap) FreeQubits() []int {
	free := make([]int, 0, len(m.axes))
	for _, q := range m.Qubits() {
		if _, taken := m.occupied[q]; !taken {
			free = append(free, q)
		}
	}
	return free
}

// ShiftIndex maps a qubit index across the removal of qubit removed.
// It reports false when idx is the removed qubit itself.
func ShiftIndex(idx, removed int) (int, bool) {
	switch {
	case idx == removed:
		return -1, false
	case idx > removed:
		return idx - 1, true
	default:
		return idx, true
	}
}
