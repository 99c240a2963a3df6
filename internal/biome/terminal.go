package biome

import (
	"fmt"
	"time"
)

// TerminalState tracks a terminal through explore, measure and pop.
type TerminalState int

const (
	// Unbound terminals hold no register slot.
	Unbound TerminalState = iota
	// BoundUnmeasured terminals own a qubit still in superposition.
	BoundUnmeasured
	// BoundMeasured terminals own a collapsed qubit waiting to be popped.
	BoundMeasured
)

var terminalStateNames = map[TerminalState]string{
	Unbound:         "unbound",
	BoundUnmeasured: "bound_unmeasured",
	BoundMeasured:   "bound_measured",
}

// String returns the state name.
func (s TerminalState) String() string {
	if name, ok := terminalStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TerminalState(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s TerminalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal binds one plot position to one register slot.
type Terminal struct {
	ID          string        `json:"id"`
	State       TerminalState `json:"state"`
	Position    int           `json:"position"`
	Qubit       int           `json:"qubit"`
	North       string        `json:"north"`
	South       string        `json:"south"`
	Outcome     string        `json:"outcome,omitempty"`
	Probability float64       `json:"probability,omitempty"`
	BoundAt     time.Time     `json:"bound_at"`
	MeasuredAt  *time.Time    `json:"measured_at,omitempty"`
}
