package quantum

import (
	"math"
	"math/cmplx"
)

// BlochVector is the single-qubit view of one register slot.
type BlochVector struct {
	Qubit int     `json:"qubit" msgpack:"qubit"`
	North string  `json:"north" msgpack:"north"`
	South string  `json:"south" msgpack:"south"`
	P0    float64 `json:"p0" msgpack:"p0"`
	P1    float64 `json:"p1" msgpack:"p1"`
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	Z     float64 `json:"z" msgpack:"z"`
	R     float64 `json:"r" msgpack:"r"`
	Theta float64 `json:"theta" msgpack:"theta"`
	Phi   float64 `json:"phi" msgpack:"phi"`
}

// BlochPacket is the canonical read-only export of a register.
type BlochPacket struct {
	NumQubits int           `json:"num_qubits" msgpack:"num_qubits"`
	Dim       int           `json:"dim" msgpack:"dim"`
	Purity    float64       `json:"purity" msgpack:"purity"`
	Qubits    []BlochVector `json:"qubits" msgpack:"qubits"`
	Edges     []Edge        `json:"edges" msgpack:"edges"`
}

// blochFromReduced derives the vector of a 2×2 reduced state.
func blochFromReduced(rho *Matrix) BlochVector {
	p0 := real(rho.At(0, 0))
	p1 := real(rho.At(1, 1))
	c := rho.At(0, 1)
	v := BlochVector{
		P0: p0,
		P1: p1,
		X:  2 * real(c),
		Y:  -2 * imag(c),
		Z:  p0 - p1,
	}
	v.R = math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if v.R > 0 {
		v.Theta = math.Acos(math.Max(-1, math.Min(1, v.Z/v.R)))
	}
	v.Phi = math.Atan2(v.Y, v.X)
	if cmplx.Abs(c) == 0 {
		v.Phi = 0
	}
	return v
}

// Bloch returns the vector of one qubit.
func (r *Register) Bloch(qubit int) (BlochVector, bool) {
	reduced, ok := r.ReducedState(qubit)
	if !ok {
		return BlochVector{}, false
	}
	v := blochFromReduced(reduced)
	v.Qubit = qubit
	if axis, ok := r.regmap.Axis(qubit); ok {
		v.North, v.South = axis.North, axis.South
	}
	return v, true
}

// ExportBlochPacket returns every qubit's Bloch data plus global purity.
func (r *Register) ExportBlochPacket() BlochPacket {
	packet := BlochPacket{
		NumQubits: r.NumQubits(),
		Dim:       r.Dim(),
		Purity:    r.Purity(),
		Qubits:    make([]BlochVector, 0, r.NumQubits()),
		Edges:     r.Edges(),
	}
	for q := 0; q < r.NumQubits(); q++ {
		v, _ := r.Bloch(q)
		packet.Qubits = append(packet.Qubits, v)
	}
	return packet
}

// Purity returns Tr(ρ²), clamped at zero.
func (r *Register) Purity() float64 {
	return math.Max(0, r.rho.HilbertSchmidt())
}
