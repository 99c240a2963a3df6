package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// Single-qubit gate constructors.

// Hadamard returns H.
func Hadamard() *Matrix {
	h := complex(1/math.Sqrt2, 0)
	return NewMatrixFromRows([][]Complex{{h, h}, {h, -h}})
}

// PauliX returns X.
func PauliX() *Matrix {
	return NewMatrixFromRows([][]Complex{{0, 1}, {1, 0}})
}

// PauliY returns Y.
func PauliY() *Matrix {
	return NewMatrixFromRows([][]Complex{{0, -1i}, {1i, 0}})
}

// PauliZ returns Z.
func PauliZ() *Matrix {
	return NewMatrixFromRows([][]Complex{{1, 0}, {0, -1}})
}

// PhaseS returns S = diag(1, i).
func PhaseS() *Matrix {
	return NewMatrixFromRows([][]Complex{{1, 0}, {0, 1i}})
}

// PhaseT returns T = diag(1, e^{iπ/4}).
func PhaseT() *Matrix {
	return NewMatrixFromRows([][]Complex{{1, 0}, {0, cmplx.Exp(complex(0, math.Pi/4))}})
}

// RotationX returns exp(−iθX/2).
func RotationX(theta float64) *Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	return NewMatrixFromRows([][]Complex{{c, s}, {s, c}})
}

// RotationY returns exp(−iθY/2).
func RotationY(theta float64) *Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return NewMatrixFromRows([][]Complex{{c, -s}, {s, c}})
}

// RotationZ returns exp(−iθZ/2).
func RotationZ(theta float64) *Matrix {
	return NewMatrixFromRows([][]Complex{
		{cmplx.Exp(complex(0, -theta/2)), 0},
		{0, cmplx.Exp(complex(0, theta/2))},
	})
}

// Two-qubit gates act on |a b⟩ with a as the more significant index.

// CNOT returns the controlled-X with the first qubit as control.
func CNOT() *Matrix {
	return NewMatrixFromRows([][]Complex{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 0, 1},
		{0, 0, 1, 0},
	})
}

// CZ returns the controlled-Z.
func CZ() *Matrix {
	return NewMatrixFromRows([][]Complex{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, -1},
	})
}

// Swap returns SWAP.
func Swap() *Matrix {
	return NewMatrixFromRows([][]Complex{
		{1, 0, 0, 0},
		{0, 0, 1, 0},
		{0, 1, 0, 0},
		{0, 0, 0, 1},
	})
}

// GateByName resolves a named gate and reports how many qubits it acts on.
// Rotations read their angle from params[0] and default to zero.
func GateByName(name string, params ...float64) (*Matrix, int, error) {
	theta := 0.0
	if len(params) > 0 {
		theta = params[0]
	}
	switch strings.ToUpper(name) {
	case "H":
		return Hadamard(), 1, nil
	case "X", "NOT":
		return PauliX(), 1, nil
	case "Y":
		return PauliY(), 1, nil
	case "Z":
		return PauliZ(), 1, nil
	case "S":
		return PhaseS(), 1, nil
	case "T":
		return PhaseT(), 1, nil
	case "RX":
		return RotationX(theta), 1, nil
	case "RY":
		return RotationY(theta), 1, nil
	case "RZ":
		return RotationZ(theta), 1, nil
	case "CNOT", "CX":
		return CNOT(), 2, nil
	case "CZ":
		return CZ(), 2, nil
	case "SWAP":
		return Swap(), 2, nil
	default:
		return nil, 0, fmt.Errorf("unknown gate %q", name)
	}
}

// bitPos returns the basis-index bit position of qubit in an n-qubit register.
func bitPos(qubit, n int) int {
	return n - 1 - qubit
}

// EmbedSingle lifts a 2×2 operator on qubit to the full n-qubit space.
func EmbedSingle(op *Matrix, qubit, n int) *Matrix {
	if op.Dim() != 2 {
		panic(fmt.Sprintf("quantum: single-qubit operator has dim %d", op.Dim()))
	}
	dim := 1 << n
	pos := bitPos(qubit, n)
	mask := 1 << pos
	full := NewMatrix(dim)
	for i := 0; i < dim; i++ {
		bi := (i >> pos) & 1
		base := i &^ mask
		for bj := 0; bj < 2; bj++ {
			v := op.data[bi*2+bj]
			if v == 0 {
				continue
			}
			full.data[i*dim+(base|bj<<pos)] = v
		}
	}
	return full
}

// EmbedTwo lifts a 4×4 operator on (a, b) to the full n-qubit space.
func EmbedTwo(op *Matrix, a, b, n int) *Matrix {
	if op.Dim() != 4 {
		panic(fmt.Sprintf("quantum: two-qubit operator has dim %d", op.Dim()))
	}
	if a == b {
		panic("quantum: two-qubit operator needs distinct qubits")
	}
	dim := 1 << n
	pa, pb := bitPos(a, n), bitPos(b, n)
	mask := 1<<pa | 1<<pb
	full := NewMatrix(dim)
	for i := 0; i < dim; i++ {
		row := ((i>>pa)&1)<<1 | (i>>pb)&1
		base := i &^ mask
		for col := 0; col < 4; col++ {
			v := op.data[row*4+col]
			if v == 0 {
				continue
			}
			j := base | (col>>1)<<pa | (col&1)<<pb
			full.data[i*dim+j] = v
		}
	}
	return full
}

// poleProjector returns |p⟩⟨p| as a 2×2 matrix.
func poleProjector(p Pole) *Matrix {
	m := NewMatrix(2)
	m.Set(p.Bit(), p.Bit(), 1)
	return m
}

// poleTransition returns |to⟩⟨from| as a 2×2 matrix.
func poleTransition(from, to Pole) *Matrix {
	m := NewMatrix(2)
	m.Set(to.Bit(), from.Bit(), 1)
	return m
}
