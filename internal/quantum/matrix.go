// Package quantum implements the density-matrix engine behind every biome.
//
// A Register owns one density matrix ρ over a dynamically sized set of qubits,
// the Hamiltonian and Lindblad operators compiled from the biome's icons, and
// the bookkeeping that gameplay needs (label coordinates, entanglement links,
// per-qubit infrastructure). All state changes go through Register methods,
// which keep ρ Hermitian, trace one and positive semi-definite.
//
// Basis convention: the north pole of a qubit is |0⟩ and the south pole is |1⟩.
// Qubit 0 is the most significant bit of a basis index, so appending a qubit
// appends a least-significant bit.
package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Complex is the scalar type of every operator and density matrix.
type Complex = complex128

// Matrix is a dense square complex matrix stored row-major.
type Matrix struct {
	n    int
	data []Complex
}

// NewMatrix returns an n×n zero matrix.
func NewMatrix(n int) *Matrix {
	if n < 0 {
		panic(fmt.Sprintf("quantum: negative matrix dimension %d", n))
	}
	return &Matrix{n: n, data: make([]Complex, n*n)}
}

// Identity returns the n×n identity.
func Identity(n int) *Matrix {
	m := NewMatrix(n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// NewMatrixFromRows builds a matrix from square row data.
func NewMatrixFromRows(rows [][]Complex) *Matrix {
	n := len(rows)
	m := NewMatrix(n)
	for i, row := range rows {
		if len(row) != n {
			panic(fmt.Sprintf("quantum: row %d has %d entries, want %d", i, len(row), n))
		}
		copy(m.data[i*n:(i+1)*n], row)
	}
	return m
}

// Dim returns the matrix dimension.
func (m *Matrix) Dim() int { return m.n }

// At returns element (i, j).
func (m *Matrix) At(i, j int) Complex {
	m.check(i, j)
	return m.data[i*m.n+j]
}

// Set writes element (i, j).
func (m *Matrix) Set(i, j int, v Complex) {
	m.check(i, j)
	m.data[i*m.n+j] = v
}

// AddAt adds v to element (i, j).
func (m *Matrix) AddAt(i, j int, v Complex) {
	m.check(i, j)
	m.data[i*m.n+j] += v
}

func (m *Matrix) check(i, j int) {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		panic(fmt.Sprintf("quantum: index (%d,%d) out of range for dim %d", i, j, m.n))
	}
}

func (m *Matrix) mustMatch(b *Matrix) {
	if m.n != b.n {
		panic(fmt.Sprintf("quantum: dimension mismatch %d vs %d", m.n, b.n))
	}
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{n: m.n, data: make([]Complex, len(m.data))}
	copy(c.data, m.data)
	return c
}

// Mul returns m·b.
func (m *Matrix) Mul(b *Matrix) *Matrix {
	m.mustMatch(b)
	n := m.n
	out := NewMatrix(n)
	for i := 0; i < n; i++ {
		row := m.data[i*n : (i+1)*n]
		dst := out.data[i*n : (i+1)*n]
		for k, a := range row {
			if a == 0 {
				continue
			}
			bk := b.data[k*n : (k+1)*n]
			for j, v := range bk {
				dst[j] += a * v
			}
		}
	}
	return out
}

// Dagger returns the conjugate transpose.
func (m *Matrix) Dagger() *Matrix {
	n := m.n
	out := NewMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.data[j*n+i] = cmplx.Conj(m.data[i*n+j])
		}
	}
	return out
}

// Trace sums the diagonal.
func (m *Matrix) Trace() Complex {
	var t Complex
	for i := 0; i < m.n; i++ {
		t += m.data[i*m.n+i]
	}
	return t
}

// Plus returns m+b.
func (m *Matrix) Plus(b *Matrix) *Matrix {
	m.mustMatch(b)
	out := m.Clone()
	for i, v := range b.data {
		out.data[i] += v
	}
	return out
}

// Minus returns m−b.
func (m *Matrix) Minus(b *Matrix) *Matrix {
	m.mustMatch(b)
	out := m.Clone()
	for i, v := range b.data {
		out.data[i] -= v
	}
	return out
}

// Scaled returns c·m.
func (m *Matrix) Scaled(c Complex) *Matrix {
	out := m.Clone()
	for i := range out.data {
		out.data[i] *= c
	}
	return out
}

// AddScaled accumulates c·b into m in place.
func (m *Matrix) AddScaled(c Complex, b *Matrix) {
	m.mustMatch(b)
	for i, v := range b.data {
		m.data[i] += c * v
	}
}

// Kron returns the Kronecker product m ⊗ b.
func (m *Matrix) Kron(b *Matrix) *Matrix {
	n := m.n * b.n
	out := NewMatrix(n)
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			a := m.data[i*m.n+j]
			if a == 0 {
				continue
			}
			for k := 0; k < b.n; k++ {
				for l := 0; l < b.n; l++ {
					out.data[(i*b.n+k)*n+j*b.n+l] = a * b.data[k*b.n+l]
				}
			}
		}
	}
	return out
}

// Conjugate returns u·m·u†.
func (m *Matrix) Conjugate(u *Matrix) *Matrix {
	return u.Mul(m).Mul(u.Dagger())
}

// Hermitize replaces m with (m + m†)/2, removing round-off asymmetry.
func (m *Matrix) Hermitize() {
	n := m.n
	for i := 0; i < n; i++ {
		m.data[i*n+i] = complex(real(m.data[i*n+i]), 0)
		for j := i + 1; j < n; j++ {
			avg := (m.data[i*n+j] + cmplx.Conj(m.data[j*n+i])) / 2
			m.data[i*n+j] = avg
			m.data[j*n+i] = cmplx.Conj(avg)
		}
	}
}

// MaxAbsDiff returns the largest element-wise modulus of m−b.
func (m *Matrix) MaxAbsDiff(b *Matrix) float64 {
	m.mustMatch(b)
	worst := 0.0
	for i, v := range m.data {
		if d := cmplx.Abs(v - b.data[i]); d > worst {
			worst = d
		}
	}
	return worst
}

// IsHermitian reports whether m equals its conjugate transpose within tol.
func (m *Matrix) IsHermitian(tol float64) bool {
	n := m.n
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if cmplx.Abs(m.data[i*n+j]-cmplx.Conj(m.data[j*n+i])) > tol {
				return false
			}
		}
	}
	return true
}

// IsUnitary reports whether m·m† equals the identity within tol.
func (m *Matrix) IsUnitary(tol float64) bool {
	return m.Mul(m.Dagger()).MaxAbsDiff(Identity(m.n)) <= tol
}

// IsZero reports whether every element is within tol of zero.
func (m *Matrix) IsZero(tol float64) bool {
	for _, v := range m.data {
		if cmplx.Abs(v) > tol {
			return false
		}
	}
	return true
}

// HilbertSchmidt returns Σ|m_ij|², which equals Tr(m²) for Hermitian m.
func (m *Matrix) HilbertSchmidt() float64 {
	sum := 0.0
	for _, v := range m.data {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return sum
}

// Rows returns a copy of the matrix as nested slices.
func (m *Matrix) Rows() [][]Complex {
	rows := make([][]Complex, m.n)
	for i := range rows {
		rows[i] = make([]Complex, m.n)
		copy(rows[i], m.data[i*m.n:(i+1)*m.n])
	}
	return rows
}

// Packed returns the interleaved (re, im) row-major encoding used by snapshot consumers.
func (m *Matrix) Packed() []float64 {
	out := make([]float64, 0, 2*len(m.data))
	for _, v := range m.data {
		out = append(out, real(v), imag(v))
	}
	return out
}

func nearlyEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
