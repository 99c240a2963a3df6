package quantum

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const entropyCutoff = 1e-15

// Eigenvalues returns the spectrum of Hermitian m in ascending order.
//
// A Hermitian A+iB is diagonalised through its real symmetric embedding
// [[A, −B], [B, A]], whose spectrum is that of m with every value doubled.
func Eigenvalues(m *Matrix) ([]float64, error) {
	n := m.Dim()
	if n == 0 {
		return nil, nil
	}
	size := 2 * n
	data := make([]float64, size*size)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.At(i, j)
			a, b := real(v), imag(v)
			data[i*size+j] = a
			data[i*size+n+j] = -b
			data[(n+i)*size+j] = b
			data[(n+i)*size+n+j] = a
		}
	}
	var es mat.EigenSym
	if ok := es.Factorize(mat.NewSymDense(size, data), false); !ok {
		return nil, fmt.Errorf("eigen decomposition of %dx%d matrix did not converge", n, n)
	}
	doubled := es.Values(nil)
	sort.Float64s(doubled)
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = doubled[2*i]
	}
	return vals, nil
}

// MinEigenvalue returns the smallest eigenvalue of ρ.
func (r *Register) MinEigenvalue() (float64, error) {
	vals, err := Eigenvalues(r.rho)
	if err != nil {
		return 0, err
	}
	return floats.Min(vals), nil
}

// VonNeumannEntropy returns −Tr(ρ log₂ ρ) in bits.
func VonNeumannEntropy(rho *Matrix) (float64, error) {
	vals, err := Eigenvalues(rho)
	if err != nil {
		return 0, err
	}
	terms := make([]float64, 0, len(vals))
	for _, l := range vals {
		if l > entropyCutoff {
			terms = append(terms, -l*math.Log2(l))
		}
	}
	if len(terms) == 0 {
		return 0, nil
	}
	return math.Max(0, floats.Sum(terms)), nil
}

// PairInformation is the mutual information of one qubit pair.
type PairInformation struct {
	A    int     `json:"a" msgpack:"a"`
	B    int     `json:"b" msgpack:"b"`
	Bits float64 `json:"bits" msgpack:"bits"`
}

// MutualInformation returns I(A:B) = S(A) + S(B) − S(AB) for every qubit pair.
func (r *Register) MutualInformation() ([]PairInformation, error) {
	n := r.NumQubits()
	if n < 2 {
		return nil, nil
	}
	single := make([]float64, n)
	for q := 0; q < n; q++ {
		reduced, _ := r.ReducedState(q)
		s, err := VonNeumannEntropy(reduced)
		if err != nil {
			return nil, fmt.Errorf("entropy of qubit %d: %w", q, err)
		}
		single[q] = s
	}

	out := make([]PairInformation, 0, n*(n-1)/2)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			reduced, _ := r.ReducedState(a, b)
			joint, err := VonNeumannEntropy(reduced)
			if err != nil {
				return nil, fmt.Errorf("entropy of pair (%d,%d): %w", a, b, err)
			}
			out = append(out, PairInformation{A: a, B: b, Bits: math.Max(0, single[a]+single[b]-joint)})
		}
	}
	return out, nil
}
