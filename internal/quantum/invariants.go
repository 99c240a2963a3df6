package quantum

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotHermitian is reported when ρ differs from ρ†.
	ErrNotHermitian = errors.New("density matrix is not Hermitian")
	// ErrTraceDrift is reported when Tr ρ is not one.
	ErrTraceDrift = errors.New("density matrix trace drifted from one")
	// ErrNegativeEigenvalue is reported when ρ has a negative eigenvalue.
	ErrNegativeEigenvalue = errors.New("density matrix is not positive semi-definite")
	// ErrDimension is reported when ρ does not match the register map.
	ErrDimension = errors.New("density matrix dimension does not match qubit count")
	// ErrAsymmetricGraph is reported when an entanglement edge lacks its mirror.
	ErrAsymmetricGraph = errors.New("entanglement graph is not symmetric")
)

// CheckInvariants verifies every structural and numerical property of the
// register and joins all violations into one error.
func (r *Register) CheckInvariants(tol float64) error {
	var errs []error
	if r.rho.Dim() != r.regmap.Dim() {
		errs = append(errs, fmt.Errorf("%w: dim %d, %d qubits", ErrDimension, r.rho.Dim(), r.NumQubits()))
	}
	if err := checkDensity(r.rho, tol); err != nil {
		errs = append(errs, err)
	}
	for a, set := range r.links {
		for b := range set {
			if !r.IsLinked(b, a) {
				errs = append(errs, fmt.Errorf("%w: %d→%d", ErrAsymmetricGraph, a, b))
			}
			if !r.validQubit(a) || !r.validQubit(b) {
				errs = append(errs, fmt.Errorf("%w: edge %d-%d out of range", ErrAsymmetricGraph, a, b))
			}
		}
	}
	return errors.Join(errs...)
}

// checkState validates ρ with the register tolerance.
func (r *Register) checkState() error {
	return checkDensity(r.rho, math.Max(r.cfg.Epsilon, 1e-9))
}

func checkDensity(rho *Matrix, tol float64) error {
	var errs []error
	if !rho.IsHermitian(tol) {
		errs = append(errs, ErrNotHermitian)
	}
	tr := rho.Trace()
	if !nearlyEqual(real(tr), 1, tol) || math.Abs(imag(tr)) > tol {
		errs = append(errs, fmt.Errorf("%w: %v", ErrTraceDrift, tr))
	}
	vals, err := Eigenvalues(rho)
	if err != nil {
		errs = append(errs, err)
	} else if len(vals) > 0 && vals[0] < -tol {
		errs = append(errs, fmt.Errorf("%w: %g", ErrNegativeEigenvalue, vals[0]))
	}
	return errors.Join(errs...)
}
