package quantum

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// denseKrausStep is the textbook form of one substep, built from the
// exported operators with full matrix products.
func denseKrausStep(r *Register, dt float64) *Matrix {
	rho := r.DensityMatrix()
	g := r.Hamiltonian().Scaled(1i)
	terms := r.LindbladTerms()
	for _, term := range terms {
		g.AddScaled(complex(0.5*term.Rate, 0), term.Op.Dagger().Mul(term.Op))
	}
	m0 := Identity(rho.Dim())
	m0.AddScaled(complex(-dt, 0), g)

	next := rho.Conjugate(m0)
	for _, term := range terms {
		next.AddScaled(complex(dt*term.Rate, 0), rho.Conjugate(term.Op))
	}
	next.Hermitize()
	return next.Scaled(complex(1/real(next.Trace()), 0))
}

func TestEvolveStepMatchesDenseKraus(t *testing.T) {
	r := newTestRegister(t, 3, testIcons(), Axis{"wheat", "mushroom"}, Axis{"sun", "moon"})
	require.True(t, r.ApplyGate(0, Hadamard()).Success)
	require.True(t, r.ApplyGate2Q(0, 1, CNOT()).Success)
	require.True(t, r.ApplyGate(1, RotationY(0.7)).Success)

	for i := 0; i < 10; i++ {
		expected := denseKrausStep(r, 0.015)
		res := r.Evolve(0.015)
		require.True(t, res.Success)
		require.Equal(t, 1, res.Substeps)
		assert.Less(t, expected.MaxAbsDiff(r.DensityMatrix()), 1e-12, "step %d", i)
	}
	assertValid(t, r)
}

func TestJumpOperatorsCompileToColumnForm(t *testing.T) {
	r := newTestRegister(t, 1, testIcons(), Axis{"wheat", "mushroom"}, Axis{"sun", "moon"})
	require.NotEmpty(t, r.lindblad)
	for i, term := range r.lindblad {
		assert.NotNil(t, r.jumps[i], "%s -> %s", term.Source, term.Target)
	}

	assert.Nil(t, newColumnOp(EmbedSingle(Hadamard(), 0, 2)))
}

func TestPropagatorRebuiltAfterResize(t *testing.T) {
	r := newTestRegister(t, 1, testIcons(), Axis{"wheat", "mushroom"})
	require.True(t, r.Evolve(0.01).Success)
	require.NotNil(t, r.m0)

	require.True(t, r.Expand("sun", "moon").Success)
	assert.Nil(t, r.m0)
	require.True(t, r.Evolve(0.01).Success)
	assert.Equal(t, 4, r.m0.Dim())
	assertValid(t, r)
}

func benchmarkRegister(b *testing.B) *Register {
	cfg := DefaultConfig()
	var icons []Icon
	var axes []Axis
	for q := 0; q < cfg.MaxQubits; q++ {
		north, south := fmt.Sprintf("n%d", q), fmt.Sprintf("s%d", q)
		axes = append(axes, Axis{North: north, South: south})
		icons = append(icons,
			Icon{Label: north, SelfEnergy: 0.1 * float64(q+1), Drive: 0.4, Decay: &Decay{Rate: 0.3}},
			Icon{Label: south, Couplings: map[string]float64{north: 0.2}},
		)
	}
	r := NewRegister(cfg, NewIconSet(icons...), rand.New(rand.NewSource(1)), zerolog.Nop())
	for _, a := range axes {
		if res := r.Expand(a.North, a.South); !res.Success {
			b.Fatal(res.Reason)
		}
	}
	for q := 0; q < cfg.MaxQubits; q++ {
		r.ApplyGate(q, Hadamard())
	}
	if len(r.lindblad) != 2*cfg.MaxQubits {
		b.Fatalf("expected %d channels, got %d", 2*cfg.MaxQubits, len(r.lindblad))
	}
	return r
}

func BenchmarkEvolveMaxQubitsOneSubstep(b *testing.B) {
	r := benchmarkRegister(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Evolve(1.0 / 60.0)
	}
}

func BenchmarkEvolveMaxQubitsCappedDT(b *testing.B) {
	r := benchmarkRegister(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Evolve(0.1)
	}
}
