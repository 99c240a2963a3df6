package biome

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/aristath/qfarm/internal/quantum"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (m *memRecorder) Record(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *memRecorder) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}

func testDefinition() Definition {
	return Definition{
		Name:  "meadow",
		Plots: 3,
		Axes: []quantum.Axis{
			{North: "wheat", South: "mushroom"},
			{North: "sun", South: "moon"},
			{North: "rain", South: "drought"},
		},
		Icons: []quantum.Icon{
			{Label: "wheat", SelfEnergy: 0.3, Couplings: map[string]float64{"mushroom": 0.1}},
			{Label: "sun", Drive: 0.2},
			{Label: "moon", Decay: &quantum.Decay{Rate: 0.1}},
		},
	}
}

func newActiveBiome(t *testing.T, seed int64) (*Biome, *memRecorder) {
	t.Helper()
	rec := &memRecorder{}
	b, err := New(testDefinition(), quantum.Config{MaxQubits: 4}, rand.New(rand.NewSource(seed)), rec, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Activate())
	return b, rec
}

func TestBiomeRequiresActivation(t *testing.T) {
	b, err := New(testDefinition(), quantum.DefaultConfig(), nil, nil, zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, b.Active())
	assert.Equal(t, 0, b.Occupied())
	res := b.Explore(0)
	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "not active")

	require.NoError(t, b.Activate())
	assert.True(t, b.Explore(0).Success)
	assert.NoError(t, b.Activate())
}

func TestNewRejectsInvalidDefinition(t *testing.T) {
	def := testDefinition()
	def.Axes = append(def.Axes, quantum.Axis{North: "wheat", South: "x"})
	_, err := New(def, quantum.DefaultConfig(), nil, nil, zerolog.Nop())
	assert.Error(t, err)

	def = testDefinition()
	_, err = New(def, quantum.Config{MaxQubits: 2}, nil, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestExploreBindsLowestFreeQubit(t *testing.T) {
	b, _ := newActiveBiome(t, 1)

	first := b.Explore(2)
	require.True(t, first.Success)
	assert.Equal(t, 0, first.Qubit)
	assert.Equal(t, "wheat", first.North)

	second := b.Explore(0)
	require.True(t, second.Success)
	assert.Equal(t, 1, second.Qubit)
	assert.Equal(t, 2, b.Occupied())

	assert.False(t, b.Explore(2).Success)
	assert.False(t, b.Explore(7).Success)

	term, ok := b.Terminal(first.TerminalID)
	require.True(t, ok)
	assert.Equal(t, BoundUnmeasured, term.State)
	assert.NoError(t, b.CheckInvariants(1e-8))
}

func TestExploreFailsWhenRegisterFull(t *testing.T) {
	def := testDefinition()
	def.Plots = 5
	b, err := New(def, quantum.Config{MaxQubits: 4}, nil, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Activate())

	for pos := 0; pos < 3; pos++ {
		require.True(t, b.Explore(pos).Success)
	}
	res := b.Explore(3)
	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "no free")
}

func TestTerminalLifecycle(t *testing.T) {
	b, rec := newActiveBiome(t, 4)
	ex := b.Explore(0)
	require.True(t, ex.Success)

	assert.False(t, b.Pop(ex.TerminalID).Success, "pop before measure")

	m := b.Measure(ex.TerminalID)
	require.True(t, m.Success)
	assert.Contains(t, []string{"wheat", "mushroom"}, m.Outcome)
	assert.False(t, b.Measure(ex.TerminalID).Success, "measure twice")

	term, _ := b.Terminal(ex.TerminalID)
	assert.Equal(t, BoundMeasured, term.State)
	require.NotNil(t, term.MeasuredAt)

	p := b.Pop(ex.TerminalID)
	require.True(t, p.Success)
	assert.Equal(t, m.Outcome, p.Outcome)
	assert.Equal(t, 0, b.Occupied())
	_, ok := b.Terminal(ex.TerminalID)
	assert.False(t, ok)

	again := b.Explore(0)
	assert.True(t, again.Success)
	assert.Equal(t, 0, again.Qubit)

	assert.Equal(t, []string{"explore", "pop", "measure", "measure", "pop", "explore"}, rec.actions())
}

func TestMeasureClearsComponentLinks(t *testing.T) {
	b, _ := newActiveBiome(t, 2)
	require.True(t, b.Entangle(0, 1).Success)
	ex := b.Explore(0)
	require.True(t, ex.Success)

	m := b.Measure(ex.TerminalID)
	require.True(t, m.Success)
	assert.Equal(t, []int{0, 1}, m.Component)
	assert.Empty(t, b.Snapshot().Bloch.Edges)
}

func TestReentangleReplaysBlueprints(t *testing.T) {
	b, rec := newActiveBiome(t, 5)
	require.True(t, b.Entangle(1, 2).Success)

	// Already linked: nothing to do.
	res := b.Reentangle()
	require.True(t, res.Success)
	assert.Empty(t, res.Pairs)

	ex := b.Explore(0)
	require.True(t, ex.Success)
	ex2 := b.Explore(1)
	require.True(t, ex2.Success)
	require.Equal(t, 1, ex2.Qubit)
	require.True(t, b.Measure(ex2.TerminalID).Success)

	// Qubit 1 is measured, so the pair stays broken.
	res = b.Reentangle()
	assert.Empty(t, res.Pairs)

	require.True(t, b.Pop(ex2.TerminalID).Success)
	res = b.Reentangle()
	assert.Equal(t, []quantum.Edge{{A: 1, B: 2}}, res.Pairs)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, "reentangle", last.Action)
	assert.Equal(t, -1, last.Qubit)
	assert.Equal(t, "1 pairs", last.Label)
}

func TestApplyGateByName(t *testing.T) {
	b, _ := newActiveBiome(t, 1)

	require.True(t, b.ApplyGate(0, "X").Success)
	p, ok := b.Population("mushroom")
	require.True(t, ok)
	assert.InDelta(t, 1.0, p, 1e-9)

	assert.False(t, b.ApplyGate(0, "CNOT").Success)
	assert.False(t, b.ApplyGate(0, "nope").Success)
	assert.True(t, b.ApplyGate(1, "RY", 0.5).Success)

	require.True(t, b.ApplyGate2Q(0, 2, "CNOT").Success)
	p, _ = b.Population("drought")
	assert.InDelta(t, 1.0, p, 1e-9)
	assert.False(t, b.ApplyGate2Q(0, 2, "H").Success)
}

func TestInstallGate(t *testing.T) {
	b, _ := newActiveBiome(t, 1)
	assert.True(t, b.InstallGate(1, "H").Success)
	assert.False(t, b.InstallGate(1, "SWAP").Success)
	assert.False(t, b.InstallGate(9, "H").Success)

	infra := b.Snapshot().Infra
	require.Len(t, infra, 1)
	assert.Equal(t, "H", infra[0].GateConfig)
}

func TestRemoveVocabularyReindexesBindings(t *testing.T) {
	b, _ := newActiveBiome(t, 1)
	require.True(t, b.InjectVocabulary("bee", "wasp").Success)

	first := b.Explore(0)
	require.True(t, first.Success)
	// Bind qubit 1 then release it so qubit 2 takes the next terminal.
	tmp := b.Explore(1)
	require.True(t, tmp.Success)
	require.True(t, b.Measure(tmp.TerminalID).Success)
	third := b.Explore(2)
	require.True(t, third.Success)
	assert.Equal(t, 2, third.Qubit)
	require.True(t, b.Pop(tmp.TerminalID).Success)

	assert.False(t, b.RemoveVocabulary(0).Success, "occupied")

	res := b.RemoveVocabulary(1)
	require.True(t, res.Success)
	assert.Equal(t, quantum.Axis{North: "sun", South: "moon"}, res.RemovedLabels)
	assert.Equal(t, 8, res.NewDim)

	term, ok := b.Terminal(third.TerminalID)
	require.True(t, ok)
	assert.Equal(t, 1, term.Qubit)
	assert.Equal(t, "rain", term.North)
	assert.NoError(t, b.CheckInvariants(1e-8))

	m := b.Measure(third.TerminalID)
	require.True(t, m.Success)
	assert.Equal(t, 1, m.Qubit)
	assert.Equal(t, "rain", m.Outcome)
}

func TestDriveAndDecayThroughBiome(t *testing.T) {
	b, _ := newActiveBiome(t, 1)

	res := b.ApplyDrive("mushroom", 1, 0.25)
	require.True(t, res.Success)
	assert.InDelta(t, 0.25, res.Transferred, 1e-12)

	dec := b.ApplyDecay(0, 1, 0.2)
	require.True(t, dec.Success)
	p, _ := b.Population("wheat")
	assert.InDelta(t, 0.75+0.25*0.2, p, 1e-12)

	assert.False(t, b.ApplyDrive("nothing", 1, 1).Success)
}

func TestSnapshot(t *testing.T) {
	b, _ := newActiveBiome(t, 1)
	require.True(t, b.Entangle(0, 1).Success)
	require.True(t, b.Explore(1).Success)

	snap := b.Snapshot()
	assert.Equal(t, "meadow", snap.Name)
	assert.True(t, snap.Active)
	assert.Equal(t, 3, snap.Bloch.NumQubits)
	assert.Len(t, snap.MutualInformation, 3)
	assert.InDelta(t, 0.5, snap.Populations["wheat"], 1e-9)
	require.Len(t, snap.Terminals, 1)
	assert.Equal(t, []int{1, 2}, snap.FreeQubits)
	assert.Equal(t, []quantum.Edge{{A: 0, B: 1}}, snap.Bloch.Edges)
}

func TestEvolveSkipsInactiveBiome(t *testing.T) {
	b, err := New(testDefinition(), quantum.DefaultConfig(), nil, nil, zerolog.Nop())
	require.NoError(t, err)
	res := b.Evolve(1)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.Substeps)
}

func TestLookaheadRequiresActiveBiome(t *testing.T) {
	idle, err := New(testDefinition(), quantum.Config{MaxQubits: 4}, rand.New(rand.NewSource(1)), nil, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, idle.Lookahead(3, 0.05).Success)

	b, rec := newActiveBiome(t, 2)
	before := b.Snapshot().Bloch
	res := b.Lookahead(3, 0.05)
	require.True(t, res.Success, res.Reason)
	assert.Len(t, res.Frames, 3)
	assert.Equal(t, before, b.Snapshot().Bloch)
	assert.Empty(t, rec.actions())
}
