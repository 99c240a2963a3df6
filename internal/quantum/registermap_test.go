package quantum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMapAddAndLookup(t *testing.T) {
	m := NewRegisterMap()
	q, err := m.AddAxis("wheat", "mushroom")
	require.NoError(t, err)
	assert.Equal(t, 0, q)

	q, err = m.AddAxis("sun", "moon")
	require.NoError(t, err)
	assert.Equal(t, 1, q)
	assert.Equal(t, 4, m.Dim())

	c, ok := m.Coordinate("moon")
	require.True(t, ok)
	assert.Equal(t, Coordinate{Qubit: 1, Pole: South}, c)

	_, ok = m.Qubit("missing")
	assert.False(t, ok)

	_, err = m.AddAxis("sun", "rain")
	assert.ErrorIs(t, err, ErrLabelInUse)
	_, err = m.AddAxis("a", "a")
	assert.ErrorIs(t, err, ErrInvalidAxis)
	assert.Equal(t, []string{"wheat", "mushroom", "sun", "moon"}, m.Labels())
}

func TestRegisterMapRemoveAndCompact(t *testing.T) {
	m := NewRegisterMap()
	_, _ = m.AddAxis("a", "b")
	_, _ = m.AddAxis("c", "d")
	_, _ = m.AddAxis("e", "f")
	require.True(t, m.Occupy(2))

	axis, ok := m.RemoveAxis(1)
	require.True(t, ok)
	assert.Equal(t, Axis{North: "c", South: "d"}, axis)
	assert.False(t, m.Has("c"))

	// Removal alone does not renumber.
	q, _ := m.Qubit("e")
	assert.Equal(t, 2, q)

	m.Compact(1)
	q, _ = m.Qubit("e")
	assert.Equal(t, 1, q)
	assert.True(t, m.IsOccupied(1))
	assert.False(t, m.IsOccupied(2))
	assert.Equal(t, 2, m.NumQubits())
	assert.Equal(t, []int{0}, m.FreeQubits())
}

func TestRegisterMapOccupancy(t *testing.T) {
	m := NewRegisterMap()
	_, _ = m.AddAxis("a", "b")

	assert.False(t, m.Occupy(3))
	assert.True(t, m.Occupy(0))
	assert.False(t, m.Occupy(0))
	assert.Equal(t, 1, m.OccupiedCount())
	assert.True(t, m.Vacate(0))
	assert.False(t, m.Vacate(0))
}

func TestShiftIndex(t *testing.T) {
	idx, ok := ShiftIndex(3, 1)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	idx, ok = ShiftIndex(0, 1)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = ShiftIndex(1, 1)
	assert.False(t, ok)
}
