package journal

import (
	"testing"
	"time"

	testingpkg "github.com/aristath/qfarm/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "journal")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.New(nil).Level(zerolog.Disabled))
}

func TestInsertAndList(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Now().Add(-time.Minute)

	require.NoError(t, repo.Insert(
		Entry{RecordedAt: base, Biome: "farm", Action: "explore", TerminalID: "t1", Qubit: 0, Success: true},
		Entry{RecordedAt: base.Add(time.Second), Biome: "farm", Action: "measure", TerminalID: "t1", Qubit: 0, Label: "wheat", Probability: 0.7, Success: true},
		Entry{RecordedAt: base.Add(2 * time.Second), Biome: "forest", Action: "explore", Qubit: -1, Reason: "no free qubit"},
	))

	all, err := repo.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "forest", all[0].Biome, "newest first")
	assert.NotEmpty(t, all[0].ID)
	assert.False(t, all[0].Success)
	assert.Equal(t, "no free qubit", all[0].Reason)

	measures, err := repo.List(Filter{Biome: "farm", Action: "measure"})
	require.NoError(t, err)
	require.Len(t, measures, 1)
	assert.Equal(t, "wheat", measures[0].Label)
	assert.InDelta(t, 0.7, measures[0].Probability, 1e-12)
	assert.Equal(t, base.Add(time.Second).UnixNano(), measures[0].RecordedAt.UnixNano())

	recent, err := repo.List(Filter{Since: base.Add(time.Second), Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "forest", recent[0].Biome)

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPrune(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now()

	require.NoError(t, repo.Insert(
		Entry{RecordedAt: now.Add(-48 * time.Hour), Biome: "farm", Action: "pop", Success: true},
		Entry{RecordedAt: now, Biome: "farm", Action: "pop", Success: true},
	))
	require.NoError(t, repo.RecordAudit(AuditRun{RanAt: now.Add(-48 * time.Hour), BiomesChecked: 1}))

	removed, err := repo.Prune(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	runs, err := repo.LatestAudits(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestAuditRuns(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now()

	require.NoError(t, repo.RecordAudit(AuditRun{RanAt: now.Add(-time.Minute), BiomesChecked: 3}))
	require.NoError(t, repo.RecordAudit(AuditRun{
		RanAt:         now,
		BiomesChecked: 3,
		Failures:      1,
		Detail:        map[string]string{"forest": "trace drift"},
	}))

	runs, err := repo.LatestAudits(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Failures)
	assert.Equal(t, "trace drift", runs[0].Detail["forest"])
}

func TestWriterFlushesOnStop(t *testing.T) {
	repo := newTestRepository(t)
	w := NewWriter(repo, 16, time.Hour, zerolog.Nop())
	w.Start()
	w.Start()

	for i := 0; i < 5; i++ {
		assert.True(t, w.Submit(Entry{Biome: "farm", Action: "gate", Qubit: i, Success: true}))
	}
	w.Stop()
	w.Stop()

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, uint64(5), w.Written())
}

func TestWriterDropsWhenFull(t *testing.T) {
	repo := newTestRepository(t)
	w := NewWriter(repo, 2, time.Hour, zerolog.Nop())

	assert.True(t, w.Submit(Entry{Biome: "farm", Action: "a"}))
	assert.True(t, w.Submit(Entry{Biome: "farm", Action: "b"}))
	assert.False(t, w.Submit(Entry{Biome: "farm", Action: "c"}))
	assert.Equal(t, uint64(1), w.Dropped())

	w.Flush()
	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWriterCountsFailedBatchAsDropped(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "journal")
	t.Cleanup(cleanup)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	w := NewWriter(repo, 8, time.Hour, zerolog.Nop())

	for i := 0; i < 3; i++ {
		require.True(t, w.Submit(Entry{Biome: "farm", Action: "gate", Qubit: i}))
	}
	require.NoError(t, db.Close())

	w.Flush()
	assert.Equal(t, uint64(3), w.Dropped())
	assert.Zero(t, w.Written())
}
