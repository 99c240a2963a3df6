package reliability

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	testingpkg "github.com/aristath/qfarm/internal/testing"
)

type brokenDB struct{}

func (brokenDB) Name() string { return "journal" }
func (brokenDB) HealthCheck(ctx context.Context) error { return errors.New("page 3: btree corrupt") }

func TestJournalIntegrityJob_Name(t *testing.T) {
	job := NewJournalIntegrityJob(nil, zerolog.Nop())
	assert.Equal(t, "journal_integrity", job.Name())
}

func TestJournalIntegrityJob_Run_NoDatabase(t *testing.T) {
	job := NewJournalIntegrityJob(nil, zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestJournalIntegrityJob_Run(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "journal")
	defer cleanup()

	assert.NoError(t, NewJournalIntegrityJob(db, zerolog.Nop()).Run())

	err := NewJournalIntegrityJob(brokenDB{}, zerolog.Nop()).Run()
	assert.ErrorContains(t, err, "btree corrupt")
}
