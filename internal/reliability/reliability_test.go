package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aristath/qfarm/internal/database"
	"github.com/aristath/qfarm/internal/journal"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Upload(_ context.Context, key string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) List(_ context.Context, _ string) ([]types.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Object, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(m.objects[k])))})
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func newJournalDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{Path: t.TempDir() + "/journal.db", Profile: database.ProfileLedger, Name: "journal"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestBackupCreatesArchiveWithMetadata(t *testing.T) {
	db := newJournalDB(t)
	store := newMemStore()
	svc := NewBackupService(store, db, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	name, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "qfarm-journal-2026-03-01-120000.tar.gz", name)

	gz, err := gzip.NewReader(bytes.NewReader(store.objects[name]))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = data
	}
	require.Contains(t, files, "journal.db")
	require.Contains(t, files, "backup-metadata.json")

	var meta BackupMetadata
	require.NoError(t, json.Unmarshal(files["backup-metadata.json"], &meta))
	assert.Equal(t, "journal", meta.Database)
	assert.Equal(t, int64(len(files["journal.db"])), meta.SizeBytes)
	assert.Contains(t, meta.Checksum, "sha256:")
}

func TestListAndRotateBackups(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		key := fmt.Sprintf("qfarm-journal-%s.tar.gz", base.Add(time.Duration(i)*time.Hour).Format(backupTimestamp))
		store.objects[key] = []byte("x")
	}
	store.objects["unrelated.txt"] = []byte("y")
	store.objects["qfarm-journal-garbage.tar.gz"] = []byte("z")

	svc := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return base.Add(10 * time.Hour) }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 6)
	assert.True(t, backups[0].Timestamp.After(backups[1].Timestamp))
	assert.Equal(t, int64(5), backups[0].AgeHours)

	deleted, err := svc.RotateOldBackups(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// The floor of three archives is enforced.
	deleted, err = svc.RotateOldBackups(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	backups, err = svc.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Len(t, backups, 3)
}

func TestNewR2ClientRequiresCredentials(t *testing.T) {
	_, err := NewR2Client(context.Background(), "", "key", "secret", "bucket", zerolog.Nop())
	assert.Error(t, err)
}

type fakeAuditor struct {
	failures map[string]error
}

func (f fakeAuditor) Names() []string { return []string{"farm", "forest"} }
func (f fakeAuditor) Audit(float64) map[string]error { return f.failures }

type memAuditStore struct{ runs []journal.AuditRun }

func (m *memAuditStore) RecordAudit(run journal.AuditRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func TestInvariantAuditJob(t *testing.T) {
	store := &memAuditStore{}
	job := NewInvariantAuditJob(fakeAuditor{}, store, 1e-8, zerolog.Nop())
	assert.Equal(t, "invariant_audit", job.Name())
	require.NoError(t, job.Run())
	require.Len(t, store.runs, 1)
	assert.Equal(t, 2, store.runs[0].BiomesChecked)
	assert.Zero(t, store.runs[0].Failures)

	job = NewInvariantAuditJob(fakeAuditor{failures: map[string]error{"forest": errors.New("trace drift")}}, store, 1e-8, zerolog.Nop())
	assert.Error(t, job.Run())
	require.Len(t, store.runs, 2)
	assert.Equal(t, "trace drift", store.runs[1].Detail["forest"])
}

func TestJournalMaintenanceJobPrunes(t *testing.T) {
	db := newJournalDB(t)
	repo := journal.NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.Insert(
		journal.Entry{RecordedAt: time.Now().Add(-72 * time.Hour), Biome: "farm", Action: "explore"},
		journal.Entry{RecordedAt: time.Now(), Biome: "farm", Action: "explore"},
	))

	job := NewJournalMaintenanceJob(repo, db, 24*time.Hour, "", zerolog.Nop())
	assert.Equal(t, "journal_maintenance", job.Name())
	require.NoError(t, job.Run())

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJournalBackupJob(t *testing.T) {
	db := newJournalDB(t)
	store := newMemStore()
	svc := NewBackupService(store, db, t.TempDir(), zerolog.Nop())

	job := NewJournalBackupJob(svc, 3, zerolog.Nop())
	assert.Equal(t, "journal_backup", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.objects, 1)
}
