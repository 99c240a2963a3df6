package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"

	"github.com/aristath/qfarm/internal/biome"
	"github.com/aristath/qfarm/internal/journal"
	"github.com/aristath/qfarm/internal/scheduler"
	testingpkg "github.com/aristath/qfarm/internal/testing"
)

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

type testEnv struct {
	server *Server
	farm   *biome.Farm
	repo   *journal.Repository
	ok     *stubJob
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	farm := testingpkg.NewTestFarm(t, 7, nil)

	db, cleanup := testingpkg.NewTestDB(t, "journal")
	t.Cleanup(cleanup)
	repo := journal.NewRepository(db.Conn(), logger)

	jobs := scheduler.New(logger)
	ok := &stubJob{name: "journal_maintenance"}
	require.NoError(t, jobs.AddJob("@daily", ok))
	require.NoError(t, jobs.AddJob("@daily", &stubJob{name: "journal_backup", err: errors.New("bucket unreachable")}))

	srv := New(Config{
		Log:            logger,
		Farm:           farm,
		Jobs:           jobs,
		Journal:        repo,
		JournalDB:      db,
		Port:           0,
		DevMode:        true,
		StreamInterval: 20 * time.Millisecond,
	})
	t.Cleanup(func() { srv.stream.Close() })

	return &testEnv{server: srv, farm: farm, repo: repo, ok: ok}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)

	var response map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	}
	return w, response
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w, response := env.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "qfarm", response["service"])
	assert.Equal(t, float64(3), response["biomes"])
}

func TestBiomeRoutesMounted(t *testing.T) {
	env := newTestEnv(t)

	w, response := env.do(t, "GET", "/api/biomes/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), response["data"].(map[string]interface{})["count"])

	w, _ = env.do(t, "POST", "/api/biomes/farm/explore", map[string]int{"position": 0})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSystemStatus(t *testing.T) {
	env := newTestEnv(t)

	w, response := env.do(t, "GET", "/api/system/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
	assert.Greater(t, data["goroutines"].(float64), float64(0))

	biomes := data["biomes"].(map[string]interface{})
	require.Contains(t, biomes, "forest")
	forest := biomes["forest"].(map[string]interface{})
	assert.Equal(t, float64(2), forest["num_qubits"])
	assert.Equal(t, float64(0), forest["occupied"])

	evo := data["evolution"].(map[string]interface{})
	assert.Len(t, evo["targets"], 3)

	journalStatus := data["journal"].(map[string]interface{})
	assert.Contains(t, journalStatus, "database")
	assert.Len(t, data["jobs"], 2)
}

func TestJobsStatusAndRunJob(t *testing.T) {
	env := newTestEnv(t)

	w, response := env.do(t, "GET", "/api/system/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), response["data"].(map[string]interface{})["count"])

	w, response = env.do(t, "POST", "/api/system/jobs/journal_maintenance/run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", response["data"].(map[string]interface{})["status"])
	assert.Equal(t, 1, env.ok.runs)

	w, response = env.do(t, "POST", "/api/system/jobs/journal_backup/run", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "failed", data["status"])
	assert.Equal(t, "bucket unreachable", data["message"])

	w, _ = env.do(t, "POST", "/api/system/jobs/nope/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w, response := env.do(t, "GET", "/api/system/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["biomes_checked"])
	assert.Empty(t, data["failures"])

	w, _ = env.do(t, "GET", "/api/system/audit?tolerance=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJournalEndpoints(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	require.NoError(t, env.repo.Insert(
		journal.Entry{RecordedAt: now.Add(-time.Hour), Biome: "farm", Action: "explore", Success: true},
		journal.Entry{RecordedAt: now, Biome: "forest", Action: "measure", Label: "fire", Probability: 0.25, Success: true},
	))
	require.NoError(t, env.repo.RecordAudit(journal.AuditRun{RanAt: now, BiomesChecked: 3}))

	w, response := env.do(t, "GET", "/api/journal/?biome=forest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	entry := data["entries"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "fire", entry["label"])

	since := now.Add(-time.Minute).UTC().Format(time.RFC3339)
	w, response = env.do(t, "GET", "/api/journal/?since="+since, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), response["data"].(map[string]interface{})["count"])

	w, _ = env.do(t, "GET", "/api/journal/?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.do(t, "GET", "/api/journal/?limit=-2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, response = env.do(t, "GET", "/api/journal/audits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), response["data"].(map[string]interface{})["count"])
}

func TestSnapshotStream(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream?biome=market"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	for i := 0; i < 2; i++ {
		typ, data, err := conn.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, websocket.MessageText, typ)

		var frame struct {
			Data []biome.Snapshot `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &frame))
		require.Len(t, frame.Data, 1)
		assert.Equal(t, "market", frame.Data[0].Name)
	}

	assert.Eventually(t, func() bool { return env.server.stream.Clients() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSnapshotStreamMsgpack(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream?format=msgpack"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageBinary, typ)

	var frame map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(data, &frame))
	assert.Len(t, frame["data"], 3)

	env.server.stream.Close()
	for {
		if _, _, err = conn.Read(ctx); err != nil {
			break
		}
	}
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func TestSnapshotStreamUnknownBiome(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, "GET", "/api/stream?biome=tundra", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
