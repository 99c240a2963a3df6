package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/qfarm/internal/biome"
	biomehandlers "github.com/aristath/qfarm/internal/biome/handlers"
)

const (
	defaultStreamInterval = 250 * time.Millisecond
	streamWriteTimeout    = 5 * time.Second
)

var errBiomeRemoved = errors.New("biome removed")

// SnapshotStreamHandler pushes biome snapshots to websocket clients on a fixed
// interval. Renderers use it instead of polling the snapshot endpoints.
type SnapshotStreamHandler struct {
	farm     *biome.Farm
	interval time.Duration
	log      zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	clients   int
}

// NewSnapshotStreamHandler creates a new stream handler.
func NewSnapshotStreamHandler(farm *biome.Farm, interval time.Duration, log zerolog.Logger) *SnapshotStreamHandler {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	return &SnapshotStreamHandler{
		farm:     farm,
		interval: interval,
		log:      log.With().Str("component", "snapshot_stream").Logger(),
		done:     make(chan struct{}),
	}
}

// Clients returns the number of connected streams.
func (h *SnapshotStreamHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients
}

// Close ends every open stream.
func (h *SnapshotStreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ServeHTTP handles GET /api/stream.
//
// Query parameters:
//   - biome: restrict the stream to one biome
//   - format=msgpack: send binary msgpack frames instead of JSON text
func (h *SnapshotStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	only := r.URL.Query().Get("biome")
	if only != "" {
		if _, ok := h.farm.Biome(only); !ok {
			http.Error(w, "unknown biome", http.StatusNotFound)
			return
		}
	}
	binary := r.URL.Query().Get("format") == "msgpack"

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	h.mu.Lock()
	h.clients++
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.clients--
		h.mu.Unlock()
	}()

	// Clients never send anything; CloseRead handles their close frame.
	ctx := conn.CloseRead(r.Context())

	h.log.Debug().Str("biome", only).Bool("msgpack", binary).Msg("Snapshot stream opened")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.send(ctx, conn, only, binary); err != nil {
			if errors.Is(err, errBiomeRemoved) {
				conn.Close(websocket.StatusNormalClosure, "biome removed")
				return
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				h.log.Debug().Msg("Snapshot stream closed by client")
				return
			}
			h.log.Warn().Err(err).Msg("Snapshot stream write failed")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-h.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-ticker.C:
		}
	}
}

func (h *SnapshotStreamHandler) send(ctx context.Context, conn *websocket.Conn, only string, binary bool) error {
	var snapshots []biome.Snapshot
	if only != "" {
		b, ok := h.farm.Biome(only)
		if !ok {
			return errBiomeRemoved
		}
		snapshots = []biome.Snapshot{b.Snapshot()}
	} else {
		snapshots = h.farm.Snapshots()
	}

	frame := envelope(snapshots)

	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()

	if binary {
		data, err := biomehandlers.EncodeMsgpack(frame)
		if err != nil {
			return err
		}
		return conn.Write(writeCtx, websocket.MessageBinary, data)
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.Write(writeCtx, websocket.MessageText, data)
}
