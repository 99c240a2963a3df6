package journal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Writer batches entries off the caller's goroutine. Actions run while the
// physics lock is held, so Submit never touches the database.
type Writer struct {
	repo     *Repository
	queue    chan Entry
	interval time.Duration
	batch    int
	dropped  atomic.Uint64
	written  atomic.Uint64

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
	log     zerolog.Logger
}

// NewWriter creates a writer holding at most capacity pending entries and
// flushing every interval.
func NewWriter(repo *Repository, capacity int, interval time.Duration, log zerolog.Logger) *Writer {
	if capacity <= 0 {
		capacity = 1024
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Writer{
		repo:     repo,
		queue:    make(chan Entry, capacity),
		interval: interval,
		batch:    128,
		log:      log.With().Str("component", "journal_writer").Logger(),
	}
}

// Submit enqueues e. It returns false and counts a drop when the queue is full.
func (w *Writer) Submit(e Entry) bool {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	select {
	case w.queue <- e:
		return true
	default:
		if w.dropped.Add(1)%100 == 1 {
			w.log.Warn().Uint64("dropped", w.dropped.Load()).Msg("Journal queue full, dropping entries")
		}
		return false
	}
}

// Dropped returns the number of entries lost to a full queue or a failed write.
func (w *Writer) Dropped() uint64 { return w.dropped.Load() }

// Written returns the number of entries persisted.
func (w *Writer) Written() uint64 { return w.written.Load() }

// Start launches the flush loop. Calling Start twice is a no-op.
func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return
	}
	w.stop = make(chan struct{})
	w.stopped = make(chan struct{})
	go w.run(w.stop, w.stopped)
}

// Stop flushes pending entries and waits for the loop to exit.
func (w *Writer) Stop() {
	w.mu.Lock()
	stop, stopped := w.stop, w.stopped
	w.stop, w.stopped = nil, nil
	if stop != nil {
		close(stop)
	}
	w.mu.Unlock()

	if stopped != nil {
		<-stopped
	}
}

func (w *Writer) run(stop, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			w.Flush()
			return
		case <-ticker.C:
			w.Flush()
		}
	}
}

// Flush writes everything currently queued.
func (w *Writer) Flush() {
	for {
		pending := w.drain()
		if len(pending) == 0 {
			return
		}
		if err := w.repo.Insert(pending...); err != nil {
			dropped := w.dropped.Add(uint64(len(pending)))
			w.log.Error().Err(err).
				Int("entries", len(pending)).
				Uint64("dropped", dropped).
				Msg("Failed to write journal batch")
			return
		}
		w.written.Add(uint64(len(pending)))
	}
}

func (w *Writer) drain() []Entry {
	var out []Entry
	for len(out) < w.batch {
		select {
		case e := <-w.queue:
			out = append(out, e)
		default:
			return out
		}
	}
	return out
}
