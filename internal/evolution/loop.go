package evolution

import (
	"errors"
	"time"
)

// ErrAlreadyRunning is returned by Run when the loop is active.
var ErrAlreadyRunning = errors.New("scheduler loop already running")

// Run ticks at the configured interval until Stop is called. It blocks.
func (s *Scheduler) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	stop, stopped := s.stop, s.stopped
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(stopped)
	}()

	s.log.Info().
		Dur("interval", s.cfg.TickInterval).
		Int("batch_size", s.cfg.BatchSize).
		Msg("Physics loop started")

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			s.log.Info().Msg("Physics loop stopped")
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Stop ends a running loop and waits for it to exit. It is a no-op when the
// loop is not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	stopped := s.stopped
	s.mu.Unlock()

	<-stopped
}
