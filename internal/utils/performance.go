package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Timer measures one operation against an optional time budget.
type Timer struct {
	start  time.Time
	name   string
	log    zerolog.Logger
	budget time.Duration
}

// NewTimer starts a timer for the named operation.
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// WithBudget sets the duration above which Stop logs a warning.
func (t *Timer) WithBudget(budget time.Duration) *Timer {
	t.budget = budget
	return t
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop logs the duration and reports whether the budget was exceeded.
func (t *Timer) Stop() (time.Duration, bool) {
	return t.StopWithContext(nil)
}

// StopWithContext stops the timer and logs with additional fields.
func (t *Timer) StopWithContext(fields map[string]interface{}) (time.Duration, bool) {
	duration := time.Since(t.start)
	over := t.budget > 0 && duration > t.budget

	event := t.log.Trace()
	if over {
		event = t.log.Warn()
	}
	event = event.
		Str("operation", t.name).
		Dur("duration_ms", duration)
	if t.budget > 0 {
		event = event.Dur("budget_ms", t.budget)
	}

	for key, value := range fields {
		switch v := value.(type) {
		case string:
			event = event.Str(key, v)
		case int:
			event = event.Int(key, v)
		case uint64:
			event = event.Uint64(key, v)
		case float64:
			event = event.Float64(key, v)
		case bool:
			event = event.Bool(key, v)
		default:
			event = event.Interface(key, v)
		}
	}

	if over {
		event.Msg("Operation exceeded its budget")
	} else {
		event.Msg("Performance measurement")
	}
	return duration, over
}
