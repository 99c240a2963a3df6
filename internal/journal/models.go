// Package journal persists the gameplay actions applied to biome registers
// and the results of periodic invariant audits.
package journal

import "time"

// Entry is one recorded action.
type Entry struct {
	ID          string    `json:"id"`
	RecordedAt  time.Time `json:"recorded_at"`
	Biome       string    `json:"biome"`
	Action      string    `json:"action"`
	TerminalID  string    `json:"terminal_id,omitempty"`
	Qubit       int       `json:"qubit"`
	Label       string    `json:"label,omitempty"`
	Probability float64   `json:"probability"`
	Success     bool      `json:"success"`
	Reason      string    `json:"reason,omitempty"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Biome  string
	Action string
	Since  time.Time
	Limit  int
}

// AuditRun is the outcome of one invariant audit over the farm.
type AuditRun struct {
	ID            string            `json:"id"`
	RanAt         time.Time         `json:"ran_at"`
	BiomesChecked int               `json:"biomes_checked"`
	Failures      int               `json:"failures"`
	Detail        map[string]string `json:"detail,omitempty"`
}

const defaultListLimit = 200
