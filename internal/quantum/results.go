package quantum

import "fmt"

// Result is the common success flag and reason carried by every operation result.
type Result struct {
	Success bool   `json:"success" msgpack:"success"`
	Reason  string `json:"reason,omitempty" msgpack:"reason,omitempty"`
}

// Succeeded returns a successful result.
func Succeeded() Result {
	return Result{Success: true}
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Success }

// Failed returns an unsuccessful result with a formatted reason.
func Failed(format string, args ...interface{}) Result {
	return Result{Success: false, Reason: fmt.Sprintf(format, args...)}
}

// GateResult reports a unitary application.
type GateResult struct {
	Result
	Qubits []int `json:"qubits,omitempty"`
}

// DissipationResult reports a drive or decay step.
type DissipationResult struct {
	Result
	Qubit       int     `json:"qubit"`
	Transferred float64 `json:"transferred"`
}

// MeasureResult reports a projective measurement.
type MeasureResult struct {
	Result
	Qubit       int     `json:"qubit"`
	Outcome     string  `json:"outcome,omitempty"`
	Pole        Pole    `json:"pole"`
	Probability float64 `json:"probability"`
	// Component is the entanglement component the qubit belonged to before measurement.
	Component []int `json:"component,omitempty"`
}

// ExpandResult reports a grow operation.
type ExpandResult struct {
	Result
	Qubit        int `json:"qubit"`
	NewDim       int `json:"new_dim"`
	NewNumQubits int `json:"new_num_qubits"`
}

// ShrinkResult reports a shrink operation.
type ShrinkResult struct {
	Result
	Removed       int  `json:"removed"`
	RemovedLabels Axis `json:"removed_labels"`
	NewDim        int  `json:"new_dim"`
	NewNumQubits  int  `json:"new_num_qubits"`
}

// EvolveResult reports one integration call.
type EvolveResult struct {
	Result
	Substeps int     `json:"substeps"`
	DT       float64 `json:"dt"`
}
