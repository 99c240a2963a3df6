package quantum

import "math"

// MaxLookaheadSteps bounds a single Lookahead call.
const MaxLookaheadSteps = 120

// LookaheadResult is the predicted trajectory of a register.
type LookaheadResult struct {
	Result
	Steps int     `json:"steps" msgpack:"steps"`
	DT    float64 `json:"dt" msgpack:"dt"`
	// Frames[k] is the state after k+1 steps of dt.
	Frames []BlochPacket `json:"frames" msgpack:"frames"`
	// MutualInformation describes the last frame only.
	MutualInformation []PairInformation `json:"mutual_information,omitempty" msgpack:"mutual_information,omitempty"`
}

// Lookahead evolves a private copy of ρ steps times by dt and exports every
// intermediate state. The register itself is left untouched.
func (r *Register) Lookahead(steps int, dt float64) LookaheadResult {
	if steps <= 0 || steps > MaxLookaheadSteps {
		return LookaheadResult{Result: Failed("steps must be in [1, %d], got %d", MaxLookaheadSteps, steps)}
	}
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return LookaheadResult{Result: Failed("invalid dt %v", dt)}
	}

	shadow := r.shadow()
	out := LookaheadResult{
		Result: Succeeded(),
		Steps:  steps,
		DT:     dt,
		Frames: make([]BlochPacket, 0, steps),
	}
	for i := 0; i < steps; i++ {
		if res := shadow.Evolve(dt); !res.Success {
			return LookaheadResult{Result: res.Result}
		}
		out.Frames = append(out.Frames, shadow.ExportBlochPacket())
	}

	mi, err := shadow.MutualInformation()
	if err != nil {
		r.log.Warn().Err(err).Msg("Lookahead mutual information unavailable")
	}
	out.MutualInformation = mi
	return out
}

// shadow returns a copy that shares the compiled operators and bookkeeping
// but owns its ρ, so evolving it cannot reach the live state.
func (r *Register) shadow() *Register {
	c := *r
	c.rho = r.rho.Clone()
	return &c
}
