package quantum

import "sort"

// Decay relaxes an icon's population toward Target. When Target is not bound
// in the register the population relaxes to the opposite pole of the same qubit.
type Decay struct {
	Rate   float64 `json:"rate" yaml:"rate"`
	Target string  `json:"target,omitempty" yaml:"target,omitempty"`
}

// Icon is the concept record behind one label: its energy, its couplings to
// other labels and the dissipative channels it takes part in.
type Icon struct {
	Label            string             `json:"label" yaml:"label"`
	SelfEnergy       float64            `json:"self_energy,omitempty" yaml:"self_energy,omitempty"`
	Couplings        map[string]float64 `json:"couplings,omitempty" yaml:"couplings,omitempty"`
	LindbladOutgoing map[string]float64 `json:"lindblad_outgoing,omitempty" yaml:"lindblad_outgoing,omitempty"`
	LindbladIncoming map[string]float64 `json:"lindblad_incoming,omitempty" yaml:"lindblad_incoming,omitempty"`
	Drive            float64            `json:"drive,omitempty" yaml:"drive,omitempty"`
	Decay            *Decay             `json:"decay,omitempty" yaml:"decay,omitempty"`
}

// IconSet indexes icons by label.
type IconSet map[string]Icon

// NewIconSet builds a set from icons; later entries replace earlier ones with the same label.
func NewIconSet(icons ...Icon) IconSet {
	set := make(IconSet, len(icons))
	for _, ic := range icons {
		set[ic.Label] = ic
	}
	return set
}

// Get returns the icon for label.
func (s IconSet) Get(label string) (Icon, bool) {
	ic, ok := s[label]
	return ic, ok
}

// Labels returns every icon label in sorted order.
func (s IconSet) Labels() []string {
	labels := make([]string, 0, len(s))
	for l := range s {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Clone returns a deep copy so callers can't mutate a register's concept data.
func (s IconSet) Clone() IconSet {
	out := make(IconSet, len(s))
	for l, ic := range s {
		cp := ic
		cp.Couplings = cloneRates(ic.Couplings)
		cp.LindbladOutgoing = cloneRates(ic.LindbladOutgoing)
		cp.LindbladIncoming = cloneRates(ic.LindbladIncoming)
		if ic.Decay != nil {
			d := *ic.Decay
			cp.Decay = &d
		}
		out[l] = cp
	}
	return out
}

func cloneRates(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(in map[string]float64) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
