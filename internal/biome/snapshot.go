package biome

import (
	"time"

	"github.com/aristath/qfarm/internal/quantum"
)

// Snapshot is the read-only state observers pull on their own schedule.
type Snapshot struct {
	Name              string                    `json:"name"`
	Active            bool                      `json:"active"`
	TakenAt           time.Time                 `json:"taken_at"`
	Plots             int                       `json:"plots"`
	Bloch             quantum.BlochPacket       `json:"bloch"`
	MutualInformation []quantum.PairInformation `json:"mutual_information"`
	Populations       map[string]float64        `json:"populations"`
	Terminals         []Terminal                `json:"terminals"`
	FreeQubits        []int                     `json:"free_qubits"`
	Infra             []quantum.InfraRecord     `json:"infra,omitempty"`
}

// Snapshot exports the register and the binding tables.
func (b *Biome) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.reg.Map()
	pops := make(map[string]float64)
	for _, label := range m.Labels() {
		p, _ := b.reg.Population(label)
		pops[label] = p
	}
	mi, err := b.reg.MutualInformation()
	if err != nil {
		b.log.Warn().Err(err).Msg("Mutual information unavailable")
	}

	return Snapshot{
		Name:              b.def.Name,
		Active:            b.active,
		TakenAt:           b.now(),
		Plots:             b.def.Plots,
		Bloch:             b.reg.ExportBlochPacket(),
		MutualInformation: mi,
		Populations:       pops,
		Terminals:         b.sortedTerminals(),
		FreeQubits:        m.FreeQubits(),
		Infra:             b.reg.InfraRecords(),
	}
}
