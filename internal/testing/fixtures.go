package testing

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aristath/qfarm/internal/biome"
	"github.com/aristath/qfarm/internal/evolution"
	"github.com/aristath/qfarm/internal/quantum"
)

// NewTestFarm builds a farm holding the default biome catalog (farm, forest
// and market). Biome i is seeded with seed+i so measurement outcomes repeat
// between runs. The evolution loop is not started; tests tick it by hand.
func NewTestFarm(t *testing.T, seed int64, recorder biome.Recorder) *biome.Farm {
	t.Helper()
	log := zerolog.Nop()

	sched, err := evolution.New(evolution.DefaultConfig(), log)
	if err != nil {
		t.Fatalf("Failed to create evolution scheduler: %v", err)
	}
	farm := biome.NewFarm(sched, log)

	defs, err := biome.LoadDefinitions("")
	if err != nil {
		t.Fatalf("Failed to load default biomes: %v", err)
	}
	for i, def := range defs {
		b, err := biome.New(def, quantum.DefaultConfig(), rand.New(rand.NewSource(seed+int64(i))), recorder, log)
		if err != nil {
			t.Fatalf("Failed to create biome %s: %v", def.Name, err)
		}
		if err := farm.Add(b); err != nil {
			t.Fatalf("Failed to add biome %s: %v", def.Name, err)
		}
	}
	return farm
}
