package games

import (
	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
)

// TowerOutcome is a climb through per-level hazard checks.
type TowerOutcome struct {
	Picks      []int   `json:"picks"`
	Cleared    int     `json:"cleared"`
	Hit        bool    `json:"hit"`
	HitLevel   int     `json:"hit_level,omitempty"`
	Multiplier float64 `json:"multiplier"`
}

// resolveTower draws the hazard columns for every level the player
// committed to, then walks the picks. Each safe level compounds the
// configured fair factor; a hazard forfeits the round. Hazards for all
// committed levels are drawn up front so the raw draw is complete even
// when the climb ends early.
func resolveTower(src engine.Source, cfg *gameconfig.TowerConfig, picks []int) ([]int, *TowerOutcome) {
	levels := len(picks)
	hazards := make([]int, 0, levels*cfg.HazardsPerLevel)
	for lvl := 0; lvl < levels; lvl++ {
		hazards = append(hazards, PlaceHazards(src, cfg.Columns, cfg.HazardsPerLevel)...)
	}

	out := &TowerOutcome{Picks: picks}
	factor := cfg.LevelFactor()
	multiplier := 1.0

	for lvl, pick := range picks {
		levelHazards := hazards[lvl*cfg.HazardsPerLevel : (lvl+1)*cfg.HazardsPerLevel]
		if containsInt(levelHazards, pick) {
			out.Hit = true
			out.HitLevel = lvl + 1
			out.Multiplier = 0
			return hazards, out
		}
		multiplier *= factor
		out.Cleared = lvl + 1
	}

	out.Multiplier = multiplier
	return hazards, out
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
