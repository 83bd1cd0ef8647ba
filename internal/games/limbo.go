package games

import (
	"math"

	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
)

// LimboOutcome is a single multiplier draw against a player target.
type LimboOutcome struct {
	Drawn  float64 `json:"drawn"`
	Target float64 `json:"target"`
	Win    bool    `json:"win"`
}

// resolveLimbo draws one house-edge multiplier. The public metric is
// floored to two decimals (display convention shared with crash); the win
// boundary is inclusive, so a drawn multiplier exactly equal to the target
// pays.
func resolveLimbo(src engine.Source, cfg *gameconfig.LimboConfig, target float64) (float64, *LimboOutcome) {
	raw := engine.HouseEdgeMultiplier(src, cfg.HouseEdge, cfg.MinMultiplier, cfg.MaxMultiplier)
	drawn := floorCents(raw)

	return raw, &LimboOutcome{
		Drawn:  drawn,
		Target: target,
		Win:    drawn >= target,
	}
}

// floorCents truncates a multiplier to two decimals, rounding toward the
// house.
func floorCents(m float64) float64 {
	return math.Floor(m*100) / 100
}
