package games

import (
	"fmt"

	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
)

// MinesOutcome is the settled state of a grid-hazard round.
type MinesOutcome struct {
	MineCount  int     `json:"mine_count"`
	Revealed   []int   `json:"revealed"`
	Hit        bool    `json:"hit"`
	HitCell    int     `json:"hit_cell"`
	CashedOut  bool    `json:"cashed_out"`
	MaxedOut   bool    `json:"maxed_out"`
	Multiplier float64 `json:"multiplier"`
}

// PlaceHazards places count hazards uniformly among cells without
// replacement, via a partial Fisher-Yates driven by rejection-sampled
// uniform integers. Returned positions are in draw order.
func PlaceHazards(src engine.Source, cells, count int) []int {
	pool := make([]int, cells)
	for i := range pool {
		pool[i] = i
	}

	for i := 0; i < count; i++ {
		j := engine.UniformInt(src, i, cells-1)
		pool[i], pool[j] = pool[j], pool[i]
	}

	out := make([]int, count)
	copy(out, pool[:count])
	return out
}

// HazardState is the reveal/cash-out state machine. Values are immutable:
// Reveal and CashOut return the successor state, so callers thread session
// state explicitly and the resolver stays pure.
type HazardState struct {
	Cells      int     `json:"cells"`
	HouseEdge  float64 `json:"house_edge"`
	Hazards    []int   `json:"hazards"`
	Revealed   []int   `json:"revealed"`
	Terminal   bool    `json:"terminal"`
	Hit        bool    `json:"hit"`
	HitCell    int     `json:"hit_cell"`
	CashedOut  bool    `json:"cashed_out"`
	Multiplier float64 `json:"multiplier"`
}

func NewHazardState(cells int, hazards []int, houseEdge float64) HazardState {
	return HazardState{
		Cells:      cells,
		HouseEdge:  houseEdge,
		Hazards:    hazards,
		Revealed:   []int{},
		HitCell:    -1,
		Multiplier: 1.0,
	}
}

// Reveal opens one cell. A hazard ends the round at multiplier zero; a safe
// cell grows the multiplier by the inverse of the survival odds at that
// step, which keeps the configured edge at every cash-out point. Revealing
// the last safe cell forces a terminal cash-out.
func (s HazardState) Reveal(cell int) (HazardState, error) {
	if s.Terminal {
		return s, fmt.Errorf("round is already terminal")
	}
	if cell < 0 || cell >= s.Cells {
		return s, fmt.Errorf("cell %d outside grid of %d", cell, s.Cells)
	}
	for _, r := range s.Revealed {
		if r == cell {
			return s, fmt.Errorf("cell %d already revealed", cell)
		}
	}

	next := s
	next.Revealed = append(append([]int{}, s.Revealed...), cell)

	for _, h := range s.Hazards {
		if h == cell {
			next.Terminal = true
			next.Hit = true
			next.HitCell = cell
			next.Multiplier = 0
			return next, nil
		}
	}

	next.Multiplier = hazardMultiplier(s.Cells, len(s.Hazards), len(next.Revealed), s.HouseEdge)
	if len(next.Revealed) == s.Cells-len(s.Hazards) {
		next.Terminal = true
		next.CashedOut = true
	}
	return next, nil
}

// CashOut ends the round voluntarily at the current multiplier.
func (s HazardState) CashOut() (HazardState, error) {
	if s.Terminal {
		return s, fmt.Errorf("round is already terminal")
	}
	next := s
	next.Terminal = true
	next.CashedOut = true
	return next, nil
}

// hazardMultiplier is (1-edge) * prod (cells-i)/(cells-hazards-i) over the
// safe reveals so far. Each factor is the inverse of that step's survival
// probability, so expected return stays 1-edge after every reveal.
func hazardMultiplier(cells, hazards, revealed int, edge float64) float64 {
	m := 1 - edge
	for i := 0; i < revealed; i++ {
		m *= float64(cells-i) / float64(cells-hazards-i)
	}
	return m
}

// resolveMines seals a full mines round: place hazards, replay the pick
// sequence through the state machine, cash out whatever survives.
func resolveMines(src engine.Source, cfg *gameconfig.MinesConfig, p BetParams) ([]int, *MinesOutcome) {
	hazards := PlaceHazards(src, cfg.Cells(), p.Mines)
	state := NewHazardState(cfg.Cells(), hazards, cfg.HouseEdge)

	for _, pick := range p.Picks {
		// Picks were validated: in range, unique, no more than the safe
		// cell count. The only reachable error is revealing past terminal,
		// which the break prevents.
		state, _ = state.Reveal(pick)
		if state.Terminal {
			break
		}
	}
	maxedOut := state.Terminal && state.CashedOut
	if !state.Terminal {
		state, _ = state.CashOut()
	}

	return hazards, &MinesOutcome{
		MineCount:  p.Mines,
		Revealed:   state.Revealed,
		Hit:        state.Hit,
		HitCell:    state.HitCell,
		CashedOut:  state.CashedOut,
		MaxedOut:   maxedOut,
		Multiplier: state.Multiplier,
	}
}
