package games

import (
	"math"
	"reflect"
	"testing"

	"github.com/fairdraw/engine/internal/gameconfig"
)

func TestPlaceHazards(t *testing.T) {
	// UniformInt reads 4-byte windows; small values are always accepted.
	// Draws: j=5 of [0,24], j=1+0 of [1,24], j=2+0 of [2,24].
	src := &seqSource{data: []byte{
		0, 0, 0, 5,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}}

	got := PlaceHazards(src, 25, 3)
	if !reflect.DeepEqual(got, []int{5, 1, 2}) {
		t.Errorf("hazards = %v, want [5 1 2]", got)
	}
}

func TestPlaceHazardsDistinct(t *testing.T) {
	src := &seqSource{data: nil} // all-zero stream is still a valid draw
	got := PlaceHazards(src, 25, 24)

	seen := make(map[int]bool)
	for _, h := range got {
		if seen[h] {
			t.Fatalf("hazard %d placed twice in %v", h, got)
		}
		seen[h] = true
		if h < 0 || h >= 25 {
			t.Fatalf("hazard %d outside grid", h)
		}
	}
}

func TestHazardStateReveal(t *testing.T) {
	state := NewHazardState(25, []int{3, 17}, 0.01)

	next, err := state.Reveal(0)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}

	// One safe reveal on 25 cells with 2 hazards: 0.99 * 25/23.
	want := 0.99 * 25.0 / 23.0
	if math.Abs(next.Multiplier-want) > 1e-12 {
		t.Errorf("multiplier = %v, want %v", next.Multiplier, want)
	}
	if next.Terminal {
		t.Error("state terminal after one safe reveal")
	}

	// The input state is untouched.
	if len(state.Revealed) != 0 || state.Multiplier != 1.0 {
		t.Errorf("input state mutated: %+v", state)
	}
}

func TestHazardStateHit(t *testing.T) {
	state := NewHazardState(25, []int{3}, 0.01)

	next, err := state.Reveal(3)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if !next.Terminal || !next.Hit || next.HitCell != 3 {
		t.Errorf("hit state = %+v, want terminal hit at cell 3", next)
	}
	if next.Multiplier != 0 {
		t.Errorf("multiplier after hit = %v, want 0", next.Multiplier)
	}

	if _, err := next.Reveal(4); err == nil {
		t.Error("reveal after terminal state succeeded")
	}
	if _, err := next.CashOut(); err == nil {
		t.Error("cash-out after terminal state succeeded")
	}
}

func TestHazardStateRevealErrors(t *testing.T) {
	state := NewHazardState(25, []int{3}, 0.01)
	state, _ = state.Reveal(0)

	if _, err := state.Reveal(0); err == nil {
		t.Error("double reveal succeeded")
	}
	if _, err := state.Reveal(25); err == nil {
		t.Error("out-of-grid reveal succeeded")
	}
	if _, err := state.Reveal(-1); err == nil {
		t.Error("negative reveal succeeded")
	}
}

func TestHazardStateExhaustionForcesCashOut(t *testing.T) {
	// 2x2 board, one hazard at cell 3: revealing all three safe cells must
	// force a terminal cash-out at the maximum multiplier for the config.
	state := NewHazardState(4, []int{3}, 0.01)

	var err error
	for _, cell := range []int{0, 1, 2} {
		state, err = state.Reveal(cell)
		if err != nil {
			t.Fatalf("Reveal(%d): %v", cell, err)
		}
	}

	if !state.Terminal || !state.CashedOut || state.Hit {
		t.Fatalf("state = %+v, want forced cash-out", state)
	}

	// 0.99 * 4/3 * 3/2 * 2/1 = 3.96.
	if math.Abs(state.Multiplier-3.96) > 1e-12 {
		t.Errorf("max multiplier = %v, want 3.96", state.Multiplier)
	}
}

func TestResolveMinesCashOut(t *testing.T) {
	cfg := &gameconfig.MinesConfig{Rows: 2, Cols: 2, MinMines: 1, MaxMines: 3, HouseEdge: 0.01}

	// Hazard lands on cell 3 (window value 3 -> j = 3).
	src := &seqSource{data: []byte{0, 0, 0, 3}}
	hazards, out := resolveMines(src, cfg, BetParams{Mines: 1, Picks: []int{0, 1}})

	if !reflect.DeepEqual(hazards, []int{3}) {
		t.Fatalf("hazards = %v, want [3]", hazards)
	}
	if out.Hit || !out.CashedOut {
		t.Fatalf("outcome = %+v, want voluntary cash-out", out)
	}

	// 0.99 * 4/3 * 3/2 = 1.98.
	if math.Abs(out.Multiplier-1.98) > 1e-12 {
		t.Errorf("multiplier = %v, want 1.98", out.Multiplier)
	}
}

func TestResolveMinesHitStopsPicks(t *testing.T) {
	cfg := &gameconfig.MinesConfig{Rows: 2, Cols: 2, MinMines: 1, MaxMines: 3, HouseEdge: 0.01}

	src := &seqSource{data: []byte{0, 0, 0, 1}} // hazard at cell 1
	_, out := resolveMines(src, cfg, BetParams{Mines: 1, Picks: []int{0, 1, 2}})

	if !out.Hit || out.HitCell != 1 {
		t.Fatalf("outcome = %+v, want hit at cell 1", out)
	}
	if out.Multiplier != 0 {
		t.Errorf("multiplier = %v, want 0", out.Multiplier)
	}
	// Pick 2 was never revealed; the round ended at the hazard.
	if !reflect.DeepEqual(out.Revealed, []int{0, 1}) {
		t.Errorf("revealed = %v, want [0 1]", out.Revealed)
	}
}

func TestResolveMinesExhaustion(t *testing.T) {
	cfg := &gameconfig.MinesConfig{Rows: 2, Cols: 2, MinMines: 1, MaxMines: 3, HouseEdge: 0.01}

	src := &seqSource{data: []byte{0, 0, 0, 3}} // hazard at cell 3
	_, out := resolveMines(src, cfg, BetParams{Mines: 1, Picks: []int{0, 1, 2}})

	if !out.MaxedOut || !out.CashedOut || out.Hit {
		t.Fatalf("outcome = %+v, want forced max cash-out", out)
	}
	if math.Abs(out.Multiplier-3.96) > 1e-12 {
		t.Errorf("multiplier = %v, want 3.96", out.Multiplier)
	}
}
