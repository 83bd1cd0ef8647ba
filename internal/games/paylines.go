package games

import (
	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
)

// PaylinesOutcome lists the winning lines of a payline round.
type PaylinesOutcome struct {
	ActiveLines     int       `json:"active_lines"`
	Wins            []LineWin `json:"wins"`
	TotalMultiplier float64   `json:"total_multiplier"`
}

// LineWin is one payline that paid. Line is the index into the configured
// line table; Count is 3 for a full match or 2 for the two-of-a-kind symbol.
type LineWin struct {
	Line       int     `json:"line"`
	Symbol     string  `json:"symbol"`
	Count      int     `json:"count"`
	Multiplier float64 `json:"multiplier"`
}

// resolvePaylines spins the window reel by reel, each reel against its own
// weight table, then settles the first activeLines configured lines.
func resolvePaylines(src engine.Source, cfg *gameconfig.PaylineConfig, activeLines int) ([][]string, *PaylinesOutcome) {
	grid := make([]string, cfg.Rows*cfg.Reels)
	for reel := 0; reel < cfg.Reels; reel++ {
		for row := 0; row < cfg.Rows; row++ {
			grid[row*cfg.Reels+reel] = engine.WeightedSymbol(src, cfg.ReelWeights[reel])
		}
	}

	out := &PaylinesOutcome{ActiveLines: activeLines, Wins: []LineWin{}}
	for i := 0; i < activeLines; i++ {
		if win, ok := settleLine(grid, cfg, i); ok {
			out.Wins = append(out.Wins, win)
			out.TotalMultiplier += win.Multiplier
		}
	}

	return gridRows(grid, cfg.Rows, cfg.Reels), out
}

func settleLine(grid []string, cfg *gameconfig.PaylineConfig, line int) (LineWin, bool) {
	positions := cfg.Lines[line]

	// Full match: every non-wild position shares one symbol.
	effective := ""
	full := true
	for _, p := range positions {
		s := grid[p]
		if s == cfg.WildSymbol {
			continue
		}
		if effective == "" {
			effective = s
		} else if s != effective {
			full = false
			break
		}
	}
	if full {
		if effective == "" {
			effective = cfg.WildSymbol
		}
		if m := linePay(cfg.Paytable, effective, len(positions)); m > 0 {
			return LineWin{Line: line, Symbol: effective, Count: len(positions), Multiplier: m}, true
		}
	}

	// Two-of-a-kind special case for the one configured symbol; wilds
	// substitute for it like any other.
	if cfg.TwoOfKindSymbol != "" {
		count := 0
		for _, p := range positions {
			if s := grid[p]; s == cfg.TwoOfKindSymbol || s == cfg.WildSymbol {
				count++
			}
		}
		if count >= 2 {
			if m := linePay(cfg.Paytable, cfg.TwoOfKindSymbol, 2); m > 0 {
				return LineWin{Line: line, Symbol: cfg.TwoOfKindSymbol, Count: 2, Multiplier: m}, true
			}
		}
	}

	return LineWin{}, false
}

func linePay(paytable []gameconfig.LinePay, symbol string, count int) float64 {
	for _, p := range paytable {
		if p.Symbol == symbol && p.Count == count {
			return p.Multiplier
		}
	}
	return 0
}
