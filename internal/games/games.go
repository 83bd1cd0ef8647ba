// Package games holds the per-game resolvers. Every resolver is a pure
// function of the byte stream and the configuration tables: no resolver
// keeps cross-round state, so identical seeds always reproduce an identical
// outcome.
package games

import (
	"github.com/shopspring/decimal"

	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
)

// GameType is a closed enum over the supported game families. Adding a game
// means extending the switches in ValidateParams and Resolve; the compiler
// and the default branches keep dispatch exhaustive.
type GameType string

const (
	GameCluster  GameType = "cluster"
	GamePaylines GameType = "paylines"
	GameMines    GameType = "mines"
	GameLimbo    GameType = "limbo"
	GameCrash    GameType = "crash"
	GameTower    GameType = "tower"
)

// All lists the supported game types in a stable order.
func All() []GameType {
	return []GameType{GameCluster, GamePaylines, GameMines, GameLimbo, GameCrash, GameTower}
}

func (g GameType) Valid() bool {
	switch g {
	case GameCluster, GamePaylines, GameMines, GameLimbo, GameCrash, GameTower:
		return true
	}
	return false
}

// BetParams is the player-supplied portion of a round's configuration.
// Which fields apply depends on the game type; ValidateParams enforces it.
type BetParams struct {
	// Paylines: number of lines played, 1..len(tables.Paylines.Lines).
	ActiveLines int `json:"active_lines,omitempty"`
	// Mines: hazard count and the reveal sequence, in pick order.
	Mines int   `json:"mines,omitempty"`
	Picks []int `json:"picks,omitempty"`
	// Limbo: target multiplier; win iff drawn >= target.
	Target float64 `json:"target,omitempty"`
	// Crash: auto cash-out multiplier, validated against the crash point.
	CashOut float64 `json:"cash_out,omitempty"`
	// Tower: one column pick per level climbed; cashes out after the last.
	Columns []int `json:"columns,omitempty"`
}

// RawDraw is the uninterpreted stream output for a round: a symbol grid, a
// hazard placement, or a single drawn value. It is created once by the
// resolver that owns it and never mutated.
type RawDraw struct {
	Grid    [][]string `json:"grid,omitempty"`
	Hazards []int      `json:"hazards,omitempty"`
	Value   float64    `json:"value,omitempty"`
}

// ResolvedOutcome is the tagged union of per-game results plus the payout
// figures every game shares. Exactly one of the game pointers is set.
type ResolvedOutcome struct {
	Game             GameType        `json:"game"`
	PayoutMultiplier float64         `json:"payout_multiplier"`
	PayoutAmount     decimal.Decimal `json:"payout_amount"`

	Cluster  *ClusterOutcome  `json:"cluster,omitempty"`
	Paylines *PaylinesOutcome `json:"paylines,omitempty"`
	Mines    *MinesOutcome    `json:"mines,omitempty"`
	Limbo    *LimboOutcome    `json:"limbo,omitempty"`
	Crash    *CrashOutcome    `json:"crash,omitempty"`
	Tower    *TowerOutcome    `json:"tower,omitempty"`
}

// ValidateParams rejects malformed bets before any seed or nonce is
// consumed. All failures are *engine.ValidationError.
func ValidateParams(game GameType, t *gameconfig.Tables, p BetParams) error {
	switch game {
	case GameCluster:
		return nil

	case GamePaylines:
		if p.ActiveLines < 1 || p.ActiveLines > len(t.Paylines.Lines) {
			return engine.Validationf("active_lines", "must be between 1 and %d, got %d", len(t.Paylines.Lines), p.ActiveLines)
		}
		return nil

	case GameMines:
		cfg := &t.Mines
		if p.Mines < cfg.MinMines || p.Mines > cfg.MaxMines {
			return engine.Validationf("mines", "must be between %d and %d, got %d", cfg.MinMines, cfg.MaxMines, p.Mines)
		}
		if len(p.Picks) == 0 {
			return engine.Validationf("picks", "at least one reveal is required")
		}
		if len(p.Picks) > cfg.Cells()-p.Mines {
			return engine.Validationf("picks", "at most %d safe reveals exist for %d mines", cfg.Cells()-p.Mines, p.Mines)
		}
		seen := make(map[int]bool, len(p.Picks))
		for _, c := range p.Picks {
			if c < 0 || c >= cfg.Cells() {
				return engine.Validationf("picks", "cell %d outside %dx%d grid", c, cfg.Rows, cfg.Cols)
			}
			if seen[c] {
				return engine.Validationf("picks", "cell %d revealed twice", c)
			}
			seen[c] = true
		}
		return nil

	case GameLimbo:
		if p.Target < t.Limbo.MinTarget || p.Target > t.Limbo.MaxTarget {
			return engine.Validationf("target", "must be between %v and %v, got %v", t.Limbo.MinTarget, t.Limbo.MaxTarget, p.Target)
		}
		return nil

	case GameCrash:
		if p.CashOut < t.Crash.MinCashOut || p.CashOut > t.Crash.MaxMultiplier {
			return engine.Validationf("cash_out", "must be between %v and %v, got %v", t.Crash.MinCashOut, t.Crash.MaxMultiplier, p.CashOut)
		}
		return nil

	case GameTower:
		cfg := &t.Tower
		if len(p.Columns) < 1 || len(p.Columns) > cfg.Levels {
			return engine.Validationf("columns", "must pick between 1 and %d levels, got %d", cfg.Levels, len(p.Columns))
		}
		for lvl, c := range p.Columns {
			if c < 0 || c >= cfg.Columns {
				return engine.Validationf("columns", "level %d pick %d outside 0..%d", lvl+1, c, cfg.Columns-1)
			}
		}
		return nil

	default:
		return engine.Validationf("game", "unknown game type %q", string(game))
	}
}

// Resolve draws a raw board or value from the stream and settles it into an
// outcome. Params must already have passed ValidateParams; stake must be
// within table bounds.
func Resolve(game GameType, src engine.Source, t *gameconfig.Tables, p BetParams, stake decimal.Decimal) (RawDraw, ResolvedOutcome, error) {
	var (
		raw RawDraw
		out ResolvedOutcome
	)

	switch game {
	case GameCluster:
		grid, cluster := resolveCluster(src, &t.Cluster)
		raw = RawDraw{Grid: grid}
		out = ResolvedOutcome{Game: game, PayoutMultiplier: cluster.TotalMultiplier, Cluster: cluster}

	case GamePaylines:
		grid, lines := resolvePaylines(src, &t.Paylines, p.ActiveLines)
		raw = RawDraw{Grid: grid}
		out = ResolvedOutcome{Game: game, PayoutMultiplier: lines.TotalMultiplier, Paylines: lines}

	case GameMines:
		hazards, mines := resolveMines(src, &t.Mines, p)
		raw = RawDraw{Hazards: hazards}
		out = ResolvedOutcome{Game: game, PayoutMultiplier: mines.Multiplier, Mines: mines}
		if mines.Hit {
			out.PayoutMultiplier = 0
		}

	case GameLimbo:
		drawn, limbo := resolveLimbo(src, &t.Limbo, p.Target)
		raw = RawDraw{Value: drawn}
		out = ResolvedOutcome{Game: game, Limbo: limbo}
		if limbo.Win {
			out.PayoutMultiplier = p.Target
		}

	case GameCrash:
		drawn, crash := resolveCrash(src, &t.Crash, p.CashOut)
		raw = RawDraw{Value: drawn}
		out = ResolvedOutcome{Game: game, Crash: crash}
		if crash.Win {
			out.PayoutMultiplier = p.CashOut
		}

	case GameTower:
		hazards, tower := resolveTower(src, &t.Tower, p.Columns)
		raw = RawDraw{Hazards: hazards}
		out = ResolvedOutcome{Game: game, PayoutMultiplier: tower.Multiplier, Tower: tower}

	default:
		return RawDraw{}, ResolvedOutcome{}, engine.Validationf("game", "unknown game type %q", string(game))
	}

	out.PayoutAmount = stake.Mul(decimal.NewFromFloat(out.PayoutMultiplier)).Round(8)
	return raw, out, nil
}
