// Package gameconfig holds the static per-game tables the resolvers run
// against: symbol weights, payline layouts and house-edge constants. Tables
// are versioned; a sealed round records the version in force at bet time so
// it can always be re-verified against the exact same numbers.
package gameconfig

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/fairdraw/engine/internal/engine"
)

// Tables is one immutable, versioned configuration set.
type Tables struct {
	Version string      `yaml:"version" json:"version"`
	Stakes  StakeBounds `yaml:"stakes" json:"stakes"`

	Cluster  ClusterConfig `yaml:"cluster" json:"cluster"`
	Paylines PaylineConfig `yaml:"paylines" json:"paylines"`
	Mines    MinesConfig   `yaml:"mines" json:"mines"`
	Limbo    LimboConfig   `yaml:"limbo" json:"limbo"`
	Crash    CrashConfig   `yaml:"crash" json:"crash"`
	Tower    TowerConfig   `yaml:"tower" json:"tower"`
}

// StakeBounds are serialized as strings to keep YAML exact for money values.
type StakeBounds struct {
	Min string `yaml:"min" json:"min"`
	Max string `yaml:"max" json:"max"`

	minD decimal.Decimal
	maxD decimal.Decimal
}

// Bounds returns the parsed stake limits. Valid only after Validate.
func (b *StakeBounds) Bounds() (min, max decimal.Decimal) {
	return b.minD, b.maxD
}

// ClusterPay pays Multiplier for a cluster of Symbol with size >= MinSize;
// the resolver picks the highest matching tier.
type ClusterPay struct {
	Symbol     string  `yaml:"symbol" json:"symbol"`
	MinSize    int     `yaml:"min_size" json:"min_size"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

type ClusterConfig struct {
	Rows           int                   `yaml:"rows" json:"rows"`
	Cols           int                   `yaml:"cols" json:"cols"`
	MinClusterSize int                   `yaml:"min_cluster_size" json:"min_cluster_size"`
	Weights        []engine.SymbolWeight `yaml:"weights" json:"weights"`
	Paytable       []ClusterPay          `yaml:"paytable" json:"paytable"`
	// CascadeMultipliers[i] scales wins at cascade level i+1; the last entry
	// repeats for deeper cascades.
	CascadeMultipliers []float64 `yaml:"cascade_multipliers" json:"cascade_multipliers"`
}

// LinePay pays Multiplier when Count positions of a payline show Symbol.
type LinePay struct {
	Symbol     string  `yaml:"symbol" json:"symbol"`
	Count      int     `yaml:"count" json:"count"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

type PaylineConfig struct {
	Rows  int `yaml:"rows" json:"rows"`
	Reels int `yaml:"reels" json:"reels"`
	// ReelWeights[r] is the weight table for reel r; reels are tuned
	// independently.
	ReelWeights [][]engine.SymbolWeight `yaml:"reel_weights" json:"reel_weights"`
	// Lines are position triples, row-major indices into the grid.
	Lines      [][]int   `yaml:"lines" json:"lines"`
	Paytable   []LinePay `yaml:"paytable" json:"paytable"`
	WildSymbol string    `yaml:"wild_symbol" json:"wild_symbol"`
	// TwoOfKindSymbol pays on two matches of this one symbol even when the
	// third position differs.
	TwoOfKindSymbol string `yaml:"two_of_kind_symbol" json:"two_of_kind_symbol"`
}

type MinesConfig struct {
	Rows      int     `yaml:"rows" json:"rows"`
	Cols      int     `yaml:"cols" json:"cols"`
	MinMines  int     `yaml:"min_mines" json:"min_mines"`
	MaxMines  int     `yaml:"max_mines" json:"max_mines"`
	HouseEdge float64 `yaml:"house_edge" json:"house_edge"`
}

func (c *MinesConfig) Cells() int { return c.Rows * c.Cols }

type LimboConfig struct {
	HouseEdge     float64 `yaml:"house_edge" json:"house_edge"`
	MinMultiplier float64 `yaml:"min_multiplier" json:"min_multiplier"`
	MaxMultiplier float64 `yaml:"max_multiplier" json:"max_multiplier"`
	MinTarget     float64 `yaml:"min_target" json:"min_target"`
	MaxTarget     float64 `yaml:"max_target" json:"max_target"`
}

type CrashConfig struct {
	HouseEdge     float64 `yaml:"house_edge" json:"house_edge"`
	MinMultiplier float64 `yaml:"min_multiplier" json:"min_multiplier"`
	MaxMultiplier float64 `yaml:"max_multiplier" json:"max_multiplier"`
	MinCashOut    float64 `yaml:"min_cash_out" json:"min_cash_out"`
	// GrowthRate drives the presentation curve m(t) = e^(rate*t), t in
	// seconds. It has no effect on fairness; the crash point alone does.
	GrowthRate float64 `yaml:"growth_rate" json:"growth_rate"`
}

type TowerConfig struct {
	Levels          int     `yaml:"levels" json:"levels"`
	Columns         int     `yaml:"columns" json:"columns"`
	HazardsPerLevel int     `yaml:"hazards_per_level" json:"hazards_per_level"`
	HouseEdge       float64 `yaml:"house_edge" json:"house_edge"`
}

// LevelFactor is the multiplier applied per safe level. It preserves the
// configured edge: survival chance is (cols-hazards)/cols, so a fair factor
// is the inverse, scaled by 1-edge.
func (c *TowerConfig) LevelFactor() float64 {
	return (1 - c.HouseEdge) * float64(c.Columns) / float64(c.Columns-c.HazardsPerLevel)
}

// Load reads and validates a table file.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game tables: %w", err)
	}

	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse game tables: %w", err)
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("game tables %s: %w", path, err)
	}

	return &t, nil
}

// LoadOrDefault loads path if non-empty, else the built-in v1 tables.
func LoadOrDefault(path string) (*Tables, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks structural sanity and parses money bounds. It must be
// called before the tables are handed to a resolver.
func (t *Tables) Validate() error {
	if t.Version == "" {
		return fmt.Errorf("version is required")
	}

	var err error
	if t.Stakes.minD, err = decimal.NewFromString(t.Stakes.Min); err != nil {
		return fmt.Errorf("stakes.min: %w", err)
	}
	if t.Stakes.maxD, err = decimal.NewFromString(t.Stakes.Max); err != nil {
		return fmt.Errorf("stakes.max: %w", err)
	}
	if t.Stakes.minD.LessThanOrEqual(decimal.Zero) || t.Stakes.maxD.LessThan(t.Stakes.minD) {
		return fmt.Errorf("stakes: need 0 < min <= max, got %s..%s", t.Stakes.Min, t.Stakes.Max)
	}

	if err := validateWeights("cluster.weights", t.Cluster.Weights); err != nil {
		return err
	}
	if t.Cluster.Rows < 2 || t.Cluster.Cols < 2 {
		return fmt.Errorf("cluster: grid %dx%d too small", t.Cluster.Rows, t.Cluster.Cols)
	}
	if t.Cluster.MinClusterSize < 2 {
		return fmt.Errorf("cluster: min_cluster_size %d < 2", t.Cluster.MinClusterSize)
	}
	if len(t.Cluster.CascadeMultipliers) == 0 {
		return fmt.Errorf("cluster: cascade_multipliers is empty")
	}
	if len(t.Cluster.Paytable) == 0 {
		return fmt.Errorf("cluster: paytable is empty")
	}

	if t.Paylines.Rows < 1 || t.Paylines.Reels < 1 {
		return fmt.Errorf("paylines: grid %dx%d invalid", t.Paylines.Rows, t.Paylines.Reels)
	}
	if len(t.Paylines.ReelWeights) != t.Paylines.Reels {
		return fmt.Errorf("paylines: %d reel weight tables for %d reels", len(t.Paylines.ReelWeights), t.Paylines.Reels)
	}
	for r, w := range t.Paylines.ReelWeights {
		if err := validateWeights(fmt.Sprintf("paylines.reel_weights[%d]", r), w); err != nil {
			return err
		}
	}
	if len(t.Paylines.Lines) == 0 {
		return fmt.Errorf("paylines: no lines configured")
	}
	cells := t.Paylines.Rows * t.Paylines.Reels
	for i, line := range t.Paylines.Lines {
		if len(line) != t.Paylines.Reels {
			return fmt.Errorf("paylines: line %d has %d positions, want %d", i, len(line), t.Paylines.Reels)
		}
		for _, p := range line {
			if p < 0 || p >= cells {
				return fmt.Errorf("paylines: line %d position %d outside grid", i, p)
			}
		}
	}

	if t.Mines.Rows < 2 || t.Mines.Cols < 2 {
		return fmt.Errorf("mines: grid %dx%d too small", t.Mines.Rows, t.Mines.Cols)
	}
	if t.Mines.MinMines < 1 || t.Mines.MaxMines >= t.Mines.Cells() || t.Mines.MinMines > t.Mines.MaxMines {
		return fmt.Errorf("mines: mine bounds %d..%d invalid for %d cells", t.Mines.MinMines, t.Mines.MaxMines, t.Mines.Cells())
	}

	for name, edge := range map[string]float64{
		"mines": t.Mines.HouseEdge, "limbo": t.Limbo.HouseEdge,
		"crash": t.Crash.HouseEdge, "tower": t.Tower.HouseEdge,
	} {
		if edge < 0 || edge >= 1 {
			return fmt.Errorf("%s: house_edge %v outside [0, 1)", name, edge)
		}
	}

	if t.Limbo.MinTarget <= t.Limbo.MinMultiplier || t.Limbo.MaxTarget > t.Limbo.MaxMultiplier {
		return fmt.Errorf("limbo: target bounds %v..%v outside multiplier range %v..%v",
			t.Limbo.MinTarget, t.Limbo.MaxTarget, t.Limbo.MinMultiplier, t.Limbo.MaxMultiplier)
	}
	if t.Crash.MinCashOut <= t.Crash.MinMultiplier || t.Crash.GrowthRate <= 0 {
		return fmt.Errorf("crash: min_cash_out %v / growth_rate %v invalid", t.Crash.MinCashOut, t.Crash.GrowthRate)
	}

	if t.Tower.Levels < 1 || t.Tower.Columns < 2 {
		return fmt.Errorf("tower: %d levels x %d columns invalid", t.Tower.Levels, t.Tower.Columns)
	}
	if t.Tower.HazardsPerLevel < 1 || t.Tower.HazardsPerLevel >= t.Tower.Columns {
		return fmt.Errorf("tower: %d hazards per level with %d columns", t.Tower.HazardsPerLevel, t.Tower.Columns)
	}

	return nil
}

func validateWeights(field string, table []engine.SymbolWeight) error {
	if len(table) == 0 {
		return fmt.Errorf("%s: empty weight table", field)
	}
	for _, e := range table {
		if e.Symbol == "" {
			return fmt.Errorf("%s: entry with empty symbol", field)
		}
		if e.Weight <= 0 {
			return fmt.Errorf("%s: symbol %q has non-positive weight %v", field, e.Symbol, e.Weight)
		}
	}
	return nil
}
