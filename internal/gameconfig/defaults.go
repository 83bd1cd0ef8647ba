package gameconfig

import "github.com/fairdraw/engine/internal/engine"

// Default returns the built-in v1 tables. The numbers here are the launch
// configuration; operators override them with a YAML file, and every sealed
// round pins the version it was resolved under.
func Default() *Tables {
	t := &Tables{
		Version: "v1",
		Stakes:  StakeBounds{Min: "0.01", Max: "10000"},

		Cluster: ClusterConfig{
			Rows:           7,
			Cols:           7,
			MinClusterSize: 5,
			Weights: []engine.SymbolWeight{
				{Symbol: "red", Weight: 22},
				{Symbol: "orange", Weight: 20},
				{Symbol: "yellow", Weight: 18},
				{Symbol: "green", Weight: 16},
				{Symbol: "blue", Weight: 14},
				{Symbol: "purple", Weight: 10},
			},
			Paytable: []ClusterPay{
				{Symbol: "red", MinSize: 5, Multiplier: 0.2},
				{Symbol: "red", MinSize: 8, Multiplier: 0.6},
				{Symbol: "red", MinSize: 12, Multiplier: 2},
				{Symbol: "orange", MinSize: 5, Multiplier: 0.3},
				{Symbol: "orange", MinSize: 8, Multiplier: 0.8},
				{Symbol: "orange", MinSize: 12, Multiplier: 3},
				{Symbol: "yellow", MinSize: 5, Multiplier: 0.4},
				{Symbol: "yellow", MinSize: 8, Multiplier: 1},
				{Symbol: "yellow", MinSize: 12, Multiplier: 4},
				{Symbol: "green", MinSize: 5, Multiplier: 0.5},
				{Symbol: "green", MinSize: 8, Multiplier: 1.5},
				{Symbol: "green", MinSize: 12, Multiplier: 6},
				{Symbol: "blue", MinSize: 5, Multiplier: 0.8},
				{Symbol: "blue", MinSize: 8, Multiplier: 2.5},
				{Symbol: "blue", MinSize: 12, Multiplier: 10},
				{Symbol: "purple", MinSize: 5, Multiplier: 1.5},
				{Symbol: "purple", MinSize: 8, Multiplier: 5},
				{Symbol: "purple", MinSize: 12, Multiplier: 25},
			},
			CascadeMultipliers: []float64{1, 2, 3, 5, 10},
		},

		Paylines: PaylineConfig{
			Rows:  3,
			Reels: 3,
			ReelWeights: [][]engine.SymbolWeight{
				{
					{Symbol: "cherry", Weight: 30},
					{Symbol: "bar", Weight: 26},
					{Symbol: "double_bar", Weight: 18},
					{Symbol: "triple_bar", Weight: 12},
					{Symbol: "seven", Weight: 8},
					{Symbol: "wild", Weight: 6},
				},
				{
					{Symbol: "cherry", Weight: 32},
					{Symbol: "bar", Weight: 28},
					{Symbol: "double_bar", Weight: 17},
					{Symbol: "triple_bar", Weight: 11},
					{Symbol: "seven", Weight: 7},
					{Symbol: "wild", Weight: 5},
				},
				{
					{Symbol: "cherry", Weight: 34},
					{Symbol: "bar", Weight: 30},
					{Symbol: "double_bar", Weight: 16},
					{Symbol: "triple_bar", Weight: 10},
					{Symbol: "seven", Weight: 6},
					{Symbol: "wild", Weight: 4},
				},
			},
			// Three horizontals, then the two diagonals.
			Lines: [][]int{
				{0, 1, 2},
				{3, 4, 5},
				{6, 7, 8},
				{0, 4, 8},
				{6, 4, 2},
			},
			Paytable: []LinePay{
				{Symbol: "seven", Count: 3, Multiplier: 60},
				{Symbol: "wild", Count: 3, Multiplier: 100},
				{Symbol: "triple_bar", Count: 3, Multiplier: 25},
				{Symbol: "double_bar", Count: 3, Multiplier: 12},
				{Symbol: "bar", Count: 3, Multiplier: 6},
				{Symbol: "cherry", Count: 3, Multiplier: 4},
				{Symbol: "cherry", Count: 2, Multiplier: 1},
			},
			WildSymbol:      "wild",
			TwoOfKindSymbol: "cherry",
		},

		Mines: MinesConfig{
			Rows:      5,
			Cols:      5,
			MinMines:  1,
			MaxMines:  24,
			HouseEdge: 0.01,
		},

		Limbo: LimboConfig{
			HouseEdge:     0.01,
			MinMultiplier: 1.0,
			MaxMultiplier: 1_000_000,
			MinTarget:     1.01,
			MaxTarget:     1_000_000,
		},

		Crash: CrashConfig{
			HouseEdge:     0.01,
			MinMultiplier: 1.0,
			MaxMultiplier: 1_000_000,
			MinCashOut:    1.01,
			GrowthRate:    0.06,
		},

		Tower: TowerConfig{
			Levels:          9,
			Columns:         4,
			HazardsPerLevel: 1,
			HouseEdge:       0.01,
		},
	}

	if err := t.Validate(); err != nil {
		// The built-in tables are fixed at compile time; failing validation
		// is a programming error.
		panic("gameconfig: default tables invalid: " + err.Error())
	}

	return t
}
