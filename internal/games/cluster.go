package games

import (
	"sort"

	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
)

// ClusterOutcome records the full cascade history of a cluster round.
type ClusterOutcome struct {
	Cascades        []CascadeStep `json:"cascades"`
	TotalMultiplier float64       `json:"total_multiplier"`
}

// CascadeStep is one remove-and-refill iteration.
type CascadeStep struct {
	Level           int          `json:"level"`
	LevelMultiplier float64      `json:"level_multiplier"`
	Clusters        []ClusterWin `json:"clusters"`
}

// ClusterWin is one connected component that paid. Cells are row-major
// indices into the grid, sorted ascending.
type ClusterWin struct {
	Symbol     string  `json:"symbol"`
	Cells      []int   `json:"cells"`
	Multiplier float64 `json:"multiplier"`
}

// resolveCluster fills the grid from the stream, then cascades: matched
// clusters are removed, symbols above fall down, and empty cells refill
// from the same stream until a pass produces no cluster of minimum size.
func resolveCluster(src engine.Source, cfg *gameconfig.ClusterConfig) ([][]string, *ClusterOutcome) {
	rows, cols := cfg.Rows, cfg.Cols
	grid := make([]string, rows*cols)
	for i := range grid {
		grid[i] = engine.WeightedSymbol(src, cfg.Weights)
	}
	initial := gridRows(grid, rows, cols)

	out := &ClusterOutcome{Cascades: []CascadeStep{}}
	for level := 1; ; level++ {
		clusters := findClusters(grid, rows, cols, cfg.MinClusterSize)
		if len(clusters) == 0 {
			break
		}

		levelMult := cascadeMultiplier(cfg.CascadeMultipliers, level)
		step := CascadeStep{Level: level, LevelMultiplier: levelMult}
		for _, cl := range clusters {
			base := clusterPay(cfg.Paytable, cl.Symbol, len(cl.Cells))
			win := ClusterWin{Symbol: cl.Symbol, Cells: cl.Cells, Multiplier: base * levelMult}
			out.TotalMultiplier += win.Multiplier
			step.Clusters = append(step.Clusters, win)

			for _, c := range cl.Cells {
				grid[c] = ""
			}
		}
		out.Cascades = append(out.Cascades, step)

		collapseColumns(grid, rows, cols)
		refill(src, grid, rows, cols, cfg.Weights)
	}

	return initial, out
}

// findClusters locates 4-directional connected components of identical
// symbols with size >= minSize. The flood fill is iterative with an
// explicit stack, so grid size bounds memory rather than recursion depth.
func findClusters(grid []string, rows, cols, minSize int) []ClusterWin {
	visited := make([]bool, len(grid))
	var clusters []ClusterWin
	stack := make([]int, 0, len(grid))

	for start := range grid {
		if visited[start] || grid[start] == "" {
			continue
		}

		symbol := grid[start]
		cells := []int{}
		stack = append(stack[:0], start)
		visited[start] = true

		for len(stack) > 0 {
			cell := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cells = append(cells, cell)

			r, c := cell/cols, cell%cols
			neighbors := [4]int{-1, -1, -1, -1}
			if r > 0 {
				neighbors[0] = cell - cols
			}
			if r < rows-1 {
				neighbors[1] = cell + cols
			}
			if c > 0 {
				neighbors[2] = cell - 1
			}
			if c < cols-1 {
				neighbors[3] = cell + 1
			}
			for _, n := range neighbors {
				if n < 0 || visited[n] || grid[n] != symbol {
					continue
				}
				visited[n] = true
				stack = append(stack, n)
			}
		}

		if len(cells) >= minSize {
			sort.Ints(cells)
			clusters = append(clusters, ClusterWin{Symbol: symbol, Cells: cells})
		}
	}

	return clusters
}

// collapseColumns drops symbols into the empty cells below them, column by
// column, keeping their relative order.
func collapseColumns(grid []string, rows, cols int) {
	for c := 0; c < cols; c++ {
		write := rows - 1
		for r := rows - 1; r >= 0; r-- {
			if s := grid[r*cols+c]; s != "" {
				grid[write*cols+c] = s
				write--
			}
		}
		for r := write; r >= 0; r-- {
			grid[r*cols+c] = ""
		}
	}
}

// refill draws fresh symbols for empty cells: columns left to right, and
// within a column top to bottom. The order is part of the public algorithm,
// since verification must replay the exact stream consumption.
func refill(src engine.Source, grid []string, rows, cols int, weights []engine.SymbolWeight) {
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			if grid[r*cols+c] == "" {
				grid[r*cols+c] = engine.WeightedSymbol(src, weights)
			}
		}
	}
}

// cascadeMultiplier returns the level multiplier, repeating the last
// configured entry for deeper cascades.
func cascadeMultiplier(table []float64, level int) float64 {
	if level-1 < len(table) {
		return table[level-1]
	}
	return table[len(table)-1]
}

// clusterPay finds the highest paytable tier the cluster size reaches.
func clusterPay(paytable []gameconfig.ClusterPay, symbol string, size int) float64 {
	best := 0.0
	bestSize := -1
	for _, p := range paytable {
		if p.Symbol == symbol && size >= p.MinSize && p.MinSize > bestSize {
			best = p.Multiplier
			bestSize = p.MinSize
		}
	}
	return best
}

func gridRows(grid []string, rows, cols int) [][]string {
	out := make([][]string, rows)
	for r := 0; r < rows; r++ {
		row := make([]string, cols)
		copy(row, grid[r*cols:(r+1)*cols])
		out[r] = row
	}
	return out
}
