package games

import (
	"reflect"
	"testing"

	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
)

// testClusterConfig is a 3x3 grid with three equal-weight symbols, so a
// 4-byte window with leading byte 0 draws "a", 86 draws "b", 200 draws "c".
func testClusterConfig() *gameconfig.ClusterConfig {
	return &gameconfig.ClusterConfig{
		Rows:           3,
		Cols:           3,
		MinClusterSize: 3,
		Weights: []engine.SymbolWeight{
			{Symbol: "a", Weight: 1},
			{Symbol: "b", Weight: 1},
			{Symbol: "c", Weight: 1},
		},
		Paytable: []gameconfig.ClusterPay{
			{Symbol: "a", MinSize: 3, Multiplier: 1},
			{Symbol: "a", MinSize: 5, Multiplier: 4},
			{Symbol: "b", MinSize: 3, Multiplier: 2},
			{Symbol: "c", MinSize: 3, Multiplier: 3},
		},
		CascadeMultipliers: []float64{1, 2, 4},
	}
}

const (
	drawA = byte(0)
	drawB = byte(86)
	drawC = byte(200)
)

func TestClusterGoldenSingleCascade(t *testing.T) {
	// Initial grid (row-major):
	//   a a a
	//   b c b
	//   c b c
	// Only the top row clusters. After removal the two lower rows hold,
	// and the refills b, c, b land in row 0 without forming a new cluster.
	src := &seqSource{data: windows(
		drawA, drawA, drawA,
		drawB, drawC, drawB,
		drawC, drawB, drawC,
		// refills, columns left to right
		drawB, drawC, drawB,
	)}

	grid, out := resolveCluster(src, testClusterConfig())

	wantGrid := [][]string{
		{"a", "a", "a"},
		{"b", "c", "b"},
		{"c", "b", "c"},
	}
	if !reflect.DeepEqual(grid, wantGrid) {
		t.Fatalf("initial grid = %v, want %v", grid, wantGrid)
	}

	if len(out.Cascades) != 1 {
		t.Fatalf("cascade count = %d, want 1", len(out.Cascades))
	}

	step := out.Cascades[0]
	if step.Level != 1 || step.LevelMultiplier != 1 {
		t.Errorf("step = level %d x%v, want level 1 x1", step.Level, step.LevelMultiplier)
	}
	if len(step.Clusters) != 1 {
		t.Fatalf("cluster count = %d, want 1", len(step.Clusters))
	}

	win := step.Clusters[0]
	if win.Symbol != "a" {
		t.Errorf("cluster symbol = %q, want a", win.Symbol)
	}
	if !reflect.DeepEqual(win.Cells, []int{0, 1, 2}) {
		t.Errorf("cluster cells = %v, want [0 1 2]", win.Cells)
	}
	if win.Multiplier != 1 {
		t.Errorf("cluster multiplier = %v, want 1", win.Multiplier)
	}

	if out.TotalMultiplier != 1 {
		t.Errorf("total multiplier = %v, want 1", out.TotalMultiplier)
	}

	// All stream bytes were spent: 9 initial cells + 3 refills.
	if src.pos != 12*4 {
		t.Errorf("consumed %d bytes, want %d", src.pos, 12*4)
	}
}

func TestClusterNoWin(t *testing.T) {
	// Checkerboard: no two identical symbols are adjacent.
	src := &seqSource{data: windows(
		drawA, drawB, drawA,
		drawB, drawA, drawB,
		drawA, drawB, drawA,
	)}

	_, out := resolveCluster(src, testClusterConfig())

	if len(out.Cascades) != 0 {
		t.Fatalf("cascades = %d, want 0", len(out.Cascades))
	}
	if out.TotalMultiplier != 0 {
		t.Errorf("total multiplier = %v, want 0", out.TotalMultiplier)
	}
	if src.pos != 9*4 {
		t.Errorf("consumed %d bytes, want %d (no refills)", src.pos, 9*4)
	}
}

func TestClusterCascadeLevelMultiplier(t *testing.T) {
	// Initial grid:
	//   a a a
	//   b c b
	//   b c b
	// Level 1 clears the top row of a's. Refilling row 0 with b, a, b
	// completes both outer columns into vertical b-clusters, which pay at
	// the doubled level-2 multiplier. The final six refills settle with no
	// third cascade.
	src := &seqSource{data: windows(
		drawA, drawA, drawA,
		drawB, drawC, drawB,
		drawB, drawC, drawB,
		// refills after the a-cluster clears
		drawB, drawA, drawB,
		// refills after both b-columns clear: column 0 then column 2
		drawA, drawB, drawA,
		drawB, drawA, drawB,
	)}

	_, out := resolveCluster(src, testClusterConfig())

	if len(out.Cascades) != 2 {
		t.Fatalf("cascades = %d, want 2", len(out.Cascades))
	}

	first, second := out.Cascades[0], out.Cascades[1]
	if first.Clusters[0].Symbol != "a" || first.Clusters[0].Multiplier != 1 {
		t.Errorf("first cascade = %+v, want a x1", first.Clusters[0])
	}
	if second.LevelMultiplier != 2 {
		t.Errorf("second level multiplier = %v, want 2", second.LevelMultiplier)
	}
	if len(second.Clusters) != 2 {
		t.Fatalf("second cascade cluster count = %d, want 2", len(second.Clusters))
	}

	for i, win := range second.Clusters {
		if win.Symbol != "b" || win.Multiplier != 4 {
			t.Errorf("second cascade cluster %d = %+v, want b at 2 base x2 level", i, win)
		}
	}

	// 1 (a-cluster) + 4 + 4 (two b-columns at level 2).
	if out.TotalMultiplier != 9 {
		t.Errorf("total multiplier = %v, want 9", out.TotalMultiplier)
	}
}

func TestClusterPayTiering(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		size   int
		want   float64
	}{
		{name: "below any tier", symbol: "a", size: 2, want: 0},
		{name: "base tier", symbol: "a", size: 3, want: 1},
		{name: "between tiers", symbol: "a", size: 4, want: 1},
		{name: "upper tier", symbol: "a", size: 5, want: 4},
		{name: "beyond upper tier", symbol: "a", size: 9, want: 4},
		{name: "unknown symbol", symbol: "x", size: 9, want: 0},
	}

	cfg := testClusterConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clusterPay(cfg.Paytable, tt.symbol, tt.size); got != tt.want {
				t.Errorf("clusterPay(%s, %d) = %v, want %v", tt.symbol, tt.size, got, tt.want)
			}
		})
	}
}

func TestFindClustersIterative(t *testing.T) {
	// A snake-shaped 9-cell cluster exercises the explicit stack on a
	// shape that would be deep for naive recursion.
	grid := []string{
		"a", "a", "a",
		"b", "b", "a",
		"a", "a", "a",
	}
	clusters := findClusters(grid, 3, 3, 3)

	if len(clusters) != 1 {
		t.Fatalf("cluster count = %d, want 1", len(clusters))
	}
	if !reflect.DeepEqual(clusters[0].Cells, []int{0, 1, 2, 5, 6, 7, 8}) {
		t.Errorf("cells = %v, want snake [0 1 2 5 6 7 8]", clusters[0].Cells)
	}
}

func TestCollapseColumns(t *testing.T) {
	grid := []string{
		"a", "", "c",
		"", "", "c",
		"b", "b", "",
	}
	collapseColumns(grid, 3, 3)

	want := []string{
		"", "", "",
		"a", "", "c",
		"b", "b", "c",
	}
	if !reflect.DeepEqual(grid, want) {
		t.Errorf("collapsed = %v, want %v", grid, want)
	}
}
