package engine

import "math"

// SymbolWeight is one entry of a weighted draw table. Tables are per-game,
// per-reel configuration; the sampler never assumes a particular total.
type SymbolWeight struct {
	Symbol string  `json:"symbol" yaml:"symbol"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// UniformInt returns a uniform integer in [min, max] inclusive.
//
// It consumes the stream in 4-byte windows and rejection-samples: windows
// that fall in the truncated tail of the 32-bit range are discarded, so the
// result carries no modulo bias. Panics if min > max, like math/rand, and if
// the span exceeds the 2^32 values a window can draw.
func UniformInt(src Source, min, max int) int {
	if min > max {
		panic("engine: UniformInt called with min > max")
	}

	span := uint64(max-min) + 1
	if span > 1<<32 {
		panic("engine: UniformInt span exceeds the 32-bit draw window")
	}
	limit := (uint64(1) << 32) / span * span

	for {
		v := uint64(src.Next())<<24 | uint64(src.Next())<<16 | uint64(src.Next())<<8 | uint64(src.Next())
		if v < limit {
			return min + int(v%span)
		}
	}
}

// WeightedSymbol draws one symbol from a cumulative-weight table using a
// single 4-byte uniform fraction.
func WeightedSymbol(src Source, table []SymbolWeight) string {
	if len(table) == 0 {
		panic("engine: WeightedSymbol called with empty table")
	}

	total := 0.0
	for _, e := range table {
		total += e.Weight
	}

	u := Float(src) * total
	for _, e := range table {
		if u < e.Weight {
			return e.Symbol
		}
		u -= e.Weight
	}

	// Floating-point accumulation can leave u a hair past the final band.
	return table[len(table)-1].Symbol
}

// HouseEdgeMultiplier draws a payout multiplier whose distribution returns
// exactly (1 - houseEdge) per unit staked at any target within range:
//
//	multiplier = clamp((1 - houseEdge) / (1 - u), min, max)
//
// P(multiplier >= m) = (1 - houseEdge) / m, so a bet paying m on that event
// has expected value 1 - houseEdge. The formula is independently auditable
// by players and must not be approximated.
func HouseEdgeMultiplier(src Source, houseEdge, min, max float64) float64 {
	u := Float(src)
	m := (1 - houseEdge) / (1 - u)
	return math.Min(math.Max(m, min), max)
}
