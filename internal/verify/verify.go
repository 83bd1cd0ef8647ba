// Package verify recomputes a sealed round from its public seed material
// and reports every divergence. Verification is a pure read: it never
// mutates state and never fails with an error, it reports.
package verify

import (
	"fmt"
	"reflect"

	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
	"github.com/fairdraw/engine/internal/games"
	"github.com/fairdraw/engine/internal/round"
)

// Report is the outcome of verifying one round. OK means the seed hash
// commits to the revealed seed and the recomputed draw and outcome match the
// sealed record exactly.
type Report struct {
	RoundID    string `json:"round_id"`
	OK         bool   `json:"ok"`
	SeedHashOK bool   `json:"seed_hash_ok"`
	// Mismatches names each field where the recomputation diverged from the
	// sealed record. Empty when OK.
	Mismatches []string `json:"mismatches,omitempty"`
	// Recomputed carries the independently derived outcome so a reader can
	// inspect both sides of a mismatch.
	Recomputed *games.ResolvedOutcome `json:"recomputed,omitempty"`
}

// Verify replays the record's draw with the revealed server seed and the
// configuration tables for the record's version. A panic inside a resolver
// (possible only with tables that do not match the sealed round) is caught
// and reported as a mismatch.
func Verify(rec *round.Record, serverSeed string, tables *gameconfig.Tables) (report Report) {
	report = Report{RoundID: rec.RoundID}

	report.SeedHashOK = engine.SeedHash(serverSeed) == rec.ServerSeedHash
	if !report.SeedHashOK {
		report.Mismatches = append(report.Mismatches, "server_seed_hash: revealed seed does not hash to the sealed commitment")
	}
	if tables.Version != rec.ConfigVersion {
		report.Mismatches = append(report.Mismatches,
			fmt.Sprintf("config_version: verifying with %q, round was sealed under %q", tables.Version, rec.ConfigVersion))
	}

	defer func() {
		if r := recover(); r != nil {
			report.OK = false
			report.Mismatches = append(report.Mismatches, fmt.Sprintf("recompute: %v", r))
		}
	}()

	stream := engine.NewByteStream(serverSeed, rec.ClientSeed, rec.Nonce, 0)
	raw, outcome, err := games.Resolve(rec.Game, stream, tables, rec.Params, rec.Stake)
	if err != nil {
		report.Mismatches = append(report.Mismatches, fmt.Sprintf("recompute: %v", err))
		return report
	}
	report.Recomputed = &outcome

	if !reflect.DeepEqual(raw, rec.Raw) {
		report.Mismatches = append(report.Mismatches, "raw: recomputed draw differs from the sealed draw")
	}
	if outcome.PayoutMultiplier != rec.Outcome.PayoutMultiplier {
		report.Mismatches = append(report.Mismatches,
			fmt.Sprintf("payout_multiplier: recomputed %v, sealed %v", outcome.PayoutMultiplier, rec.Outcome.PayoutMultiplier))
	}
	if !outcome.PayoutAmount.Equal(rec.Outcome.PayoutAmount) {
		report.Mismatches = append(report.Mismatches,
			fmt.Sprintf("payout_amount: recomputed %s, sealed %s", outcome.PayoutAmount, rec.Outcome.PayoutAmount))
	}
	if !gameDetailsEqual(&outcome, &rec.Outcome) {
		report.Mismatches = append(report.Mismatches, "outcome: recomputed game result differs from the sealed result")
	}

	report.OK = len(report.Mismatches) == 0
	return report
}

func gameDetailsEqual(a, b *games.ResolvedOutcome) bool {
	if a.Game != b.Game {
		return false
	}
	switch a.Game {
	case games.GameCluster:
		return reflect.DeepEqual(a.Cluster, b.Cluster)
	case games.GamePaylines:
		return reflect.DeepEqual(a.Paylines, b.Paylines)
	case games.GameMines:
		return reflect.DeepEqual(a.Mines, b.Mines)
	case games.GameLimbo:
		return reflect.DeepEqual(a.Limbo, b.Limbo)
	case games.GameCrash:
		return reflect.DeepEqual(a.Crash, b.Crash)
	case games.GameTower:
		return reflect.DeepEqual(a.Tower, b.Tower)
	}
	return false
}
