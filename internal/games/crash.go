package games

import (
	"math"
	"time"

	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
)

// CrashOutcome is a drawn crash point settled against an auto cash-out.
type CrashOutcome struct {
	CrashPoint float64 `json:"crash_point"`
	CashOut    float64 `json:"cash_out"`
	Win        bool    `json:"win"`
}

// resolveCrash draws the crash point. The presentation layer animates the
// curve from 1.0 upward; the engine only fixes where it stops and settles
// the claimed cash-out against it server-side. Cashing out exactly at the
// crash point pays.
func resolveCrash(src engine.Source, cfg *gameconfig.CrashConfig, cashOut float64) (float64, *CrashOutcome) {
	raw := engine.HouseEdgeMultiplier(src, cfg.HouseEdge, cfg.MinMultiplier, cfg.MaxMultiplier)
	crashPoint := floorCents(raw)

	return raw, &CrashOutcome{
		CrashPoint: crashPoint,
		CashOut:    cashOut,
		Win:        cashOut <= crashPoint,
	}
}

// CrashMultiplierAt is the presentation curve: m(t) = e^(rate*t). It never
// affects settlement; it exists so front ends and the cash-out validator
// share one clock-to-multiplier mapping.
func CrashMultiplierAt(cfg *gameconfig.CrashConfig, elapsed time.Duration) float64 {
	return math.Exp(cfg.GrowthRate * elapsed.Seconds())
}

// CrashTimeToReach inverts the curve: how long the round runs before the
// multiplier reaches m.
func CrashTimeToReach(cfg *gameconfig.CrashConfig, m float64) time.Duration {
	if m <= 1 {
		return 0
	}
	return time.Duration(math.Log(m) / cfg.GrowthRate * float64(time.Second))
}

// ValidCashOutClaim checks a claimed cash-out time against the sealed crash
// point: the claim stands only if the curve had not yet crashed.
func ValidCashOutClaim(cfg *gameconfig.CrashConfig, crashPoint float64, claimedAt time.Duration) bool {
	return CrashMultiplierAt(cfg, claimedAt) <= crashPoint
}
