package games

import (
	"math"
	"testing"
	"time"

	"github.com/fairdraw/engine/internal/gameconfig"
)

func testCrashConfig() *gameconfig.CrashConfig {
	return &gameconfig.CrashConfig{
		HouseEdge:     0.01,
		MinMultiplier: 1.0,
		MaxMultiplier: 1_000_000,
		MinCashOut:    1.01,
		GrowthRate:    0.06,
	}
}

func TestResolveCrash(t *testing.T) {
	tests := []struct {
		name      string
		u         byte
		cashOut   float64
		wantPoint float64
		wantWin   bool
	}{
		// u=0.75 -> 0.99/0.25 = 3.96
		{name: "cash-out before crash", u: 192, cashOut: 2.0, wantPoint: 3.96, wantWin: true},
		{name: "cash-out exactly at crash", u: 192, cashOut: 3.96, wantPoint: 3.96, wantWin: true},
		{name: "cash-out past crash", u: 192, cashOut: 3.97, wantPoint: 3.96, wantWin: false},
		// u=0 clamps to the floor; instant crash
		{name: "instant crash", u: 0, cashOut: 1.01, wantPoint: 1.00, wantWin: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &seqSource{data: windows(tt.u)}
			_, out := resolveCrash(src, testCrashConfig(), tt.cashOut)

			if out.CrashPoint != tt.wantPoint {
				t.Errorf("crash point = %v, want %v", out.CrashPoint, tt.wantPoint)
			}
			if out.Win != tt.wantWin {
				t.Errorf("win = %v, want %v", out.Win, tt.wantWin)
			}
		})
	}
}

func TestCrashCurve(t *testing.T) {
	cfg := testCrashConfig()

	if m := CrashMultiplierAt(cfg, 0); m != 1.0 {
		t.Errorf("curve at t=0 is %v, want 1.0", m)
	}

	// Strictly increasing.
	prev := 0.0
	for s := 0; s <= 60; s += 5 {
		m := CrashMultiplierAt(cfg, time.Duration(s)*time.Second)
		if m <= prev {
			t.Fatalf("curve not increasing at %ds: %v <= %v", s, m, prev)
		}
		prev = m
	}

	// TimeToReach inverts the curve.
	for _, target := range []float64{1.5, 2.0, 10.0, 100.0} {
		at := CrashTimeToReach(cfg, target)
		m := CrashMultiplierAt(cfg, at)
		if math.Abs(m-target) > 1e-6 {
			t.Errorf("round-trip through curve for %v gave %v", target, m)
		}
	}

	if CrashTimeToReach(cfg, 1.0) != 0 {
		t.Error("time to reach 1.0x should be zero")
	}
}

func TestValidCashOutClaim(t *testing.T) {
	cfg := testCrashConfig()
	crashPoint := 2.0
	crashAt := CrashTimeToReach(cfg, crashPoint)

	if !ValidCashOutClaim(cfg, crashPoint, crashAt/2) {
		t.Error("claim before the crash was rejected")
	}
	if ValidCashOutClaim(cfg, crashPoint, crashAt+time.Second) {
		t.Error("claim after the crash was accepted")
	}
}
