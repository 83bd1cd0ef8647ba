package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fairdraw/engine/internal/games"
	"github.com/fairdraw/engine/internal/round"
	"github.com/fairdraw/engine/internal/seeds"
)

func openTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func sessionFixture(id, player string) seeds.SessionRecord {
	return seeds.SessionRecord{
		ID:             id,
		PlayerID:       player,
		ServerSeed:     "plain-" + id,
		ServerSeedHash: "hash-" + id,
		ClientSeed:     "client",
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate())
}

func TestSessionRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := sessionFixture("s1", "p1")
	require.NoError(t, db.CreateSession(ctx, rec))

	got, err := db.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, rec.ServerSeed, got.ServerSeed)
	require.Equal(t, rec.ServerSeedHash, got.ServerSeedHash)
	require.Equal(t, rec.ClientSeed, got.ClientSeed)
	require.Equal(t, uint64(0), got.Nonce)
	require.False(t, got.Revealed)
	require.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	active, err := db.ActiveSessionForPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "s1", active.ID)

	_, err = db.GetSession(ctx, "missing")
	require.ErrorIs(t, err, seeds.ErrSessionNotFound)

	_, err = db.ActiveSessionForPlayer(ctx, "nobody")
	require.ErrorIs(t, err, seeds.ErrSessionNotFound)
}

func TestOneActiveSessionPerPlayer(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateSession(ctx, sessionFixture("s1", "p1")))
	require.Error(t, db.CreateSession(ctx, sessionFixture("s2", "p1")))
}

func TestAdvanceNonce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateSession(ctx, sessionFixture("s1", "p1")))

	require.NoError(t, db.AdvanceNonce(ctx, "s1", 0, 1))
	require.NoError(t, db.AdvanceNonce(ctx, "s1", 1, 2))

	// Stale expectation loses.
	require.ErrorIs(t, db.AdvanceNonce(ctx, "s1", 1, 2), seeds.ErrNonceConflict)
	require.ErrorIs(t, db.AdvanceNonce(ctx, "missing", 0, 1), seeds.ErrSessionNotFound)

	got, err := db.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.Nonce)
}

func TestRotateSession(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	old := sessionFixture("s1", "p1")
	require.NoError(t, db.CreateSession(ctx, old))
	require.NoError(t, db.AdvanceNonce(ctx, "s1", 0, 3))

	now := time.Now().UTC().Truncate(time.Millisecond)
	old.Nonce = 3
	old.Revealed = true
	old.RevealedAt = &now
	next := sessionFixture("s2", "p1")
	require.NoError(t, db.RotateSession(ctx, old, next))

	revealed, err := db.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.True(t, revealed.Revealed)
	require.NotNil(t, revealed.RevealedAt)
	require.Equal(t, uint64(3), revealed.Nonce)

	// A revealed session never advances again.
	require.ErrorIs(t, db.AdvanceNonce(ctx, "s1", 3, 4), seeds.ErrNonceConflict)

	active, err := db.ActiveSessionForPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "s2", active.ID)

	// Rotating an already-revealed session fails.
	require.ErrorIs(t, db.RotateSession(ctx, old, sessionFixture("s3", "p1")), seeds.ErrSessionNotFound)
}

func roundFixture(id string) round.Record {
	return round.Record{
		RoundID:        id,
		PlayerID:       "p1",
		SessionID:      "s1",
		Game:           games.GameLimbo,
		State:          round.StateAccepted,
		Stake:          decimal.RequireFromString("12.5"),
		Params:         games.BetParams{Target: 2.0},
		ServerSeedHash: "hash",
		ClientSeed:     "client",
		Nonce:          1,
		ConfigVersion:  "v1",
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestRoundRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := roundFixture("r1")
	require.NoError(t, db.SaveRound(ctx, rec))

	// Seal it and save again; the upsert moves the state forward.
	now := time.Now().UTC().Truncate(time.Millisecond)
	rec.State = round.StateSealed
	rec.SealedAt = &now
	rec.Raw = games.RawDraw{Value: 1.98}
	rec.Outcome = games.ResolvedOutcome{
		Game:             games.GameLimbo,
		PayoutMultiplier: 2.0,
		PayoutAmount:     decimal.RequireFromString("25"),
		Limbo:            &games.LimboOutcome{Target: 2.0, Drawn: 1.98},
	}
	require.NoError(t, db.SaveRound(ctx, rec))

	got, err := db.GetRound(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, round.StateSealed, got.State)
	require.True(t, rec.Stake.Equal(got.Stake))
	require.Equal(t, rec.Params, got.Params)
	require.Equal(t, rec.Raw, got.Raw)
	require.Equal(t, uint64(1), got.Nonce)
	require.Equal(t, "v1", got.ConfigVersion)
	require.NotNil(t, got.SealedAt)
	require.NotNil(t, got.Outcome.Limbo)
	require.Equal(t, rec.Outcome.Limbo.Drawn, got.Outcome.Limbo.Drawn)
	require.True(t, rec.Outcome.PayoutAmount.Equal(got.Outcome.PayoutAmount))

	_, err = db.GetRound(ctx, "missing")
	require.ErrorIs(t, err, round.ErrRoundNotFound)
}

func TestRoundsForSession(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		rec := roundFixture("r" + string(rune('1'+i)))
		rec.Nonce = uint64(i + 1)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, db.SaveRound(ctx, rec))
	}

	recs, err := db.RoundsForSession(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, uint64(5), recs[0].Nonce)
	require.Equal(t, uint64(3), recs[2].Nonce)

	recs, err = db.RoundsForSession(ctx, "other", 10)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestSettleIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	stake := decimal.RequireFromString("10")
	payout := decimal.RequireFromString("19.8")
	require.NoError(t, db.Settle(ctx, "p1", "r1", stake, payout))
	// A replayed settle is swallowed, not double-counted.
	require.NoError(t, db.Settle(ctx, "p1", "r1", stake, payout))
	require.NoError(t, db.Settle(ctx, "p1", "r2", stake, decimal.Zero))

	net, err := db.PlayerNet(ctx, "p1")
	require.NoError(t, err)
	// (19.8 - 10) + (0 - 10) = -0.2
	require.True(t, net.Equal(decimal.RequireFromString("-0.2")), "net = %s", net)
}
