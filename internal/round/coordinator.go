// Package round drives a bet from acceptance to a sealed, verifiable
// record. The coordinator owns the state machine; drawing and resolving
// happen inside the session's draw window so the nonce that backs a round
// can never back another.
package round

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/gameconfig"
	"github.com/fairdraw/engine/internal/games"
	"github.com/fairdraw/engine/internal/seeds"
)

// ErrRoundNotFound is returned by Store implementations when no round
// matches the lookup.
var ErrRoundNotFound = errors.New("round: not found")

// State is the round lifecycle. Transitions only move forward:
// accepted -> drawing -> resolving -> sealed.
type State string

const (
	StateAccepted  State = "accepted"
	StateDrawing   State = "drawing"
	StateResolving State = "resolving"
	StateSealed    State = "sealed"
)

// Record is the durable form of a round. Once sealed it is immutable; a
// round found in an earlier state after a restart marks a burned nonce.
type Record struct {
	RoundID   string          `json:"round_id"`
	PlayerID  string          `json:"player_id"`
	SessionID string          `json:"session_id"`
	Game      games.GameType  `json:"game"`
	State     State           `json:"state"`
	Stake     decimal.Decimal `json:"stake"`
	Params    games.BetParams `json:"params"`

	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
	ConfigVersion  string `json:"config_version"`

	Raw     games.RawDraw         `json:"raw"`
	Outcome games.ResolvedOutcome `json:"outcome"`

	CreatedAt time.Time  `json:"created_at"`
	SealedAt  *time.Time `json:"sealed_at,omitempty"`
}

// Store persists rounds. SaveRound upserts by round id.
type Store interface {
	SaveRound(ctx context.Context, rec Record) error
	GetRound(ctx context.Context, roundID string) (Record, error)
	RoundsForSession(ctx context.Context, sessionID string, limit int) ([]Record, error)
}

// Ledger settles a sealed round against the player balance. Settle must be
// idempotent per round id; the store-backed implementation enforces this
// with a uniqueness constraint.
type Ledger interface {
	Settle(ctx context.Context, playerID, roundID string, stake, payout decimal.Decimal) error
}

// Request is a bet submission. RoundID is a caller-supplied idempotency
// token; a given id is accepted exactly once. Empty means the coordinator
// assigns one.
type Request struct {
	RoundID   string          `json:"round_id,omitempty"`
	SessionID string          `json:"session_id"`
	Game      games.GameType  `json:"game"`
	Stake     decimal.Decimal `json:"stake"`
	Params    games.BetParams `json:"params"`
}

// Result is a sealed round plus the seed rotation that followed it, if the
// session hit its round budget.
type Result struct {
	Record   Record          `json:"record"`
	Rotation *seeds.Rotation `json:"rotation,omitempty"`
}

// Coordinator accepts bets, draws through the seed manager, resolves, seals
// and settles. One instance serves all sessions.
type Coordinator struct {
	seeds  *seeds.Manager
	store  Store
	ledger Ledger
	tables *gameconfig.Tables
	log    *slog.Logger

	// inflight holds round ids from acceptance until the round is sealed
	// and persisted, closing the replay window the store cannot see.
	inflight sync.Map
}

func NewCoordinator(sm *seeds.Manager, store Store, ledger Ledger, tables *gameconfig.Tables, log *slog.Logger) *Coordinator {
	return &Coordinator{
		seeds:  sm,
		store:  store,
		ledger: ledger,
		tables: tables,
		log:    log,
	}
}

// PlaceBet runs the full round lifecycle. Validation happens before any
// nonce is consumed; a validation failure leaves no trace. Past that point
// the nonce is burned even if resolution fails.
func (c *Coordinator) PlaceBet(ctx context.Context, req Request) (*Result, error) {
	if err := c.validate(&req); err != nil {
		return nil, err
	}

	if _, loaded := c.inflight.LoadOrStore(req.RoundID, struct{}{}); loaded {
		return nil, engine.Validationf("round_id", "round %s already in progress", req.RoundID)
	}
	defer c.inflight.Delete(req.RoundID)

	if _, err := c.store.GetRound(ctx, req.RoundID); err == nil {
		return nil, engine.Validationf("round_id", "round %s already exists", req.RoundID)
	} else if !errors.Is(err, ErrRoundNotFound) {
		return nil, err
	}

	var rec Record
	err := c.seeds.WithDraw(ctx, req.SessionID, func(d seeds.Draw) error {
		rec = Record{
			RoundID:        req.RoundID,
			PlayerID:       d.PlayerID,
			SessionID:      d.SessionID,
			Game:           req.Game,
			State:          StateAccepted,
			Stake:          req.Stake,
			Params:         req.Params,
			ServerSeedHash: d.ServerSeedHash,
			ClientSeed:     d.ClientSeed,
			Nonce:          d.Nonce,
			ConfigVersion:  c.tables.Version,
			CreatedAt:      time.Now().UTC(),
		}
		// The accepted record hits disk before the draw so a crash leaves
		// evidence of the burned nonce.
		if err := c.store.SaveRound(ctx, rec); err != nil {
			return err
		}

		rec.State = StateDrawing
		stream := engine.NewByteStream(d.ServerSeed, d.ClientSeed, d.Nonce, 0)

		rec.State = StateResolving
		raw, outcome, err := games.Resolve(req.Game, stream, c.tables, req.Params, req.Stake)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		rec.Raw = raw
		rec.Outcome = outcome
		rec.State = StateSealed
		rec.SealedAt = &now
		return c.store.SaveRound(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Record: rec}

	// Settlement happens exactly once, after the seal. The ledger's per-round
	// uniqueness makes a retried settle a no-op rather than a double credit.
	// The round is sealed either way, so the caller gets the record alongside
	// a settle failure and can drive the retry with the same round id.
	if err := c.ledger.Settle(ctx, rec.PlayerID, rec.RoundID, rec.Stake, rec.Outcome.PayoutAmount); err != nil {
		c.log.Error("settlement failed for sealed round", "round_id", rec.RoundID, "error", err)
		return res, fmt.Errorf("settle round %s: %w", rec.RoundID, err)
	}

	c.log.Info("round sealed",
		"round_id", rec.RoundID,
		"session_id", rec.SessionID,
		"game", string(rec.Game),
		"nonce", rec.Nonce,
		"payout_multiplier", rec.Outcome.PayoutMultiplier,
	)

	if c.seeds.NeedsRotation(ctx, rec.SessionID) {
		rot, err := c.seeds.Rotate(ctx, rec.SessionID, "")
		if err != nil {
			// A concurrent draw can win the race to the session lock; the
			// rotation will be retried after that round seals.
			c.log.Warn("post-round rotation deferred", "session_id", rec.SessionID, "error", err)
		} else {
			res.Rotation = rot
		}
	}
	return res, nil
}

// Round returns a persisted round by id.
func (c *Coordinator) Round(ctx context.Context, roundID string) (*Record, error) {
	rec, err := c.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// History returns the most recent rounds for a session, newest first.
func (c *Coordinator) History(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return c.store.RoundsForSession(ctx, sessionID, limit)
}

// validate rejects a malformed request before any state is touched. All
// failures are *engine.ValidationError.
func (c *Coordinator) validate(req *Request) error {
	if req.RoundID == "" {
		req.RoundID = uuid.NewString()
	} else if _, err := uuid.Parse(req.RoundID); err != nil {
		return engine.Validationf("round_id", "must be a UUID")
	}
	if req.SessionID == "" {
		return engine.Validationf("session_id", "must not be empty")
	}
	if !req.Game.Valid() {
		return engine.Validationf("game", "unknown game type %q", string(req.Game))
	}

	min, max := c.tables.Stakes.Bounds()
	if req.Stake.LessThan(min) || req.Stake.GreaterThan(max) {
		return engine.Validationf("stake", "must be between %s and %s, got %s", min, max, req.Stake)
	}

	return games.ValidateParams(req.Game, c.tables, req.Params)
}
