// Package seeds owns the seed-pair lifecycle: session creation, nonce
// allocation, and rotation. A nonce is durably persisted before the draw it
// backs is handed out, so a crash between persist and resolve burns the
// nonce instead of reusing it.
package seeds

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairdraw/engine/internal/engine"
)

var (
	// ErrSessionNotFound is returned by Store implementations when no row
	// matches the lookup.
	ErrSessionNotFound = errors.New("seeds: session not found")

	// ErrNonceConflict is returned by Store.AdvanceNonce when the persisted
	// nonce no longer matches the expected value.
	ErrNonceConflict = errors.New("seeds: nonce advanced concurrently")
)

// SessionRecord is one seed epoch for a player. Rotation closes the record
// (Revealed=true) and opens a fresh one; the plaintext server seed of a
// closed record is public by design.
type SessionRecord struct {
	ID             string
	PlayerID       string
	ServerSeed     string
	ServerSeedHash string
	ClientSeed     string
	Nonce          uint64
	Revealed       bool
	CreatedAt      time.Time
	RevealedAt     *time.Time
}

// Store is the durability layer for seed sessions.
type Store interface {
	CreateSession(ctx context.Context, rec SessionRecord) error
	GetSession(ctx context.Context, id string) (SessionRecord, error)
	// ActiveSessionForPlayer returns the player's unrevealed session, or
	// ErrSessionNotFound.
	ActiveSessionForPlayer(ctx context.Context, playerID string) (SessionRecord, error)
	// AdvanceNonce moves the session nonce from `from` to `to` atomically,
	// returning ErrNonceConflict if the stored value is not `from`.
	AdvanceNonce(ctx context.Context, id string, from, to uint64) error
	// RotateSession closes `old` (revealed) and creates `next` in one
	// transaction.
	RotateSession(ctx context.Context, old, next SessionRecord) error
}

// SessionInfo is the public view of a session. The plaintext server seed is
// only present once the session has been revealed by rotation.
type SessionInfo struct {
	SessionID      string     `json:"session_id"`
	PlayerID       string     `json:"player_id"`
	ServerSeedHash string     `json:"server_seed_hash"`
	ClientSeed     string     `json:"client_seed"`
	Nonce          uint64     `json:"nonce"`
	Revealed       bool       `json:"revealed"`
	ServerSeed     string     `json:"server_seed,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	RevealedAt     *time.Time `json:"revealed_at,omitempty"`
}

// Draw carries everything a round needs to build its byte stream. The
// plaintext seed inside must never be logged or serialized.
type Draw struct {
	SessionID      string
	PlayerID       string
	ServerSeed     string
	ServerSeedHash string
	ClientSeed     string
	Nonce          uint64
}

// Rotation is the result of a seed rotation: the old pair revealed for
// verification and the hash commitment for the new one.
type Rotation struct {
	SessionID          string `json:"session_id"`
	RevealedServerSeed string `json:"revealed_server_seed"`
	RevealedSeedHash   string `json:"revealed_seed_hash"`
	ClientSeed         string `json:"client_seed"`
	RoundsPlayed       uint64 `json:"rounds_played"`
	NextSessionID      string `json:"next_session_id"`
	NextServerSeedHash string `json:"next_server_seed_hash"`
	NextClientSeed     string `json:"next_client_seed"`
}

type session struct {
	mu  sync.Mutex
	rec SessionRecord
}

// Manager serializes nonce allocation and rotation per session. Draws on the
// same session take the session mutex for the persist-then-hand-out window;
// rotation uses TryLock so it never blocks behind an in-flight draw, it just
// refuses.
type Manager struct {
	store     Store
	log       *slog.Logger
	maxRounds uint64

	mu       sync.Mutex
	sessions map[string]*session
	byPlayer map[string]string
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxRounds caps how many nonces a seed pair may serve before rotation
// is required. Zero means unlimited.
func WithMaxRounds(n uint64) Option {
	return func(m *Manager) { m.maxRounds = n }
}

func NewManager(store Store, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		log:      log,
		sessions: make(map[string]*session),
		byPlayer: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BeginSession creates a fresh seed pair for the player. The server seed is
// generated here and only its hash leaves the process; a player with an
// active unrevealed session must rotate instead.
func (m *Manager) BeginSession(ctx context.Context, playerID, clientSeed string) (*SessionInfo, error) {
	if playerID == "" {
		return nil, engine.Validationf("player_id", "must not be empty")
	}
	if clientSeed == "" {
		var err error
		clientSeed, err = randomHex(8)
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byPlayer[playerID]; ok {
		return nil, &engine.SeedStateError{SessionID: id, Reason: "player already has an active seed session; rotate it instead"}
	}
	// A session may survive a restart that this process has not seen yet.
	if rec, err := m.store.ActiveSessionForPlayer(ctx, playerID); err == nil {
		m.adopt(rec)
		return nil, &engine.SeedStateError{SessionID: rec.ID, Reason: "player already has an active seed session; rotate it instead"}
	} else if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	serverSeed, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	rec := SessionRecord{
		ID:             uuid.NewString(),
		PlayerID:       playerID,
		ServerSeed:     serverSeed,
		ServerSeedHash: engine.SeedHash(serverSeed),
		ClientSeed:     clientSeed,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.store.CreateSession(ctx, rec); err != nil {
		return nil, err
	}
	m.adopt(rec)

	m.log.Info("seed session started",
		"session_id", rec.ID,
		"player_id", rec.PlayerID,
		"server_seed_hash", rec.ServerSeedHash,
	)
	info := publicInfo(rec)
	return &info, nil
}

// WithDraw allocates the next nonce on the session, persists it, and runs fn
// with the seed material. The nonce is consumed even if fn fails: a handed-
// out nonce is never reissued.
func (m *Manager) WithDraw(ctx context.Context, sessionID string, fn func(Draw) error) error {
	s, err := m.session(ctx, sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec.Revealed {
		return &engine.SeedStateError{SessionID: sessionID, Reason: "session seed has been revealed; begin a new session"}
	}
	if m.maxRounds > 0 && s.rec.Nonce >= m.maxRounds {
		return &engine.SeedStateError{SessionID: sessionID, Reason: "seed pair exhausted its round budget; rotate before drawing"}
	}

	next := s.rec.Nonce + 1
	if err := m.store.AdvanceNonce(ctx, sessionID, s.rec.Nonce, next); err != nil {
		if errors.Is(err, ErrNonceConflict) {
			// Structurally impossible under the session mutex; something
			// else wrote the row. The seed pair can no longer be trusted to
			// sign unique nonces, so it is revealed and replaced before the
			// round is rejected.
			m.log.Error("nonce collision detected", "session_id", sessionID, "expected", s.rec.Nonce)
			if rec, gerr := m.store.GetSession(ctx, sessionID); gerr == nil {
				s.rec = rec
			}
			if _, rerr := m.rotateLocked(ctx, s, ""); rerr != nil {
				m.log.Error("forced rotation after nonce collision failed", "session_id", sessionID, "error", rerr)
			}
			return &engine.ConcurrencyViolation{SessionID: sessionID, Nonce: next}
		}
		return err
	}
	s.rec.Nonce = next

	return fn(Draw{
		SessionID:      s.rec.ID,
		PlayerID:       s.rec.PlayerID,
		ServerSeed:     s.rec.ServerSeed,
		ServerSeedHash: s.rec.ServerSeedHash,
		ClientSeed:     s.rec.ClientSeed,
		Nonce:          next,
	})
}

// NeedsRotation reports whether the session has reached its round budget.
func (m *Manager) NeedsRotation(ctx context.Context, sessionID string) bool {
	if m.maxRounds == 0 {
		return false
	}
	s, err := m.session(ctx, sessionID)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Nonce >= m.maxRounds
}

// Rotate reveals the session's server seed and installs a fresh pair with
// the nonce reset to zero. It refuses rather than waits if a draw is in
// flight on the session.
func (m *Manager) Rotate(ctx context.Context, sessionID, newClientSeed string) (*Rotation, error) {
	s, err := m.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !s.mu.TryLock() {
		return nil, &engine.SeedStateError{SessionID: sessionID, Reason: "a draw is in flight; retry rotation after the round settles"}
	}
	defer s.mu.Unlock()

	return m.rotateLocked(ctx, s, newClientSeed)
}

// rotateLocked does the rotation work. Callers hold s.mu; besides Rotate it
// serves the forced rotation after a nonce collision, which already owns the
// mutex when it discovers the conflict.
func (m *Manager) rotateLocked(ctx context.Context, s *session, newClientSeed string) (*Rotation, error) {
	if s.rec.Revealed {
		return nil, &engine.SeedStateError{SessionID: s.rec.ID, Reason: "session already rotated"}
	}
	if newClientSeed == "" {
		newClientSeed = s.rec.ClientSeed
	}

	serverSeed, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	old := s.rec
	old.Revealed = true
	old.RevealedAt = &now
	next := SessionRecord{
		ID:             uuid.NewString(),
		PlayerID:       old.PlayerID,
		ServerSeed:     serverSeed,
		ServerSeedHash: engine.SeedHash(serverSeed),
		ClientSeed:     newClientSeed,
		CreatedAt:      now,
	}
	if err := m.store.RotateSession(ctx, old, next); err != nil {
		return nil, err
	}

	s.rec = old
	m.mu.Lock()
	m.adopt(next)
	m.mu.Unlock()

	m.log.Info("seed session rotated",
		"session_id", old.ID,
		"next_session_id", next.ID,
		"rounds_played", old.Nonce,
		"next_server_seed_hash", next.ServerSeedHash,
	)
	return &Rotation{
		SessionID:          old.ID,
		RevealedServerSeed: old.ServerSeed,
		RevealedSeedHash:   old.ServerSeedHash,
		ClientSeed:         old.ClientSeed,
		RoundsPlayed:       old.Nonce,
		NextSessionID:      next.ID,
		NextServerSeedHash: next.ServerSeedHash,
		NextClientSeed:     next.ClientSeed,
	}, nil
}

// Info returns the public view of a session.
func (m *Manager) Info(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s, err := m.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	info := publicInfo(s.rec)
	return &info, nil
}

// session returns the in-memory handle, faulting it in from the store on
// first touch after a restart.
func (m *Manager) session(ctx context.Context, id string) (*session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	rec, err := m.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, &engine.SeedStateError{SessionID: id, Reason: "unknown session"}
		}
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return m.adopt(rec), nil
}

// adopt installs a record into the in-memory maps. Callers hold m.mu.
func (m *Manager) adopt(rec SessionRecord) *session {
	s := &session{rec: rec}
	m.sessions[rec.ID] = s
	if rec.Revealed {
		if m.byPlayer[rec.PlayerID] == rec.ID {
			delete(m.byPlayer, rec.PlayerID)
		}
	} else {
		m.byPlayer[rec.PlayerID] = rec.ID
	}
	return s
}

func publicInfo(rec SessionRecord) SessionInfo {
	info := SessionInfo{
		SessionID:      rec.ID,
		PlayerID:       rec.PlayerID,
		ServerSeedHash: rec.ServerSeedHash,
		ClientSeed:     rec.ClientSeed,
		Nonce:          rec.Nonce,
		Revealed:       rec.Revealed,
		CreatedAt:      rec.CreatedAt,
		RevealedAt:     rec.RevealedAt,
	}
	if rec.Revealed {
		info.ServerSeed = rec.ServerSeed
	}
	return info
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
