// Package store is the SQLite persistence layer. It implements the storage
// interfaces declared by the seeds and round packages plus a minimal
// append-only ledger.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/fairdraw/engine/internal/games"
	"github.com/fairdraw/engine/internal/round"
	"github.com/fairdraw/engine/internal/seeds"
)

// SQLiteDB wraps a single SQLite database holding sessions, rounds and the
// ledger.
type SQLiteDB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and prepares it for
// concurrent use.
func Open(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency; busy_timeout so writers queue
	// instead of failing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations. Safe to run repeatedly.
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			server_seed TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			nonce INTEGER NOT NULL DEFAULT 0,
			revealed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			revealed_at TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_player
			ON sessions(player_id) WHERE revealed = 0`,
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			game TEXT NOT NULL,
			state TEXT NOT NULL,
			stake TEXT NOT NULL,
			params_json TEXT NOT NULL DEFAULT '{}',
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			config_version TEXT NOT NULL,
			raw_json TEXT NOT NULL DEFAULT '{}',
			outcome_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			sealed_at TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_player ON rounds(player_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS ledger (
			round_id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			stake TEXT NOT NULL,
			payout TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_player ON ledger(player_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// CreateSession inserts a fresh seed session.
func (s *SQLiteDB) CreateSession(ctx context.Context, rec seeds.SessionRecord) error {
	query := `INSERT INTO sessions (
		id, player_id, server_seed, server_seed_hash, client_seed, nonce, revealed, created_at, revealed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.PlayerID, rec.ServerSeed, rec.ServerSeedHash, rec.ClientSeed,
		rec.Nonce, boolToInt(rec.Revealed), formatTime(rec.CreatedAt), formatTimePtr(rec.RevealedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession fetches one session by id.
func (s *SQLiteDB) GetSession(ctx context.Context, id string) (seeds.SessionRecord, error) {
	query := `SELECT id, player_id, server_seed, server_seed_hash, client_seed, nonce, revealed, created_at, revealed_at
		FROM sessions WHERE id = ?`
	return s.scanSession(s.db.QueryRowContext(ctx, query, id))
}

// ActiveSessionForPlayer fetches the player's unrevealed session.
func (s *SQLiteDB) ActiveSessionForPlayer(ctx context.Context, playerID string) (seeds.SessionRecord, error) {
	query := `SELECT id, player_id, server_seed, server_seed_hash, client_seed, nonce, revealed, created_at, revealed_at
		FROM sessions WHERE player_id = ? AND revealed = 0`
	return s.scanSession(s.db.QueryRowContext(ctx, query, playerID))
}

func (s *SQLiteDB) scanSession(row *sql.Row) (seeds.SessionRecord, error) {
	var (
		rec        seeds.SessionRecord
		revealed   int
		createdAt  string
		revealedAt sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.PlayerID, &rec.ServerSeed, &rec.ServerSeedHash,
		&rec.ClientSeed, &rec.Nonce, &revealed, &createdAt, &revealedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return seeds.SessionRecord{}, seeds.ErrSessionNotFound
	}
	if err != nil {
		return seeds.SessionRecord{}, fmt.Errorf("failed to scan session: %w", err)
	}

	rec.Revealed = revealed != 0
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return seeds.SessionRecord{}, err
	}
	if revealedAt.Valid {
		t, err := parseTime(revealedAt.String)
		if err != nil {
			return seeds.SessionRecord{}, err
		}
		rec.RevealedAt = &t
	}
	return rec, nil
}

// AdvanceNonce performs the optimistic nonce bump. A stale expectation means
// another writer advanced the row first.
func (s *SQLiteDB) AdvanceNonce(ctx context.Context, id string, from, to uint64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET nonce = ? WHERE id = ? AND nonce = ? AND revealed = 0`,
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to advance nonce: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return seeds.ErrSessionNotFound
	}
	return seeds.ErrNonceConflict
}

// RotateSession closes the old seed epoch and opens the next one in a single
// transaction.
func (s *SQLiteDB) RotateSession(ctx context.Context, old, next seeds.SessionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET revealed = 1, revealed_at = ?, nonce = ? WHERE id = ? AND revealed = 0`,
		formatTimePtr(old.RevealedAt), old.Nonce, old.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to reveal session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	} else if n == 0 {
		return seeds.ErrSessionNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (
			id, player_id, server_seed, server_seed_hash, client_seed, nonce, revealed, created_at, revealed_at
		) VALUES (?, ?, ?, ?, ?, ?, 0, ?, NULL)`,
		next.ID, next.PlayerID, next.ServerSeed, next.ServerSeedHash, next.ClientSeed,
		next.Nonce, formatTime(next.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert successor session: %w", err)
	}

	return tx.Commit()
}

// SaveRound upserts a round. Re-saving moves the state forward as the round
// progresses to sealed.
func (s *SQLiteDB) SaveRound(ctx context.Context, rec round.Record) error {
	paramsJSON, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	rawJSON, err := json.Marshal(rec.Raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw draw: %w", err)
	}
	outcomeJSON, err := json.Marshal(rec.Outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	query := `INSERT INTO rounds (
		id, player_id, session_id, game, state, stake, params_json,
		server_seed_hash, client_seed, nonce, config_version,
		raw_json, outcome_json, created_at, sealed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		state = excluded.state,
		raw_json = excluded.raw_json,
		outcome_json = excluded.outcome_json,
		sealed_at = excluded.sealed_at`

	_, err = s.db.ExecContext(ctx, query,
		rec.RoundID, rec.PlayerID, rec.SessionID, string(rec.Game), string(rec.State),
		rec.Stake.String(), string(paramsJSON),
		rec.ServerSeedHash, rec.ClientSeed, rec.Nonce, rec.ConfigVersion,
		string(rawJSON), string(outcomeJSON), formatTime(rec.CreatedAt), formatTimePtr(rec.SealedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save round: %w", err)
	}
	return nil
}

// GetRound fetches one round by id.
func (s *SQLiteDB) GetRound(ctx context.Context, roundID string) (round.Record, error) {
	query := selectRounds + ` WHERE id = ?`
	rows, err := s.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return round.Record{}, fmt.Errorf("failed to query round: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return round.Record{}, err
		}
		return round.Record{}, round.ErrRoundNotFound
	}
	return scanRound(rows)
}

// RoundsForSession returns the latest rounds for a session, newest first.
func (s *SQLiteDB) RoundsForSession(ctx context.Context, sessionID string, limit int) ([]round.Record, error) {
	query := selectRounds + ` WHERE session_id = ? ORDER BY created_at DESC, nonce DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var out []round.Record
	for rows.Next() {
		rec, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const selectRounds = `SELECT id, player_id, session_id, game, state, stake, params_json,
	server_seed_hash, client_seed, nonce, config_version,
	raw_json, outcome_json, created_at, sealed_at
	FROM rounds`

func scanRound(rows *sql.Rows) (round.Record, error) {
	var (
		rec         round.Record
		game, state string
		stake       string
		paramsJSON  string
		rawJSON     string
		outcomeJSON string
		createdAt   string
		sealedAt    sql.NullString
	)
	err := rows.Scan(&rec.RoundID, &rec.PlayerID, &rec.SessionID, &game, &state, &stake,
		&paramsJSON, &rec.ServerSeedHash, &rec.ClientSeed, &rec.Nonce, &rec.ConfigVersion,
		&rawJSON, &outcomeJSON, &createdAt, &sealedAt)
	if err != nil {
		return round.Record{}, fmt.Errorf("failed to scan round: %w", err)
	}

	rec.Game = games.GameType(game)
	rec.State = round.State(state)
	if rec.Stake, err = decimal.NewFromString(stake); err != nil {
		return round.Record{}, fmt.Errorf("failed to parse stake: %w", err)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &rec.Params); err != nil {
		return round.Record{}, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	if err := json.Unmarshal([]byte(rawJSON), &rec.Raw); err != nil {
		return round.Record{}, fmt.Errorf("failed to unmarshal raw draw: %w", err)
	}
	if err := json.Unmarshal([]byte(outcomeJSON), &rec.Outcome); err != nil {
		return round.Record{}, fmt.Errorf("failed to unmarshal outcome: %w", err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return round.Record{}, err
	}
	if sealedAt.Valid {
		t, err := parseTime(sealedAt.String)
		if err != nil {
			return round.Record{}, err
		}
		rec.SealedAt = &t
	}
	return rec, nil
}

// Settle records the ledger entry for a sealed round. The primary key on
// round_id makes a replayed settle a no-op.
func (s *SQLiteDB) Settle(ctx context.Context, playerID, roundID string, stake, payout decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO ledger (round_id, player_id, stake, payout, created_at) VALUES (?, ?, ?, ?, ?)`,
		roundID, playerID, stake.String(), payout.String(), formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("failed to settle round: %w", err)
	}
	return nil
}

// PlayerNet returns the player's lifetime payout minus stake across all
// settled rounds.
func (s *SQLiteDB) PlayerNet(ctx context.Context, playerID string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stake, payout FROM ledger WHERE player_id = ?`, playerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	net := decimal.Zero
	for rows.Next() {
		var stakeStr, payoutStr string
		if err := rows.Scan(&stakeStr, &payoutStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		stake, err := decimal.NewFromString(stakeStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse stake: %w", err)
		}
		payout, err := decimal.NewFromString(payoutStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse payout: %w", err)
		}
		net = net.Add(payout).Sub(stake)
	}
	return net, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
