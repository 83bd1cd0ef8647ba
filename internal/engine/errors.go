package engine

import "fmt"

// ValidationError rejects a bet before any seed or nonce is consumed: stake
// out of bounds, malformed game parameters, unknown game type. Fully
// recoverable; no state was mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for a field.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SeedStateError rejects a seed-lifecycle operation issued in the wrong
// state: beginning a session while an unrevealed seed is active, or rotating
// while a draw is in flight. The caller retries after the current round.
type SeedStateError struct {
	SessionID string
	Reason    string
}

func (e *SeedStateError) Error() string {
	return fmt.Sprintf("seed state error (session %s): %s", e.SessionID, e.Reason)
}

// ConcurrencyViolation reports a nonce collision, which is structurally
// impossible under correct locking. The session is force-rotated and the
// round rejected; the event is logged for investigation.
type ConcurrencyViolation struct {
	SessionID string
	Nonce     uint64
}

func (e *ConcurrencyViolation) Error() string {
	return fmt.Sprintf("nonce collision on session %s at nonce %d", e.SessionID, e.Nonce)
}
