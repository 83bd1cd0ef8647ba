package api

import (
	"errors"
	"net/http"

	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/round"
	"github.com/fairdraw/engine/internal/seeds"
)

// Error type tags carried in the error envelope so clients can branch
// without parsing messages.
const (
	ErrTypeValidation  = "VALIDATION"
	ErrTypeSeedState   = "SEED_STATE"
	ErrTypeConcurrency = "CONCURRENCY"
	ErrTypeNotFound    = "NOT_FOUND"
	ErrTypeInternal    = "INTERNAL"
)

// ErrorResponse is the JSON envelope for every non-2xx reply.
type ErrorResponse struct {
	Error         string `json:"error"`
	Type          string `json:"type"`
	Field         string `json:"field,omitempty"`
	EngineVersion string `json:"engine_version"`
}

// classify maps domain errors onto an HTTP status and error type.
func classify(err error) (status int, errType, field string) {
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ErrTypeValidation, ve.Field
	}

	var sse *engine.SeedStateError
	if errors.As(err, &sse) {
		return http.StatusConflict, ErrTypeSeedState, ""
	}

	var cv *engine.ConcurrencyViolation
	if errors.As(err, &cv) {
		return http.StatusConflict, ErrTypeConcurrency, ""
	}

	if errors.Is(err, round.ErrRoundNotFound) || errors.Is(err, seeds.ErrSessionNotFound) {
		return http.StatusNotFound, ErrTypeNotFound, ""
	}

	return http.StatusInternalServerError, ErrTypeInternal, ""
}
