package domain

import "errors"

// Error taxonomy. Store and pipeline code wraps these so callers can
// branch with errors.Is without parsing message strings.
var (
	// ErrNotFound covers unresolved items, targets and sessions.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientResource covers gold shortfalls.
	ErrInsufficientResource = errors.New("insufficient resource")

	// ErrInvalidState covers operations that are well-formed but illegal
	// in the current game state (attacking a defeated target, empty rule
	// query).
	ErrInvalidState = errors.New("invalid state")

	// ErrUpstream covers LLM, embedding and graph-store failures.
	ErrUpstream = errors.New("upstream service failure")

	// ErrMalformedResponse covers model output that fails schema
	// validation.
	ErrMalformedResponse = errors.New("malformed model response")
)
