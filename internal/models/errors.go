package models

import "errors"

// Error taxonomy shared by the ledger stores and the workflow engines. Handlers
// translate these to HTTP codes with errors.Is; the engines never retry on them.
var (
	// ErrNotFound means the entity id is unknown to the ledger store.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict means a compare-and-swap guard failed because a concurrent
	// transition won. Callers should re-fetch and re-evaluate.
	ErrConflict = errors.New("concurrent modification")

	// ErrInvalidActor means the actor is not authorized for the transition,
	// e.g. self-review or confirming someone else's payout.
	ErrInvalidActor = errors.New("actor not authorized for this transition")

	// ErrInvalidTransition means the transition is not legal from the entity's
	// current status.
	ErrInvalidTransition = errors.New("transition not legal from current status")

	// ErrDeadlineExpired means the action arrived after its time window closed,
	// e.g. escalating a denied cancel request past the dispute window.
	ErrDeadlineExpired = errors.New("deadline expired")
)
