package protocol

import "errors"

// Every rejected operation fails with exactly one of these errors and leaves
// the protocol state untouched. Callers can rely on errors.Is to distinguish
// rejection kinds.
var (
	// ErrNotOwner rejects administrative operations from non-owners.
	ErrNotOwner = errors.New("caller is not the owner")

	// ErrNotProvider rejects operational calls from unauthorized addresses.
	ErrNotProvider = errors.New("caller is not an authorized provider")

	// ErrPaused rejects gated operations while the protocol is paused.
	ErrPaused = errors.New("protocol is paused")

	// ErrAlreadyPaused rejects a pause when already paused.
	ErrAlreadyPaused = errors.New("protocol is already paused")

	// ErrNotPaused rejects an unpause when not paused.
	ErrNotPaused = errors.New("protocol is not paused")

	// ErrCooldownActive rejects a rate-limited action before its cooldown
	// has elapsed.
	ErrCooldownActive = errors.New("cooldown has not elapsed")

	// ErrInvalidBatch rejects operations referencing an unknown or zero
	// batch id.
	ErrInvalidBatch = errors.New("unknown batch id")

	// ErrBatchClosed rejects submissions to a batch that is no longer open.
	ErrBatchClosed = errors.New("batch is closed")

	// ErrNotEnoughElements rejects intersection requests on batches holding
	// fewer than two elements.
	ErrNotEnoughElements = errors.New("batch holds fewer than two elements")

	// ErrUnknownRequest rejects callbacks for request ids that were never
	// issued.
	ErrUnknownRequest = errors.New("unknown decryption request id")

	// ErrReplayDetected rejects callbacks for requests that already
	// finalized.
	ErrReplayDetected = errors.New("decryption request already finalized")

	// ErrInvalidState rejects callbacks whose batch contents no longer match
	// the state hash committed at request time.
	ErrInvalidState = errors.New("batch state changed since decryption request")

	// ErrInvalidProof rejects callbacks whose decryption proof fails
	// verification.
	ErrInvalidProof = errors.New("decryption proof verification failed")
)
