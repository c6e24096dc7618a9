package contract

import "errors"

// Errors returned by contract operations. Each one leaves the contract unchanged.
var (
	// ErrNotPlaying is returned when an operation requires an active request.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrInvalidPosition is returned when an invalid queue position is specified.
	ErrInvalidPosition = errors.New("invalid queue position")

	// ErrRequestNotReady is returned when adding a request that has not been initialized.
	ErrRequestNotReady = errors.New("request is not ready")

	// ErrForeignRequest is returned when adding a request created for another guild.
	ErrForeignRequest = errors.New("request belongs to another guild")

	// ErrTaskAborted is returned when an operation panicked on the contract loop.
	ErrTaskAborted = errors.New("contract task aborted")

	// ErrClosed is returned when the contract has been shut down.
	ErrClosed = errors.New("contract is closed")
)
