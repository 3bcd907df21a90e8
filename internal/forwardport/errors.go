package forwardport

import "errors"

var (
	// ErrKeyMismatch is returned when the head and base slice maps cover
	// different sets of PRs.
	ErrKeyMismatch = errors.New("slices in head and slices in base must have the same PRs")

	// ErrNotFutureRelease is returned when a comparison candidate does not
	// target a strictly later release.
	ErrNotFutureRelease = errors.New("candidate PR does not target a later release")
)
