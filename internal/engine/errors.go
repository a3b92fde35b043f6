package engine

import "errors"

var (
	// ErrInvalidRequest marks caller errors (missing keywords, empty subject).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAllInstancesFailed is returned by a source when every upstream instance failed.
	ErrAllInstancesFailed = errors.New("all instances failed")

	// ErrAllSourcesFailed is returned by the Acquirer when no source could serve the request.
	ErrAllSourcesFailed = errors.New("all sources failed")
)
