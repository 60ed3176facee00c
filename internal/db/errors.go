package db

import "errors"

// Domain-level database error sentinels.
var (
	// ErrUnknownEventType is returned for event types the log does not hold.
	ErrUnknownEventType = errors.New("unknown event type")
)
