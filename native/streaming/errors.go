package streaming

import "errors"

// Error taxonomy for RA.
var (
	ErrInvalidPoolRate = errors.New("streaming: pool rate is zero or negative for a non-empty update")
	ErrUnauthorized    = errors.New("streaming: unauthorized")
	ErrInvalidArgument = errors.New("streaming: invalid argument")
)
