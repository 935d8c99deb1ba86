package delegation

import "errors"

// Error taxonomy for DG, per the stable kinds surfaced by name in events and
// return values. Each is a distinct sentinel so callers distinguish failure
// modes with errors.Is rather than string matching.
var (
	ErrSelfDelegate     = errors.New("delegation: actor and target are the same participant")
	ErrTopicInactive    = errors.New("delegation: topic is inactive")
	ErrTargetDeadEnd    = errors.New("delegation: target has declared a dead end on this topic")
	ErrActorDeadEnd     = errors.New("delegation: actor has declared a dead end on this topic")
	ErrWouldCycle       = errors.New("delegation: edge would introduce a cycle")
	ErrWouldExceedDepth = errors.New("delegation: edge would exceed the depth cap")
	ErrNoEdge           = errors.New("delegation: no outgoing edge exists")
	ErrNotTopicOwner    = errors.New("delegation: actor is not the topic administrator")
	ErrUnauthorized     = errors.New("delegation: unauthorized")
	ErrInvalidArgument  = errors.New("delegation: invalid argument")
)
