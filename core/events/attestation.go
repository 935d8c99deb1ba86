package events

import (
	"strconv"

	"liquidgov/core/types"
)

const (
	// TypeAttestationSubmitted is emitted when a record is received, before verification completes.
	TypeAttestationSubmitted = "attestation.submitted"
	// TypeAttestationAccepted is emitted once a record clears every precondition and the cache is updated.
	TypeAttestationAccepted = "attestation.accepted"
	// TypeAttestationRejected is emitted when a record fails any precondition.
	TypeAttestationRejected = "attestation.rejected"
	// TypePowerUpdated is emitted alongside AttestationAccepted, once per updated topic.
	TypePowerUpdated = "attestation.powerUpdated"
	// TypeOperatorAdded is emitted when an operator is registered.
	TypeOperatorAdded = "attestation.operatorAdded"
	// TypeOperatorRemoved is emitted when an operator is deregistered.
	TypeOperatorRemoved = "attestation.operatorRemoved"
)

// AttestationSubmitted marks receipt of a record before its preconditions are checked.
type AttestationSubmitted struct {
	RequestID string
	Topic     uint64
	Nonce     string
}

// EventType satisfies the Event interface.
func (AttestationSubmitted) EventType() string { return TypeAttestationSubmitted }

// Event converts the payload into a broadcastable event.
func (e AttestationSubmitted) Event() *types.Event {
	return &types.Event{Type: TypeAttestationSubmitted, Attributes: map[string]string{
		"requestId": e.RequestID,
		"topic":     strconv.FormatUint(e.Topic, 10),
		"nonce":     e.Nonce,
	}}
}

// AttestationAccepted marks a record that cleared every precondition.
type AttestationAccepted struct {
	RequestID string
	Topic     uint64
	Digest    string
	Signers   int
}

// EventType satisfies the Event interface.
func (AttestationAccepted) EventType() string { return TypeAttestationAccepted }

// Event converts the payload into a broadcastable event.
func (e AttestationAccepted) Event() *types.Event {
	return &types.Event{Type: TypeAttestationAccepted, Attributes: map[string]string{
		"requestId": e.RequestID,
		"topic":     strconv.FormatUint(e.Topic, 10),
		"digest":    e.Digest,
		"signers":   strconv.Itoa(e.Signers),
	}}
}

// AttestationRejected marks a record that failed a precondition, naming the reason.
type AttestationRejected struct {
	RequestID string
	Topic     uint64
	Reason    string
}

// EventType satisfies the Event interface.
func (AttestationRejected) EventType() string { return TypeAttestationRejected }

// Event converts the payload into a broadcastable event.
func (e AttestationRejected) Event() *types.Event {
	return &types.Event{Type: TypeAttestationRejected, Attributes: map[string]string{
		"requestId": e.RequestID,
		"topic":     strconv.FormatUint(e.Topic, 10),
		"reason":    e.Reason,
	}}
}

// PowerUpdated marks a successful cache write for a topic.
type PowerUpdated struct {
	Topic  uint64
	Digest string
	Time   int64
}

// EventType satisfies the Event interface.
func (PowerUpdated) EventType() string { return TypePowerUpdated }

// Event converts the payload into a broadcastable event.
func (e PowerUpdated) Event() *types.Event {
	return &types.Event{Type: TypePowerUpdated, Attributes: map[string]string{
		"topic":  strconv.FormatUint(e.Topic, 10),
		"digest": e.Digest,
		"time":   strconv.FormatInt(e.Time, 10),
	}}
}

// OperatorAdded marks the registration of a new attestation operator.
type OperatorAdded struct {
	OperatorID string
}

// EventType satisfies the Event interface.
func (OperatorAdded) EventType() string { return TypeOperatorAdded }

// Event converts the payload into a broadcastable event.
func (e OperatorAdded) Event() *types.Event {
	return &types.Event{Type: TypeOperatorAdded, Attributes: map[string]string{
		"operatorId": e.OperatorID,
	}}
}

// OperatorRemoved marks the deregistration of an attestation operator.
type OperatorRemoved struct {
	OperatorID string
}

// EventType satisfies the Event interface.
func (OperatorRemoved) EventType() string { return TypeOperatorRemoved }

// Event converts the payload into a broadcastable event.
func (e OperatorRemoved) Event() *types.Event {
	return &types.Event{Type: TypeOperatorRemoved, Attributes: map[string]string{
		"operatorId": e.OperatorID,
	}}
}
