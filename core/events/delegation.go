package events

import (
	"strconv"

	"liquidgov/core/types"
)

const (
	// TypeTopicCreated is emitted when an administrator creates a topic.
	TypeTopicCreated = "delegation.topicCreated"
	// TypeTopicUpdated is emitted when a topic's active flag or threshold changes.
	TypeTopicUpdated = "delegation.topicUpdated"
	// TypeDelegated is emitted when a participant's outgoing edge on a topic is created or overwritten.
	TypeDelegated = "delegation.delegated"
	// TypeRevoked is emitted when a participant's outgoing edge on a topic is erased.
	TypeRevoked = "delegation.revoked"
	// TypeDeadEndDeclared is emitted when a participant refuses an outgoing edge on a topic.
	TypeDeadEndDeclared = "delegation.deadEndDeclared"
	// TypeDeadEndRevoked is emitted when a participant lifts a prior dead-end declaration.
	TypeDeadEndRevoked = "delegation.deadEndRevoked"
)

// TopicCreated captures the administrative creation of a topic.
type TopicCreated struct {
	Topic             uint64
	Name              string
	DescriptionHash   string
	ProposalThreshold uint64
	Admin             string
}

// EventType satisfies the Event interface.
func (TopicCreated) EventType() string { return TypeTopicCreated }

// Event converts the payload into a broadcastable event.
func (e TopicCreated) Event() *types.Event {
	return &types.Event{Type: TypeTopicCreated, Attributes: map[string]string{
		"topic":             strconv.FormatUint(e.Topic, 10),
		"name":              e.Name,
		"descriptionHash":   e.DescriptionHash,
		"proposalThreshold": strconv.FormatUint(e.ProposalThreshold, 10),
		"admin":             e.Admin,
	}}
}

// TopicUpdated captures a change in a topic's active flag or threshold.
type TopicUpdated struct {
	Topic             uint64
	Active            bool
	ProposalThreshold uint64
}

// EventType satisfies the Event interface.
func (TopicUpdated) EventType() string { return TypeTopicUpdated }

// Event converts the payload into a broadcastable event.
func (e TopicUpdated) Event() *types.Event {
	return &types.Event{Type: TypeTopicUpdated, Attributes: map[string]string{
		"topic":             strconv.FormatUint(e.Topic, 10),
		"active":            strconv.FormatBool(e.Active),
		"proposalThreshold": strconv.FormatUint(e.ProposalThreshold, 10),
	}}
}

// Delegated captures a new or overwritten outgoing edge.
type Delegated struct {
	Topic     uint64
	Delegator string
	Delegate  string
	Time      int64
}

// EventType satisfies the Event interface.
func (Delegated) EventType() string { return TypeDelegated }

// Event converts the payload into a broadcastable event.
func (e Delegated) Event() *types.Event {
	return &types.Event{Type: TypeDelegated, Attributes: map[string]string{
		"topic":     strconv.FormatUint(e.Topic, 10),
		"delegator": e.Delegator,
		"delegate":  e.Delegate,
		"time":      strconv.FormatInt(e.Time, 10),
	}}
}

// Revoked captures the erasure of an outgoing edge.
type Revoked struct {
	Topic     uint64
	Delegator string
	Time      int64
}

// EventType satisfies the Event interface.
func (Revoked) EventType() string { return TypeRevoked }

// Event converts the payload into a broadcastable event.
func (e Revoked) Event() *types.Event {
	return &types.Event{Type: TypeRevoked, Attributes: map[string]string{
		"topic":     strconv.FormatUint(e.Topic, 10),
		"delegator": e.Delegator,
		"time":      strconv.FormatInt(e.Time, 10),
	}}
}

// DeadEndDeclared captures a participant refusing an outgoing edge on a topic.
type DeadEndDeclared struct {
	Topic       uint64
	Participant string
	Time        int64
}

// EventType satisfies the Event interface.
func (DeadEndDeclared) EventType() string { return TypeDeadEndDeclared }

// Event converts the payload into a broadcastable event.
func (e DeadEndDeclared) Event() *types.Event {
	return &types.Event{Type: TypeDeadEndDeclared, Attributes: map[string]string{
		"topic":       strconv.FormatUint(e.Topic, 10),
		"participant": e.Participant,
		"time":        strconv.FormatInt(e.Time, 10),
	}}
}

// DeadEndRevoked captures a participant lifting a prior dead-end declaration.
type DeadEndRevoked struct {
	Topic       uint64
	Participant string
	Time        int64
}

// EventType satisfies the Event interface.
func (DeadEndRevoked) EventType() string { return TypeDeadEndRevoked }

// Event converts the payload into a broadcastable event.
func (e DeadEndRevoked) Event() *types.Event {
	return &types.Event{Type: TypeDeadEndRevoked, Attributes: map[string]string{
		"topic":       strconv.FormatUint(e.Topic, 10),
		"participant": e.Participant,
		"time":        strconv.FormatInt(e.Time, 10),
	}}
}
