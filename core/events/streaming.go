package events

import (
	"strconv"

	"liquidgov/core/types"
)

const (
	// TypeFlowCreated is emitted when a new reward stream is opened for a recipient.
	TypeFlowCreated = "streaming.flowCreated"
	// TypeFlowUpdated is emitted when an existing stream's rate changes.
	TypeFlowUpdated = "streaming.flowUpdated"
	// TypeFlowDeleted is emitted when a stream is closed and its accrual flushed.
	TypeFlowDeleted = "streaming.flowDeleted"
	// TypePoolRateUpdated is emitted when an administrator changes a topic's pool rate.
	TypePoolRateUpdated = "streaming.poolRateUpdated"
)

// FlowCreated marks the opening of a new reward stream.
type FlowCreated struct {
	Topic     uint64
	Recipient string
	Rate      string
	Time      int64
}

// EventType satisfies the Event interface.
func (FlowCreated) EventType() string { return TypeFlowCreated }

// Event converts the payload into a broadcastable event.
func (e FlowCreated) Event() *types.Event {
	return &types.Event{Type: TypeFlowCreated, Attributes: map[string]string{
		"topic":     strconv.FormatUint(e.Topic, 10),
		"recipient": e.Recipient,
		"rate":      e.Rate,
		"time":      strconv.FormatInt(e.Time, 10),
	}}
}

// FlowUpdated marks a rate transition on an already-open stream.
type FlowUpdated struct {
	Topic        uint64
	Recipient    string
	OldRate      string
	NewRate      string
	AccruedDelta string
	Time         int64
}

// EventType satisfies the Event interface.
func (FlowUpdated) EventType() string { return TypeFlowUpdated }

// Event converts the payload into a broadcastable event.
func (e FlowUpdated) Event() *types.Event {
	return &types.Event{Type: TypeFlowUpdated, Attributes: map[string]string{
		"topic":        strconv.FormatUint(e.Topic, 10),
		"recipient":    e.Recipient,
		"oldRate":      e.OldRate,
		"newRate":      e.NewRate,
		"accruedDelta": e.AccruedDelta,
		"time":         strconv.FormatInt(e.Time, 10),
	}}
}

// FlowDeleted marks the closing of a stream, with its final flushed accrual.
type FlowDeleted struct {
	Topic        uint64
	Recipient    string
	AccruedTotal string
	Time         int64
}

// EventType satisfies the Event interface.
func (FlowDeleted) EventType() string { return TypeFlowDeleted }

// Event converts the payload into a broadcastable event.
func (e FlowDeleted) Event() *types.Event {
	return &types.Event{Type: TypeFlowDeleted, Attributes: map[string]string{
		"topic":        strconv.FormatUint(e.Topic, 10),
		"recipient":    e.Recipient,
		"accruedTotal": e.AccruedTotal,
		"time":         strconv.FormatInt(e.Time, 10),
	}}
}

// PoolRateUpdated marks an administrative change to a topic's pool rate.
type PoolRateUpdated struct {
	Topic uint64
	Rate  string
}

// EventType satisfies the Event interface.
func (PoolRateUpdated) EventType() string { return TypePoolRateUpdated }

// Event converts the payload into a broadcastable event.
func (e PoolRateUpdated) Event() *types.Event {
	return &types.Event{Type: TypePoolRateUpdated, Attributes: map[string]string{
		"topic": strconv.FormatUint(e.Topic, 10),
		"rate":  e.Rate,
	}}
}
