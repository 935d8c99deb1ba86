// Package delegation implements the per-topic liquid-democracy delegation
// graph: directed single-outgoing-edge chains that terminate at an
// undelegated participant, under cycle, depth, dead-end, and topic-active
// invariants.
package delegation

// DepthCap bounds the length of any delegation chain. Cycle and depth
// checks are bounded by this constant so every traversal terminates
// deterministically without recursion.
const DepthCap = 7

// Topic is an independent domain with its own delegation graph, pool rate,
// and power cache.
type Topic struct {
	ID                uint64
	Name              string
	DescriptionHash   string
	ProposalThreshold uint64
	Active            bool
	Admin             string
}

// Edge is a materialized (delegator, delegate) pair on a topic.
type Edge struct {
	Delegator string
	Delegate  string
}

// AuditRecord is an append-only trail entry for a DG mutation, independent
// of the event stream, for operator-facing history.
type AuditRecord struct {
	Time   int64
	Actor  string
	Topic  uint64
	Action string
	Detail string
}
