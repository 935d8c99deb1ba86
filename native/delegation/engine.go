package delegation

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"liquidgov/core/events"
	"liquidgov/observability/metrics"
)

// Engine enforces DG's invariants on every mutation and serves the
// terminal-lookup, chain-enumeration, and export queries downstream
// consumers depend on.
type Engine struct {
	state     State
	emitter   events.Emitter
	nowFn     func() time.Time
	logger    *slog.Logger
	depthCap  int
	telemetry *metrics.LiquidGov
}

// NewEngine constructs an Engine bound to the supplied persistence port.
func NewEngine(state State) *Engine {
	return &Engine{
		state:     state,
		emitter:   events.NoopEmitter{},
		nowFn:     time.Now,
		depthCap:  DepthCap,
		telemetry: metrics.LiquidGovMetrics(),
	}
}

// SetEmitter wires the event sink. A nil emitter is ignored.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter != nil {
		e.emitter = emitter
	}
}

// SetNowFunc overrides the clock, primarily for deterministic tests.
func (e *Engine) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		e.nowFn = fn
	}
}

// SetLogger wires a structured logger for warnings on swallowed failures.
// DG has none of its own (every failure here is synchronous and returned),
// but the hook is kept for parity with AV/RA and future instrumentation.
func (e *Engine) SetLogger(logger *slog.Logger) {
	e.logger = logger
}

func (e *Engine) emit(ev events.Event) {
	if ev == nil {
		return
	}
	e.emitter.Emit(ev)
}

func (e *Engine) audit(actor string, topic uint64, action, detail string) {
	_ = e.state.AppendAudit(AuditRecord{
		Time:   e.nowFn().Unix(),
		Actor:  actor,
		Topic:  topic,
		Action: action,
		Detail: detail,
	})
}

// CreateTopic registers a new topic owned by admin, active by default.
func (e *Engine) CreateTopic(admin, name, descriptionHash string, proposalThreshold uint64) (uint64, error) {
	if len(name) == 0 || len(name) > 64 {
		return 0, fmt.Errorf("%w: topic name must be 1-64 bytes", ErrInvalidArgument)
	}
	if admin == "" {
		return 0, fmt.Errorf("%w: admin is required", ErrInvalidArgument)
	}
	id, err := e.state.NextTopicID()
	if err != nil {
		return 0, err
	}
	topic := Topic{
		ID:                id,
		Name:              name,
		DescriptionHash:   descriptionHash,
		ProposalThreshold: proposalThreshold,
		Active:            true,
		Admin:             admin,
	}
	if err := e.state.PutTopic(topic); err != nil {
		return 0, err
	}
	e.emit(events.TopicCreated{
		Topic:             id,
		Name:              name,
		DescriptionHash:   descriptionHash,
		ProposalThreshold: proposalThreshold,
		Admin:             admin,
	}.Event())
	e.audit(admin, id, "create_topic", name)
	e.telemetry.ObserveDelegationMutation("create_topic")
	return id, nil
}

// SetTopicActive toggles a topic's active flag. Existing edges are never
// erased by toggling inactive; only new delegations on the topic are
// refused while inactive.
func (e *Engine) SetTopicActive(actor string, topic uint64, active bool) error {
	t, ok, err := e.state.Topic(topic)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unknown topic %d", ErrInvalidArgument, topic)
	}
	if t.Admin != actor {
		return ErrNotTopicOwner
	}
	t.Active = active
	if err := e.state.PutTopic(t); err != nil {
		return err
	}
	e.emit(events.TopicUpdated{Topic: topic, Active: t.Active, ProposalThreshold: t.ProposalThreshold}.Event())
	e.audit(actor, topic, "set_topic_active", fmt.Sprintf("%t", active))
	return nil
}

// SetTopicThreshold updates the informational proposal threshold.
func (e *Engine) SetTopicThreshold(actor string, topic uint64, threshold uint64) error {
	t, ok, err := e.state.Topic(topic)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unknown topic %d", ErrInvalidArgument, topic)
	}
	if t.Admin != actor {
		return ErrNotTopicOwner
	}
	t.ProposalThreshold = threshold
	if err := e.state.PutTopic(t); err != nil {
		return err
	}
	e.emit(events.TopicUpdated{Topic: topic, Active: t.Active, ProposalThreshold: t.ProposalThreshold}.Event())
	e.audit(actor, topic, "set_topic_threshold", fmt.Sprintf("%d", threshold))
	return nil
}

// Delegate creates or overwrites actor's outgoing edge on topic, enforcing
// every invariant before the write commits. On overwrite, the prior edge is
// replaced atomically; there is never a partially-written state.
func (e *Engine) Delegate(actor string, topic uint64, target string) (err error) {
	defer func() {
		if err != nil {
			e.telemetry.ObserveDelegationRejected(rejectionReason(err))
		}
	}()
	t, ok, err := e.state.Topic(topic)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unknown topic %d", ErrInvalidArgument, topic)
	}
	if actor == target {
		return ErrSelfDelegate
	}
	if !t.Active {
		return ErrTopicInactive
	}
	targetDeadEnd, err := e.state.DeadEnd(topic, target)
	if err != nil {
		return err
	}
	if targetDeadEnd {
		return ErrTargetDeadEnd
	}
	actorDeadEnd, err := e.state.DeadEnd(topic, actor)
	if err != nil {
		return err
	}
	if actorDeadEnd {
		return ErrActorDeadEnd
	}

	// Invariant 4: simulate actor -> target plus the chain from target; if
	// actor reappears, the edge would close a cycle.
	cur := target
	for i := 0; i <= e.depthCap; i++ {
		if cur == actor {
			return ErrWouldCycle
		}
		next, has, err := e.state.Edge(topic, cur)
		if err != nil {
			return err
		}
		if !has {
			break
		}
		cur = next
	}

	// Invariant 5: the new chain from actor must fit, and no existing
	// delegator of actor may be retroactively pushed over the cap.
	dTarget, err := e.depth(target, topic)
	if err != nil {
		return err
	}
	if dTarget+1 > e.depthCap {
		return ErrWouldExceedDepth
	}
	participants, err := e.state.Participation(topic)
	if err != nil {
		return err
	}
	for _, u := range participants {
		if u == actor {
			continue
		}
		term, err := e.TerminalDelegate(u, topic)
		if err != nil {
			return err
		}
		if term != actor {
			continue
		}
		dU, err := e.depth(u, topic)
		if err != nil {
			return err
		}
		if dU+1+dTarget > e.depthCap {
			return ErrWouldExceedDepth
		}
	}

	_, hadEdge, err := e.state.Edge(topic, actor)
	if err != nil {
		return err
	}
	if err := e.state.PutEdge(topic, actor, target); err != nil {
		return err
	}
	if !hadEdge {
		if err := e.state.AddParticipation(topic, actor); err != nil {
			return err
		}
	}
	now := e.nowFn()
	e.emit(events.Delegated{Topic: topic, Delegator: actor, Delegate: target, Time: now.Unix()}.Event())
	e.audit(actor, topic, "delegate", target)
	e.telemetry.ObserveDelegationMutation("delegate")
	if newDepth, derr := e.depth(actor, topic); derr == nil {
		e.telemetry.SetDelegationDepth(topic, newDepth)
	}
	if participants, perr := e.state.Participation(topic); perr == nil {
		e.telemetry.SetTopicParticipants(topic, len(participants))
	}
	return nil
}

// rejectionReason maps a delegation error to a stable low-cardinality label
// for metrics, falling back to "other" for anything not in the taxonomy.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrSelfDelegate):
		return "self_delegate"
	case errors.Is(err, ErrTopicInactive):
		return "topic_inactive"
	case errors.Is(err, ErrTargetDeadEnd):
		return "target_dead_end"
	case errors.Is(err, ErrActorDeadEnd):
		return "actor_dead_end"
	case errors.Is(err, ErrWouldCycle):
		return "would_cycle"
	case errors.Is(err, ErrWouldExceedDepth):
		return "would_exceed_depth"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "other"
	}
}

// Revoke erases actor's outgoing edge on topic. It is idempotent: calling it
// when no edge exists leaves state unchanged and emits no event.
func (e *Engine) Revoke(actor string, topic uint64) error {
	_, hadEdge, err := e.state.Edge(topic, actor)
	if err != nil {
		return err
	}
	if !hadEdge {
		return nil
	}
	if err := e.state.DeleteEdge(topic, actor); err != nil {
		return err
	}
	now := e.nowFn()
	e.emit(events.Revoked{Topic: topic, Delegator: actor, Time: now.Unix()}.Event())
	e.audit(actor, topic, "revoke", "")
	e.telemetry.ObserveDelegationMutation("revoke")
	return nil
}

// DeclareDeadEnd sets actor's dead-end flag on topic. Idempotent: declaring
// twice has the same visible effect as once. Existing inbound chains
// terminating at actor are left untouched.
func (e *Engine) DeclareDeadEnd(actor string, topic uint64) error {
	cur, err := e.state.DeadEnd(topic, actor)
	if err != nil {
		return err
	}
	if cur {
		return nil
	}
	if err := e.state.SetDeadEnd(topic, actor, true); err != nil {
		return err
	}
	now := e.nowFn()
	e.emit(events.DeadEndDeclared{Topic: topic, Participant: actor, Time: now.Unix()}.Event())
	e.audit(actor, topic, "declare_dead_end", "")
	return nil
}

// RevokeDeadEnd clears actor's dead-end flag on topic. Idempotent.
func (e *Engine) RevokeDeadEnd(actor string, topic uint64) error {
	cur, err := e.state.DeadEnd(topic, actor)
	if err != nil {
		return err
	}
	if !cur {
		return nil
	}
	if err := e.state.SetDeadEnd(topic, actor, false); err != nil {
		return err
	}
	now := e.nowFn()
	e.emit(events.DeadEndRevoked{Topic: topic, Participant: actor, Time: now.Unix()}.Event())
	e.audit(actor, topic, "revoke_dead_end", "")
	return nil
}

// IsDeadEnd reports whether participant has declared a dead end on topic.
func (e *Engine) IsDeadEnd(participant string, topic uint64) (bool, error) {
	return e.state.DeadEnd(topic, participant)
}

// TerminalDelegate follows outgoing edges from p, returning the first node
// without one. Traversal is bounded at depthCap+1 steps so a stale or
// corrupt chain can never hang the caller.
func (e *Engine) TerminalDelegate(p string, topic uint64) (string, error) {
	cur := p
	for i := 0; i <= e.depthCap; i++ {
		next, has, err := e.state.Edge(topic, cur)
		if err != nil {
			return "", err
		}
		if !has {
			return cur, nil
		}
		cur = next
	}
	return cur, nil
}

// Chain returns the ordered list of participants from p to its terminal,
// bounded to at most depthCap+1 entries.
func (e *Engine) Chain(p string, topic uint64) ([]string, error) {
	chain := []string{p}
	cur := p
	for i := 0; i < e.depthCap; i++ {
		next, has, err := e.state.Edge(topic, cur)
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		chain = append(chain, next)
		cur = next
	}
	return chain, nil
}

// Depth returns the number of edges from p to its terminal, in [0, depthCap].
func (e *Engine) Depth(p string, topic uint64) (int, error) {
	return e.depth(p, topic)
}

func (e *Engine) depth(p string, topic uint64) (int, error) {
	chain, err := e.Chain(p, topic)
	if err != nil {
		return 0, err
	}
	return len(chain) - 1, nil
}

// ActiveEdges returns every currently-existing edge on topic, in
// participation-index order.
func (e *Engine) ActiveEdges(topic uint64) ([]Edge, error) {
	participants, err := e.state.Participation(topic)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(participants))
	for _, p := range participants {
		target, has, err := e.state.Edge(topic, p)
		if err != nil {
			return nil, err
		}
		if !has {
			continue
		}
		edges = append(edges, Edge{Delegator: p, Delegate: target})
	}
	return edges, nil
}

// DelegatorsOfTopic returns every participant currently holding an outgoing
// edge on topic, in participation-index order.
func (e *Engine) DelegatorsOfTopic(topic uint64) ([]string, error) {
	edges, err := e.ActiveEdges(topic)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(edges))
	for _, edge := range edges {
		out = append(out, edge.Delegator)
	}
	return out, nil
}

// Topic returns the topic record, if known.
func (e *Engine) Topic(topic uint64) (Topic, bool, error) {
	return e.state.Topic(topic)
}
