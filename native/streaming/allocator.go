package streaming

import (
	"log/slog"
	"math/big"
	"time"

	"liquidgov/core/events"
	"liquidgov/observability/metrics"
)

// Allocator holds per-topic rate budgets and the streams they fund. It
// implements attestation.RewardAllocator so AV can invoke UpdateFlows
// directly as the synchronous nested call described in spec.md's
// concurrency model.
type Allocator struct {
	state     State
	emitter   events.Emitter
	nowFn     func() time.Time
	logger    *slog.Logger
	telemetry *metrics.LiquidGov
}

// NewAllocator constructs an Allocator bound to the supplied persistence port.
func NewAllocator(state State) *Allocator {
	return &Allocator{
		state:     state,
		emitter:   events.NoopEmitter{},
		nowFn:     time.Now,
		telemetry: metrics.LiquidGovMetrics(),
	}
}

// SetEmitter wires the event sink. A nil emitter is ignored.
func (a *Allocator) SetEmitter(emitter events.Emitter) {
	if emitter != nil {
		a.emitter = emitter
	}
}

// SetNowFunc overrides the clock, primarily for deterministic tests.
func (a *Allocator) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		a.nowFn = fn
	}
}

// SetLogger wires a structured logger for diagnostics.
func (a *Allocator) SetLogger(logger *slog.Logger) {
	a.logger = logger
}

func (a *Allocator) emit(ev events.Event) {
	if ev == nil {
		return
	}
	a.emitter.Emit(ev)
}

// SetPoolRate sets topic's configured distribution budget. It does not
// itself redistribute; the next UpdateFlows call uses the new rate.
func (a *Allocator) SetPoolRate(topic uint64, rate *big.Int) error {
	if rate == nil || rate.Sign() < 0 {
		return ErrInvalidArgument
	}
	if err := a.state.PutPool(topic, Pool{Rate: new(big.Int).Set(rate)}); err != nil {
		return err
	}
	a.emit(events.PoolRateUpdated{Topic: topic, Rate: rate.String()}.Event())
	return nil
}

// UpdateFlows translates the current (recipient -> power) distribution into
// per-recipient flow rates, proportional to power under the topic's pool
// rate, flushing and closing streams for dropped recipients.
func (a *Allocator) UpdateFlows(topic uint64, recipients []string, powers []*big.Int, totalPower *big.Int) error {
	now := a.nowFn()

	if totalPower == nil || totalPower.Sign() == 0 {
		return a.closeAllActive(topic, now)
	}

	pool, ok, err := a.state.Pool(topic)
	if err != nil {
		return err
	}
	if !ok || pool.Rate == nil || pool.Rate.Sign() <= 0 {
		return ErrInvalidPoolRate
	}

	newActive := make(map[string]bool, len(recipients))
	for i, recipient := range recipients {
		power := powers[i]
		if power == nil || power.Sign() <= 0 {
			continue
		}
		newRate := new(big.Int).Mul(pool.Rate, power)
		newRate.Quo(newRate, totalPower)

		cur, has := a.currentStream(topic, recipient)
		switch {
		case (!has || !cur.Active) && newRate.Sign() > 0:
			stream := Stream{
				Rate:             newRate,
				AccruedTotal:     big.NewInt(0),
				LastRateChangeAt: now.Unix(),
				Active:           true,
			}
			if err := a.state.PutStream(topic, recipient, stream); err != nil {
				return err
			}
			a.emit(events.FlowCreated{Topic: topic, Recipient: recipient, Rate: newRate.String(), Time: now.Unix()}.Event())
			a.telemetry.ObserveFlowTransition("created")
			newActive[recipient] = true
		case has && cur.Active:
			if cur.Rate.Cmp(newRate) != 0 {
				elapsed := now.Unix() - cur.LastRateChangeAt
				delta := new(big.Int).Mul(cur.Rate, big.NewInt(elapsed))
				oldRate := new(big.Int).Set(cur.Rate)
				cur.AccruedTotal = new(big.Int).Add(cur.AccruedTotal, delta)
				cur.Rate = newRate
				cur.LastRateChangeAt = now.Unix()
				if err := a.state.PutStream(topic, recipient, cur); err != nil {
					return err
				}
				a.emit(events.FlowUpdated{
					Topic: topic, Recipient: recipient,
					OldRate: oldRate.String(), NewRate: newRate.String(),
					AccruedDelta: delta.String(), Time: now.Unix(),
				}.Event())
				a.telemetry.ObserveFlowTransition("updated")
			}
			newActive[recipient] = true
		}
	}

	previouslyActive, err := a.state.ActiveRecipients(topic)
	if err != nil {
		return err
	}
	for _, recipient := range previouslyActive {
		if newActive[recipient] {
			continue
		}
		if err := a.closeStream(topic, recipient, now); err != nil {
			return err
		}
	}
	if count, err := a.countActive(topic); err == nil {
		a.telemetry.SetFlowsOpen(topic, count)
	}
	return nil
}

func (a *Allocator) countActive(topic uint64) (int, error) {
	active, err := a.state.ActiveRecipients(topic)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

func (a *Allocator) currentStream(topic uint64, recipient string) (Stream, bool) {
	stream, ok, err := a.state.Stream(topic, recipient)
	if err != nil || !ok {
		return Stream{}, false
	}
	return stream, true
}

func (a *Allocator) closeAllActive(topic uint64, now time.Time) error {
	active, err := a.state.ActiveRecipients(topic)
	if err != nil {
		return err
	}
	for _, recipient := range active {
		if err := a.closeStream(topic, recipient, now); err != nil {
			return err
		}
	}
	return nil
}

// closeStream flushes the stream's accrual, zeroes its rate, and marks it
// inactive. Closing a stream never decreases accrued_total.
func (a *Allocator) closeStream(topic uint64, recipient string, now time.Time) error {
	cur, ok, err := a.state.Stream(topic, recipient)
	if err != nil {
		return err
	}
	if !ok || !cur.Active {
		return nil
	}
	elapsed := now.Unix() - cur.LastRateChangeAt
	delta := new(big.Int).Mul(cur.Rate, big.NewInt(elapsed))
	cur.AccruedTotal = new(big.Int).Add(cur.AccruedTotal, delta)
	cur.Rate = big.NewInt(0)
	cur.LastRateChangeAt = now.Unix()
	cur.Active = false
	if err := a.state.PutStream(topic, recipient, cur); err != nil {
		return err
	}
	a.emit(events.FlowDeleted{Topic: topic, Recipient: recipient, AccruedTotal: cur.AccruedTotal.String(), Time: now.Unix()}.Event())
	a.telemetry.ObserveFlowTransition("closed")
	return nil
}

// FlowView returns a read-only projection of the stream's accrual,
// including the uncommitted tail since the last rate change.
func (a *Allocator) FlowView(recipient string, topic uint64) (rate *big.Int, projectedAccrued *big.Int, lastChange int64, err error) {
	stream, ok, err := a.state.Stream(topic, recipient)
	if err != nil {
		return nil, nil, 0, err
	}
	if !ok {
		return big.NewInt(0), big.NewInt(0), 0, nil
	}
	projected := new(big.Int).Set(stream.AccruedTotal)
	if stream.Active {
		elapsed := a.nowFn().Unix() - stream.LastRateChangeAt
		projected.Add(projected, new(big.Int).Mul(stream.Rate, big.NewInt(elapsed)))
	}
	return new(big.Int).Set(stream.Rate), projected, stream.LastRateChangeAt, nil
}

// PoolView reports a topic's configured rate, the sum of its active stream
// rates, and the remainder still available for distribution.
func (a *Allocator) PoolView(topic uint64) (poolRate *big.Int, distributedSum *big.Int, remainder *big.Int, err error) {
	pool, ok, err := a.state.Pool(topic)
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok || pool.Rate == nil {
		pool.Rate = big.NewInt(0)
	}
	active, err := a.state.ActiveRecipients(topic)
	if err != nil {
		return nil, nil, nil, err
	}
	sum := big.NewInt(0)
	for _, recipient := range active {
		stream, ok, err := a.state.Stream(topic, recipient)
		if err != nil {
			return nil, nil, nil, err
		}
		if !ok || !stream.Active {
			continue
		}
		sum.Add(sum, stream.Rate)
	}
	remaining := new(big.Int).Sub(pool.Rate, sum)
	if remaining.Sign() < 0 {
		remaining = big.NewInt(0)
	}
	return new(big.Int).Set(pool.Rate), sum, remaining, nil
}

// EstimateMonthly is a pure read view for UI estimation: what a given power
// share would earn per month under a topic's current pool rate, assuming
// total_power stays constant.
func (a *Allocator) EstimateMonthly(topic uint64, power, totalPower *big.Int) (flowRate, tokensPerMonth *big.Int, shareBasisPoints int64, err error) {
	if totalPower == nil || totalPower.Sign() == 0 || power == nil || power.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0), 0, nil
	}
	pool, ok, err := a.state.Pool(topic)
	if err != nil {
		return nil, nil, 0, err
	}
	if !ok || pool.Rate == nil {
		pool.Rate = big.NewInt(0)
	}
	rate := new(big.Int).Mul(pool.Rate, power)
	rate.Quo(rate, totalPower)
	monthly := new(big.Int).Mul(rate, big.NewInt(SecondsPerMonth))
	share := new(big.Int).Mul(power, big.NewInt(10000))
	share.Quo(share, totalPower)
	return rate, monthly, share.Int64(), nil
}
