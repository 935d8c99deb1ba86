package streaming

import (
	"math/big"
	"testing"
	"time"
)

type memState struct {
	pools   map[uint64]Pool
	streams map[uint64]map[string]Stream
}

func newMemState() *memState {
	return &memState{
		pools:   make(map[uint64]Pool),
		streams: make(map[uint64]map[string]Stream),
	}
}

func (m *memState) Pool(topic uint64) (Pool, bool, error) {
	p, ok := m.pools[topic]
	return p, ok, nil
}

func (m *memState) PutPool(topic uint64, pool Pool) error {
	m.pools[topic] = pool
	return nil
}

func (m *memState) Stream(topic uint64, recipient string) (Stream, bool, error) {
	byTopic, ok := m.streams[topic]
	if !ok {
		return Stream{}, false, nil
	}
	s, ok := byTopic[recipient]
	return s, ok, nil
}

func (m *memState) PutStream(topic uint64, recipient string, stream Stream) error {
	byTopic, ok := m.streams[topic]
	if !ok {
		byTopic = make(map[string]Stream)
		m.streams[topic] = byTopic
	}
	byTopic[recipient] = stream
	return nil
}

func (m *memState) DeleteStream(topic uint64, recipient string) error {
	if byTopic, ok := m.streams[topic]; ok {
		delete(byTopic, recipient)
	}
	return nil
}

func (m *memState) ActiveRecipients(topic uint64) ([]string, error) {
	var out []string
	for recipient, stream := range m.streams[topic] {
		if stream.Active {
			out = append(out, recipient)
		}
	}
	return out, nil
}

func newTestAllocator() (*Allocator, *memState) {
	state := newMemState()
	a := NewAllocator(state)
	return a, state
}

// Seed scenario 1 (rate leg): a single terminal recipient gets the full
// pool rate.
func TestUpdateFlowsSingleRecipientGetsFullRate(t *testing.T) {
	a, _ := newTestAllocator()
	a.SetNowFunc(func() time.Time { return time.Unix(1000, 0) })
	if err := a.SetPoolRate(1, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("set pool rate: %v", err)
	}
	if err := a.UpdateFlows(1, []string{"C"}, []*big.Int{big.NewInt(3)}, big.NewInt(3)); err != nil {
		t.Fatalf("update flows: %v", err)
	}
	rate, _, _, err := a.FlowView("C", 1)
	if err != nil {
		t.Fatalf("flow view: %v", err)
	}
	if rate.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("expected rate 1_000_000, got %s", rate)
	}
}

// Seed scenario 6: proportional split, then a membership change closes the
// dropped recipient's stream with flushed accrual and opens the new one.
func TestUpdateFlowsProportionalSplitAndTransition(t *testing.T) {
	a, state := newTestAllocator()
	clock := int64(0)
	a.SetNowFunc(func() time.Time { return time.Unix(clock, 0) })
	if err := a.SetPoolRate(1, big.NewInt(100)); err != nil {
		t.Fatalf("set pool rate: %v", err)
	}
	recipients := []string{"r1", "r2", "r3"}
	powers := []*big.Int{big.NewInt(50), big.NewInt(30), big.NewInt(20)}
	if err := a.UpdateFlows(1, recipients, powers, big.NewInt(100)); err != nil {
		t.Fatalf("update flows: %v", err)
	}
	wantRates := map[string]int64{"r1": 50, "r2": 30, "r3": 20}
	for r, want := range wantRates {
		rate, _, _, err := a.FlowView(r, 1)
		if err != nil {
			t.Fatalf("flow view %s: %v", r, err)
		}
		if rate.Cmp(big.NewInt(want)) != 0 {
			t.Fatalf("rate(%s) = %s, want %d", r, rate, want)
		}
	}

	clock = 10
	newRecipients := []string{"r1", "r4"}
	newPowers := []*big.Int{big.NewInt(75), big.NewInt(25)}
	if err := a.UpdateFlows(1, newRecipients, newPowers, big.NewInt(100)); err != nil {
		t.Fatalf("second update flows: %v", err)
	}

	r2Stream, ok, err := state.Stream(1, "r2")
	if err != nil || !ok {
		t.Fatalf("expected r2 stream to remain recorded, ok=%v err=%v", ok, err)
	}
	if r2Stream.Active {
		t.Fatalf("expected r2 stream closed")
	}
	if r2Stream.AccruedTotal.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected r2 accrued 300 (30*10), got %s", r2Stream.AccruedTotal)
	}

	r3Stream, ok, err := state.Stream(1, "r3")
	if err != nil || !ok {
		t.Fatalf("expected r3 stream recorded")
	}
	if r3Stream.Active || r3Stream.AccruedTotal.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected r3 closed with accrued 200, got active=%v accrued=%s", r3Stream.Active, r3Stream.AccruedTotal)
	}

	r1Rate, _, _, err := a.FlowView("r1", 1)
	if err != nil {
		t.Fatalf("flow view r1: %v", err)
	}
	if r1Rate.Cmp(big.NewInt(75)) != 0 {
		t.Fatalf("expected r1 rate 75, got %s", r1Rate)
	}
	r4Rate, _, _, err := a.FlowView("r4", 1)
	if err != nil {
		t.Fatalf("flow view r4: %v", err)
	}
	if r4Rate.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("expected r4 rate 25, got %s", r4Rate)
	}
}

// A recipient that loses power (stream closed, inactive) and later regains
// it must reopen, not stay silently closed — ordinary liquid-democracy churn
// as delegators come and go across attestations.
func TestUpdateFlowsReopensDroppedThenReturningRecipient(t *testing.T) {
	a, state := newTestAllocator()
	clock := int64(0)
	a.SetNowFunc(func() time.Time { return time.Unix(clock, 0) })
	if err := a.SetPoolRate(1, big.NewInt(100)); err != nil {
		t.Fatalf("set pool rate: %v", err)
	}

	if err := a.UpdateFlows(1, []string{"A", "B"}, []*big.Int{big.NewInt(50), big.NewInt(50)}, big.NewInt(100)); err != nil {
		t.Fatalf("round1 update flows: %v", err)
	}

	clock = 10
	if err := a.UpdateFlows(1, []string{"A"}, []*big.Int{big.NewInt(100)}, big.NewInt(100)); err != nil {
		t.Fatalf("round2 update flows: %v", err)
	}
	bClosed, ok, err := state.Stream(1, "B")
	if err != nil || !ok {
		t.Fatalf("expected B stream to remain recorded, ok=%v err=%v", ok, err)
	}
	if bClosed.Active {
		t.Fatalf("expected B closed after round2")
	}

	clock = 20
	if err := a.UpdateFlows(1, []string{"A", "B"}, []*big.Int{big.NewInt(50), big.NewInt(50)}, big.NewInt(100)); err != nil {
		t.Fatalf("round3 update flows: %v", err)
	}
	bReopened, ok, err := state.Stream(1, "B")
	if err != nil || !ok {
		t.Fatalf("expected B stream recorded after round3, ok=%v err=%v", ok, err)
	}
	if !bReopened.Active {
		t.Fatalf("expected B reopened after round3, got inactive stream %+v", bReopened)
	}
	if bReopened.Rate.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected B reopened at rate 50, got %s", bReopened.Rate)
	}
	if bReopened.AccruedTotal.Sign() != 0 {
		t.Fatalf("expected B accrued reset to 0 on reopen, got %s", bReopened.AccruedTotal)
	}
	if bReopened.LastRateChangeAt != clock {
		t.Fatalf("expected B LastRateChangeAt reset to reopen time %d, got %d", clock, bReopened.LastRateChangeAt)
	}

	aRate, _, _, err := a.FlowView("A", 1)
	if err != nil {
		t.Fatalf("flow view A: %v", err)
	}
	if aRate.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected A rate 50 after round3, got %s", aRate)
	}
}

func TestUpdateFlowsInvalidPoolRateWhenZero(t *testing.T) {
	a, _ := newTestAllocator()
	err := a.UpdateFlows(1, []string{"r1"}, []*big.Int{big.NewInt(1)}, big.NewInt(1))
	if err != ErrInvalidPoolRate {
		t.Fatalf("expected InvalidPoolRate, got %v", err)
	}
}

func TestUpdateFlowsClosesAllOnZeroTotalPower(t *testing.T) {
	a, state := newTestAllocator()
	a.SetNowFunc(func() time.Time { return time.Unix(100, 0) })
	if err := a.SetPoolRate(1, big.NewInt(100)); err != nil {
		t.Fatalf("set pool rate: %v", err)
	}
	if err := a.UpdateFlows(1, []string{"r1"}, []*big.Int{big.NewInt(1)}, big.NewInt(1)); err != nil {
		t.Fatalf("open flow: %v", err)
	}
	if err := a.UpdateFlows(1, nil, nil, big.NewInt(0)); err != nil {
		t.Fatalf("close on zero total power: %v", err)
	}
	r1, ok, err := state.Stream(1, "r1")
	if err != nil || !ok || r1.Active {
		t.Fatalf("expected r1 closed, ok=%v active=%v err=%v", ok, r1.Active, err)
	}
}

// Rates never exceed the pool budget, even with rounding remainder.
func TestUpdateFlowsNeverExceedsPoolRate(t *testing.T) {
	a, _ := newTestAllocator()
	if err := a.SetPoolRate(1, big.NewInt(100)); err != nil {
		t.Fatalf("set pool rate: %v", err)
	}
	recipients := []string{"r1", "r2", "r3"}
	powers := []*big.Int{big.NewInt(1), big.NewInt(1), big.NewInt(1)}
	if err := a.UpdateFlows(1, recipients, powers, big.NewInt(3)); err != nil {
		t.Fatalf("update flows: %v", err)
	}
	_, sum, remainder, err := a.PoolView(1)
	if err != nil {
		t.Fatalf("pool view: %v", err)
	}
	if sum.Cmp(big.NewInt(100)) > 0 {
		t.Fatalf("distributed sum %s exceeds pool rate", sum)
	}
	if remainder.Sign() < 0 {
		t.Fatalf("remainder should never be negative, got %s", remainder)
	}
}

func TestUpdateFlowsIdempotentWithIdenticalInputs(t *testing.T) {
	a, state := newTestAllocator()
	a.SetNowFunc(func() time.Time { return time.Unix(0, 0) })
	if err := a.SetPoolRate(1, big.NewInt(100)); err != nil {
		t.Fatalf("set pool rate: %v", err)
	}
	recipients := []string{"r1"}
	powers := []*big.Int{big.NewInt(1)}
	if err := a.UpdateFlows(1, recipients, powers, big.NewInt(1)); err != nil {
		t.Fatalf("first update: %v", err)
	}
	before, _, _ := state.Stream(1, "r1")
	if err := a.UpdateFlows(1, recipients, powers, big.NewInt(1)); err != nil {
		t.Fatalf("second update: %v", err)
	}
	after, _, _ := state.Stream(1, "r1")
	if before.Rate.Cmp(after.Rate) != 0 || before.LastRateChangeAt != after.LastRateChangeAt {
		t.Fatalf("expected unchanged stream on identical repeat update, before=%+v after=%+v", before, after)
	}
}

func TestEstimateMonthlyPureReadView(t *testing.T) {
	a, _ := newTestAllocator()
	if err := a.SetPoolRate(1, big.NewInt(100)); err != nil {
		t.Fatalf("set pool rate: %v", err)
	}
	rate, monthly, shareBps, err := a.EstimateMonthly(1, big.NewInt(25), big.NewInt(100))
	if err != nil {
		t.Fatalf("estimate monthly: %v", err)
	}
	if rate.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("expected rate 25, got %s", rate)
	}
	if shareBps != 2500 {
		t.Fatalf("expected share 2500bps, got %d", shareBps)
	}
	want := new(big.Int).Mul(big.NewInt(25), big.NewInt(SecondsPerMonth))
	if monthly.Cmp(want) != 0 {
		t.Fatalf("expected monthly %s, got %s", want, monthly)
	}
}
