package boltstore

import (
	"math/big"
	"path/filepath"
	"testing"

	"liquidgov/native/attestation"
	"liquidgov/native/delegation"
	"liquidgov/native/streaming"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "liquidgov.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDelegationStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	dg := store.Delegation()

	id, err := dg.NextTopicID()
	if err != nil {
		t.Fatalf("next topic id: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first topic id 1, got %d", id)
	}
	topic := delegation.Topic{ID: id, Name: "governance", ProposalThreshold: 10, Active: true, Admin: "admin"}
	if err := dg.PutTopic(topic); err != nil {
		t.Fatalf("put topic: %v", err)
	}
	got, ok, err := dg.Topic(id)
	if err != nil || !ok {
		t.Fatalf("topic roundtrip: ok=%v err=%v", ok, err)
	}
	if got != topic {
		t.Fatalf("topic mismatch: got %+v want %+v", got, topic)
	}

	if err := dg.PutEdge(id, "A", "B"); err != nil {
		t.Fatalf("put edge: %v", err)
	}
	target, ok, err := dg.Edge(id, "A")
	if err != nil || !ok || target != "B" {
		t.Fatalf("edge roundtrip: target=%q ok=%v err=%v", target, ok, err)
	}
	if err := dg.AddParticipation(id, "A"); err != nil {
		t.Fatalf("add participation: %v", err)
	}
	if err := dg.AddParticipation(id, "A"); err != nil {
		t.Fatalf("add participation twice: %v", err)
	}
	participants, err := dg.Participation(id)
	if err != nil {
		t.Fatalf("participation: %v", err)
	}
	if len(participants) != 1 || participants[0] != "A" {
		t.Fatalf("expected participation index [A] with no duplicate, got %v", participants)
	}

	if err := dg.SetDeadEnd(id, "B", true); err != nil {
		t.Fatalf("set dead end: %v", err)
	}
	flag, err := dg.DeadEnd(id, "B")
	if err != nil || !flag {
		t.Fatalf("expected B marked dead end, flag=%v err=%v", flag, err)
	}
	if err := dg.SetDeadEnd(id, "B", false); err != nil {
		t.Fatalf("clear dead end: %v", err)
	}
	flag, err = dg.DeadEnd(id, "B")
	if err != nil || flag {
		t.Fatalf("expected B no longer dead end, flag=%v err=%v", flag, err)
	}

	if err := dg.DeleteEdge(id, "A"); err != nil {
		t.Fatalf("delete edge: %v", err)
	}
	if _, ok, err := dg.Edge(id, "A"); err != nil || ok {
		t.Fatalf("expected edge gone, ok=%v err=%v", ok, err)
	}

	if err := dg.AppendAudit(delegation.AuditRecord{Time: 1, Actor: "admin", Topic: id, Action: "create_topic"}); err != nil {
		t.Fatalf("append audit: %v", err)
	}
}

func TestAttestationStoreOperatorAddressIndex(t *testing.T) {
	store := openTestStore(t)
	av := store.Attestation()

	key, err := newTestKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if err := av.PutOperator(attestation.Operator{ID: "op-1", PublicKey: key.pub, Active: true}); err != nil {
		t.Fatalf("put operator: %v", err)
	}
	op, ok, err := av.OperatorByAddress(key.addr)
	if err != nil || !ok || op.ID != "op-1" {
		t.Fatalf("operator by address: op=%+v ok=%v err=%v", op, ok, err)
	}
	count, err := av.ActiveOperatorCount()
	if err != nil || count != 1 {
		t.Fatalf("active operator count: count=%d err=%v", count, err)
	}

	if err := av.DeleteOperator("op-1"); err != nil {
		t.Fatalf("delete operator: %v", err)
	}
	if _, ok, err := av.OperatorByAddress(key.addr); err != nil || ok {
		t.Fatalf("expected address index cleared, ok=%v err=%v", ok, err)
	}

	var nonce [32]byte
	nonce[0] = 7
	used, err := av.NonceUsed(nonce)
	if err != nil || used {
		t.Fatalf("fresh nonce should be unused: used=%v err=%v", used, err)
	}
	if err := av.MarkNonceUsed(nonce); err != nil {
		t.Fatalf("mark nonce used: %v", err)
	}
	used, err = av.NonceUsed(nonce)
	if err != nil || !used {
		t.Fatalf("nonce should now be used: used=%v err=%v", used, err)
	}

	if err := av.SetHeight(42); err != nil {
		t.Fatalf("set height: %v", err)
	}
	height, err := av.Height()
	if err != nil || height != 42 {
		t.Fatalf("height roundtrip: height=%d err=%v", height, err)
	}

	entry := attestation.PowerEntry{Power: big.NewInt(9), UpdatedAt: 100, Present: true}
	if err := av.PutPowerEntry(1, "C", entry); err != nil {
		t.Fatalf("put power entry: %v", err)
	}
	got, err := av.PowerEntry(1, "C")
	if err != nil || got.Power.Cmp(big.NewInt(9)) != 0 || !got.Present {
		t.Fatalf("power entry roundtrip: got=%+v err=%v", got, err)
	}
}

func TestStreamingStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ra := store.Streaming()

	if err := ra.PutPool(1, streaming.Pool{Rate: big.NewInt(100)}); err != nil {
		t.Fatalf("put pool: %v", err)
	}
	pool, ok, err := ra.Pool(1)
	if err != nil || !ok || pool.Rate.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("pool roundtrip: pool=%+v ok=%v err=%v", pool, ok, err)
	}

	active := streaming.Stream{Rate: big.NewInt(50), AccruedTotal: big.NewInt(0), LastRateChangeAt: 10, Active: true}
	inactive := streaming.Stream{Rate: big.NewInt(0), AccruedTotal: big.NewInt(5), LastRateChangeAt: 10, Active: false}
	if err := ra.PutStream(1, "r1", active); err != nil {
		t.Fatalf("put stream r1: %v", err)
	}
	if err := ra.PutStream(1, "r2", inactive); err != nil {
		t.Fatalf("put stream r2: %v", err)
	}
	recipients, err := ra.ActiveRecipients(1)
	if err != nil {
		t.Fatalf("active recipients: %v", err)
	}
	if len(recipients) != 1 || recipients[0] != "r1" {
		t.Fatalf("expected only r1 active, got %v", recipients)
	}

	if err := ra.DeleteStream(1, "r1"); err != nil {
		t.Fatalf("delete stream: %v", err)
	}
	if _, ok, err := ra.Stream(1, "r1"); err != nil || ok {
		t.Fatalf("expected r1 gone, ok=%v err=%v", ok, err)
	}
}
