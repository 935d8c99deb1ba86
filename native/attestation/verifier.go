package attestation

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"liquidgov/core/events"
	"liquidgov/observability/logging"
	"liquidgov/observability/metrics"
)

// NonceRecorder is an optional, time-indexed companion to the canonical
// nonce store, for deployments that want to prune old nonce observations
// by age. A nil recorder is never called.
type NonceRecorder interface {
	Record(topic uint64, nonce [32]byte, observedAt time.Time) error
}

// Verifier is the sole writer of the power cache and the sole informer of
// the reward allocator.
type Verifier struct {
	state       State
	emitter     events.Emitter
	nowFn       func() time.Time
	logger      *slog.Logger
	threshold   int
	allocator   RewardAllocator
	telemetry   *metrics.LiquidGov
	nonceRecord NonceRecorder
}

// NewVerifier constructs a Verifier with the production threshold (3). Use
// SetThreshold to select the test threshold (1) in test builds.
func NewVerifier(state State) *Verifier {
	return &Verifier{
		state:     state,
		emitter:   events.NoopEmitter{},
		nowFn:     time.Now,
		threshold: DefaultThreshold,
		telemetry: metrics.LiquidGovMetrics(),
	}
}

// SetEmitter wires the event sink. A nil emitter is ignored.
func (v *Verifier) SetEmitter(emitter events.Emitter) {
	if emitter != nil {
		v.emitter = emitter
	}
}

// SetNowFunc overrides the clock, primarily for deterministic tests.
func (v *Verifier) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		v.nowFn = fn
	}
}

// SetLogger wires a structured logger; Warn is used when the swallowed
// RA hand-off fails.
func (v *Verifier) SetLogger(logger *slog.Logger) {
	v.logger = logger
}

// SetThreshold overrides M, the distinct-active-signer requirement.
func (v *Verifier) SetThreshold(m int) {
	if m > 0 {
		v.threshold = m
	}
}

// SetRewardAllocator wires the downstream recipient of update_flows calls.
// Optional: AV functions correctly with no allocator wired, simply skipping
// the hand-off.
func (v *Verifier) SetRewardAllocator(ra RewardAllocator) {
	v.allocator = ra
}

// SetNonceJournal wires an optional time-indexed nonce recorder. A failure
// here is logged and swallowed, mirroring the RA hand-off contract: the
// journal is a pruning aid, never the source of truth for replay rejection.
func (v *Verifier) SetNonceJournal(recorder NonceRecorder) {
	v.nonceRecord = recorder
}

func (v *Verifier) emit(ev events.Event) {
	if ev == nil {
		return
	}
	v.emitter.Emit(ev)
}

// SubmitAttestation verifies record against participants/powers and, on
// success, updates the power cache for topic (one store write per entry,
// not a single transaction) and hands the
// distribution to the wired reward allocator. A failure inside the
// allocator is logged but never unwinds the cache write.
func (v *Verifier) SubmitAttestation(record Record, participants []string, powers []*big.Int) error {
	requestID := uuid.NewString()
	v.emit(events.AttestationSubmitted{RequestID: requestID, Topic: record.Topic, Nonce: fmt.Sprintf("%x", record.Nonce)}.Event())

	if err := v.checkPreconditions(record, participants, powers); err != nil {
		v.emit(events.AttestationRejected{RequestID: requestID, Topic: record.Topic, Reason: err.Error()}.Event())
		v.telemetry.ObserveAttestationRejected(attestationRejectionReason(err))
		return err
	}

	signers, err := v.recoverDistinctActiveSigners(record)
	if err != nil {
		v.emit(events.AttestationRejected{RequestID: requestID, Topic: record.Topic, Reason: err.Error()}.Event())
		v.telemetry.ObserveAttestationRejected(attestationRejectionReason(err))
		return err
	}

	if err := v.state.MarkNonceUsed(record.Nonce); err != nil {
		return err
	}
	now := v.nowFn()
	if v.nonceRecord != nil {
		if err := v.nonceRecord.Record(record.Topic, record.Nonce, now); err != nil && v.logger != nil {
			v.logger.Warn("nonce journal record failed", "topic", record.Topic, "error", err)
		}
	}
	for i, participant := range participants {
		entry := PowerEntry{
			Power:      new(big.Int).Set(powers[i]),
			UpdatedAt:  now.Unix(),
			Provenance: record.ResultDigest,
			Present:    true,
		}
		if err := v.state.PutPowerEntry(record.Topic, participant, entry); err != nil {
			return err
		}
	}
	for _, signerID := range signers {
		op, ok, err := v.state.Operator(signerID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		op.AcceptanceCounter++
		op.LastAcceptedAt = now.Unix()
		if err := v.state.PutOperator(op); err != nil {
			return err
		}
	}

	digestHex := fmt.Sprintf("%x", record.ResultDigest)
	v.emit(events.AttestationAccepted{RequestID: requestID, Topic: record.Topic, Digest: digestHex, Signers: len(signers)}.Event())
	v.emit(events.PowerUpdated{Topic: record.Topic, Digest: digestHex, Time: now.Unix()}.Event())
	v.telemetry.ObserveAttestationAccepted(record.Topic)
	for _, signerID := range signers {
		v.telemetry.ObserveOperatorAcceptance(signerID)
	}
	if active, err := v.state.ActiveOperatorCount(); err == nil {
		v.telemetry.SetActiveOperators(active)
	}

	if v.allocator != nil {
		total := new(big.Int)
		for _, p := range powers {
			total.Add(total, p)
		}
		if err := v.allocator.UpdateFlows(record.Topic, participants, powers, total); err != nil {
			if v.logger != nil {
				v.logger.Warn("reward allocator update_flows failed; power cache already committed",
					slog.Uint64("topic", record.Topic), slog.Any("error", err))
			}
		}
	}
	return nil
}

func (v *Verifier) checkPreconditions(record Record, participants []string, powers []*big.Int) error {
	if len(participants) != len(powers) {
		return &ShapeMismatchError{Participants: len(participants), Powers: len(powers)}
	}
	used, err := v.state.NonceUsed(record.Nonce)
	if err != nil {
		return err
	}
	if used {
		return ErrNonceUsed
	}
	height, err := v.state.Height()
	if err != nil {
		return err
	}
	if record.ReferenceHeight+MaxHeightLag < height {
		return ErrStaleReference
	}
	digest, err := CanonicalDigest(participants, powers)
	if err != nil {
		return err
	}
	if digest != record.ResultDigest {
		return ErrDigestMismatch
	}
	return nil
}

// attestationRejectionReason maps a verifier error to a stable
// low-cardinality label for metrics.
func attestationRejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrNonceUsed):
		return "nonce_used"
	case errors.Is(err, ErrStaleReference):
		return "stale_reference"
	case errors.Is(err, ErrDigestMismatch):
		return "digest_mismatch"
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, ErrInsufficientSignatures):
		return "insufficient_signatures"
	case errors.Is(err, ErrInvalidSigner):
		return "invalid_signer"
	case errors.Is(err, ErrDuplicateSigner):
		return "duplicate_signer"
	default:
		return "other"
	}
}

// ShapeMismatchError carries the mismatched lengths for diagnostics.
type ShapeMismatchError struct {
	Participants int
	Powers       int
}

func (e *ShapeMismatchError) Error() string { return ErrShapeMismatch.Error() }
func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// recoverDistinctActiveSigners verifies every signature independently,
// requiring each to recover to a distinct, known, active operator. Any
// duplicate signer fails the whole attestation, making authoring mistakes
// loud rather than silently de-duplicating them.
func (v *Verifier) recoverDistinctActiveSigners(record Record) ([]string, error) {
	digest := record.ResultDigest
	seen := make(map[string]bool, len(record.Signatures))
	signers := make([]string, 0, len(record.Signatures))
	for _, sig := range record.Signatures {
		if sig.Scheme != SchemeSecp256k1 {
			return nil, fmt.Errorf("%w: unsupported signature scheme %q", ErrInvalidSigner, sig.Scheme)
		}
		pub, err := ethcrypto.SigToPub(digest[:], sig.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSigner, err)
		}
		addr := ethcrypto.PubkeyToAddress(*pub)
		op, ok, err := v.state.OperatorByAddress(addr.Bytes())
		if err != nil {
			return nil, err
		}
		if !ok || !op.Active {
			return nil, ErrInvalidSigner
		}
		if seen[op.ID] {
			return nil, ErrDuplicateSigner
		}
		seen[op.ID] = true
		signers = append(signers, op.ID)
	}
	if len(signers) < v.threshold {
		return nil, &InsufficientSignaturesError{Have: len(signers), Need: v.threshold}
	}
	return signers, nil
}

// GetPower returns the cached power for (participant, topic), and the
// zero-tuple when no entry exists.
func (v *Verifier) GetPower(participant string, topic uint64) (*big.Int, int64, [32]byte, error) {
	entry, err := v.state.PowerEntry(topic, participant)
	if err != nil {
		return nil, 0, [32]byte{}, err
	}
	if !entry.Present {
		return big.NewInt(0), 0, [32]byte{}, nil
	}
	return entry.Power, entry.UpdatedAt, entry.Provenance, nil
}

// RegisterOperator adds a new operator to the registry. Administrator only.
func (v *Verifier) RegisterOperator(id string, publicKey []byte) error {
	if id == "" || len(publicKey) == 0 {
		return fmt.Errorf("%w: operator id and public key are required", ErrInvalidArgument)
	}
	_, ok, err := v.state.Operator(id)
	if err != nil {
		return err
	}
	if ok {
		return ErrOperatorExists
	}
	if err := v.state.PutOperator(Operator{ID: id, PublicKey: publicKey, Active: true}); err != nil {
		return err
	}
	v.emit(events.OperatorAdded{OperatorID: id}.Event())
	if active, err := v.state.ActiveOperatorCount(); err == nil {
		v.telemetry.SetActiveOperators(active)
	}
	if v.logger != nil {
		v.logger.Info("operator registered", "operator_id", id,
			logging.MaskField("public_key", hex.EncodeToString(publicKey)))
	}
	return nil
}

// DeregisterOperator removes an operator, refusing the change if it would
// drop the active count below the current threshold.
func (v *Verifier) DeregisterOperator(id string) error {
	op, ok, err := v.state.Operator(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOperatorMissing
	}
	if op.Active {
		active, err := v.state.ActiveOperatorCount()
		if err != nil {
			return err
		}
		if active-1 < v.threshold {
			return ErrWouldBreakQuorum
		}
	}
	if err := v.state.DeleteOperator(id); err != nil {
		return err
	}
	v.emit(events.OperatorRemoved{OperatorID: id}.Event())
	if active, err := v.state.ActiveOperatorCount(); err == nil {
		v.telemetry.SetActiveOperators(active)
	}
	return nil
}

// OperatorHealth reports an operator's acceptance counter, active flag, and
// last-accepted timestamp as a read view over the per-operator counters.
func (v *Verifier) OperatorHealth(id string) (count uint64, active bool, lastAcceptedAt int64, err error) {
	op, ok, err := v.state.Operator(id)
	if err != nil {
		return 0, false, 0, err
	}
	if !ok {
		return 0, false, 0, ErrOperatorMissing
	}
	return op.AcceptanceCounter, op.Active, op.LastAcceptedAt, nil
}
