package attestation

import "math/big"

// RewardAllocator is the downstream collaborator AV invokes on every
// successful power-cache update. Its failures are swallowed by AV per
// spec.md's AV -> RA contract.
type RewardAllocator interface {
	UpdateFlows(topic uint64, recipients []string, powers []*big.Int, totalPower *big.Int) error
}

// State is the narrow persistence port the verifier owns.
type State interface {
	Height() (uint64, error)

	NonceUsed(nonce [32]byte) (bool, error)
	MarkNonceUsed(nonce [32]byte) error

	Operator(id string) (Operator, bool, error)
	PutOperator(Operator) error
	DeleteOperator(id string) error
	ActiveOperatorCount() (int, error)
	OperatorByAddress(addr []byte) (Operator, bool, error)

	PowerEntry(topic uint64, participant string) (PowerEntry, error)
	PutPowerEntry(topic uint64, participant string, entry PowerEntry) error
}
