// Package attestation implements the M-of-N attestation verifier: the sole
// writer of the authoritative per-topic power cache, gated on a quorum of
// distinct active operator signatures over a canonical result digest.
package attestation

import "math/big"

// MaxHeightLag bounds how stale a reference height may be relative to the
// current logical clock height before a submission is rejected.
const MaxHeightLag = 100

// DefaultThreshold is the production M-of-N signer threshold.
const DefaultThreshold = 3

// TestThreshold is the signer threshold used by test builds.
const TestThreshold = 1

// SignatureScheme names the cryptographic scheme a signature was produced
// under. Only secp256k1 is implemented; the field exists so a future
// scheme can be added without breaking the wire shape.
type SignatureScheme string

// SchemeSecp256k1 recovers the signer's address via ECDSA public-key
// recovery.
const SchemeSecp256k1 SignatureScheme = "secp256k1"

// Signature is one operator's signature over a digest.
type Signature struct {
	Scheme SignatureScheme
	Bytes  []byte
}

// Record is a proposed attestation awaiting verification.
type Record struct {
	ResultDigest    [32]byte
	Topic           uint64
	ReferenceHeight uint64
	Nonce           [32]byte
	Signatures      []Signature
}

// PowerEntry is one (topic, participant) power cache row.
type PowerEntry struct {
	Power      *big.Int
	UpdatedAt  int64
	Provenance [32]byte
	Present    bool
}

// Operator is one registered attestation-signing operator.
type Operator struct {
	ID                string
	PublicKey         []byte
	Active            bool
	AcceptanceCounter uint64
	LastAcceptedAt    int64
}
