package attestation

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"liquidgov/crypto"
)

// digestDomainV1 prefixes every canonical preimage so a future encoding
// revision cannot silently collide with v1 digests.
const digestDomainV1 byte = 0x01

// powerWidth is the fixed byte width reserved per power value in the
// preimage (big-endian, zero-padded, matching a u256).
const powerWidth = 32

// CanonicalDigest computes H(participants, powers) over the fixed-ordering,
// fixed-width preimage shared by producer and verifier: a 1-byte domain
// version, the participant count, each participant's 20-byte address, and
// each power as a 32-byte big-endian integer, participants and powers
// arrays concatenated in the caller-supplied order. Any permutation of the
// inputs yields a different digest.
func CanonicalDigest(participants []string, powers []*big.Int) ([32]byte, error) {
	if len(participants) != len(powers) {
		return [32]byte{}, fmt.Errorf("%w: %d participants, %d powers", ErrShapeMismatch, len(participants), len(powers))
	}
	buf := make([]byte, 0, 1+8+len(participants)*20+len(powers)*powerWidth)
	buf = append(buf, digestDomainV1)
	countPrefix := make([]byte, 8)
	binary.BigEndian.PutUint64(countPrefix, uint64(len(participants)))
	buf = append(buf, countPrefix...)
	for _, p := range participants {
		addr, err := crypto.DecodeAddress(p)
		if err != nil {
			return [32]byte{}, fmt.Errorf("%w: invalid participant %q: %v", ErrInvalidArgument, p, err)
		}
		buf = append(buf, addr.Bytes()...)
	}
	for _, power := range powers {
		if power == nil || power.Sign() < 0 {
			return [32]byte{}, fmt.Errorf("%w: power must be a non-negative integer", ErrInvalidArgument)
		}
		word := make([]byte, powerWidth)
		power.FillBytes(word)
		buf = append(buf, word...)
	}
	return [32]byte(ethcrypto.Keccak256(buf)), nil
}
