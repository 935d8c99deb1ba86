// Package votetally is an illustrative example consumer of the attestation
// verifier's power cache. It is explicitly NOT the proposal/voting ledger
// (that subsystem is an out-of-scope external collaborator); it exists only
// to exercise the power-cache-absent-means-"self-vote"-of-1 fallback rule,
// which belongs to whatever reads the cache, never to the verifier itself.
package votetally

import "math/big"

// PowerReader is the read-only slice of the attestation verifier a
// tallying consumer depends on. get_power's zero-tuple convention (power,
// updated_at, digest all zero) signals "no fresh cache entry"; any other
// updated_at means the cache holds an explicit, possibly-zero, power.
type PowerReader interface {
	GetPower(participant string, topic uint64) (power *big.Int, updatedAt int64, digest [32]byte, err error)
}

// Ballot groups voters by the option they chose. Voters are expected to
// already be resolved to delegation-graph terminals by the caller; this
// package does not walk the delegation graph itself.
type Ballot struct {
	Yes     []string
	No      []string
	Abstain []string
}

// Tally is the summed voting power behind each option.
type Tally struct {
	Yes     *big.Int
	No      *big.Int
	Abstain *big.Int
}

// ComputeTally sums cached power per option, applying the fallback-to-1
// rule for any voter absent from the cache.
func ComputeTally(reader PowerReader, topic uint64, ballot Ballot) (Tally, error) {
	yes, err := sumPower(reader, topic, ballot.Yes)
	if err != nil {
		return Tally{}, err
	}
	no, err := sumPower(reader, topic, ballot.No)
	if err != nil {
		return Tally{}, err
	}
	abstain, err := sumPower(reader, topic, ballot.Abstain)
	if err != nil {
		return Tally{}, err
	}
	return Tally{Yes: yes, No: no, Abstain: abstain}, nil
}

func sumPower(reader PowerReader, topic uint64, voters []string) (*big.Int, error) {
	total := big.NewInt(0)
	for _, voter := range voters {
		power, updatedAt, _, err := reader.GetPower(voter, topic)
		if err != nil {
			return nil, err
		}
		if updatedAt == 0 {
			// No fresh cache entry: fall back to the voter's own unit of
			// power, per spec.md's "self-vote" consumer rule.
			power = big.NewInt(1)
		}
		total.Add(total, power)
	}
	return total, nil
}
