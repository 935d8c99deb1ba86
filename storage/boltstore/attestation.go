package boltstore

import (
	"encoding/json"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	bolt "go.etcd.io/bbolt"

	"liquidgov/native/attestation"
)

var heightKey = []byte("height")

// AttestationStore adapts a Store to attestation.State.
type AttestationStore struct {
	store *Store
}

// Attestation returns the attestation-verifier persistence port backed by store.
func (s *Store) Attestation() *AttestationStore {
	return &AttestationStore{store: s}
}

func (a *AttestationStore) Height() (uint64, error) {
	var height uint64
	err := a.store.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketHeight).Get(heightKey)
		if raw != nil {
			height = decodeUint64(raw)
		}
		return nil
	})
	return height, err
}

// SetHeight records the current logical clock height, advanced by whatever
// external chain or block-height source the deployment wires in; the
// verifier only ever reads it for freshness checks.
func (a *AttestationStore) SetHeight(height uint64) error {
	return a.store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHeight).Put(heightKey, uint64Bytes(height))
	})
}

func (a *AttestationStore) NonceUsed(nonce [32]byte) (bool, error) {
	var used bool
	err := a.store.db.View(func(tx *bolt.Tx) error {
		used = tx.Bucket(bucketNonces).Get(nonce[:]) != nil
		return nil
	})
	return used, err
}

func (a *AttestationStore) MarkNonceUsed(nonce [32]byte) error {
	return a.store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNonces).Put(nonce[:], []byte{1})
	})
}

func (a *AttestationStore) Operator(id string) (attestation.Operator, bool, error) {
	var out attestation.Operator
	var found bool
	err := a.store.db.View(func(tx *bolt.Tx) error {
		ok, err := getJSON(tx, bucketOperators, []byte(id), &out)
		found = ok
		return err
	})
	return out, found, err
}

// PutOperator stores the operator and maintains the address -> id index
// derived from its public key, a secondary-index-on-write convention.
func (a *AttestationStore) PutOperator(op attestation.Operator) error {
	return a.store.db.Update(func(tx *bolt.Tx) error {
		var previous attestation.Operator
		if ok, err := getJSON(tx, bucketOperators, []byte(op.ID), &previous); err != nil {
			return err
		} else if ok {
			if addr, err := operatorAddress(previous.PublicKey); err == nil {
				if err := tx.Bucket(bucketOperatorAddress).Delete(addr); err != nil {
					return err
				}
			}
		}
		if err := putJSON(tx, bucketOperators, []byte(op.ID), op); err != nil {
			return err
		}
		addr, err := operatorAddress(op.PublicKey)
		if err != nil {
			return fmt.Errorf("boltstore: operator %q public key: %w", op.ID, err)
		}
		return tx.Bucket(bucketOperatorAddress).Put(addr, []byte(op.ID))
	})
}

func (a *AttestationStore) DeleteOperator(id string) error {
	return a.store.db.Update(func(tx *bolt.Tx) error {
		var op attestation.Operator
		ok, err := getJSON(tx, bucketOperators, []byte(id), &op)
		if err != nil {
			return err
		}
		if ok {
			if addr, err := operatorAddress(op.PublicKey); err == nil {
				if err := tx.Bucket(bucketOperatorAddress).Delete(addr); err != nil {
					return err
				}
			}
		}
		return tx.Bucket(bucketOperators).Delete([]byte(id))
	})
}

func (a *AttestationStore) ActiveOperatorCount() (int, error) {
	count := 0
	err := a.store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOperators).ForEach(func(_, v []byte) error {
			var op attestation.Operator
			if err := json.Unmarshal(v, &op); err != nil {
				return err
			}
			if op.Active {
				count++
			}
			return nil
		})
	})
	return count, err
}

func (a *AttestationStore) OperatorByAddress(addr []byte) (attestation.Operator, bool, error) {
	var out attestation.Operator
	var found bool
	err := a.store.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketOperatorAddress).Get(addr)
		if id == nil {
			return nil
		}
		ok, err := getJSON(tx, bucketOperators, id, &out)
		found = ok
		return err
	})
	return out, found, err
}

func (a *AttestationStore) PowerEntry(topic uint64, participant string) (attestation.PowerEntry, error) {
	var out attestation.PowerEntry
	err := a.store.db.View(func(tx *bolt.Tx) error {
		_, err := getJSON(tx, bucketPower, compositeKey(topicKey(topic), participant), &out)
		return err
	})
	return out, err
}

func (a *AttestationStore) PutPowerEntry(topic uint64, participant string, entry attestation.PowerEntry) error {
	return a.store.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketPower, compositeKey(topicKey(topic), participant), entry)
	})
}

func operatorAddress(publicKey []byte) ([]byte, error) {
	pub, err := ethcrypto.UnmarshalPubkey(publicKey)
	if err != nil {
		return nil, err
	}
	addr := ethcrypto.PubkeyToAddress(*pub)
	return addr.Bytes(), nil
}
