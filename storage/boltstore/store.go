// Package boltstore persists the delegation graph, attestation verifier,
// and reward allocator state in a single bbolt database, one bucket per
// entity, one transaction per adapter call, following a bucket-per-entity,
// mutate-with-closure store layout.
package boltstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketTopics        = []byte("dg_topics")
	bucketEdges         = []byte("dg_edges")
	bucketDeadEnds      = []byte("dg_deadends")
	bucketParticipation = []byte("dg_participation")
	bucketTopicSeq      = []byte("dg_topic_seq")
	bucketDGAudit       = []byte("dg_audit")

	bucketNonces          = []byte("av_nonces")
	bucketOperators       = []byte("av_operators")
	bucketOperatorAddress = []byte("av_operator_by_address")
	bucketPower           = []byte("av_power")
	bucketHeight          = []byte("av_height")

	bucketPools   = []byte("ra_pools")
	bucketStreams = []byte("ra_streams")

	allBuckets = [][]byte{
		bucketTopics, bucketEdges, bucketDeadEnds, bucketParticipation, bucketTopicSeq, bucketDGAudit,
		bucketNonces, bucketOperators, bucketOperatorAddress, bucketPower, bucketHeight,
		bucketPools, bucketStreams,
	}
)

// Store is the bbolt-backed persistence layer shared by the delegation,
// attestation, and streaming engines. Each engine is handed a thin adapter
// (DelegationStore, AttestationStore, StreamingStore) over the same
// underlying database. Each adapter method commits in its own bbolt
// transaction; an engine operation that makes several calls (Delegate's
// edge, participation and audit writes, for example) is not committed as
// one transaction, so a failing later call leaves the earlier writes in
// place.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt database at path and ensures
// every bucket this package uses exists.
func Open(path string, options *bolt.Options) (*Store, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bbolt database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func compositeKey(parts ...string) []byte {
	out := make([]byte, 0, 32)
	for i, p := range parts {
		if i > 0 {
			out = append(out, 0x00)
		}
		out = append(out, []byte(p)...)
	}
	return out
}

func topicKey(topic uint64) string {
	return strconv.FormatUint(topic, 10)
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func getJSON(tx *bolt.Tx, bucket []byte, key []byte, out interface{}) (bool, error) {
	raw := tx.Bucket(bucket).Get(key)
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("boltstore: decode %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

func putJSON(tx *bolt.Tx, bucket []byte, key []byte, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("boltstore: encode %s/%s: %w", bucket, key, err)
	}
	return tx.Bucket(bucket).Put(key, encoded)
}
