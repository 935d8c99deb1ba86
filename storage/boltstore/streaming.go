package boltstore

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"liquidgov/native/streaming"
)

// StreamingStore adapts a Store to streaming.State.
type StreamingStore struct {
	store *Store
}

// Streaming returns the reward-allocator persistence port backed by store.
func (s *Store) Streaming() *StreamingStore {
	return &StreamingStore{store: s}
}

func (r *StreamingStore) Pool(topic uint64) (streaming.Pool, bool, error) {
	var out streaming.Pool
	var found bool
	err := r.store.db.View(func(tx *bolt.Tx) error {
		ok, err := getJSON(tx, bucketPools, uint64Bytes(topic), &out)
		found = ok
		return err
	})
	return out, found, err
}

func (r *StreamingStore) PutPool(topic uint64, pool streaming.Pool) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketPools, uint64Bytes(topic), pool)
	})
}

func (r *StreamingStore) Stream(topic uint64, recipient string) (streaming.Stream, bool, error) {
	var out streaming.Stream
	var found bool
	err := r.store.db.View(func(tx *bolt.Tx) error {
		ok, err := getJSON(tx, bucketStreams, compositeKey(topicKey(topic), recipient), &out)
		found = ok
		return err
	})
	return out, found, err
}

func (r *StreamingStore) PutStream(topic uint64, recipient string, stream streaming.Stream) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketStreams, compositeKey(topicKey(topic), recipient), stream)
	})
}

func (r *StreamingStore) DeleteStream(topic uint64, recipient string) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStreams).Delete(compositeKey(topicKey(topic), recipient))
	})
}

func (r *StreamingStore) ActiveRecipients(topic uint64) ([]string, error) {
	prefix := compositeKey(topicKey(topic), "")
	var out []string
	err := r.store.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketStreams).Cursor()
		for k, v := cursor.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = cursor.Next() {
			var stream streaming.Stream
			if err := json.Unmarshal(v, &stream); err != nil {
				return err
			}
			if stream.Active {
				out = append(out, string(k[len(prefix):]))
			}
		}
		return nil
	})
	return out, err
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
