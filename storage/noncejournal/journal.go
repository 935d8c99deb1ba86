// Package noncejournal is an optional, append-friendly companion to the
// attestation verifier's nonce bucket: a time-indexed record of observed
// nonces that a deployment can prune by age, for operators who want to
// bound disk growth without bounding the bbolt nonce set itself (which
// never forgets a nonce it has seen).
package noncejournal

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const observedKeyPrefix = "observed:"

// Journal records nonce observations keyed by observation time so a range
// of stale entries can be iterated and pruned without a full table scan.
type Journal struct {
	db *leveldb.DB
}

// Open opens (or creates) the journal at path.
func Open(path string) (*Journal, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("nonce journal path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve nonce journal path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open nonce journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends an observation for nonce at observedAt. Recording the same
// nonce twice simply adds a second index entry; the journal is a log, not a
// dedup index (MarkNonceUsed in the canonical store already rejects
// replays before a second Record call could ever happen).
func (j *Journal) Record(topic uint64, nonce [32]byte, observedAt time.Time) error {
	if j == nil || j.db == nil {
		return fmt.Errorf("nonce journal not configured")
	}
	key := []byte(observedKey(observedAt.UTC().UnixNano(), topic, nonce))
	return j.db.Put(key, nil, nil)
}

// PruneOlderThan deletes every observation recorded before cutoff,
// returning the number of entries removed.
func (j *Journal) PruneOlderThan(cutoff time.Time) (int, error) {
	if j == nil || j.db == nil {
		return 0, fmt.Errorf("nonce journal not configured")
	}
	cutoffKey := []byte(fmt.Sprintf("%s%020d:", observedKeyPrefix, cutoff.UTC().UnixNano()))
	iter := j.db.NewIterator(util.BytesPrefix([]byte(observedKeyPrefix)), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	removed := 0
	for iter.Next() {
		if compareKeys(iter.Key(), cutoffKey) >= 0 {
			break
		}
		batch.Delete(append([]byte(nil), iter.Key()...))
		removed++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("iterate nonce journal: %w", err)
	}
	if batch.Len() > 0 {
		if err := j.db.Write(batch, nil); err != nil {
			return 0, fmt.Errorf("prune nonce journal: %w", err)
		}
	}
	return removed, nil
}

// CountSince reports how many observations were recorded at or after
// cutoff, primarily for operator diagnostics.
func (j *Journal) CountSince(cutoff time.Time) (int, error) {
	if j == nil || j.db == nil {
		return 0, fmt.Errorf("nonce journal not configured")
	}
	cutoffKey := []byte(fmt.Sprintf("%s%020d:", observedKeyPrefix, cutoff.UTC().UnixNano()))
	iter := j.db.NewIterator(util.BytesPrefix([]byte(observedKeyPrefix)), nil)
	defer iter.Release()
	count := 0
	for ok := iter.Seek(cutoffKey); ok; ok = iter.Next() {
		count++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("iterate nonce journal: %w", err)
	}
	return count, nil
}

func observedKey(nanos int64, topic uint64, nonce [32]byte) string {
	return fmt.Sprintf("%s%020d:%d:%x", observedKeyPrefix, nanos, topic, nonce)
}

func compareKeys(a, b []byte) int {
	min := len(a)
	if len(b) < min {
		min = len(b)
	}
	for i := 0; i < min; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
