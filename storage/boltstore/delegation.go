package boltstore

import (
	"liquidgov/native/delegation"

	bolt "go.etcd.io/bbolt"
)

// DelegationStore adapts a Store to delegation.State.
type DelegationStore struct {
	store *Store
}

// Delegation returns the delegation-graph persistence port backed by store.
func (s *Store) Delegation() *DelegationStore {
	return &DelegationStore{store: s}
}

func (d *DelegationStore) Topic(topic uint64) (delegation.Topic, bool, error) {
	var out delegation.Topic
	var found bool
	err := d.store.db.View(func(tx *bolt.Tx) error {
		ok, err := getJSON(tx, bucketTopics, uint64Bytes(topic), &out)
		found = ok
		return err
	})
	return out, found, err
}

func (d *DelegationStore) PutTopic(topic delegation.Topic) error {
	return d.store.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketTopics, uint64Bytes(topic.ID), topic)
	})
}

func (d *DelegationStore) NextTopicID() (uint64, error) {
	var id uint64
	err := d.store.db.Update(func(tx *bolt.Tx) error {
		seq, err := tx.Bucket(bucketTopicSeq).NextSequence()
		if err != nil {
			return err
		}
		id = seq
		return nil
	})
	return id, err
}

func (d *DelegationStore) Edge(topic uint64, participant string) (string, bool, error) {
	var target string
	var found bool
	err := d.store.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketEdges).Get(compositeKey(topicKey(topic), participant))
		if raw == nil {
			return nil
		}
		found = true
		target = string(raw)
		return nil
	})
	return target, found, err
}

func (d *DelegationStore) PutEdge(topic uint64, participant, target string) error {
	return d.store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEdges).Put(compositeKey(topicKey(topic), participant), []byte(target))
	})
}

func (d *DelegationStore) DeleteEdge(topic uint64, participant string) error {
	return d.store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEdges).Delete(compositeKey(topicKey(topic), participant))
	})
}

func (d *DelegationStore) DeadEnd(topic uint64, participant string) (bool, error) {
	var flag bool
	err := d.store.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketDeadEnds).Get(compositeKey(topicKey(topic), participant))
		flag = len(raw) == 1 && raw[0] == 1
		return nil
	})
	return flag, err
}

func (d *DelegationStore) SetDeadEnd(topic uint64, participant string, flag bool) error {
	return d.store.db.Update(func(tx *bolt.Tx) error {
		key := compositeKey(topicKey(topic), participant)
		if !flag {
			return tx.Bucket(bucketDeadEnds).Delete(key)
		}
		return tx.Bucket(bucketDeadEnds).Put(key, []byte{1})
	})
}

func (d *DelegationStore) Participation(topic uint64) ([]string, error) {
	var out []string
	err := d.store.db.View(func(tx *bolt.Tx) error {
		_, err := getJSON(tx, bucketParticipation, uint64Bytes(topic), &out)
		return err
	})
	return out, err
}

func (d *DelegationStore) AddParticipation(topic uint64, participant string) error {
	return d.store.db.Update(func(tx *bolt.Tx) error {
		var list []string
		if _, err := getJSON(tx, bucketParticipation, uint64Bytes(topic), &list); err != nil {
			return err
		}
		for _, p := range list {
			if p == participant {
				return nil
			}
		}
		list = append(list, participant)
		return putJSON(tx, bucketParticipation, uint64Bytes(topic), list)
	})
}

func (d *DelegationStore) AppendAudit(record delegation.AuditRecord) error {
	return d.store.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketDGAudit)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return putJSON(tx, bucketDGAudit, uint64Bytes(seq), record)
	})
}
