package memory

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

var eventsBucket = []byte("events")

// BoltLog persists events to a BoltDB file on disk. Keys are big-endian
// sequence numbers, so cursor order is sequence order; the bucket's own
// sequence counter assigns numbers inside the write transaction, which
// makes appends atomic and gap-free without extra locking.
type BoltLog struct {
	db *bolt.DB
}

// NewBoltLog opens (or creates) a BoltDB event log at path and verifies
// the recovered records. A log that cannot be decoded, or whose
// sequence numbers are not contiguous, returns ErrCorrupted.
func NewBoltLog(path string) (*BoltLog, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(eventsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	l := &BoltLog{db: db}
	if err := l.verify(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// verify scans the recovered log once at startup. Every record must
// decode and the sequence numbers must run 1..N without gaps.
func (l *BoltLog) verify() error {
	return l.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(eventsBucket)
		c := bkt.Cursor()

		var expect uint64
		for k, v := c.First(); k != nil; k, v = c.Next() {
			expect++
			var ev v1alpha1.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("%w: undecodable record at key %x: %v", ErrCorrupted, k, err)
			}
			if seq := binary.BigEndian.Uint64(k); seq != expect || ev.Sequence != expect {
				return fmt.Errorf("%w: expected sequence %d, found key=%d event=%d", ErrCorrupted, expect, seq, ev.Sequence)
			}
		}
		if expect != bkt.Sequence() {
			return fmt.Errorf("%w: sequence counter %d does not match %d stored events", ErrCorrupted, bkt.Sequence(), expect)
		}
		return nil
	})
}

func (l *BoltLog) Append(ev *v1alpha1.Event) (uint64, error) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	var seq uint64
	err := l.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(eventsBucket)

		n, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		ev.Sequence = n

		raw, err := json.Marshal(ev)
		if err != nil {
			return err
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, n)
		if err := bkt.Put(key, raw); err != nil {
			return err
		}
		seq = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}
	return seq, nil
}

func (l *BoltLog) All() ([]v1alpha1.Event, error) {
	return l.scan(func(v1alpha1.Event) bool { return true })
}

func (l *BoltLog) ByCategory(cat v1alpha1.Category) ([]v1alpha1.Event, error) {
	return l.scan(func(ev v1alpha1.Event) bool { return ev.Category == cat })
}

func (l *BoltLog) Stats() (map[v1alpha1.Category]int, error) {
	stats := newStats()
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(eventsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var ev v1alpha1.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupted, err)
			}
			if ev.Role == v1alpha1.RoleToolCall {
				stats[ev.Category]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Clear drops the bucket and recreates it, which also resets the
// bucket's sequence counter. The deletion commits before Clear returns,
// so a crash immediately after cannot resurrect old events.
func (l *BoltLog) Clear() error {
	return l.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(eventsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(eventsBucket)
		return err
	})
}

func (l *BoltLog) Close() error {
	return l.db.Close()
}

// scan iterates the log in key order, collecting events that pass keep.
// The whole read happens inside one View transaction, so callers see a
// consistent snapshot even while appends are in flight.
func (l *BoltLog) scan(keep func(v1alpha1.Event) bool) ([]v1alpha1.Event, error) {
	var events []v1alpha1.Event
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(eventsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var ev v1alpha1.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupted, err)
			}
			if keep(ev) {
				events = append(events, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
