// Package regressions persists falsified check sequences, so past failures replay as fixed test cases in later
// runs. Records live in a bolt database beside the project, bucketed per contract and fuzzing mode, and serialize
// as CBOR.
package regressions

import (
	"encoding/binary"
	"time"

	"github.com/fxamacker/cbor"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// RecordedCall is one replayable call of a falsifying sequence.
type RecordedCall struct {
	// Function is the called function's name.
	Function string

	// Caller is the simulated sender principal.
	Caller string

	// Arguments holds the call's argument values rendered as source literals.
	Arguments []string

	// BlockAdvance is the number of blocks mined after the trial's check, zero for none.
	BlockAdvance uint64
}

// Record is one persisted falsification: the check that failed and the shrunk call sequence reproducing it.
type Record struct {
	// ID uniquely identifies the record.
	ID string

	// ContractID is the deployed identity of the contract under test.
	ContractID string

	// Mode is the fuzzing mode the failure was found in, "invariant" or "test".
	Mode string

	// CheckName is the failed invariant or property test.
	CheckName string

	// Seed is the run seed the failure was found under.
	Seed int64

	// Sequence is the shrunk sequence of calls reproducing the failure.
	Sequence []RecordedCall

	// FoundAt is when the failure was recorded.
	FoundAt time.Time
}

// Store is a bolt-backed regression database. Store errors are reported to callers but are meant to be non-fatal:
// a fuzzing run that cannot persist its findings still reports them.
type Store struct {
	db *bolt.DB

	// limit bounds how many records each (contract, mode) bucket retains; the oldest fall off first.
	limit int
}

// DefaultRecordLimit bounds each bucket when no explicit limit is configured.
const DefaultRecordLimit = 64

// OpenStore opens or creates a regression database at the given path.
func OpenStore(path string, limit int) (*Store, error) {
	if limit <= 0 {
		limit = DefaultRecordLimit
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "could not open regression database")
	}
	return &Store{db: db, limit: limit}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// bucketName derives the bucket key for a contract and mode.
func bucketName(contractID string, mode string) []byte {
	return []byte(contractID + "|" + mode)
}

// Save persists a falsification record, assigning it an ID. A record whose seed and check name already exist in
// the bucket is dropped as a duplicate. When the bucket exceeds its limit the oldest records are evicted.
func (s *Store) Save(record *Record) error {
	record.ID = uuid.New().String()
	if record.FoundAt.IsZero() {
		record.FoundAt = time.Now().UTC()
	}

	encoded, err := cbor.Marshal(record, cbor.EncOptions{})
	if err != nil {
		return errors.Wrap(err, "could not serialize regression record")
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName(record.ContractID, record.Mode))
		if err != nil {
			return err
		}

		// Dedup: the same seed refinding the same check adds nothing.
		duplicate := false
		cursor := bucket.Cursor()
		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			var existing Record
			if err := cbor.Unmarshal(value, &existing); err != nil {
				return err
			}
			if existing.Seed == record.Seed && existing.CheckName == record.CheckName {
				duplicate = true
				break
			}
		}
		if duplicate {
			return nil
		}

		sequence, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, sequence)
		if err := bucket.Put(key, encoded); err != nil {
			return err
		}

		// Evict oldest entries beyond the retention limit. Keys are monotone, so the cursor's first entries are
		// the oldest.
		count := 0
		counter := bucket.Cursor()
		for key, _ := counter.First(); key != nil; key, _ = counter.Next() {
			count++
		}
		excess := count - s.limit
		for ; excess > 0; excess-- {
			oldestKey, _ := bucket.Cursor().First()
			if oldestKey == nil {
				break
			}
			if err := bucket.Delete(oldestKey); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "could not persist regression record")
}

// List returns every retained record for a contract and mode, oldest first.
func (s *Store) List(contractID string, mode string) ([]*Record, error) {
	records := make([]*Record, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName(contractID, mode))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_ []byte, value []byte) error {
			var record Record
			if err := cbor.Unmarshal(value, &record); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not read regression records")
	}
	return records, nil
}
