package persistence

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
)

var devicesBucket = []byte("devices")

// BoltStore is a Store backed by a bbolt database file. Records are
// encoded as CBOR.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBoltStore opens or creates the database at path. Opening blocks for at
// most one second when another process holds the file lock.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(devicesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init device store: %w", err)
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Put(r Record) error {
	if err := prepare(&r, s.now); err != nil {
		return err
	}
	data, err := cbor.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.update(func(b *bolt.Bucket) error {
		return b.Put([]byte(key(r.Name)), data)
	})
}

func (s *BoltStore) Get(name string) (Record, error) {
	var r Record
	err := s.view(func(b *bolt.Bucket) error {
		data := b.Get([]byte(key(name)))
		if data == nil {
			return ErrNotFound
		}
		return decodeRecord(data, &r)
	})
	return r, err
}

func (s *BoltStore) List() ([]Record, error) {
	var records []Record
	err := s.view(func(b *bolt.Bucket) error {
		return b.ForEach(func(_, v []byte) error {
			var r Record
			if err := decodeRecord(v, &r); err != nil {
				return err
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// Bucket keys are already lowercase names, so ForEach order is name order.
	return records, nil
}

func (s *BoltStore) Delete(name string) error {
	return s.update(func(b *bolt.Bucket) error {
		return b.Delete([]byte(key(name)))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) update(fn func(*bolt.Bucket) error) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(devicesBucket))
	})
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

func (s *BoltStore) view(fn func(*bolt.Bucket) error) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(devicesBucket))
	})
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

func decodeRecord(data []byte, r *Record) error {
	if err := cbor.Unmarshal(data, r); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

var _ Store = (*BoltStore)(nil)
