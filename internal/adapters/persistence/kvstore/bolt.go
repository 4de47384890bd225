// Package kvstore is the console's key/value storage: the server-side stand-in
// for the browser storage the console used to keep its session and cached
// follow-up comments in. Values are JSON encoded, one document per key.
package kvstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
)

const (
	sessionsBucket = "sessions"
	commentsBucket = "comments"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("key not found")

// Store wraps a BoltDB file holding all console-local state
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store at path and makes sure every bucket exists
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open kv store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{sessionsBucket, commentsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the store still answers reads
func (s *Store) Ping() error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(sessionsBucket)) == nil {
			return errors.New("sessions bucket missing")
		}
		return nil
	})
}

func (s *Store) get(bucket, key string, v interface{}) error {
	return s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, v)
	})
}

func (s *Store) put(bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

// delete is a no-op for missing keys
func (s *Store) delete(bucket string, keys ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// keys lists every key in bucket starting with prefix
func (s *Store) keys(bucket, prefix string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			out = append(out, string(k))
		}
		return nil
	})
	return out, err
}
