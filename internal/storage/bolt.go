package storage

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var dashboardBucket = []byte("dashboard")

// BoltStore is the bbolt backed KV, for hosts where a single-file embedded
// B+tree is preferred over SQLite.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the bolt file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dashboardBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Get returns the value stored under key.
func (s *BoltStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(dashboardBucket).Get([]byte(key)); v != nil {
			value = string(v)
		}
		return nil
	})
	return value, err
}

// Put stores value under key.
func (s *BoltStore) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dashboardBucket).Put([]byte(key), []byte(value))
	})
}

// Close closes the bolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
