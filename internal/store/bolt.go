package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("checkruns")

// BoltStore persists run history to a BoltDB file on disk.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a BoltDB database at path, creating the
// parent directory if needed.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// A second agentcheck process holding the lock should fail fast rather
	// than hang the CLI.
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Create(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt.Get([]byte(key)) != nil {
			return ErrAlreadyExists
		}
		return bkt.Put([]byte(key), raw)
	})
}

func (b *BoltStore) Get(key string, target interface{}) error {
	return b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, target)
	})
}

func (b *BoltStore) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt.Get([]byte(key)) == nil {
			return ErrNotFound
		}
		return bkt.Delete([]byte(key))
	})
}

func (b *BoltStore) List(prefix string, factory func() interface{}) ([]interface{}, error) {
	var results []interface{}

	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()

		for k, v := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			obj := factory()
			if err := json.Unmarshal(v, obj); err != nil {
				return err
			}
			results = append(results, obj)
		}
		return nil
	})
	return results, err
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}
