package kvstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltFileMode os.FileMode = 0600

var (
	ErrFilePathIsBlank = errors.New("kvstore: path must not be blank")

	boltBucket = []byte("kv")
)

// BoltStore keeps all pairs in a single bbolt bucket. bbolt keeps keys
// sorted, so prefix scans are a cursor seek.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) the bbolt file at filePath.
func OpenBoltStore(filePath string) (*BoltStore, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, ErrFilePathIsBlank
	}

	db, err := bolt.Open(filePath, boltFileMode, &bolt.Options{Timeout: 30 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid for the life of the transaction
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeError("get", key, err)
	}

	return value, nil
}

func (s *BoltStore) Set(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), value)
	})
	return storeError("set", key, err)
}

func (s *BoltStore) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	return storeError("delete", key, err)
}

func (s *BoltStore) Scan(ctx context.Context, prefix string) ([]KeyValue, error) {
	var kvs []KeyValue
	p := []byte(prefix)

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			kvs = append(kvs, KeyValue{Key: string(k), Value: append([]byte(nil), v...)})
		}
		return nil
	})
	if err != nil {
		return nil, storeError("scan", prefix, err)
	}

	return kvs, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
