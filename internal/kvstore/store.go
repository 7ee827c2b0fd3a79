// Package kvstore is the persistence layer behind every service: a flat
// string-keyed store of JSON documents supporting get, set, delete and
// ordered prefix scans. It offers no transactions; each call is atomic on its
// own key only.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("kvstore: key not found")

// Store is implemented by every backend.
type Store interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan returns every pair whose key starts with prefix, in ascending
	// byte order of the key.
	Scan(ctx context.Context, prefix string) ([]KeyValue, error)

	Close() error
}

type KeyValue struct {
	Key   string
	Value []byte
}

// StoreError wraps a backend failure with the operation and key involved.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("kvstore: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Key: key, Err: err}
}

// GetJSON decodes the value at key into dst.
func GetJSON(ctx context.Context, s Store, key string, dst any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return storeError("decode", key, err)
	}

	return nil
}

// SetJSON encodes value and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return storeError("encode", key, err)
	}

	return s.Set(ctx, key, data)
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix, or "" when no such bound exists.
func prefixEnd(prefix string) string {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return string(end[:i+1])
		}
	}
	return ""
}

// Decode unmarshals a pair returned by Scan into dst.
func Decode(kv KeyValue, dst any) error {
	if err := json.Unmarshal(kv.Value, dst); err != nil {
		return storeError("decode", kv.Key, err)
	}
	return nil
}
