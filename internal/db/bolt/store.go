// Package bolt implements db.Store on a local bbolt file.
// It backs the embedding cache for single-node deployments without Valkey.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kailas-cloud/exsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

var bucketKV = []byte("kv")

// expiryLen is the size of the expiry header prepended to every value.
const expiryLen = 8

// Store is a bbolt-backed key-value store with per-key expiry.
// Values are stored as an 8-byte big-endian unix-nano deadline (0 = never) followed by the payload.
// Expired keys read as missing and are overwritten on the next Set.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}

	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketKV); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketKV, err)
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return &Store{db: bdb, now: time.Now}, nil
}

// Ping checks the database is open.
func (s *Store) Ping(_ context.Context) error {
	if err := s.db.View(func(*bbolt.Tx) error { return nil }); err != nil {
		return &db.Error{Op: db.OpPing, Err: mapErr(err)}
	}
	return nil
}

// Close closes the database file.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady returns once the file is open; bolt has no warm-up phase.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Get retrieves a live value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}

	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketKV).Get([]byte(key))
		if raw == nil {
			return db.ErrKeyNotFound
		}
		if len(raw) < expiryLen {
			return fmt.Errorf("corrupt value for %q: %d bytes", key, len(raw))
		}
		if deadline := int64(binary.BigEndian.Uint64(raw[:expiryLen])); deadline != 0 && s.now().UnixNano() >= deadline {
			return db.ErrKeyNotFound
		}
		// bolt memory is only valid inside the transaction
		out = append([]byte(nil), raw[expiryLen:]...)
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: mapErr(err)}
	}
	return out, nil
}

// SetWithTTL stores a value, with an expiration when ttl is positive.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}

	var deadline int64
	if ttl > 0 {
		deadline = s.now().Add(ttl).UnixNano()
	}
	buf := make([]byte, expiryLen+len(value))
	binary.BigEndian.PutUint64(buf[:expiryLen], uint64(deadline))
	copy(buf[expiryLen:], value)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), buf)
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: mapErr(err)}
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return fmt.Errorf("%w: %w", db.ErrClosed, err)
	}
	return err
}
