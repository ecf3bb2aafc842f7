package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mezonai/starledger/db"
	"github.com/mezonai/starledger/logx"
)

var (
	// ErrNotFound is returned by Get when no value is stored at a height.
	ErrNotFound = errors.New("block not found in store")
	// ErrStore wraps every failure of the underlying engine, including timeouts.
	ErrStore = errors.New("store error")
	// ErrExists is returned by Create when a value is already stored at the height.
	ErrExists = errors.New("block already stored at height")
)

// BlockStore is ordered height -> bytes storage. Heights are the keys; values are
// opaque to the store.
type BlockStore interface {
	Get(ctx context.Context, height uint64) ([]byte, error)
	Put(ctx context.Context, height uint64, value []byte) error
	// Create is Put that refuses to replace an existing value with ErrExists.
	Create(ctx context.Context, height uint64, value []byte) error
	// ScanAll visits stored values in ascending height order until fn returns false.
	ScanAll(ctx context.Context, fn func(height uint64, value []byte) bool) error
	Count(ctx context.Context) (uint64, error)
	Close() error
}

// GenericBlockStore implements BlockStore on any db.IterableProvider.
type GenericBlockStore struct {
	provider db.IterableProvider
	timeout  time.Duration

	// serializes the has-check and count update in Put
	writeMu sync.Mutex
}

type Option func(*GenericBlockStore)

// WithTimeout bounds every provider call. A call exceeding it fails with ErrStore
// wrapping context.DeadlineExceeded; the engine call itself may still complete.
func WithTimeout(d time.Duration) Option {
	return func(s *GenericBlockStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewGenericBlockStore(provider db.IterableProvider, opts ...Option) (*GenericBlockStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	s := &GenericBlockStore{
		provider: provider,
		timeout:  defaultStoreTimeoutS * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// heightToKey converts a height to a block storage key. Big-endian keeps
// lexicographic order equal to numeric order.
func heightToKey(height uint64) []byte {
	key := make([]byte, heightKeyLen)
	copy(key, PrefixBlock)
	binary.BigEndian.PutUint64(key[len(PrefixBlock):], height)
	return key
}

func keyToHeight(key []byte) (uint64, bool) {
	if len(key) != heightKeyLen {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(PrefixBlock):]), true
}

func countKey() []byte {
	return []byte(PrefixBlockMeta + BlockMetaKeyCount)
}

// call runs fn with the store's deadline applied.
func (s *GenericBlockStore) call(ctx context.Context, op string, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
		}
		return nil
	case <-ctx.Done():
		logx.Error("BLOCKSTORE", fmt.Sprintf("%s did not finish within %s", op, s.timeout))
		return fmt.Errorf("%w: %s: %w", ErrStore, op, ctx.Err())
	}
}

func (s *GenericBlockStore) Get(ctx context.Context, height uint64) ([]byte, error) {
	var value []byte
	err := s.call(ctx, fmt.Sprintf("get block %d", height), func() error {
		v, err := s.provider.Get(heightToKey(height))
		value = v
		return err
	})
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, ErrNotFound
	}
	return value, nil
}

// Put writes value at height. The first write of a height bumps the block count
// in the same batch; overwrites leave the count unchanged.
func (s *GenericBlockStore) Put(ctx context.Context, height uint64, value []byte) error {
	return s.call(ctx, fmt.Sprintf("put block %d", height), func() error {
		return s.write(height, value, true)
	})
}

// Create writes value at height only if the height is empty. A write that
// outlives its deadline keeps this guarantee when it lands.
func (s *GenericBlockStore) Create(ctx context.Context, height uint64, value []byte) error {
	return s.call(ctx, fmt.Sprintf("create block %d", height), func() error {
		return s.write(height, value, false)
	})
}

func (s *GenericBlockStore) write(height uint64, value []byte, overwrite bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	key := heightToKey(height)
	exists, err := s.provider.Has(key)
	if err != nil {
		return fmt.Errorf("failed to check block existence: %w", err)
	}
	if exists && !overwrite {
		return ErrExists
	}

	batch := s.provider.Batch()
	defer batch.Close()
	batch.Put(key, value)

	if !exists {
		count, err := s.readCount()
		if err != nil {
			return err
		}
		meta := make([]byte, 8)
		binary.BigEndian.PutUint64(meta, count+1)
		batch.Put(countKey(), meta)
	}

	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to store block: %w", err)
	}
	return nil
}

func (s *GenericBlockStore) ScanAll(ctx context.Context, fn func(height uint64, value []byte) bool) error {
	return s.call(ctx, "scan blocks", func() error {
		var scanErr error
		err := s.provider.IteratePrefix([]byte(PrefixBlock), func(key, value []byte) bool {
			height, ok := keyToHeight(key)
			if !ok {
				scanErr = fmt.Errorf("malformed block key %x", key)
				return false
			}
			if ctx.Err() != nil {
				scanErr = ctx.Err()
				return false
			}
			return fn(height, value)
		})
		if err != nil {
			return err
		}
		return scanErr
	})
}

func (s *GenericBlockStore) Count(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.call(ctx, "count blocks", func() error {
		c, err := s.readCount()
		count = c
		return err
	})
	return count, err
}

func (s *GenericBlockStore) readCount() (uint64, error) {
	value, err := s.provider.Get(countKey())
	if err != nil {
		return 0, fmt.Errorf("failed to get block count: %w", err)
	}
	if value == nil {
		return 0, nil
	}
	if len(value) != 8 {
		return 0, fmt.Errorf("invalid block count value length: %d", len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}

// Close closes the underlying database provider
func (s *GenericBlockStore) Close() error {
	if err := s.provider.Close(); err != nil {
		logx.Error("BLOCKSTORE", "Failed to close provider: ", err)
		return fmt.Errorf("%w: close: %w", ErrStore, err)
	}
	return nil
}
