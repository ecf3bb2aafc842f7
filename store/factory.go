package store

import (
	"fmt"
	"os"
	"time"

	"github.com/mezonai/starledger/db"
	"github.com/mezonai/starledger/logx"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// BoltStoreType uses the BoltDB implementation
	BoltStoreType StoreType = "bolt"

	// RocksDBStoreType uses the RocksDB implementation, requires -tags rocksdb
	RocksDBStoreType StoreType = "rocksdb"

	// RedisStoreType uses the Redis implementation
	RedisStoreType StoreType = "redis"

	// MemoryStoreType keeps blocks in process memory only
	MemoryStoreType StoreType = "memory"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `ini:"type" yaml:"type"`

	// Directory is the database directory path (for file-based databases)
	Directory string `ini:"directory" yaml:"directory"`

	// RedisAddr and RedisDB select the Redis instance for RedisStoreType
	RedisAddr string `ini:"redis_addr" yaml:"redis_addr"`
	RedisDB   int    `ini:"redis_db" yaml:"redis_db"`

	// TimeoutMs bounds each store call
	TimeoutMs int `ini:"timeout_ms" yaml:"timeout_ms"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	if sc.Type == "" {
		return fmt.Errorf("store type cannot be empty")
	}

	switch sc.Type {
	case LevelDBStoreType, BoltStoreType, RocksDBStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty for %s store", sc.Type)
		}
	case RedisStoreType:
		if sc.RedisAddr == "" {
			return fmt.Errorf("redis_addr cannot be empty for redis store")
		}
	case MemoryStoreType:
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}

	if sc.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms cannot be negative")
	}
	return nil
}

func (sc *StoreConfig) Timeout() time.Duration {
	if sc.TimeoutMs == 0 {
		return defaultStoreTimeoutS * time.Second
	}
	return time.Duration(sc.TimeoutMs) * time.Millisecond
}

// CreateProvider creates a database provider based on the configuration
func CreateProvider(config *StoreConfig) (db.IterableProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBStoreType, BoltStoreType, RocksDBStoreType:
		if err := os.MkdirAll(config.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	switch config.Type {
	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Directory)

	case BoltStoreType:
		return db.NewBoltProvider(config.Directory)

	case RocksDBStoreType:
		return db.NewRocksDBProvider(config.Directory)

	case RedisStoreType:
		return db.NewRedisProvider(db.RedisOptions{
			Address:      config.RedisAddr,
			DB:           config.RedisDB,
			DialTimeout:  config.Timeout(),
			ReadTimeout:  config.Timeout(),
			WriteTimeout: config.Timeout(),
		})

	case MemoryStoreType:
		return db.NewMemoryProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// CreateBlockStore opens the configured provider and wraps it in a GenericBlockStore.
func CreateBlockStore(config *StoreConfig) (*GenericBlockStore, error) {
	provider, err := CreateProvider(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	bs, err := NewGenericBlockStore(provider, WithTimeout(config.Timeout()))
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create block store: %w", err)
	}

	logx.Info("BLOCKSTORE", fmt.Sprintf("Opened %s block store (dir=%q timeout=%s)", config.Type, config.Directory, config.Timeout()))
	return bs, nil
}
