//go:build !rocksdb
// +build !rocksdb

package db

import "fmt"

// NewRocksDBProvider reports that the binary was built without RocksDB support.
func NewRocksDBProvider(directory string) (IterableProvider, error) {
	return nil, fmt.Errorf("RocksDB support not compiled in, build with -tags rocksdb to open %s", directory)
}
