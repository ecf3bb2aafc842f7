package cmd

import (
	"context"
	"fmt"

	"github.com/mezonai/starledger/config"
	"github.com/mezonai/starledger/ledger"
	"github.com/mezonai/starledger/logx"
	"github.com/mezonai/starledger/store"
	"github.com/spf13/cobra"
)

type storeFlags struct {
	Type      string
	Directory string
}

var storeOverrides storeFlags

func addStoreFlags(c *cobra.Command) {
	c.Flags().StringVar(&storeOverrides.Type, "store-type", "", "override [store] type (leveldb, bolt, rocksdb, redis, memory)")
	c.Flags().StringVarP(&storeOverrides.Directory, "data-dir", "d", "", "override [store] directory")
}

func loadStoreConfig() (*store.StoreConfig, error) {
	storeCfg, err := config.LoadStoreConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load store config: %w", err)
	}
	if storeOverrides.Type != "" {
		storeCfg.Type = store.StoreType(storeOverrides.Type)
	}
	if storeOverrides.Directory != "" {
		storeCfg.Directory = storeOverrides.Directory
	}
	if err := storeCfg.Validate(); err != nil {
		return nil, err
	}
	return storeCfg, nil
}

// openLedger opens the configured store and the ledger on top of it. The caller closes the store.
func openLedger(ctx context.Context) (*ledger.Ledger, store.BlockStore, error) {
	storeCfg, err := loadStoreConfig()
	if err != nil {
		return nil, nil, err
	}
	bs, err := store.CreateBlockStore(storeCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", storeCfg.Type, err)
	}
	ld, err := ledger.Open(ctx, bs)
	if err != nil {
		_ = bs.Close()
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	logx.Info("CMD", fmt.Sprintf("Opened %s store at %s", storeCfg.Type, storeCfg.Directory))
	return ld, bs, nil
}
