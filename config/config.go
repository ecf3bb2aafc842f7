package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mezonai/starledger/logx"
	"github.com/mezonai/starledger/store"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRestAddr                = ":8000"
	DefaultJSONRPCAddr             = ":8001"
	DefaultMetricsAddr             = ":9100"
	DefaultValidationWindowSeconds = 300
	DefaultRateLimitMaxRequests    = 10
	DefaultRateLimitWindowSeconds  = 60
)

// LoadNodeConfig reads and parses node.yml, filling unset addresses with defaults
func LoadNodeConfig(path string) (*NodeConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	if err := yaml.NewDecoder(file).Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	node := cfgFile.Node
	node.applyDefaults()
	logx.Info("CONFIG", fmt.Sprintf("Loaded node config rest=%s jsonrpc=%s metrics=%s", node.RestAddr, node.JSONRPCAddr, node.MetricsAddr))
	return &node, nil
}

// DefaultNodeConfig is used when no node.yml is given
func DefaultNodeConfig() *NodeConfig {
	node := &NodeConfig{}
	node.applyDefaults()
	return node
}

func (n *NodeConfig) applyDefaults() {
	if n.RestAddr == "" {
		n.RestAddr = DefaultRestAddr
	}
	if n.JSONRPCAddr == "" {
		n.JSONRPCAddr = DefaultJSONRPCAddr
	}
	if n.MetricsAddr == "" {
		n.MetricsAddr = DefaultMetricsAddr
	}
}

func loadSection(path, section string, target interface{}) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Section(section).MapTo(target); err != nil {
		return fmt.Errorf("map [%s] in %s: %w", section, path, err)
	}
	return nil
}

// LoadStoreConfig reads the [store] section and validates it
func LoadStoreConfig(path string) (*store.StoreConfig, error) {
	storeCfg := &store.StoreConfig{}
	if err := loadSection(path, "store", storeCfg); err != nil {
		return nil, err
	}
	if err := storeCfg.Validate(); err != nil {
		return nil, err
	}
	return storeCfg, nil
}

func LoadMempoolConfig(path string) (*MempoolConfig, error) {
	mempoolCfg := &MempoolConfig{}
	if err := loadSection(path, "mempool", mempoolCfg); err != nil {
		return nil, err
	}
	if mempoolCfg.ValidationWindowSeconds < 0 {
		return nil, fmt.Errorf("validation_window_seconds cannot be negative")
	}
	if mempoolCfg.ValidationWindowSeconds == 0 {
		mempoolCfg.ValidationWindowSeconds = DefaultValidationWindowSeconds
	}
	return mempoolCfg, nil
}

func (m *MempoolConfig) Window() time.Duration {
	return time.Duration(m.ValidationWindowSeconds) * time.Second
}

func LoadRateLimitConfig(path string) (*RateLimitConfig, error) {
	rlCfg := &RateLimitConfig{}
	if err := loadSection(path, "ratelimit", rlCfg); err != nil {
		return nil, err
	}
	if rlCfg.MaxRequests <= 0 {
		rlCfg.MaxRequests = DefaultRateLimitMaxRequests
	}
	if rlCfg.WindowSeconds <= 0 {
		rlCfg.WindowSeconds = DefaultRateLimitWindowSeconds
	}
	return rlCfg, nil
}

func (r *RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}
