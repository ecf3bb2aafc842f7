package config

// NodeConfig represents a node's listen addresses and HTTP policy
type NodeConfig struct {
	RestAddr    string   `yaml:"rest_addr"`
	JSONRPCAddr string   `yaml:"jsonrpc_addr"`
	MetricsAddr string   `yaml:"metrics_addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// ConfigFile is the top-level structure for node.yml
type ConfigFile struct {
	Node NodeConfig `yaml:"node"`
}

type MempoolConfig struct {
	ValidationWindowSeconds int `ini:"validation_window_seconds"`
}

type RateLimitConfig struct {
	MaxRequests   int `ini:"max_requests"`
	WindowSeconds int `ini:"window_seconds"`
}
