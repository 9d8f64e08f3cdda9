package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
)

const (
	defaultNetwork      = "localhost"
	defaultSolidity     = "0.8.16"
	defaultMaxBatchSize = 5
	defaultMaxSupply    = 5000

	configFile      = "config.json"
	walletsFile     = "wallets.json"
	deploymentsFile = "deployments.json"

	// DirEnv overrides the config directory.
	DirEnv = "SAV3_CONFIG_DIR"
)

// ErrUnknownKey is returned by Set and Get for keys that are not settable.
var ErrUnknownKey = errors.New("unknown config key")

// Load reads config from dir (or creates defaults). dir defaults to
// $SAV3_CONFIG_DIR, then ~/.sav3.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(DirEnv)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".sav3")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if cfg.Solidity == "" {
		cfg.Solidity = defaultSolidity
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = defaultMaxBatchSize
	}
	if cfg.MaxSupply == 0 {
		cfg.MaxSupply = defaultMaxSupply
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network.
func (c *Config) RemoveRPC(network, url string) error {
	rpcs := c.CustomRPCs[network]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	c.CustomRPCs[network] = slices.Delete(rpcs, idx, idx+1)
	if len(c.CustomRPCs[network]) == 0 {
		delete(c.CustomRPCs, network)
	}
	return nil
}

// GetRPCs returns custom RPCs for a network.
func (c *Config) GetRPCs(network string) []string {
	return c.CustomRPCs[network]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is the wallet store file.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// DeploymentsPath is the deployment registry file.
func (c *Config) DeploymentsPath() string {
	return filepath.Join(c.configDir, deploymentsFile)
}

// Keys lists the settable keys in display order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the string form of a settable key.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// Set parses value into a settable key. It does not save.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.set(c, value)
}

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

var fields = map[string]field{
	"default_network": {
		get: func(c *Config) string { return c.DefaultNetwork },
		set: func(c *Config, v string) error { c.DefaultNetwork = v; return nil },
	},
	"default_wallet": {
		get: func(c *Config) string { return c.DefaultWallet },
		set: func(c *Config, v string) error { c.DefaultWallet = v; return nil },
	},
	"solidity": {
		get: func(c *Config) string { return c.Solidity },
		set: func(c *Config, v string) error { c.Solidity = v; return nil },
	},
	"max_batch_size": {
		get: func(c *Config) string { return strconv.FormatUint(c.MaxBatchSize, 10) },
		set: func(c *Config, v string) error { return setPositive(&c.MaxBatchSize, "max_batch_size", v) },
	},
	"rpc_algorithm": {
		get: func(c *Config) string { return c.RPCAlgorithm },
		set: func(c *Config, v string) error {
			if v != "failover" && v != "fastest" {
				return fmt.Errorf("rpc_algorithm must be failover or fastest, got %q", v)
			}
			c.RPCAlgorithm = v
			return nil
		},
	},
	"max_supply": {
		get: func(c *Config) string { return strconv.FormatUint(c.MaxSupply, 10) },
		set: func(c *Config, v string) error { return setPositive(&c.MaxSupply, "max_supply", v) },
	},
}

func setPositive(dst *uint64, key, v string) error {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	*dst = n
	return nil
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		DefaultNetwork: defaultNetwork,
		Solidity:       defaultSolidity,
		MaxBatchSize:   defaultMaxBatchSize,
		MaxSupply:      defaultMaxSupply,
		CustomRPCs:     make(map[string][]string),
		configDir:      dir,
	}
}
