package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Per-network environment variable suffixes, e.g. GOERLI_PRIVATE_KEY.
const (
	AlchemyKeySuffix   = "_ALCHEMY_API_KEY"
	PrivateKeySuffix   = "_PRIVATE_KEY"
	EtherscanKeySuffix = "_ETHERSCAN_API_KEY"
)

// LoadEnv loads .env style files into the process environment. Variables
// already set win over file values. Missing files are skipped; with no
// paths, ./.env and <config dir>/.env are tried. It returns the files that
// were actually read.
func (c *Config) LoadEnv(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
		if c.configDir != "" {
			paths = append(paths, filepath.Join(c.configDir, ".env"))
		}
	}
	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("loading %s: %w", p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

// ReadEnvFile parses a .env file without touching the environment.
func ReadEnvFile(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

// AlchemyKey returns <NETWORK>_ALCHEMY_API_KEY.
func AlchemyKey(network string) string { return networkEnv(network, AlchemyKeySuffix) }

// PrivateKey returns <NETWORK>_PRIVATE_KEY.
func PrivateKey(network string) string { return networkEnv(network, PrivateKeySuffix) }

// EtherscanKey returns <NETWORK>_ETHERSCAN_API_KEY.
func EtherscanKey(network string) string { return networkEnv(network, EtherscanKeySuffix) }

// EnvName builds the variable name for network and suffix.
func EnvName(network, suffix string) string {
	return strings.ToUpper(network) + suffix
}

func networkEnv(network, suffix string) string {
	return strings.TrimSpace(os.Getenv(EnvName(network, suffix)))
}
