package merkle

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Allowlist is a tree together with the addresses it was built from.
type Allowlist struct {
	Addresses []common.Address
	Tree      *Tree
}

// AllowlistFile is the JSON layout written by `sav3 allowlist build --out`.
type AllowlistFile struct {
	Root   common.Hash              `json:"root"`
	Proofs map[string][]common.Hash `json:"proofs"`
}

// LoadAddresses reads addresses from path. Two formats are accepted:
//   - a JSON array of hex strings
//   - one address per line; blank lines and lines starting with # are skipped
func LoadAddresses(path string) ([]common.Address, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading allowlist: %w", err)
	}
	return ParseAddresses(data)
}

// ParseAddresses parses the formats accepted by LoadAddresses.
func ParseAddresses(data []byte) ([]common.Address, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyTree
	}

	var raw []string
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing allowlist JSON: %w", err)
		}
	} else {
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw = append(raw, line)
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}

	addrs := make([]common.Address, 0, len(raw))
	seen := make(map[common.Address]bool, len(raw))
	for i, s := range raw {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("entry %d: invalid address %q", i+1, s)
		}
		a := common.HexToAddress(s)
		if seen[a] {
			continue
		}
		seen[a] = true
		addrs = append(addrs, a)
	}
	if len(addrs) == 0 {
		return nil, ErrEmptyTree
	}
	return addrs, nil
}

// NewAllowlist builds the tree for addrs.
func NewAllowlist(addrs []common.Address) (*Allowlist, error) {
	t, err := NewAddressTree(addrs)
	if err != nil {
		return nil, err
	}
	return &Allowlist{Addresses: addrs, Tree: t}, nil
}

// Root returns the allowlist root.
func (a *Allowlist) Root() common.Hash {
	return a.Tree.Root()
}

// Proof returns the proof for addr or ErrLeafMissing.
func (a *Allowlist) Proof(addr common.Address) ([]common.Hash, error) {
	return a.Tree.AddressProof(addr)
}

// File returns the root and every member's proof keyed by checksum address.
func (a *Allowlist) File() (*AllowlistFile, error) {
	f := &AllowlistFile{
		Root:   a.Root(),
		Proofs: make(map[string][]common.Hash, len(a.Addresses)),
	}
	for _, addr := range a.Addresses {
		p, err := a.Proof(addr)
		if err != nil {
			return nil, err
		}
		f.Proofs[addr.Hex()] = p
	}
	return f, nil
}

// WriteFile writes the allowlist root and proofs as indented JSON.
func (a *Allowlist) WriteFile(path string) error {
	f, err := a.File()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
