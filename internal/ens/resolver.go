// Package ens resolves ENS names for addresses typed on the command line.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// RegistryAddress is the ENS registry on mainnet and Sepolia.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// Networks with an ENS registry deployed.
var supported = map[string]bool{"mainnet": true, "sepolia": true}

var (
	selResolver = []byte{0x01, 0x78, 0xb8, 0xbf} // resolver(bytes32)
	selAddr     = []byte{0x3b, 0x3b, 0x57, 0xde} // addr(bytes32)
	selName     = []byte{0x69, 0x1f, 0x34, 0x31} // name(bytes32)
)

// ErrNotFound is returned when a name or reverse record has no value.
var ErrNotFound = errors.New("ens record not found")

// Supported reports whether network carries the ENS registry.
func Supported(network string) bool { return supported[network] }

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	return strings.Contains(s, ".") && !strings.HasPrefix(s, "0x") && !strings.ContainsAny(s, " /:")
}

// Namehash implements EIP-137.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := keccak256([]byte(labels[i]))
		node = common.BytesToHash(keccak256(node[:], label))
	}
	return node
}

// Resolve looks up the address record of name.
func Resolve(ctx context.Context, caller ethereum.ContractCaller, name string) (common.Address, error) {
	node := Namehash(strings.ToLower(name))
	resolver, err := resolverOf(ctx, caller, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	out, err := call(ctx, caller, resolver, selAddr, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS resolver: %w", err)
	}
	addr := wordAddress(out)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("no address record for %q: %w", name, ErrNotFound)
	}
	return addr, nil
}

// ReverseLookup returns the primary name of addr.
func ReverseLookup(ctx context.Context, caller ethereum.ContractCaller, addr common.Address) (string, error) {
	node := Namehash(strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse")
	resolver, err := resolverOf(ctx, caller, node)
	if err != nil {
		return "", fmt.Errorf("%s: %w", addr.Hex(), err)
	}
	out, err := call(ctx, caller, resolver, selName, node)
	if err != nil {
		return "", fmt.Errorf("querying reverse resolver: %w", err)
	}
	name, err := decodeString(out)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("no reverse name for %s: %w", addr.Hex(), ErrNotFound)
	}
	return name, nil
}

func resolverOf(ctx context.Context, caller ethereum.ContractCaller, node common.Hash) (common.Address, error) {
	out, err := call(ctx, caller, RegistryAddress, selResolver, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS registry: %w", err)
	}
	resolver := wordAddress(out)
	if resolver == (common.Address{}) {
		return common.Address{}, fmt.Errorf("no resolver set: %w", ErrNotFound)
	}
	return resolver, nil
}

func call(ctx context.Context, caller ethereum.ContractCaller, to common.Address, sel []byte, node common.Hash) ([]byte, error) {
	data := append(append([]byte{}, sel...), node[:]...)
	return caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// wordAddress reads the address in the low 20 bytes of the first word.
func wordAddress(out []byte) common.Address {
	if len(out) < 32 {
		return common.Address{}
	}
	return common.BytesToAddress(out[12:32])
}

var stringArgs = func() abi.Arguments {
	t, _ := abi.NewType("string", "", nil)
	return abi.Arguments{{Type: t}}
}()

func decodeString(out []byte) (string, error) {
	if len(out) == 0 {
		return "", nil
	}
	vals, err := stringArgs.Unpack(out)
	if err != nil {
		return "", fmt.Errorf("decoding ENS name: %w", err)
	}
	return vals[0].(string), nil
}

func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
