package contract

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// EncodeConstructorArgs parses raw against the constructor of contractABI and
// packs the values. A contract without a constructor takes no arguments.
func EncodeConstructorArgs(contractABI abi.ABI, raw []string) ([]byte, error) {
	if len(contractABI.Constructor.Inputs) == 0 {
		if len(raw) > 0 {
			return nil, fmt.Errorf("constructor takes no arguments, got %d", len(raw))
		}
		return nil, nil
	}
	args, err := ParseArgs(contractABI.Constructor.Inputs, raw)
	if err != nil {
		return nil, fmt.Errorf("constructor: %w", err)
	}
	packed, err := contractABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("encoding constructor args: %w", err)
	}
	return packed, nil
}

// DeployData returns the init code for a: bytecode followed by the packed
// constructor arguments.
func DeployData(a *Artifact, raw []string) ([]byte, error) {
	parsed, err := Parse(a.ABI)
	if err != nil {
		return nil, err
	}
	args, err := EncodeConstructorArgs(parsed, raw)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(a.Bytecode)+len(args))
	out = append(out, a.Bytecode...)
	return append(out, args...), nil
}
