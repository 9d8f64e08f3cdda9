package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Backend executes read-only calls. Both the JSON-RPC client and the
// in-process ledger implement it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ErrFunctionNotFound is returned for a method missing from the ABI.
var ErrFunctionNotFound = errors.New("function not found in ABI")

// Caller calls contract functions through eth_call.
type Caller struct {
	backend Backend
	abi     abi.ABI
	from    common.Address
}

// NewCaller creates a Caller for the given ABI.
func NewCaller(backend Backend, contractABI abi.ABI) *Caller {
	return &Caller{backend: backend, abi: contractABI}
}

// From sets the msg.sender used for simulated calls.
func (c *Caller) From(addr common.Address) *Caller {
	cp := *c
	cp.from = addr
	return &cp
}

// ABI returns the caller's ABI.
func (c *Caller) ABI() abi.ABI { return c.abi }

// Call packs method(args...), runs it against to and unpacks the result.
func (c *Caller) Call(ctx context.Context, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	return c.CallValue(ctx, to, nil, method, args...)
}

// CallValue is Call with value attached, used to dry-run payable methods.
func (c *Caller) CallValue(ctx context.Context, to common.Address, value *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, method)
	}
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    &to,
		Value: value,
		Data:  data,
	}, nil)
	if err != nil {
		return nil, wrapRevert(err)
	}
	if len(m.Outputs) == 0 {
		return nil, nil
	}
	res, err := m.Outputs.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return res, nil
}

// CallStrings parses raw arguments against the method inputs and formats the
// outputs for display.
func (c *Caller) CallStrings(ctx context.Context, to common.Address, method string, raw ...string) ([]string, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, method)
	}
	args, err := ParseArgs(m.Inputs, raw)
	if err != nil {
		return nil, err
	}
	res, err := c.Call(ctx, to, method, args...)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(res))
	for i, v := range res {
		out[i] = FormatValue(v)
	}
	return out, nil
}

// RevertError is a call that the contract rejected.
type RevertError struct {
	Reason string
	cause  error
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

func (e *RevertError) Unwrap() error { return e.cause }

// ErrorData returns the Error(string) revert payload as hex.
func (e *RevertError) ErrorData() interface{} {
	return hexutil.Encode(EncodeRevert(e.Reason))
}

// NewRevertError returns a revert carrying reason that unwraps to cause.
func NewRevertError(reason string, cause error) *RevertError {
	return &RevertError{Reason: reason, cause: cause}
}

var (
	revertSelector = []byte{0x08, 0xc3, 0x79, 0xa0}
	stringType, _  = abi.NewType("string", "", nil)
)

// EncodeRevert packs reason as Error(string) revert data.
func EncodeRevert(reason string) []byte {
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	return append(append([]byte{}, revertSelector...), packed...)
}

// dataError is implemented by backends that carry revert data.
type dataError interface {
	ErrorData() interface{}
}

// RevertReason extracts the Error(string) reason from err, if any.
func RevertReason(err error) (string, bool) {
	var rev *RevertError
	if errors.As(err, &rev) {
		return rev.Reason, true
	}
	var de dataError
	if !errors.As(err, &de) {
		return "", false
	}
	var data []byte
	switch d := de.ErrorData().(type) {
	case []byte:
		data = d
	case string:
		b, err := hexutil.Decode(d)
		if err != nil {
			return "", false
		}
		data = b
	default:
		return "", false
	}
	reason, uerr := abi.UnpackRevert(data)
	if uerr != nil {
		return "", len(data) == 0
	}
	return reason, true
}

func wrapRevert(err error) error {
	var rev *RevertError
	if errors.As(err, &rev) {
		return err
	}
	if reason, ok := RevertReason(err); ok {
		return &RevertError{Reason: reason, cause: err}
	}
	return fmt.Errorf("contract call failed: %w", err)
}
