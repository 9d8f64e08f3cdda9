package contract

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseArgs converts command-line strings into the Go values abi.Pack expects
// for args. Array arguments are written as a JSON array or a comma-separated
// list: "[0xab..,0xcd..]" or "0xab..,0xcd..".
func ParseArgs(args abi.Arguments, raw []string) ([]interface{}, error) {
	if len(raw) != len(args) {
		return nil, fmt.Errorf("expected %d argument(s), got %d", len(args), len(raw))
	}
	out := make([]interface{}, len(args))
	for i, a := range args {
		v, err := ParseArg(a.Type, raw[i])
		if err != nil {
			name := a.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, a.Type.String(), err)
		}
		out[i] = v
	}
	return out, nil
}

// ParseArg converts s into a value of ABI type t.
func ParseArg(t abi.Type, s string) (interface{}, error) {
	s = strings.TrimSpace(s)
	switch t.T {
	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for unsigned type", s)
		}
		if t.Size > 64 {
			return n, nil
		}
		if t.T == abi.UintTy {
			if n.BitLen() > t.Size {
				return nil, fmt.Errorf("%s overflows uint%d", s, t.Size)
			}
			return reflect.ValueOf(n.Uint64()).Convert(t.GetType()).Interface(), nil
		}
		if !n.IsInt64() || n.BitLen() >= t.Size {
			return nil, fmt.Errorf("%s overflows int%d", s, t.Size)
		}
		return reflect.ValueOf(n.Int64()).Convert(t.GetType()).Interface(), nil

	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil

	case abi.BoolTy:
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, fmt.Errorf("invalid bool %q", s)

	case abi.StringTy:
		return s, nil

	case abi.BytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes %q: %w", s, err)
		}
		return b, nil

	case abi.FixedBytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes%d %q: %w", t.Size, s, err)
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%d bytes do not fit in bytes%d", len(b), t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.SliceTy, abi.ArrayTy:
		items, err := splitList(s)
		if err != nil {
			return nil, err
		}
		if t.T == abi.ArrayTy && len(items) != t.Size {
			return nil, fmt.Errorf("expected %d element(s), got %d", t.Size, len(items))
		}
		var list reflect.Value
		if t.T == abi.SliceTy {
			list = reflect.MakeSlice(t.GetType(), len(items), len(items))
		} else {
			list = reflect.New(t.GetType()).Elem()
		}
		for i, item := range items {
			v, err := ParseArg(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list.Index(i).Set(reflect.ValueOf(v))
		}
		return list.Interface(), nil
	}
	return nil, fmt.Errorf("unsupported ABI type %s", t.String())
}

func splitList(s string) ([]string, error) {
	if strings.HasPrefix(s, "[") {
		var items []string
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			return items, nil
		}
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(parts[i]), `"`)
	}
	return parts, nil
}

// FormatValue renders a decoded ABI value for display.
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case *big.Int:
		return x.String()
	case common.Address:
		return x.Hex()
	case common.Hash:
		return x.Hex()
	case [32]byte:
		return hexutil.Encode(x[:])
	case []byte:
		return hexutil.Encode(x)
	case bool:
		return fmt.Sprintf("%t", x)
	case string:
		return x
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 && rv.Kind() == reflect.Array {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return hexutil.Encode(b)
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}

var units = map[string]int{
	"wei":   0,
	"gwei":  9,
	"ether": 18,
	"eth":   18,
}

// ParseValue parses an amount such as "0.1eth", "25gwei", "70000wei" or
// "70000" (wei) into wei.
func ParseValue(s string) (*big.Int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return new(big.Int), nil
	}
	decimals := 0
	for _, unit := range []string{"gwei", "ether", "eth", "wei"} {
		if strings.HasSuffix(s, unit) {
			decimals = units[unit]
			s = strings.TrimSpace(strings.TrimSuffix(s, unit))
			break
		}
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > decimals {
		return nil, fmt.Errorf("too many decimal places in %q", s)
	}
	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}
