package ledger

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/sav3/internal/contract"
	"github.com/Mohsinsiddi/sav3/internal/sale"
)

var (
	errSelector      = errors.New("function selector was not recognized")
	errNonPayable    = errors.New("function is not payable")
	errUnknownCode   = errors.New("creation code is not a known sale")
	errNotDispatched = errors.New("method has no handler")
)

// deployment is a sale hosted at one address.
type deployment struct {
	sale *sale.Sale
	abi  abi.ABI
}

// CreationCode returns the init code the ledger accepts for a sale: the
// builtin id followed by the packed constructor arguments.
func CreationCode(v sale.Variant, maxBatchSize, maxSupply uint64) ([]byte, error) {
	kind := contract.ForVariant(v)
	args, err := contract.SaleABI(v).Pack("",
		new(big.Int).SetUint64(maxBatchSize),
		new(big.Int).SetUint64(maxSupply),
	)
	if err != nil {
		return nil, err
	}
	return append([]byte(kind.ID), args...), nil
}

func newDeployment(code []byte, owner common.Address, clock sale.Clock) (*deployment, error) {
	const argsLen = 64
	if len(code) <= argsLen {
		return nil, errUnknownCode
	}
	kind, ok := contract.GetBuiltin(string(code[:len(code)-argsLen]))
	if !ok {
		return nil, errUnknownCode
	}
	parsed := contract.SaleABI(kind.Variant)
	args, err := parsed.Constructor.Inputs.Unpack(code[len(code)-argsLen:])
	if err != nil {
		return nil, fmt.Errorf("decoding constructor arguments: %w", err)
	}
	s, err := sale.New(owner, toUint64(args[0]), toUint64(args[1]),
		sale.WithVariant(kind.Variant),
		sale.WithClock(clock),
	)
	if err != nil {
		return nil, err
	}
	return &deployment{sale: s, abi: parsed}, nil
}

type result struct {
	state  *sale.Sale
	output []byte
	events []sale.Transfer
	payout *big.Int
}

// run decodes data and executes it against a clone of the sale.
func (d *deployment) run(from common.Address, value *big.Int, data []byte) (*result, error) {
	if len(data) < 4 {
		return nil, errSelector
	}
	method, err := d.abi.MethodById(data[:4])
	if err != nil {
		return nil, errSelector
	}
	if value.Sign() > 0 && !method.IsPayable() {
		return nil, errNonPayable
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("decoding %s arguments: %w", method.Name, err)
	}
	h, ok := handlers[method.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotDispatched, method.Name)
	}

	c := &call{
		sale: d.sale.Clone(),
		msg:  sale.Msg{Sender: from, Value: new(big.Int).Set(value)},
		args: args,
	}
	out, err := h(c)
	if err != nil {
		return nil, err
	}
	packed, err := method.Outputs.Pack(out...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s result: %w", method.Name, err)
	}
	return &result{
		state:  c.sale,
		output: packed,
		events: c.sale.DrainEvents(),
		payout: c.payout,
	}, nil
}

// call is one method invocation.
type call struct {
	sale   *sale.Sale
	msg    sale.Msg
	args   []interface{}
	payout *big.Int
}

func (c *call) num(i int) uint64 {
	return toUint64(c.args[i])
}

func (c *call) wei(i int) *big.Int {
	return c.args[i].(*big.Int)
}

func (c *call) addr(i int) common.Address {
	return c.args[i].(common.Address)
}

func (c *call) flag(i int) bool {
	return c.args[i].(bool)
}

func (c *call) hash(i int) common.Hash {
	return common.Hash(c.args[i].([32]byte))
}

func (c *call) proof(i int) []common.Hash {
	raw := c.args[i].([][32]byte)
	out := make([]common.Hash, len(raw))
	for j, h := range raw {
		out[j] = h
	}
	return out
}

// toUint64 saturates: a uint256 above the uint64 range behaves like the
// largest quantity or timestamp, which every bound check rejects or which
// lies beyond any reachable block time.
func toUint64(v interface{}) uint64 {
	b := v.(*big.Int)
	if !b.IsUint64() {
		return math.MaxUint64
	}
	return b.Uint64()
}

type handler func(c *call) ([]interface{}, error)

func none(err error) ([]interface{}, error) {
	return nil, err
}

func ret(v ...interface{}) ([]interface{}, error) {
	return v, nil
}

func u256(n uint64) *big.Int {
	return new(big.Int).SetUint64(n)
}

var phasePrefixes = map[string]sale.Phase{
	"preSale":   sale.PreSale,
	"whitelist": sale.Whitelist,
	"public":    sale.Public,
}

var handlers = map[string]handler{
	// views
	"owner":        func(c *call) ([]interface{}, error) { return ret(c.sale.Owner()) },
	"paused":       func(c *call) ([]interface{}, error) { return ret(c.sale.Paused()) },
	"totalSupply":  func(c *call) ([]interface{}, error) { return ret(u256(c.sale.TotalSupply())) },
	"maxSupply":    func(c *call) ([]interface{}, error) { return ret(u256(c.sale.MaxSupply())) },
	"maxBatchSize": func(c *call) ([]interface{}, error) { return ret(u256(c.sale.MaxBatchSize())) },
	"balanceOf": func(c *call) ([]interface{}, error) {
		if c.addr(0) == (common.Address{}) {
			return nil, errors.New("balance query for the zero address")
		}
		return ret(u256(c.sale.BalanceOf(c.addr(0))))
	},
	"ownerOf": func(c *call) ([]interface{}, error) {
		o, err := c.sale.OwnerOf(c.num(0))
		if err != nil {
			return nil, err
		}
		return ret(o)
	},
	"reservedQuantity":     func(c *call) ([]interface{}, error) { return ret(u256(c.sale.ReservedQuantity())) },
	"usedReservedQuantity": func(c *call) ([]interface{}, error) { return ret(u256(c.sale.UsedReservedQuantity())) },
	"preSaleMintCount": func(c *call) ([]interface{}, error) {
		return ret(u256(c.sale.MintedIn(sale.PreSale, c.addr(0))))
	},
	"whitelistMintCount": func(c *call) ([]interface{}, error) {
		return ret(u256(c.sale.MintedIn(sale.Whitelist, c.addr(0))))
	},

	// admin
	"pause":   func(c *call) ([]interface{}, error) { return none(c.sale.Pause(c.msg)) },
	"unpause": func(c *call) ([]interface{}, error) { return none(c.sale.Unpause(c.msg)) },
	"setReservedQuantity": func(c *call) ([]interface{}, error) {
		return none(c.sale.SetReservedQuantity(c.msg, c.num(0)))
	},
	"reservedMint": func(c *call) ([]interface{}, error) {
		return none(c.sale.ReservedMint(c.msg, c.num(0), c.addr(1)))
	},
	"withdraw": func(c *call) ([]interface{}, error) {
		amount, err := c.sale.Withdraw(c.msg)
		if err != nil {
			return nil, err
		}
		c.payout = amount
		return nil, nil
	},

	// mints
	"preSaleMint": func(c *call) ([]interface{}, error) {
		return none(c.sale.PreSaleMint(c.msg, c.num(0), c.proof(1)))
	},
	"whitelistMint": func(c *call) ([]interface{}, error) {
		return none(c.sale.WhitelistMint(c.msg, c.num(0), c.proof(1)))
	},
	"publicMint": func(c *call) ([]interface{}, error) {
		return none(c.sale.PublicMint(c.msg, c.num(0)))
	},
}

// The per-phase entries differ only in the phase they address, so they are
// generated from the method name prefixes.
func init() {
	for prefix, p := range phasePrefixes {
		handlers[prefix+"Price"] = func(c *call) ([]interface{}, error) { return ret(c.sale.Price(p)) }
		handlers["set"+title(prefix)+"Price"] = func(c *call) ([]interface{}, error) {
			return none(c.sale.SetPrice(c.msg, p, c.wei(0)))
		}
		handlers[isOnMethod(p)] = func(c *call) ([]interface{}, error) { return ret(c.sale.IsOn(p)) }
		handlers["set"+title(prefix)+"MintStarted"] = func(c *call) ([]interface{}, error) {
			return none(c.sale.SetMintStarted(c.msg, p, c.flag(0)))
		}
		handlers["set"+saleTimeName(prefix)] = func(c *call) ([]interface{}, error) {
			return none(c.sale.SetSaleTime(c.msg, p, c.num(0), c.num(1)))
		}
		handlers["get"+saleTimeName(prefix)] = func(c *call) ([]interface{}, error) {
			start, end, err := c.sale.SaleTime(p)
			if err != nil {
				return nil, err
			}
			return ret(u256(start), u256(end))
		}
		if p == sale.Public {
			continue
		}
		handlers[prefix+"MerkleRoot"] = func(c *call) ([]interface{}, error) {
			return ret([32]byte(c.sale.MerkleRoot(p)))
		}
		handlers["set"+title(prefix)+"MerkleRoot"] = func(c *call) ([]interface{}, error) {
			return none(c.sale.SetMerkleRoot(c.msg, p, c.hash(0)))
		}
	}
}

func title(s string) string {
	return strings.ToUpper(s[:1]) + s[1:]
}

// isOnMethod returns the view name reporting whether p is open:
// isPreSaleOn, isWhitelistSaleOn or isPublicSaleOn.
func isOnMethod(p sale.Phase) string {
	if p == sale.PreSale {
		return "isPreSaleOn"
	}
	return "is" + title(p.String()) + "SaleOn"
}

// saleTimeName maps a prefix to PreSaleTime, WhitelistSaleTime or
// PublicSaleTime.
func saleTimeName(prefix string) string {
	if prefix == "preSale" {
		return "PreSaleTime"
	}
	return title(prefix) + "SaleTime"
}
