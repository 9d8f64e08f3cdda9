package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/sav3/internal/contract"
	"github.com/Mohsinsiddi/sav3/internal/sale"
)

// SaleSession is a sale contract bound to a caller, the way a contract
// object connected to a signer is used in deployment scripts. Every method
// goes through ABI encoding and the ledger, so it exercises exactly what an
// external client would.
type SaleSession struct {
	ledger  *Ledger
	address common.Address
	variant sale.Variant
	abi     abi.ABI
	from    common.Address
	ctx     context.Context
}

// Bind returns a session for the contract at addr acting as from.
func (l *Ledger) Bind(addr, from common.Address) (*SaleSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.contracts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoContract, addr.Hex())
	}
	return &SaleSession{
		ledger:  l,
		address: addr,
		variant: d.sale.Variant(),
		abi:     d.abi,
		from:    from,
		ctx:     context.Background(),
	}, nil
}

// Connect returns a copy of s acting as from.
func (s *SaleSession) Connect(from common.Address) *SaleSession {
	cp := *s
	cp.from = from
	return &cp
}

// WithContext returns a copy of s whose calls use ctx.
func (s *SaleSession) WithContext(ctx context.Context) *SaleSession {
	cp := *s
	cp.ctx = ctx
	return &cp
}

func (s *SaleSession) Address() common.Address {
	return s.address
}

func (s *SaleSession) From() common.Address {
	return s.from
}

func (s *SaleSession) Variant() sale.Variant {
	return s.variant
}

// Transact sends method(args...) with value attached.
func (s *SaleSession) Transact(value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := s.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	return s.ledger.Transact(s.ctx, ethereum.CallMsg{
		From:  s.from,
		To:    &s.address,
		Value: value,
		Data:  data,
	})
}

// Call runs a read-only method and returns its decoded outputs.
func (s *SaleSession) Call(method string, args ...interface{}) ([]interface{}, error) {
	return contract.NewCaller(s.ledger, s.abi).From(s.from).Call(s.ctx, s.address, method, args...)
}

func (s *SaleSession) callUint(method string, args ...interface{}) (uint64, error) {
	out, err := s.Call(method, args...)
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

func (s *SaleSession) callBool(method string) (bool, error) {
	out, err := s.Call(method)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// ---------------------------------------------------------------------------
// Per-phase method names
// ---------------------------------------------------------------------------

type phaseMethods struct {
	mint, price, setPrice, root, setRoot, isOn, started, setTime, getTime, count string
}

var methodsByPhase = [...]phaseMethods{
	sale.PreSale: {
		mint: "preSaleMint", price: "preSalePrice", setPrice: "setPreSalePrice",
		root: "preSaleMerkleRoot", setRoot: "setPreSaleMerkleRoot", isOn: "isPreSaleOn",
		started: "setPreSaleMintStarted", setTime: "setPreSaleTime", getTime: "getPreSaleTime",
		count: "preSaleMintCount",
	},
	sale.Whitelist: {
		mint: "whitelistMint", price: "whitelistPrice", setPrice: "setWhitelistPrice",
		root: "whitelistMerkleRoot", setRoot: "setWhitelistMerkleRoot", isOn: "isWhitelistSaleOn",
		started: "setWhitelistMintStarted", setTime: "setWhitelistSaleTime", getTime: "getWhitelistSaleTime",
		count: "whitelistMintCount",
	},
	sale.Public: {
		mint: "publicMint", price: "publicPrice", setPrice: "setPublicPrice",
		isOn: "isPublicSaleOn", started: "setPublicMintStarted",
		setTime: "setPublicSaleTime", getTime: "getPublicSaleTime",
	},
}

// ---------------------------------------------------------------------------
// Mints
// ---------------------------------------------------------------------------

// Mint mints count tokens in phase p, paying value. proof is ignored for the
// public phase.
func (s *SaleSession) Mint(p sale.Phase, count uint64, proof []common.Hash, value *big.Int) (*types.Receipt, error) {
	q := new(big.Int).SetUint64(count)
	if p == sale.Public {
		return s.Transact(value, methodsByPhase[p].mint, q)
	}
	return s.Transact(value, methodsByPhase[p].mint, q, hashes(proof))
}

func (s *SaleSession) PreSaleMint(count uint64, proof []common.Hash, value *big.Int) (*types.Receipt, error) {
	return s.Mint(sale.PreSale, count, proof, value)
}

func (s *SaleSession) WhitelistMint(count uint64, proof []common.Hash, value *big.Int) (*types.Receipt, error) {
	return s.Mint(sale.Whitelist, count, proof, value)
}

func (s *SaleSession) PublicMint(count uint64, value *big.Int) (*types.Receipt, error) {
	return s.Mint(sale.Public, count, nil, value)
}

func (s *SaleSession) ReservedMint(count uint64, to common.Address) (*types.Receipt, error) {
	return s.Transact(nil, "reservedMint", new(big.Int).SetUint64(count), to)
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func (s *SaleSession) Pause() (*types.Receipt, error) {
	return s.Transact(nil, "pause")
}

func (s *SaleSession) Unpause() (*types.Receipt, error) {
	return s.Transact(nil, "unpause")
}

func (s *SaleSession) Withdraw() (*types.Receipt, error) {
	return s.Transact(nil, "withdraw")
}

func (s *SaleSession) SetReservedQuantity(n uint64) (*types.Receipt, error) {
	return s.Transact(nil, "setReservedQuantity", new(big.Int).SetUint64(n))
}

func (s *SaleSession) SetPrice(p sale.Phase, wei *big.Int) (*types.Receipt, error) {
	return s.Transact(nil, methodsByPhase[p].setPrice, wei)
}

func (s *SaleSession) SetMerkleRoot(p sale.Phase, root common.Hash) (*types.Receipt, error) {
	if methodsByPhase[p].setRoot == "" {
		return nil, sale.ErrNoAllowlist
	}
	return s.Transact(nil, methodsByPhase[p].setRoot, [32]byte(root))
}

// SetMintStarted flips the flag of p on a flag-variant sale.
func (s *SaleSession) SetMintStarted(p sale.Phase, started bool) (*types.Receipt, error) {
	return s.Transact(nil, methodsByPhase[p].started, started)
}

// SetSaleTime sets the window of p on a window-variant sale.
func (s *SaleSession) SetSaleTime(p sale.Phase, start, end uint64) (*types.Receipt, error) {
	return s.Transact(nil, methodsByPhase[p].setTime, new(big.Int).SetUint64(start), new(big.Int).SetUint64(end))
}

// Open switches phase p on whichever way the variant requires. A window sale
// gets a window that started at the current block time and lasts d seconds.
func (s *SaleSession) Open(p sale.Phase, d uint64) (*types.Receipt, error) {
	if s.variant == sale.VariantFlag {
		return s.SetMintStarted(p, true)
	}
	now := s.ledger.Time()
	return s.SetSaleTime(p, now, now+d)
}

// Close switches phase p off.
func (s *SaleSession) Close(p sale.Phase) (*types.Receipt, error) {
	if s.variant == sale.VariantFlag {
		return s.SetMintStarted(p, false)
	}
	return s.SetSaleTime(p, 0, 0)
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

func (s *SaleSession) Owner() (common.Address, error) {
	out, err := s.Call("owner")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (s *SaleSession) OwnerOf(tokenID uint64) (common.Address, error) {
	out, err := s.Call("ownerOf", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (s *SaleSession) Paused() (bool, error) {
	return s.callBool("paused")
}

func (s *SaleSession) IsOn(p sale.Phase) (bool, error) {
	return s.callBool(methodsByPhase[p].isOn)
}

func (s *SaleSession) TotalSupply() (uint64, error) {
	return s.callUint("totalSupply")
}

func (s *SaleSession) MaxSupply() (uint64, error) {
	return s.callUint("maxSupply")
}

func (s *SaleSession) MaxBatchSize() (uint64, error) {
	return s.callUint("maxBatchSize")
}

func (s *SaleSession) ReservedQuantity() (uint64, error) {
	return s.callUint("reservedQuantity")
}

func (s *SaleSession) UsedReservedQuantity() (uint64, error) {
	return s.callUint("usedReservedQuantity")
}

func (s *SaleSession) BalanceOf(addr common.Address) (uint64, error) {
	return s.callUint("balanceOf", addr)
}

// MintedIn returns how many tokens addr minted in an allowlisted phase.
func (s *SaleSession) MintedIn(p sale.Phase, addr common.Address) (uint64, error) {
	if methodsByPhase[p].count == "" {
		return 0, sale.ErrNoAllowlist
	}
	return s.callUint(methodsByPhase[p].count, addr)
}

func (s *SaleSession) Price(p sale.Phase) (*big.Int, error) {
	out, err := s.Call(methodsByPhase[p].price)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (s *SaleSession) MerkleRoot(p sale.Phase) (common.Hash, error) {
	if methodsByPhase[p].root == "" {
		return common.Hash{}, sale.ErrNoAllowlist
	}
	out, err := s.Call(methodsByPhase[p].root)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(out[0].([32]byte)), nil
}

// SaleTime returns the window of p on a window-variant sale.
func (s *SaleSession) SaleTime(p sale.Phase) (start, end uint64, err error) {
	out, err := s.Call(methodsByPhase[p].getTime)
	if err != nil {
		return 0, 0, err
	}
	return out[0].(*big.Int).Uint64(), out[1].(*big.Int).Uint64(), nil
}

// Balance returns the ether balance of addr.
func (s *SaleSession) Balance(addr common.Address) (*big.Int, error) {
	return s.ledger.BalanceAt(s.ctx, addr, nil)
}

func hashes(in []common.Hash) [][32]byte {
	out := make([][32]byte, len(in))
	for i, h := range in {
		out[i] = h
	}
	return out
}
