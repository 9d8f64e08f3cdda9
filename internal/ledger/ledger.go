// Package ledger is an in-process host for sale contracts. It stands in for
// a chain during simulation and tests: accounts with balances and nonces, a
// block clock, signed and impersonated transactions, receipts with Transfer
// logs and Error(string) reverts.
//
// Every call runs under one mutex against a clone of the contract state. The
// clone replaces the live state only when the call succeeds, so a reverted
// call leaves no trace apart from the consumed nonce.
package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"

	"github.com/Mohsinsiddi/sav3/internal/contract"
	"github.com/Mohsinsiddi/sav3/internal/sale"
)

// DefaultChainID is the Hardhat network chain id.
const DefaultChainID = 31337

// GasPrice is reported to clients. Gas is never charged.
var GasPrice = big.NewInt(params.GWei)

const gasPerTx = uint64(100_000)

var (
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")
	ErrNonceMismatch     = errors.New("invalid nonce")
	ErrNoContract        = errors.New("no contract at address")
)

// Ledger hosts sale contracts and plain accounts.
type Ledger struct {
	mu sync.Mutex

	chainID *big.Int
	clock   sale.Clock
	offset  uint64
	block   uint64

	accounts  map[common.Address]*account
	contracts map[common.Address]*deployment
	receipts  map[common.Hash]*types.Receipt
	dev       []*DevAccount
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the block time source.
func WithClock(c sale.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithChainID overrides DefaultChainID.
func WithChainID(id int64) Option {
	return func(l *Ledger) { l.chainID = big.NewInt(id) }
}

// WithAccounts sets the number of funded dev accounts.
func WithAccounts(n int) Option {
	return func(l *Ledger) { l.dev = DevAccounts(n) }
}

// New creates a Ledger with DefaultDevAccounts funded accounts.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		chainID:   big.NewInt(DefaultChainID),
		clock:     sale.SystemClock,
		accounts:  make(map[common.Address]*account),
		contracts: make(map[common.Address]*deployment),
		receipts:  make(map[common.Hash]*types.Receipt),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.dev == nil {
		l.dev = DevAccounts(DefaultDevAccounts)
	}
	for _, a := range l.dev {
		l.account(a.Address()).balance.Set(DevBalance)
	}
	return l
}

// Accounts returns the funded dev accounts.
func (l *Ledger) Accounts() []*DevAccount {
	return append([]*DevAccount(nil), l.dev...)
}

// Account returns dev account i. It panics when i is out of range.
func (l *Ledger) Account(i int) *DevAccount {
	return l.dev[i]
}

// now is the block time. Callers hold l.mu or run inside a sale call.
func (l *Ledger) now() uint64 {
	return l.clock() + l.offset
}

// Time returns the current block timestamp.
func (l *Ledger) Time() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now()
}

// IncreaseTime moves the block clock forward by d.
func (l *Ledger) IncreaseTime(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.offset += uint64(d / time.Second)
}

// SetClock replaces the time source and clears any IncreaseTime offset.
func (l *Ledger) SetClock(c sale.Clock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = c
	l.offset = 0
}

func (l *Ledger) account(addr common.Address) *account {
	a, ok := l.accounts[addr]
	if !ok {
		a = &account{balance: new(big.Int)}
		l.accounts[addr] = a
	}
	return a
}

// fund adds wei to addr.
func (l *Ledger) fund(addr common.Address, wei *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.account(addr).balance.Add(l.account(addr).balance, wei)
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// Deploy creates a sale contract owned by from.
func (l *Ledger) Deploy(ctx context.Context, from common.Address, v sale.Variant, maxBatchSize, maxSupply uint64) (common.Address, error) {
	code, err := CreationCode(v, maxBatchSize, maxSupply)
	if err != nil {
		return common.Address{}, err
	}
	receipt, err := l.Transact(ctx, ethereum.CallMsg{From: from, Data: code})
	if err != nil {
		return common.Address{}, err
	}
	return receipt.ContractAddress, nil
}

// Transact executes msg as if signed by msg.From. A reverted call still
// returns its receipt (status 0) together with a *contract.RevertError.
func (l *Ledger) Transact(ctx context.Context, msg ethereum.CallMsg) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	nonce := l.account(msg.From).nonce
	hash := crypto.Keccak256Hash(msg.From.Bytes(), binary.BigEndian.AppendUint64(nil, nonce), msg.Data)
	return l.execute(msg.From, msg.To, msg.Value, msg.Data, hash)
}

// SendTransaction executes a signed transaction. The sender is recovered from
// the signature. Reverts are not errors here: they are reported through the
// receipt, as on a real chain.
func (l *Ledger) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := types.Sender(types.LatestSignerForChainID(l.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if want := l.account(from).nonce; tx.Nonce() != want {
		return fmt.Errorf("%w: have %d, want %d", ErrNonceMismatch, tx.Nonce(), want)
	}
	if _, ok := l.receipts[tx.Hash()]; ok {
		return fmt.Errorf("already known: %s", tx.Hash().Hex())
	}
	_, err = l.execute(from, tx.To(), tx.Value(), tx.Data(), tx.Hash())
	var rev *contract.RevertError
	if errors.As(err, &rev) {
		return nil
	}
	return err
}

// execute runs one transaction. Callers hold l.mu.
func (l *Ledger) execute(from common.Address, to *common.Address, value *big.Int, data []byte, hash common.Hash) (*types.Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}
	sender := l.account(from)
	if sender.balance.Cmp(value) < 0 {
		return nil, fmt.Errorf("%w: address %s have %s want %s", ErrInsufficientFunds, from.Hex(), sender.balance, value)
	}

	nonce := sender.nonce
	sender.nonce++
	l.block++

	receipt := &types.Receipt{
		Type:        types.DynamicFeeTxType,
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		GasUsed:     gasPerTx,
		BlockNumber: new(big.Int).SetUint64(l.block),
		Logs:        []*types.Log{},
	}
	l.receipts[hash] = receipt

	var err error
	switch {
	case to == nil:
		receipt.ContractAddress = crypto.CreateAddress(from, nonce)
		err = l.create(from, receipt.ContractAddress, value, data)
	case l.contracts[*to] != nil:
		err = l.invoke(receipt, from, *to, value, data)
	default:
		sender.balance.Sub(sender.balance, value)
		l.account(*to).balance.Add(l.account(*to).balance, value)
	}
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.Logs = []*types.Log{}
		return receipt, toRevert(err)
	}
	return receipt, nil
}

func (l *Ledger) create(from, addr common.Address, value *big.Int, code []byte) error {
	if value.Sign() > 0 {
		return errors.New("constructor is not payable")
	}
	d, err := newDeployment(code, from, l.now)
	if err != nil {
		return err
	}
	l.contracts[addr] = d
	return nil
}

func (l *Ledger) invoke(receipt *types.Receipt, from, to common.Address, value *big.Int, data []byte) error {
	d := l.contracts[to]
	res, err := d.run(from, value, data)
	if err != nil {
		return err
	}
	d.sale = res.state

	sender := l.account(from)
	sender.balance.Sub(sender.balance, value)
	if res.payout != nil {
		owner := l.account(d.sale.Owner())
		owner.balance.Add(owner.balance, res.payout)
	}
	for _, ev := range res.events {
		receipt.Logs = append(receipt.Logs, &types.Log{
			Address: to,
			Topics: []common.Hash{
				d.abi.Events["Transfer"].ID,
				common.BytesToHash(ev.From.Bytes()),
				common.BytesToHash(ev.To.Bytes()),
				common.BigToHash(new(big.Int).SetUint64(ev.TokenID)),
			},
			BlockNumber: receipt.BlockNumber.Uint64(),
			TxHash:      receipt.TxHash,
			Index:       uint(len(receipt.Logs)),
		})
	}
	return nil
}

func toRevert(err error) error {
	var rev *contract.RevertError
	if errors.As(err, &rev) {
		return err
	}
	return contract.NewRevertError(err.Error(), err)
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// CallContract runs msg against a throwaway copy of the state and returns the
// packed output. Calls to accounts without code return nothing.
func (l *Ledger) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.To == nil {
		if _, err := newDeployment(msg.Data, msg.From, l.now); err != nil {
			return nil, toRevert(err)
		}
		return nil, nil
	}
	d := l.contracts[*msg.To]
	if d == nil {
		return nil, nil
	}
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}
	res, err := d.run(msg.From, value, msg.Data)
	if err != nil {
		return nil, toRevert(err)
	}
	return res.output, nil
}

// EstimateGas fails the way CallContract does and otherwise returns a flat
// amount.
func (l *Ledger) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if _, err := l.CallContract(ctx, msg, nil); err != nil {
		return 0, err
	}
	return gasPerTx, nil
}

func (l *Ledger) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(l.chainID), nil
}

func (l *Ledger) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(GasPrice), nil
}

func (l *Ledger) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	return l.NonceAt(ctx, addr, nil)
}

func (l *Ledger) NonceAt(_ context.Context, addr common.Address, _ *big.Int) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[addr]; ok {
		return a.nonce, nil
	}
	return 0, nil
}

// BalanceAt returns the balance of addr. A contract's balance is its unspent
// sale proceeds.
func (l *Ledger) BalanceAt(_ context.Context, addr common.Address, _ *big.Int) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := l.contracts[addr]; ok {
		return d.sale.Proceeds(), nil
	}
	if a, ok := l.accounts[addr]; ok {
		return new(big.Int).Set(a.balance), nil
	}
	return new(big.Int), nil
}

func (l *Ledger) BlockNumber(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.block, nil
}

// TransactionReceipt returns ethereum.NotFound for unknown hashes.
func (l *Ledger) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// Sale returns a copy of the contract state at addr. The copy reads the
// block time of the moment it was taken.
func (l *Ledger) Sale(addr common.Address) (*sale.Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.contracts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoContract, addr.Hex())
	}
	c := d.sale.Clone()
	now := l.now()
	c.SetClock(func() uint64 { return now })
	return c, nil
}

var _ contract.TxBackend = (*Ledger)(nil)
