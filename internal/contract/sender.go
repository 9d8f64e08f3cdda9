package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TxBackend is what Sender needs to build, submit and confirm transactions.
type TxBackend interface {
	Backend
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// TxSigner signs transactions for one account.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// ErrReverted is returned when a mined transaction has status 0.
var ErrReverted = errors.New("transaction reverted")

// DefaultGasLimit is used when the backend cannot estimate.
const DefaultGasLimit = uint64(200_000)

// Sender sends signed write transactions to contracts.
type Sender struct {
	backend TxBackend
	abi     abi.ABI
	signer  TxSigner

	// PollInterval is the receipt polling period of Wait.
	PollInterval time.Duration
	// FallbackGas replaces DefaultGasLimit when estimation fails.
	FallbackGas uint64
}

// NewSender creates a Sender.
func NewSender(backend TxBackend, contractABI abi.ABI, signer TxSigner) *Sender {
	return &Sender{
		backend:      backend,
		abi:          contractABI,
		signer:       signer,
		PollInterval: 2 * time.Second,
	}
}

// Send packs method(args...) and broadcasts it to contractAddr with value
// attached. The call is dry-run first so reverts surface with their reason
// before any nonce is spent.
func (s *Sender) Send(ctx context.Context, contractAddr common.Address, value *big.Int, method string, args ...interface{}) (*types.Transaction, error) {
	m, ok := s.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, method)
	}
	if m.IsConstant() {
		return nil, fmt.Errorf("function %q is not a write function", method)
	}
	if value != nil && value.Sign() > 0 && !m.IsPayable() {
		return nil, fmt.Errorf("function %q is not payable", method)
	}

	data, err := s.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}
	return s.transact(ctx, &contractAddr, value, data)
}

// Deploy broadcasts a contract creation transaction with the given init code
// (bytecode followed by the packed constructor arguments).
func (s *Sender) Deploy(ctx context.Context, initCode []byte) (*types.Transaction, common.Address, error) {
	tx, err := s.transact(ctx, nil, nil, initCode)
	if err != nil {
		return nil, common.Address{}, err
	}
	return tx, crypto.CreateAddress(s.signer.Address(), tx.Nonce()), nil
}

func (s *Sender) transact(ctx context.Context, to *common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	if value == nil {
		value = new(big.Int)
	}
	from := s.signer.Address()
	msg := ethereum.CallMsg{From: from, To: to, Value: value, Data: data}

	if to != nil {
		if _, err := s.backend.CallContract(ctx, msg, nil); err != nil {
			return nil, wrapRevert(err)
		}
	}

	gas, err := s.backend.EstimateGas(ctx, msg)
	if err != nil || gas == 0 {
		gas = DefaultGasLimit
		if s.FallbackGas > 0 {
			gas = s.FallbackGas
		}
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}

	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting chain id: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        to,
		Value:     value,
		Data:      data,
	})

	signed, err := s.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", err)
	}
	return signed, nil
}

// Wait polls until tx is mined. A receipt with status 0 is returned together
// with ErrReverted.
func (s *Sender) Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return WaitMined(ctx, s.backend, tx.Hash(), s.PollInterval)
}

// WaitMined polls backend for the receipt of hash until ctx is done.
func WaitMined(ctx context.Context, backend TxBackend, hash common.Hash, every time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrReverted, hash.Hex())
			}
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
