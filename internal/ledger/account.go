package ledger

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// DefaultDevAccounts is the number of funded accounts a new Ledger holds.
const DefaultDevAccounts = 20

// DevBalance is the starting balance of every dev account (10 000 ETH).
var DevBalance = new(big.Int).Mul(big.NewInt(10_000), big.NewInt(params.Ether))

// DevAccount is a funded local account with a known private key.
type DevAccount struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewDevAccount wraps key.
func NewDevAccount(key *ecdsa.PrivateKey) *DevAccount {
	return &DevAccount{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address returns the account address.
func (a *DevAccount) Address() common.Address { return a.addr }

// PrivateKey returns the signing key.
func (a *DevAccount) PrivateKey() *ecdsa.PrivateKey { return a.key }

// SignTx signs tx with the latest signer for chainID.
func (a *DevAccount) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), a.key)
}

// DevAccounts derives n deterministic accounts. The same n always yields the
// same keys, so addresses are stable across runs.
func DevAccounts(n int) []*DevAccount {
	out := make([]*DevAccount, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NewDevAccount(devKey(i)))
	}
	return out
}

func devKey(i int) *ecdsa.PrivateKey {
	seed := crypto.Keccak256([]byte(fmt.Sprintf("sav3 dev account %d", i)))
	for {
		key, err := crypto.ToECDSA(seed)
		if err == nil {
			return key
		}
		seed = crypto.Keccak256(seed)
	}
}

type account struct {
	balance *big.Int
	nonce   uint64
}
