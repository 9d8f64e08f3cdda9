package wallet_test

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/sav3/internal/wallet"
)

const (
	hardhatKey0  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddr0 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	hardhatAddr1 = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func TestAddWatchOnlyWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	require.NoError(t, mgr.Add("treasury", strings.ToLower(hardhatAddr1)))

	w, err := mgr.Get("treasury")
	require.NoError(t, err)
	assert.Equal(t, "treasury", w.Name)
	assert.Equal(t, wallet.TypeWatchOnly, w.Type)
	assert.Equal(t, hardhatAddr1, w.Address, "stored checksummed")
	assert.NotEmpty(t, w.CreatedAt)
}

func TestAddInvalidAddress(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	assert.ErrorIs(t, mgr.Add("bad", "0x123"), wallet.ErrInvalidAddress)
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	require.NoError(t, mgr.Add("dup", hardhatAddr1))
	assert.ErrorIs(t, mgr.Add("dup", hardhatAddr1), wallet.ErrWalletExists)
	assert.ErrorIs(t, mgr.AddWithKey("dup", hardhatKey0), wallet.ErrWalletExists)
}

func TestAddSigningWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	require.NoError(t, mgr.AddWithKey("signer", hardhatKey0))

	w, err := mgr.Get("signer")
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.Equal(t, hardhatAddr0, w.Address) // known address for test key
	assert.Equal(t, "sav3.signer", w.KeyRef)
}

func TestInvalidPrivateKey(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	assert.ErrorIs(t, mgr.AddWithKey("bad", "not-a-valid-key"), wallet.ErrInvalidKey)

	_, err := mgr.Get("bad")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestListWalletsSorted(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("w2", hardhatAddr1) //nolint:errcheck
	mgr.Add("w1", hardhatAddr0) //nolint:errcheck

	list, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "w1", list[0].Name)
	assert.Equal(t, "w2", list[1].Name)
}

func TestRemoveWalletDeletesKey(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))

	require.NoError(t, mgr.AddWithKey("gone", hardhatKey0))
	require.NoError(t, mgr.Remove("gone"))

	_, err := mgr.Get("gone")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	_, err = ks.Retrieve("sav3.gone")
	assert.Error(t, err)

	assert.ErrorIs(t, mgr.Remove("gone"), wallet.ErrWalletNotFound)
}

func TestSetDefault(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("a", hardhatAddr0) //nolint:errcheck
	mgr.Add("b", hardhatAddr1) //nolint:errcheck

	assert.Nil(t, mgr.Default(), "no default among several wallets")

	require.NoError(t, mgr.SetDefault("b"))
	assert.Equal(t, "b", mgr.Default().Name)

	require.NoError(t, mgr.SetDefault("a"))
	assert.Equal(t, "a", mgr.Default().Name)

	assert.ErrorIs(t, mgr.SetDefault("zzz"), wallet.ErrWalletNotFound)
}

func TestDefaultWalletWithSingleWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("only", hardhatAddr0) //nolint:errcheck
	assert.Equal(t, "only", mgr.Default().Name)
}

// ---------------------------------------------------------------------------
// Generate
// ---------------------------------------------------------------------------

func TestGenerateWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	w, hexKey, err := mgr.Generate("fresh")
	require.NoError(t, err)

	assert.Equal(t, "fresh", w.Name)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.True(t, strings.HasPrefix(w.Address, "0x"))
	assert.Len(t, w.Address, 42)

	// Key must be "0x" + 64 hex chars.
	assert.True(t, strings.HasPrefix(hexKey, "0x"))
	assert.Len(t, hexKey, 66)

	s, err := wallet.NewKeySigner(hexKey)
	require.NoError(t, err)
	assert.Equal(t, w.Address, s.Address().Hex())
}

func TestGenerateDuplicateErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, _, err := mgr.Generate("dup")
	require.NoError(t, err)

	_, _, err = mgr.Generate("dup")
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

// ---------------------------------------------------------------------------
// Signer
// ---------------------------------------------------------------------------

func TestManagerSigner(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	require.NoError(t, mgr.AddWithKey("deployer", hardhatKey0))
	require.NoError(t, mgr.Add("watch", hardhatAddr1))

	s, err := mgr.Signer("deployer")
	require.NoError(t, err)

	tx := types.NewTransaction(0, s.Address(), big.NewInt(1), 21000, big.NewInt(1e9), nil)
	signed, err := s.SignTx(tx, big.NewInt(5))
	require.NoError(t, err)
	from, err := types.Sender(types.NewLondonSigner(big.NewInt(5)), signed)
	require.NoError(t, err)
	assert.Equal(t, hardhatAddr0, from.Hex())

	_, err = mgr.Signer("watch")
	assert.ErrorIs(t, err, wallet.ErrWatchOnly)
	_, err = mgr.Signer("ghost")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}
