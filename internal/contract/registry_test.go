package contract_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/sav3/internal/contract"
)

func newRegistry(t *testing.T) *contract.Registry {
	t.Helper()
	return contract.NewRegistry(filepath.Join(t.TempDir(), "deployments.json"))
}

func TestNewRegistryEmpty(t *testing.T) {
	assert.Empty(t, newRegistry(t).All())
}

func TestRegistryAddAndGet(t *testing.T) {
	reg := newRegistry(t)
	reg.Add(&contract.Entry{
		Name:    "sav3",
		Network: "goerli",
		Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Builtin: "sav3",
		Args:    []string{"5", "5000"},
	})

	got, err := reg.Get("sav3", "goerli")
	require.NoError(t, err)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", got.Address)
	assert.Equal(t, []string{"5", "5000"}, got.Args)
}

func TestRegistryGetNotFound(t *testing.T) {
	reg := newRegistry(t)
	reg.Add(&contract.Entry{Name: "sav3", Network: "goerli"})

	_, err := reg.Get("sav3", "mainnet")
	assert.ErrorIs(t, err, contract.ErrContractNotFound)
	_, err = reg.Get("sw3", "goerli")
	assert.ErrorIs(t, err, contract.ErrContractNotFound)
}

func TestRegistryAddOverwritesExisting(t *testing.T) {
	reg := newRegistry(t)
	reg.Add(&contract.Entry{Name: "sav3", Network: "goerli", Address: "0xOLD"})
	reg.Add(&contract.Entry{Name: "sav3", Network: "goerli", Address: "0xNEW"})

	got, err := reg.Get("sav3", "goerli")
	require.NoError(t, err)
	assert.Equal(t, "0xNEW", got.Address)
	assert.Len(t, reg.All(), 1)
}

func TestRegistryAllSorted(t *testing.T) {
	reg := newRegistry(t)
	reg.Add(&contract.Entry{Name: "sw3", Network: "rinkeby"})
	reg.Add(&contract.Entry{Name: "sav3", Network: "rinkeby"})
	reg.Add(&contract.Entry{Name: "sav3", Network: "goerli"})

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "goerli", all[0].Network)
	assert.Equal(t, "sav3", all[1].Name)
	assert.Equal(t, "sw3", all[2].Name)
}

func TestRegistryRemove(t *testing.T) {
	reg := newRegistry(t)
	reg.Add(&contract.Entry{Name: "sav3", Network: "goerli"})
	reg.Add(&contract.Entry{Name: "sav3", Network: "mainnet"})

	require.NoError(t, reg.Remove("sav3", "goerli"))
	_, err := reg.Get("sav3", "goerli")
	assert.ErrorIs(t, err, contract.ErrContractNotFound)
	_, err = reg.Get("sav3", "mainnet")
	assert.NoError(t, err)

	assert.ErrorIs(t, reg.Remove("ghost", "goerli"), contract.ErrContractNotFound)
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")
	reg := contract.NewRegistry(path)
	reg.Add(&contract.Entry{Name: "sav3", Network: "goerli", Address: "0xabc", TxHash: "0x01", Block: 7})
	require.NoError(t, reg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded := contract.NewRegistry(path)
	require.NoError(t, loaded.Load())
	got, err := loaded.Get("sav3", "goerli")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.Address)
	assert.Equal(t, uint64(7), got.Block)
}

func TestRegistryLoadMissingFile(t *testing.T) {
	reg := newRegistry(t)
	assert.NoError(t, reg.Load())
	assert.Empty(t, reg.All())
}

func TestRegistryLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, contract.NewRegistry(path).Load())
}
