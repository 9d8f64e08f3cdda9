package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// File keystore
// ---------------------------------------------------------------------------

func TestFileKeystoreRoundTrip(t *testing.T) {
	ks := testKeystore(t)

	ref, err := ks.Store("deployer", "0x"+testPrivKeyHex)
	require.NoError(t, err)
	assert.Equal(t, "sav3.deployer", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "0x"+testPrivKeyHex, got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.Error(t, err)
}

func TestFileKeystoreDeleteMissing(t *testing.T) {
	assert.NoError(t, testKeystore(t).Delete("sav3.ghost"))
}

func TestFileKeystoreWrongPassword(t *testing.T) {
	dir := t.TempDir()
	ks, err := FileKeystore(dir, func(string) (string, error) { return "right", nil })
	require.NoError(t, err)
	ref, err := ks.Store("w", "secret")
	require.NoError(t, err)

	other, err := FileKeystore(dir, func(string) (string, error) { return "wrong", nil })
	require.NoError(t, err)
	_, err = other.Retrieve(ref)
	assert.Error(t, err)
}

func TestNilRingKeystore(t *testing.T) {
	ks := nullKeystore()
	_, err := ks.Store("w", "k")
	assert.ErrorIs(t, err, ErrKeystoreUnavailable)
	_, err = ks.Retrieve("sav3.w")
	assert.ErrorIs(t, err, ErrKeystoreUnavailable)
	assert.NoError(t, ks.Delete("sav3.w"))
}

// ---------------------------------------------------------------------------
// InMemoryKeystore
// ---------------------------------------------------------------------------

func TestInMemoryKeystoreStoreAndRetrieve(t *testing.T) {
	iks := NewInMemoryKeystore()
	ref, err := iks.Store("mykey", "0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, "sav3.mykey", ref)

	val, err := iks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", val)
}

func TestInMemoryKeystoreRetrieveNotFound(t *testing.T) {
	_, err := NewInMemoryKeystore().Retrieve("sav3.ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInMemoryKeystoreOverwriteAndDelete(t *testing.T) {
	iks := NewInMemoryKeystore()
	iks.Store("k", "first")  //nolint:errcheck
	iks.Store("k", "second") //nolint:errcheck

	val, err := iks.Retrieve("sav3.k")
	require.NoError(t, err)
	assert.Equal(t, "second", val, "second store should overwrite first")

	require.NoError(t, iks.Delete("sav3.k"))
	_, err = iks.Retrieve("sav3.k")
	assert.Error(t, err, "key should be gone after delete")
	assert.NoError(t, iks.Delete("sav3.k"), "deleting missing key must not error")
}
