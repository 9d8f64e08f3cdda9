package contract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const artifactABI = `[
  {"type":"constructor","inputs":[{"name":"maxBatchSize_","type":"uint256"},{"name":"maxSupply_","type":"uint256"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"publicMint","inputs":[{"name":"quantity","type":"uint256"}],"outputs":[],"stateMutability":"payable"}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ---------------------------------------------------------------------------
// LoadArtifact
// ---------------------------------------------------------------------------

func TestLoadArtifactHardhat(t *testing.T) {
	path := writeFile(t, "Sav3.json", `{"contractName":"Sav3","abi":`+artifactABI+`,"bytecode":"0x6080604052"}`)
	a, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "Sav3", a.ContractName)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, a.Bytecode)
	require.NotNil(t, a.Constructor())
	assert.Len(t, a.Constructor().Inputs, 2)
}

func TestLoadArtifactFoundry(t *testing.T) {
	path := writeFile(t, "Sav3.json", `{"abi":`+artifactABI+`,"bytecode":{"object":"6080"}}`)
	a, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80}, a.Bytecode)
}

func TestLoadArtifactWithoutBytecode(t *testing.T) {
	path := writeFile(t, "ISale.json", `{"abi":`+artifactABI+`,"bytecode":"0x"}`)
	_, err := LoadArtifact(path)
	assert.ErrorIs(t, err, ErrNoBytecode)

	path = writeFile(t, "ISale.json", `{"abi":`+artifactABI+`}`)
	_, err = LoadArtifact(path)
	assert.ErrorIs(t, err, ErrNoBytecode)
}

func TestLoadArtifactErrors(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadArtifact(writeFile(t, "raw.json", artifactABI))
	assert.Error(t, err, "a raw ABI array is not an artifact")

	_, err = LoadArtifact(writeFile(t, "bad.json", `{"abi":`+artifactABI+`,"bytecode":"0xZZ"}`))
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// LoadABI
// ---------------------------------------------------------------------------

func TestLoadABIBothFormats(t *testing.T) {
	raw, err := LoadABI(writeFile(t, "abi.json", artifactABI))
	require.NoError(t, err)
	assert.Len(t, raw, 2)

	art, err := LoadABI(writeFile(t, "art.json", `{"abi":`+artifactABI+`}`))
	require.NoError(t, err)
	assert.Equal(t, raw, art)
}

func TestLoadABIRejectsEmpty(t *testing.T) {
	_, err := LoadABI(writeFile(t, "empty.json", "  "))
	assert.Error(t, err)
	_, err = LoadABI(writeFile(t, "none.json", "[]"))
	assert.Error(t, err)
	_, err = LoadABI(writeFile(t, "obj.json", `{"foo":1}`))
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// DeployData
// ---------------------------------------------------------------------------

func TestDeployDataAppendsConstructorArgs(t *testing.T) {
	a := &Artifact{ABI: sav3ABI, Bytecode: []byte{0xde, 0xad}}
	data, err := DeployData(a, []string{"5", "5000"})
	require.NoError(t, err)
	require.Len(t, data, 2+64)
	assert.Equal(t, []byte{0xde, 0xad}, data[:2])
	assert.Equal(t, byte(5), data[2+31])
	assert.Equal(t, []byte{0x13, 0x88}, data[2+62:])

	_, err = DeployData(a, []string{"5"})
	assert.Error(t, err)
}

func TestEncodeConstructorArgsNoConstructor(t *testing.T) {
	parsed, err := Parse([]ABIEntry{{Name: "f", Type: "function", StateMutability: "view"}})
	require.NoError(t, err)

	out, err := EncodeConstructorArgs(parsed, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = EncodeConstructorArgs(parsed, []string{"1"})
	assert.Error(t, err)
}
