package e2e_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/sav3/internal/merkle"
	"github.com/Mohsinsiddi/sav3/test/fixtures"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary before all E2E tests.
	tmp, err := os.MkdirTemp("", "sav3-e2e-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "sav3")
	// Build from the module root (two levels up from test/e2e/).
	moduleRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

func runCLI(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()
	return runCLIWithInput(t, configDir, "", args...)
}

func runCLIWithInput(t *testing.T, configDir, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "SAV3_CONFIG_DIR="+configDir)
	cmd.Dir = configDir
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestVersionFlag(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "sav3")
	assert.Contains(t, out, "0.1.0")
}

func TestHelpCommand(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--help")
	require.NoError(t, err)
	for _, sub := range []string{"deploy", "accounts", "allowlist", "sale", "simulate", "wallet", "network", "config"} {
		assert.Contains(t, out, sub)
	}
	assert.Contains(t, out, "--network")
}

func TestNetworkList(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "network", "list")
	require.NoError(t, err)
	for _, n := range []string{"mainnet", "goerli", "rinkeby", "sepolia", "localhost"} {
		assert.Contains(t, out, n, "network list should contain %s", n)
	}
}

func TestNetworkUse(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "network", "use", "goerli")
	require.NoError(t, err)
	assert.Contains(t, out, "Goerli")

	cfgOut, err := runCLI(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, cfgOut, `"default_network": "goerli"`)
}

func TestNetworkUseUnknown(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "network", "use", "ropsten")
	assert.Error(t, err)
}

func TestSimulateBothVariants(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "simulate", "--variant", "both")
	require.NoError(t, err, out)
	assert.Contains(t, out, "presale mint while paused")
	assert.Contains(t, out, "withdraw")
	assert.Contains(t, out, "Sw3 (flags)")
}

func TestAllowlistBuildMatchesLibrary(t *testing.T) {
	dir := t.TempDir()
	path := fixtures.AllowlistPath(t, "presale.txt")

	addrs, err := merkle.LoadAddresses(path)
	require.NoError(t, err)
	al, err := merkle.NewAllowlist(addrs)
	require.NoError(t, err)

	out, err := runCLI(t, dir, "allowlist", "build", path)
	require.NoError(t, err)
	assert.Contains(t, out, al.Root().Hex())

	member := addrs[2].Hex()
	proof, err := runCLI(t, dir, "allowlist", "proof", path, member)
	require.NoError(t, err)
	out, err = runCLI(t, dir, "allowlist", "verify", al.Root().Hex(), member, strings.TrimSpace(proof))
	require.NoError(t, err, out)
}

func TestAllowlistJSONFixture(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "proofs.json")
	_, err := runCLI(t, dir, "allowlist", "build", fixtures.AllowlistPath(t, "whitelist.json"), "--out", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"proofs"`)
}

func TestWalletAddAndList(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "wallet", "add", "treasury", "0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "treasury")
	assert.Contains(t, out, "0x1234")
}

func TestWalletRemove(t *testing.T) {
	dir := t.TempDir()

	runCLI(t, dir, "wallet", "add", "w1", "0x1234567890abcdef1234567890abcdef12345678") //nolint:errcheck

	// Use stdin to auto-confirm the prompt.
	_, err := runCLIWithInput(t, dir, "y\n", "wallet", "remove", "w1")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "w1")
}

func TestConfigSetAndShow(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set", "max_batch_size", "100")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"max_batch_size": 100`)
	assert.Contains(t, out, `"max_supply": 5000`)
}

func TestConfigRPCAdd(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "rpc", "add", "sepolia", "https://custom.rpc.url")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "custom.rpc.url")
}

func TestDeployNeedsArtifact(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "deploy", "missing.json")
	assert.Error(t, err)
}

func TestUnknownCommandShowsError(t *testing.T) {
	out, _ := runCLI(t, t.TempDir(), "unknowncommand")
	assert.Contains(t, strings.ToLower(out), "unknown command")
}
