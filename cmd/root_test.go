package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/sav3/internal/chain"
	"github.com/Mohsinsiddi/sav3/internal/config"
	"github.com/Mohsinsiddi/sav3/internal/contract"
	"github.com/Mohsinsiddi/sav3/internal/ens"
	"github.com/Mohsinsiddi/sav3/internal/ledger"
	"github.com/Mohsinsiddi/sav3/internal/merkle"
	"github.com/Mohsinsiddi/sav3/internal/sale"
	"github.com/Mohsinsiddi/sav3/internal/wallet"
)

// cli runs commands against a temp config dir and an in-memory keystore.
type cli struct {
	t   *testing.T
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	ks := wallet.NewInMemoryKeystore()
	prevKS, prevDial, prevConfirm := newKeystore, dial, confirmTyped
	newKeystore = func() wallet.KeystoreBackend { return ks }
	t.Cleanup(func() {
		newKeystore, dial, confirmTyped = prevKS, prevDial, prevConfirm
	})
	return &cli{t: t, dir: t.TempDir()}
}

// withLedger points every network at l and signs with dev account 0 through
// <NETWORK>_PRIVATE_KEY.
func (c *cli) withLedger(l *ledger.Ledger, network string) {
	dial = func(io.Writer, *chain.Network) (backend, error) { return l, nil }
	key := hexutil.Encode(crypto.FromECDSA(l.Account(0).PrivateKey()))
	c.t.Setenv(config.EnvName(network, config.PrivateKeySuffix), key)
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", c.dir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	out, err := c.run("", args...)
	require.NoError(c.t, err, out)
	return out
}

// resetFlags restores every flag to its default; cobra keeps parsed values
// between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestConfigSetGet(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, "5000\n", c.ok("config", "get", "max_supply"))
	c.ok("config", "set", "max_supply", "10000")
	assert.Equal(t, "10000\n", c.ok("config", "get", "max_supply"))

	_, err := c.run("", "config", "set", "max_supply", "0")
	assert.Error(t, err)
	_, err = c.run("", "config", "get", "colour")
	assert.ErrorIs(t, err, config.ErrUnknownKey)
	_, err = c.run("", "config", "set", "default_network", "ropsten")
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestConfigRPC(t *testing.T) {
	c := newCLI(t)

	c.ok("config", "rpc", "add", "sepolia", "https://rpc.example")
	out := c.ok("config", "show")
	assert.Contains(t, out, "https://rpc.example")
	assert.Contains(t, c.ok("network", "list"), "custom")

	c.ok("config", "rpc", "remove", "sepolia", "https://rpc.example")
	_, err := c.run("", "config", "rpc", "remove", "sepolia", "https://rpc.example")
	assert.Error(t, err)
}

func TestNetworkUse(t *testing.T) {
	c := newCLI(t)

	c.ok("network", "use", "sepolia")
	assert.Equal(t, "sepolia\n", c.ok("config", "get", "default_network"))

	_, err := c.run("", "network", "use", "nowhere")
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestNetworkPingCustomRPC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0x10"})
	}))
	defer srv.Close()

	c := newCLI(t)
	c.ok("config", "rpc", "add", "localhost", srv.URL)
	out := c.ok("network", "ping", "-n", "localhost")
	assert.Contains(t, out, srv.URL)
	assert.Contains(t, out, "16")
}

func TestAllowlistCommands(t *testing.T) {
	c := newCLI(t)
	dev := ledger.DevAccounts(4)
	var lines []string
	for _, a := range dev[:3] {
		lines = append(lines, a.Address().Hex())
	}
	list := filepath.Join(c.dir, "presale.txt")
	require.NoError(t, os.WriteFile(list, []byte("# presale\n"+strings.Join(lines, "\n")+"\n"), 0o644))

	al, err := merkle.NewAllowlist([]common.Address{dev[0].Address(), dev[1].Address(), dev[2].Address()})
	require.NoError(t, err)
	root := al.Root().Hex()

	proofsPath := filepath.Join(c.dir, "proofs.json")
	out := c.ok("allowlist", "build", list, "--out", proofsPath)
	assert.Contains(t, out, root)

	data, err := os.ReadFile(proofsPath)
	require.NoError(t, err)
	var f merkle.AllowlistFile
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, root, f.Root.Hex())
	assert.Len(t, f.Proofs, 3)

	member := dev[1].Address().Hex()
	proof := strings.TrimSpace(c.ok("allowlist", "proof", list, member))
	assert.Contains(t, c.ok("allowlist", "verify", root, member, proof), "eligible")

	_, err = c.run("", "allowlist", "verify", root, dev[3].Address().Hex(), proof)
	assert.Error(t, err)
	_, err = c.run("", "allowlist", "proof", list, dev[3].Address().Hex())
	assert.ErrorIs(t, err, merkle.ErrLeafMissing)
}

func TestWalletLifecycle(t *testing.T) {
	c := newCLI(t)
	dev := ledger.DevAccounts(2)
	key := hexutil.Encode(crypto.FromECDSA(dev[0].PrivateKey()))

	c.ok("wallet", "import", "deployer", "--key", key)
	c.ok("wallet", "add", "treasury", dev[1].Address().Hex())

	out := c.ok("wallet", "list")
	assert.Contains(t, out, dev[0].Address().Hex())
	assert.Contains(t, out, "watch-only")

	c.ok("wallet", "use", "deployer")
	assert.Equal(t, "deployer\n", c.ok("config", "get", "default_wallet"))

	_, err := c.run("", "wallet", "import", "deployer", "--key", key)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)

	out, err = c.run("n\n", "wallet", "remove", "deployer")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")

	c.ok("wallet", "remove", "deployer", "--yes")
	assert.Equal(t, "\n", c.ok("config", "get", "default_wallet"))
	assert.NotContains(t, c.ok("wallet", "list"), dev[0].Address().Hex())
}

func TestWalletAddResolvesENS(t *testing.T) {
	registry := strings.ToLower(ens.RegistryAddress.Hex())
	resolver := "0x4976fb03c32e5b8cfe2b6ccb31c09ba78ebaba41"
	target := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int               `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0x1"}
		var arg struct {
			To string `json:"to"`
		}
		if req.Method == "eth_call" && len(req.Params) > 0 && json.Unmarshal(req.Params[0], &arg) == nil {
			switch strings.ToLower(arg.To) {
			case registry:
				resp["result"] = hexutil.Encode(common.LeftPadBytes(common.FromHex(resolver), 32))
			case resolver:
				resp["result"] = hexutil.Encode(common.LeftPadBytes(target.Bytes(), 32))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newCLI(t)
	c.ok("config", "rpc", "add", "mainnet", srv.URL)
	out := c.ok("wallet", "add", "vitalik", "vitalik.eth", "-n", "mainnet")
	assert.Contains(t, out, target.Hex())
	assert.Contains(t, c.ok("wallet", "list"), target.Hex())

	_, err := c.run("", "wallet", "add", "local", "vitalik.eth", "-n", "localhost")
	assert.ErrorContains(t, err, "no ENS registry")
}

func TestWalletImportFromStdin(t *testing.T) {
	c := newCLI(t)
	dev := ledger.DevAccounts(1)
	key := hexutil.Encode(crypto.FromECDSA(dev[0].PrivateKey()))

	out, err := c.run(key+"\n", "wallet", "import", "buyer")
	require.NoError(t, err)
	assert.Contains(t, out, dev[0].Address().Hex())

	_, err = c.run("", "wallet", "import", "empty")
	assert.Error(t, err)
}

func TestWalletGenerate(t *testing.T) {
	c := newCLI(t)
	out := c.ok("wallet", "generate", "fresh")
	assert.Contains(t, out, "shown only once")
	assert.Contains(t, c.ok("wallet", "list"), "signing")
}

func TestAccountsDev(t *testing.T) {
	c := newCLI(t)
	out := c.ok("accounts", "--dev", "3")
	for _, a := range ledger.DevAccounts(3) {
		assert.Contains(t, out, a.Address().Hex())
	}
	assert.Contains(t, out, "10000")
}

func TestAccountsEnvAndWallets(t *testing.T) {
	c := newCLI(t)
	l := ledger.New(ledger.WithAccounts(2))
	c.withLedger(l, "localhost")
	c.ok("wallet", "add", "treasury", l.Account(1).Address().Hex())

	out := c.ok("accounts", "-n", "localhost")
	assert.Contains(t, out, l.Account(0).Address().Hex())
	assert.Contains(t, out, l.Account(1).Address().Hex())
	assert.Contains(t, out, "LOCALHOST_PRIVATE_KEY")
}

func TestSimulate(t *testing.T) {
	c := newCLI(t)

	out := c.ok("simulate", "--variant", "both", "-q")
	assert.Contains(t, out, "Sav3 (time windows)")
	assert.Contains(t, out, "Sw3 (flags)")
	assert.NotContains(t, out, "✗")

	out = c.ok("simulate", "--variant", "sw3", "--max-batch", "2", "--max-supply", "10")
	assert.Contains(t, out, "presale mint")

	_, err := c.run("", "simulate", "--variant", "dutch")
	assert.Error(t, err)
	_, err = c.run("", "simulate", "--max-supply", "3")
	assert.Error(t, err)
}

func writeArtifact(t *testing.T, dir, kind string) string {
	t.Helper()
	art := map[string]interface{}{
		"contractName": strings.ToUpper(kind[:1]) + kind[1:],
		"abi":          contract.GetBuiltinABI(kind),
		// The in-process ledger recognises a sale by its kind id as code.
		"bytecode": hexutil.Encode([]byte(kind)),
	}
	data, err := json.Marshal(art)
	require.NoError(t, err)
	path := filepath.Join(dir, kind+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDeployAndDriveSale(t *testing.T) {
	c := newCLI(t)
	l := ledger.New(ledger.WithAccounts(2))
	c.withLedger(l, "localhost")
	artifact := writeArtifact(t, c.dir, "sav3")

	out := c.ok("deploy", artifact, "3", "100", "--name", "drop", "-n", "localhost")
	assert.Contains(t, out, "drop deployed to")

	reg, err := newDeployments()
	require.NoError(t, err)
	e, err := reg.Get("drop", "localhost")
	require.NoError(t, err)
	assert.Equal(t, "sav3", e.Builtin)
	assert.Equal(t, []string{"3", "100"}, e.Args)
	assert.Equal(t, l.Account(0).Address().Hex(), e.Deployer)

	status := c.ok("sale", "status", "drop")
	assert.Contains(t, status, "0 / 100")
	assert.Contains(t, status, "presale")
	assert.Equal(t, "3", strings.TrimSpace(c.ok("sale", "call", "drop", "maxBatchSize")))

	_, err = c.run("", "sale", "send", "drop", "publicMint", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract is paused")

	c.ok("sale", "send", "drop", "unpause")
	_, err = c.run("", "sale", "send", "drop", "publicMint", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "public sale has not started yet")

	now := l.Time()
	c.ok("sale", "send", "drop", "setPublicSaleTime", u64(now-1), u64(now+3600))
	c.ok("sale", "send", "drop", "setPublicPrice", "1000")
	out = c.ok("sale", "send", "drop", "publicMint", "2", "--value", "2000")
	assert.Contains(t, out, "2 Transfer event(s)")

	session, err := l.Bind(common.HexToAddress(e.Address), l.Account(0).Address())
	require.NoError(t, err)
	supply, err := session.TotalSupply()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), supply)

	_, err = c.run("", "sale", "send", "drop", "totalSupply")
	assert.Error(t, err)
	_, err = c.run("", "sale", "send", "drop", "unpause", "--value", "1")
	assert.Error(t, err)
}

func TestDeployInfersKind(t *testing.T) {
	c := newCLI(t)
	l := ledger.New(ledger.WithAccounts(1))
	c.withLedger(l, "localhost")

	c.ok("deploy", writeArtifact(t, c.dir, "sw3"))
	reg, err := newDeployments()
	require.NoError(t, err)
	e, err := reg.Get("sw3", "localhost")
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "5000"}, e.Args)

	c.ok("sale", "send", "sw3", "unpause")
	c.ok("sale", "send", "sw3", "setPublicMintStarted", "true")
	assert.Equal(t, "true", strings.TrimSpace(c.ok("sale", "call", "sw3", "isPublicSaleOn")))
}

func TestSaleRawAddressNeedsKind(t *testing.T) {
	c := newCLI(t)
	c.withLedger(ledger.New(ledger.WithAccounts(1)), "localhost")

	_, err := c.run("", "sale", "status", "0x00000000000000000000000000000000000000aa")
	assert.Error(t, err)
	_, err = c.run("", "sale", "status", "missing")
	assert.ErrorIs(t, err, contract.ErrContractNotFound)
}

func TestMainnetWriteNeedsConfirmation(t *testing.T) {
	c := newCLI(t)
	l := ledger.New(ledger.WithAccounts(1))
	c.withLedger(l, "mainnet")
	addr, err := l.Deploy(t.Context(), l.Account(0).Address(), sale.VariantWindow, 5, 5000)
	require.NoError(t, err)

	var asked string
	confirmTyped = func(prompt, expect string) (bool, error) {
		asked = expect
		return false, nil
	}
	_, err = c.run("", "sale", "send", addr.Hex(), "unpause", "--kind", "sav3", "-n", "mainnet")
	assert.ErrorIs(t, err, errCancelled)
	assert.Equal(t, "mainnet", asked)

	c.ok("sale", "send", addr.Hex(), "unpause", "--kind", "sav3", "-n", "mainnet", "--yes")
	s, err := l.Sale(addr)
	require.NoError(t, err)
	assert.False(t, s.Paused())
}

func u64(n uint64) string { return strconv.FormatUint(n, 10) }
