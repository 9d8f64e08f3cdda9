package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/sav3/internal/chain"
	"github.com/Mohsinsiddi/sav3/internal/config"
	"github.com/Mohsinsiddi/sav3/internal/contract"
	"github.com/Mohsinsiddi/sav3/internal/ens"
	"github.com/Mohsinsiddi/sav3/internal/rpc"
	"github.com/Mohsinsiddi/sav3/internal/ui"
	"github.com/Mohsinsiddi/sav3/internal/wallet"
)

// newKeystore opens the key store behind signing wallets. Tests swap it for
// an in-memory one.
var newKeystore = func() wallet.KeystoreBackend { return wallet.DefaultKeystore() }

// confirmTyped asks for the network name before mainnet writes.
var confirmTyped = ui.ConfirmTyped

func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(newKeystore()),
	)
}

func newDeployments() (*contract.Registry, error) {
	reg := contract.NewRegistry(cfg.DeploymentsPath())
	if err := reg.Load(); err != nil {
		return nil, err
	}
	return reg, nil
}

// resolveNetwork returns the --network flag's network, or the configured
// default.
func resolveNetwork(w io.Writer) (*chain.Network, error) {
	name := networkFlag
	if name == "" {
		name = cfg.DefaultNetwork
	}
	n, err := chain.NewRegistry().GetByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w (run `sav3 network list`)", err)
	}
	if n.Deprecated {
		fmt.Fprintln(w, ui.Warn(n.DisplayName+" is deprecated and may no longer be served"))
	}
	return n, nil
}

// rpcEndpoints lists the custom RPCs from config, then the registry URL
// filled with <NETWORK>_ALCHEMY_API_KEY.
func rpcEndpoints(n *chain.Network) ([]string, error) {
	urls := append([]string(nil), cfg.GetRPCs(n.Name)...)
	url, err := n.RPC(config.AlchemyKey(n.Name))
	if err != nil {
		if len(urls) == 0 {
			return nil, err
		}
		return urls, nil
	}
	return append(urls, url), nil
}

// backend is the slice of a node the commands use. *chain.EVMClient and
// *ledger.Ledger both satisfy it.
type backend interface {
	contract.TxBackend
	BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error)
}

// dial connects to n. Tests replace it with an in-process ledger.
var dial = func(w io.Writer, n *chain.Network) (backend, error) {
	urls, err := rpcEndpoints(n)
	if err != nil {
		return nil, err
	}
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), config.RPCTimeout)
	defer cancel()
	url, err := rpc.Select(ctx, urls, algo)
	if err != nil {
		return nil, err
	}
	if verbose {
		fmt.Fprintln(w, ui.Meta("rpc "+url))
	}
	return chain.NewEVMClient(url), nil
}

var errNoSigner = errors.New("no signer available")

// resolveSigner picks who signs, in order: --wallet, <NETWORK>_PRIVATE_KEY,
// the default wallet.
func resolveSigner(n *chain.Network, walletName string) (contract.TxSigner, string, error) {
	if walletName != "" {
		s, err := newWalletManager().Signer(walletName)
		return s, "wallet " + walletName, err
	}
	if key := config.PrivateKey(n.Name); key != "" {
		s, err := wallet.NewKeySigner(key)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", config.EnvName(n.Name, config.PrivateKeySuffix), err)
		}
		return s, config.EnvName(n.Name, config.PrivateKeySuffix), nil
	}
	mgr := newWalletManager()
	name := cfg.DefaultWallet
	if name == "" {
		if w := mgr.Default(); w != nil {
			name = w.Name
		}
	}
	if name == "" {
		return nil, "", fmt.Errorf("%w: set %s or import a wallet with `sav3 wallet import`",
			errNoSigner, config.EnvName(n.Name, config.PrivateKeySuffix))
	}
	s, err := mgr.Signer(name)
	return s, "wallet " + name, err
}

// confirmWrite guards transactions on mainnet networks.
func confirmWrite(n *chain.Network, action string, yes bool) error {
	if n.Testnet || n.IsLocal() || yes {
		return nil
	}
	ok, err := confirmTyped(action+" on "+n.DisplayName, n.Name)
	if err != nil {
		return err
	}
	if !ok {
		return errCancelled
	}
	return nil
}

var errCancelled = errors.New("cancelled")

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// resolveAddress accepts a hex address or, on networks with an ENS
// registry, an ENS name.
func resolveAddress(cmd *cobra.Command, s string) (common.Address, error) {
	if common.IsHexAddress(s) || !ens.IsName(s) {
		return parseAddress(s)
	}
	out := cmd.OutOrStdout()
	n, err := resolveNetwork(out)
	if err != nil {
		return common.Address{}, err
	}
	if !ens.Supported(n.Name) {
		return common.Address{}, fmt.Errorf("%s has no ENS registry; pass -n mainnet or a hex address", n.DisplayName)
	}
	client, err := dial(out, n)
	if err != nil {
		return common.Address{}, err
	}
	ctx, cancel := withTimeout(cmd, config.RPCTimeout)
	defer cancel()
	return ens.Resolve(ctx, client, s)
}

// withTimeout derives a context bounded by d from the command's context.
func withTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

func short(hash string) string {
	if len(hash) <= 18 {
		return hash
	}
	return hash[:10] + "…" + hash[len(hash)-6:]
}

func stderrIsTTY() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func startSpinner(msg string) *ui.Spinner {
	var s *ui.Spinner
	if stderrIsTTY() {
		s = ui.NewSpinner(msg)
	} else {
		s = ui.NewSpinnerTo(io.Discard, msg)
	}
	s.Start()
	return s
}
