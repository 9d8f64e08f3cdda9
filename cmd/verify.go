package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/sav3/internal/chain"
	"github.com/Mohsinsiddi/sav3/internal/config"
	"github.com/Mohsinsiddi/sav3/internal/contract"
	"github.com/Mohsinsiddi/sav3/internal/ui"
)

var (
	verifyCompiler string
	verifyContract string
	verifyRuns     int
)

// verifyPollInterval spaces checkverifystatus calls.
var verifyPollInterval = config.ReceiptPollInterval

// solcBuilds maps a short solc version to the full build Etherscan expects.
var solcBuilds = map[string]string{
	"0.8.16": "v0.8.16+commit.07a7930e",
	"0.8.17": "v0.8.17+commit.8df45f5f",
	"0.8.19": "v0.8.19+commit.7dd6d404",
}

var verifyCmd = &cobra.Command{
	Use:   "verify <deployment> <source.sol>",
	Short: "Publish a deployment's source on the network's block explorer",
	Long: `Submit the flattened Solidity source of a recorded deployment to the
network's Etherscan-compatible API, then wait until the explorer accepts or
rejects it. The constructor arguments are re-encoded from deployments.json.

The compiler defaults to the solidity version in config; pass the full build
with --compiler for versions sav3 does not know.

Examples:
  sav3 verify drop contracts/Sav3.flat.sol -n sepolia
  sav3 verify drop Sw3.sol --contract Sw3 --compiler v0.8.16+commit.07a7930e --runs 200`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		n, err := resolveNetwork(out)
		if err != nil {
			return err
		}
		reg, err := newDeployments()
		if err != nil {
			return err
		}
		e, err := reg.Get(args[0], n.Name)
		if err != nil {
			return fmt.Errorf("%w (see `sav3 deploy`)", err)
		}
		kind, ok := contract.GetBuiltin(e.Builtin)
		if !ok {
			return fmt.Errorf("%s@%s has unknown sale kind %q", e.Name, e.Network, e.Builtin)
		}
		ctorArgs, err := contract.EncodeConstructorArgs(contract.SaleABI(kind.Variant), e.Args)
		if err != nil {
			return err
		}
		source, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading source: %w", err)
		}
		compiler, err := compilerBuild(verifyCompiler, cfg.Solidity)
		if err != nil {
			return err
		}
		name := verifyContract
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[1]), filepath.Ext(args[1]))
			name = strings.TrimSuffix(name, ".flat")
		}
		ex, err := explorerFor(n)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, ui.KeyValueBlock("Verification", [][2]string{
			{"Deployment", e.Name + " (" + kind.ID + ")"},
			{"Address", ui.Addr(e.Address)},
			{"Network", ui.NetworkName(n.DisplayName)},
			{"Contract", name},
			{"Compiler", compiler},
		}))

		ctx, cancel := withTimeout(cmd, config.TxDeployTimeout)
		defer cancel()

		spin := startSpinner("Submitting source...")
		guid, err := ex.VerifySource(ctx, chain.VerifyRequest{
			Address:         common.HexToAddress(e.Address),
			Source:          string(source),
			ContractName:    name,
			Compiler:        compiler,
			Optimized:       verifyRuns > 0,
			Runs:            verifyRuns,
			ConstructorArgs: ctorArgs,
		})
		if errors.Is(err, chain.ErrAlreadyVerified) {
			spin.Stop()
			fmt.Fprintln(out, ui.Info(e.Name+" is already verified"))
			return nil
		}
		if err != nil {
			spin.Stop()
			return err
		}
		if verbose {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Meta("guid "+guid))
		}
		spin.Update("Waiting for the explorer...")
		msg, err := ex.WaitVerified(ctx, guid, verifyPollInterval)
		spin.Stop()
		if err != nil {
			return err
		}

		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s verified: %s", e.Name, msg)))
		if link := n.AddressURL(e.Address); link != "" {
			fmt.Fprintln(out, ui.Meta(link+"#code"))
		}
		return nil
	},
}

// compilerBuild returns flag when set, else the known build of version.
func compilerBuild(flag, version string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	v := strings.TrimPrefix(version, "v")
	if strings.Contains(v, "+commit.") {
		return "v" + v, nil
	}
	if b, ok := solcBuilds[v]; ok {
		return b, nil
	}
	return "", fmt.Errorf("no known solc build for %q; pass --compiler v%s+commit.<hash>", version, v)
}

func init() {
	verifyCmd.Flags().StringVar(&verifyCompiler, "compiler", "", "full solc build, e.g. v0.8.16+commit.07a7930e (default: from config solidity)")
	verifyCmd.Flags().StringVar(&verifyContract, "contract", "", "contract name in the source (default: file name)")
	verifyCmd.Flags().IntVar(&verifyRuns, "runs", 0, "optimizer runs; 0 means the optimizer was off")
}
