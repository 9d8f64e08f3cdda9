package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/sav3/internal/config"
	"github.com/Mohsinsiddi/sav3/internal/contract"
	"github.com/Mohsinsiddi/sav3/internal/ui"
)

var (
	deployName   string
	deployKind   string
	deployWallet string
	deployYes    bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy <artifact.json> [maxBatchSize] [maxSupply]",
	Short: "Deploy a sale contract from a compiled artifact",
	Long: `Deploy a Sav3 or Sw3 sale from its Hardhat/Foundry artifact and record it
in deployments.json. The constructor arguments default to max_batch_size
and max_supply from config (5 and 5000).

The sale kind is read from the artifact ABI (window setters mean sav3, flag
setters sw3); use --kind when the ABI is ambiguous.

Examples:
  sav3 deploy artifacts/contracts/Sav3.sol/Sav3.json -n goerli
  sav3 deploy Sw3.json 100 5000 --name drop2 -n sepolia --wallet deployer`,
	Args: cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		art, err := contract.LoadArtifact(args[0])
		if err != nil {
			return err
		}
		kind, err := saleKind(art.ABI, deployKind)
		if err != nil {
			return err
		}

		ctorArgs := []string{strconv.FormatUint(cfg.MaxBatchSize, 10), strconv.FormatUint(cfg.MaxSupply, 10)}
		copy(ctorArgs, args[1:])
		initCode, err := contract.DeployData(art, ctorArgs)
		if err != nil {
			return err
		}
		parsed, err := contract.Parse(art.ABI)
		if err != nil {
			return err
		}

		n, err := resolveNetwork(out)
		if err != nil {
			return err
		}
		client, err := dial(out, n)
		if err != nil {
			return err
		}
		signer, signerLabel, err := resolveSigner(n, deployWallet)
		if err != nil {
			return err
		}

		name := deployName
		if name == "" {
			name = kind.ID
		}

		fmt.Fprintln(out, ui.KeyValueBlock("Deployment", [][2]string{
			{"Contract", art.ContractName + " (" + kind.ID + ")"},
			{"Name", name},
			{"Network", ui.NetworkName(n.DisplayName)},
			{"Deployer", ui.Addr(signer.Address().Hex()) + " " + ui.Meta(signerLabel)},
			{"maxBatchSize", ctorArgs[0]},
			{"maxSupply", ctorArgs[1]},
		}))

		if err := confirmWrite(n, "Deploy "+name, deployYes); err != nil {
			return err
		}

		ctx, cancel := withTimeout(cmd, config.TxDeployTimeout)
		defer cancel()

		sender := contract.NewSender(client, parsed, signer)
		sender.FallbackGas = config.GasLimitDeploy
		sender.PollInterval = config.ReceiptPollInterval

		spin := startSpinner("Deploying " + name + "...")
		tx, addr, err := sender.Deploy(ctx, initCode)
		if err != nil {
			spin.Stop()
			return err
		}
		spin.Update("Waiting for " + short(tx.Hash().Hex()) + "...")
		receipt, err := sender.Wait(ctx, tx)
		spin.Stop()
		if err != nil {
			return err
		}

		reg, err := newDeployments()
		if err != nil {
			return err
		}
		reg.Add(&contract.Entry{
			Name:       name,
			Network:    n.Name,
			Address:    addr.Hex(),
			Builtin:    kind.ID,
			Deployer:   signer.Address().Hex(),
			TxHash:     tx.Hash().Hex(),
			Block:      receipt.BlockNumber.Uint64(),
			Args:       ctorArgs,
			DeployedAt: time.Now().UTC().Format(time.RFC3339),
		})
		if err := reg.Save(); err != nil {
			return fmt.Errorf("recording deployment: %w", err)
		}

		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s deployed to %s", name, ui.Addr(addr.Hex()))))
		if link := n.AddressURL(addr.Hex()); link != "" {
			fmt.Fprintln(out, ui.Meta(link))
		}
		fmt.Fprintln(out, ui.Hint("The sale starts paused. Next: sav3 sale send "+name+" unpause -n "+n.Name))
		return nil
	},
}

// saleKind picks the built-in whose entry points the ABI carries.
func saleKind(entries []contract.ABIEntry, forced string) (contract.BuiltinKind, error) {
	if forced != "" {
		k, ok := contract.GetBuiltin(forced)
		if !ok {
			return contract.BuiltinKind{}, fmt.Errorf("unknown sale kind %q (want sav3 or sw3)", forced)
		}
		return k, nil
	}
	switch {
	case contract.Find(entries, "setPreSaleTime") != nil:
		k, _ := contract.GetBuiltin("sav3")
		return k, nil
	case contract.Find(entries, "setPreSaleMintStarted") != nil:
		k, _ := contract.GetBuiltin("sw3")
		return k, nil
	}
	return contract.BuiltinKind{}, fmt.Errorf("artifact ABI is not a Sav3 or Sw3 sale; pass --kind to override")
}

func init() {
	deployCmd.Flags().StringVar(&deployName, "name", "", "name to record the deployment under (default: kind)")
	deployCmd.Flags().StringVar(&deployKind, "kind", "", "sale kind: sav3 (time windows) or sw3 (flags)")
	deployCmd.Flags().StringVar(&deployWallet, "wallet", "", "signing wallet (default: env key, then default wallet)")
	deployCmd.Flags().BoolVarP(&deployYes, "yes", "y", false, "skip the mainnet confirmation")
}
