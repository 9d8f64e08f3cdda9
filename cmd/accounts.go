package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/sav3/internal/chain"
	"github.com/Mohsinsiddi/sav3/internal/config"
	"github.com/Mohsinsiddi/sav3/internal/ledger"
	"github.com/Mohsinsiddi/sav3/internal/ui"
	"github.com/Mohsinsiddi/sav3/internal/wallet"
)

var (
	accountsDev     int
	accountsOffline bool
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Print the accounts that can sign",
	Long: `Print the signer accounts for the selected network: the
<NETWORK>_PRIVATE_KEY account first, then every stored wallet, with balances.

With --dev N the deterministic in-process ledger accounts are listed instead.
These are the accounts 'sav3 simulate' deploys and mints from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if accountsDev > 0 {
			return printDevAccounts(cmd, accountsDev)
		}

		n, err := resolveNetwork(out)
		if err != nil {
			return err
		}

		type account struct {
			label, kind string
			addr        common.Address
		}
		var accts []account
		if key := config.PrivateKey(n.Name); key != "" {
			s, err := wallet.NewKeySigner(key)
			if err != nil {
				return fmt.Errorf("%s: %w", config.EnvName(n.Name, config.PrivateKeySuffix), err)
			}
			accts = append(accts, account{config.EnvName(n.Name, config.PrivateKeySuffix), "env", s.Address()})
		}
		wallets, err := newWalletManager().List()
		if err != nil {
			return err
		}
		for _, w := range wallets {
			label := w.Name
			if w.IsDefault {
				label += " *"
			}
			accts = append(accts, account{label, w.Type, common.HexToAddress(w.Address)})
		}
		if len(accts) == 0 {
			fmt.Fprintln(out, ui.Info("no accounts for "+n.DisplayName))
			fmt.Fprintln(out, ui.Hint("set "+config.EnvName(n.Name, config.PrivateKeySuffix)+" or run `sav3 wallet import`"))
			return nil
		}

		var balances func(context.Context, common.Address) string
		if accountsOffline {
			balances = func(context.Context, common.Address) string { return "-" }
		} else {
			client, err := dial(out, n)
			if err != nil {
				return err
			}
			balances = func(ctx context.Context, a common.Address) string {
				bal, err := client.BalanceAt(ctx, a, nil)
				if err != nil {
					return ui.TrimErr(err.Error(), 20)
				}
				return chain.FormatETH(bal)
			}
		}

		ctx, cancel := withTimeout(cmd, config.RPCTimeout)
		defer cancel()

		tbl := ui.NewTable([]ui.Column{
			{Title: "Account", Width: 24},
			{Title: "Type", Width: 10},
			{Title: "Address", Width: 42},
			{Title: "Balance", Width: 20, Right: true},
		})
		for _, a := range accts {
			tbl.AddRow(ui.Row{a.label, a.kind, a.addr.Hex(), balances(ctx, a.addr)})
		}
		fmt.Fprintln(out, ui.NetworkName(n.DisplayName))
		fmt.Fprintln(out, tbl.Render())
		return nil
	},
}

func printDevAccounts(cmd *cobra.Command, n int) error {
	out := cmd.OutOrStdout()
	l := ledger.New(ledger.WithAccounts(n))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tbl := ui.NewTable([]ui.Column{
		{Title: "#", Width: 3, Right: true},
		{Title: "Address", Width: 42},
		{Title: "Balance", Width: 16, Right: true},
	})
	for i, a := range l.Accounts() {
		bal, err := l.BalanceAt(ctx, a.Address(), nil)
		if err != nil {
			return err
		}
		tbl.AddRow(ui.Row{fmt.Sprint(i), a.Address().Hex(), chain.FormatETH(bal)})
	}
	fmt.Fprintln(out, ui.Meta(fmt.Sprintf("in-process ledger · chain id %s", devChainID(ctx, l))))
	fmt.Fprintln(out, tbl.Render())
	return nil
}

func devChainID(ctx context.Context, l *ledger.Ledger) *big.Int {
	id, err := l.ChainID(ctx)
	if err != nil {
		return new(big.Int)
	}
	return id
}

func init() {
	accountsCmd.Flags().IntVar(&accountsDev, "dev", 0, "list N in-process ledger accounts")
	accountsCmd.Flags().BoolVar(&accountsOffline, "offline", false, "skip balance lookups")
}
