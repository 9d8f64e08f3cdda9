package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/sav3/internal/chain"
	"github.com/Mohsinsiddi/sav3/internal/config"
	"github.com/Mohsinsiddi/sav3/internal/rpc"
	"github.com/Mohsinsiddi/sav3/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the deployment networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		reg := chain.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "", Width: 2},
			{Title: "Name", Width: 10},
			{Title: "Display", Width: 18},
			{Title: "Chain ID", Width: 9, Right: true},
			{Title: "Type", Width: 10},
			{Title: "RPC", Width: 24},
		})

		for _, n := range reg.All() {
			def := ""
			if n.Name == cfg.DefaultNetwork {
				def = ui.StyleSuccess.Render("✓")
			}
			kind := "mainnet"
			switch {
			case n.IsLocal():
				kind = "local"
			case n.Testnet:
				kind = "testnet"
			}
			if n.Deprecated {
				kind += "*"
			}
			t.AddRow(ui.Row{def, ui.NetworkName(n.Name), n.DisplayName, fmt.Sprint(n.ChainID), kind, rpcStatus(&n)})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta("* deprecated by its operators"))
		return nil
	},
}

// rpcStatus says where the RPC URL of n will come from.
func rpcStatus(n *chain.Network) string {
	switch {
	case len(cfg.GetRPCs(n.Name)) > 0:
		return "custom"
	case !n.NeedsAPIKey():
		return n.RPCURL
	case config.AlchemyKey(n.Name) != "":
		return "alchemy"
	}
	return ui.Meta(config.EnvName(n.Name, config.AlchemyKeySuffix) + " unset")
}

var networkUseCmd = &cobra.Command{
	Use:   "use <network>",
	Short: "Set the default network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			return fmt.Errorf("%w (run `sav3 network list`)", err)
		}
		cfg.DefaultNetwork = n.Name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Default network set to "+ui.NetworkName(n.DisplayName)))
		return nil
	},
}

var networkPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure every RPC endpoint of the selected network",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		n, err := resolveNetwork(out)
		if err != nil {
			return err
		}
		urls, err := rpcEndpoints(n)
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(cmd, config.RPCTimeout)
		defer cancel()

		results := rpc.Benchmark(ctx, urls)
		t := ui.NewTable([]ui.Column{
			{Title: "", Width: 2},
			{Title: "Endpoint", Width: 44},
			{Title: "Latency", Width: 9, Right: true},
			{Title: "Block", Width: 10, Right: true},
		})
		for _, r := range results {
			if !r.Healthy() {
				t.AddRow(ui.Row{ui.StyleError.Render("✗"), r.URL, "-", ui.TrimErr(r.Err.Error(), 10)})
				continue
			}
			t.AddRow(ui.Row{ui.StyleSuccess.Render("✓"), r.URL, r.Latency.Round(time.Millisecond).String(), fmt.Sprint(r.Block)})
		}
		fmt.Fprintln(out, ui.NetworkName(n.DisplayName))
		fmt.Fprintln(out, t.Render())

		best, err := rpc.Fastest(results)
		if err != nil {
			return fmt.Errorf("%s: %w", n.DisplayName, err)
		}
		if len(results) > 1 {
			fmt.Fprintln(out, ui.Hint("fastest: "+best.URL))
		}
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkUseCmd, networkPingCmd)
}
