package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/sav3/internal/chain"
	"github.com/Mohsinsiddi/sav3/internal/config"
	"github.com/Mohsinsiddi/sav3/internal/contract"
	"github.com/Mohsinsiddi/sav3/internal/sale"
	"github.com/Mohsinsiddi/sav3/internal/ui"
)

var (
	saleKindFlag string
	saleValue    string
	saleWallet   string
	saleYes      bool
	saleLimit    int
)

var saleCmd = &cobra.Command{
	Use:   "sale",
	Short: "Read and drive a deployed sale",
	Long: `Commands against a deployed sale. <target> is a name recorded by
'sav3 deploy' on the selected network, or a raw address together with --kind.`,
}

// saleTarget is a resolved sale contract.
type saleTarget struct {
	Name    string
	Address common.Address
	Kind    contract.BuiltinKind
	ABI     abi.ABI
}

func resolveSale(n *chain.Network, target string) (*saleTarget, error) {
	if common.IsHexAddress(target) {
		if saleKindFlag == "" {
			return nil, fmt.Errorf("--kind is required with a raw address (sav3 or sw3)")
		}
		k, ok := contract.GetBuiltin(saleKindFlag)
		if !ok {
			return nil, fmt.Errorf("unknown sale kind %q", saleKindFlag)
		}
		return &saleTarget{Name: target, Address: common.HexToAddress(target), Kind: k, ABI: contract.SaleABI(k.Variant)}, nil
	}

	reg, err := newDeployments()
	if err != nil {
		return nil, err
	}
	e, err := reg.Get(target, n.Name)
	if err != nil {
		return nil, fmt.Errorf("%w (see `sav3 deploy`)", err)
	}
	id := e.Builtin
	if saleKindFlag != "" {
		id = saleKindFlag
	}
	k, ok := contract.GetBuiltin(id)
	if !ok {
		return nil, fmt.Errorf("%s@%s has unknown sale kind %q; pass --kind", e.Name, e.Network, id)
	}
	return &saleTarget{Name: e.Name, Address: common.HexToAddress(e.Address), Kind: k, ABI: contract.SaleABI(k.Variant)}, nil
}

var saleStatusCmd = &cobra.Command{
	Use:   "status <target>",
	Short: "Show pause state, phases, prices and counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		n, err := resolveNetwork(out)
		if err != nil {
			return err
		}
		t, err := resolveSale(n, args[0])
		if err != nil {
			return err
		}
		client, err := dial(out, n)
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(cmd, config.RPCTimeout)
		defer cancel()

		st, err := readStatus(ctx, contract.NewCaller(client, t.ABI), t)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, ui.KeyValueBlock(t.Name+" · "+t.Kind.Name, [][2]string{
			{"Address", ui.Addr(t.Address.Hex())},
			{"Network", ui.NetworkName(n.DisplayName)},
			{"Owner", ui.Addr(st.owner.Hex())},
			{"Paused", ui.OnOff(st.paused)},
			{"Minted", fmt.Sprintf("%d / %d", st.totalSupply, st.maxSupply)},
			{"Max per tx", fmt.Sprint(st.maxBatchSize)},
			{"Reserved", fmt.Sprintf("%d used of %d", st.usedReserved, st.reserved)},
		}))
		fmt.Fprintln(out)

		tbl := ui.NewTable([]ui.Column{
			{Title: "Phase", Width: 10},
			{Title: "Open", Width: 5},
			{Title: "Price", Width: 14, Right: true},
			{Title: "Window / Merkle root", Width: 44},
		})
		for _, p := range st.phases {
			tbl.AddRow(ui.Row{p.phase.String(), ui.OnOff(p.on), chain.FormatETH(p.price), p.detail})
		}
		fmt.Fprintln(out, tbl.Render())
		return nil
	},
}

type phaseStatus struct {
	phase  sale.Phase
	on     bool
	price  *big.Int
	detail string
}

type saleStatus struct {
	owner        common.Address
	paused       bool
	totalSupply  uint64
	maxSupply    uint64
	maxBatchSize uint64
	reserved     uint64
	usedReserved uint64
	phases       []phaseStatus
}

var phaseViews = map[sale.Phase]struct{ isOn, price, root, window string }{
	sale.PreSale:   {"isPreSaleOn", "preSalePrice", "preSaleMerkleRoot", "getPreSaleTime"},
	sale.Whitelist: {"isWhitelistSaleOn", "whitelistPrice", "whitelistMerkleRoot", "getWhitelistSaleTime"},
	sale.Public:    {"isPublicSaleOn", "publicPrice", "", "getPublicSaleTime"},
}

func readStatus(ctx context.Context, c *contract.Caller, t *saleTarget) (*saleStatus, error) {
	var firstErr error
	one := func(method string) interface{} {
		res, err := c.Call(ctx, t.Address, method)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", method, err)
			}
			return nil
		}
		return res[0]
	}
	u64 := func(method string) uint64 {
		if v, ok := one(method).(*big.Int); ok {
			return v.Uint64()
		}
		return 0
	}

	st := &saleStatus{
		totalSupply:  u64("totalSupply"),
		maxSupply:    u64("maxSupply"),
		maxBatchSize: u64("maxBatchSize"),
		reserved:     u64("reservedQuantity"),
		usedReserved: u64("usedReservedQuantity"),
	}
	st.owner, _ = one("owner").(common.Address)
	st.paused, _ = one("paused").(bool)

	for _, p := range []sale.Phase{sale.PreSale, sale.Whitelist, sale.Public} {
		v := phaseViews[p]
		ps := phaseStatus{phase: p, price: new(big.Int)}
		ps.on, _ = one(v.isOn).(bool)
		if price, ok := one(v.price).(*big.Int); ok {
			ps.price = price
		}
		var details []string
		if t.Kind.Variant == sale.VariantWindow {
			res, err := c.Call(ctx, t.Address, v.window)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", v.window, err)
			}
			if len(res) == 2 {
				details = append(details, formatWindow(res[0], res[1]))
			}
		}
		if v.root != "" {
			if root, ok := one(v.root).([32]byte); ok {
				details = append(details, ui.TruncateAddr(common.Hash(root).Hex()))
			}
		}
		ps.detail = strings.Join(details, " ")
		st.phases = append(st.phases, ps)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return st, nil
}

func formatWindow(start, end interface{}) string {
	s, _ := start.(*big.Int)
	e, _ := end.(*big.Int)
	if s == nil || e == nil || (s.Sign() == 0 && e.Sign() == 0) {
		return "unset"
	}
	const layout = "01-02 15:04"
	return time.Unix(s.Int64(), 0).UTC().Format(layout) + "→" + time.Unix(e.Int64(), 0).UTC().Format(layout)
}

var saleCallCmd = &cobra.Command{
	Use:   "call <target> <method> [args...]",
	Short: "Call a read-only sale method",
	Example: `  sav3 sale call drop balanceOf 0xf39F...2266
  sav3 sale call drop preSaleMintCount 0xf39F...2266 -n goerli`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		n, err := resolveNetwork(out)
		if err != nil {
			return err
		}
		t, err := resolveSale(n, args[0])
		if err != nil {
			return err
		}
		client, err := dial(out, n)
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(cmd, config.RPCTimeout)
		defer cancel()

		res, err := contract.NewCaller(client, t.ABI).CallStrings(ctx, t.Address, args[1], args[2:]...)
		if err != nil {
			return err
		}
		for _, v := range res {
			fmt.Fprintln(out, ui.Val(v))
		}
		return nil
	},
}

var saleSendCmd = &cobra.Command{
	Use:   "send <target> <method> [args...]",
	Short: "Send an admin or mint transaction",
	Long: `Sign and send a sale method. Arrays (Merkle proofs) are written as
comma separated values: 0xabc…,0xdef…. Use --value for mint payments.`,
	Example: `  sav3 sale send drop unpause
  sav3 sale send drop setPreSaleTime 1700000000 1700003600
  sav3 sale send drop preSaleMint 2 0x5a…,0x9f… --value 0.134eth --wallet buyer`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		n, err := resolveNetwork(out)
		if err != nil {
			return err
		}
		t, err := resolveSale(n, args[0])
		if err != nil {
			return err
		}
		method, ok := t.ABI.Methods[args[1]]
		if !ok {
			return fmt.Errorf("%w: %s", contract.ErrFunctionNotFound, args[1])
		}
		if method.IsConstant() {
			return fmt.Errorf("%s is read-only; use `sav3 sale call`", method.Name)
		}
		callArgs, err := contract.ParseArgs(method.Inputs, args[2:])
		if err != nil {
			return err
		}
		var value *big.Int
		if saleValue != "" {
			if !method.IsPayable() {
				return fmt.Errorf("%s is not payable", method.Name)
			}
			if value, err = contract.ParseValue(saleValue); err != nil {
				return err
			}
		}

		client, err := dial(out, n)
		if err != nil {
			return err
		}
		signer, label, err := resolveSigner(n, saleWallet)
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintln(out, ui.Meta("signer "+signer.Address().Hex()+" ("+label+")"))
		}
		if err := confirmWrite(n, method.Name+" on "+t.Name, saleYes); err != nil {
			return err
		}

		ctx, cancel := withTimeout(cmd, config.TxConfirmTimeout)
		defer cancel()

		sender := contract.NewSender(client, t.ABI, signer)
		sender.PollInterval = config.ReceiptPollInterval
		sender.FallbackGas = config.GasLimitAdminCall
		if method.IsPayable() {
			sender.FallbackGas = config.GasLimitMint
		}

		spin := startSpinner("Sending " + method.Name + "...")
		tx, err := sender.Send(ctx, t.Address, value, method.Name, callArgs...)
		if err != nil {
			spin.Stop()
			if reason, ok := contract.RevertReason(err); ok {
				return fmt.Errorf("%s %s", method.Name, ui.Revert(reason))
			}
			return err
		}
		spin.Update("Waiting for " + short(tx.Hash().Hex()) + "...")
		receipt, err := sender.Wait(ctx, tx)
		spin.Stop()
		if err != nil {
			return err
		}

		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s mined in block %d", method.Name, receipt.BlockNumber.Uint64())))
		fmt.Fprintln(out, ui.Meta("tx "+tx.Hash().Hex()))
		if link := n.TxURL(tx.Hash().Hex()); link != "" {
			fmt.Fprintln(out, ui.Meta(link))
		}
		if len(receipt.Logs) > 0 {
			fmt.Fprintln(out, ui.Info(fmt.Sprintf("%d Transfer event(s)", len(receipt.Logs))))
		}
		return nil
	},
}

var saleHistoryCmd = &cobra.Command{
	Use:   "history <target>",
	Short: "List recent transactions sent to the sale",
	Long: `List recent transactions through the network's Etherscan-compatible API.
Set <NETWORK>_ETHERSCAN_API_KEY to avoid the free tier rate limit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		n, err := resolveNetwork(out)
		if err != nil {
			return err
		}
		t, err := resolveSale(n, args[0])
		if err != nil {
			return err
		}
		ex, err := explorerFor(n)
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(cmd, config.RPCTimeout)
		defer cancel()

		if name, compiler, err := ex.ContractName(ctx, t.Address); err == nil && name != "" {
			fmt.Fprintln(out, ui.Info("verified as "+name+" "+ui.Meta(compiler)))
			if cfg.Solidity != "" && !strings.Contains(compiler, cfg.Solidity) {
				fmt.Fprintln(out, ui.Warn("verified with "+compiler+", config expects solc "+cfg.Solidity))
			}
		} else if verbose && err != nil {
			fmt.Fprintln(out, ui.Warn("source lookup failed: "+err.Error()))
		}

		acts, err := ex.History(ctx, t.Address, saleLimit, t.ABI)
		if err != nil {
			return err
		}
		if len(acts) == 0 {
			fmt.Fprintln(out, ui.Info("no transactions yet"))
			return nil
		}
		tbl := ui.NewTable([]ui.Column{
			{Title: "Block", Width: 9, Right: true},
			{Title: "Age", Width: 9},
			{Title: "Method", Width: 22},
			{Title: "From", Width: 14},
			{Title: "Value", Width: 12, Right: true},
			{Title: "", Width: 2},
		})
		for _, a := range acts {
			status := ui.StyleSuccess.Render("✓")
			if !a.Success {
				status = ui.StyleError.Render("✗")
			}
			tbl.AddRow(ui.Row{
				fmt.Sprint(a.Block),
				age(a.Timestamp),
				a.Method,
				ui.TruncateAddr(a.From.Hex()),
				chain.FormatETH(a.Value),
				status,
			})
		}
		fmt.Fprintln(out, tbl.Render())
		return nil
	},
}

// explorerFor returns the block explorer client of n. Tests point it at a
// local server.
var explorerFor = func(n *chain.Network) (*chain.Explorer, error) {
	if n.ExplorerAPI == "" {
		return nil, fmt.Errorf("%s has no block explorer API", n.DisplayName)
	}
	return chain.NewExplorer(n.ExplorerAPI, config.EtherscanKey(n.Name)), nil
}

func age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

func init() {
	saleCmd.PersistentFlags().StringVar(&saleKindFlag, "kind", "", "sale kind for raw addresses: sav3 or sw3")

	saleSendCmd.Flags().StringVar(&saleValue, "value", "", "ETH to attach, e.g. 0.067eth, 25gwei or wei")
	saleSendCmd.Flags().StringVar(&saleWallet, "wallet", "", "signing wallet (default: env key, then default wallet)")
	saleSendCmd.Flags().BoolVarP(&saleYes, "yes", "y", false, "skip the mainnet confirmation")

	saleHistoryCmd.Flags().IntVar(&saleLimit, "limit", 20, "number of transactions")

	saleCmd.AddCommand(saleStatusCmd, saleCallCmd, saleSendCmd, saleHistoryCmd)
}
