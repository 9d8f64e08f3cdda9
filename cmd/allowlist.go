package cmd

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/sav3/internal/merkle"
	"github.com/Mohsinsiddi/sav3/internal/ui"
)

var allowlistOut string

var allowlistCmd = &cobra.Command{
	Use:   "allowlist",
	Short: "Build Merkle allowlists and proofs",
	Long: `Merkle tooling for presale and whitelist allowlists.

Address files are either a JSON array of hex strings or one address per
line (# comments allowed). Trees match merkletreejs with {sort: true} over
keccak256(address) leaves, so roots agree with the Hardhat scripts.`,
}

var allowlistBuildCmd = &cobra.Command{
	Use:   "build <addresses>",
	Short: "Print the Merkle root of an address file",
	Example: `  sav3 allowlist build presale.txt
  sav3 allowlist build whitelist.json --out whitelist.proofs.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		al, err := loadAllowlist(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.KeyValueBlock("Allowlist", [][2]string{
			{"File", args[0]},
			{"Addresses", fmt.Sprint(len(al.Addresses))},
			{"Depth", fmt.Sprint(al.Tree.Depth())},
			{"Root", ui.Val(al.Root().Hex())},
		}))
		if allowlistOut != "" {
			if err := al.WriteFile(allowlistOut); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success("proofs written to "+allowlistOut))
		}
		fmt.Fprintln(out, ui.Hint("sav3 sale send <target> setPreSaleMerkleRoot "+al.Root().Hex()))
		return nil
	},
}

var allowlistProofCmd = &cobra.Command{
	Use:   "proof <addresses> <address>",
	Short: "Print the proof for one address",
	Long: `Print the proof for one address, comma separated so it can be passed
straight to 'sav3 sale send <target> preSaleMint <n> <proof>'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		al, err := loadAllowlist(args[0])
		if err != nil {
			return err
		}
		addr, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		proof, err := al.Proof(addr)
		if err != nil {
			return fmt.Errorf("%s: %w", addr.Hex(), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), joinHashes(proof))
		return nil
	},
}

var allowlistVerifyCmd = &cobra.Command{
	Use:   "verify <root> <address> <proof>",
	Short: "Check a proof against a root",
	Long:  `Check a proof the way the sale contract does. An empty proof is written as "".`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := parseHash(args[0])
		if err != nil {
			return fmt.Errorf("root: %w", err)
		}
		addr, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		proof, err := parseProof(args[2])
		if err != nil {
			return err
		}
		if !merkle.VerifyAddress(proof, root, addr) {
			return fmt.Errorf("%s is not in the tree with root %s", addr.Hex(), root.Hex())
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(addr.Hex()+" is eligible"))
		return nil
	},
}

func loadAllowlist(path string) (*merkle.Allowlist, error) {
	addrs, err := merkle.LoadAddresses(path)
	if err != nil {
		return nil, err
	}
	return merkle.NewAllowlist(addrs)
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("want 32 bytes, got %d", len(b))
	}
	return common.BytesToHash(b), nil
}

func parseProof(s string) ([]common.Hash, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	proof := make([]common.Hash, len(parts))
	for i, p := range parts {
		h, err := parseHash(strings.Trim(strings.TrimSpace(p), `"`))
		if err != nil {
			return nil, fmt.Errorf("proof element %d: %w", i, err)
		}
		proof[i] = h
	}
	return proof, nil
}

func joinHashes(hs []common.Hash) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = h.Hex()
	}
	return strings.Join(parts, ",")
}

func init() {
	allowlistBuildCmd.Flags().StringVarP(&allowlistOut, "out", "o", "", "write root and all proofs as JSON")
	allowlistCmd.AddCommand(allowlistBuildCmd, allowlistProofCmd, allowlistVerifyCmd)
}
