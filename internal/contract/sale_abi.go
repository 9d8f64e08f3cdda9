package contract

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/Mohsinsiddi/sav3/internal/sale"
)

// Sav3 and Sw3 share every entry except the phase switches: Sav3 opens a
// phase during a [start, end) window, Sw3 behind an owner-set flag.
func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          "sav3",
		Name:        "Sav3 (time-window sale)",
		Description: "ERC-721 sale whose presale, whitelist and public phases open during owner-set time windows.",
		Variant:     sale.VariantWindow,
		ABI:         sav3ABI,
	})
	RegisterBuiltin(BuiltinKind{
		ID:          "sw3",
		Name:        "Sw3 (flag sale)",
		Description: "ERC-721 sale whose presale, whitelist and public phases are switched on by owner-set flags.",
		Variant:     sale.VariantFlag,
		ABI:         sw3ABI,
	})
}

var parsedSale = map[sale.Variant]abi.ABI{
	sale.VariantWindow: mustParse(sav3ABI),
	sale.VariantFlag:   mustParse(sw3ABI),
}

func mustParse(entries []ABIEntry) abi.ABI {
	a, err := Parse(entries)
	if err != nil {
		panic(err)
	}
	return a
}

func params(kv ...string) []ABIParam {
	out := make([]ABIParam, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, ABIParam{Name: kv[i], Type: kv[i+1]})
	}
	return out
}

func view(name string, in []ABIParam, out ...string) ABIEntry {
	outs := make([]ABIParam, len(out))
	for i, t := range out {
		outs[i] = ABIParam{Type: t}
	}
	return ABIEntry{Name: name, Type: "function", Inputs: in, Outputs: outs, StateMutability: "view"}
}

func write(name, mutability string, in []ABIParam) ABIEntry {
	return ABIEntry{Name: name, Type: "function", Inputs: in, Outputs: []ABIParam{}, StateMutability: mutability}
}

var saleCommonABI = []ABIEntry{
	{
		Type:            "constructor",
		Inputs:          params("maxBatchSize_", "uint256", "maxSupply_", "uint256"),
		StateMutability: "nonpayable",
	},
	// ── Read ─────────────────────────────────────────────────────────────────
	view("owner", nil, "address"),
	view("paused", nil, "bool"),
	view("totalSupply", nil, "uint256"),
	view("maxSupply", nil, "uint256"),
	view("maxBatchSize", nil, "uint256"),
	view("balanceOf", params("owner", "address"), "uint256"),
	view("ownerOf", params("tokenId", "uint256"), "address"),
	view("preSalePrice", nil, "uint256"),
	view("whitelistPrice", nil, "uint256"),
	view("publicPrice", nil, "uint256"),
	view("preSaleMerkleRoot", nil, "bytes32"),
	view("whitelistMerkleRoot", nil, "bytes32"),
	view("isPreSaleOn", nil, "bool"),
	view("isWhitelistSaleOn", nil, "bool"),
	view("isPublicSaleOn", nil, "bool"),
	view("reservedQuantity", nil, "uint256"),
	view("usedReservedQuantity", nil, "uint256"),
	view("preSaleMintCount", params("account", "address"), "uint256"),
	view("whitelistMintCount", params("account", "address"), "uint256"),
	// ── Admin ────────────────────────────────────────────────────────────────
	write("pause", "nonpayable", nil),
	write("unpause", "nonpayable", nil),
	write("setPreSalePrice", "nonpayable", params("price", "uint256")),
	write("setWhitelistPrice", "nonpayable", params("price", "uint256")),
	write("setPublicPrice", "nonpayable", params("price", "uint256")),
	write("setPreSaleMerkleRoot", "nonpayable", params("root", "bytes32")),
	write("setWhitelistMerkleRoot", "nonpayable", params("root", "bytes32")),
	write("setReservedQuantity", "nonpayable", params("quantity", "uint256")),
	write("reservedMint", "nonpayable", params("quantity", "uint256", "to", "address")),
	write("withdraw", "nonpayable", nil),
	// ── Mint ─────────────────────────────────────────────────────────────────
	write("preSaleMint", "payable", params("quantity", "uint256", "proof", "bytes32[]")),
	write("whitelistMint", "payable", params("quantity", "uint256", "proof", "bytes32[]")),
	write("publicMint", "payable", params("quantity", "uint256")),
	// ── Events ───────────────────────────────────────────────────────────────
	{
		Name: "Transfer", Type: "event",
		Inputs: []ABIParam{
			{Name: "from", Type: "address", Indexed: true},
			{Name: "to", Type: "address", Indexed: true},
			{Name: "tokenId", Type: "uint256", Indexed: true},
		},
	},
}

var sav3ABI = append(append([]ABIEntry{}, saleCommonABI...),
	write("setPreSaleTime", "nonpayable", params("start", "uint256", "end", "uint256")),
	write("setWhitelistSaleTime", "nonpayable", params("start", "uint256", "end", "uint256")),
	write("setPublicSaleTime", "nonpayable", params("start", "uint256", "end", "uint256")),
	view("getPreSaleTime", nil, "uint256", "uint256"),
	view("getWhitelistSaleTime", nil, "uint256", "uint256"),
	view("getPublicSaleTime", nil, "uint256", "uint256"),
)

var sw3ABI = append(append([]ABIEntry{}, saleCommonABI...),
	write("setPreSaleMintStarted", "nonpayable", params("started", "bool")),
	write("setWhitelistMintStarted", "nonpayable", params("started", "bool")),
	write("setPublicMintStarted", "nonpayable", params("started", "bool")),
)
