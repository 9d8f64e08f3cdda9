package contract

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/sav3/internal/sale"
)

func TestSelector(t *testing.T) {
	tests := []struct {
		fn       ABIEntry
		expected string
	}{
		{ABIEntry{Name: "balanceOf", Inputs: []ABIParam{{Type: "address"}}}, "0x70a08231"},
		{ABIEntry{Name: "totalSupply"}, "0x18160ddd"},
		{ABIEntry{Name: "ownerOf", Inputs: []ABIParam{{Type: "uint256"}}}, "0x6352211e"},
		{ABIEntry{Name: "paused"}, "0x5c975abb"},
		{ABIEntry{Name: "owner"}, "0x8da5cb5b"},
	}
	for _, tt := range tests {
		t.Run(tt.fn.Signature(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fn.Selector())
		})
	}
}

func TestSelectorMatchesParsedABI(t *testing.T) {
	parsed := SaleABI(sale.VariantWindow)
	for _, e := range sav3ABI {
		if e.Type != "function" {
			continue
		}
		m, ok := parsed.Methods[e.Name]
		require.True(t, ok, e.Name)
		assert.Equal(t, e.Selector(), "0x"+hex.EncodeToString(m.ID), e.Name)
		assert.Equal(t, e.Signature(), m.Sig)
	}
}

func TestBuiltins(t *testing.T) {
	all := AllBuiltins()
	require.Len(t, all, 2)
	assert.Equal(t, "sav3", all[0].ID)
	assert.Equal(t, "sw3", all[1].ID)

	assert.Equal(t, "sav3", ForVariant(sale.VariantWindow).ID)
	assert.Equal(t, "sw3", ForVariant(sale.VariantFlag).ID)

	_, ok := GetBuiltin("erc20")
	assert.False(t, ok)
	assert.Nil(t, GetBuiltinABI("erc20"))
}

func TestVariantSpecificMethods(t *testing.T) {
	window := SaleABI(sale.VariantWindow)
	flag := SaleABI(sale.VariantFlag)

	for _, name := range []string{"setPreSaleTime", "getPublicSaleTime"} {
		assert.Contains(t, window.Methods, name)
		assert.NotContains(t, flag.Methods, name)
	}
	for _, name := range []string{"setPreSaleMintStarted", "setPublicMintStarted"} {
		assert.Contains(t, flag.Methods, name)
		assert.NotContains(t, window.Methods, name)
	}
	for _, a := range []string{"publicMint", "preSaleMint", "whitelistMint"} {
		assert.True(t, window.Methods[a].IsPayable(), a)
	}
	assert.False(t, window.Methods["reservedMint"].IsPayable())
	assert.Len(t, window.Constructor.Inputs, 2)
	assert.Contains(t, window.Events, "Transfer")
}

func TestFunctionsSplit(t *testing.T) {
	reads, writes := Functions(sw3ABI)
	assert.NotEmpty(t, reads)
	assert.NotEmpty(t, writes)
	for _, r := range reads {
		assert.True(t, r.IsReadFunction())
	}
	for _, w := range writes {
		assert.True(t, w.IsWriteFunction())
	}
	assert.NotNil(t, Find(sw3ABI, "publicMint"))
	assert.Nil(t, Find(sw3ABI, "Transfer"), "events are not functions")
}
