package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueBlock(t *testing.T) {
	result := KeyValueBlock("Sale", [][2]string{
		{"Presale", "on"},
		{"Price", "0.05 ETH"},
		{"Reserved", "200"},
	})
	assert.Contains(t, result, "Sale")
	assert.Contains(t, result, "0.05 ETH")
	assert.Contains(t, result, "╭")
	assert.Contains(t, result, "╰")

	iPresale := strings.Index(result, "Presale")
	iPrice := strings.Index(result, "Price")
	iReserved := strings.Index(result, "Reserved")
	require.Greater(t, iPresale, -1)
	assert.Less(t, iPresale, iPrice)
	assert.Less(t, iPrice, iReserved)
}

func TestKeyValueBlockWithoutTitleOrPairs(t *testing.T) {
	assert.Contains(t, KeyValueBlock("", [][2]string{{"Owner", "0xabc"}}), "0xabc")
	assert.Contains(t, KeyValueBlock("Empty", nil), "Empty")
}

func TestNewTable(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Step", Width: 4}, {Title: "Result", Width: 20}})
	assert.Len(t, tbl.Columns, 2)
	assert.Empty(t, tbl.Rows)
	assert.Equal(t, -1, tbl.SelIdx)

	tbl.AddRow(Row{"1", "ok"})
	tbl.AddRow(Row{"2", "already minted"})
	assert.Len(t, tbl.Rows, 2)
}

func TestTableRender(t *testing.T) {
	tbl := NewTable([]Column{
		{Title: "Method", Width: 12},
		{Title: "From", Width: 12},
		{Title: "Value", Width: 10, Right: true},
	})
	tbl.AddRow(Row{"presaleMint", "0xf39F…2266", "0.1"})
	tbl.AddRow(Row{"publicMint", "0x7099…79C8", "0.3"})
	tbl.SelIdx = 1

	out := tbl.Render()
	for _, want := range []string{"Method", "From", "Value", "------------", "presaleMint", "0xf39F…2266", "publicMint"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "presaleMint"), strings.Index(out, "publicMint"))
}

func TestTableRenderShortRow(t *testing.T) {
	tbl := NewTable([]Column{{Title: "A", Width: 5}, {Title: "B", Width: 5}, {Title: "C", Width: 5}})
	tbl.AddRow(Row{"only1"})
	assert.Contains(t, tbl.Render(), "only1")
}

func TestFit(t *testing.T) {
	assert.Equal(t, "ab   ", fit("ab", 5, false))
	assert.Equal(t, "   ab", fit("ab", 5, true))
	assert.Equal(t, "abcd…", fit("abcdefgh", 5, false))
	assert.Equal(t, "a", fit("abc", 1, false))
	assert.Equal(t, "0x12…", fit("0x12…34", 5, false))
	assert.Equal(t, "exact", fit("exact", 5, true))
}
