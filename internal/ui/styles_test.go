package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormattersCarryPrefixAndMessage(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"success", Success, "✓"},
		{"warn", Warn, "⚠"},
		{"err", Err, "✗"},
		{"info", Info, "ℹ"},
		{"hint", Hint, "→"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.fn("deployed")
			assert.Contains(t, out, tt.prefix)
			assert.Contains(t, out, "deployed")
			assert.Contains(t, tt.fn(""), tt.prefix)
		})
	}
}

func TestPlainFormatters(t *testing.T) {
	assert.Contains(t, Addr("0xabc"), "0xabc")
	assert.Contains(t, Val("0.05 ETH"), "0.05 ETH")
	assert.Contains(t, Meta("block 12"), "block 12")
	assert.Contains(t, NetworkName("goerli"), "goerli")
	assert.NotEmpty(t, Banner())
}

func TestOnOff(t *testing.T) {
	assert.Contains(t, OnOff(true), "on")
	assert.Contains(t, OnOff(false), "off")
}

func TestRevert(t *testing.T) {
	assert.Contains(t, Revert(""), "ok")
	assert.Contains(t, Revert("already minted"), "reverted: already minted")
}

func TestTruncateAddr(t *testing.T) {
	assert.Equal(t, "0x1234", TruncateAddr("0x1234"))
	assert.Equal(t, "0x12345678", TruncateAddr("0x12345678"))
	assert.Equal(t, "0xf39F…2266", TruncateAddr("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))
	assert.Equal(t, "", TruncateAddr(""))
}

func TestTrimErr(t *testing.T) {
	assert.Equal(t, "contract is paused", TrimErr("execution reverted: contract is paused", 30))
	assert.Equal(t, "not eligible for…", TrimErr("not eligible for presale mint", 17))
	assert.Equal(t, "a…", TrimErr("abc", 2))
	assert.Equal(t, "x", TrimErr("xyz", 1))
}
