package contract

import (
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/Mohsinsiddi/sav3/internal/sale"
)

// BuiltinKind describes a sale contract whose ABI is embedded in the binary.
// Built-ins register themselves via init() in their own file.
type BuiltinKind struct {
	ID          string       // machine key, e.g. "sav3", "sw3"
	Name        string       // human label
	Description string       // one-line summary shown in `sav3 deploy --help`
	Variant     sale.Variant // phase activation policy
	ABI         []ABIEntry
}

var builtinRegistry = map[string]BuiltinKind{}

// RegisterBuiltin adds a built-in ABI to the global registry.
func RegisterBuiltin(b BuiltinKind) {
	builtinRegistry[b.ID] = b
}

// GetBuiltin returns a built-in by ID. ok is false if not found.
func GetBuiltin(id string) (BuiltinKind, bool) {
	b, ok := builtinRegistry[id]
	return b, ok
}

// GetBuiltinABI returns the ABI entries for a built-in ID, or nil if unknown.
func GetBuiltinABI(id string) []ABIEntry {
	b, ok := builtinRegistry[id]
	if !ok {
		return nil
	}
	return b.ABI
}

// ForVariant returns the built-in implementing v.
func ForVariant(v sale.Variant) BuiltinKind {
	for _, b := range builtinRegistry {
		if b.Variant == v {
			return b
		}
	}
	panic("contract: no built-in for variant " + v.String())
}

// SaleABI returns the parsed ABI of the sale contract for v.
func SaleABI(v sale.Variant) abi.ABI {
	return parsedSale[v]
}

// AllBuiltins returns all registered built-ins sorted by ID.
func AllBuiltins() []BuiltinKind {
	out := make([]BuiltinKind, 0, len(builtinRegistry))
	for _, b := range builtinRegistry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
