package sale

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Phase identifies one of the three sale stages.
type Phase int

const (
	PreSale Phase = iota
	Whitelist
	Public

	numPhases = 3
)

// Allowlisted phase caps. A window sale caps each address cumulatively; a
// flag sale caps a single mint and lets each address mint once per phase.
const (
	DefaultMintCap = 5
	FlagMintCap    = 2
)

// AllowlistCap returns the default presale and whitelist cap of v.
func AllowlistCap(v Variant) uint64 {
	if v == VariantFlag {
		return FlagMintCap
	}
	return DefaultMintCap
}

func (p Phase) String() string {
	switch p {
	case PreSale:
		return "presale"
	case Whitelist:
		return "whitelist"
	case Public:
		return "public"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ParsePhase accepts "presale", "whitelist" or "public" (case-insensitive).
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "presale", "pre-sale":
		return PreSale, nil
	case "whitelist":
		return Whitelist, nil
	case "public":
		return Public, nil
	}
	return 0, fmt.Errorf("unknown sale phase %q", s)
}

// notActive returns the rejection for a closed phase.
func (p Phase) notActive() error {
	switch p {
	case PreSale:
		return ErrPresaleNotActive
	case Whitelist:
		return ErrWhitelistNotActive
	}
	return ErrPublicSaleNotActive
}

// Variant selects how a phase is switched on.
type Variant int

const (
	// VariantWindow opens a phase while start <= now < end.
	VariantWindow Variant = iota
	// VariantFlag opens a phase while its admin-set flag is true.
	VariantFlag
)

func (v Variant) String() string {
	if v == VariantFlag {
		return "flag"
	}
	return "window"
}

// ParseVariant maps "sav3"/"window" and "sw3"/"flag" to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sav3", "window", "time", "":
		return VariantWindow, nil
	case "sw3", "flag", "bool":
		return VariantFlag, nil
	}
	return 0, fmt.Errorf("unknown sale variant %q (want sav3 or sw3)", s)
}

// Clock returns the current block time in unix seconds.
type Clock func() uint64

// SystemClock reads the wall clock.
func SystemClock() uint64 {
	return uint64(time.Now().Unix())
}

// activation decides whether a phase is open.
type activation interface {
	isOn(now uint64) bool
	clone() activation
}

type flagActivation struct {
	started bool
}

func (f *flagActivation) isOn(uint64) bool { return f.started }

func (f *flagActivation) clone() activation {
	c := *f
	return &c
}

type windowActivation struct {
	start, end uint64
}

func (w *windowActivation) isOn(now uint64) bool { return w.start <= now && now < w.end }

func (w *windowActivation) clone() activation {
	c := *w
	return &c
}

// phaseState is the per-phase slice of the sale record.
type phaseState struct {
	price  *big.Int
	root   common.Hash
	gate   activation
	cap    uint64 // 0 = no per-address cap
	once   bool   // one mint per address
	minted map[common.Address]uint64
}

func newPhaseState(v Variant, limit uint64, once bool) *phaseState {
	ps := &phaseState{
		price:  new(big.Int),
		cap:    limit,
		once:   once,
		minted: make(map[common.Address]uint64),
	}
	if v == VariantFlag {
		ps.gate = &flagActivation{}
	} else {
		ps.gate = &windowActivation{}
	}
	return ps
}

func (ps *phaseState) clone() *phaseState {
	c := &phaseState{
		price:  new(big.Int).Set(ps.price),
		root:   ps.root,
		gate:   ps.gate.clone(),
		cap:    ps.cap,
		once:   ps.once,
		minted: make(map[common.Address]uint64, len(ps.minted)),
	}
	for k, v := range ps.minted {
		c.minted[k] = v
	}
	return c
}
