// Package scenario drives a full sale on the in-process ledger: pricing,
// allowlists, every phase opening and closing, the reserved pool and the
// final withdrawal. Each transaction is recorded with the outcome it was
// expected to have, so callers can print or assert on the whole run.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"

	"github.com/Mohsinsiddi/sav3/internal/contract"
	"github.com/Mohsinsiddi/sav3/internal/ledger"
	"github.com/Mohsinsiddi/sav3/internal/merkle"
	"github.com/Mohsinsiddi/sav3/internal/sale"
)

// MinAccounts is how many funded accounts a run needs.
const MinAccounts = 15

var (
	ErrTooFewAccounts = errors.New("ledger has too few dev accounts")
	ErrInvalidConfig  = errors.New("invalid scenario config")
)

// Config parameterises a run.
type Config struct {
	Variant        sale.Variant
	MaxBatchSize   uint64
	MaxSupply      uint64
	PreSalePrice   *big.Int
	WhitelistPrice *big.Int
	PublicPrice    *big.Int
	// Window is how long a phase stays open on a window-variant sale.
	Window time.Duration
}

// DefaultConfig mirrors the original deployment: 100 per public mint,
// 5000 tokens, 0.067/0.089/0.11 ETH.
func DefaultConfig(v sale.Variant) Config {
	return Config{
		Variant:        v,
		MaxBatchSize:   100,
		MaxSupply:      5000,
		PreSalePrice:   milliEther(67),
		WhitelistPrice: milliEther(89),
		PublicPrice:    milliEther(110),
		Window:         time.Hour,
	}
}

func (c Config) validate() error {
	switch {
	case c.MaxBatchSize < 2:
		return fmt.Errorf("%w: max batch size must be at least 2", ErrInvalidConfig)
	case c.MaxSupply < 10:
		return fmt.Errorf("%w: max supply must be at least 10", ErrInvalidConfig)
	case c.PreSalePrice == nil || c.WhitelistPrice == nil || c.PublicPrice == nil:
		return fmt.Errorf("%w: all three prices are required", ErrInvalidConfig)
	case c.PreSalePrice.Sign() <= 0:
		return fmt.Errorf("%w: presale price must be positive", ErrInvalidConfig)
	case c.Window < time.Second:
		return fmt.Errorf("%w: window must be at least one second", ErrInvalidConfig)
	}
	return nil
}

// Step is one transaction or view check of a run.
type Step struct {
	Name string
	From common.Address
	// Want is the expected revert reason ("" for success) or, for views,
	// the expected value.
	Want string
	Got  string
	View bool

	TxHash common.Hash
	Status uint64
	Err    error // failure that is not a revert
}

// OK reports whether the step ended as expected.
func (s Step) OK() bool { return s.Err == nil && s.Got == s.Want }

// Report is the outcome of a run.
type Report struct {
	Variant      sale.Variant
	Contract     common.Address
	Owner        common.Address
	Steps        []Step
	TotalSupply  uint64
	UsedReserved uint64
	Withdrawn    *big.Int
}

// Passed reports whether every step ended as expected.
func (r *Report) Passed() bool { return len(r.Failures()) == 0 }

// Failures returns the steps that did not.
func (r *Report) Failures() []Step {
	var out []Step
	for _, s := range r.Steps {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// Run deploys a fresh sale on l from dev account 0 and plays the scenario.
// Unexpected outcomes do not stop the run; they show up in the report. An
// error is returned only when the run cannot proceed at all.
func Run(ctx context.Context, l *ledger.Ledger, cfg Config) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	accts := l.Accounts()
	if len(accts) < MinAccounts {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooFewAccounts, len(accts), MinAccounts)
	}

	owner := accts[0].Address()
	addr, err := l.Deploy(ctx, owner, cfg.Variant, cfg.MaxBatchSize, cfg.MaxSupply)
	if err != nil {
		return nil, fmt.Errorf("deploying: %w", err)
	}
	session, err := l.Bind(addr, owner)
	if err != nil {
		return nil, err
	}

	r := &runner{
		cfg:    cfg,
		ledger: l,
		owner:  session.WithContext(ctx),
		report: &Report{Variant: cfg.Variant, Contract: addr, Owner: owner},
		accts:  accts,
	}
	if err := r.play(); err != nil {
		return r.report, err
	}

	if r.report.TotalSupply, err = r.owner.TotalSupply(); err != nil {
		return r.report, err
	}
	if r.report.UsedReserved, err = r.owner.UsedReservedQuantity(); err != nil {
		return r.report, err
	}
	return r.report, nil
}

type runner struct {
	cfg    Config
	ledger *ledger.Ledger
	owner  *ledger.SaleSession
	report *Report
	accts  []*ledger.DevAccount
}

func (r *runner) as(i int) *ledger.SaleSession {
	return r.owner.Connect(r.accts[i].Address())
}

// tx runs send and records how it ended against want.
func (r *runner) tx(name, want string, s *ledger.SaleSession, send func(*ledger.SaleSession) (*types.Receipt, error)) {
	st := Step{Name: name, From: s.From(), Want: want}
	receipt, err := send(s)
	if receipt != nil {
		st.TxHash = receipt.TxHash
		st.Status = receipt.Status
	}
	if err != nil {
		if reason, ok := contract.RevertReason(err); ok {
			st.Got = reason
			if reason == "" {
				st.Got = "execution reverted"
			}
		} else {
			st.Err = err
		}
	}
	r.report.Steps = append(r.report.Steps, st)
}

func (r *runner) view(name, want string, read func() (string, error)) {
	st := Step{Name: name, From: r.owner.From(), Want: want, View: true}
	st.Got, st.Err = read()
	r.report.Steps = append(r.report.Steps, st)
}

func (r *runner) isOn(p sale.Phase, want bool) {
	r.view(fmt.Sprintf("%s is on", p), fmt.Sprint(want), func() (string, error) {
		on, err := r.owner.IsOn(p)
		return fmt.Sprint(on), err
	})
}

func (r *runner) open(p sale.Phase) {
	r.tx("open "+p.String(), "", r.owner, func(s *ledger.SaleSession) (*types.Receipt, error) {
		return s.Open(p, uint64(r.cfg.Window/time.Second))
	})
	r.isOn(p, true)
}

// end closes p. A window sale is left to run out by moving the block clock
// past its end; a flag sale has its flag cleared.
func (r *runner) end(p sale.Phase) {
	if r.cfg.Variant == sale.VariantWindow {
		r.ledger.IncreaseTime(r.cfg.Window + time.Second)
	} else {
		r.tx("close "+p.String(), "", r.owner, func(s *ledger.SaleSession) (*types.Receipt, error) {
			return s.Close(p)
		})
	}
	r.isOn(p, false)
}

func (r *runner) mint(name, want string, who int, p sale.Phase, n uint64, proof []common.Hash, value *big.Int) {
	r.tx(name, want, r.as(who), func(s *ledger.SaleSession) (*types.Receipt, error) {
		return s.Mint(p, n, proof, value)
	})
}

func (r *runner) play() error {
	cfg := r.cfg
	addrs := func(from, to int) []common.Address {
		out := make([]common.Address, 0, to-from)
		for _, a := range r.accts[from:to] {
			out = append(out, a.Address())
		}
		return out
	}
	// Accounts 10-14 are on the presale list, 0-4 on the whitelist, 5-9 on
	// neither.
	presaleList, err := merkle.NewAllowlist(addrs(10, 15))
	if err != nil {
		return err
	}
	whitelist, err := merkle.NewAllowlist(addrs(0, 5))
	if err != nil {
		return err
	}
	preBuyer, capBuyer, lateBuyer := 11, 12, 13
	wlBuyer, publicBuyer := 1, 6
	proof := func(l *merkle.Allowlist, i int) []common.Hash {
		p, _ := l.Proof(r.accts[i].Address())
		return p
	}
	cost := func(price *big.Int, n uint64) *big.Int {
		return new(big.Int).Mul(price, new(big.Int).SetUint64(n))
	}
	ok := ""

	// Setup while paused.
	prices := []struct {
		p     sale.Phase
		price *big.Int
	}{{sale.PreSale, cfg.PreSalePrice}, {sale.Whitelist, cfg.WhitelistPrice}, {sale.Public, cfg.PublicPrice}}
	for _, pp := range prices {
		pp := pp
		r.tx("set "+pp.p.String()+" price", ok, r.owner, func(s *ledger.SaleSession) (*types.Receipt, error) {
			return s.SetPrice(pp.p, pp.price)
		})
		r.view(pp.p.String()+" price", pp.price.String(), func() (string, error) {
			v, err := r.owner.Price(pp.p)
			if err != nil {
				return "", err
			}
			return v.String(), nil
		})
	}
	r.tx("set presale root", ok, r.owner, func(s *ledger.SaleSession) (*types.Receipt, error) {
		return s.SetMerkleRoot(sale.PreSale, presaleList.Root())
	})
	r.tx("set whitelist root", ok, r.owner, func(s *ledger.SaleSession) (*types.Receipt, error) {
		return s.SetMerkleRoot(sale.Whitelist, whitelist.Root())
	})
	r.mint("presale mint while paused", sale.ErrPaused.Error(), preBuyer, sale.PreSale, 1,
		proof(presaleList, preBuyer), cfg.PreSalePrice)
	r.tx("unpause", ok, r.owner, (*ledger.SaleSession).Unpause)

	// Presale.
	r.mint("presale mint before start", sale.ErrPresaleNotActive.Error(), preBuyer, sale.PreSale, 1,
		proof(presaleList, preBuyer), cfg.PreSalePrice)
	r.open(sale.PreSale)
	r.mint("presale mint", ok, preBuyer, sale.PreSale, 2,
		proof(presaleList, preBuyer), cost(cfg.PreSalePrice, 2))
	r.mint("presale mint off the list", "not eligible for presale mint", publicBuyer, sale.PreSale, 2,
		proof(presaleList, preBuyer), cost(cfg.PreSalePrice, 2))
	limit := sale.AllowlistCap(cfg.Variant)
	r.mint("presale mint over the cap", "reached max mint count for presale", capBuyer, sale.PreSale, limit+1,
		proof(presaleList, capBuyer), cost(cfg.PreSalePrice, limit+1))
	r.mint("presale mint past the cap", sale.ErrAlreadyMinted.Error(), preBuyer, sale.PreSale, limit-1,
		proof(presaleList, preBuyer), cost(cfg.PreSalePrice, limit-1))
	r.mint("presale mint underpaid", sale.ErrInsufficientPayment.Error(), lateBuyer, sale.PreSale, 1,
		proof(presaleList, lateBuyer), new(big.Int).Sub(cfg.PreSalePrice, big.NewInt(1)))
	r.view("presale minted by buyer", "2", func() (string, error) {
		n, err := r.owner.MintedIn(sale.PreSale, r.accts[preBuyer].Address())
		return fmt.Sprint(n), err
	})
	r.end(sale.PreSale)
	r.mint("presale mint after end", sale.ErrPresaleNotActive.Error(), lateBuyer, sale.PreSale, 1,
		proof(presaleList, lateBuyer), cfg.PreSalePrice)

	// Whitelist. The buyer overpays by one ether, which the contract keeps.
	r.open(sale.Whitelist)
	r.mint("whitelist mint", ok, wlBuyer, sale.Whitelist, 2,
		proof(whitelist, wlBuyer), new(big.Int).Add(cost(cfg.WhitelistPrice, 2), big.NewInt(params.Ether)))
	r.mint("whitelist mint off the list", "not eligible for whitelist mint", preBuyer, sale.Whitelist, 1,
		proof(presaleList, preBuyer), cfg.WhitelistPrice)
	r.end(sale.Whitelist)
	r.mint("whitelist mint after end", sale.ErrWhitelistNotActive.Error(), wlBuyer, sale.Whitelist, 1,
		proof(whitelist, wlBuyer), cfg.WhitelistPrice)

	// Public.
	r.open(sale.Public)
	r.mint("public mint", ok, publicBuyer, sale.Public, 2, nil, cost(cfg.PublicPrice, 2))
	r.mint("public mint over batch size", sale.ErrMaxBatchExceeded.Error(), publicBuyer, sale.Public, cfg.MaxBatchSize+1,
		nil, cost(cfg.PublicPrice, cfg.MaxBatchSize+1))
	r.tx("pause by non-owner", sale.ErrUnauthorized.Error(), r.as(publicBuyer), (*ledger.SaleSession).Pause)
	r.tx("pause", ok, r.owner, (*ledger.SaleSession).Pause)
	r.mint("public mint while paused", sale.ErrPaused.Error(), publicBuyer, sale.Public, 1, nil, cfg.PublicPrice)
	r.tx("unpause", ok, r.owner, (*ledger.SaleSession).Unpause)

	// Reserve all but one of the remaining tokens.
	minted, err := r.owner.TotalSupply()
	if err != nil {
		return err
	}
	reserve := cfg.MaxSupply - minted - 1
	r.tx(fmt.Sprintf("reserve %d", reserve), ok, r.owner, func(s *ledger.SaleSession) (*types.Receipt, error) {
		return s.SetReservedQuantity(reserve)
	})
	r.mint("public mint into the reserve", sale.ErrSupplyExceeded.Error(), publicBuyer, sale.Public, 2, nil, cost(cfg.PublicPrice, 2))
	r.mint("public mint of the last token", ok, publicBuyer, sale.Public, 1, nil, cfg.PublicPrice)
	r.tx("reserved mint beyond the reserve", sale.ErrReservedQuantityExceeded.Error(), r.owner, func(s *ledger.SaleSession) (*types.Receipt, error) {
		return s.ReservedMint(reserve+1, r.accts[2].Address())
	})
	r.tx("reserved mint", ok, r.owner, func(s *ledger.SaleSession) (*types.Receipt, error) {
		return s.ReservedMint(2, r.accts[2].Address())
	})
	r.tx("reserve below used", sale.ErrReservedBelowUsed.Error(), r.owner, func(s *ledger.SaleSession) (*types.Receipt, error) {
		return s.SetReservedQuantity(1)
	})
	r.tx("reserve above supply", sale.ErrSupplyExceeded.Error(), r.owner, func(s *ledger.SaleSession) (*types.Receipt, error) {
		return s.SetReservedQuantity(cfg.MaxSupply + 1)
	})
	r.view("reserved tokens held", "2", func() (string, error) {
		n, err := r.owner.BalanceOf(r.accts[2].Address())
		return fmt.Sprint(n), err
	})
	r.end(sale.Public)
	r.mint("public mint after end", sale.ErrPublicSaleNotActive.Error(), publicBuyer, sale.Public, 1, nil, cfg.PublicPrice)

	// Proceeds.
	held, err := r.owner.Balance(r.report.Contract)
	if err != nil {
		return err
	}
	r.report.Withdrawn = held
	r.tx("withdraw by non-owner", sale.ErrUnauthorized.Error(), r.as(publicBuyer), (*ledger.SaleSession).Withdraw)
	r.tx("withdraw", ok, r.owner, (*ledger.SaleSession).Withdraw)
	r.view("contract balance after withdraw", "0", func() (string, error) {
		b, err := r.owner.Balance(r.report.Contract)
		if err != nil {
			return "", err
		}
		return b.String(), nil
	})
	return nil
}

func milliEther(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether/1000))
}
