package scenario_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/sav3/internal/ledger"
	"github.com/Mohsinsiddi/sav3/internal/sale"
	"github.com/Mohsinsiddi/sav3/internal/scenario"
)

func fixedClock() uint64 { return 1_700_000_000 }

func findStep(t *testing.T, r *scenario.Report, name string) scenario.Step {
	t.Helper()
	for _, s := range r.Steps {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no step %q", name)
	return scenario.Step{}
}

func TestFullScenarioBothVariants(t *testing.T) {
	for _, v := range []sale.Variant{sale.VariantWindow, sale.VariantFlag} {
		t.Run(v.String(), func(t *testing.T) {
			l := ledger.New(ledger.WithClock(fixedClock))
			cfg := scenario.DefaultConfig(v)

			report, err := scenario.Run(context.Background(), l, cfg)
			require.NoError(t, err)

			for _, s := range report.Failures() {
				t.Errorf("step %q: want %q, got %q (err %v)", s.Name, s.Want, s.Got, s.Err)
			}
			assert.True(t, report.Passed())
			assert.Equal(t, v, report.Variant)
			assert.Equal(t, l.Account(0).Address(), report.Owner)

			// 2 presale + 2 whitelist + 3 public + 2 reserved.
			assert.Equal(t, uint64(9), report.TotalSupply)
			assert.Equal(t, uint64(2), report.UsedReserved)

			paid := new(big.Int).Mul(cfg.PreSalePrice, big.NewInt(2))
			paid.Add(paid, new(big.Int).Mul(cfg.WhitelistPrice, big.NewInt(2)))
			paid.Add(paid, big.NewInt(params.Ether))
			paid.Add(paid, new(big.Int).Mul(cfg.PublicPrice, big.NewInt(3)))
			assert.Equal(t, paid.String(), report.Withdrawn.String())
		})
	}
}

func TestScenarioRecordsRevertReasons(t *testing.T) {
	l := ledger.New(ledger.WithClock(fixedClock))
	report, err := scenario.Run(context.Background(), l, scenario.DefaultConfig(sale.VariantWindow))
	require.NoError(t, err)

	tests := map[string]string{
		"presale mint while paused":        "contract is paused",
		"presale mint before start":        "presale has not begun yet",
		"presale mint off the list":        "not eligible for presale mint",
		"presale mint over the cap":        "reached max mint count for presale",
		"presale mint past the cap":        "already minted",
		"presale mint underpaid":           "insufficient payment",
		"presale mint after end":           "presale has not begun yet",
		"whitelist mint off the list":      "not eligible for whitelist mint",
		"whitelist mint after end":         "whitelist sale has not begun yet",
		"public mint into the reserve":     "reached max supply",
		"public mint after end":            "public sale has not started yet",
		"pause by non-owner":               "caller is not the owner",
		"reserved mint beyond the reserve": "not enough reserved quantity",
		"reserve below used":               "reserved quantity is greater than used quantity",
		"reserve above supply":             "reached max supply",
	}
	for name, reason := range tests {
		s := findStep(t, report, name)
		assert.Equal(t, reason, s.Got, name)
		assert.Equal(t, uint64(0), s.Status, name)
		assert.NotEqual(t, [32]byte{}, [32]byte(s.TxHash), "%s should leave a receipt", name)
	}

	mint := findStep(t, report, "presale mint")
	assert.Empty(t, mint.Got)
	assert.Equal(t, uint64(1), mint.Status)
	assert.Equal(t, l.Account(11).Address(), mint.From)
}

func TestScenarioWindowAdvancesClock(t *testing.T) {
	l := ledger.New(ledger.WithClock(fixedClock))
	cfg := scenario.DefaultConfig(sale.VariantWindow)
	cfg.Window = 10 * time.Minute

	_, err := scenario.Run(context.Background(), l, cfg)
	require.NoError(t, err)
	assert.Equal(t, fixedClock()+3*601, l.Time())
}

func TestScenarioFlagVariantClosesWithTransactions(t *testing.T) {
	l := ledger.New(ledger.WithClock(fixedClock))
	report, err := scenario.Run(context.Background(), l, scenario.DefaultConfig(sale.VariantFlag))
	require.NoError(t, err)

	findStep(t, report, "close presale")
	findStep(t, report, "close public")
	assert.Equal(t, fixedClock(), l.Time())
}

func TestScenarioSmallSale(t *testing.T) {
	cfg := scenario.DefaultConfig(sale.VariantFlag)
	cfg.MaxBatchSize = 2
	cfg.MaxSupply = 10

	report, err := scenario.Run(context.Background(), ledger.New(), cfg)
	require.NoError(t, err)
	assert.True(t, report.Passed())
	assert.Equal(t, uint64(9), report.TotalSupply)
}

func TestScenarioRejectsBadInput(t *testing.T) {
	ctx := context.Background()

	_, err := scenario.Run(ctx, ledger.New(ledger.WithAccounts(5)), scenario.DefaultConfig(sale.VariantFlag))
	assert.ErrorIs(t, err, scenario.ErrTooFewAccounts)

	for name, mutate := range map[string]func(*scenario.Config){
		"batch":  func(c *scenario.Config) { c.MaxBatchSize = 1 },
		"supply": func(c *scenario.Config) { c.MaxSupply = 9 },
		"price":  func(c *scenario.Config) { c.PublicPrice = nil },
		"free":   func(c *scenario.Config) { c.PreSalePrice = new(big.Int) },
		"window": func(c *scenario.Config) { c.Window = time.Millisecond },
	} {
		cfg := scenario.DefaultConfig(sale.VariantWindow)
		mutate(&cfg)
		_, err := scenario.Run(ctx, ledger.New(), cfg)
		assert.ErrorIs(t, err, scenario.ErrInvalidConfig, name)
	}
}

func TestScenarioCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scenario.Run(ctx, ledger.New(), scenario.DefaultConfig(sale.VariantFlag))
	assert.ErrorIs(t, err, context.Canceled)
}
