// Package sale implements the NFT sale state machine: three independently
// switched mint phases (presale, whitelist, public) with their own prices,
// Merkle allowlists and per-address caps, an owner-only reserved pool and a
// pause switch.
//
// A Sale is not safe for concurrent use. The host (see internal/ledger)
// serialises calls and runs each one against a Clone, committing it only
// when the call succeeds.
package sale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Msg carries the attested caller and the value attached to a call.
type Msg struct {
	Sender common.Address
	Value  *big.Int // nil means zero
}

func (m Msg) value() *big.Int {
	if m.Value == nil {
		return new(big.Int)
	}
	return m.Value
}

// Transfer is the ERC-721 Transfer notification emitted for every mint.
type Transfer struct {
	From    common.Address
	To      common.Address
	TokenID uint64
}

// Sale is the persistent contract state record.
type Sale struct {
	variant Variant
	clock   Clock

	owner  common.Address
	paused bool

	maxBatchSize uint64
	maxSupply    uint64
	totalMinted  uint64

	reservedQuantity     uint64
	usedReservedQuantity uint64

	phases [numPhases]*phaseState

	owners   map[uint64]common.Address
	balances map[common.Address]uint64
	proceeds *big.Int

	events []Transfer
}

// Option configures a Sale at construction.
type Option func(*settings)

type settings struct {
	variant Variant
	clock   Clock
	caps    [numPhases]uint64
	capSet  [numPhases]bool
}

// WithVariant selects the phase activation policy.
func WithVariant(v Variant) Option {
	return func(c *settings) {
		c.variant = v
	}
}

// WithClock injects the block time source used by the window variant.
func WithClock(clock Clock) Option {
	return func(c *settings) {
		c.clock = clock
	}
}

// WithMintCap overrides the per-address cap of a phase. Zero disables it.
func WithMintCap(p Phase, n uint64) Option {
	return func(c *settings) {
		c.caps[p] = n
		c.capSet[p] = true
	}
}

// Constructor bounds. Ownership is recorded per token, so a collection
// must fit in memory and one mint must stay a short call.
const (
	MaxSupplyLimit    = 1_000_000
	MaxBatchSizeLimit = 10_000
)

// New creates a paused sale owned by owner. maxBatchSize bounds a single
// public mint; maxSupply bounds the collection.
func New(owner common.Address, maxBatchSize, maxSupply uint64, opts ...Option) (*Sale, error) {
	switch {
	case maxBatchSize == 0 || maxSupply == 0:
		return nil, ErrInvalidParams
	case maxSupply > MaxSupplyLimit:
		return nil, fmt.Errorf("%w: max supply above %d", ErrInvalidParams, MaxSupplyLimit)
	case maxBatchSize > MaxBatchSizeLimit:
		return nil, fmt.Errorf("%w: max batch size above %d", ErrInvalidParams, MaxBatchSizeLimit)
	}

	cfg := settings{
		variant: VariantWindow,
		clock:   SystemClock,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	once := cfg.variant == VariantFlag
	for _, p := range []Phase{PreSale, Whitelist} {
		if !cfg.capSet[p] {
			cfg.caps[p] = AllowlistCap(cfg.variant)
		}
	}

	s := &Sale{
		variant:      cfg.variant,
		clock:        cfg.clock,
		owner:        owner,
		paused:       true,
		maxBatchSize: maxBatchSize,
		maxSupply:    maxSupply,
		owners:       make(map[uint64]common.Address),
		balances:     make(map[common.Address]uint64),
		proceeds:     new(big.Int),
	}
	for p := range s.phases {
		s.phases[p] = newPhaseState(cfg.variant, cfg.caps[p], once && Phase(p) != Public)
	}
	return s, nil
}

// Clone returns a deep copy sharing only the clock. Pending events are not
// copied.
func (s *Sale) Clone() *Sale {
	c := *s
	for i, ps := range s.phases {
		c.phases[i] = ps.clone()
	}
	c.owners = make(map[uint64]common.Address, len(s.owners))
	for k, v := range s.owners {
		c.owners[k] = v
	}
	c.balances = make(map[common.Address]uint64, len(s.balances))
	for k, v := range s.balances {
		c.balances[k] = v
	}
	c.proceeds = new(big.Int).Set(s.proceeds)
	c.events = nil
	return &c
}

// SetClock replaces the time source.
func (s *Sale) SetClock(c Clock) {
	s.clock = c
}

// DrainEvents returns and clears the events emitted since the last drain.
func (s *Sale) DrainEvents() []Transfer {
	ev := s.events
	s.events = nil
	return ev
}

func (s *Sale) onlyOwner(m Msg) error {
	if m.Sender != s.owner {
		return ErrUnauthorized
	}
	return nil
}

// --- admin entry points ---

// Pause stops all minting.
func (s *Sale) Pause(m Msg) error {
	if err := s.onlyOwner(m); err != nil {
		return err
	}
	if s.paused {
		return ErrPaused
	}
	s.paused = true
	return nil
}

// Unpause re-enables minting.
func (s *Sale) Unpause(m Msg) error {
	if err := s.onlyOwner(m); err != nil {
		return err
	}
	if !s.paused {
		return ErrNotPaused
	}
	s.paused = false
	return nil
}

// SetPrice sets the unit price (wei) of phase p.
func (s *Sale) SetPrice(m Msg, p Phase, price *big.Int) error {
	if err := s.onlyOwner(m); err != nil {
		return err
	}
	s.phases[p].price = new(big.Int).Set(price)
	return nil
}

func (s *Sale) SetPreSalePrice(m Msg, price *big.Int) error   { return s.SetPrice(m, PreSale, price) }
func (s *Sale) SetWhitelistPrice(m Msg, price *big.Int) error { return s.SetPrice(m, Whitelist, price) }
func (s *Sale) SetPublicPrice(m Msg, price *big.Int) error    { return s.SetPrice(m, Public, price) }

// SetMerkleRoot replaces the allowlist root of an allowlisted phase.
func (s *Sale) SetMerkleRoot(m Msg, p Phase, root common.Hash) error {
	if err := s.onlyOwner(m); err != nil {
		return err
	}
	if p == Public {
		return ErrNoAllowlist
	}
	s.phases[p].root = root
	return nil
}

func (s *Sale) SetPreSaleMerkleRoot(m Msg, root common.Hash) error {
	return s.SetMerkleRoot(m, PreSale, root)
}

func (s *Sale) SetWhitelistMerkleRoot(m Msg, root common.Hash) error {
	return s.SetMerkleRoot(m, Whitelist, root)
}

// SetMintStarted flips the activation flag of p (flag variant only).
func (s *Sale) SetMintStarted(m Msg, p Phase, started bool) error {
	if err := s.onlyOwner(m); err != nil {
		return err
	}
	f, ok := s.phases[p].gate.(*flagActivation)
	if !ok {
		return ErrUnsupportedVariant
	}
	f.started = started
	return nil
}

func (s *Sale) SetPreSaleMintStarted(m Msg, started bool) error {
	return s.SetMintStarted(m, PreSale, started)
}

func (s *Sale) SetWhitelistMintStarted(m Msg, started bool) error {
	return s.SetMintStarted(m, Whitelist, started)
}

func (s *Sale) SetPublicMintStarted(m Msg, started bool) error {
	return s.SetMintStarted(m, Public, started)
}

// SetSaleTime sets the [start, end) window of p (window variant only).
func (s *Sale) SetSaleTime(m Msg, p Phase, start, end uint64) error {
	if err := s.onlyOwner(m); err != nil {
		return err
	}
	w, ok := s.phases[p].gate.(*windowActivation)
	if !ok {
		return ErrUnsupportedVariant
	}
	w.start, w.end = start, end
	return nil
}

func (s *Sale) SetPreSaleTime(m Msg, start, end uint64) error {
	return s.SetSaleTime(m, PreSale, start, end)
}

func (s *Sale) SetWhitelistSaleTime(m Msg, start, end uint64) error {
	return s.SetSaleTime(m, Whitelist, start, end)
}

func (s *Sale) SetPublicSaleTime(m Msg, start, end uint64) error {
	return s.SetSaleTime(m, Public, start, end)
}

// SetReservedQuantity resizes the reserved pool.
func (s *Sale) SetReservedQuantity(m Msg, n uint64) error {
	if err := s.onlyOwner(m); err != nil {
		return err
	}
	if n < s.usedReservedQuantity {
		return ErrReservedBelowUsed
	}
	if n > s.maxSupply {
		return ErrReservedExceedsSupply
	}
	s.reservedQuantity = n
	return nil
}

// ReservedMint mints n tokens from the reserved pool to to. It ignores pause,
// phases, prices and allowlists.
func (s *Sale) ReservedMint(m Msg, n uint64, to common.Address) error {
	if err := s.onlyOwner(m); err != nil {
		return err
	}
	if n == 0 {
		return ErrZeroQuantity
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if n > s.reservedQuantity-s.usedReservedQuantity {
		return ErrReservedQuantityExceeded
	}
	if n > s.maxSupply-s.totalMinted {
		return ErrSupplyExceeded
	}
	s.usedReservedQuantity += n
	s.mint(to, n)
	return nil
}

// Withdraw empties the proceeds and returns the amount. The host pays it to
// the owner.
func (s *Sale) Withdraw(m Msg) (*big.Int, error) {
	if err := s.onlyOwner(m); err != nil {
		return nil, err
	}
	amount := s.proceeds
	s.proceeds = new(big.Int)
	return amount, nil
}

// --- views ---

func (s *Sale) Owner() common.Address { return s.owner }
func (s *Sale) Paused() bool          { return s.paused }
func (s *Sale) Variant() Variant      { return s.variant }
func (s *Sale) MaxSupply() uint64     { return s.maxSupply }
func (s *Sale) MaxBatchSize() uint64  { return s.maxBatchSize }
func (s *Sale) TotalSupply() uint64   { return s.totalMinted }

func (s *Sale) ReservedQuantity() uint64     { return s.reservedQuantity }
func (s *Sale) UsedReservedQuantity() uint64 { return s.usedReservedQuantity }

// Proceeds returns the value held by the contract.
func (s *Sale) Proceeds() *big.Int { return new(big.Int).Set(s.proceeds) }

// IsOn reports whether phase p is currently open.
func (s *Sale) IsOn(p Phase) bool {
	return s.phases[p].gate.isOn(s.clock())
}

func (s *Sale) IsPreSaleOn() bool       { return s.IsOn(PreSale) }
func (s *Sale) IsWhitelistSaleOn() bool { return s.IsOn(Whitelist) }
func (s *Sale) IsPublicSaleOn() bool    { return s.IsOn(Public) }

// Price returns the unit price of p.
func (s *Sale) Price(p Phase) *big.Int { return new(big.Int).Set(s.phases[p].price) }

func (s *Sale) PreSalePrice() *big.Int   { return s.Price(PreSale) }
func (s *Sale) WhitelistPrice() *big.Int { return s.Price(Whitelist) }
func (s *Sale) PublicPrice() *big.Int    { return s.Price(Public) }

// MerkleRoot returns the allowlist root of p.
func (s *Sale) MerkleRoot(p Phase) common.Hash { return s.phases[p].root }

func (s *Sale) PreSaleMerkleRoot() common.Hash   { return s.MerkleRoot(PreSale) }
func (s *Sale) WhitelistMerkleRoot() common.Hash { return s.MerkleRoot(Whitelist) }

// SaleTime returns the window of p (window variant only).
func (s *Sale) SaleTime(p Phase) (start, end uint64, err error) {
	w, ok := s.phases[p].gate.(*windowActivation)
	if !ok {
		return 0, 0, ErrUnsupportedVariant
	}
	return w.start, w.end, nil
}

func (s *Sale) PreSaleTime() (uint64, uint64, error)       { return s.SaleTime(PreSale) }
func (s *Sale) WhitelistSaleTime() (uint64, uint64, error) { return s.SaleTime(Whitelist) }
func (s *Sale) PublicSaleTime() (uint64, uint64, error)    { return s.SaleTime(Public) }

// MintStarted returns the flag of p (flag variant only).
func (s *Sale) MintStarted(p Phase) (bool, error) {
	f, ok := s.phases[p].gate.(*flagActivation)
	if !ok {
		return false, ErrUnsupportedVariant
	}
	return f.started, nil
}

// MintCap returns the per-address cap of p; zero means uncapped.
func (s *Sale) MintCap(p Phase) uint64 { return s.phases[p].cap }

// MintedIn returns how many tokens addr minted during phase p.
func (s *Sale) MintedIn(p Phase, addr common.Address) uint64 { return s.phases[p].minted[addr] }

// BalanceOf returns the number of tokens held by addr.
func (s *Sale) BalanceOf(addr common.Address) uint64 { return s.balances[addr] }

// OwnerOf returns the holder of tokenID.
func (s *Sale) OwnerOf(tokenID uint64) (common.Address, error) {
	o, ok := s.owners[tokenID]
	if !ok {
		return common.Address{}, ErrNonexistentToken
	}
	return o, nil
}
