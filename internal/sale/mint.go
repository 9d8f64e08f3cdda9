package sale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/sav3/internal/merkle"
)

// PreSaleMint mints count tokens to the caller if it is on the presale
// allowlist.
func (s *Sale) PreSaleMint(m Msg, count uint64, proof []common.Hash) error {
	return s.allowlistMint(m, PreSale, count, proof)
}

// WhitelistMint mints count tokens to the caller if it is on the whitelist.
func (s *Sale) WhitelistMint(m Msg, count uint64, proof []common.Hash) error {
	return s.allowlistMint(m, Whitelist, count, proof)
}

// PublicMint mints count tokens to the caller. A single call is bounded by
// the batch size instead of a per-address cap.
func (s *Sale) PublicMint(m Msg, count uint64) error {
	if err := s.open(Public, count); err != nil {
		return err
	}
	ps := s.phases[Public]
	if err := s.checkCap(Public, ps, m.Sender, count); err != nil {
		return err
	}
	if count > s.maxBatchSize {
		return ErrMaxBatchExceeded
	}
	return s.settle(m, Public, count)
}

func (s *Sale) allowlistMint(m Msg, p Phase, count uint64, proof []common.Hash) error {
	if err := s.open(p, count); err != nil {
		return err
	}
	ps := s.phases[p]
	if !merkle.VerifyAddress(proof, ps.root, m.Sender) {
		return fmt.Errorf("%w for %s mint", ErrNotEligible, p)
	}
	if err := s.checkCap(p, ps, m.Sender, count); err != nil {
		return err
	}
	return s.settle(m, p, count)
}

// open runs the checks shared by every paid mint: pause, quantity, phase.
func (s *Sale) open(p Phase, count uint64) error {
	if s.paused {
		return ErrPaused
	}
	if count == 0 {
		return ErrZeroQuantity
	}
	if !s.IsOn(p) {
		return p.notActive()
	}
	return nil
}

func (s *Sale) checkCap(p Phase, ps *phaseState, who common.Address, count uint64) error {
	if ps.cap == 0 {
		return nil
	}
	if count > ps.cap {
		return fmt.Errorf("%w for %s", ErrMaxMintCount, p)
	}
	if ps.once && ps.minted[who] > 0 {
		return ErrAlreadyMinted
	}
	if ps.minted[who]+count > ps.cap {
		return ErrAlreadyMinted
	}
	return nil
}

// settle checks supply and payment, then applies the mint.
func (s *Sale) settle(m Msg, p Phase, count uint64) error {
	if count > s.Remaining() {
		return ErrSupplyExceeded
	}
	cost := new(big.Int).Mul(s.phases[p].price, new(big.Int).SetUint64(count))
	value := m.value()
	if value.Cmp(cost) < 0 {
		return ErrInsufficientPayment
	}

	s.phases[p].minted[m.Sender] += count
	s.proceeds.Add(s.proceeds, value)
	s.mint(m.Sender, count)
	return nil
}

// mintable is the ceiling for paid mints: the supply minus the part of the
// reserve not yet used.
func (s *Sale) mintable() uint64 {
	return s.maxSupply - (s.reservedQuantity - s.usedReservedQuantity)
}

// Remaining returns how many tokens paid mints can still produce.
func (s *Sale) Remaining() uint64 {
	if c := s.mintable(); c > s.totalMinted {
		return c - s.totalMinted
	}
	return 0
}

// mint assigns the next n token ids to to.
func (s *Sale) mint(to common.Address, n uint64) {
	for i := uint64(0); i < n; i++ {
		id := s.totalMinted
		s.owners[id] = to
		s.totalMinted++
		s.events = append(s.events, Transfer{To: to, TokenID: id})
	}
	s.balances[to] += n
}
