package sale

import "errors"

// reason is a rejection whose message is the revert reason and which also
// matches a broader error class via errors.Is.
type reason struct {
	msg   string
	class error
}

func (r *reason) Error() string { return r.msg }
func (r *reason) Unwrap() error { return r.class }

// Error classes.
var (
	ErrPerAddressCapExceeded = errors.New("per-address mint cap exceeded")
	ErrPhaseNotActive        = errors.New("sale phase is not active")
)

// Rejections. Every failed entry point returns one of these, possibly wrapped
// with the phase name.
var (
	ErrUnauthorized = errors.New("caller is not the owner")
	ErrPaused       = errors.New("contract is paused")
	ErrNotPaused    = errors.New("contract is not paused")

	ErrPresaleNotActive    error = &reason{"presale has not begun yet", ErrPhaseNotActive}
	ErrWhitelistNotActive  error = &reason{"whitelist sale has not begun yet", ErrPhaseNotActive}
	ErrPublicSaleNotActive error = &reason{"public sale has not started yet", ErrPhaseNotActive}

	ErrNotEligible = errors.New("not eligible")

	ErrMaxMintCount  error = &reason{"reached max mint count", ErrPerAddressCapExceeded}
	ErrAlreadyMinted error = &reason{"already minted", ErrPerAddressCapExceeded}

	ErrMaxBatchExceeded    = errors.New("exceeds max mint quantity per transaction")
	ErrSupplyExceeded      = errors.New("reached max supply")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrZeroQuantity        = errors.New("quantity must be greater than zero")

	ErrReservedBelowUsed        = errors.New("reserved quantity is greater than used quantity")
	ErrReservedQuantityExceeded = errors.New("not enough reserved quantity")

	// ErrReservedExceedsSupply reports the same reason as ErrSupplyExceeded.
	ErrReservedExceedsSupply error = &reason{"reached max supply", ErrSupplyExceeded}

	ErrNoAllowlist        = errors.New("public sale has no allowlist")
	ErrZeroAddress        = errors.New("mint to the zero address")
	ErrNonexistentToken   = errors.New("owner query for nonexistent token")
	ErrUnsupportedVariant = errors.New("not supported by this sale variant")
	ErrInvalidParams      = errors.New("invalid constructor parameters")
)
