package core

import "errors"

// Validation errors: caught before any state mutation or external transfer.
// The caller can retry with corrected input.
var (
	ErrInvalidParty    = errors.New("auction: invalid seller identity")
	ErrInvalidAsset    = errors.New("auction: invalid asset custodian")
	ErrInvalidPrice    = errors.New("auction: starting price must be greater than zero")
	ErrInvalidDuration = errors.New("auction: invalid duration")
	ErrInvalidToken    = errors.New("auction: invalid payment token")
	ErrInvalidOracle   = errors.New("auction: invalid price feed")
	ErrZeroBid         = errors.New("auction: bid amount must be greater than zero")
)

// State-conflict errors: the caller's view of the instance is stale.
// Re-reading state and retrying is the recovery path.
var (
	ErrAlreadyEnded       = errors.New("auction: already ended")
	ErrNotYetExpired      = errors.New("auction: not yet expired")
	ErrNotEnded           = errors.New("auction: not ended")
	ErrAlreadyClaimed     = errors.New("auction: already claimed")
	ErrBelowStartingPrice = errors.New("auction: bid must be at least starting price")
	ErrBidTooLow          = errors.New("auction: bid must be higher than current bid")
	ErrUnsupportedToken   = errors.New("auction: unsupported payment token")
	ErrNoBids             = errors.New("auction: no bids placed")
	ErrNothingToWithdraw  = errors.New("auction: no queued refund to withdraw")
)

// ErrUnauthorized means the caller identity is not permitted to perform the
// operation. Never recoverable by retry.
var ErrUnauthorized = errors.New("auction: unauthorized")

// Adapter errors: the external transfer or price read could not be completed.
// The operation has no effect; the caller may retry once the underlying cause
// (balance, authorization, feed health) is fixed.
var (
	ErrTransferFailed = errors.New("auction: transfer failed")
	ErrOraclePrice    = errors.New("auction: oracle price unavailable")
)
