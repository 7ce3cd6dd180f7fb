package synth

import "errors"

var (
	// ErrNilState indicates the engine was used before wiring a position store.
	ErrNilState = errors.New("synth: engine state not configured")
	// ErrAmountNotPositive rejects nil, zero, and negative amounts before any state changes.
	ErrAmountNotPositive = errors.New("synth: amount must be positive")
	// ErrTokenNotAllowed indicates the token is not in the approved collateral set.
	ErrTokenNotAllowed = errors.New("synth: collateral token not allowed")
	// ErrLengthMismatch indicates the collateral token and price feed lists differ in length.
	ErrLengthMismatch = errors.New("synth: token and price feed lists must have equal length")
	// ErrInvalidPrice indicates the oracle reported a non-positive price.
	ErrInvalidPrice = errors.New("synth: oracle price must be positive")
	// ErrStalePrice indicates the latest oracle round exceeded the freshness window.
	ErrStalePrice = errors.New("synth: oracle round is stale")
	// ErrNoFreshRound indicates no registered feed produced a fresh round.
	ErrNoFreshRound = errors.New("synth: no fresh oracle round available")
	// ErrInsufficientCollateral indicates a redemption or seizure exceeding the deposited amount.
	ErrInsufficientCollateral = errors.New("synth: amount exceeds deposited collateral")
	// ErrInsufficientDebt indicates a burn exceeding the position's minted debt.
	ErrInsufficientDebt = errors.New("synth: amount exceeds minted debt")
	// ErrTokenTransferFailed wraps a failed pull or release of an external token.
	ErrTokenTransferFailed = errors.New("synth: token transfer failed")
	// ErrMintFailed wraps a debt token mint rejection.
	ErrMintFailed = errors.New("synth: debt token mint failed")
	// ErrBreaksHealthFactor indicates the operation would leave the acting user
	// below the minimum health factor. The wrapped message carries the ratio.
	ErrBreaksHealthFactor = errors.New("synth: operation breaks health factor")
	// ErrHealthFactorOk forbids liquidating a position that is still healthy.
	ErrHealthFactorOk = errors.New("synth: target health factor not below minimum")
	// ErrHealthFactorNotImproved indicates a liquidation that would not strictly
	// improve the target's health factor.
	ErrHealthFactorNotImproved = errors.New("synth: liquidation does not improve health factor")
)
