package exchange

import "errors"

var (
	// ErrPaused is returned while the engine is paused
	ErrPaused = errors.New("paused")

	// ErrEmptyBatch is returned for a match call with no pairs
	ErrEmptyBatch = errors.New("ExchangeMatch cannot be empty")

	// ErrTooManyMatches is returned when a batch exceeds the configured limit
	ErrTooManyMatches = errors.New("too many ExchangeMatch")

	// ErrTakerMismatch is returned when an order restricts its taker and the
	// counter-order's maker is someone else
	ErrTakerMismatch = errors.New("taker verification failed")

	// ErrNotAuthorized is returned when the sender lacks the required role
	ErrNotAuthorized = errors.New("not authorized")

	// ErrZeroAddress is returned for a zero address where one is disallowed
	ErrZeroAddress = errors.New("address cannot be zero")

	// ErrZeroLimit is returned when setting the match limit to zero
	ErrZeroLimit = errors.New("invalid quantity, must be greater than 0")

	// ErrFeeTooHigh is returned when setting a protocol fee rate of 50% or more
	ErrFeeTooHigh = errors.New("fee cannot be more than 50%")

	// ErrPriceMismatch is returned when a sold bundle's expanded line prices
	// do not add up to the payment amount
	ErrPriceMismatch = errors.New("prices don't match payment")

	// ErrZeroSalt is returned when cancelling a zero-salt order
	ErrZeroSalt = errors.New("0 salt can't be used")

	// ErrInvalidOrderHash is returned when a supplied order key does not
	// match the order being cancelled
	ErrInvalidOrderHash = errors.New("invalid orderHash")
)
