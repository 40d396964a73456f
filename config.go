package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ProtocolFeeConfig holds the platform fee rates in basis points and the
// receiver they are paid to. The primary rate applies when the seller holds
// the primary-market role for the sold asset, the secondary rate otherwise.
type ProtocolFeeConfig struct {
	PrimaryBps   uint16
	SecondaryBps uint16
	Receiver     common.Address
}

// Config is the engine's static configuration. Runtime-mutable settings
// (fees, limits, pause flag) seed the engine's settings snapshot and are
// changed afterwards through the role-gated setters.
type Config struct {
	// ChainID and VerifyingContract parameterize the EIP712 signing domain.
	ChainID           *big.Int
	VerifyingContract common.Address

	Fee ProtocolFeeConfig

	// MatchOrdersLimit bounds the number of pairs per match call.
	MatchOrdersLimit int

	// TrustedForwarder may relay MatchOrdersFrom calls; zero disables relaying.
	TrustedForwarder common.Address

	// LandContract keys royalty lookups for map-parcel settlement lines.
	LandContract common.Address

	// WhitelistEnabled turns on the payment-token allow-list gate.
	WhitelistEnabled bool

	// RoyaltyCacheSize sizes the LRU in front of the royalty provider.
	RoyaltyCacheSize int

	// Admin is granted the admin role at construction.
	Admin common.Address
}

// DefaultMatchOrdersLimit bounds batches when the config leaves it unset.
const DefaultMatchOrdersLimit = 50

// DefaultRoyaltyCacheSize sizes the royalty cache when the config leaves it
// unset.
const DefaultRoyaltyCacheSize = 4096

// settings is the runtime-mutable part of the configuration. Every call
// works from one consistent snapshot.
type settings struct {
	fee              ProtocolFeeConfig
	matchOrdersLimit int
	trustedForwarder common.Address
	landContract     common.Address
	whitelistEnabled bool
	paused           bool
	version          uint64
}
