package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voxelmarkets/exchange-go/order"
)

// Event is an engine-emitted record. Administrative setters and every match
// emit one; the recorder installed at construction receives them.
type Event interface{ event() }

// MatchRecord is emitted once per settled pair.
type MatchRecord struct {
	Caller     common.Address
	LeftKey    common.Hash
	RightKey   common.Hash
	LeftOrder  *order.Order
	RightOrder *order.Order

	// LeftFill and RightFill are the cumulative ledger values after this
	// match; LeftValue and RightValue the amounts moved by it.
	LeftFill   *big.Int
	RightFill  *big.Int
	LeftValue  *big.Int
	RightValue *big.Int
}

// CancelRecord is emitted when an order key is cancelled.
type CancelRecord struct {
	Maker common.Address
	Key   common.Hash
}

// ProtocolFeeSet is emitted by SetProtocolFee.
type ProtocolFeeSet struct {
	PrimaryBps   uint16
	SecondaryBps uint16
}

// FeeReceiverSet is emitted by SetDefaultFeeReceiver.
type FeeReceiverSet struct {
	Receiver common.Address
}

// MatchOrdersLimitSet is emitted by SetMatchOrdersLimit.
type MatchOrdersLimitSet struct {
	Limit int
}

// TrustedForwarderSet is emitted by SetTrustedForwarder.
type TrustedForwarderSet struct {
	Forwarder common.Address
}

// LandContractSet is emitted by SetLandContract.
type LandContractSet struct {
	Contract common.Address
}

// RoyaltiesProviderSet is emitted by SetRoyaltiesProvider.
type RoyaltiesProviderSet struct {
	CacheSize int
}

// OrderValidatorSet is emitted by SetOrderValidator.
type OrderValidatorSet struct{}

// WhitelistEnabledSet is emitted by SetWhitelistEnabled.
type WhitelistEnabledSet struct {
	Enabled bool
}

// PauseSet is emitted by Pause and Unpause.
type PauseSet struct {
	Paused bool
}

// RoleSet is emitted by role grants and revocations. Token is zero for
// global roles.
type RoleSet struct {
	Role    Role
	Token   common.Address
	Subject common.Address
	Granted bool
}

func (MatchRecord) event()          {}
func (CancelRecord) event()         {}
func (ProtocolFeeSet) event()       {}
func (FeeReceiverSet) event()       {}
func (MatchOrdersLimitSet) event()  {}
func (TrustedForwarderSet) event()  {}
func (LandContractSet) event()      {}
func (RoyaltiesProviderSet) event() {}
func (OrderValidatorSet) event()    {}
func (WhitelistEnabledSet) event()  {}
func (PauseSet) event()             {}
func (RoleSet) event()              {}
