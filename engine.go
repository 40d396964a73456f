// Package exchange implements a peer-to-peer order-matching and settlement
// engine for heterogeneous digital assets. Two independently signed orders
// are matched, validated and settled atomically: assets move between the two
// parties, a protocol fee is deducted and per-asset creator royalties are
// paid out, down to partial fills.
package exchange

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voxelmarkets/exchange-go/fill"
	logger "github.com/voxelmarkets/exchange-go/log"
	"github.com/voxelmarkets/exchange-go/order"
	"github.com/voxelmarkets/exchange-go/royalty"
)

var log = logger.Logger("exchange")

// ExchangeMatch pairs two opposing signed orders for settlement.
type ExchangeMatch struct {
	OrderLeft      *order.Order
	SignatureLeft  []byte
	OrderRight     *order.Order
	SignatureRight []byte
}

// Engine is the settlement engine. Calls execute under a run-to-completion
// model: the call mutex serializes matches, and each call either commits
// every effect or none.
type Engine struct {
	callMu sync.Mutex

	mu sync.RWMutex
	st settings

	acl       *ACL
	ledger    fill.Ledger
	executor  Executor
	royalties royalty.Provider
	validator *order.Validator
	domain    *order.EIP712Domain
	recorder  func(Event)
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithRecorder installs an event sink. Events are logged regardless.
func WithRecorder(rec func(Event)) Option {
	return func(e *Engine) { e.recorder = rec }
}

// WithClock overrides the validator's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.validator.Now = now }
}

// New wires an engine from its external collaborators. The royalty provider
// is wrapped in an LRU cache sized by the config.
func New(cfg Config, ledger fill.Ledger, executor Executor, royalties royalty.Provider, verifier order.SignatureVerifier, opts ...Option) (*Engine, error) {
	var zero common.Address
	if cfg.ChainID == nil {
		return nil, fmt.Errorf("config: chain id must be set")
	}
	if (cfg.Fee.PrimaryBps > 0 || cfg.Fee.SecondaryBps > 0) && cfg.Fee.Receiver == zero {
		return nil, fmt.Errorf("config fee receiver: %w", ErrZeroAddress)
	}
	if cfg.Fee.PrimaryBps >= royalty.CapBasisPoints || cfg.Fee.SecondaryBps >= royalty.CapBasisPoints {
		return nil, ErrFeeTooHigh
	}
	limit := cfg.MatchOrdersLimit
	if limit == 0 {
		limit = DefaultMatchOrdersLimit
	}
	cacheSize := cfg.RoyaltyCacheSize
	if cacheSize == 0 {
		cacheSize = DefaultRoyaltyCacheSize
	}
	cached, err := royalty.NewCached(royalties, cacheSize)
	if err != nil {
		return nil, fmt.Errorf("royalty cache: %w", err)
	}

	domain := order.NewEIP712Domain(cfg.ChainID, cfg.VerifyingContract)
	e := &Engine{
		st: settings{
			fee:              cfg.Fee,
			matchOrdersLimit: limit,
			trustedForwarder: cfg.TrustedForwarder,
			landContract:     cfg.LandContract,
			whitelistEnabled: cfg.WhitelistEnabled,
		},
		acl:       NewACL(),
		ledger:    ledger,
		executor:  executor,
		royalties: cached,
		domain:    domain,
		validator: order.NewValidator(domain, verifier),
	}
	e.validator.Whitelist = aclWhitelist{e}
	if cfg.Admin != zero {
		e.acl.Grant(RoleAdmin, cfg.Admin)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Domain exposes the engine's EIP712 signing domain for order signers.
func (e *Engine) Domain() *order.EIP712Domain {
	return e.domain
}

// ACL exposes the capability service for direct inspection in wiring code.
func (e *Engine) ACL() *ACL {
	return e.acl
}

func (e *Engine) snapshot() settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st
}

type aclWhitelist struct{ e *Engine }

func (w aclWhitelist) Enabled() bool {
	return w.e.snapshot().whitelistEnabled
}

func (w aclWhitelist) ApprovedPaymentToken(token common.Address) bool {
	return w.e.acl.Has(RolePaymentToken, token)
}

// MatchOrders validates, matches and settles a batch of order pairs as one
// atomic unit. On any failure no fill-ledger entry changes and no asset
// moves, for any pair in the batch.
func (e *Engine) MatchOrders(ctx context.Context, sender common.Address, matches []ExchangeMatch) ([]MatchRecord, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	st := e.snapshot()
	if st.paused {
		return nil, ErrPaused
	}
	if len(matches) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(matches) > st.matchOrdersLimit {
		return nil, ErrTooManyMatches
	}

	// Phase 1: pure planning. Later pairs observe earlier pairs' pending
	// fills but nothing is committed yet.
	pending := make(map[common.Hash]*big.Int)
	var deltas []fill.Delta
	var legs []Leg
	records := make([]MatchRecord, 0, len(matches))
	for i, m := range matches {
		plan, err := e.planPair(ctx, &st, sender, m, pending)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		for _, d := range plan.deltas {
			p, ok := pending[d.Key]
			if !ok {
				p = new(big.Int)
				pending[d.Key] = p
			}
			p.Add(p, d.Value)
		}
		deltas = append(deltas, plan.deltas...)
		legs = append(legs, plan.legs...)
		records = append(records, plan.record)
	}

	// Phase 2: commit bookkeeping before any external transfer call, so a
	// re-entrant callee can never observe a stale remaining amount.
	if err := e.ledger.Apply(deltas); err != nil {
		return nil, fmt.Errorf("fill ledger: %w", err)
	}

	// Phase 3: external transfers as one session. A failure unwinds the
	// fill commits and the whole call reports the error.
	sess, err := e.executor.Begin(ctx)
	if err != nil {
		e.revertFills(deltas)
		return nil, fmt.Errorf("transfer session: %w", err)
	}
	for _, leg := range legs {
		if err := sess.Transfer(ctx, leg); err != nil {
			_ = sess.Rollback(ctx)
			e.revertFills(deltas)
			return nil, err
		}
	}
	if err := sess.Commit(ctx); err != nil {
		e.revertFills(deltas)
		return nil, err
	}

	for i := range records {
		e.emit(records[i])
	}
	log.Infow("matched orders", "sender", sender.Hex(), "pairs", len(matches))
	return records, nil
}

func (e *Engine) revertFills(deltas []fill.Delta) {
	if err := e.ledger.Revert(deltas); err != nil {
		log.Errorw("failed to revert fill deltas", "err", err)
	}
}

// MatchOrdersFrom settles a batch on behalf of another sender. Only the
// configured trusted forwarder or a holder of the match-orders role may
// relay.
func (e *Engine) MatchOrdersFrom(ctx context.Context, relayer, onBehalfOf common.Address, matches []ExchangeMatch) ([]MatchRecord, error) {
	var zero common.Address
	if onBehalfOf == zero {
		return nil, ErrZeroAddress
	}
	st := e.snapshot()
	if (st.trustedForwarder == zero || relayer != st.trustedForwarder) && !e.acl.Has(RoleMatchOrders, relayer) {
		return nil, ErrNotAuthorized
	}
	return e.MatchOrders(ctx, onBehalfOf, matches)
}

// Cancel sets the order key's fill to the cancellation sentinel. Only the
// maker may cancel, zero-salt orders cannot be cancelled by signature, and
// the supplied key must match the order.
func (e *Engine) Cancel(ctx context.Context, sender common.Address, o *order.Order, keyHash common.Hash) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	if sender != o.Maker {
		return order.ErrNotMaker
	}
	if o.Salt == nil || o.Salt.Sign() == 0 {
		return ErrZeroSalt
	}
	if o.HashKey() != keyHash {
		return ErrInvalidOrderHash
	}
	if err := e.ledger.SetCancelled(keyHash); err != nil {
		return fmt.Errorf("fill ledger: %w", err)
	}
	e.emit(CancelRecord{Maker: sender, Key: keyHash})
	log.Infow("order cancelled", "maker", sender.Hex(), "key", keyHash.Hex())
	return nil
}

// Fills reads the cumulative filled amount of an order key.
func (e *Engine) Fills(key common.Hash) (*big.Int, error) {
	return e.ledger.Get(key)
}

// --- administrative surface, all role-gated ---

func (e *Engine) requireAdmin(sender common.Address) error {
	if !e.acl.Has(RoleAdmin, sender) {
		return ErrNotAuthorized
	}
	return nil
}

// SetProtocolFee updates the primary and secondary fee rates.
func (e *Engine) SetProtocolFee(sender common.Address, primaryBps, secondaryBps uint16) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	if primaryBps >= royalty.CapBasisPoints || secondaryBps >= royalty.CapBasisPoints {
		return ErrFeeTooHigh
	}
	e.mu.Lock()
	e.st.fee.PrimaryBps = primaryBps
	e.st.fee.SecondaryBps = secondaryBps
	e.st.version++
	e.mu.Unlock()
	e.emit(ProtocolFeeSet{PrimaryBps: primaryBps, SecondaryBps: secondaryBps})
	return nil
}

// SetDefaultFeeReceiver updates the protocol-fee receiver.
func (e *Engine) SetDefaultFeeReceiver(sender, receiver common.Address) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	var zero common.Address
	if receiver == zero {
		return ErrZeroAddress
	}
	e.mu.Lock()
	e.st.fee.Receiver = receiver
	e.st.version++
	e.mu.Unlock()
	e.emit(FeeReceiverSet{Receiver: receiver})
	return nil
}

// SetMatchOrdersLimit updates the per-call batch bound.
func (e *Engine) SetMatchOrdersLimit(sender common.Address, limit int) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	if limit <= 0 {
		return ErrZeroLimit
	}
	e.mu.Lock()
	e.st.matchOrdersLimit = limit
	e.st.version++
	e.mu.Unlock()
	e.emit(MatchOrdersLimitSet{Limit: limit})
	return nil
}

// SetRoyaltiesProvider swaps the royalty-schedule source. The new provider
// is wrapped in a fresh cache.
func (e *Engine) SetRoyaltiesProvider(sender common.Address, provider royalty.Provider, cacheSize int) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	if cacheSize <= 0 {
		cacheSize = DefaultRoyaltyCacheSize
	}
	cached, err := royalty.NewCached(provider, cacheSize)
	if err != nil {
		return err
	}
	e.callMu.Lock()
	e.royalties = cached
	e.callMu.Unlock()
	e.emit(RoyaltiesProviderSet{CacheSize: cacheSize})
	return nil
}

// SetOrderValidator swaps the order validator.
func (e *Engine) SetOrderValidator(sender common.Address, v *order.Validator) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	if v == nil {
		return ErrZeroAddress
	}
	e.callMu.Lock()
	e.validator = v
	e.callMu.Unlock()
	e.emit(OrderValidatorSet{})
	return nil
}

// SetTrustedForwarder updates the relay forwarder; zero disables relaying.
func (e *Engine) SetTrustedForwarder(sender, forwarder common.Address) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	e.mu.Lock()
	e.st.trustedForwarder = forwarder
	e.st.version++
	e.mu.Unlock()
	e.emit(TrustedForwarderSet{Forwarder: forwarder})
	return nil
}

// SetLandContract updates the map-parcel registry address used for quad
// royalty lookups.
func (e *Engine) SetLandContract(sender, contract common.Address) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	e.mu.Lock()
	e.st.landContract = contract
	e.st.version++
	e.mu.Unlock()
	e.emit(LandContractSet{Contract: contract})
	return nil
}

// SetWhitelistEnabled toggles the payment-token allow-list gate.
func (e *Engine) SetWhitelistEnabled(sender common.Address, enabled bool) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	e.mu.Lock()
	e.st.whitelistEnabled = enabled
	e.st.version++
	e.mu.Unlock()
	e.emit(WhitelistEnabledSet{Enabled: enabled})
	return nil
}

// Pause stops matching. Pausers and admins may pause.
func (e *Engine) Pause(sender common.Address) error {
	if !e.acl.Has(RolePauser, sender) && !e.acl.Has(RoleAdmin, sender) {
		return ErrNotAuthorized
	}
	e.mu.Lock()
	e.st.paused = true
	e.st.version++
	e.mu.Unlock()
	e.emit(PauseSet{Paused: true})
	return nil
}

// Unpause resumes matching. Only admins may unpause.
func (e *Engine) Unpause(sender common.Address) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	e.mu.Lock()
	e.st.paused = false
	e.st.version++
	e.mu.Unlock()
	e.emit(PauseSet{Paused: false})
	return nil
}

// GrantRole gives subject a global role.
func (e *Engine) GrantRole(sender common.Address, role Role, subject common.Address) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	e.acl.Grant(role, subject)
	e.emit(RoleSet{Role: role, Subject: subject, Granted: true})
	return nil
}

// RevokeRole removes a global role from subject.
func (e *Engine) RevokeRole(sender common.Address, role Role, subject common.Address) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	e.acl.Revoke(role, subject)
	e.emit(RoleSet{Role: role, Subject: subject, Granted: false})
	return nil
}

// GrantAssetRole gives subject a role scoped to one asset registry.
func (e *Engine) GrantAssetRole(sender common.Address, role Role, token, subject common.Address) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	e.acl.GrantScoped(role, token, subject)
	e.emit(RoleSet{Role: role, Token: token, Subject: subject, Granted: true})
	return nil
}

// RevokeAssetRole removes an asset-scoped role.
func (e *Engine) RevokeAssetRole(sender common.Address, role Role, token, subject common.Address) error {
	if err := e.requireAdmin(sender); err != nil {
		return err
	}
	e.acl.RevokeScoped(role, token, subject)
	e.emit(RoleSet{Role: role, Token: token, Subject: subject, Granted: false})
	return nil
}

func (e *Engine) emit(ev Event) {
	if e.recorder != nil {
		e.recorder(ev)
	}
	log.Debugw("event", "type", fmt.Sprintf("%T", ev))
}
