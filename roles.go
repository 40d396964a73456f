package exchange

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Role is a capability the engine checks by (subject, capability) pair.
// Roles are either global or scoped to an asset registry address.
type Role string

const (
	// RoleAdmin may change engine configuration and grant roles.
	RoleAdmin Role = "admin"

	// RolePauser may pause the engine. Only RoleAdmin unpauses.
	RolePauser Role = "pauser"

	// RoleMatchOrders marks relayers allowed to call MatchOrdersFrom.
	RoleMatchOrders Role = "match_orders"

	// RoleFeeExempt marks sellers that skip the royalty and protocol-fee
	// phases entirely.
	RoleFeeExempt Role = "fee_exempt"

	// RolePaymentToken marks fungible-token registries approved as payment
	// when whitelisting is enabled.
	RolePaymentToken Role = "payment_token"

	// RolePrimarySeller is asset-scoped: it marks the creator/primary-market
	// seller of a registry, switching that seller to the primary fee rate.
	RolePrimarySeller Role = "primary_seller"
)

type scopedRoleKey struct {
	role    Role
	token   common.Address
	subject common.Address
}

// ACL is the capability service. It is kept outside the matching algorithm
// so the algorithm stays testable independent of access policy.
type ACL struct {
	mu     sync.RWMutex
	global map[Role]map[common.Address]struct{}
	scoped map[scopedRoleKey]struct{}
}

// NewACL creates an empty capability service.
func NewACL() *ACL {
	return &ACL{
		global: make(map[Role]map[common.Address]struct{}),
		scoped: make(map[scopedRoleKey]struct{}),
	}
}

// Grant gives subject a global role.
func (a *ACL) Grant(role Role, subject common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.global[role]
	if !ok {
		m = make(map[common.Address]struct{})
		a.global[role] = m
	}
	m[subject] = struct{}{}
}

// Revoke removes a global role from subject.
func (a *ACL) Revoke(role Role, subject common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m, ok := a.global[role]; ok {
		delete(m, subject)
	}
}

// Has reports whether subject holds a global role.
func (a *ACL) Has(role Role, subject common.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.global[role][subject]
	return ok
}

// GrantScoped gives subject a role scoped to one asset registry.
func (a *ACL) GrantScoped(role Role, token, subject common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scoped[scopedRoleKey{role, token, subject}] = struct{}{}
}

// RevokeScoped removes an asset-scoped role.
func (a *ACL) RevokeScoped(role Role, token, subject common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.scoped, scopedRoleKey{role, token, subject})
}

// HasScoped reports whether subject holds a role scoped to token.
func (a *ACL) HasScoped(role Role, token, subject common.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.scoped[scopedRoleKey{role, token, subject}]
	return ok
}
