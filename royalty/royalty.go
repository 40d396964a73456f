// Package royalty resolves per-asset creator royalty schedules.
package royalty

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// TotalBasisPoints is the denominator of all royalty and fee rates.
const TotalBasisPoints = 10000

// CapBasisPoints is the maximum combined royalty rate, enforced at
// settlement time rather than at registration time.
const CapBasisPoints = 5000

// ErrTooHigh is returned when a schedule sums past the 50% cap.
var ErrTooHigh = errors.New("royalties are too high (>50%)")

// Part is one royalty receiver and its share in basis points.
type Part struct {
	Account common.Address
	Value   uint16
}

// Provider looks up the royalty schedule of an asset. An empty schedule
// means no royalties.
type Provider interface {
	RoyaltiesFor(ctx context.Context, token common.Address, tokenID *big.Int) ([]Part, error)
}

// Sum adds up a schedule's basis points.
func Sum(parts []Part) int {
	total := 0
	for _, p := range parts {
		total += int(p.Value)
	}
	return total
}

// CheckCap rejects schedules past the cap.
func CheckCap(parts []Part) error {
	if Sum(parts) > CapBasisPoints {
		return ErrTooHigh
	}
	return nil
}

type scheduleKey struct {
	token common.Address
	id    string
}

// Static is a map-backed Provider. Schedules registered without an id apply
// to every item of the registry.
type Static struct {
	mu      sync.RWMutex
	byItem  map[scheduleKey][]Part
	byToken map[common.Address][]Part
}

// NewStatic creates an empty Static provider.
func NewStatic() *Static {
	return &Static{
		byItem:  make(map[scheduleKey][]Part),
		byToken: make(map[common.Address][]Part),
	}
}

// SetItemRoyalties registers a schedule for one item.
func (s *Static) SetItemRoyalties(token common.Address, tokenID *big.Int, parts []Part) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byItem[scheduleKey{token, tokenID.String()}] = parts
}

// SetTokenRoyalties registers a registry-wide schedule.
func (s *Static) SetTokenRoyalties(token common.Address, parts []Part) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[token] = parts
}

// RoyaltiesFor implements Provider.
func (s *Static) RoyaltiesFor(_ context.Context, token common.Address, tokenID *big.Int) ([]Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if parts, ok := s.byItem[scheduleKey{token, tokenID.String()}]; ok {
		return parts, nil
	}
	return s.byToken[token], nil
}

// Cached wraps a Provider with an LRU cache keyed by (token, id).
type Cached struct {
	inner Provider
	cache *lru.Cache
}

// NewCached creates a caching wrapper of the given size.
func NewCached(inner Provider, size int) (*Cached, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// RoyaltiesFor implements Provider.
func (c *Cached) RoyaltiesFor(ctx context.Context, token common.Address, tokenID *big.Int) ([]Part, error) {
	key := scheduleKey{token, tokenID.String()}
	if v, ok := c.cache.Get(key); ok {
		return v.([]Part), nil
	}
	parts, err := c.inner.RoyaltiesFor(ctx, token, tokenID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, parts)
	return parts, nil
}
