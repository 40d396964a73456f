package exchange

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voxelmarkets/exchange-go/asset"
)

// ErrInsufficientBalance is returned by the in-memory executor when a payer
// cannot cover a leg.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrNotOwner is returned by the in-memory executor when a unique item or
// quad is moved by someone who does not own it.
var ErrNotOwner = errors.New("not the owner")

type itemKey struct {
	token common.Address
	id    string
}

type quadKey struct {
	size, x, y string
}

// MemExecutor is an in-memory asset book implementing Executor. It backs
// tests and examples: legs buffer in the session and apply atomically on
// Commit, with already-applied legs undone if a later one fails.
type MemExecutor struct {
	mu      sync.Mutex
	native  map[common.Address]*big.Int
	erc20   map[common.Address]map[common.Address]*big.Int
	erc721  map[itemKey]common.Address
	erc1155 map[itemKey]map[common.Address]*big.Int
	quads   map[quadKey]common.Address
}

// NewMemExecutor creates an empty asset book.
func NewMemExecutor() *MemExecutor {
	return &MemExecutor{
		native:  make(map[common.Address]*big.Int),
		erc20:   make(map[common.Address]map[common.Address]*big.Int),
		erc721:  make(map[itemKey]common.Address),
		erc1155: make(map[itemKey]map[common.Address]*big.Int),
		quads:   make(map[quadKey]common.Address),
	}
}

// SetNativeBalance seeds a native-currency balance.
func (m *MemExecutor) SetNativeBalance(owner common.Address, value *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.native[owner] = new(big.Int).Set(value)
}

// SetERC20Balance seeds a fungible-token balance.
func (m *MemExecutor) SetERC20Balance(token, owner common.Address, value *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.erc20[token]
	if !ok {
		book = make(map[common.Address]*big.Int)
		m.erc20[token] = book
	}
	book[owner] = new(big.Int).Set(value)
}

// MintERC721 assigns ownership of a unique item.
func (m *MemExecutor) MintERC721(token common.Address, id *big.Int, owner common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.erc721[itemKey{token, id.String()}] = owner
}

// SetERC1155Balance seeds an item-stack supply.
func (m *MemExecutor) SetERC1155Balance(token common.Address, id *big.Int, owner common.Address, value *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := itemKey{token, id.String()}
	book, ok := m.erc1155[k]
	if !ok {
		book = make(map[common.Address]*big.Int)
		m.erc1155[k] = book
	}
	book[owner] = new(big.Int).Set(value)
}

// SetQuadOwner assigns ownership of a map parcel.
func (m *MemExecutor) SetQuadOwner(size, x, y *big.Int, owner common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quads[quadKey{size.String(), x.String(), y.String()}] = owner
}

// NativeBalance reads a native balance.
func (m *MemExecutor) NativeBalance(owner common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.native[owner]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// ERC20Balance reads a fungible-token balance.
func (m *MemExecutor) ERC20Balance(token, owner common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.erc20[token][owner]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// ERC721Owner reads the owner of a unique item.
func (m *MemExecutor) ERC721Owner(token common.Address, id *big.Int) common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.erc721[itemKey{token, id.String()}]
}

// ERC1155Balance reads an item-stack supply.
func (m *MemExecutor) ERC1155Balance(token common.Address, id *big.Int, owner common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.erc1155[itemKey{token, id.String()}][owner]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// QuadOwner reads the owner of a map parcel.
func (m *MemExecutor) QuadOwner(size, x, y *big.Int) common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quads[quadKey{size.String(), x.String(), y.String()}]
}

// Begin implements Executor.
func (m *MemExecutor) Begin(_ context.Context) (Session, error) {
	return &memSession{book: m}, nil
}

type memSession struct {
	book *MemExecutor
	legs []Leg
}

func (s *memSession) Transfer(_ context.Context, leg Leg) error {
	if !leg.Asset.Type.Class.Known() {
		return asset.ErrInvalidAssetClass
	}
	s.legs = append(s.legs, leg)
	return nil
}

func (s *memSession) Rollback(_ context.Context) error {
	s.legs = nil
	return nil
}

func (s *memSession) Commit(_ context.Context) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()

	applied := 0
	for _, leg := range s.legs {
		if err := s.book.apply(leg); err != nil {
			for i := applied - 1; i >= 0; i-- {
				undo := s.legs[i]
				undo.From, undo.To = undo.To, undo.From
				if uerr := s.book.apply(undo); uerr != nil {
					return fmt.Errorf("undo failed after %v: %w", err, uerr)
				}
			}
			return err
		}
		applied++
	}
	s.legs = nil
	return nil
}

// apply moves one leg; the caller holds the lock.
func (m *MemExecutor) apply(leg Leg) error {
	switch leg.Asset.Type.Class {
	case asset.ClassETH:
		return moveBalance(m.native, leg.From, leg.To, leg.Asset.Value)
	case asset.ClassERC20:
		token, err := leg.Asset.Type.DecodeToken()
		if err != nil {
			return err
		}
		book, ok := m.erc20[token]
		if !ok {
			return ErrInsufficientBalance
		}
		return moveBalance(book, leg.From, leg.To, leg.Asset.Value)
	case asset.ClassERC721:
		token, id, err := leg.Asset.Type.DecodeTokenID()
		if err != nil {
			return err
		}
		k := itemKey{token, id.String()}
		if m.erc721[k] != leg.From {
			return ErrNotOwner
		}
		m.erc721[k] = leg.To
		return nil
	case asset.ClassERC1155:
		token, id, err := leg.Asset.Type.DecodeTokenID()
		if err != nil {
			return err
		}
		book, ok := m.erc1155[itemKey{token, id.String()}]
		if !ok {
			return ErrInsufficientBalance
		}
		return moveBalance(book, leg.From, leg.To, leg.Asset.Value)
	case asset.ClassQuad:
		size, x, y, err := leg.Asset.Type.DecodeQuad()
		if err != nil {
			return err
		}
		k := quadKey{size.String(), x.String(), y.String()}
		if m.quads[k] != leg.From {
			return ErrNotOwner
		}
		m.quads[k] = leg.To
		return nil
	default:
		return asset.ErrInvalidAssetClass
	}
}

func moveBalance(book map[common.Address]*big.Int, from, to common.Address, value *big.Int) error {
	cur, ok := book[from]
	if !ok || cur.Cmp(value) < 0 {
		return ErrInsufficientBalance
	}
	cur.Sub(cur, value)
	dst, ok := book[to]
	if !ok {
		dst = new(big.Int)
		book[to] = dst
	}
	dst.Add(dst, value)
	return nil
}
