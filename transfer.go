package exchange

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voxelmarkets/exchange-go/asset"
)

// Leg is one asset movement of a settlement.
type Leg struct {
	From  common.Address
	To    common.Address
	Asset asset.Asset
}

// Executor hands out transfer sessions. A session collects the legs of one
// match call and applies them as a unit: either every leg settles or none
// does. The engine commits its own bookkeeping before Commit is invoked and
// never branches on state read back afterwards.
type Executor interface {
	Begin(ctx context.Context) (Session, error)
}

// Session is one atomic settlement attempt.
type Session interface {
	Transfer(ctx context.Context, leg Leg) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// NativeRegistry moves native currency between accounts.
type NativeRegistry interface {
	Transfer(ctx context.Context, from, to common.Address, value *big.Int) error
}

// ERC20Registry moves fungible-token balances.
type ERC20Registry interface {
	TransferFrom(ctx context.Context, token, from, to common.Address, value *big.Int) error
}

// ERC721Registry moves unique items.
type ERC721Registry interface {
	TransferFrom(ctx context.Context, token, from, to common.Address, id *big.Int) error
}

// ERC1155Registry moves item-stack supplies.
type ERC1155Registry interface {
	TransferFrom(ctx context.Context, token, from, to common.Address, id, value *big.Int) error
}

// LandRegistry moves map parcels, which are grid-addressed rather than
// id-addressed.
type LandRegistry interface {
	BatchTransferQuad(ctx context.Context, from, to common.Address, sizes, xs, ys []*big.Int) error
}

// RegistryExecutor dispatches legs by asset class to the external asset
// registries. Legs are buffered until Commit so the engine's bookkeeping
// completes before any external invocation.
type RegistryExecutor struct {
	Native  NativeRegistry
	ERC20   ERC20Registry
	ERC721  ERC721Registry
	ERC1155 ERC1155Registry
	Land    LandRegistry
}

// Begin implements Executor.
func (e *RegistryExecutor) Begin(_ context.Context) (Session, error) {
	return &registrySession{exec: e}, nil
}

type registrySession struct {
	exec *RegistryExecutor
	legs []Leg
}

func (s *registrySession) Transfer(_ context.Context, leg Leg) error {
	if !leg.Asset.Type.Class.Known() {
		return asset.ErrInvalidAssetClass
	}
	s.legs = append(s.legs, leg)
	return nil
}

func (s *registrySession) Commit(ctx context.Context) error {
	for _, leg := range s.legs {
		if err := s.dispatch(ctx, leg); err != nil {
			return fmt.Errorf("transfer failed: %w", err)
		}
	}
	s.legs = nil
	return nil
}

func (s *registrySession) Rollback(_ context.Context) error {
	s.legs = nil
	return nil
}

func (s *registrySession) dispatch(ctx context.Context, leg Leg) error {
	switch leg.Asset.Type.Class {
	case asset.ClassETH:
		return s.exec.Native.Transfer(ctx, leg.From, leg.To, leg.Asset.Value)
	case asset.ClassERC20:
		token, err := leg.Asset.Type.DecodeToken()
		if err != nil {
			return err
		}
		return s.exec.ERC20.TransferFrom(ctx, token, leg.From, leg.To, leg.Asset.Value)
	case asset.ClassERC721:
		token, id, err := leg.Asset.Type.DecodeTokenID()
		if err != nil {
			return err
		}
		return s.exec.ERC721.TransferFrom(ctx, token, leg.From, leg.To, id)
	case asset.ClassERC1155:
		token, id, err := leg.Asset.Type.DecodeTokenID()
		if err != nil {
			return err
		}
		return s.exec.ERC1155.TransferFrom(ctx, token, leg.From, leg.To, id, leg.Asset.Value)
	case asset.ClassQuad:
		size, x, y, err := leg.Asset.Type.DecodeQuad()
		if err != nil {
			return err
		}
		return s.exec.Land.BatchTransferQuad(ctx, leg.From, leg.To,
			[]*big.Int{size}, []*big.Int{x}, []*big.Int{y})
	default:
		return asset.ErrInvalidAssetClass
	}
}
