package exchange

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voxelmarkets/exchange-go/asset"
	"github.com/voxelmarkets/exchange-go/fill"
	"github.com/voxelmarkets/exchange-go/order"
	"github.com/voxelmarkets/exchange-go/royalty"
)

// feeSide selects which leg of a match carries the protocol fee and
// royalties: the side paying with the most money-like asset class, native
// currency first, then fungible tokens, then item stacks. Left wins ties.
type feeSide int

const (
	feeSideNone feeSide = iota
	feeSideLeft
	feeSideRight
)

func feeSideOf(left, right asset.Class) feeSide {
	switch {
	case left == asset.ClassETH:
		return feeSideLeft
	case right == asset.ClassETH:
		return feeSideRight
	case left == asset.ClassERC20:
		return feeSideLeft
	case right == asset.ClassERC20:
		return feeSideRight
	case left == asset.ClassERC1155:
		return feeSideLeft
	case right == asset.ClassERC1155:
		return feeSideRight
	default:
		return feeSideNone
	}
}

// matchTypes runs the asset-class matcher, decomposing a bundle when it
// faces a non-bundle declaration: every constituent must then match the
// counter declaration independently.
func matchTypes(left, right asset.AssetType) (asset.AssetType, error) {
	if left.Class == asset.ClassBundle && right.Class != asset.ClassBundle {
		return matchBundleAgainst(left, right)
	}
	if right.Class == asset.ClassBundle && left.Class != asset.ClassBundle {
		return matchBundleAgainst(right, left)
	}
	return asset.Match(left, right)
}

func matchBundleAgainst(bundleType, other asset.AssetType) (asset.AssetType, error) {
	b, err := bundleType.DecodeBundle()
	if err != nil {
		return asset.AssetType{}, err
	}
	lines, err := b.Expand(big.NewInt(1))
	if err != nil {
		return asset.AssetType{}, err
	}
	if len(lines) == 0 {
		return asset.AssetType{}, asset.ErrAssetMismatch
	}
	for _, ln := range lines {
		if _, err := asset.Match(ln.Asset.Type, other); err != nil {
			return asset.AssetType{}, err
		}
	}
	return bundleType, nil
}

// pairPlan is the fully computed settlement of one pair, ready to commit.
type pairPlan struct {
	record MatchRecord
	deltas []fill.Delta
	legs   []Leg
}

// planPair validates, matches and prices one pair without mutating anything.
// pending carries fill deltas accumulated by earlier pairs of the same batch
// so a later pair observes them.
func (e *Engine) planPair(ctx context.Context, st *settings, sender common.Address, m ExchangeMatch, pending map[common.Hash]*big.Int) (*pairPlan, error) {
	left, right := m.OrderLeft, m.OrderRight

	if err := e.validator.Validate(ctx, left, m.SignatureLeft, sender); err != nil {
		return nil, err
	}
	if err := e.validator.Validate(ctx, right, m.SignatureRight, sender); err != nil {
		return nil, err
	}

	var zero common.Address
	if left.Taker != zero && left.Taker != right.Maker {
		return nil, ErrTakerMismatch
	}
	if right.Taker != zero && right.Taker != left.Maker {
		return nil, ErrTakerMismatch
	}

	if _, err := matchTypes(left.MakeAsset.Type, right.TakeAsset.Type); err != nil {
		return nil, err
	}
	if _, err := matchTypes(left.TakeAsset.Type, right.MakeAsset.Type); err != nil {
		return nil, err
	}

	leftKey, rightKey := left.HashKey(), right.HashKey()
	leftFill, err := e.fillOf(leftKey, pending)
	if err != nil {
		return nil, err
	}
	rightFill, err := e.fillOf(rightKey, pending)
	if err != nil {
		return nil, err
	}

	res, err := fill.Orders(left, right, leftFill, rightFill)
	if err != nil {
		return nil, err
	}

	legs, err := e.settleTransfers(ctx, st, left, right, res)
	if err != nil {
		return nil, err
	}

	return &pairPlan{
		record: MatchRecord{
			Caller:     sender,
			LeftKey:    leftKey,
			RightKey:   rightKey,
			LeftOrder:  left,
			RightOrder: right,
			LeftFill:   new(big.Int).Add(leftFill, res.RightValue),
			RightFill:  new(big.Int).Add(rightFill, res.LeftValue),
			LeftValue:  res.LeftValue,
			RightValue: res.RightValue,
		},
		deltas: []fill.Delta{
			{Key: leftKey, Value: res.RightValue},
			{Key: rightKey, Value: res.LeftValue},
		},
		legs: legs,
	}, nil
}

func (e *Engine) fillOf(key common.Hash, pending map[common.Hash]*big.Int) (*big.Int, error) {
	base, err := e.ledger.Get(key)
	if err != nil {
		return nil, err
	}
	if p, ok := pending[key]; ok {
		base.Add(base, p)
	}
	return base, nil
}

// settleTransfers turns a computed fill into transfer legs: the fee-bearing
// payment leg split into royalties, protocol fee and net proceeds, and the
// counter leg(s) delivering the purchased asset.
func (e *Engine) settleTransfers(ctx context.Context, st *settings, left, right *order.Order, res fill.Result) ([]Leg, error) {
	var legs []Leg

	switch feeSideOf(left.MakeAsset.Type.Class, right.MakeAsset.Type.Class) {
	case feeSideLeft:
		paymentLegs, err := e.paymentLegs(ctx, st, left.MakeAsset.Type, res.LeftValue, left.Maker, proceedsTo(right), right, res.RightValue)
		if err != nil {
			return nil, err
		}
		deliveryLegs, err := assetLegs(right.MakeAsset, res.RightValue, right.Maker, proceedsTo(left))
		if err != nil {
			return nil, err
		}
		legs = append(paymentLegs, deliveryLegs...)
	case feeSideRight:
		paymentLegs, err := e.paymentLegs(ctx, st, right.MakeAsset.Type, res.RightValue, right.Maker, proceedsTo(left), left, res.LeftValue)
		if err != nil {
			return nil, err
		}
		deliveryLegs, err := assetLegs(left.MakeAsset, res.LeftValue, left.Maker, proceedsTo(right))
		if err != nil {
			return nil, err
		}
		legs = append(deliveryLegs, paymentLegs...)
	default:
		leftLegs, err := assetLegs(left.MakeAsset, res.LeftValue, left.Maker, proceedsTo(right))
		if err != nil {
			return nil, err
		}
		rightLegs, err := assetLegs(right.MakeAsset, res.RightValue, right.Maker, proceedsTo(left))
		if err != nil {
			return nil, err
		}
		legs = append(leftLegs, rightLegs...)
	}
	return legs, nil
}

// proceedsTo resolves where an order's maker receives their take.
func proceedsTo(o *order.Order) common.Address {
	var zero common.Address
	if o.Recipient != zero {
		return o.Recipient
	}
	return o.Maker
}

// paymentLegs splits the payment amount into royalty legs, the protocol-fee
// leg and the net-proceeds leg. Deductions come out of the proceeds: the
// payer always pays the full face amount. soldOrder is the counter order
// whose make asset is being bought; its maker is the seller the fee and
// royalty policy keys off.
func (e *Engine) paymentLegs(ctx context.Context, st *settings, paymentType asset.AssetType, total *big.Int, payer, sellerDest common.Address, soldOrder *order.Order, soldUnits *big.Int) ([]Leg, error) {
	lines, err := settlementLines(soldOrder.MakeAsset, soldUnits, total)
	if err != nil {
		return nil, err
	}

	// The per-line prices drive royalty and fee computation, so they must
	// account for the whole payment; otherwise under-priced lines would let
	// value slip past both phases into the proceeds leg.
	priced := new(big.Int)
	for _, ln := range lines {
		priced.Add(priced, ln.Price)
	}
	if priced.Cmp(total) != 0 {
		return nil, ErrPriceMismatch
	}

	seller := soldOrder.Maker
	exempt := e.acl.Has(RoleFeeExempt, seller)

	var legs []Leg
	deducted := new(big.Int)
	feeTotal := new(big.Int)

	if !exempt {
		for _, ln := range lines {
			token, tokenID, hasRoyalty := e.royaltyKey(st, ln.Asset.Type)
			if hasRoyalty {
				parts, err := e.royalties.RoyaltiesFor(ctx, token, tokenID)
				if err != nil {
					return nil, err
				}
				if err := royalty.CheckCap(parts); err != nil {
					return nil, err
				}
				for _, p := range parts {
					amount := bpsOf(ln.Price, p.Value)
					if amount.Sign() == 0 {
						continue
					}
					legs = append(legs, Leg{
						From:  payer,
						To:    p.Account,
						Asset: asset.Asset{Type: paymentType, Value: amount},
					})
					deducted.Add(deducted, amount)
				}
			}

			feeBps := st.fee.SecondaryBps
			if token, ok := registryOf(ln.Asset.Type, st); ok && e.acl.HasScoped(RolePrimarySeller, token, seller) {
				feeBps = st.fee.PrimaryBps
			}
			feeTotal.Add(feeTotal, bpsOf(ln.Price, feeBps))
		}
	}

	if feeTotal.Sign() > 0 {
		legs = append(legs, Leg{
			From:  payer,
			To:    st.fee.Receiver,
			Asset: asset.Asset{Type: paymentType, Value: feeTotal},
		})
		deducted.Add(deducted, feeTotal)
	}

	remainder := new(big.Int).Sub(total, deducted)
	if remainder.Sign() < 0 {
		return nil, ErrPriceMismatch
	}
	if remainder.Sign() > 0 {
		legs = append(legs, Leg{
			From:  payer,
			To:    sellerDest,
			Asset: asset.Asset{Type: paymentType, Value: remainder},
		})
	}
	return legs, nil
}

// settlementLines expands the sold asset into priced lines. A plain asset is
// one line worth the whole payment; a bundle carries its own per-item price
// distribution.
func settlementLines(sold asset.Asset, units, total *big.Int) ([]asset.Line, error) {
	if sold.Type.Class == asset.ClassBundle {
		b, err := sold.Type.DecodeBundle()
		if err != nil {
			return nil, err
		}
		return b.Expand(units)
	}
	return []asset.Line{{
		Asset: asset.Asset{Type: sold.Type, Value: units},
		Price: total,
	}}, nil
}

// royaltyKey resolves the royalty-lookup key of a settlement line. Only
// registry-backed collectible classes carry royalties; map parcels key off
// the configured land contract.
func (e *Engine) royaltyKey(st *settings, t asset.AssetType) (common.Address, *big.Int, bool) {
	switch t.Class {
	case asset.ClassERC721, asset.ClassERC1155:
		token, id, err := t.DecodeTokenID()
		if err != nil {
			return common.Address{}, nil, false
		}
		return token, id, true
	case asset.ClassQuad:
		var zero common.Address
		if st.landContract == zero {
			return common.Address{}, nil, false
		}
		return st.landContract, new(big.Int), true
	default:
		return common.Address{}, nil, false
	}
}

// registryOf returns the registry address a primary-seller role would be
// scoped to for a line's asset type.
func registryOf(t asset.AssetType, st *settings) (common.Address, bool) {
	switch t.Class {
	case asset.ClassERC20:
		token, err := t.DecodeToken()
		return token, err == nil
	case asset.ClassERC721, asset.ClassERC1155:
		token, _, err := t.DecodeTokenID()
		return token, err == nil
	case asset.ClassQuad:
		var zero common.Address
		if st.landContract == zero {
			return common.Address{}, false
		}
		return st.landContract, true
	default:
		return common.Address{}, false
	}
}

// assetLegs produces the delivery legs of the sold asset, expanding bundles
// into one leg per constituent.
func assetLegs(sold asset.Asset, units *big.Int, from, to common.Address) ([]Leg, error) {
	if sold.Type.Class != asset.ClassBundle {
		return []Leg{{
			From:  from,
			To:    to,
			Asset: asset.Asset{Type: sold.Type, Value: units},
		}}, nil
	}
	b, err := sold.Type.DecodeBundle()
	if err != nil {
		return nil, err
	}
	lines, err := b.Expand(units)
	if err != nil {
		return nil, err
	}
	legs := make([]Leg, 0, len(lines))
	for _, ln := range lines {
		legs = append(legs, Leg{From: from, To: to, Asset: ln.Asset})
	}
	return legs, nil
}

func bpsOf(value *big.Int, bps uint16) *big.Int {
	out := new(big.Int).Mul(value, big.NewInt(int64(bps)))
	return out.Div(out, big.NewInt(royalty.TotalBasisPoints))
}
