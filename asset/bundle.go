package asset

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrLengthMismatch is returned when the price distribution does not
	// mirror the bundle's sub-asset arrays
	ErrLengthMismatch = errors.New("bundle arrays length mismatch")

	// ErrBundleValue is returned when a bundle containing unique items is
	// declared with a value other than 1
	ErrBundleValue = errors.New("bundle value error")
)

// ERC20Item is a fungible-token entry of a bundle.
type ERC20Item struct {
	Token common.Address
	Value *big.Int
}

// ERC721Item groups unique items of one registry.
type ERC721Item struct {
	Token common.Address
	IDs   []*big.Int
}

// ERC1155Item groups item stacks of one registry.
type ERC1155Item struct {
	Token    common.Address
	IDs      []*big.Int
	Supplies []*big.Int
}

// Quads lists map parcels by size and grid coordinates. The three slices
// run in parallel.
type Quads struct {
	Sizes []*big.Int
	Xs    []*big.Int
	Ys    []*big.Int
}

// PriceDistribution assigns a per-item slice of the bundle price to every
// sub-asset. Its shape must exactly mirror the bundle's sub-asset arrays.
type PriceDistribution struct {
	ERC20Prices   []*big.Int
	ERC721Prices  [][]*big.Int
	ERC1155Prices [][]*big.Int
	QuadPrices    []*big.Int
}

// Bundle is a composite asset grouping sub-assets and per-item prices into
// one tradeable unit.
type Bundle struct {
	ERC20Items   []ERC20Item
	ERC721Items  []ERC721Item
	ERC1155Items []ERC1155Item
	Quads        Quads
	Prices       PriceDistribution
}

// Line is one settlement line produced by expanding a bundle: a concrete
// sub-asset and the slice of the bundle price assigned to it.
type Line struct {
	Asset Asset
	Price *big.Int
}

var bundleEncMode cbor.EncMode

func init() {
	// Deterministic encoding so that bundle identity can be decided by
	// byte equality of the encoded data.
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("cbor enc mode: " + err.Error())
	}
	bundleEncMode = em
}

// BundleType encodes a bundle into its asset type.
func BundleType(b *Bundle) (AssetType, error) {
	data, err := bundleEncMode.Marshal(b)
	if err != nil {
		return AssetType{}, err
	}
	return AssetType{Class: ClassBundle, Data: data}, nil
}

// DecodeBundle decodes the bundle carried by a BUNDLE asset type.
func (t AssetType) DecodeBundle() (*Bundle, error) {
	if t.Class != ClassBundle {
		return nil, ErrInvalidData
	}
	var b Bundle
	if err := cbor.Unmarshal(t.Data, &b); err != nil {
		return nil, ErrInvalidData
	}
	return &b, nil
}

// HasUnique reports whether the bundle contains any unique item or map
// parcel, which restricts the bundle to value 1.
func (b *Bundle) HasUnique() bool {
	for _, it := range b.ERC721Items {
		if len(it.IDs) > 0 {
			return true
		}
	}
	return len(b.Quads.Sizes) > 0
}

// Validate checks the price-distribution shape against the sub-asset arrays
// and the unit-value restriction for bundles holding unique items.
func (b *Bundle) Validate(declaredValue *big.Int) error {
	if len(b.Prices.ERC20Prices) != len(b.ERC20Items) {
		return ErrLengthMismatch
	}
	if len(b.Prices.ERC721Prices) != len(b.ERC721Items) {
		return ErrLengthMismatch
	}
	for i, it := range b.ERC721Items {
		if len(b.Prices.ERC721Prices[i]) != len(it.IDs) {
			return ErrLengthMismatch
		}
	}
	if len(b.Prices.ERC1155Prices) != len(b.ERC1155Items) {
		return ErrLengthMismatch
	}
	for i, it := range b.ERC1155Items {
		if len(it.Supplies) != len(it.IDs) {
			return ErrLengthMismatch
		}
		if len(b.Prices.ERC1155Prices[i]) != len(it.IDs) {
			return ErrLengthMismatch
		}
	}
	if len(b.Quads.Xs) != len(b.Quads.Sizes) || len(b.Quads.Ys) != len(b.Quads.Sizes) {
		return ErrLengthMismatch
	}
	if len(b.Prices.QuadPrices) != len(b.Quads.Sizes) {
		return ErrLengthMismatch
	}
	if b.HasUnique() && declaredValue != nil && declaredValue.Cmp(big.NewInt(1)) != 0 {
		return ErrBundleValue
	}
	return nil
}

// Expand emits one settlement line per sub-asset in a fixed deterministic
// order: fungible tokens, unique items, item stacks, map parcels. units is
// the number of bundle units being settled; fungible values and all prices
// scale by it. Bundles holding unique items only ever expand with units 1.
func (b *Bundle) Expand(units *big.Int) ([]Line, error) {
	if units == nil || units.Sign() <= 0 {
		return nil, ErrBundleValue
	}
	if b.HasUnique() && units.Cmp(big.NewInt(1)) != 0 {
		return nil, ErrBundleValue
	}
	if err := b.Validate(nil); err != nil {
		return nil, err
	}

	var lines []Line
	for i, it := range b.ERC20Items {
		lines = append(lines, Line{
			Asset: Asset{Type: ERC20Type(it.Token), Value: new(big.Int).Mul(it.Value, units)},
			Price: new(big.Int).Mul(b.Prices.ERC20Prices[i], units),
		})
	}
	for i, it := range b.ERC721Items {
		for j, id := range it.IDs {
			lines = append(lines, Line{
				Asset: Asset{Type: ERC721Type(it.Token, id), Value: big.NewInt(1)},
				Price: new(big.Int).Set(b.Prices.ERC721Prices[i][j]),
			})
		}
	}
	for i, it := range b.ERC1155Items {
		for j, id := range it.IDs {
			lines = append(lines, Line{
				Asset: Asset{Type: ERC1155Type(it.Token, id), Value: new(big.Int).Mul(it.Supplies[j], units)},
				Price: new(big.Int).Mul(b.Prices.ERC1155Prices[i][j], units),
			})
		}
	}
	for i := range b.Quads.Sizes {
		lines = append(lines, Line{
			Asset: Asset{Type: QuadType(b.Quads.Sizes[i], b.Quads.Xs[i], b.Quads.Ys[i]), Value: big.NewInt(1)},
			Price: new(big.Int).Set(b.Prices.QuadPrices[i]),
		})
	}
	return lines, nil
}
