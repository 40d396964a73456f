// Package asset defines the tagged-union asset model used by the exchange:
// native currency, fungible tokens, unique items, semi-fungible item stacks,
// map parcels (quads) and composite bundles of all of the above.
package asset

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidAssetClass is returned for an unknown or unregistered asset class
	ErrInvalidAssetClass = errors.New("invalid asset class")

	// ErrAssetMismatch is returned when two asset types don't describe the same thing
	ErrAssetMismatch = errors.New("assets don't match")

	// ErrNonUnitValue is returned for a unique-item asset whose value is not 1
	ErrNonUnitValue = errors.New("erc721 value error")

	// ErrInvalidData is returned when class-specific data cannot be decoded
	ErrInvalidData = errors.New("invalid asset data")
)

// Class is the 4-byte asset class tag, derived from the class name the same
// way solidity's bytes4(keccak256(name)) is.
type Class [4]byte

// ClassOf derives the class tag for a name.
func ClassOf(name string) Class {
	var c Class
	copy(c[:], crypto.Keccak256([]byte(name))[:4])
	return c
}

var (
	ClassETH     = ClassOf("ETH")
	ClassERC20   = ClassOf("ERC20")
	ClassERC721  = ClassOf("ERC721")
	ClassERC1155 = ClassOf("ERC1155")
	ClassBundle  = ClassOf("BUNDLE")
	ClassQuad    = ClassOf("QUAD")
)

var classNames = map[Class]string{
	ClassETH:     "ETH",
	ClassERC20:   "ERC20",
	ClassERC721:  "ERC721",
	ClassERC1155: "ERC1155",
	ClassBundle:  "BUNDLE",
	ClassQuad:    "QUAD",
}

// Known reports whether the class is one of the registered classes.
func (c Class) Known() bool {
	_, ok := classNames[c]
	return ok
}

// Unique reports whether assets of this class are indivisible single items.
func (c Class) Unique() bool {
	return c == ClassERC721
}

func (c Class) String() string {
	if n, ok := classNames[c]; ok {
		return n
	}
	return "0x" + common.Bytes2Hex(c[:])
}

// AssetType identifies a transferable thing: a class tag plus class-specific
// identifying data (registry address, item id, quad coordinates, or an
// encoded bundle).
type AssetType struct {
	Class Class
	Data  []byte
}

// Asset is an asset type together with an amount.
type Asset struct {
	Type  AssetType
	Value *big.Int
}

var (
	addressT, _ = abi.NewType("address", "", nil)
	uint256T, _ = abi.NewType("uint256", "", nil)
	bytes4T, _  = abi.NewType("bytes4", "", nil)
	bytes32T, _ = abi.NewType("bytes32", "", nil)

	tokenArgs   = abi.Arguments{{Type: addressT}}
	tokenIDArgs = abi.Arguments{{Type: addressT}, {Type: uint256T}}
	quadArgs    = abi.Arguments{{Type: uint256T}, {Type: uint256T}, {Type: uint256T}}

	// AssetType(bytes4 assetClass,bytes data)
	assetTypeTypeHash = crypto.Keccak256Hash([]byte("AssetType(bytes4 assetClass,bytes data)"))
	assetTypeArgs     = abi.Arguments{{Type: bytes32T}, {Type: bytes4T}, {Type: bytes32T}}

	// Asset(AssetType assetType,uint256 value)AssetType(bytes4 assetClass,bytes data)
	assetTypeHash = crypto.Keccak256Hash([]byte("Asset(AssetType assetType,uint256 value)AssetType(bytes4 assetClass,bytes data)"))
	assetArgs     = abi.Arguments{{Type: bytes32T}, {Type: bytes32T}, {Type: uint256T}}
)

// ETHType is the asset type of the native currency. It carries no data.
func ETHType() AssetType {
	return AssetType{Class: ClassETH}
}

// ERC20Type builds the asset type of a fungible token registry.
func ERC20Type(token common.Address) AssetType {
	data, _ := tokenArgs.Pack(token)
	return AssetType{Class: ClassERC20, Data: data}
}

// ERC721Type builds the asset type of a single unique item.
func ERC721Type(token common.Address, id *big.Int) AssetType {
	data, _ := tokenIDArgs.Pack(token, id)
	return AssetType{Class: ClassERC721, Data: data}
}

// ERC1155Type builds the asset type of an item stack.
func ERC1155Type(token common.Address, id *big.Int) AssetType {
	data, _ := tokenIDArgs.Pack(token, id)
	return AssetType{Class: ClassERC1155, Data: data}
}

// QuadType builds the asset type of a map parcel, addressed by grid
// coordinates rather than item id.
func QuadType(size, x, y *big.Int) AssetType {
	data, _ := quadArgs.Pack(size, x, y)
	return AssetType{Class: ClassQuad, Data: data}
}

// DecodeToken decodes the registry address of an ERC20 asset type.
func (t AssetType) DecodeToken() (common.Address, error) {
	if t.Class != ClassERC20 {
		return common.Address{}, ErrInvalidData
	}
	vals, err := tokenArgs.Unpack(t.Data)
	if err != nil {
		return common.Address{}, ErrInvalidData
	}
	return vals[0].(common.Address), nil
}

// DecodeTokenID decodes the registry address and item id of an ERC721 or
// ERC1155 asset type.
func (t AssetType) DecodeTokenID() (common.Address, *big.Int, error) {
	if t.Class != ClassERC721 && t.Class != ClassERC1155 {
		return common.Address{}, nil, ErrInvalidData
	}
	vals, err := tokenIDArgs.Unpack(t.Data)
	if err != nil {
		return common.Address{}, nil, ErrInvalidData
	}
	return vals[0].(common.Address), vals[1].(*big.Int), nil
}

// DecodeQuad decodes the size and grid coordinates of a map parcel.
func (t AssetType) DecodeQuad() (size, x, y *big.Int, err error) {
	if t.Class != ClassQuad {
		return nil, nil, nil, ErrInvalidData
	}
	vals, err := quadArgs.Unpack(t.Data)
	if err != nil {
		return nil, nil, nil, ErrInvalidData
	}
	return vals[0].(*big.Int), vals[1].(*big.Int), vals[2].(*big.Int), nil
}

// Equal reports whether two asset types identify the same transferable thing.
func (t AssetType) Equal(o AssetType) bool {
	return t.Class == o.Class && bytes.Equal(t.Data, o.Data)
}

// Hash computes the EIP-712 struct hash of the asset type. It feeds both the
// order key and the order signature hash.
func (t AssetType) Hash() common.Hash {
	var class [4]byte = t.Class
	encoded, err := assetTypeArgs.Pack(assetTypeTypeHash, class, crypto.Keccak256Hash(t.Data))
	if err != nil {
		panic("failed to encode asset type: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

// Hash computes the EIP-712 struct hash of the asset (type plus value).
func (a Asset) Hash() common.Hash {
	encoded, err := assetArgs.Pack(assetTypeHash, a.Type.Hash(), a.Value)
	if err != nil {
		panic("failed to encode asset: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

// Validate checks class-level invariants of a fully specified asset.
func (a Asset) Validate() error {
	if !a.Type.Class.Known() {
		return ErrInvalidAssetClass
	}
	if a.Value == nil || a.Value.Sign() <= 0 {
		return ErrInvalidData
	}
	if a.Type.Class.Unique() && a.Value.Cmp(big.NewInt(1)) != 0 {
		return ErrNonUnitValue
	}
	return nil
}
