// Package order defines the signed order model, its two content hashes and
// the order validator.
//
// An order carries two distinct identities:
//
//   - HashKey covers (maker, make asset type, take asset type, salt) only.
//     It is stable across value changes and keys the fill ledger, so repeated
//     partial fills of one logical order accumulate under one entry.
//   - Hash covers every field. Changing any value mid-negotiation invalidates
//     a prior signature without resetting fill history.
package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/voxelmarkets/exchange-go/asset"
)

// EIP712 domain constants.
const (
	EIP712DomainName    = "Voxel Exchange"
	EIP712DomainVersion = "1"
)

// Pre-computed type hashes using keccak256.
var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	EIP712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))

	// Order(address maker,Asset makeAsset,address taker,Asset takeAsset,uint256 salt,uint256 start,uint256 end,address recipient)Asset(AssetType assetType,uint256 value)AssetType(bytes4 assetClass,bytes data)
	OrderTypeHash = crypto.Keccak256Hash([]byte(
		"Order(address maker,Asset makeAsset,address taker,Asset takeAsset,uint256 salt,uint256 start,uint256 end,address recipient)Asset(AssetType assetType,uint256 value)AssetType(bytes4 assetClass,bytes data)",
	))
)

// Order is a signed intent to exchange MakeAsset for TakeAsset.
type Order struct {
	Maker     common.Address
	MakeAsset asset.Asset
	Taker     common.Address // zero means anyone may take
	TakeAsset asset.Asset
	Salt      *big.Int
	Start     int64 // unix seconds, 0 means no lower bound
	End       int64 // unix seconds, 0 means no upper bound
	Recipient common.Address // if set, redirects maker proceeds
}

// EIP712Domain represents the EIP712 domain separator data.
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// NewEIP712Domain creates a new EIP712Domain with the standard values.
func NewEIP712Domain(chainID *big.Int, verifyingContract common.Address) *EIP712Domain {
	return &EIP712Domain{
		Name:              EIP712DomainName,
		Version:           EIP712DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

var (
	bytes32T, _ = abi.NewType("bytes32", "", nil)
	uint256T, _ = abi.NewType("uint256", "", nil)
	addressT, _ = abi.NewType("address", "", nil)

	domainArgs = abi.Arguments{
		{Type: bytes32T}, // typeHash
		{Type: bytes32T}, // nameHash
		{Type: bytes32T}, // versionHash
		{Type: uint256T}, // chainId
		{Type: addressT}, // verifyingContract
	}

	keyArgs = abi.Arguments{
		{Type: addressT}, // maker
		{Type: bytes32T}, // makeAsset type hash
		{Type: bytes32T}, // takeAsset type hash
		{Type: uint256T}, // salt
	}

	orderArgs = abi.Arguments{
		{Type: bytes32T}, // typeHash
		{Type: addressT}, // maker
		{Type: bytes32T}, // makeAsset hash
		{Type: addressT}, // taker
		{Type: bytes32T}, // takeAsset hash
		{Type: uint256T}, // salt
		{Type: uint256T}, // start
		{Type: uint256T}, // end
		{Type: addressT}, // recipient
	}
)

// Hash computes the EIP712 domain separator hash.
func (d *EIP712Domain) Hash() common.Hash {
	encoded, err := domainArgs.Pack(
		EIP712DomainTypeHash,
		crypto.Keccak256Hash([]byte(d.Name)),
		crypto.Keccak256Hash([]byte(d.Version)),
		d.ChainID,
		d.VerifyingContract,
	)
	if err != nil {
		panic("failed to encode domain separator: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

// HashKey computes the order key used for fill tracking and cancellation.
func (o *Order) HashKey() common.Hash {
	encoded, err := keyArgs.Pack(
		o.Maker,
		o.MakeAsset.Type.Hash(),
		o.TakeAsset.Type.Hash(),
		o.Salt,
	)
	if err != nil {
		panic("failed to encode order key: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

// Hash computes the struct hash of the entire order, the input to signature
// verification.
func (o *Order) Hash() common.Hash {
	encoded, err := orderArgs.Pack(
		OrderTypeHash,
		o.Maker,
		o.MakeAsset.Hash(),
		o.Taker,
		o.TakeAsset.Hash(),
		o.Salt,
		big.NewInt(o.Start),
		big.NewInt(o.End),
		o.Recipient,
	)
	if err != nil {
		panic("failed to encode order struct: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

// SignHash creates the final EIP712 hash to be signed:
// keccak256("\x19\x01" ++ domainSeparator ++ structHash).
func (o *Order) SignHash(domain *EIP712Domain) common.Hash {
	domainSeparator := domain.Hash()
	structHash := o.Hash()

	data := make([]byte, 0, 2+32+32)
	data = append(data, 0x19, 0x01)
	data = append(data, domainSeparator.Bytes()...)
	data = append(data, structHash.Bytes()...)

	return crypto.Keccak256Hash(data)
}
