package order

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelmarkets/exchange-go/asset"
)

var (
	testTokenA = common.HexToAddress("0xaaa0000000000000000000000000000000000001")
	testTokenB = common.HexToAddress("0xbbb0000000000000000000000000000000000002")
)

func testOrder(maker common.Address, makeValue, takeValue int64, salt int64) *Order {
	return &Order{
		Maker:     maker,
		MakeAsset: asset.Asset{Type: asset.ERC20Type(testTokenA), Value: big.NewInt(makeValue)},
		TakeAsset: asset.Asset{Type: asset.ERC20Type(testTokenB), Value: big.NewInt(takeValue)},
		Salt:      big.NewInt(salt),
	}
}

func TestHashKeyStableAcrossValues(t *testing.T) {
	assert := assert.New(t)

	maker := common.HexToAddress("0x01")
	a := testOrder(maker, 100, 200, 7)
	b := testOrder(maker, 50, 100, 7) // same types, different values

	assert.Equal(a.HashKey(), b.HashKey())

	c := testOrder(maker, 100, 200, 8) // different salt
	assert.NotEqual(a.HashKey(), c.HashKey())

	d := testOrder(common.HexToAddress("0x02"), 100, 200, 7) // different maker
	assert.NotEqual(a.HashKey(), d.HashKey())
}

func TestHashSensitiveToEveryField(t *testing.T) {
	assert := assert.New(t)

	maker := common.HexToAddress("0x01")
	base := testOrder(maker, 100, 200, 7)

	changed := testOrder(maker, 101, 200, 7)
	assert.NotEqual(base.Hash(), changed.Hash())

	withWindow := testOrder(maker, 100, 200, 7)
	withWindow.End = 99999
	assert.NotEqual(base.Hash(), withWindow.Hash())

	withRecipient := testOrder(maker, 100, 200, 7)
	withRecipient.Recipient = common.HexToAddress("0x09")
	assert.NotEqual(base.Hash(), withRecipient.Hash())

	same := testOrder(maker, 100, 200, 7)
	assert.Equal(base.Hash(), same.Hash())
}

func TestSignHashDependsOnDomain(t *testing.T) {
	require := require.New(t)

	o := testOrder(common.HexToAddress("0x01"), 100, 200, 7)
	d1 := NewEIP712Domain(big.NewInt(1), common.HexToAddress("0xe1"))
	d2 := NewEIP712Domain(big.NewInt(137), common.HexToAddress("0xe1"))

	require.NotEqual(o.SignHash(d1), o.SignHash(d2))
	require.Equal(o.SignHash(d1), o.SignHash(NewEIP712Domain(big.NewInt(1), common.HexToAddress("0xe1"))))
}
