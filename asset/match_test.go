package asset

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestMatchSameType(t *testing.T) {
	assert := assert.New(t)

	token := common.HexToAddress("0x0a")
	got, err := Match(ERC20Type(token), ERC20Type(token))
	assert.NoError(err)
	assert.True(got.Equal(ERC20Type(token)))
}

func TestMatchClassMismatch(t *testing.T) {
	assert := assert.New(t)

	token := common.HexToAddress("0x0a")
	_, err := Match(ERC20Type(token), ERC721Type(token, big.NewInt(1)))
	assert.ErrorIs(err, ErrAssetMismatch)
}

func TestMatchDataMismatch(t *testing.T) {
	assert := assert.New(t)

	_, err := Match(
		ERC721Type(common.HexToAddress("0x0a"), big.NewInt(1)),
		ERC721Type(common.HexToAddress("0x0a"), big.NewInt(2)),
	)
	assert.ErrorIs(err, ErrAssetMismatch)

	_, err = Match(
		ERC20Type(common.HexToAddress("0x0a")),
		ERC20Type(common.HexToAddress("0x0b")),
	)
	assert.ErrorIs(err, ErrAssetMismatch)
}

func TestMatchUnknownClass(t *testing.T) {
	assert := assert.New(t)

	unknown := AssetType{Class: ClassOf("MYSTERY")}
	_, err := Match(unknown, ETHType())
	assert.ErrorIs(err, ErrInvalidAssetClass)
	_, err = Match(ETHType(), unknown)
	assert.ErrorIs(err, ErrInvalidAssetClass)
}

// Match must be symmetric: both directions succeed or fail identically.
func TestMatchSymmetry(t *testing.T) {
	assert := assert.New(t)

	cases := [][2]AssetType{
		{ETHType(), ETHType()},
		{ERC20Type(common.HexToAddress("0x0a")), ERC20Type(common.HexToAddress("0x0b"))},
		{ERC1155Type(common.HexToAddress("0x0a"), big.NewInt(7)), ERC1155Type(common.HexToAddress("0x0a"), big.NewInt(7))},
		{ERC721Type(common.HexToAddress("0x0a"), big.NewInt(1)), ETHType()},
	}
	for _, c := range cases {
		l, lerr := Match(c[0], c[1])
		r, rerr := Match(c[1], c[0])
		if lerr == nil {
			assert.NoError(rerr)
			assert.True(l.Equal(r))
		} else {
			assert.Equal(lerr, rerr)
		}
	}
}
