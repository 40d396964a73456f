package asset

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassTags(t *testing.T) {
	assert := assert.New(t)

	// bytes4(keccak256(name)), same derivation as the on-chain constants
	assert.Equal("0xaaaebeba", "0x"+common.Bytes2Hex(ClassETH[:]))
	assert.Equal("ERC20", ClassERC20.String())
	assert.True(ClassERC721.Unique())
	assert.False(ClassERC1155.Unique())
	assert.False(ClassOf("UNKNOWN").Known())
	assert.True(ClassQuad.Known())
}

func TestERC20TypeRoundtrip(t *testing.T) {
	assert := assert.New(t)

	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	typ := ERC20Type(token)
	assert.Equal(ClassERC20, typ.Class)

	decoded, err := typ.DecodeToken()
	assert.NoError(err)
	assert.Equal(token, decoded)

	_, err = ETHType().DecodeToken()
	assert.ErrorIs(err, ErrInvalidData)
}

func TestERC721TypeRoundtrip(t *testing.T) {
	assert := assert.New(t)

	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	id := big.NewInt(42)
	typ := ERC721Type(token, id)

	gotToken, gotID, err := typ.DecodeTokenID()
	assert.NoError(err)
	assert.Equal(token, gotToken)
	assert.Zero(gotID.Cmp(id))
}

func TestQuadTypeRoundtrip(t *testing.T) {
	assert := assert.New(t)

	typ := QuadType(big.NewInt(3), big.NewInt(12), big.NewInt(24))
	size, x, y, err := typ.DecodeQuad()
	assert.NoError(err)
	assert.EqualValues(3, size.Int64())
	assert.EqualValues(12, x.Int64())
	assert.EqualValues(24, y.Int64())
}

func TestTypeHashDiffersByData(t *testing.T) {
	assert := assert.New(t)

	a := ERC721Type(common.HexToAddress("0x01"), big.NewInt(1))
	b := ERC721Type(common.HexToAddress("0x01"), big.NewInt(2))
	assert.NotEqual(a.Hash(), b.Hash())
	assert.Equal(a.Hash(), ERC721Type(common.HexToAddress("0x01"), big.NewInt(1)).Hash())
}

func TestAssetValidate(t *testing.T) {
	require := require.New(t)

	token := common.HexToAddress("0x03")

	require.NoError(Asset{Type: ERC20Type(token), Value: big.NewInt(100)}.Validate())
	require.NoError(Asset{Type: ERC721Type(token, big.NewInt(1)), Value: big.NewInt(1)}.Validate())

	err := Asset{Type: ERC721Type(token, big.NewInt(1)), Value: big.NewInt(2)}.Validate()
	require.ErrorIs(err, ErrNonUnitValue)

	err = Asset{Type: AssetType{Class: ClassOf("NOPE")}, Value: big.NewInt(1)}.Validate()
	require.ErrorIs(err, ErrInvalidAssetClass)

	err = Asset{Type: ERC20Type(token), Value: big.NewInt(0)}.Validate()
	require.Error(err)
}
