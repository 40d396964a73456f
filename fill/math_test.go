package fill

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelmarkets/exchange-go/asset"
	"github.com/voxelmarkets/exchange-go/order"
)

var (
	tokenA = common.HexToAddress("0xaaa0000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0xbbb0000000000000000000000000000000000002")
)

// pairAB builds an order offering makeValue of A for takeValue of B.
func pairAB(makeValue, takeValue int64) *order.Order {
	return &order.Order{
		Maker:     common.HexToAddress("0x01"),
		MakeAsset: asset.Asset{Type: asset.ERC20Type(tokenA), Value: big.NewInt(makeValue)},
		TakeAsset: asset.Asset{Type: asset.ERC20Type(tokenB), Value: big.NewInt(takeValue)},
		Salt:      big.NewInt(1),
	}
}

// pairBA offers B for A, the counter side of pairAB.
func pairBA(makeValue, takeValue int64) *order.Order {
	o := pairAB(makeValue, takeValue)
	o.MakeAsset.Type = asset.ERC20Type(tokenB)
	o.TakeAsset.Type = asset.ERC20Type(tokenA)
	return o
}

func zero() *big.Int { return new(big.Int) }

func TestOrdersExactMatch(t *testing.T) {
	require := require.New(t)

	left := pairAB(10_000_000_000, 20_000_000_000)
	right := pairBA(20_000_000_000, 10_000_000_000)

	res, err := Orders(left, right, zero(), zero())
	require.NoError(err)
	require.EqualValues(10_000_000_000, res.LeftValue.Int64())
	require.EqualValues(20_000_000_000, res.RightValue.Int64())
}

func TestOrdersPartialThenExhausted(t *testing.T) {
	require := require.New(t)

	left := pairAB(10_000_000_000, 20_000_000_000)
	half := pairBA(10_000_000_000, 5_000_000_000)

	res, err := Orders(left, half, zero(), zero())
	require.NoError(err)
	require.EqualValues(5_000_000_000, res.LeftValue.Int64())
	require.EqualValues(10_000_000_000, res.RightValue.Int64())

	// the left key accumulates its take-side consumption
	leftFill := new(big.Int).Set(res.RightValue)

	res, err = Orders(left, half, leftFill, zero())
	require.NoError(err)
	require.EqualValues(5_000_000_000, res.LeftValue.Int64())
	require.EqualValues(10_000_000_000, res.RightValue.Int64())

	leftFill.Add(leftFill, res.RightValue)
	_, err = Orders(left, half, leftFill, zero())
	require.ErrorIs(err, ErrNothingToFill)
}

func TestOrdersLeftFillsFully(t *testing.T) {
	require := require.New(t)

	// right asks for more A than the left has; left fills at right's rate
	left := pairAB(100, 200)
	right := pairBA(300, 150)

	res, err := Orders(left, right, zero(), zero())
	require.NoError(err)
	require.EqualValues(100, res.LeftValue.Int64())
	require.EqualValues(200, res.RightValue.Int64())
}

func TestOrdersRateMismatch(t *testing.T) {
	assert := assert.New(t)

	// right demands 150 A for only 200 B, worse than left's 100 A for 200 B
	left := pairAB(100, 200)
	right := pairBA(200, 150)
	_, err := Orders(left, right, zero(), zero())
	assert.ErrorIs(err, ErrUnableToFillLeft)

	// right offers too little B for what its ask is worth at left's rate
	right = pairBA(100, 60)
	_, err = Orders(left, right, zero(), zero())
	assert.ErrorIs(err, ErrUnableToFillRight)
}

func TestOrdersRoundingGuard(t *testing.T) {
	assert := assert.New(t)

	// remaining take of 2 out of 3 maps to 20/3 of the make side,
	// truncating away a full third
	left := pairAB(10, 3)
	right := pairBA(3, 10)
	_, err := Orders(left, right, big.NewInt(1), zero())
	assert.ErrorIs(err, ErrRoundingError)
}

func TestOrdersDivisionByZero(t *testing.T) {
	assert := assert.New(t)

	left := pairAB(100, 200)
	right := pairBA(0, 150)
	_, err := Orders(left, right, zero(), zero())
	assert.ErrorIs(err, ErrDivisionByZero)
}

func TestOrdersCancelledSentinel(t *testing.T) {
	assert := assert.New(t)

	left := pairAB(100, 200)
	right := pairBA(200, 100)

	_, err := Orders(left, right, new(big.Int).Set(Cancelled), zero())
	assert.ErrorIs(err, ErrNothingToFill)

	_, err = Orders(left, right, zero(), new(big.Int).Set(Cancelled))
	assert.ErrorIs(err, ErrNothingToFill)
}

func TestPartialAmountFloor(t *testing.T) {
	require := require.New(t)

	got, err := partialAmountFloor(big.NewInt(5000), big.NewInt(10000), big.NewInt(300))
	require.NoError(err)
	require.EqualValues(150, got.Int64())

	_, err = partialAmountFloor(big.NewInt(1), big.NewInt(0), big.NewInt(1))
	require.ErrorIs(err, ErrDivisionByZero)

	// zero numerator short-circuits the rounding guard
	got, err = partialAmountFloor(big.NewInt(0), big.NewInt(7), big.NewInt(3))
	require.NoError(err)
	require.Zero(got.Sign())
}
