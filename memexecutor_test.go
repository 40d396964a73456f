package exchange

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/voxelmarkets/exchange-go/asset"
)

func TestMemExecutorCommitUndoesOnFailure(t *testing.T) {
	require := require.New(t)

	alice := common.HexToAddress("0xa1")
	bob := common.HexToAddress("0xb0")

	book := NewMemExecutor()
	book.SetERC20Balance(payToken, alice, big.NewInt(100))
	book.MintERC721(nftToken, big.NewInt(5), alice)

	sess, err := book.Begin(context.Background())
	require.NoError(err)

	// first leg is coverable, second is not
	require.NoError(sess.Transfer(context.Background(), Leg{
		From: alice, To: bob, Asset: erc20(payToken, 60),
	}))
	require.NoError(sess.Transfer(context.Background(), Leg{
		From: bob, To: alice,
		Asset: asset.Asset{Type: asset.ERC721Type(nftToken, big.NewInt(5)), Value: big.NewInt(1)},
	}))

	err = sess.Commit(context.Background())
	require.ErrorIs(err, ErrNotOwner)

	// the applied first leg was undone
	require.EqualValues(100, book.ERC20Balance(payToken, alice).Int64())
	require.Zero(book.ERC20Balance(payToken, bob).Sign())
}

func TestMemExecutorInsufficientBalance(t *testing.T) {
	require := require.New(t)

	alice := common.HexToAddress("0xa1")
	bob := common.HexToAddress("0xb0")

	book := NewMemExecutor()
	book.SetERC20Balance(payToken, alice, big.NewInt(50))

	sess, err := book.Begin(context.Background())
	require.NoError(err)
	require.NoError(sess.Transfer(context.Background(), Leg{
		From: alice, To: bob, Asset: erc20(payToken, 60),
	}))
	require.ErrorIs(sess.Commit(context.Background()), ErrInsufficientBalance)
	require.EqualValues(50, book.ERC20Balance(payToken, alice).Int64())
}

func TestMemExecutorQuadOwnership(t *testing.T) {
	require := require.New(t)

	alice := common.HexToAddress("0xa1")
	bob := common.HexToAddress("0xb0")

	book := NewMemExecutor()
	book.SetQuadOwner(big.NewInt(3), big.NewInt(12), big.NewInt(24), alice)

	quad := asset.Asset{
		Type:  asset.QuadType(big.NewInt(3), big.NewInt(12), big.NewInt(24)),
		Value: big.NewInt(1),
	}

	sess, err := book.Begin(context.Background())
	require.NoError(err)
	require.NoError(sess.Transfer(context.Background(), Leg{From: bob, To: alice, Asset: quad}))
	require.ErrorIs(sess.Commit(context.Background()), ErrNotOwner)

	sess, err = book.Begin(context.Background())
	require.NoError(err)
	require.NoError(sess.Transfer(context.Background(), Leg{From: alice, To: bob, Asset: quad}))
	require.NoError(sess.Commit(context.Background()))
	require.Equal(bob, book.QuadOwner(big.NewInt(3), big.NewInt(12), big.NewInt(24)))
}
