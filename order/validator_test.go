package order

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/voxelmarkets/exchange-go/asset"
)

type fakeWhitelist struct {
	enabled  bool
	approved map[common.Address]bool
}

func (w *fakeWhitelist) Enabled() bool { return w.enabled }
func (w *fakeWhitelist) ApprovedPaymentToken(token common.Address) bool {
	return w.approved[token]
}

func newTestValidator(t *testing.T) (*Validator, *Signer) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	domain := NewEIP712Domain(big.NewInt(1), common.HexToAddress("0xe1"))
	v := NewValidator(domain, EOAVerifier{})
	return v, NewSigner(domain, key)
}

func TestValidateHappyPath(t *testing.T) {
	require := require.New(t)
	v, signer := newTestValidator(t)

	o := testOrder(signer.Address(), 100, 200, 7)
	sig, err := signer.Sign(o)
	require.NoError(err)

	sender := common.HexToAddress("0xfeed")
	require.NoError(v.Validate(context.Background(), o, sig, sender))
}

func TestValidateTimeWindow(t *testing.T) {
	require := require.New(t)
	v, signer := newTestValidator(t)
	now := time.Unix(1_700_000_000, 0)
	v.Now = func() time.Time { return now }

	o := testOrder(signer.Address(), 100, 200, 7)
	o.Start = now.Unix() + 60
	sig, _ := signer.Sign(o)
	err := v.Validate(context.Background(), o, sig, common.HexToAddress("0xfeed"))
	require.ErrorIs(err, ErrNotStarted)

	o = testOrder(signer.Address(), 100, 200, 7)
	o.End = now.Unix() - 60
	sig, _ = signer.Sign(o)
	err = v.Validate(context.Background(), o, sig, common.HexToAddress("0xfeed"))
	require.ErrorIs(err, ErrExpired)

	// zero bounds mean no bounds
	o = testOrder(signer.Address(), 100, 200, 7)
	sig, _ = signer.Sign(o)
	require.NoError(v.Validate(context.Background(), o, sig, common.HexToAddress("0xfeed")))
}

func TestValidateZeroSalt(t *testing.T) {
	require := require.New(t)
	v, signer := newTestValidator(t)

	o := testOrder(signer.Address(), 100, 200, 0)

	// zero-salt orders cannot be relayed, even correctly signed
	sig, err := signer.Sign(o)
	require.NoError(err)
	err = v.Validate(context.Background(), o, sig, common.HexToAddress("0xfeed"))
	require.ErrorIs(err, ErrNotMaker)

	// but the maker may present them without any signature
	require.NoError(v.Validate(context.Background(), o, nil, signer.Address()))
}

func TestValidateBadSignature(t *testing.T) {
	require := require.New(t)
	v, signer := newTestValidator(t)

	o := testOrder(signer.Address(), 100, 200, 7)
	sender := common.HexToAddress("0xfeed")

	err := v.Validate(context.Background(), o, nil, sender)
	require.ErrorIs(err, ErrSignatureInvalid)

	// signature by someone else
	otherKey, _ := crypto.GenerateKey()
	other := NewSigner(v.Domain, otherKey)
	sig, _ := other.Sign(o)
	err = v.Validate(context.Background(), o, sig, sender)
	require.ErrorIs(err, ErrSignatureInvalid)

	// tampered order invalidates a prior signature
	sig, _ = signer.Sign(o)
	o.MakeAsset.Value = big.NewInt(999)
	err = v.Validate(context.Background(), o, sig, sender)
	require.ErrorIs(err, ErrSignatureInvalid)
}

func TestValidateSenderIsMakerSkipsSignature(t *testing.T) {
	require := require.New(t)
	v, signer := newTestValidator(t)

	o := testOrder(signer.Address(), 100, 200, 7)
	require.NoError(v.Validate(context.Background(), o, nil, signer.Address()))
}

func TestValidateWhitelist(t *testing.T) {
	require := require.New(t)
	v, signer := newTestValidator(t)
	wl := &fakeWhitelist{enabled: true, approved: map[common.Address]bool{testTokenA: true}}
	v.Whitelist = wl

	o := testOrder(signer.Address(), 100, 200, 7) // make: tokenA, take: tokenB
	sig, _ := signer.Sign(o)
	err := v.Validate(context.Background(), o, sig, common.HexToAddress("0xfeed"))
	require.ErrorIs(err, ErrNotWhitelisted)

	wl.approved[testTokenB] = true
	require.NoError(v.Validate(context.Background(), o, sig, common.HexToAddress("0xfeed")))

	// disabled gate lets anything through
	wl.enabled = false
	wl.approved = nil
	require.NoError(v.Validate(context.Background(), o, sig, common.HexToAddress("0xfeed")))
}

func TestValidateNonUnitUniqueValue(t *testing.T) {
	require := require.New(t)
	v, signer := newTestValidator(t)

	o := testOrder(signer.Address(), 100, 200, 7)
	o.MakeAsset = asset.Asset{
		Type:  asset.ERC721Type(testTokenA, big.NewInt(1)),
		Value: big.NewInt(3),
	}
	sig, _ := signer.Sign(o)
	err := v.Validate(context.Background(), o, sig, common.HexToAddress("0xfeed"))
	require.ErrorIs(err, asset.ErrNonUnitValue)
}

type fakeCaller struct {
	code []byte
	ret  []byte
	err  error
}

func (c *fakeCaller) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return c.ret, c.err
}

func (c *fakeCaller) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	return c.code, nil
}

func TestDispatchVerifierContractMaker(t *testing.T) {
	require := require.New(t)

	parsed := GetERC1271ABI()
	okRet, err := parsed.Methods["isValidSignature"].Outputs.Pack([4]byte{0x16, 0x26, 0xba, 0x7e})
	require.NoError(err)
	badRet, err := parsed.Methods["isValidSignature"].Outputs.Pack([4]byte{0xde, 0xad, 0xbe, 0xef})
	require.NoError(err)

	maker := common.HexToAddress("0xc0de")
	hash := common.HexToHash("0x01")

	v := DispatchVerifier{Caller: &fakeCaller{code: []byte{0x60}, ret: okRet}}
	require.NoError(v.Verify(context.Background(), maker, hash, []byte("sig")))

	v = DispatchVerifier{Caller: &fakeCaller{code: []byte{0x60}, ret: badRet}}
	require.ErrorIs(v.Verify(context.Background(), maker, hash, []byte("sig")), ErrSignatureInvalid)
}
