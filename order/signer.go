package order

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrSignatureInvalid is returned when an order signature cannot be
	// attributed to the order's maker
	ErrSignatureInvalid = errors.New("signature verification error")
)

// erc1271MagicValue is the acceptance value a contract account returns from
// isValidSignature(bytes32,bytes).
var erc1271MagicValue = [4]byte{0x16, 0x26, 0xba, 0x7e}

// ERC1271 ABI JSON for delegated signature verification.
const erc1271ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "hash", "type": "bytes32"},
			{"name": "signature", "type": "bytes"}
		],
		"name": "isValidSignature",
		"outputs": [{"name": "", "type": "bytes4"}],
		"type": "function"
	}
]`

// GetERC1271ABI returns the parsed ERC1271 ABI.
func GetERC1271ABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc1271ABIJSON))
	if err != nil {
		panic("failed to parse ERC1271 ABI: " + err.Error())
	}
	return parsed
}

// SignatureVerifier checks that a signature over a sign hash was produced by
// the maker. Two variants exist: direct recovery for externally owned makers
// and delegated verification for contract-owned makers.
type SignatureVerifier interface {
	Verify(ctx context.Context, maker common.Address, hash common.Hash, sig []byte) error
}

// EOAVerifier recovers the signing address from a 65-byte r||s||v signature
// and requires it to equal the maker.
type EOAVerifier struct{}

// Verify implements SignatureVerifier.
func (EOAVerifier) Verify(_ context.Context, maker common.Address, hash common.Hash, sig []byte) error {
	if len(sig) != crypto.SignatureLength {
		return ErrSignatureInvalid
	}
	// Normalize the recovery id: on-wire signatures carry v as 27/28.
	recovered := make([]byte, crypto.SignatureLength)
	copy(recovered, sig)
	if recovered[64] >= 27 {
		recovered[64] -= 27
	}
	pub, err := crypto.SigToPub(hash.Bytes(), recovered)
	if err != nil {
		return ErrSignatureInvalid
	}
	if crypto.PubkeyToAddress(*pub) != maker {
		return ErrSignatureInvalid
	}
	return nil
}

// ContractCaller is the subset of an RPC client needed for delegated
// signature verification. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// ERC1271Verifier delegates verification to the maker account's own
// isValidSignature capability and requires the magic acceptance value.
type ERC1271Verifier struct {
	Caller ContractCaller
}

// Verify implements SignatureVerifier.
func (v ERC1271Verifier) Verify(ctx context.Context, maker common.Address, hash common.Hash, sig []byte) error {
	parsed := GetERC1271ABI()
	data, err := parsed.Pack("isValidSignature", hash, sig)
	if err != nil {
		return fmt.Errorf("failed to pack isValidSignature: %w", err)
	}
	out, err := v.Caller.CallContract(ctx, ethereum.CallMsg{To: &maker, Data: data}, nil)
	if err != nil {
		return ErrSignatureInvalid
	}
	vals, err := parsed.Unpack("isValidSignature", out)
	if err != nil {
		return ErrSignatureInvalid
	}
	magic, ok := vals[0].([4]byte)
	if !ok || magic != erc1271MagicValue {
		return ErrSignatureInvalid
	}
	return nil
}

// DispatchVerifier probes the maker's account kind once and dispatches to the
// direct or delegated variant.
type DispatchVerifier struct {
	Caller ContractCaller
}

// Verify implements SignatureVerifier.
func (v DispatchVerifier) Verify(ctx context.Context, maker common.Address, hash common.Hash, sig []byte) error {
	code, err := v.Caller.CodeAt(ctx, maker, nil)
	if err != nil {
		return fmt.Errorf("failed to probe account kind: %w", err)
	}
	if len(code) > 0 {
		return ERC1271Verifier{Caller: v.Caller}.Verify(ctx, maker, hash, sig)
	}
	return EOAVerifier{}.Verify(ctx, maker, hash, sig)
}

// Signer signs orders with an ECDSA key under a fixed EIP712 domain.
type Signer struct {
	domain *EIP712Domain
	key    *ecdsa.PrivateKey
}

// NewSigner creates a Signer for the given domain and key.
func NewSigner(domain *EIP712Domain, key *ecdsa.PrivateKey) *Signer {
	return &Signer{domain: domain, key: key}
}

// Address returns the signing address.
func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// Sign produces a 65-byte r||s||v signature over the order's sign hash, with
// v offset to 27/28.
func (s *Signer) Sign(o *Order) ([]byte, error) {
	hash := o.SignHash(s.domain)
	sig, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}
	sig[64] += 27
	return sig, nil
}
