package order

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voxelmarkets/exchange-go/asset"
)

var (
	// ErrNotStarted is returned before an order's start time
	ErrNotStarted = errors.New("order not started")

	// ErrExpired is returned after an order's end time
	ErrExpired = errors.New("order expired")

	// ErrNotMaker is returned when a zero-salt order is presented by anyone
	// but its maker
	ErrNotMaker = errors.New("maker is not tx sender")

	// ErrNotWhitelisted is returned when whitelisting is enabled and a
	// payment token lacks approval
	ErrNotWhitelisted = errors.New("payment token not whitelisted")
)

// Whitelist gates which fungible-token registries may be used as payment.
// A nil Whitelist on the Validator disables the gate entirely.
type Whitelist interface {
	Enabled() bool
	ApprovedPaymentToken(token common.Address) bool
}

// Validator checks order signatures, time windows and the optional payment
// allow-list. Validation is side-effect free.
type Validator struct {
	Domain    *EIP712Domain
	Verifier  SignatureVerifier
	Whitelist Whitelist
	Now       func() time.Time
}

// NewValidator creates a Validator with the wall clock.
func NewValidator(domain *EIP712Domain, verifier SignatureVerifier) *Validator {
	return &Validator{
		Domain:   domain,
		Verifier: verifier,
		Now:      time.Now,
	}
}

// Validate checks a presented order against the effective sender of the call.
func (v *Validator) Validate(ctx context.Context, o *Order, sig []byte, sender common.Address) error {
	if err := o.MakeAsset.Validate(); err != nil {
		return err
	}
	if err := o.TakeAsset.Validate(); err != nil {
		return err
	}
	for _, a := range []asset.Asset{o.MakeAsset, o.TakeAsset} {
		if a.Type.Class != asset.ClassBundle {
			continue
		}
		b, err := a.Type.DecodeBundle()
		if err != nil {
			return err
		}
		if err := b.Validate(a.Value); err != nil {
			return err
		}
	}

	now := v.Now().Unix()
	if o.Start != 0 && now < o.Start {
		return ErrNotStarted
	}
	if o.End != 0 && now > o.End {
		return ErrExpired
	}

	// A zero-salt order cannot be relayed; its maker must be the sender and
	// no signature is required.
	if o.Salt == nil || o.Salt.Sign() == 0 {
		if sender != o.Maker {
			return ErrNotMaker
		}
	} else if sender != o.Maker {
		if err := v.Verifier.Verify(ctx, o.Maker, o.SignHash(v.Domain), sig); err != nil {
			return err
		}
	}

	if v.Whitelist != nil && v.Whitelist.Enabled() {
		if err := v.checkPayment(o.MakeAsset.Type); err != nil {
			return err
		}
		if err := v.checkPayment(o.TakeAsset.Type); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) checkPayment(t asset.AssetType) error {
	if t.Class != asset.ClassERC20 {
		return nil
	}
	token, err := t.DecodeToken()
	if err != nil {
		return err
	}
	if !v.Whitelist.ApprovedPaymentToken(token) {
		return ErrNotWhitelisted
	}
	return nil
}
