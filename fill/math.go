// Package fill tracks cumulative order consumption and computes the
// proportional amounts moved by a new match.
package fill

import (
	"errors"
	"math/big"

	"github.com/voxelmarkets/exchange-go/order"
)

var (
	// ErrDivisionByZero is returned when a fill computation has a zero
	// denominator
	ErrDivisionByZero = errors.New("division by zero")

	// ErrRoundingError is returned when integer truncation would lose more
	// than 0.1% of a computed amount
	ErrRoundingError = errors.New("rounding error")

	// ErrUnableToFillLeft is returned when the left order cannot deliver the
	// computed amount
	ErrUnableToFillLeft = errors.New("fillLeft: unable to fill")

	// ErrUnableToFillRight is returned when the right order cannot deliver
	// the computed amount
	ErrUnableToFillRight = errors.New("fillRight: unable to fill")

	// ErrNothingToFill is returned for an exhausted or cancelled order
	ErrNothingToFill = errors.New("nothing to fill")
)

var thousand = big.NewInt(1000)

// Result carries the two amounts moved by a match: LeftValue of the left
// order's make asset and RightValue of the left order's take asset. Each
// side's ledger entry grows by the amount of its own take asset consumed,
// so the left key grows by RightValue and the right key by LeftValue.
type Result struct {
	LeftValue  *big.Int
	RightValue *big.Int
}

// Orders computes the fill amounts for a matched pair given each side's
// cumulative prior fill. The side offering the limiting rate fills
// completely; the other side fills proportionally at its own declared rate,
// never delivering more than it declared.
func Orders(left, right *order.Order, leftFill, rightFill *big.Int) (Result, error) {
	leftMake, leftTake, err := remaining(left, leftFill)
	if err != nil {
		return Result{}, err
	}
	rightMake, rightTake, err := remaining(right, rightFill)
	if err != nil {
		return Result{}, err
	}

	if rightTake.Cmp(leftMake) > 0 {
		// Right asks for more than the left has remaining: left fills fully.
		return fillLeft(leftMake, leftTake, right.MakeAsset.Value, right.TakeAsset.Value)
	}
	return fillRight(left.MakeAsset.Value, left.TakeAsset.Value, rightMake, rightTake)
}

// remaining computes how much of an order's make and take is still open.
// Fill is tracked on the take side; the open make amount follows the order's
// own exchange rate.
func remaining(o *order.Order, fill *big.Int) (make, take *big.Int, err error) {
	take = new(big.Int).Sub(o.TakeAsset.Value, fill)
	if take.Sign() <= 0 {
		return nil, nil, ErrNothingToFill
	}
	make, err = partialAmountFloor(take, o.TakeAsset.Value, o.MakeAsset.Value)
	if err != nil {
		return nil, nil, err
	}
	return make, take, nil
}

func fillLeft(leftMake, leftTake, rightMake, rightTake *big.Int) (Result, error) {
	rightTakeNeeded, err := partialAmountFloor(leftTake, rightMake, rightTake)
	if err != nil {
		return Result{}, err
	}
	if rightTakeNeeded.Cmp(leftMake) > 0 {
		return Result{}, ErrUnableToFillLeft
	}
	return Result{LeftValue: leftMake, RightValue: leftTake}, nil
}

func fillRight(leftMake, leftTake, rightMake, rightTake *big.Int) (Result, error) {
	makerValue, err := partialAmountFloor(rightTake, leftMake, leftTake)
	if err != nil {
		return Result{}, err
	}
	if makerValue.Cmp(rightMake) > 0 {
		return Result{}, ErrUnableToFillRight
	}
	return Result{LeftValue: new(big.Int).Set(rightTake), RightValue: makerValue}, nil
}

// partialAmountFloor computes floor(numerator * target / denominator),
// rejecting results whose truncation error reaches 0.1% of the exact value.
func partialAmountFloor(numerator, denominator, target *big.Int) (*big.Int, error) {
	if denominator.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	if err := checkRounding(numerator, denominator, target); err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(numerator, target)
	return out.Div(out, denominator), nil
}

func checkRounding(numerator, denominator, target *big.Int) error {
	if numerator.Sign() == 0 || target.Sign() == 0 {
		return nil
	}
	product := new(big.Int).Mul(numerator, target)
	remainder := new(big.Int).Mod(product, denominator)
	// error ratio = remainder / (numerator * target); reject at >= 1/1000
	if new(big.Int).Mul(remainder, thousand).Cmp(product) >= 0 {
		return ErrRoundingError
	}
	return nil
}
