package transfer

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// maxDecimals is the largest number of token decimals accepted, enough for any 256 bit token.
const maxDecimals = 77

// amountValue is a pflag.Value holding a human readable token amount such as "1.5".
type amountValue struct {
	d   decimal.Decimal
	set bool
}

var _ pflag.Value = (*amountValue)(nil)

func (a *amountValue) String() string {
	if !a.set {
		return ""
	}

	return a.d.String()
}

func (a *amountValue) Set(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	if d.Sign() <= 0 {
		return errors.New("amount must be positive")
	}
	a.d, a.set = d, true

	return nil
}

func (*amountValue) Type() string { return "decimal" }

// toBaseUnits converts a token amount into base units: amount * 10^decimals. The amount must not
// be more precise than the token.
func toBaseUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if decimals > maxDecimals {
		return nil, fmt.Errorf("decimals must be at most %d", maxDecimals)
	}

	raw := amount.Shift(int32(decimals))
	if !raw.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}

	return raw.BigInt(), nil
}

// fromBaseUnits is the inverse of toBaseUnits, for display.
func fromBaseUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "-"
	}

	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}
