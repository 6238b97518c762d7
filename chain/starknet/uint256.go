package starknet

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
)

var (
	two128 = new(big.Int).Lsh(big.NewInt(1), 128)
	two256 = new(big.Int).Lsh(big.NewInt(1), 256)

	// MaxUint128 is 2^128 - 1, the largest value a single limb can carry.
	MaxUint128 = new(big.Int).Sub(two128, big.NewInt(1))
	// MaxUint256 is 2^256 - 1.
	MaxUint256 = new(big.Int).Sub(two256, big.NewInt(1))

	ErrUint256OutOfRange = errors.New("value does not fit in an unsigned 256 bit integer")
	ErrLimbOutOfRange    = errors.New("limb does not fit in 128 bits")
)

// Uint256 is a 256 bit unsigned integer as transmitted on Starknet: two 128 bit limbs, low first.
type Uint256 struct {
	Low  *felt.Felt
	High *felt.Felt
}

// NewUint256 splits v into its low and high limbs. low + high*2^128 == v always holds for the
// result.
func NewUint256(v *big.Int) (Uint256, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(two256) >= 0 {
		return Uint256{}, fmt.Errorf("%w: %v", ErrUint256OutOfRange, v)
	}

	low := new(big.Int).And(v, MaxUint128)
	high := new(big.Int).Rsh(v, 128)

	return Uint256{
		Low:  new(felt.Felt).SetBigInt(low),
		High: new(felt.Felt).SetBigInt(high),
	}, nil
}

// Uint256FromLimbs validates both limbs and returns them as an Uint256.
func Uint256FromLimbs(low, high *felt.Felt) (Uint256, error) {
	for name, limb := range map[string]*felt.Felt{"low": low, "high": high} {
		if limb == nil {
			return Uint256{}, fmt.Errorf("%w: %s limb is nil", ErrLimbOutOfRange, name)
		}
		if limb.BigInt(new(big.Int)).Cmp(MaxUint128) > 0 {
			return Uint256{}, fmt.Errorf("%w: %s limb %s", ErrLimbOutOfRange, name, limb.String())
		}
	}

	return Uint256{Low: low, High: high}, nil
}

// BigInt recombines the limbs: low + high*2^128.
func (u Uint256) BigInt() *big.Int {
	v := new(big.Int)
	if u.High != nil {
		v = u.High.BigInt(v)
		v.Lsh(v, 128)
	}
	if u.Low != nil {
		v.Add(v, u.Low.BigInt(new(big.Int)))
	}

	return v
}

// Calldata returns the limbs in wire order.
func (u Uint256) Calldata() []*felt.Felt {
	return []*felt.Felt{u.Low, u.High}
}

// String returns the decimal representation of the recombined value.
func (u Uint256) String() string {
	return u.BigInt().String()
}
