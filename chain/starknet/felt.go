package starknet

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/NethermindEth/juno/core/felt"
)

// Prime is the order of the Starknet field. Every felt is strictly below it.
var Prime, _ = new(big.Int).SetString(
	"3618502788666131213697322783095070105623107215331596699973092056135872020481", 10,
)

var ErrInvalidFelt = errors.New("invalid felt")

// ParseFelt parses a 0x prefixed hex or a decimal string into a felt. Values outside of the
// field are rejected rather than reduced.
func ParseFelt(s string) (*felt.Felt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidFelt)
	}

	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFelt, s)
	}

	return BigToFelt(v)
}

// MustParseFelt is ParseFelt that panics on error. Intended for constants and tests.
func MustParseFelt(s string) *felt.Felt {
	f, err := ParseFelt(s)
	if err != nil {
		panic(err)
	}

	return f
}

// BigToFelt converts v to a felt, failing if v is negative or not below Prime.
func BigToFelt(v *big.Int) (*felt.Felt, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(Prime) >= 0 {
		return nil, fmt.Errorf("%w: %v out of field range", ErrInvalidFelt, v)
	}

	return new(felt.Felt).SetBigInt(v), nil
}

// FeltToUint64 converts f to an uint64, failing if it does not fit.
func FeltToUint64(f *felt.Felt) (uint64, error) {
	if f == nil {
		return 0, fmt.Errorf("%w: nil", ErrInvalidFelt)
	}

	b := f.BigInt(new(big.Int))
	if !b.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in 64 bits", ErrInvalidFelt, f.String())
	}

	return b.Uint64(), nil
}

// Uint64ToFelt converts v to a felt.
func Uint64ToFelt(v uint64) *felt.Felt {
	return new(felt.Felt).SetUint64(v)
}

// IsZeroFelt reports whether f is nil or zero.
func IsZeroFelt(f *felt.Felt) bool {
	return f == nil || f.IsZero()
}

// FeltsEqual reports whether a and b hold the same value, treating nil as zero.
func FeltsEqual(a, b *felt.Felt) bool {
	if IsZeroFelt(a) || IsZeroFelt(b) {
		return IsZeroFelt(a) && IsZeroFelt(b)
	}

	return a.Equal(b)
}

// FeltsToStrings converts felts to their hex representation.
func FeltsToStrings(fs []*felt.Felt) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.String())
	}

	return out
}

// StringsToFelts parses every element of ss with ParseFelt.
func StringsToFelts(ss []string) ([]*felt.Felt, error) {
	out := make([]*felt.Felt, 0, len(ss))
	for i, s := range ss {
		f, err := ParseFelt(s)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, f)
	}

	return out, nil
}
