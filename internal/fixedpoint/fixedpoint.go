// Package fixedpoint provides wad (1e18) scaled integer arithmetic for the
// reward-accounting engine. All helpers multiply before dividing and floor
// toward zero, so accumulated rounding always under-counts and never creates
// value out of thin air.
package fixedpoint

import "math/big"

// Precision is the wad scaling factor, 1e18.
var Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// FromUnits converts a whole-token amount into wad base units.
func FromUnits(n uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(n), Precision)
}

// MulDiv returns floor(a * b / den). It never mutates its arguments.
// den must be non-zero.
func MulDiv(a, b, den *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Quo(p, den)
}

// WadMul returns floor(a * b / 1e18), the product of two wad values.
func WadMul(a, b *big.Int) *big.Int {
	return MulDiv(a, b, Precision)
}

// WadDiv returns floor(a * 1e18 / b), the wad quotient of a by b.
// b must be non-zero.
func WadDiv(a, b *big.Int) *big.Int {
	return MulDiv(a, Precision, b)
}

// ApplyHundredths scales a by a multiplier expressed in hundredths
// (115 means 1.15x), flooring the result.
func ApplyHundredths(a *big.Int, hundredths uint16) *big.Int {
	return MulDiv(a, new(big.Int).SetUint64(uint64(hundredths)), big.NewInt(100))
}

// IsZero reports whether v is nil or zero.
func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}
