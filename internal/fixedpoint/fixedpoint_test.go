package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromUnits(t *testing.T) {
	got := FromUnits(5000)
	want, _ := new(big.Int).SetString("5000000000000000000000", 10)
	require.Zero(t, got.Cmp(want))
}

func TestMulDivFloors(t *testing.T) {
	// 7 * 3 / 2 = 10.5 -> 10
	require.Zero(t, MulDiv(big.NewInt(7), big.NewInt(3), big.NewInt(2)).Cmp(big.NewInt(10)))
}

func TestMulDivDoesNotMutateArguments(t *testing.T) {
	a := big.NewInt(7)
	b := big.NewInt(3)
	den := big.NewInt(2)
	_ = MulDiv(a, b, den)
	require.Zero(t, a.Cmp(big.NewInt(7)))
	require.Zero(t, b.Cmp(big.NewInt(3)))
	require.Zero(t, den.Cmp(big.NewInt(2)))
}

func TestWadRoundTrip(t *testing.T) {
	a := FromUnits(1234)
	b := FromUnits(10)
	// (1234e18 * 10e18 / 1e18) / 10e18 = 1234e18
	require.Zero(t, WadDiv(WadMul(a, b), b).Cmp(a))
}

func TestApplyHundredths(t *testing.T) {
	tests := []struct {
		units      uint64
		hundredths uint16
		want       uint64
	}{
		{5000, 115, 5750},
		{1000, 110, 1100},
		{100, 105, 105},
		{10, 100, 10},
	}
	for _, tc := range tests {
		got := ApplyHundredths(FromUnits(tc.units), tc.hundredths)
		require.Zero(t, got.Cmp(FromUnits(tc.want)), "units=%d weight=%d", tc.units, tc.hundredths)
	}
}

func TestApplyHundredthsFloors(t *testing.T) {
	// 3 * 105 / 100 = 3.15 -> 3 at unit scale
	got := ApplyHundredths(big.NewInt(3), 105)
	require.Zero(t, got.Cmp(big.NewInt(3)))
}
