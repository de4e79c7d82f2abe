package launch

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

const solDecimals = 9

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// ToBaseUnits scales a whole-token amount by 10^decimals.
// The result must be a non-negative integer that fits in a u64.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidInput, amount)
	}
	scaled := amount.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidInput, amount, decimals)
	}
	if scaled.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("%w: %s overflows token supply", ErrInvalidInput, amount)
	}
	return scaled.BigInt().Uint64(), nil
}

// FromBaseUnits converts base units back to whole tokens.
func FromBaseUnits(units uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals))
}

// LamportsToSOL converts lamports to SOL exactly.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return FromBaseUnits(lamports, solDecimals)
}

// SOLToLamports converts SOL to lamports.
func SOLToLamports(sol decimal.Decimal) (uint64, error) {
	return ToBaseUnits(sol, solDecimals)
}
