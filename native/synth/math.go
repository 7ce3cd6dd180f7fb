package synth

import "math/big"

var (
	// precision is the engine's internal fixed-point scale: 18 decimal places.
	precision = mustBigInt("1000000000000000000")
	// additionalFeedPrecision lifts 8-decimal oracle prices to the engine scale.
	additionalFeedPrecision = mustBigInt("10000000000")
	// liquidationThreshold / liquidationPrecision: only 50% of collateral value
	// counts toward solvency, i.e. positions must be 200% collateralized.
	liquidationThreshold = big.NewInt(50)
	liquidationPrecision = big.NewInt(100)
	// liquidationBonus / liquidationPrecision: liquidators receive 10% extra
	// collateral on top of the USD value of the debt they cover.
	liquidationBonus = big.NewInt(10)

	// MinHealthFactor is the solvency floor at 18-decimal scale (1.0).
	MinHealthFactor = mustBigInt("1000000000000000000")
	// MaxHealthFactor is reported for positions with no minted debt, which
	// carry no solvency constraint.
	MaxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// healthFactorFrom computes the solvency ratio at 18-decimal scale. Division
// truncates toward zero; under-reporting a ratio is the safe direction.
func healthFactorFrom(collateralUsd, debt *big.Int) *big.Int {
	if debt == nil || debt.Sign() == 0 {
		return new(big.Int).Set(MaxHealthFactor)
	}
	if collateralUsd == nil {
		collateralUsd = big.NewInt(0)
	}
	adjusted := new(big.Int).Mul(collateralUsd, liquidationThreshold)
	adjusted.Quo(adjusted, liquidationPrecision)
	adjusted.Mul(adjusted, precision)
	return adjusted.Quo(adjusted, debt)
}

// bonusCollateral computes the liquidation incentive for a seized base amount.
func bonusCollateral(amount *big.Int) *big.Int {
	bonus := new(big.Int).Mul(amount, liquidationBonus)
	return bonus.Quo(bonus, liquidationPrecision)
}
