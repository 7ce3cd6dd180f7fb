package synth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Valuer converts between token amounts and USD at the engine's 18-decimal
// fixed-point scale using live oracle rounds. All divisions truncate:
// undervaluing collateral is the safe direction.
type Valuer struct {
	registry *CollateralRegistry
}

func NewValuer(registry *CollateralRegistry) *Valuer {
	return &Valuer{registry: registry}
}

func (v *Valuer) price(token common.Address) (*big.Int, error) {
	feed, err := v.registry.FeedFor(token)
	if err != nil {
		return nil, err
	}
	round, err := feed.LatestRound()
	if err != nil {
		return nil, err
	}
	if round.Price == nil || round.Price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	// Lift the 8-decimal feed price to the engine's 18-decimal scale.
	return new(big.Int).Mul(round.Price, additionalFeedPrecision), nil
}

// UsdValue prices a token amount in USD at 18-decimal scale.
func (v *Valuer) UsdValue(token common.Address, amount *big.Int) (*big.Int, error) {
	price, err := v.price(token)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return big.NewInt(0), nil
	}
	usd := new(big.Int).Mul(price, amount)
	return usd.Quo(usd, precision), nil
}

// TokenAmountFromUsd computes how many token base units the USD amount buys.
func (v *Valuer) TokenAmountFromUsd(token common.Address, usd *big.Int) (*big.Int, error) {
	price, err := v.price(token)
	if err != nil {
		return nil, err
	}
	if usd == nil {
		return big.NewInt(0), nil
	}
	amount := new(big.Int).Mul(usd, precision)
	return amount.Quo(amount, price), nil
}

// TotalCollateralValue sums the USD value of every approved token deposited in
// the position. Tokens with zero balance contribute zero without touching the
// oracle.
func (v *Valuer) TotalCollateralValue(pos *Position) (*big.Int, error) {
	total := big.NewInt(0)
	if pos == nil {
		return total, nil
	}
	for _, token := range v.registry.tokens {
		amount, ok := pos.Collateral[token]
		if !ok || amount == nil || amount.Sign() == 0 {
			continue
		}
		value, err := v.UsdValue(token, amount)
		if err != nil {
			return nil, err
		}
		total.Add(total, value)
	}
	return total, nil
}
