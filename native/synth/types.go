package synth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Position is the per-user accounting record: deposited collateral for each
// approved token plus a single minted-debt amount. Positions are created
// implicitly on first deposit and only ever mutated by the engine.
type Position struct {
	Address    common.Address
	Collateral map[common.Address]*big.Int
	Debt       *big.Int
}

// NewPosition returns a zero-initialized position for the address.
func NewPosition(addr common.Address) *Position {
	return &Position{
		Address:    addr,
		Collateral: make(map[common.Address]*big.Int),
		Debt:       big.NewInt(0),
	}
}

// EnsureDefaults populates nil fields so decoded or hand-built positions are
// safe to mutate.
func (p *Position) EnsureDefaults() {
	if p.Collateral == nil {
		p.Collateral = make(map[common.Address]*big.Int)
	}
	if p.Debt == nil {
		p.Debt = big.NewInt(0)
	}
}

// Clone returns a deep copy so staged mutations never leak into stored state.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := NewPosition(p.Address)
	for token, amount := range p.Collateral {
		if amount != nil {
			clone.Collateral[token] = new(big.Int).Set(amount)
		}
	}
	if p.Debt != nil {
		clone.Debt = new(big.Int).Set(p.Debt)
	}
	return clone
}

// CollateralOf returns a copy of the deposited amount for the token.
func (p *Position) CollateralOf(token common.Address) *big.Int {
	if amount, ok := p.Collateral[token]; ok && amount != nil {
		return new(big.Int).Set(amount)
	}
	return big.NewInt(0)
}

func (p *Position) addCollateral(token common.Address, amount *big.Int) {
	if existing, ok := p.Collateral[token]; ok && existing != nil {
		p.Collateral[token] = new(big.Int).Add(existing, amount)
		return
	}
	p.Collateral[token] = new(big.Int).Set(amount)
}

// subCollateral decrements the token balance, failing instead of wrapping on
// underflow.
func (p *Position) subCollateral(token common.Address, amount *big.Int) error {
	existing, ok := p.Collateral[token]
	if !ok || existing == nil || existing.Cmp(amount) < 0 {
		return ErrInsufficientCollateral
	}
	p.Collateral[token] = new(big.Int).Sub(existing, amount)
	return nil
}

// AccountInfo is the read-side summary of a position.
type AccountInfo struct {
	DebtMinted         *big.Int
	CollateralValueUSD *big.Int
}
