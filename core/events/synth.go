package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TypeCollateralDeposited = "collateral.deposited"
	TypeCollateralRedeemed  = "collateral.redeemed"
	TypeSynthMinted         = "synth.minted"
	TypeSynthBurned         = "synth.burned"
	TypeSynthLiquidated     = "synth.liquidated"
)

// CollateralDeposited is emitted when collateral enters engine custody.
type CollateralDeposited struct {
	User   common.Address
	Token  common.Address
	Amount *big.Int
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Event() *Event {
	return &Event{
		Type: TypeCollateralDeposited,
		Attributes: map[string]string{
			"user":   formatAddress(e.User),
			"token":  formatAddress(e.Token),
			"amount": formatAmount(e.Amount),
		},
	}
}

// CollateralRedeemed is emitted when collateral leaves engine custody. From
// and To differ during liquidations, where the seized collateral is routed to
// the liquidator.
type CollateralRedeemed struct {
	From   common.Address
	To     common.Address
	Token  common.Address
	Amount *big.Int
}

func (CollateralRedeemed) EventType() string { return TypeCollateralRedeemed }

func (e CollateralRedeemed) Event() *Event {
	return &Event{
		Type: TypeCollateralRedeemed,
		Attributes: map[string]string{
			"from":   formatAddress(e.From),
			"to":     formatAddress(e.To),
			"token":  formatAddress(e.Token),
			"amount": formatAmount(e.Amount),
		},
	}
}

// SynthMinted records new synthetic debt issued against a position.
type SynthMinted struct {
	User   common.Address
	Amount *big.Int
}

func (SynthMinted) EventType() string { return TypeSynthMinted }

func (e SynthMinted) Event() *Event {
	return &Event{
		Type: TypeSynthMinted,
		Attributes: map[string]string{
			"user":   formatAddress(e.User),
			"amount": formatAmount(e.Amount),
		},
	}
}

// SynthBurned records debt permanently destroyed. Payer identifies who funded
// the burn; it differs from User when a liquidator covers the debt.
type SynthBurned struct {
	User   common.Address
	Payer  common.Address
	Amount *big.Int
}

func (SynthBurned) EventType() string { return TypeSynthBurned }

func (e SynthBurned) Event() *Event {
	return &Event{
		Type: TypeSynthBurned,
		Attributes: map[string]string{
			"user":   formatAddress(e.User),
			"payer":  formatAddress(e.Payer),
			"amount": formatAmount(e.Amount),
		},
	}
}

// SynthLiquidated summarises a completed liquidation.
type SynthLiquidated struct {
	Liquidator       common.Address
	User             common.Address
	Token            common.Address
	DebtCovered      *big.Int
	CollateralSeized *big.Int
}

func (SynthLiquidated) EventType() string { return TypeSynthLiquidated }

func (e SynthLiquidated) Event() *Event {
	return &Event{
		Type: TypeSynthLiquidated,
		Attributes: map[string]string{
			"liquidator":       formatAddress(e.Liquidator),
			"user":             formatAddress(e.User),
			"token":            formatAddress(e.Token),
			"debtCovered":      formatAmount(e.DebtCovered),
			"collateralSeized": formatAmount(e.CollateralSeized),
		},
	}
}
