package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownToken signals a bank operation against an unregistered token.
var ErrUnknownToken = errors.New("token: token not registered with bank")

// Session binds a caller address to a ledger, yielding a capability-scoped
// handle. Holding the owner's session is what grants mint and burn rights;
// nothing is inherited or looked up at call time.
type Session struct {
	ledger *Ledger
	caller common.Address
}

// Session returns a handle whose operations execute as caller.
func (l *Ledger) Session(caller common.Address) *Session {
	return &Session{ledger: l, caller: caller}
}

// Caller returns the address the session acts as.
func (s *Session) Caller() common.Address { return s.caller }

// Mint issues amount to the recipient. Fails unless the session caller owns
// the ledger's supply.
func (s *Session) Mint(to common.Address, amount *big.Int) error {
	return s.ledger.Mint(s.caller, to, amount)
}

// Burn destroys amount from the session caller's own balance.
func (s *Session) Burn(amount *big.Int) error {
	return s.ledger.Burn(s.caller, amount)
}

// Pull moves amount from the holder into the session caller's custody using
// the holder's standing allowance.
func (s *Session) Pull(from common.Address, amount *big.Int) error {
	return s.ledger.TransferFrom(s.caller, from, s.caller, amount)
}

// Transfer moves amount out of the session caller's balance.
func (s *Session) Transfer(to common.Address, amount *big.Int) error {
	return s.ledger.Transfer(s.caller, to, amount)
}

// Approve grants spender an allowance over the session caller's balance.
func (s *Session) Approve(spender common.Address, amount *big.Int) error {
	return s.ledger.Approve(s.caller, spender, amount)
}

// Bank resolves token addresses to ledgers and moves collateral in and out of
// the operator's custody. The engine is constructed with a bank bound to its
// own custody address.
type Bank struct {
	mu       sync.RWMutex
	operator common.Address
	ledgers  map[common.Address]*Ledger
}

// NewBank constructs a bank whose custody account is operator.
func NewBank(operator common.Address) *Bank {
	return &Bank{
		operator: operator,
		ledgers:  make(map[common.Address]*Ledger),
	}
}

// Register maps a token address to its ledger.
func (b *Bank) Register(tokenAddr common.Address, ledger *Ledger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ledgers[tokenAddr] = ledger
}

func (b *Bank) ledgerFor(tokenAddr common.Address) (*Ledger, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ledger, ok := b.ledgers[tokenAddr]
	if !ok {
		return nil, ErrUnknownToken
	}
	return ledger, nil
}

// Pull moves amount of the token from the holder into operator custody using
// the holder's standing allowance.
func (b *Bank) Pull(tokenAddr, from common.Address, amount *big.Int) error {
	ledger, err := b.ledgerFor(tokenAddr)
	if err != nil {
		return err
	}
	return ledger.TransferFrom(b.operator, from, b.operator, amount)
}

// Release moves amount of the token out of operator custody to the recipient.
func (b *Bank) Release(tokenAddr, to common.Address, amount *big.Int) error {
	ledger, err := b.ledgerFor(tokenAddr)
	if err != nil {
		return err
	}
	return ledger.Transfer(b.operator, to, amount)
}
