package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotOwner rejects mint and burn calls from anyone but the supply owner.
	ErrNotOwner = errors.New("token: caller does not control supply")
	// ErrAmountNotPositive rejects nil, zero, and negative amounts.
	ErrAmountNotPositive = errors.New("token: amount must be positive")
	// ErrInsufficientBalance signals a transfer or burn exceeding the holder's balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance signals a delegated transfer exceeding the approved amount.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
)

// Ledger is a fungible-balance ledger with standard transfer/approve semantics
// and owner-gated supply control. The engine is constructed as the owner of
// the synthetic debt token's ledger, making it the sole authorized minter and
// burner.
type Ledger struct {
	mu          sync.RWMutex
	name        string
	symbol      string
	owner       common.Address
	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
}

// NewLedger constructs an empty ledger whose supply is controlled by owner.
func NewLedger(name, symbol string, owner common.Address) *Ledger {
	return &Ledger{
		name:        name,
		symbol:      symbol,
		owner:       owner,
		totalSupply: big.NewInt(0),
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (l *Ledger) Name() string   { return l.name }
func (l *Ledger) Symbol() string { return l.symbol }

// Owner returns the address holding mint/burn rights.
func (l *Ledger) Owner() common.Address { return l.owner }

// TotalSupply reports the outstanding token supply.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.totalSupply)
}

// BalanceOf reports the holder's balance. Unknown addresses hold zero.
func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bal, ok := l.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// Allowance reports how much spender may move out of holder's balance.
func (l *Ledger) Allowance(holder, spender common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if spenders, ok := l.allowances[holder]; ok {
		if amount, ok := spenders[spender]; ok {
			return new(big.Int).Set(amount)
		}
	}
	return big.NewInt(0)
}

// Mint credits newly issued tokens to the recipient. Only the owner may call.
func (l *Ledger) Mint(caller, to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return ErrNotOwner
	}
	l.credit(to, amount)
	l.totalSupply = new(big.Int).Add(l.totalSupply, amount)
	return nil
}

// Burn permanently destroys tokens held by the caller. Only the owner may call.
func (l *Ledger) Burn(caller common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return ErrNotOwner
	}
	if err := l.debit(caller, amount); err != nil {
		return err
	}
	l.totalSupply = new(big.Int).Sub(l.totalSupply, amount)
	return nil
}

// Transfer moves tokens out of the caller's own balance.
func (l *Ledger) Transfer(caller, to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(caller, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// Approve lets spender move up to amount out of the caller's balance.
func (l *Ledger) Approve(caller, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrAmountNotPositive
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	spenders, ok := l.allowances[caller]
	if !ok {
		spenders = make(map[common.Address]*big.Int)
		l.allowances[caller] = spenders
	}
	spenders[spender] = new(big.Int).Set(amount)
	return nil
}

// TransferFrom moves tokens from one holder to another within the caller's
// approved allowance.
func (l *Ledger) TransferFrom(caller, from, to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	allowance := l.allowanceLocked(from, caller)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	l.allowances[from][caller] = allowance.Sub(allowance, amount)
	return nil
}

func (l *Ledger) allowanceLocked(holder, spender common.Address) *big.Int {
	if spenders, ok := l.allowances[holder]; ok {
		if amount, ok := spenders[spender]; ok {
			return new(big.Int).Set(amount)
		}
	}
	return big.NewInt(0)
}

func (l *Ledger) credit(addr common.Address, amount *big.Int) {
	if bal, ok := l.balances[addr]; ok {
		l.balances[addr] = new(big.Int).Add(bal, amount)
		return
	}
	l.balances[addr] = new(big.Int).Set(amount)
}

func (l *Ledger) debit(addr common.Address, amount *big.Int) error {
	bal, ok := l.balances[addr]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[addr] = new(big.Int).Sub(bal, amount)
	return nil
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	return nil
}
