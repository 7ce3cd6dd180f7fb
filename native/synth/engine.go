package synth

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"synthengine/core/events"
	nativecommon "synthengine/native/common"
	"synthengine/observability"
)

const moduleName = "synth"

// DebtToken is the capability the engine holds over the synthetic debt token.
// The engine must be the ledger's sole authorized minter and burner.
type DebtToken interface {
	// Mint issues freshly minted debt tokens to the recipient.
	Mint(to common.Address, amount *big.Int) error
	// Pull moves debt tokens from the holder into engine custody.
	Pull(from common.Address, amount *big.Int) error
	// Burn permanently destroys debt tokens held in engine custody.
	Burn(amount *big.Int) error
	// Transfer moves debt tokens out of engine custody, used to unwind a
	// pull when a later step of the same operation fails.
	Transfer(to common.Address, amount *big.Int) error
}

// CollateralBank moves approved collateral tokens between users and engine
// custody.
type CollateralBank interface {
	Pull(token, from common.Address, amount *big.Int) error
	Release(token, to common.Address, amount *big.Int) error
}

// Engine owns all position state transitions: deposit, mint, redeem, burn,
// their compositions, and liquidation. Operations are serialized under one
// mutex and either fully commit or fully roll back; internal bookkeeping and
// event emission always precede the outbound token call they describe.
type Engine struct {
	mu       sync.Mutex
	state    PositionState
	registry *CollateralRegistry
	valuer   *Valuer
	debt     DebtToken
	bank     CollateralBank
	emitter  events.Emitter
	metrics  *observability.EngineMetrics
	logger   *slog.Logger
	pauses   nativecommon.PauseView
}

// NewEngine wires the approved collateral set and the external token
// capabilities. State, emitter, metrics, and pause control attach afterwards.
func NewEngine(registry *CollateralRegistry, debt DebtToken, bank CollateralBank) (*Engine, error) {
	if registry == nil {
		return nil, errors.New("synth: collateral registry required")
	}
	if debt == nil {
		return nil, errors.New("synth: debt token required")
	}
	if bank == nil {
		return nil, errors.New("synth: collateral bank required")
	}
	return &Engine{
		registry: registry,
		valuer:   NewValuer(registry),
		debt:     debt,
		bank:     bank,
	}, nil
}

// SetState wires the engine to its position store.
func (e *Engine) SetState(state PositionState) { e.state = state }

// SetEmitter wires the event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) { e.emitter = emitter }

// SetMetrics wires operation metrics.
func (e *Engine) SetMetrics(metrics *observability.EngineMetrics) { e.metrics = metrics }

// SetLogger attaches a structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) { e.logger = logger }

// SetPauses wires the operator pause switchboard.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// Registry exposes the approved collateral set.
func (e *Engine) Registry() *CollateralRegistry { return e.registry }

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

func (e *Engine) emit(evt events.Typed) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

func (e *Engine) loadPosition(addr common.Address) (*Position, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	pos, err := e.state.GetPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		pos = NewPosition(addr)
	}
	pos.EnsureDefaults()
	return pos, nil
}

func (e *Engine) persist(pos *Position) error {
	if e.state == nil {
		return ErrNilState
	}
	return e.state.PutPosition(pos)
}

func (e *Engine) healthFactorOf(pos *Position) (*big.Int, error) {
	if pos == nil || pos.Debt == nil || pos.Debt.Sign() == 0 {
		return new(big.Int).Set(MaxHealthFactor), nil
	}
	collateralUsd, err := e.valuer.TotalCollateralValue(pos)
	if err != nil {
		return nil, err
	}
	return healthFactorFrom(collateralUsd, pos.Debt), nil
}

// assertHealthy fails when the position has debt and its ratio sits below the
// minimum. Debt-free positions carry no solvency constraint.
func (e *Engine) assertHealthy(pos *Position) error {
	if pos == nil || pos.Debt == nil || pos.Debt.Sign() == 0 {
		return nil
	}
	ratio, err := e.healthFactorOf(pos)
	if err != nil {
		return err
	}
	if ratio.Cmp(MinHealthFactor) < 0 {
		return fmt.Errorf("%w: %s", ErrBreaksHealthFactor, ratio)
	}
	return nil
}

func validateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	return nil
}

// DepositCollateral pulls amount of the approved token from the user into
// engine custody and credits their position. Collateral-only changes cannot
// hurt solvency, so no health check runs.
func (e *Engine) DepositCollateral(user, token common.Address, amount *big.Int) error {
	started := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.depositLocked(user, token, amount)
	e.metrics.ObserveOperation("deposit", err, started)
	return err
}

func (e *Engine) depositLocked(user, token common.Address, amount *big.Int) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if !e.registry.IsApproved(token) {
		return ErrTokenNotAllowed
	}

	pos, err := e.loadPosition(user)
	if err != nil {
		return err
	}
	prior := pos.Clone()
	pos.addCollateral(token, amount)
	if err := e.persist(pos); err != nil {
		return err
	}
	e.emit(events.CollateralDeposited{User: user, Token: token, Amount: new(big.Int).Set(amount)})

	if err := e.bank.Pull(token, user, amount); err != nil {
		if perr := e.persist(prior); perr != nil {
			return errors.Join(fmt.Errorf("%w: %v", ErrTokenTransferFailed, err), perr)
		}
		return fmt.Errorf("%w: %v", ErrTokenTransferFailed, err)
	}
	return nil
}

// unwindDepositLocked reverses a completed deposit when a later step of the
// same composite operation fails.
func (e *Engine) unwindDepositLocked(user, token common.Address, amount *big.Int) error {
	pos, err := e.loadPosition(user)
	if err != nil {
		return err
	}
	if err := pos.subCollateral(token, amount); err != nil {
		return err
	}
	if err := e.persist(pos); err != nil {
		return err
	}
	return e.bank.Release(token, user, amount)
}

// Mint issues synthetic debt against the user's collateral. The debt increment
// is health-checked before the external mint executes; any failure reverts the
// increment.
func (e *Engine) Mint(user common.Address, amount *big.Int) error {
	started := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.mintLocked(user, amount)
	e.metrics.ObserveOperation("mint", err, started)
	return err
}

func (e *Engine) mintLocked(user common.Address, amount *big.Int) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	pos, err := e.loadPosition(user)
	if err != nil {
		return err
	}
	prior := pos.Clone()
	pos.Debt = new(big.Int).Add(pos.Debt, amount)
	if err := e.assertHealthy(pos); err != nil {
		return err
	}
	if err := e.persist(pos); err != nil {
		return err
	}
	e.emit(events.SynthMinted{User: user, Amount: new(big.Int).Set(amount)})

	if err := e.debt.Mint(user, amount); err != nil {
		if perr := e.persist(prior); perr != nil {
			return errors.Join(fmt.Errorf("%w: %v", ErrMintFailed, err), perr)
		}
		return fmt.Errorf("%w: %v", ErrMintFailed, err)
	}
	return nil
}

// DepositCollateralAndMint composes deposit and mint atomically: a mint
// failure returns the pulled collateral and restores the position.
func (e *Engine) DepositCollateralAndMint(user, token common.Address, collateralAmount, debtAmount *big.Int) error {
	started := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	err := func() error {
		if err := e.depositLocked(user, token, collateralAmount); err != nil {
			return err
		}
		if err := e.mintLocked(user, debtAmount); err != nil {
			if uerr := e.unwindDepositLocked(user, token, collateralAmount); uerr != nil {
				e.log().Error("synth: unwind deposit after mint failure", "error", uerr, "user", user.Hex())
				return errors.Join(err, uerr)
			}
			return err
		}
		return nil
	}()
	e.metrics.ObserveOperation("deposit_and_mint", err, started)
	return err
}

// RedeemCollateral returns amount of the token to the user, rejecting the
// redemption when it would leave the position under-collateralized.
func (e *Engine) RedeemCollateral(user, token common.Address, amount *big.Int) error {
	started := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	err := func() error {
		if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
			return err
		}
		return e.redeemLocked(user, user, token, amount, true)
	}()
	e.metrics.ObserveOperation("redeem", err, started)
	return err
}

// redeemLocked moves collateral out of from's position to the recipient. When
// enforceHealth is set the staged balance is health-checked before anything
// commits, which rejects exactly the redemptions a retroactive check would.
// Liquidations pass false: the target is under-collateralized by definition
// and the caller enforces its own postconditions.
func (e *Engine) redeemLocked(from, to, token common.Address, amount *big.Int, enforceHealth bool) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if !e.registry.IsApproved(token) {
		return ErrTokenNotAllowed
	}

	pos, err := e.loadPosition(from)
	if err != nil {
		return err
	}
	prior := pos.Clone()
	if err := pos.subCollateral(token, amount); err != nil {
		return err
	}
	if enforceHealth {
		if err := e.assertHealthy(pos); err != nil {
			return err
		}
	}
	if err := e.persist(pos); err != nil {
		return err
	}
	e.emit(events.CollateralRedeemed{From: from, To: to, Token: token, Amount: new(big.Int).Set(amount)})

	if err := e.bank.Release(token, to, amount); err != nil {
		if perr := e.persist(prior); perr != nil {
			return errors.Join(fmt.Errorf("%w: %v", ErrTokenTransferFailed, err), perr)
		}
		return fmt.Errorf("%w: %v", ErrTokenTransferFailed, err)
	}
	return nil
}

// Burn retires amount of the user's minted debt using tokens pulled from the
// user's own balance.
func (e *Engine) Burn(user common.Address, amount *big.Int) error {
	started := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	err := func() error {
		if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
			return err
		}
		return e.burnLocked(user, user, amount)
	}()
	e.metrics.ObserveOperation("burn", err, started)
	return err
}

// burnLocked retires debt on behalf of a position using tokens supplied by
// payer. Reducing debt can only improve the ratio, so no health check runs.
func (e *Engine) burnLocked(onBehalfOf, payer common.Address, amount *big.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}

	pos, err := e.loadPosition(onBehalfOf)
	if err != nil {
		return err
	}
	if pos.Debt.Cmp(amount) < 0 {
		return ErrInsufficientDebt
	}
	prior := pos.Clone()
	pos.Debt = new(big.Int).Sub(pos.Debt, amount)
	if err := e.persist(pos); err != nil {
		return err
	}
	e.emit(events.SynthBurned{User: onBehalfOf, Payer: payer, Amount: new(big.Int).Set(amount)})

	if err := e.debt.Pull(payer, amount); err != nil {
		if perr := e.persist(prior); perr != nil {
			return errors.Join(fmt.Errorf("%w: %v", ErrTokenTransferFailed, err), perr)
		}
		return fmt.Errorf("%w: %v", ErrTokenTransferFailed, err)
	}
	if err := e.debt.Burn(amount); err != nil {
		rollback := e.persist(prior)
		refund := e.debt.Transfer(payer, amount)
		if rollback != nil || refund != nil {
			e.log().Error("synth: unwind burn", "rollback", rollback, "refund", refund, "user", onBehalfOf.Hex())
		}
		return errors.Join(fmt.Errorf("%w: %v", ErrTokenTransferFailed, err), rollback, refund)
	}
	return nil
}

// unwindBurnLocked re-mints debt that was burned earlier in a composite
// operation whose later step failed. The tokens go back to whoever funded the
// burn.
func (e *Engine) unwindBurnLocked(user, payer common.Address, amount *big.Int) error {
	pos, err := e.loadPosition(user)
	if err != nil {
		return err
	}
	pos.Debt = new(big.Int).Add(pos.Debt, amount)
	if err := e.persist(pos); err != nil {
		return err
	}
	return e.debt.Mint(payer, amount)
}

// RedeemCollateralForDebt burns debt and then redeems collateral as one atomic
// operation.
func (e *Engine) RedeemCollateralForDebt(user, token common.Address, collateralAmount, debtAmount *big.Int) error {
	started := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	err := func() error {
		if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
			return err
		}
		if err := e.burnLocked(user, user, debtAmount); err != nil {
			return err
		}
		if err := e.redeemLocked(user, user, token, collateralAmount, true); err != nil {
			if uerr := e.unwindBurnLocked(user, user, debtAmount); uerr != nil {
				e.log().Error("synth: unwind burn after redeem failure", "error", uerr, "user", user.Hex())
				return errors.Join(err, uerr)
			}
			return err
		}
		return nil
	}()
	e.metrics.ObserveOperation("redeem_for_debt", err, started)
	return err
}

// Liquidate lets a third party cover part of an under-collateralized user's
// debt in exchange for a discounted slice of their collateral. The target's
// health factor must strictly improve and the liquidator must end healthy.
func (e *Engine) Liquidate(liquidator, user, token common.Address, debtToCover *big.Int) error {
	started := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.liquidateLocked(liquidator, user, token, debtToCover)
	e.metrics.ObserveOperation("liquidate", err, started)
	if err == nil {
		e.metrics.ObserveLiquidation()
	}
	return err
}

func (e *Engine) liquidateLocked(liquidator, user, token common.Address, debtToCover *big.Int) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := validateAmount(debtToCover); err != nil {
		return err
	}
	if !e.registry.IsApproved(token) {
		return ErrTokenNotAllowed
	}

	target, err := e.loadPosition(user)
	if err != nil {
		return err
	}
	startingHealth, err := e.healthFactorOf(target)
	if err != nil {
		return err
	}
	if startingHealth.Cmp(MinHealthFactor) >= 0 {
		return ErrHealthFactorOk
	}

	baseCollateral, err := e.valuer.TokenAmountFromUsd(token, debtToCover)
	if err != nil {
		return err
	}
	seized := new(big.Int).Add(baseCollateral, bonusCollateral(baseCollateral))

	// Validate every postcondition on a staged copy before any effect: a
	// liquidation that cannot strictly improve the target never starts.
	staged := target.Clone()
	if err := staged.subCollateral(token, seized); err != nil {
		return err
	}
	if staged.Debt.Cmp(debtToCover) < 0 {
		return ErrInsufficientDebt
	}
	staged.Debt = new(big.Int).Sub(staged.Debt, debtToCover)
	endingHealth, err := e.healthFactorOf(staged)
	if err != nil {
		return err
	}
	if endingHealth.Cmp(startingHealth) <= 0 {
		return ErrHealthFactorNotImproved
	}

	// The liquidator must end healthy. A self-liquidation mutates the target
	// position, so the ending state to check is the staged one; any other
	// liquidator's position is untouched by the operation.
	if liquidator == user {
		if err := e.assertHealthy(staged); err != nil {
			return err
		}
	} else {
		liquidatorPos, err := e.loadPosition(liquidator)
		if err != nil {
			return err
		}
		if err := e.assertHealthy(liquidatorPos); err != nil {
			return err
		}
	}

	// Burn before seizing: once the liquidator's debt tokens sit in engine
	// custody every remaining unwind is engine-controlled, so a failure in
	// either leg restores the exact prior state.
	if err := e.burnLocked(user, liquidator, debtToCover); err != nil {
		return err
	}
	if err := e.redeemLocked(user, liquidator, token, seized, false); err != nil {
		if uerr := e.unwindBurnLocked(user, liquidator, debtToCover); uerr != nil {
			e.log().Error("synth: unwind burn after seizure failure", "error", uerr, "user", user.Hex())
			return errors.Join(err, uerr)
		}
		return err
	}

	e.emit(events.SynthLiquidated{
		Liquidator:       liquidator,
		User:             user,
		Token:            token,
		DebtCovered:      new(big.Int).Set(debtToCover),
		CollateralSeized: seized,
	})
	e.log().Info("synth: liquidation completed",
		"liquidator", liquidator.Hex(),
		"user", user.Hex(),
		"token", token.Hex(),
		"debtCovered", debtToCover.String(),
		"collateralSeized", seized.String(),
		"healthBefore", startingHealth.String(),
		"healthAfter", endingHealth.String(),
	)
	return nil
}

// --- Read surface ---

// HealthFactor reports the user's current solvency ratio at 18-decimal scale.
// Debt-free positions report MaxHealthFactor.
func (e *Engine) HealthFactor(user common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, err := e.loadPosition(user)
	if err != nil {
		return nil, err
	}
	return e.healthFactorOf(pos)
}

// AccountInformation reports the user's minted debt and total collateral
// value in USD.
func (e *Engine) AccountInformation(user common.Address) (AccountInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, err := e.loadPosition(user)
	if err != nil {
		return AccountInfo{}, err
	}
	collateralUsd, err := e.valuer.TotalCollateralValue(pos)
	if err != nil {
		return AccountInfo{}, err
	}
	return AccountInfo{
		DebtMinted:         new(big.Int).Set(pos.Debt),
		CollateralValueUSD: collateralUsd,
	}, nil
}

// CollateralBalance reports the user's deposited amount of one token.
func (e *Engine) CollateralBalance(user, token common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, err := e.loadPosition(user)
	if err != nil {
		return nil, err
	}
	return pos.CollateralOf(token), nil
}

// UsdValue prices a token amount using the live oracle round.
func (e *Engine) UsdValue(token common.Address, amount *big.Int) (*big.Int, error) {
	return e.valuer.UsdValue(token, amount)
}

// TokenAmountFromUsd converts a USD amount into token base units.
func (e *Engine) TokenAmountFromUsd(token common.Address, usd *big.Int) (*big.Int, error) {
	return e.valuer.TokenAmountFromUsd(token, usd)
}
