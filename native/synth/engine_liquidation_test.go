package synth

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// openPosition deposits collateral and mints debt for the user at the current
// oracle price.
func openPosition(t *testing.T, env *testEnv, user common.Address, collateral, debt *big.Int) {
	t.Helper()
	env.fund(t, user, collateral)
	if err := env.engine.DepositCollateralAndMint(user, env.wethAddr, collateral, debt); err != nil {
		t.Fatalf("open position: %v", err)
	}
}

// fundLiquidator hands the liquidator debt tokens and approves the engine to
// pull them during the burn leg.
func fundLiquidator(t *testing.T, env *testEnv, liquidator common.Address, amount *big.Int) {
	t.Helper()
	if err := env.debt.Mint(env.engineAddr, liquidator, amount); err != nil {
		t.Fatalf("fund liquidator: %v", err)
	}
	if err := env.debt.Approve(liquidator, env.engineAddr, amount); err != nil {
		t.Fatalf("approve liquidator: %v", err)
	}
}

func TestLiquidateHealthyPositionFails(t *testing.T) {
	env := newTestEnv(t)
	user := makeAddress(0x20)
	liquidator := makeAddress(0x30)
	openPosition(t, env, user, e18(1), e18(900))
	fundLiquidator(t, env, liquidator, e18(900))

	err := env.engine.Liquidate(liquidator, user, env.wethAddr, e18(100))
	if !errors.Is(err, ErrHealthFactorOk) {
		t.Fatalf("expected ErrHealthFactorOk, got %v", err)
	}
	info, err := env.engine.AccountInformation(user)
	if err != nil {
		t.Fatalf("account information: %v", err)
	}
	if info.DebtMinted.Cmp(e18(900)) != 0 {
		t.Fatalf("rejected liquidation must not change debt, got %s", info.DebtMinted)
	}
	if got := env.weth.BalanceOf(liquidator); got.Sign() != 0 {
		t.Fatalf("rejected liquidation must not move collateral, got %s", got)
	}
}

func TestLiquidateSeizesDiscountedCollateral(t *testing.T) {
	env := newTestEnv(t)
	user := makeAddress(0x20)
	liquidator := makeAddress(0x30)

	// 1 WETH at 2000 USD backing 900 sUSD, then the price drops to 1500:
	// health factor 750/900 = 0.8333..., liquidatable.
	openPosition(t, env, user, e18(1), e18(900))
	env.feed.SetRound(feedPrice(1500), time.Now())

	before, err := env.engine.HealthFactor(user)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if before.Cmp(mustBigInt("833333333333333333")) != 0 {
		t.Fatalf("unexpected starting health factor: %s", before)
	}

	fundLiquidator(t, env, liquidator, e18(400))
	if err := env.engine.Liquidate(liquidator, user, env.wethAddr, e18(400)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}

	// 400 USD of WETH at 1500 is 0.2666... WETH; plus the 10% bonus the
	// liquidator receives 0.29333... WETH, truncated at 18 decimals.
	wantSeized := mustBigInt("293333333333333332")
	if got := env.weth.BalanceOf(liquidator); got.Cmp(wantSeized) != 0 {
		t.Fatalf("unexpected seized collateral: %s", got)
	}

	balance, err := env.engine.CollateralBalance(user, env.wethAddr)
	if err != nil {
		t.Fatalf("collateral balance: %v", err)
	}
	wantRemaining := new(big.Int).Sub(e18(1), wantSeized)
	if balance.Cmp(wantRemaining) != 0 {
		t.Fatalf("unexpected remaining collateral: %s", balance)
	}

	info, err := env.engine.AccountInformation(user)
	if err != nil {
		t.Fatalf("account information: %v", err)
	}
	if info.DebtMinted.Cmp(e18(500)) != 0 {
		t.Fatalf("unexpected remaining debt: %s", info.DebtMinted)
	}

	after, err := env.engine.HealthFactor(user)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if after.Cmp(before) <= 0 {
		t.Fatalf("health factor must strictly improve: before=%s after=%s", before, after)
	}
	if after.Cmp(MinHealthFactor) < 0 {
		t.Fatalf("expected restored solvency, got %s", after)
	}

	// The covered debt is gone from supply: 900 minted to the user plus 400
	// to the liquidator, minus the 400 burned.
	if got := env.debt.TotalSupply(); got.Cmp(e18(900)) != 0 {
		t.Fatalf("unexpected debt supply: %s", got)
	}
}

func TestLiquidateMustImproveHealthFactor(t *testing.T) {
	env := newTestEnv(t)
	user := makeAddress(0x20)
	liquidator := makeAddress(0x30)

	// With collateral worth less than 110% of the debt, seizing debt+bonus
	// removes proportionally more collateral than debt and the ratio drops.
	openPosition(t, env, user, e18(1), e18(1000))
	env.feed.SetRound(feedPrice(1050), time.Now())
	fundLiquidator(t, env, liquidator, e18(500))

	err := env.engine.Liquidate(liquidator, user, env.wethAddr, e18(500))
	if !errors.Is(err, ErrHealthFactorNotImproved) {
		t.Fatalf("expected ErrHealthFactorNotImproved, got %v", err)
	}
	balance, err := env.engine.CollateralBalance(user, env.wethAddr)
	if err != nil {
		t.Fatalf("collateral balance: %v", err)
	}
	if balance.Cmp(e18(1)) != 0 {
		t.Fatalf("rejected liquidation must not change collateral, got %s", balance)
	}
	if got := env.weth.BalanceOf(liquidator); got.Sign() != 0 {
		t.Fatalf("rejected liquidation must not move collateral, got %s", got)
	}
}

func TestLiquidateCannotSeizeMoreThanDeposited(t *testing.T) {
	env := newTestEnv(t)
	user := makeAddress(0x20)
	liquidator := makeAddress(0x30)

	openPosition(t, env, user, e18(1), e18(900))
	env.feed.SetRound(feedPrice(500), time.Now())
	fundLiquidator(t, env, liquidator, e18(900))

	// Covering the full 900 sUSD at 500 USD/WETH would require seizing
	// 1.98 WETH against a 1 WETH position.
	err := env.engine.Liquidate(liquidator, user, env.wethAddr, e18(900))
	if !errors.Is(err, ErrInsufficientCollateral) {
		t.Fatalf("expected ErrInsufficientCollateral, got %v", err)
	}
}

func TestLiquidateUnderfundedLiquidatorLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	user := makeAddress(0x20)
	liquidator := makeAddress(0x30)

	openPosition(t, env, user, e18(1), e18(900))
	env.feed.SetRound(feedPrice(1500), time.Now())

	// The liquidator holds enough debt tokens but approved less than the
	// amount to cover, so the pull into engine custody fails before any
	// collateral moves.
	if err := env.debt.Mint(env.engineAddr, liquidator, e18(400)); err != nil {
		t.Fatalf("fund liquidator: %v", err)
	}
	if err := env.debt.Approve(liquidator, env.engineAddr, e18(300)); err != nil {
		t.Fatalf("approve liquidator: %v", err)
	}

	err := env.engine.Liquidate(liquidator, user, env.wethAddr, e18(400))
	if !errors.Is(err, ErrTokenTransferFailed) {
		t.Fatalf("expected ErrTokenTransferFailed, got %v", err)
	}

	balance, err := env.engine.CollateralBalance(user, env.wethAddr)
	if err != nil {
		t.Fatalf("collateral balance: %v", err)
	}
	if balance.Cmp(e18(1)) != 0 {
		t.Fatalf("failed liquidation must not seize collateral, got %s", balance)
	}
	info, err := env.engine.AccountInformation(user)
	if err != nil {
		t.Fatalf("account information: %v", err)
	}
	if info.DebtMinted.Cmp(e18(900)) != 0 {
		t.Fatalf("failed liquidation must not change debt, got %s", info.DebtMinted)
	}
	if got := env.weth.BalanceOf(liquidator); got.Sign() != 0 {
		t.Fatalf("failed liquidation must not move collateral, got %s", got)
	}
	if got := env.debt.BalanceOf(liquidator); got.Cmp(e18(400)) != 0 {
		t.Fatalf("failed liquidation must not consume debt tokens, got %s", got)
	}
	if got := env.debt.TotalSupply(); got.Cmp(e18(1300)) != 0 {
		t.Fatalf("failed liquidation must not change supply, got %s", got)
	}
}

func TestSelfLiquidationAllowedWhenItRestoresHealth(t *testing.T) {
	env := newTestEnv(t)
	user := makeAddress(0x20)

	// 1 WETH at 1500 backing 900 sUSD is underwater; covering 400 with the
	// user's own debt tokens lifts the ratio back above the minimum.
	openPosition(t, env, user, e18(1), e18(900))
	env.feed.SetRound(feedPrice(1500), time.Now())
	if err := env.debt.Approve(user, env.engineAddr, e18(400)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := env.engine.Liquidate(user, user, env.wethAddr, e18(400)); err != nil {
		t.Fatalf("self liquidate: %v", err)
	}

	info, err := env.engine.AccountInformation(user)
	if err != nil {
		t.Fatalf("account information: %v", err)
	}
	if info.DebtMinted.Cmp(e18(500)) != 0 {
		t.Fatalf("unexpected remaining debt: %s", info.DebtMinted)
	}
	wantSeized := mustBigInt("293333333333333332")
	if got := env.weth.BalanceOf(user); got.Cmp(wantSeized) != 0 {
		t.Fatalf("unexpected seized collateral: %s", got)
	}
	if got := env.debt.BalanceOf(user); got.Cmp(e18(500)) != 0 {
		t.Fatalf("unexpected debt token balance: %s", got)
	}
	ratio, err := env.engine.HealthFactor(user)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if ratio.Cmp(MinHealthFactor) < 0 {
		t.Fatalf("expected restored solvency, got %s", ratio)
	}
}

func TestSelfLiquidationRejectedWhenStillUnhealthy(t *testing.T) {
	env := newTestEnv(t)
	user := makeAddress(0x20)

	// At 1200 the position sits at 0.6667; covering only 100 improves the
	// ratio to 0.68125 but leaves it below the minimum, so the user cannot
	// end as an unhealthy liquidator.
	openPosition(t, env, user, e18(1), e18(900))
	env.feed.SetRound(feedPrice(1200), time.Now())
	if err := env.debt.Approve(user, env.engineAddr, e18(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	err := env.engine.Liquidate(user, user, env.wethAddr, e18(100))
	if !errors.Is(err, ErrBreaksHealthFactor) {
		t.Fatalf("expected ErrBreaksHealthFactor, got %v", err)
	}
	balance, err := env.engine.CollateralBalance(user, env.wethAddr)
	if err != nil {
		t.Fatalf("collateral balance: %v", err)
	}
	if balance.Cmp(e18(1)) != 0 {
		t.Fatalf("rejected liquidation must not change collateral, got %s", balance)
	}
	info, err := env.engine.AccountInformation(user)
	if err != nil {
		t.Fatalf("account information: %v", err)
	}
	if info.DebtMinted.Cmp(e18(900)) != 0 {
		t.Fatalf("rejected liquidation must not change debt, got %s", info.DebtMinted)
	}
}

func TestLiquidatorMustRemainHealthy(t *testing.T) {
	env := newTestEnv(t)
	user := makeAddress(0x20)
	liquidator := makeAddress(0x30)

	openPosition(t, env, user, e18(1), e18(900))
	openPosition(t, env, liquidator, e18(1), e18(900))
	// The price drop puts both positions underwater.
	env.feed.SetRound(feedPrice(1500), time.Now())
	fundLiquidator(t, env, liquidator, e18(400))

	err := env.engine.Liquidate(liquidator, user, env.wethAddr, e18(400))
	if !errors.Is(err, ErrBreaksHealthFactor) {
		t.Fatalf("expected ErrBreaksHealthFactor, got %v", err)
	}
}
