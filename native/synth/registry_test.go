package synth

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestRegistryLengthMismatch(t *testing.T) {
	feed := NewStaticFeed(feedPrice(2000), time.Now())
	_, err := NewCollateralRegistry(
		[]common.Address{makeAddress(0x10)},
		[]PriceFeed{feed, feed},
	)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestRegistryRejectsNilFeedAndDuplicates(t *testing.T) {
	feed := NewStaticFeed(feedPrice(2000), time.Now())
	if _, err := NewCollateralRegistry(
		[]common.Address{makeAddress(0x10)},
		[]PriceFeed{nil},
	); err == nil {
		t.Fatal("expected error for nil feed")
	}
	if _, err := NewCollateralRegistry(
		[]common.Address{makeAddress(0x10), makeAddress(0x10)},
		[]PriceFeed{feed, feed},
	); err == nil {
		t.Fatal("expected error for duplicate token")
	}
}

func TestRegistryLookups(t *testing.T) {
	weth := makeAddress(0x10)
	wbtc := makeAddress(0x11)
	wethFeed := NewStaticFeed(feedPrice(2000), time.Now())
	wbtcFeed := NewStaticFeed(feedPrice(60_000), time.Now())

	registry, err := NewCollateralRegistry(
		[]common.Address{weth, wbtc},
		[]PriceFeed{wethFeed, wbtcFeed},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	if !registry.IsApproved(weth) || !registry.IsApproved(wbtc) {
		t.Fatal("expected both tokens approved")
	}
	if registry.IsApproved(makeAddress(0x99)) {
		t.Fatal("unexpected approval for unknown token")
	}
	if _, err := registry.FeedFor(makeAddress(0x99)); !errors.Is(err, ErrTokenNotAllowed) {
		t.Fatalf("expected ErrTokenNotAllowed, got %v", err)
	}
	feed, err := registry.FeedFor(wbtc)
	if err != nil {
		t.Fatalf("feed for: %v", err)
	}
	if feed != PriceFeed(wbtcFeed) {
		t.Fatal("unexpected feed resolution")
	}

	tokens := registry.Tokens()
	if len(tokens) != 2 || tokens[0] != weth || tokens[1] != wbtc {
		t.Fatalf("unexpected token order: %v", tokens)
	}
}
