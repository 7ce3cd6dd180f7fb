package synth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// CollateralRegistry is the immutable approved-collateral set, built once at
// engine construction. A token is tradable if and only if it carries a
// registered price feed.
type CollateralRegistry struct {
	tokens []common.Address
	feeds  map[common.Address]PriceFeed
}

// NewCollateralRegistry pairs each token with its price feed. The sequences
// must match in length and tokens must be unique; registration order is
// preserved for aggregation.
func NewCollateralRegistry(tokens []common.Address, feeds []PriceFeed) (*CollateralRegistry, error) {
	if len(tokens) != len(feeds) {
		return nil, ErrLengthMismatch
	}
	registry := &CollateralRegistry{
		tokens: make([]common.Address, 0, len(tokens)),
		feeds:  make(map[common.Address]PriceFeed, len(tokens)),
	}
	for i, token := range tokens {
		if feeds[i] == nil {
			return nil, fmt.Errorf("synth: nil price feed for token %s", token.Hex())
		}
		if _, exists := registry.feeds[token]; exists {
			return nil, fmt.Errorf("synth: duplicate collateral token %s", token.Hex())
		}
		registry.tokens = append(registry.tokens, token)
		registry.feeds[token] = feeds[i]
	}
	return registry, nil
}

// IsApproved reports whether the token belongs to the approved set.
func (r *CollateralRegistry) IsApproved(token common.Address) bool {
	_, ok := r.feeds[token]
	return ok
}

// FeedFor resolves the token's price feed.
func (r *CollateralRegistry) FeedFor(token common.Address) (PriceFeed, error) {
	feed, ok := r.feeds[token]
	if !ok {
		return nil, ErrTokenNotAllowed
	}
	return feed, nil
}

// Tokens returns the approved set in registration order.
func (r *CollateralRegistry) Tokens() []common.Address {
	return append([]common.Address{}, r.tokens...)
}
