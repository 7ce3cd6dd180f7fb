package synth

import (
	"math/big"
	"sync"
	"time"
)

// DefaultFeedMaxAge bounds how old an oracle round may be before it is
// rejected as stale. Matches the heartbeat of the slowest supported feeds.
const DefaultFeedMaxAge = 3 * time.Hour

// PriceRound is a single oracle observation: the USD price of one whole token
// at 8-decimal feed precision, and when the feed last updated. Rounds are
// sourced fresh on every valuation; nothing is cached.
type PriceRound struct {
	Price     *big.Int
	UpdatedAt time.Time
}

// PriceFeed supplies the latest USD price round for one token.
type PriceFeed interface {
	LatestRound() (PriceRound, error)
}

// StaticFeed is a settable feed backing tests and manual operation.
type StaticFeed struct {
	mu    sync.RWMutex
	round PriceRound
}

// NewStaticFeed seeds a feed with an initial price observed now.
func NewStaticFeed(price *big.Int, updatedAt time.Time) *StaticFeed {
	feed := &StaticFeed{}
	feed.SetRound(price, updatedAt)
	return feed
}

// SetRound replaces the feed's current observation.
func (f *StaticFeed) SetRound(price *big.Int, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.round = PriceRound{UpdatedAt: updatedAt}
	if price != nil {
		f.round.Price = new(big.Int).Set(price)
	}
}

func (f *StaticFeed) LatestRound() (PriceRound, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	round := PriceRound{UpdatedAt: f.round.UpdatedAt}
	if f.round.Price != nil {
		round.Price = new(big.Int).Set(f.round.Price)
	}
	return round, nil
}

// FreshFeed wraps a feed and rejects rounds older than maxAge with
// ErrStalePrice. A zero maxAge falls back to DefaultFeedMaxAge.
type FreshFeed struct {
	feed   PriceFeed
	maxAge time.Duration
	now    func() time.Time
}

func NewFreshFeed(feed PriceFeed, maxAge time.Duration) *FreshFeed {
	if maxAge <= 0 {
		maxAge = DefaultFeedMaxAge
	}
	return &FreshFeed{feed: feed, maxAge: maxAge, now: time.Now}
}

// SetClock overrides the wall clock, used by tests to age rounds.
func (f *FreshFeed) SetClock(now func() time.Time) {
	if now != nil {
		f.now = now
	}
}

func (f *FreshFeed) LatestRound() (PriceRound, error) {
	round, err := f.feed.LatestRound()
	if err != nil {
		return PriceRound{}, err
	}
	if round.UpdatedAt.IsZero() || f.now().Sub(round.UpdatedAt) > f.maxAge {
		return PriceRound{}, ErrStalePrice
	}
	return round, nil
}

// Aggregator consults feeds in priority order until one produces a fresh
// round, so a token can fall back to a secondary source when its primary feed
// stalls.
type Aggregator struct {
	mu     sync.RWMutex
	feeds  []PriceFeed
	maxAge time.Duration
	now    func() time.Time
}

func NewAggregator(feeds []PriceFeed, maxAge time.Duration) *Aggregator {
	if maxAge <= 0 {
		maxAge = DefaultFeedMaxAge
	}
	return &Aggregator{
		feeds:  append([]PriceFeed{}, feeds...),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// SetClock overrides the wall clock, used by tests to age rounds.
func (a *Aggregator) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	a.mu.Lock()
	a.now = now
	a.mu.Unlock()
}

// Register appends a lower-priority fallback feed.
func (a *Aggregator) Register(feed PriceFeed) {
	if feed == nil {
		return
	}
	a.mu.Lock()
	a.feeds = append(a.feeds, feed)
	a.mu.Unlock()
}

func (a *Aggregator) LatestRound() (PriceRound, error) {
	a.mu.RLock()
	feeds := append([]PriceFeed{}, a.feeds...)
	maxAge := a.maxAge
	now := a.now()
	a.mu.RUnlock()

	for _, feed := range feeds {
		round, err := feed.LatestRound()
		if err != nil {
			continue
		}
		if round.UpdatedAt.IsZero() || now.Sub(round.UpdatedAt) > maxAge {
			continue
		}
		return round, nil
	}
	return PriceRound{}, ErrNoFreshRound
}
