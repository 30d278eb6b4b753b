/*
Package poller drives periodic detection of newly appeared listings.

Each cycle fetches the upstream feed, diffs the current identifier set against
the previous cycle's set, and hands every newly observed listing to the
dispatcher. The seen set is replaced wholesale on every successful fetch; a
failed fetch skips the cycle and leaves the set untouched.
*/
package poller

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/monitoring"
	"github.com/tradecast-labs/listing-render-backend/types"
)

// FeedClient fetches the current contents of the upstream listing feed.
type FeedClient interface {
	FetchListings(ctx context.Context) ([]types.Listing, error)
}

// Dispatcher starts a background render for a listing. It returns false when
// the listing is already in flight.
type Dispatcher interface {
	DispatchAsync(listing types.Listing) bool
}

// Poller polls the upstream feed on a fixed interval.
type Poller struct {
	feed       FeedClient
	dispatcher Dispatcher
	interval   time.Duration
	seen       map[string]struct{}
	logger     *logrus.Logger
}

// New creates a poller. The seen set starts empty, so the first cycle
// dispatches everything the feed currently publishes.
func New(feed FeedClient, dispatcher Dispatcher, interval time.Duration, logger *logrus.Logger) *Poller {
	return &Poller{
		feed:       feed,
		dispatcher: dispatcher,
		interval:   interval,
		seen:       make(map[string]struct{}),
		logger:     logger,
	}
}

// Run polls once eagerly, then on every interval tick until the context is
// cancelled. Dispatches are fire-and-forget; cycle completion never waits on
// render completion.
func (p *Poller) Run(ctx context.Context) {
	p.PollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Poller stopped")
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce runs a single poll cycle. Only the Run loop and tests call this;
// it is not safe for concurrent use.
func (p *Poller) PollOnce(ctx context.Context) error {
	listings, err := p.feed.FetchListings(ctx)
	if err != nil {
		monitoring.RecordPollCycle("failed", 0)
		p.logger.WithError(err).Error("Feed fetch failed, skipping poll cycle")
		return err
	}

	current := make(map[string]struct{}, len(listings))
	dispatched := 0

	for _, listing := range listings {
		current[listing.ID] = struct{}{}
		if _, known := p.seen[listing.ID]; known {
			continue
		}
		if p.dispatcher.DispatchAsync(listing) {
			dispatched++
		}
	}

	p.seen = current

	monitoring.RecordPollCycle("success", dispatched)
	p.logger.WithFields(logrus.Fields{
		"feed_listings":  len(listings),
		"new_dispatched": dispatched,
	}).Info("Poll cycle completed")

	return nil
}
