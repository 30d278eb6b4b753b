/*
Package feed fetches trade listings from the upstream feed.

The upstream publishes listings as an RSS/Atom feed; each feed item is one
listing. The item GUID is the externally assigned listing identifier (falling
back to the item link), and the remaining item fields form the render payload.
*/
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/types"
)

// ErrNotFound reports that the upstream feed does not currently publish the
// requested listing.
var ErrNotFound = errors.New("listing not found in upstream feed")

// Client fetches and parses the upstream listing feed.
type Client struct {
	url     string
	parser  *gofeed.Parser
	timeout time.Duration
	logger  *logrus.Logger
}

// NewClient creates a feed client for the given feed URL.
func NewClient(url string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		url:     url,
		parser:  gofeed.NewParser(),
		timeout: timeout,
		logger:  logger,
	}
}

// FetchListings fetches the feed and returns every listing it currently
// publishes. Items without a usable identifier are skipped.
func (c *Client) FetchListings(ctx context.Context) ([]types.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parsed, err := c.parser.ParseURLWithContext(c.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing feed: %v", err)
	}

	listings := make([]types.Listing, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		id := itemID(item)
		if id == "" {
			c.logger.WithField("title", item.Title).Warn("Skipping feed item without identifier")
			continue
		}
		listings = append(listings, types.Listing{
			ID:          id,
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			Published:   item.Published,
		})
	}

	return listings, nil
}

// FindListing fetches the feed and returns the listing with the given id, or
// an error when the feed does not currently publish it.
func (c *Client) FindListing(ctx context.Context, id string) (types.Listing, error) {
	listings, err := c.FetchListings(ctx)
	if err != nil {
		return types.Listing{}, err
	}

	for _, listing := range listings {
		if listing.ID == id {
			return listing, nil
		}
	}

	return types.Listing{}, fmt.Errorf("listing %s: %w", id, ErrNotFound)
}

func itemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}
