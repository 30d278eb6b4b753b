/*
Package handlers provides the HTTP surface of the listing render backend.

The Handler struct carries all service dependencies behind small interfaces,
eliminating globals and enabling mock-based testing.
*/
package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/types"
)

// ArtifactReader reads rendered artifacts from the cache.
type ArtifactReader interface {
	Get(id string) ([]byte, bool)
	Writable() bool
}

// DispatcherInterface renders a listing synchronously.
type DispatcherInterface interface {
	Dispatch(ctx context.Context, listing types.Listing) error
}

// RegistryInterface manages the worker endpoint list.
type RegistryInterface interface {
	All() []string
	Replace(endpoints []string) error
}

// FeedInterface looks a listing up in the upstream feed.
type FeedInterface interface {
	FindListing(ctx context.Context, id string) (types.Listing, error)
}

// HealthInterface aggregates worker health.
type HealthInterface interface {
	CheckAll(ctx context.Context) types.HealthReport
}

// Handler contains all service dependencies for HTTP handlers
type Handler struct {
	Cache      ArtifactReader
	Dispatcher DispatcherInterface
	Registry   RegistryInterface
	Feed       FeedInterface
	Health     HealthInterface
	Logger     *logrus.Logger
}

// NewHandler creates a new handler instance with injected dependencies
func NewHandler(cache ArtifactReader, dispatcher DispatcherInterface, registry RegistryInterface, feed FeedInterface, health HealthInterface, logger *logrus.Logger) *Handler {
	return &Handler{
		Cache:      cache,
		Dispatcher: dispatcher,
		Registry:   registry,
		Feed:       feed,
		Health:     health,
		Logger:     logger,
	}
}
