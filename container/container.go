/*
Package container provides dependency injection capabilities for the listing
render backend.

This package implements a simple dependency injection container that helps
manage service dependencies and reduces tight coupling between components.
*/
package container

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/cache"
	"github.com/tradecast-labs/listing-render-backend/dispatch"
	"github.com/tradecast-labs/listing-render-backend/feed"
	"github.com/tradecast-labs/listing-render-backend/handlers"
	"github.com/tradecast-labs/listing-render-backend/health"
	"github.com/tradecast-labs/listing-render-backend/poller"
	"github.com/tradecast-labs/listing-render-backend/registry"
)

// Container holds all service dependencies
type Container struct {
	mu         sync.RWMutex
	services   map[string]interface{}
	factories  map[string]func() (interface{}, error)
	singletons map[string]interface{}
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		services:   make(map[string]interface{}),
		factories:  make(map[string]func() (interface{}, error)),
		singletons: make(map[string]interface{}),
	}
}

// Register registers a service instance
func (c *Container) Register(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// RegisterFactory registers a factory function for lazy service creation
func (c *Container) RegisterFactory(name string, factory func() (interface{}, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

// RegisterSingleton registers a singleton service
func (c *Container) RegisterSingleton(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons[name] = service
}

// Get retrieves a service by name
func (c *Container) Get(name string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Check if service is already registered
	if service, exists := c.services[name]; exists {
		return service, nil
	}

	// Check if it's a singleton
	if singleton, exists := c.singletons[name]; exists {
		return singleton, nil
	}

	// Check if there's a factory for this service
	if factory, exists := c.factories[name]; exists {
		service, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create service %s: %v", name, err)
		}
		return service, nil
	}

	return nil, fmt.Errorf("service %s not found", name)
}

// GetLogger retrieves the logger service
func (c *Container) GetLogger() (*logrus.Logger, error) {
	service, err := c.Get("logger")
	if err != nil {
		return nil, err
	}
	logger, ok := service.(*logrus.Logger)
	if !ok {
		return nil, fmt.Errorf("logger service is not of expected type")
	}
	return logger, nil
}

// GetRegistry retrieves the worker registry service
func (c *Container) GetRegistry() (*registry.Registry, error) {
	service, err := c.Get("registry")
	if err != nil {
		return nil, err
	}
	reg, ok := service.(*registry.Registry)
	if !ok {
		return nil, fmt.Errorf("registry service is not of expected type")
	}
	return reg, nil
}

// GetCache retrieves the artifact cache service
func (c *Container) GetCache() (*cache.ArtifactCache, error) {
	service, err := c.Get("cache")
	if err != nil {
		return nil, err
	}
	artifactCache, ok := service.(*cache.ArtifactCache)
	if !ok {
		return nil, fmt.Errorf("cache service is not of expected type")
	}
	return artifactCache, nil
}

// GetDispatcher retrieves the dispatcher service
func (c *Container) GetDispatcher() (*dispatch.Dispatcher, error) {
	service, err := c.Get("dispatcher")
	if err != nil {
		return nil, err
	}
	dispatcher, ok := service.(*dispatch.Dispatcher)
	if !ok {
		return nil, fmt.Errorf("dispatcher service is not of expected type")
	}
	return dispatcher, nil
}

// GetPoller retrieves the feed poller service
func (c *Container) GetPoller() (*poller.Poller, error) {
	service, err := c.Get("poller")
	if err != nil {
		return nil, err
	}
	p, ok := service.(*poller.Poller)
	if !ok {
		return nil, fmt.Errorf("poller service is not of expected type")
	}
	return p, nil
}

// GetAggregator retrieves the worker health aggregator service
func (c *Container) GetAggregator() (*health.Aggregator, error) {
	service, err := c.Get("aggregator")
	if err != nil {
		return nil, err
	}
	aggregator, ok := service.(*health.Aggregator)
	if !ok {
		return nil, fmt.Errorf("aggregator service is not of expected type")
	}
	return aggregator, nil
}

// GetHandler retrieves the handler service
func (c *Container) GetHandler() (*handlers.Handler, error) {
	service, err := c.Get("handler")
	if err != nil {
		return nil, err
	}
	handler, ok := service.(*handlers.Handler)
	if !ok {
		return nil, fmt.Errorf("handler service is not of expected type")
	}
	return handler, nil
}

// InitializeServices initializes all core services with proper dependencies
func (c *Container) InitializeServices(
	reg *registry.Registry,
	artifactCache *cache.ArtifactCache,
	feedClient *feed.Client,
	dispatcher *dispatch.Dispatcher,
	feedPoller *poller.Poller,
	aggregator *health.Aggregator,
	logger *logrus.Logger,
) error {
	// Register core services
	c.RegisterSingleton("logger", logger)
	c.RegisterSingleton("registry", reg)
	c.RegisterSingleton("cache", artifactCache)
	c.RegisterSingleton("feed", feedClient)
	c.RegisterSingleton("dispatcher", dispatcher)
	c.RegisterSingleton("poller", feedPoller)
	c.RegisterSingleton("aggregator", aggregator)

	// Register handler factory that depends on other services
	c.RegisterFactory("handler", func() (interface{}, error) {
		return handlers.NewHandler(artifactCache, dispatcher, reg, feedClient, aggregator, logger), nil
	})

	return nil
}

// Close gracefully stops background workers owned by the container
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Stop the cache sweep loop if a cache was registered
	if service, exists := c.singletons["cache"]; exists {
		if artifactCache, ok := service.(*cache.ArtifactCache); ok && artifactCache != nil {
			artifactCache.Stop()
		}
	}

	return nil
}
