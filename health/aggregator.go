/*
Package health aggregates the health of the rendering worker pool.

Every registered worker is probed concurrently with an independent timeout; a
failed or timed-out probe counts the worker as unhealthy and contributes zero
to the aggregate memory figure without failing the overall report.
*/
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/monitoring"
	"github.com/tradecast-labs/listing-render-backend/types"
)

// EndpointLister is the registry surface the aggregator needs.
type EndpointLister interface {
	All() []string
}

// Aggregator probes worker health endpoints.
type Aggregator struct {
	registry EndpointLister
	client   *http.Client
	timeout  time.Duration
	logger   *logrus.Logger

	mu   sync.Mutex
	last types.HealthReport
}

// workerHealthResponse is the body a worker returns from its health endpoint.
type workerHealthResponse struct {
	Status      string `json:"status"`
	MemoryBytes uint64 `json:"memory_bytes"`
}

// NewAggregator creates a health aggregator. timeout bounds each individual
// probe.
func NewAggregator(registry EndpointLister, timeout time.Duration, logger *logrus.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		client:   &http.Client{},
		timeout:  timeout,
		logger:   logger,
	}
}

// CheckAll probes every registered worker concurrently and returns the
// aggregate report.
func (a *Aggregator) CheckAll(ctx context.Context) types.HealthReport {
	endpoints := a.registry.All()

	statuses := make([]types.WorkerStatus, len(endpoints))
	var wg sync.WaitGroup

	for i, endpoint := range endpoints {
		wg.Add(1)
		go func(i int, endpoint string) {
			defer wg.Done()
			statuses[i] = a.probe(ctx, endpoint)
		}(i, endpoint)
	}
	wg.Wait()

	report := types.HealthReport{
		Total:     len(endpoints),
		Workers:   statuses,
		CheckedAt: time.Now(),
	}
	for _, status := range statuses {
		if status.Healthy {
			report.Healthy++
			report.MemoryBytes += status.MemoryBytes
		}
	}

	monitoring.UpdateWorkerStats(report.Total, report.Healthy, report.MemoryBytes)

	a.mu.Lock()
	a.last = report
	a.mu.Unlock()

	a.logger.WithFields(logrus.Fields{
		"total":        report.Total,
		"healthy":      report.Healthy,
		"memory_bytes": report.MemoryBytes,
	}).Debug("Worker health check completed")

	return report
}

// LastReport returns the most recent report. Used by alert rules so they do
// not trigger fresh probes.
func (a *Aggregator) LastReport() types.HealthReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.last
}

// probe checks a single worker's health endpoint.
func (a *Aggregator) probe(ctx context.Context, endpoint string) types.WorkerStatus {
	status := types.WorkerStatus{Endpoint: endpoint}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/healthz", nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	resp, err := a.client.Do(req)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status.Error = fmt.Sprintf("health endpoint returned %d", resp.StatusCode)
		return status
	}

	status.Healthy = true

	// The memory figure is optional; a body that does not parse leaves it at
	// zero without marking the worker unhealthy.
	var body workerHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		status.MemoryBytes = body.MemoryBytes
	}

	return status
}
