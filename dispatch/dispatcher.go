/*
Package dispatch sends listings to rendering workers.

The dispatcher selects workers round-robin from the registry and retries on
failure or overload, bounded by the number of registered workers. A tried set
guards against duplicate registry entries consuming attempts. A listing is
rendered by at most one dispatch at a time; the in-flight reservation is
released exactly once on every exit path.
*/
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/monitoring"
	"github.com/tradecast-labs/listing-render-backend/types"
)

// ErrExhausted reports that every registered worker was tried and none
// rendered the listing.
var ErrExhausted = errors.New("no worker could render the listing")

// Outcome of a single worker render call.
const (
	outcomeSuccess    = "success"
	outcomeOverloaded = "overloaded"
	outcomeFailed     = "failed"
)

// Selector is the registry surface the dispatcher needs.
type Selector interface {
	Next() string
	Len() int
}

// ArtifactWriter persists a rendered artifact.
type ArtifactWriter interface {
	Put(id string, data []byte) error
}

// Dispatcher coordinates rendering a listing against the worker pool.
type Dispatcher struct {
	registry Selector
	cache    ArtifactWriter
	tracker  *Tracker
	client   *http.Client
	timeout  time.Duration
	logger   *logrus.Logger
}

// New creates a dispatcher. timeout bounds each individual render call.
func New(registry Selector, cache ArtifactWriter, tracker *Tracker, timeout time.Duration, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		cache:    cache,
		tracker:  tracker,
		client:   &http.Client{},
		timeout:  timeout,
		logger:   logger,
	}
}

// Tracker exposes the in-flight tracker for callers that need to consult it.
func (d *Dispatcher) Tracker() *Tracker {
	return d.tracker
}

// Dispatch renders the listing synchronously. When the listing is already in
// flight the call is a no-op and returns nil. On exhaustion the listing is
// abandoned and ErrExhausted is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, listing types.Listing) error {
	if !d.tracker.TryAdd(listing.ID) {
		d.logger.WithField("listing_id", listing.ID).Debug("Listing already in flight, skipping dispatch")
		return nil
	}
	defer d.tracker.Remove(listing.ID)

	return d.run(ctx, listing)
}

// DispatchAsync reserves the listing id synchronously and runs the dispatch
// in the background. It returns false when the listing is already in flight.
// Reserving before spawning prevents the same id being dispatched twice
// across poll cycles.
func (d *Dispatcher) DispatchAsync(listing types.Listing) bool {
	if !d.tracker.TryAdd(listing.ID) {
		return false
	}

	go func() {
		defer d.tracker.Remove(listing.ID)
		d.run(context.Background(), listing)
	}()

	return true
}

// run executes the bounded attempt loop. The caller holds the in-flight
// reservation.
func (d *Dispatcher) run(ctx context.Context, listing types.Listing) error {
	start := time.Now()
	tried := make(map[string]struct{})
	workerCount := d.registry.Len()

	for attempts := 0; attempts < workerCount; {
		endpoint, ok := d.nextUntried(tried)
		if !ok {
			break
		}
		tried[endpoint] = struct{}{}

		outcome, data := d.render(ctx, endpoint, listing)
		switch outcome {
		case outcomeSuccess:
			if err := d.cache.Put(listing.ID, data); err != nil {
				// The render succeeded but the artifact could not be
				// persisted; the listing stays uncached until re-triggered.
				d.logger.WithFields(logrus.Fields{
					"listing_id": listing.ID,
					"endpoint":   endpoint,
					"error":      err.Error(),
				}).Error("Failed to persist rendered artifact")
				monitoring.RecordDispatch("persist_failed", time.Since(start).Seconds())
				return fmt.Errorf("failed to persist artifact for listing %s: %v", listing.ID, err)
			}

			monitoring.RecordDispatch("success", time.Since(start).Seconds())
			d.logger.WithFields(logrus.Fields{
				"listing_id":  listing.ID,
				"endpoint":    endpoint,
				"attempts":    attempts + 1,
				"bytes":       len(data),
				"duration_ms": time.Since(start).Milliseconds(),
			}).Info("Listing rendered and cached")
			return nil

		case outcomeOverloaded:
			// Overload is kept distinct from generic failure for
			// observability; the retry policy treats them identically.
			d.logger.WithFields(logrus.Fields{
				"listing_id": listing.ID,
				"endpoint":   endpoint,
			}).Warn("Worker overloaded, rotating to next endpoint")
			attempts++

		default:
			d.logger.WithFields(logrus.Fields{
				"listing_id": listing.ID,
				"endpoint":   endpoint,
			}).Warn("Worker render call failed, rotating to next endpoint")
			attempts++
		}
	}

	monitoring.RecordDispatch("exhausted", time.Since(start).Seconds())
	d.logger.WithFields(logrus.Fields{
		"listing_id":   listing.ID,
		"worker_count": workerCount,
	}).Error("Listing abandoned: all workers exhausted")

	return ErrExhausted
}

// nextUntried rotates the registry until it yields an endpoint not yet tried
// for this listing. Duplicate registry entries therefore never consume an
// attempt. It reports false once every distinct endpoint has been tried.
func (d *Dispatcher) nextUntried(tried map[string]struct{}) (string, bool) {
	for i := 0; i < d.registry.Len(); i++ {
		endpoint := d.registry.Next()
		if endpoint == "" {
			return "", false
		}
		if _, seen := tried[endpoint]; !seen {
			return endpoint, true
		}
	}
	return "", false
}

// render performs one worker call and classifies the response. The listing
// payload is posted as JSON; a 200 body is the rendered image and 503 is the
// worker's overload signal.
func (d *Dispatcher) render(ctx context.Context, endpoint string, listing types.Listing) (string, []byte) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	payload, err := json.Marshal(listing)
	if err != nil {
		monitoring.RecordRenderAttempt(outcomeFailed, time.Since(start).Seconds())
		return outcomeFailed, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/render", bytes.NewReader(payload))
	if err != nil {
		monitoring.RecordRenderAttempt(outcomeFailed, time.Since(start).Seconds())
		return outcomeFailed, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		// Network errors and timeouts are generic failures.
		monitoring.RecordRenderAttempt(outcomeFailed, time.Since(start).Seconds())
		return outcomeFailed, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil || len(data) == 0 {
			monitoring.RecordRenderAttempt(outcomeFailed, time.Since(start).Seconds())
			return outcomeFailed, nil
		}
		monitoring.RecordRenderAttempt(outcomeSuccess, time.Since(start).Seconds())
		return outcomeSuccess, data

	case http.StatusServiceUnavailable:
		monitoring.RecordRenderAttempt(outcomeOverloaded, time.Since(start).Seconds())
		return outcomeOverloaded, nil

	default:
		monitoring.RecordRenderAttempt(outcomeFailed, time.Since(start).Seconds())
		return outcomeFailed, nil
	}
}
