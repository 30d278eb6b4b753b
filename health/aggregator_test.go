package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRegistry struct {
	endpoints []string
}

func (r *staticRegistry) All() []string {
	return r.endpoints
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

func newHealthyWorker(t *testing.T, memoryBytes uint64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/healthz", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","memory_bytes":%d}`, memoryBytes)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckAllHealthyWorkers(t *testing.T) {
	a := newHealthyWorker(t, 1024)
	b := newHealthyWorker(t, 2048)

	agg := NewAggregator(&staticRegistry{endpoints: []string{a.URL, b.URL}}, time.Second, testLogger())

	report := agg.CheckAll(context.Background())

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Healthy)
	assert.Equal(t, uint64(3072), report.MemoryBytes)
}

func TestCheckAllOneWorkerTimesOut(t *testing.T) {
	a := newHealthyWorker(t, 1024)
	b := newHealthyWorker(t, 2048)

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, `{"status":"ok","memory_bytes":4096}`)
	}))
	defer slow.Close()

	agg := NewAggregator(&staticRegistry{endpoints: []string{a.URL, slow.URL, b.URL}}, 50*time.Millisecond, testLogger())

	report := agg.CheckAll(context.Background())

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Healthy)
	// The timed-out worker contributes zero to the aggregate.
	assert.Equal(t, uint64(3072), report.MemoryBytes)
}

func TestCheckAllUnhealthyStatusCode(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	agg := NewAggregator(&staticRegistry{endpoints: []string{failing.URL}}, time.Second, testLogger())

	report := agg.CheckAll(context.Background())

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 0, report.Healthy)
	require.Len(t, report.Workers, 1)
	assert.NotEmpty(t, report.Workers[0].Error)
}

func TestCheckAllUnreachableWorker(t *testing.T) {
	agg := NewAggregator(&staticRegistry{endpoints: []string{"http://127.0.0.1:1"}}, time.Second, testLogger())

	report := agg.CheckAll(context.Background())

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 0, report.Healthy)
}

func TestCheckAllEmptyRegistry(t *testing.T) {
	agg := NewAggregator(&staticRegistry{}, time.Second, testLogger())

	report := agg.CheckAll(context.Background())

	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0, report.Healthy)
}

func TestLastReport(t *testing.T) {
	worker := newHealthyWorker(t, 512)
	agg := NewAggregator(&staticRegistry{endpoints: []string{worker.URL}}, time.Second, testLogger())

	assert.Equal(t, 0, agg.LastReport().Total)

	agg.CheckAll(context.Background())

	last := agg.LastReport()
	assert.Equal(t, 1, last.Total)
	assert.Equal(t, 1, last.Healthy)
}
