package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tradecast-labs/listing-render-backend/dispatch"
	"github.com/tradecast-labs/listing-render-backend/feed"
	"github.com/tradecast-labs/listing-render-backend/middleware"
	"github.com/tradecast-labs/listing-render-backend/types"
)

// MockArtifactCache is a mock for cache.ArtifactCache
type MockArtifactCache struct {
	mock.Mock
}

// Get mocks the Get method
func (m *MockArtifactCache) Get(id string) ([]byte, bool) {
	args := m.Called(id)
	return args.Get(0).([]byte), args.Bool(1)
}

// Writable mocks the Writable method
func (m *MockArtifactCache) Writable() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockDispatcher is a mock for dispatch.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

// Dispatch mocks the Dispatch method
func (m *MockDispatcher) Dispatch(ctx context.Context, listing types.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

// MockRegistry is a mock for registry.Registry
type MockRegistry struct {
	mock.Mock
}

// All mocks the All method
func (m *MockRegistry) All() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

// Replace mocks the Replace method
func (m *MockRegistry) Replace(endpoints []string) error {
	args := m.Called(endpoints)
	return args.Error(0)
}

// MockFeed is a mock for feed.Client
type MockFeed struct {
	mock.Mock
}

// FindListing mocks the FindListing method
func (m *MockFeed) FindListing(ctx context.Context, id string) (types.Listing, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Listing), args.Error(1)
}

// MockHealth is a mock for health.Aggregator
type MockHealth struct {
	mock.Mock
}

// CheckAll mocks the CheckAll method
func (m *MockHealth) CheckAll(ctx context.Context) types.HealthReport {
	args := m.Called(ctx)
	return args.Get(0).(types.HealthReport)
}

func setupTestHandler(t *testing.T) (*Handler, *MockArtifactCache, *MockDispatcher, *MockRegistry, *MockFeed, *MockHealth) {
	mockCache := &MockArtifactCache{}
	mockDispatcher := &MockDispatcher{}
	mockRegistry := &MockRegistry{}
	mockFeed := &MockFeed{}
	mockHealth := &MockHealth{}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	// Initialize middleware logger for tests
	middleware.Logger = logger

	handler := NewHandler(mockCache, mockDispatcher, mockRegistry, mockFeed, mockHealth, logger)

	return handler, mockCache, mockDispatcher, mockRegistry, mockFeed, mockHealth
}

func TestHandleGetImage(t *testing.T) {
	handler, mockCache, _, _, _, _ := setupTestHandler(t)

	pngBytes := []byte("\x89PNG\r\n\x1a\nfake-image-data")
	mockCache.On("Get", "listing-42").Return(pngBytes, true)

	req := httptest.NewRequest("GET", "/images/listing-42", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "listing-42"})
	w := httptest.NewRecorder()

	handler.HandleGetImage(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, w.Body.Bytes())
}

func TestHandleGetImageNotCached(t *testing.T) {
	handler, mockCache, _, _, _, _ := setupTestHandler(t)

	mockCache.On("Get", "listing-99").Return([]byte(nil), false)

	req := httptest.NewRequest("GET", "/images/listing-99", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "listing-99"})
	w := httptest.NewRecorder()

	handler.HandleGetImage(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetImageMissingID(t *testing.T) {
	handler, _, _, _, _, _ := setupTestHandler(t)

	req := httptest.NewRequest("GET", "/images/", nil)
	w := httptest.NewRecorder()

	handler.HandleGetImage(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDispatch(t *testing.T) {
	handler, _, mockDispatcher, _, mockFeed, _ := setupTestHandler(t)

	listing := types.Listing{ID: "listing-42", Title: "Vintage synthesizer"}
	mockFeed.On("FindListing", mock.Anything, "listing-42").Return(listing, nil)
	mockDispatcher.On("Dispatch", mock.Anything, listing).Return(nil)

	req := httptest.NewRequest("POST", "/dispatch?id=listing-42", nil)
	w := httptest.NewRecorder()

	handler.HandleDispatch(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "listing-42", response["id"])
	assert.Equal(t, "dispatched", response["status"])

	mockDispatcher.AssertExpectations(t)
}

func TestHandleDispatchMissingID(t *testing.T) {
	handler, _, _, _, _, _ := setupTestHandler(t)

	req := httptest.NewRequest("POST", "/dispatch", nil)
	w := httptest.NewRecorder()

	handler.HandleDispatch(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDispatchUnknownListing(t *testing.T) {
	handler, _, mockDispatcher, _, mockFeed, _ := setupTestHandler(t)

	mockFeed.On("FindListing", mock.Anything, "listing-999").
		Return(types.Listing{}, feed.ErrNotFound)

	req := httptest.NewRequest("POST", "/dispatch?id=listing-999", nil)
	w := httptest.NewRecorder()

	handler.HandleDispatch(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockDispatcher.AssertNotCalled(t, "Dispatch")
}

func TestHandleDispatchFeedUnavailable(t *testing.T) {
	handler, _, _, _, mockFeed, _ := setupTestHandler(t)

	mockFeed.On("FindListing", mock.Anything, "listing-42").
		Return(types.Listing{}, errors.New("connection refused"))

	req := httptest.NewRequest("POST", "/dispatch?id=listing-42", nil)
	w := httptest.NewRecorder()

	handler.HandleDispatch(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleDispatchAllWorkersFailed(t *testing.T) {
	handler, _, mockDispatcher, _, mockFeed, _ := setupTestHandler(t)

	listing := types.Listing{ID: "listing-42"}
	mockFeed.On("FindListing", mock.Anything, "listing-42").Return(listing, nil)
	mockDispatcher.On("Dispatch", mock.Anything, listing).Return(dispatch.ErrExhausted)

	req := httptest.NewRequest("POST", "/dispatch?id=listing-42", nil)
	w := httptest.NewRecorder()

	handler.HandleDispatch(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var response middleware.APIError
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, middleware.ErrCodeRenderFailed, response.Error)
}

func TestHandleGetWorkers(t *testing.T) {
	handler, _, _, mockRegistry, _, _ := setupTestHandler(t)

	endpoints := []string{"http://render-1:9100", "http://render-2:9100"}
	mockRegistry.On("All").Return(endpoints)

	req := httptest.NewRequest("GET", "/workers", nil)
	w := httptest.NewRecorder()

	handler.HandleGetWorkers(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response WorkerList
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, endpoints, response.Workers)
}

func TestHandleReplaceWorkers(t *testing.T) {
	handler, _, _, mockRegistry, _, _ := setupTestHandler(t)

	endpoints := []string{"http://render-3:9100"}
	mockRegistry.On("Replace", endpoints).Return(nil)
	mockRegistry.On("All").Return(endpoints)

	body, _ := json.Marshal(WorkerList{Workers: endpoints})
	req := httptest.NewRequest("PUT", "/workers", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleReplaceWorkers(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockRegistry.AssertExpectations(t)
}

func TestHandleReplaceWorkersInvalidBody(t *testing.T) {
	handler, _, _, mockRegistry, _, _ := setupTestHandler(t)

	req := httptest.NewRequest("PUT", "/workers", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()

	handler.HandleReplaceWorkers(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockRegistry.AssertNotCalled(t, "Replace")
}

func TestHandleReplaceWorkersRejected(t *testing.T) {
	handler, _, _, mockRegistry, _, _ := setupTestHandler(t)

	endpoints := []string{"not-a-url"}
	mockRegistry.On("Replace", endpoints).Return(errors.New("invalid worker endpoint: not-a-url"))

	body, _ := json.Marshal(WorkerList{Workers: endpoints})
	req := httptest.NewRequest("PUT", "/workers", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleReplaceWorkers(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWorkerHealth(t *testing.T) {
	handler, _, _, _, _, mockHealth := setupTestHandler(t)

	report := types.HealthReport{
		Total:       2,
		Healthy:     1,
		MemoryBytes: 2048,
		Workers: []types.WorkerStatus{
			{Endpoint: "http://render-1:9100", Healthy: true, MemoryBytes: 2048},
			{Endpoint: "http://render-2:9100", Healthy: false, Error: "connection refused"},
		},
	}
	mockHealth.On("CheckAll", mock.Anything).Return(report)

	req := httptest.NewRequest("GET", "/health/workers", nil)
	w := httptest.NewRecorder()

	handler.HandleWorkerHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response types.HealthReport
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, 2, response.Total)
	assert.Equal(t, 1, response.Healthy)
	assert.Len(t, response.Workers, 2)
}

func TestHandleHealthCheck(t *testing.T) {
	handler, _, _, _, _, _ := setupTestHandler(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler.HandleHealthCheck(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
	assert.Contains(t, response, "timestamp")
}

func TestHandleLivenessCheck(t *testing.T) {
	handler, _, _, _, _, _ := setupTestHandler(t)

	req := httptest.NewRequest("GET", "/health/live", nil)
	w := httptest.NewRecorder()

	handler.HandleLivenessCheck(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "alive", response["status"])
}

func TestHandleReadinessCheck(t *testing.T) {
	handler, mockCache, _, mockRegistry, _, _ := setupTestHandler(t)

	mockRegistry.On("All").Return([]string{"http://render-1:9100"})
	mockCache.On("Writable").Return(true)

	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.HandleReadinessCheck(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ready", response["status"])
}

func TestHandleReadinessCheckNoWorkers(t *testing.T) {
	handler, mockCache, _, mockRegistry, _, _ := setupTestHandler(t)

	mockRegistry.On("All").Return([]string{})
	mockCache.On("Writable").Return(true)

	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.HandleReadinessCheck(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "not_ready", response["status"])
}

func TestNewHandler(t *testing.T) {
	mockCache := &MockArtifactCache{}
	mockDispatcher := &MockDispatcher{}
	mockRegistry := &MockRegistry{}
	mockFeed := &MockFeed{}
	mockHealth := &MockHealth{}
	logger := logrus.New()

	handler := NewHandler(mockCache, mockDispatcher, mockRegistry, mockFeed, mockHealth, logger)

	assert.NotNil(t, handler)
	assert.Equal(t, mockCache, handler.Cache)
	assert.Equal(t, mockDispatcher, handler.Dispatcher)
	assert.Equal(t, mockRegistry, handler.Registry)
	assert.Equal(t, logger, handler.Logger)
}
