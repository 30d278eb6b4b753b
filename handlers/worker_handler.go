package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/middleware"
	"github.com/tradecast-labs/listing-render-backend/utils"
)

// WorkerList is the request and response body for the worker endpoints.
type WorkerList struct {
	Workers []string `json:"workers"`
}

/*
HandleGetWorkers returns the current ordered worker endpoint list.

Example:

	GET /workers

Response:
  - 200 OK: {"workers": ["http://render-1:9100", ...]}
*/
func (h *Handler) HandleGetWorkers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(WorkerList{Workers: h.Registry.All()})
}

/*
HandleReplaceWorkers atomically replaces the worker endpoint list and persists
it for restart durability.

Example:

	PUT /workers
	{"workers": ["http://render-1:9100", "http://render-2:9100"]}

Response:
  - 200 OK: The new list was applied.
  - 400 Bad Request: Malformed body, empty list, or an invalid endpoint URL.
*/
func (h *Handler) HandleReplaceWorkers(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
	}

	var body WorkerList
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.RespondBadRequest(w, fmt.Errorf("invalid request body: %v", err), requestID)
		return
	}

	if err := h.Registry.Replace(body.Workers); err != nil {
		middleware.RespondValidationError(w, err, requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id":   requestID,
		"worker_count": len(body.Workers),
	}).Info("Worker endpoint list replaced via API")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(WorkerList{Workers: h.Registry.All()})
}
