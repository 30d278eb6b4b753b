package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/dispatch"
	"github.com/tradecast-labs/listing-render-backend/feed"
	"github.com/tradecast-labs/listing-render-backend/middleware"
	"github.com/tradecast-labs/listing-render-backend/utils"
)

/*
HandleDispatch force-dispatches a specific listing, bypassing the poll cycle.

The listing is looked up in the current upstream feed, then rendered
synchronously. This is also the re-trigger mechanism for listings that were
abandoned after exhausting all workers.

Query Parameters:
  - id: The listing identifier.

Example:

	POST /dispatch?id=listing-42

Response:
  - 200 OK: Dispatch finished; the image is available under /images/{id}.
  - 400 Bad Request: Missing id parameter.
  - 404 Not Found: The upstream feed does not currently publish this listing.
  - 502 Bad Gateway: Every rendering worker failed.
*/
func (h *Handler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		middleware.RespondBadRequest(w, fmt.Errorf("id parameter is missing"), requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"listing_id": id,
		"action":     "force_dispatch",
	}).Info("Processing force-dispatch request")

	listing, err := h.Feed.FindListing(r.Context(), id)
	if err != nil {
		if errors.Is(err, feed.ErrNotFound) {
			middleware.RespondNotFound(w, err, requestID)
			return
		}
		middleware.RespondServiceUnavailable(w, err, requestID)
		return
	}

	if err := h.Dispatcher.Dispatch(r.Context(), listing); err != nil {
		if errors.Is(err, dispatch.ErrExhausted) {
			middleware.RespondRenderFailed(w, err, requestID)
			return
		}
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"id":     id,
		"status": "dispatched",
	})
}
