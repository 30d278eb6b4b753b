package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/middleware"
	"github.com/tradecast-labs/listing-render-backend/utils"
)

/*
HandleGetImage serves the cached rendered image for a listing.

Path Parameters:
  - id: The listing identifier.

Example:

	GET /images/listing-42

Response:
  - 200 OK: The rendered PNG.
  - 404 Not Found: No cached artifact for this listing. The image may still
    be rendering; the caller can force a render via POST /dispatch.
*/
func (h *Handler) HandleGetImage(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		middleware.RespondBadRequest(w, fmt.Errorf("listing id is missing"), requestID)
		return
	}

	data, found := h.Cache.Get(id)
	if !found {
		middleware.RespondNotFound(w, fmt.Errorf("no rendered image for listing %s", id), requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"listing_id": id,
		"bytes":      len(data),
	}).Debug("Serving cached artifact")

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
