package feed

import (
	"net/http"
	"strconv"

	"Collage/internal/api/middleware"
	"Collage/internal/core/feed"
)

// GetMainFeedHandler serves pages of the viewer's main feed
type GetMainFeedHandler struct {
	service feed.Service
}

// NewGetMainFeedHandler creates a new main feed handler
func NewGetMainFeedHandler(service feed.Service) *GetMainFeedHandler {
	return &GetMainFeedHandler{
		service: service,
	}
}

// HandleGetMainFeed returns one page of collage IDs, unseen first
// GET /xrpc/social.collage.feed.getMainFeed?limit=20&cursor=...
func (h *GetMainFeedHandler) HandleGetMainFeed(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	response, err := h.service.GetFeedIDs(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, r, response)
}

// HandleGetMainFeedHydrated returns one page of display-ready collages
// GET /xrpc/social.collage.feed.getMainFeedHydrated?limit=20&cursor=...
func (h *GetMainFeedHandler) HandleGetMainFeedHydrated(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	response, err := h.service.GetFeed(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, r, response)
}

// parseRequest builds the request from auth context and query params.
// It writes the error response itself and reports whether to continue.
func (h *GetMainFeedHandler) parseRequest(w http.ResponseWriter, r *http.Request) (feed.GetFeedRequest, bool) {
	req := feed.GetFeedRequest{
		ViewerID: middleware.GetUserID(r),
	}
	if req.ViewerID == "" {
		writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "User must be authenticated to view the feed")
		return req, false
	}

	query := r.URL.Query()

	// Optional: limit (0 selects the service default)
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must be an integer")
			return req, false
		}
		req.Limit = limit
	}

	if cursor := query.Get("cursor"); cursor != "" {
		req.Cursor = &cursor
	}

	return req, true
}
