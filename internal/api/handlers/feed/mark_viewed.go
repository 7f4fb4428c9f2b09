package feed

import (
	"encoding/json"
	"net/http"

	"Collage/internal/api/middleware"
	"Collage/internal/core/feed"
)

// maxMarkViewedBody bounds the request body; 100 UUIDs fit comfortably
const maxMarkViewedBody = 16 << 10

// MarkViewedRequest is the body of markViewed
type MarkViewedRequest struct {
	CollageIDs []string `json:"collageIds"`
}

// MarkViewedHandler records collages the viewer has seen
type MarkViewedHandler struct {
	service feed.Service
}

// NewMarkViewedHandler creates a new mark viewed handler
func NewMarkViewedHandler(service feed.Service) *MarkViewedHandler {
	return &MarkViewedHandler{
		service: service,
	}
}

// HandleMarkViewed unions the given collages into the viewer's viewed set
// POST /xrpc/social.collage.feed.markViewed {"collageIds": [...]}
func (h *MarkViewedHandler) HandleMarkViewed(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r)
	if viewerID == "" {
		writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "User must be authenticated")
		return
	}

	var body MarkViewedRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMarkViewedBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Request body must be {\"collageIds\": [...]}")
		return
	}

	if err := h.service.MarkViewed(r.Context(), viewerID, body.CollageIDs); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, r, struct{}{})
}

// HandleMarkViewedAndGet opens a single collage and records it as viewed
// GET /xrpc/social.collage.feed.markCollageViewedAndGetCollageById?collageId=...
func (h *MarkViewedHandler) HandleMarkViewedAndGet(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r)
	if viewerID == "" {
		writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "User must be authenticated")
		return
	}

	collageID := r.URL.Query().Get("collageId")
	if collageID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "collageId is required")
		return
	}

	detail, err := h.service.MarkViewedAndGet(r.Context(), viewerID, collageID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, r, detail)
}
