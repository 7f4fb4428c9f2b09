package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Collage/internal/api/handlers/feed"
	"Collage/internal/api/middleware"
	feedCore "Collage/internal/core/feed"
)

// RegisterFeedRoutes registers main feed XRPC endpoints.
// Every route requires authentication; rateLimit may be nil.
func RegisterFeedRoutes(
	r chi.Router,
	feedService feedCore.Service,
	authMiddleware *middleware.AuthMiddleware,
	rateLimit func(http.Handler) http.Handler,
) {
	getMainFeedHandler := feed.NewGetMainFeedHandler(feedService)
	markViewedHandler := feed.NewMarkViewedHandler(feedService)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		// Limit after auth so buckets are keyed by user rather than IP
		if rateLimit != nil {
			r.Use(rateLimit)
		}

		// GET /xrpc/social.collage.feed.getMainFeed
		r.Get("/xrpc/social.collage.feed.getMainFeed", getMainFeedHandler.HandleGetMainFeed)

		// GET /xrpc/social.collage.feed.getMainFeedHydrated
		r.Get("/xrpc/social.collage.feed.getMainFeedHydrated", getMainFeedHandler.HandleGetMainFeedHydrated)

		// POST /xrpc/social.collage.feed.markViewed
		r.Post("/xrpc/social.collage.feed.markViewed", markViewedHandler.HandleMarkViewed)

		// GET /xrpc/social.collage.feed.markCollageViewedAndGetCollageById
		r.Get("/xrpc/social.collage.feed.markCollageViewedAndGetCollageById", markViewedHandler.HandleMarkViewedAndGet)
	})
}
