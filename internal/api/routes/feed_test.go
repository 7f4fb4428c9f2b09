package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Collage/internal/api/middleware"
	"Collage/internal/core/feed"
)

type stubFeedService struct {
	lastViewer string
}

func (s *stubFeedService) GetFeedIDs(ctx context.Context, req feed.GetFeedRequest) (*feed.FeedIDsResponse, error) {
	s.lastViewer = req.ViewerID
	return &feed.FeedIDsResponse{Collages: []feed.CollageRef{{ID: "c1"}}}, nil
}

func (s *stubFeedService) GetFeed(ctx context.Context, req feed.GetFeedRequest) (*feed.FeedResponse, error) {
	s.lastViewer = req.ViewerID
	return &feed.FeedResponse{Collages: []*feed.DisplayRecord{}}, nil
}

func (s *stubFeedService) MarkViewed(ctx context.Context, viewerID string, ids []string) error {
	s.lastViewer = viewerID
	return nil
}

func (s *stubFeedService) MarkViewedAndGet(ctx context.Context, viewerID, collageID string) (*feed.CollageDetail, error) {
	s.lastViewer = viewerID
	return &feed.CollageDetail{Collage: &feed.DisplayRecord{ID: collageID}}, nil
}

func TestRegisterFeedRoutes(t *testing.T) {
	svc := &stubFeedService{}
	auth := middleware.NewAuthMiddleware(middleware.NewHS256Verifier("secret", ""), nil)
	r := chi.NewRouter()
	RegisterFeedRoutes(r, svc, auth, middleware.NewRateLimiter(100, time.Minute).Middleware)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "viewer-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/xrpc/social.collage.feed.getMainFeed", ""},
		{http.MethodGet, "/xrpc/social.collage.feed.getMainFeedHydrated", ""},
		{http.MethodPost, "/xrpc/social.collage.feed.markViewed", `{"collageIds":["c1"]}`},
		{http.MethodGet, "/xrpc/social.collage.feed.markCollageViewedAndGetCollageById?collageId=c1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code, "unauthenticated request")

			svc.lastViewer = ""
			req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Authorization", "Bearer "+token)
			w = httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "viewer-1", svc.lastViewer)
		})
	}
}
