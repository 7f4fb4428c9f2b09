package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamServer(t *testing.T, messages ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var connections atomic.Int32
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		connections.Add(1)

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &connections
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnector_DeliversMessages(t *testing.T) {
	srv, _ := newStreamServer(t,
		`{"kind":"follow","op":"create","actor":"a","subject":"b"}`,
		`{"kind":"like","op":"delete","actor":"a","subject":"c1"}`,
	)
	svc := &fakeService{}
	connector := NewConnector(NewConsumer(svc, nil, nil), wsURL(srv), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- connector.Start(ctx) }()

	require.Eventually(t, func() bool { return len(svc.applied()) == 2 }, 2*time.Second, 10*time.Millisecond)
	events := svc.applied()
	assert.Equal(t, "b", events[0].Subject)
	assert.Equal(t, "c1", events[1].Subject)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("connector did not stop after cancellation")
	}
}

func TestConnector_Reconnects(t *testing.T) {
	var connections atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connections.Add(1)
		// Drop the connection immediately to force a reconnect
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)

	connector := NewConnector(NewConsumer(&fakeService{}, nil, nil), wsURL(srv), 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = connector.Start(ctx) }()

	require.Eventually(t, func() bool { return connections.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnector_StorageFailureRestartsSession(t *testing.T) {
	srv, connections := newStreamServer(t,
		`{"kind":"follow","op":"create","actor":"a","subject":"b"}`,
		`{"kind":"follow","op":"create","actor":"a","subject":"c"}`,
	)
	svc := &fakeService{err: errors.New("connection refused")}
	connector := NewConnector(newTestConsumer(svc, nil, 1), wsURL(srv), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = connector.Start(ctx) }()

	require.Eventually(t, func() bool { return connections.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, svc.callCount(), 2, "the failing event is retried before the session ends")
	assert.Empty(t, svc.applied())
}

func TestConnector_RecoversAfterStorageOutage(t *testing.T) {
	srv, connections := newStreamServer(t,
		`{"kind":"follow","op":"create","actor":"a","subject":"b"}`,
		`{"kind":"repost","op":"create","actor":"a","subject":"c1"}`,
	)
	// Fails the first session's attempts and one attempt of the next
	svc := &fakeService{err: errors.New("connection refused"), failures: 3}
	connector := NewConnector(newTestConsumer(svc, nil, 1), wsURL(srv), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = connector.Start(ctx) }()

	require.Eventually(t, func() bool { return len(svc.applied()) == 2 }, 2*time.Second, 10*time.Millisecond)
	events := svc.applied()
	assert.Equal(t, "b", events[0].Subject)
	assert.Equal(t, "c1", events[1].Subject)
	assert.Equal(t, int32(2), connections.Load())
}

func TestConnector_StopsWhenServerUnreachable(t *testing.T) {
	srv, _ := newStreamServer(t)
	url := wsURL(srv)
	srv.Close()

	connector := NewConnector(NewConsumer(&fakeService{}, nil, nil), url, 10*time.Millisecond, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := connector.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
