package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Connector holds the websocket connection to the interaction stream
type Connector struct {
	consumer  *Consumer
	logger    *slog.Logger
	reconnect *rate.Limiter
	dialer    *websocket.Dialer
	wsURL     string
}

// NewConnector creates a connector that reconnects at most once per
// reconnectEvery, with a small burst for quick recovery from blips
func NewConnector(consumer *Consumer, wsURL string, reconnectEvery time.Duration, logger *slog.Logger) *Connector {
	if reconnectEvery <= 0 {
		reconnectEvery = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		consumer:  consumer,
		wsURL:     wsURL,
		logger:    logger,
		reconnect: rate.NewLimiter(rate.Every(reconnectEvery), 2),
		dialer:    websocket.DefaultDialer,
	}
}

// Start consumes events until ctx is cancelled, reconnecting on errors
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("starting interaction stream consumer", "url", c.wsURL)

	for {
		if err := c.reconnect.Wait(ctx); err != nil {
			// Wait also fails early when the next slot lies past the deadline
			<-ctx.Done()
			c.logger.Info("interaction stream consumer shutting down")
			return ctx.Err()
		}

		if err := c.connect(ctx); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("interaction stream consumer shutting down")
				return ctx.Err()
			}
			c.logger.Warn("interaction stream connection error, reconnecting", "error", err)
		}
	}
}

// connect establishes one websocket session and processes messages until it fails
func (c *Connector) connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to interaction stream: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			c.logger.Debug("failed to close websocket connection", "error", closeErr)
		}
	}()

	c.logger.Info("connected to interaction stream")

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		c.logger.Warn("failed to set read deadline", "error", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func() { closeOnce.Do(func() { close(done) }) }
	defer stop()

	// Ping loop; also closes the connection on shutdown to unblock ReadMessage
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
					c.logger.Warn("failed to send ping", "error", err)
					stop()
					_ = conn.Close()
					return
				}
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		if err := c.consumer.HandleMessage(ctx, message); err != nil {
			c.logger.Error("failed to handle interaction event", "error", err)
			return fmt.Errorf("handle error: %w", err)
		}
	}
}
