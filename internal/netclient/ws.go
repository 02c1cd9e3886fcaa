package netclient

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// WSClient is a reconnecting WebSocket client: exponential backoff from 1s
// up to 30s, a ping keepalive, and a read deadline that triggers
// reconnection on silent server failure. One WSClient holds one logical
// subscription set, re-sent on every reconnect.
//
// Grounded on the teacher's exchange.WSFeed, generalized from "market" and
// "user" channels into a single reusable client configured by the caller.
type WSClient struct {
	url    string
	logger *slog.Logger
	dialer websocket.Dialer

	connMu sync.Mutex
	conn   *websocket.Conn

	subscribeMu sync.Mutex
	subscribe   func(*websocket.Conn) error

	onMessage func([]byte)
}

// NewWSClient creates a client for url. subscribe is called once per
// (re)connection to send whatever subscription messages the caller needs;
// onMessage is called for every inbound text/binary frame. tlsConfig nil
// falls back to DefaultTLSConfig.
func NewWSClient(url string, logger *slog.Logger, tlsConfig *tls.Config, subscribe func(*websocket.Conn) error, onMessage func([]byte)) *WSClient {
	if tlsConfig == nil {
		tlsConfig = DefaultTLSConfig()
	}
	dialer := *websocket.DefaultDialer
	dialer.TLSClientConfig = tlsConfig
	return &WSClient{url: url, logger: logger.With("component", "ws_client"), dialer: dialer, subscribe: subscribe, onMessage: onMessage}
}

// Run connects and reads until ctx is cancelled, reconnecting with
// exponential backoff on any read/connect error. Run blocks; callers
// should run it on its own goroutine.
func (c *WSClient) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.runOnce(ctx); err != nil {
			c.logger.Error("ws connection ended, reconnecting", "error", err, "backoff", backoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (c *WSClient) runOnce(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	if c.subscribe != nil {
		if err := c.subscribe(conn); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	defer close(done)
	go c.pingLoop(conn, done)

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

func (c *WSClient) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send writes a JSON-encodable value to the current connection, if any.
func (c *WSClient) Send(v any) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

// Close closes the current connection, if any.
func (c *WSClient) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
