// Package ws pulls order book snapshots from a websocket endpoint. A background
// reader keeps the latest message cached behind a read lock so the desk's pull
// never waits on the network.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

const (
	componentName = "feed.ws.client"

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message.
	pongWait = 30 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	handshakeTimeout = 15 * time.Second
)

var (
	ErrNotConnected = errors.New("ws feed not connected")
	ErrNoSnapshot   = errors.New("no book snapshot received yet")
	ErrStale        = errors.New("cached book snapshot is stale")
)

// bookMessage is the wire format expected from the endpoint.
type bookMessage struct {
	Book        common.OrderBookSnapshot `json:"book"`
	FundingRate fixed.Point              `json:"funding_rate"`
}

type Client struct {
	url        string
	staleAfter time.Duration

	mu          sync.RWMutex
	conn        *websocket.Conn
	latest      common.OrderBookSnapshot
	hasLatest   bool
	receivedAt  time.Time
	fundingRate fixed.Point
	closed      bool

	done chan struct{}
}

// NewClient builds a client for one instrument stream. staleAfter bounds how
// old a cached snapshot may be before Book reports it stale; zero disables the
// check.
func NewClient(url string, staleAfter time.Duration) *Client {
	return &Client{
		url:        url,
		staleAfter: staleAfter,
		done:       make(chan struct{}),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("ws feed: client is closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("ws feed: connect %q: %w", c.url, err)
	}

	c.conn = conn

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readLoop(conn)
	go c.pingLoop(conn)

	return nil
}

// Book returns the latest cached snapshot. It never blocks on the network.
func (c *Client) Book() (common.OrderBookSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return common.OrderBookSnapshot{}, ErrNotConnected
	}
	if !c.hasLatest {
		return common.OrderBookSnapshot{}, ErrNoSnapshot
	}
	if c.staleAfter > 0 && time.Since(c.receivedAt) > c.staleAfter {
		return common.OrderBookSnapshot{}, ErrStale
	}
	return c.latest, nil
}

func (c *Client) FundingRate() fixed.Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fundingRate
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		return c.conn.Close()
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				slog.Warn("ws feed read failed", "url", c.url, "error", err)
			}
			return
		}

		var msg bookMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("ws feed message dropped", "url", c.url, "error", err)
			continue
		}

		msg.Book.Source = componentName

		c.mu.Lock()
		c.latest = msg.Book
		c.hasLatest = true
		c.receivedAt = time.Now()
		c.fundingRate = msg.FundingRate
		c.mu.Unlock()
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
