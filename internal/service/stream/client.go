package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"SignalFuse/internal/domain/models"
	drepo "SignalFuse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a SignalStream backed by an upstream WebSocket feed
// that pushes raw signal messages as JSON objects.
type Client struct {
	token          string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new WebSocket SignalStream.
func New(token, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration) drepo.SignalStream {
	return &Client{
		token:          token,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.token != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("stream: connected")
	return nil
}

// Subscribe subscribes to configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("stream not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		log.Printf("stream: subscribed %s", s)
	}
	return nil
}

// envelope is the upstream frame format: either a bare message object or
// a batch under "data".
type envelope struct {
	Type string            `json:"type"`
	Data []json.RawMessage `json:"data"`
}

// Read streams raw messages and errors.
func (c *Client) Read(ctx context.Context) (<-chan models.RawMessage, <-chan error) {
	msgs := make(chan models.RawMessage, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(msgs)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("stream conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				for _, raw := range decodeFrame(b) {
					select {
					case msgs <- raw:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return msgs, errs
}

// decodeFrame accepts either a batch envelope or a single raw message.
// Non-JSON frames (pings, acks) are ignored.
func decodeFrame(b []byte) []models.RawMessage {
	var env envelope
	if err := json.Unmarshal(b, &env); err == nil && len(env.Data) > 0 {
		out := make([]models.RawMessage, 0, len(env.Data))
		for _, d := range env.Data {
			var m models.RawMessage
			if err := json.Unmarshal(d, &m); err == nil && len(m) > 0 {
				out = append(out, m)
			}
		}
		return out
	}
	var m models.RawMessage
	if err := json.Unmarshal(b, &m); err == nil && len(m) > 0 {
		return []models.RawMessage{m}
	}
	return nil
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
