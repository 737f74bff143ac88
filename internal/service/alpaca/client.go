package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ZPulse/internal/domain/models"
	domrepo "ZPulse/internal/domain/repository"
	xlogger "ZPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// StreamType selects what the client subscribes to.
const (
	StreamTrades = "trades"
	StreamBars   = "bars"
)

// Client implements an ObservationSource backed by an Alpaca-style WebSocket
// proxy. It assigns per-symbol strictly increasing sequence numbers so the
// engine's ordering contract holds regardless of upstream timestamps.
type Client struct {
	proxyURL       string
	symbols        []string
	streamType     string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *xlogger.Logger

	conn      *websocket.Conn
	connected bool
	seq       map[string]uint64
}

// New creates a new live observation source.
func New(proxyURL string, symbols []string, streamType string, reconnectDelay, pingInterval time.Duration, log *xlogger.Logger) domrepo.ObservationSource {
	if streamType != StreamBars {
		streamType = StreamTrades
	}
	return &Client{
		proxyURL:       proxyURL,
		symbols:        symbols,
		streamType:     streamType,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
		seq:            make(map[string]uint64),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.proxyURL, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.log.Info("stream connected", xlogger.String("url", c.proxyURL))
	return nil
}

// Subscribe subscribes to configured symbols for the selected stream type.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("stream not connected")
	}
	msg := map[string]interface{}{
		"action":     "subscribe",
		c.streamType: c.symbols,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.log.Info("subscribed",
		xlogger.String("stream_type", c.streamType),
		xlogger.Strings("symbols", c.symbols))
	return nil
}

// frame covers both trade ('t', price in p) and bar ('b', close in c)
// messages from the proxy.
type frame struct {
	Type   string  `json:"T"`
	Symbol string  `json:"S"`
	Price  float64 `json:"p"`
	Close  float64 `json:"c"`
	TimeMS int64   `json:"t"`
}

// Read streams observations and errors until the context is cancelled or the
// connection breaks.
func (c *Client) Read(ctx context.Context) (<-chan *models.Observation, <-chan error) {
	out := make(chan *models.Observation, 1024)
	errs := make(chan error, 1)
	conn := c.conn
	done := make(chan struct{})

	// ping loop, bound to this connection; exits with the read loop so a
	// reconnect does not stack another ticker on the old one
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(out)
		defer close(errs)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if conn == nil {
					errs <- fmt.Errorf("stream conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				var f frame
				if err := json.Unmarshal(b, &f); err != nil {
					// ignore non-data frames
					continue
				}
				obs, ok := c.toObservation(f)
				if !ok {
					continue
				}
				select {
				case out <- obs:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errs
}

func (c *Client) toObservation(f frame) (*models.Observation, bool) {
	var price float64
	switch {
	case c.streamType == StreamTrades && f.Type == "t":
		price = f.Price
	case c.streamType == StreamBars && f.Type == "b":
		price = f.Close
	default:
		return nil, false
	}
	if f.Symbol == "" {
		return nil, false
	}

	ts := time.Now().UTC()
	if f.TimeMS > 0 {
		ts = time.UnixMilli(f.TimeMS).UTC()
	}

	c.seq[f.Symbol]++
	return &models.Observation{
		Symbol:     f.Symbol,
		Price:      price,
		Timestamp:  ts,
		SequenceNo: c.seq[f.Symbol],
	}, true
}

// Reconnect closes and reconnects after the configured delay.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected reports connection state.
func (c *Client) IsConnected() bool { return c.connected }
