package wshub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var ErrConnClosed = errors.New("connection closed")

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Conn is one websocket session. Writes are serialized; reads happen only in Listen.
type Conn struct {
	id      string
	conn    *websocket.Conn
	doneCtx context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	once    sync.Once
	err     error
}

func NewConn(ctx context.Context, id string, conn *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(ctx)
	return &Conn{
		id:      id,
		conn:    conn,
		doneCtx: ctx,
		cancel:  cancel,
	}
}

func (c *Conn) ID() string { return c.id }

// Done is closed when the connection is closed or its parent context ends.
func (c *Conn) Done() <-chan struct{} { return c.doneCtx.Done() }

// Context is cancelled together with the connection.
func (c *Conn) Context() context.Context { return c.doneCtx }

// Send writes v as one JSON text frame.
func (c *Conn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal ws message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doneCtx.Err() != nil {
		return ErrConnClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doneCtx.Err() != nil {
		return ErrConnClosed
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// KeepAlive pings the peer until the connection is closed. A failed ping closes it.
func (c *Conn) KeepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.doneCtx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// Listen reads frames and hands each payload to handler until the peer goes
// away, the connection is closed, or handler fails.
func (c *Conn) Listen(handler func(payload []byte) error) error {
	defer c.cancel()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if c.doneCtx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
		if err := handler(payload); err != nil {
			return fmt.Errorf("handler failed: %w", err)
		}
	}
}

func (c *Conn) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		c.err = c.conn.Close()
		c.mu.Unlock()
	})
	return c.err
}
