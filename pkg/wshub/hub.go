package wshub

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// Hub tracks the live websocket sessions of one service, one per owner id.
type Hub struct {
	clients map[string]*Conn
	l       logger.Logger
	mu      sync.Mutex
	onCount func(n int)
}

func New(l logger.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Conn),
		l:       l,
		onCount: func(int) {},
	}
}

// OnCount installs a callback receiving the number of open sessions after every change.
func (h *Hub) OnCount(fn func(n int)) {
	if fn != nil {
		h.onCount = fn
	}
}

// Add registers c. An existing session for the same id is closed and replaced.
func (h *Hub) Add(c *Conn) error {
	if c == nil {
		return ErrEmptyConn
	}

	ctx := wrap.WithAction(context.Background(), types.ActionWSConnected)

	h.mu.Lock()
	existing, ok := h.clients[c.id]
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	if ok && existing != c {
		h.l.Warn(ctx, "replacing existing connection", "id", c.id)
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx, "failed to close existing conn", "id", c.id, "err", err.Error())
		}
	}
	h.onCount(n)
	return nil
}

// Remove closes c and forgets it, unless it was already replaced by a newer session.
func (h *Hub) Remove(c *Conn) {
	if c == nil {
		return
	}

	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if err := c.Close(); err != nil {
		h.l.Debug(wrap.WithAction(context.Background(), types.ActionWSDisconnected), "close conn", "id", c.id, "err", err.Error())
	}
	h.onCount(n)
}

// SendTo sends v to the session of id, or returns ErrConnIsNotFound.
func (h *Hub) SendTo(id string, v any) error {
	h.mu.Lock()
	c, ok := h.clients[id]
	h.mu.Unlock()
	if !ok {
		return ErrConnIsNotFound
	}
	return c.Send(v)
}

func (h *Hub) Get(id string) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return nil, ErrConnIsNotFound
	}
	return c, nil
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close closes every session.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Conn, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Conn)
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
	h.onCount(0)
	h.l.Info(wrap.WithAction(context.Background(), types.ActionWSDisconnected), "all websocket connections closed gracefully")
}
