package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"go-survey-console/internal/rbac"
	"go-survey-console/internal/session"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one open shell tab. Path is the page it currently shows.
type Client struct {
	SID  string
	conn Conn

	mu      sync.Mutex
	path    string
	writeMu sync.Mutex
}

func NewClient(sid string, conn Conn, path string) *Client {
	return &Client{SID: sid, conn: conn, path: path}
}

func (c *Client) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

func (c *Client) SetPath(p string) {
	c.mu.Lock()
	c.path = p
	c.mu.Unlock()
}

func (c *Client) write(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// BuildFunc renders the navigation payload of a session at path.
type BuildFunc func(ctx context.Context, sid, path string) (any, error)

// Hub keeps the open shells per session and pushes navigation to them
// when their session or permissions change.
type Hub struct {
	clients map[string]map[*Client]bool
	// Notify carries a session id to refresh; "" refreshes every session.
	Notify chan string

	build  BuildFunc
	logger *slog.Logger
	mutex  sync.Mutex

	OnConnect    func()
	OnDisconnect func()
}

func NewHub(build BuildFunc, logger *slog.Logger) *Hub {
	return &Hub{
		clients:      make(map[string]map[*Client]bool),
		Notify:       make(chan string, 64),
		build:        build,
		logger:       logger,
		OnConnect:    func() {},
		OnDisconnect: func() {},
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case sid := <-h.Notify:
			for _, c := range h.targets(sid) {
				go h.Push(ctx, c)
			}
		}
	}
}

// Join registers c and sends it the navigation right away.
func (h *Hub) Join(ctx context.Context, c *Client) {
	h.mutex.Lock()
	if h.clients[c.SID] == nil {
		h.clients[c.SID] = make(map[*Client]bool)
	}
	h.clients[c.SID][c] = true
	h.mutex.Unlock()
	h.OnConnect()
	h.logger.Debug("ws client connected", "session_id", c.SID)
	h.Push(ctx, c)
}

// Push sends one client its current navigation. A failed write drops it.
func (h *Hub) Push(ctx context.Context, c *Client) {
	payload, err := h.build(ctx, c.SID, c.Path())
	if err != nil {
		h.logger.Warn("navigation build failed", "session_id", c.SID, "err", err)
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("navigation encode failed", "session_id", c.SID, "err", err)
		return
	}
	if err := c.write(b); err != nil {
		h.remove(c)
	}
}

// Count returns the number of connected clients of sid.
func (h *Hub) Count(sid string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[sid])
}

// Watch turns session changes and permission invalidations into pushes
// until ctx is done. Session changes may come from any replica.
func (h *Hub) Watch(ctx context.Context, changes <-chan session.Change, invalidations <-chan rbac.Invalidation) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if affectsNavigation(c) {
				h.enqueue(c.SID)
			}
		case inv, ok := <-invalidations:
			if !ok {
				invalidations = nil
				continue
			}
			h.enqueue(inv.SID)
		}
	}
}

func affectsNavigation(c session.Change) bool {
	switch c.Key {
	case "", session.KeySelectedSurveyID, session.KeyGoodsType, session.KeyAuthenticated:
		return true
	}
	return false
}

func (h *Hub) enqueue(sid string) {
	select {
	case h.Notify <- sid:
	default:
		h.logger.Warn("navigation push dropped", "session_id", sid)
	}
}

func (h *Hub) targets(sid string) []*Client {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	var out []*Client
	for s, set := range h.clients {
		if sid != "" && s != sid {
			continue
		}
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// Leave drops c and closes its connection. It is safe to call twice.
func (h *Hub) Leave(c *Client) {
	h.remove(c)
}

func (h *Hub) remove(c *Client) {
	h.mutex.Lock()
	set, ok := h.clients[c.SID]
	if ok && set[c] {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.SID)
		}
	} else {
		ok = false
	}
	h.mutex.Unlock()
	if ok {
		c.conn.Close()
		h.OnDisconnect()
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for sid, set := range h.clients {
		for c := range set {
			c.conn.Close()
			h.OnDisconnect()
		}
		delete(h.clients, sid)
	}
}
