package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"auctionhouse/internal/events"
	applog "auctionhouse/internal/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Hub tracks websocket watchers per item and pushes item events to them.
// It satisfies events.Publisher.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

// Client is one websocket watching one item.
type Client struct {
	ID     string
	ItemID string
	Conn   *websocket.Conn
	Send   chan []byte
}

type message struct {
	itemID  string
	payload []byte
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan message, sendBuffer),
		done:        make(chan struct{}),
	}
}

// Run owns all subscription changes; it returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case m := <-h.broadcast:
			h.fanout(m)
		}
	}
}

// Register reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues an event for the item's watchers. It never blocks on slow clients.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	select {
	case h.broadcast <- message{itemID: e.ItemID, payload: payload}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	set, ok := h.subscribers[c.ItemID]
	if !ok {
		set = make(map[*Client]struct{})
		h.subscribers[c.ItemID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	applog.Info(nil, "ws.subscribe", map[string]any{"client_id": c.ID, "item_id": c.ItemID})
	go c.writePump()
}

// remove is idempotent: a client dropped for being slow unregisters again from its read pump.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	set, ok := h.subscribers[c.ItemID]
	if ok {
		if _, ok = set[c]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subscribers, c.ItemID)
			}
		}
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	close(c.Send)
	applog.Info(nil, "ws.unsubscribe", map[string]any{"client_id": c.ID, "item_id": c.ItemID})
}

func (h *Hub) fanout(m message) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.subscribers[m.itemID] {
		select {
		case c.Send <- m.payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		h.remove(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.subscribers {
		for c := range set {
			close(c.Send)
		}
		delete(h.subscribers, id)
	}
}

func (h *Hub) SubscriberCount(itemID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[itemID])
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only keeps the connection alive; watchers do not send anything meaningful.
func (c *Client) readPump(h *Hub) {
	defer h.Unregister(c)

	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				applog.Error(nil, "ws.read", err, map[string]any{"client_id": c.ID})
			}
			return
		}
	}
}
