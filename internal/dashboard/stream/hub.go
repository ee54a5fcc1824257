// Package stream pushes dashboard store changes to websocket clients and
// applies the commands they send back.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"plant-monitor/internal/dashboard"
	"plant-monitor/internal/sensor"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Message is pushed to clients.
type Message struct {
	Type          string           `json:"type"`
	Sensor        sensor.Key       `json:"sensor,omitempty"`
	Entry         *dashboard.Entry `json:"entry,omitempty"`
	RelativeScale *bool            `json:"relativeScale,omitempty"`
	Message       string           `json:"message,omitempty"`
}

const (
	TypeSensor           = "sensor"
	TypeRelativeScale    = "relativeScale"
	TypeError            = "error"
	TypeSetVisibility    = "setVisibility"
	TypeSetRelativeScale = "setRelativeScale"
	TypeRefresh          = "refresh"
)

// Command is sent by clients.
type Command struct {
	Type          string `json:"type"`
	Sensor        string `json:"sensor,omitempty"`
	IsVisible     *bool  `json:"isVisible,omitempty"`
	RelativeScale *bool  `json:"relativeScale,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Message
	once sync.Once
}

type Hub struct {
	ctx       context.Context
	stores    *dashboard.Stores
	refresher *dashboard.Refresher
	logger    *slog.Logger
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	unsubs  []func()
}

// NewHub subscribes to every store. ctx bounds refreshes requested by
// clients; Close releases the subscriptions and disconnects everyone.
func NewHub(ctx context.Context, stores *dashboard.Stores, refresher *dashboard.Refresher, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		ctx:       ctx,
		stores:    stores,
		refresher: refresher,
		logger:    logger.With("component", "stream"),
		upgrader: websocket.Upgrader{
			// Origin checks are left to the CORS configuration of the HTTP layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	for _, key := range sensor.Keys {
		h.unsubs = append(h.unsubs, stores.For(key).Subscribe(func(e dashboard.Entry) {
			h.broadcast(sensorMessage(key, e))
		}))
	}
	h.unsubs = append(h.unsubs, stores.RelativeScale.Subscribe(func(v bool) {
		h.broadcast(relativeScaleMessage(v))
	}))
	return h
}

func (h *Hub) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /stream", h)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan Message, sendBuffer)}

	h.mu.Lock()
	for _, key := range sensor.Keys {
		c.send <- sensorMessage(key, h.stores.For(key).Get())
	}
	c.send <- relativeScaleMessage(h.stores.RelativeScale.Get())
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected", "remote", r.RemoteAddr, "clients", n)
	go h.writeLoop(c)
	go h.readLoop(c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Close() {
	h.mu.Lock()
	unsubs := h.unsubs
	h.unsubs = nil
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	for _, c := range clients {
		h.drop(c)
	}
}

// broadcast queues msg for every client. A client whose buffer is full is
// too slow to keep up and gets disconnected.
func (h *Hub) broadcast(msg Message) {
	var slow []*client
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", "remote", c.conn.RemoteAddr().String())
		h.drop(c)
	}
}

func (h *Hub) drop(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		close(c.send)
		h.mu.Unlock()
	})
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.logger.Info("client write failed", "remote", c.conn.RemoteAddr().String(), "error", err)
			h.drop(c)
			// Drain so drop's close is observed and the loop ends.
			for range c.send {
			}
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) readLoop(c *client) {
	defer func() {
		h.drop(c)
		c.conn.Close()
	}()
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Info("client disconnected", "remote", c.conn.RemoteAddr().String(), "error", err)
			}
			return
		}
		if msg := h.apply(cmd); msg != nil {
			h.reply(c, *msg)
		}
	}
}

// apply runs one client command and returns an error message for the client
// when the command is invalid.
func (h *Hub) apply(cmd Command) *Message {
	switch cmd.Type {
	case TypeSetVisibility:
		key, err := sensor.ParseKey(cmd.Sensor)
		if err != nil {
			return errorMessage(err.Error())
		}
		if cmd.IsVisible == nil {
			return errorMessage("isVisible is required")
		}
		h.stores.SetVisible(key, *cmd.IsVisible)
	case TypeSetRelativeScale:
		if cmd.RelativeScale == nil {
			return errorMessage("relativeScale is required")
		}
		h.stores.RelativeScale.Set(*cmd.RelativeScale)
	case TypeRefresh:
		h.refresher.Refresh(h.ctx)
	default:
		return errorMessage(fmt.Sprintf("unknown command %q", cmd.Type))
	}
	return nil
}

func (h *Hub) reply(c *client, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func sensorMessage(key sensor.Key, e dashboard.Entry) Message {
	return Message{Type: TypeSensor, Sensor: key, Entry: &e}
}

func relativeScaleMessage(v bool) Message {
	return Message{Type: TypeRelativeScale, RelativeScale: &v}
}

func errorMessage(msg string) *Message {
	return &Message{Type: TypeError, Message: msg}
}
