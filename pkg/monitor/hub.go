// Package monitor fans decoded P25 messages out to connected websocket
// clients. Unlike a generic multi-event pub/sub bus, a monitor client
// only ever wants one thing: messages, optionally narrowed to a set of
// Data Unit types (a trunking dashboard cares about TSBK1/TSBK2/TSBK3
// and nothing else; a voice-activity panel wants HDU/LDU/TDU and
// nothing else). The hub accepts that filter per connection and checks
// it in the same broadcast loop that fans the event out, so an
// uninterested client never takes channel-buffer pressure for traffic
// it filtered out.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dbehnke/p25framer/pkg/logger"
	"github.com/dbehnke/p25framer/pkg/message"
)

// messageEvent is the JSON shape broadcast for every decoded message.
type messageEvent struct {
	DUID      string      `json:"duid"`
	ID        string      `json:"id"`
	NAC       uint64      `json:"nac"`
	Length    int         `json:"length,omitempty"`
	TSBK      interface{} `json:"tsbk,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func (e *messageEvent) marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Client is a single websocket connection with an optional DUID
// filter. An empty filter means "subscribed to everything".
type Client struct {
	ID       string
	conn     *websocket.Conn
	messages chan []byte
	filter   map[string]bool
}

// wants reports whether this client should receive a message of the
// given DUID name.
func (c *Client) wants(duidName string) bool {
	if len(c.filter) == 0 {
		return true
	}
	return c.filter[duidName]
}

// Hub manages websocket client connections and fans decoded messages
// out to each, honoring per-client DUID filters.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan messageEvent
	register   chan *Client
	unregister chan *Client
	log        *logger.Logger
	mu         sync.RWMutex
}

// New creates a Hub. Call Run in its own goroutine to start the event
// loop before attaching it as a Framer listener.
func New(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.New(logger.Config{Level: "info"})
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan messageEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.WithComponent("monitor"),
	}
}

// Run starts the hub's event loop until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("client registered",
				logger.String("client_id", client.ID),
				logger.Int("filter_count", len(client.filter)))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.messages)
			}
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.String("client_id", client.ID))

		case event := <-h.broadcast:
			data, err := event.marshal()
			if err != nil {
				h.log.Error("failed to marshal event", logger.Error(err))
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				if !client.wants(event.DUID) {
					continue
				}
				select {
				case client.messages <- data:
				default:
					h.log.Warn("client message buffer full, skipping", logger.String("client_id", client.ID))
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.log.Info("monitor hub shutting down")
			h.mu.Lock()
			for client := range h.clients {
				close(client.messages)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Dispatch implements message.Sink: every decoded message is enqueued
// for delivery to subscribed clients, dropped with a logged warning if
// the broadcast channel itself is saturated.
func (h *Hub) Dispatch(msg message.Message) {
	event := messageEvent{
		DUID:      msg.DUID.String(),
		ID:        msg.ID.String(),
		NAC:       msg.NAC,
		Timestamp: msg.ReceivedAt,
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if msg.Payload != nil {
		event.Length = msg.Payload.Len()
	}
	if msg.TSBK != nil {
		event.TSBK = msg.TSBK
	}

	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("broadcast channel full, dropping event", logger.String("duid", event.DUID))
	}
}

// Handler returns an HTTP handler upgrading connections to websockets.
// A connection may narrow its subscription with ?duid=TSBK1,TSBK2 (a
// comma-separated list of DUID names); omitting the query parameter
// subscribes to every decoded message.
func (h *Hub) Handler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
			return
		}
		client := &Client{
			ID:       r.RemoteAddr,
			conn:     conn,
			messages: make(chan []byte, 256),
			filter:   parseFilter(r.URL.Query().Get("duid")),
		}
		h.register <- client

		go func() {
			defer func() {
				h.unregister <- client
				_ = client.conn.Close()
			}()
			client.conn.SetReadLimit(1024)
			for {
				if _, _, err := client.conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		go func() {
			for msg := range client.messages {
				_ = client.conn.WriteMessage(websocket.TextMessage, msg)
			}
		}()
	})
}

// parseFilter splits a comma-separated DUID name list into a lookup
// set. An empty string yields a nil (unfiltered) map.
func parseFilter(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	names := strings.Split(raw, ",")
	filter := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			filter[name] = true
		}
	}
	return filter
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
