package observerhub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smilemakc/noteflow/internal/logger"
)

// WebSocketObserver broadcasts FSM transition events to WebSocket clients.
type WebSocketObserver struct {
	name   string
	filter EventFilter
	logger *logger.Logger
	hub    *WebSocketHub
}

// WebSocketClient is a single connected WebSocket watcher.
type WebSocketClient struct {
	ID    string
	conn  *websocket.Conn
	send  chan []byte
	hub   *WebSocketHub
	runID string // optional run filter; "" means all runs
	mu    sync.RWMutex
}

// WebSocketHub fans out broadcast messages to connected clients.
type WebSocketHub struct {
	clients    map[*WebSocketClient]bool
	broadcast  chan []byte
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	logger     *logger.Logger
	mu         sync.RWMutex
}

// WebSocketMessage is the envelope written to each client.
type WebSocketMessage struct {
	Type      string        `json:"type"`
	Event     *EventPayload `json:"event,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// EventPayload is the WebSocket-friendly rendering of an Event.
type EventPayload struct {
	EventType  string    `json:"event_type"`
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	FromState  string    `json:"from_state,omitempty"`
	ToState    string    `json:"to_state,omitempty"`
	Trigger    string    `json:"trigger,omitempty"`
	StageID    *string   `json:"stage_id,omitempty"`
	StepID     *string   `json:"step_id,omitempty"`
	BehaviorID *string   `json:"behavior_id,omitempty"`
	Status     string    `json:"status"`
	Error      *string   `json:"error,omitempty"`
	DurationMs *int64    `json:"duration_ms,omitempty"`
}

// NewWebSocketHub creates and starts a hub's broadcast loop.
func NewWebSocketHub(log *logger.Logger) *WebSocketHub {
	hub := &WebSocketHub{
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		logger:     log,
	}
	go hub.run()
	return hub
}

// NewWebSocketObserver wraps a hub as an Observer.
func NewWebSocketObserver(hub *WebSocketHub, opts ...func(*WebSocketObserver)) *WebSocketObserver {
	obs := &WebSocketObserver{name: "websocket", hub: hub}
	for _, opt := range opts {
		opt(obs)
	}
	return obs
}

// WithWebSocketFilter sets the observer's event filter.
func WithWebSocketFilter(filter EventFilter) func(*WebSocketObserver) {
	return func(o *WebSocketObserver) { o.filter = filter }
}

// WithWebSocketLogger sets the observer's logger.
func WithWebSocketLogger(l *logger.Logger) func(*WebSocketObserver) {
	return func(o *WebSocketObserver) { o.logger = l }
}

func (o *WebSocketObserver) Name() string        { return o.name }
func (o *WebSocketObserver) Filter() EventFilter  { return o.filter }
func (o *WebSocketObserver) GetHub() *WebSocketHub { return o.hub }

// OnEvent marshals the event and broadcasts it to the run's watchers.
func (o *WebSocketObserver) OnEvent(ctx context.Context, event Event) error {
	message := o.eventToMessage(event)
	data, err := json.Marshal(message)
	if err != nil {
		if o.logger != nil {
			o.logger.ErrorContext(ctx, "failed to marshal websocket message", "error", err, "event_type", string(event.Type))
		}
		return fmt.Errorf("marshal websocket message: %w", err)
	}
	o.hub.BroadcastToRun(event.RunID, data)
	return nil
}

func (o *WebSocketObserver) eventToMessage(event Event) *WebSocketMessage {
	payload := &EventPayload{
		EventType:  string(event.Type),
		RunID:      event.RunID,
		Timestamp:  event.Timestamp,
		FromState:  event.FromState,
		ToState:    event.ToState,
		Trigger:    event.Trigger,
		StageID:    event.StageID,
		StepID:     event.StepID,
		BehaviorID: event.BehaviorID,
		Status:     event.Status,
		DurationMs: event.DurationMs,
	}
	if event.Error != nil {
		errStr := event.Error.Error()
		payload.Error = &errStr
	}
	return &WebSocketMessage{Type: "event", Event: payload, Timestamp: time.Now()}
}

func (h *WebSocketHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a new client to the hub.
func (h *WebSocketHub) Register(client *WebSocketClient) { h.register <- client }

// Unregister removes a client from the hub.
func (h *WebSocketHub) Unregister(client *WebSocketClient) { h.unregister <- client }

// Broadcast sends a message to every connected client.
func (h *WebSocketHub) Broadcast(message []byte) { h.broadcast <- message }

// BroadcastToRun sends a message to clients with no run filter or a
// matching run filter.
func (h *WebSocketHub) BroadcastToRun(runID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.runID == "" || client.runID == runID {
			select {
			case client.send <- message:
			default:
				if h.logger != nil {
					h.logger.Warn("websocket client send buffer full, skipping message", "client_id", client.ID)
				}
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewWebSocketClient wraps a live connection for the hub's register/send loop.
func NewWebSocketClient(id string, conn *websocket.Conn, hub *WebSocketHub, runID string) *WebSocketClient {
	return &WebSocketClient{ID: id, conn: conn, send: make(chan []byte, 256), hub: hub, runID: runID}
}

// WritePump drains the client's send channel to the socket, pinging
// periodically to keep the connection alive.
func (c *WebSocketClient) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump discards inbound client traffic and unregisters on disconnect.
func (c *WebSocketClient) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
