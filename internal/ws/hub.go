package ws

import (
	"sync"

	"folio-analytics/pkg/logger"
)

// Message types pushed to subscribers.
const (
	MessageTypeLiveStats = "live_stats"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
)

// Message is one websocket frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks connected dashboard clients and fans broadcast messages out to
// them. Slow clients whose send buffer fills are dropped rather than allowed
// to stall the rest.
type Hub struct {
	clients     map[*Client]bool
	broadcast   chan Message
	register    chan *Client
	unregister  chan *Client
	stopChannel chan struct{}
	logger      *logger.Logger

	mu        sync.Mutex
	isRunning bool
}

// NewHub creates a new hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		broadcast:   make(chan Message, 64),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		stopChannel: make(chan struct{}),
		logger:      logger,
	}
}

// Start launches the hub loop. Calling Start on a running hub is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isRunning {
		return
	}
	h.isRunning = true
	h.stopChannel = make(chan struct{})

	go h.run()
}

// Stop closes every client and terminates the loop.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.isRunning {
		return
	}
	close(h.stopChannel)
	h.isRunning = false
}

// Register enqueues a client for the hub loop to adopt.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister hands a client back to the hub loop. When the hub has already
// stopped the loop is no longer draining, so this must not block; the stopped
// hub closed every send channel itself.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	stop := h.stopChannel
	h.mu.Unlock()

	select {
	case h.unregister <- c:
	case <-stop:
	}
}

// Broadcast queues a message for every connected client. When the broadcast
// buffer is full the message is dropped; live stats are periodic, the next
// tick catches clients up.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		h.logger.WithField("message_type", messageType).Warn("Broadcast buffer full, dropping message")
	}
}

// ClientCount returns how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.WithField("total_clients", total).Debug("Websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.WithField("total_clients", total).Debug("Websocket client disconnected")

		case message := <-h.broadcast:
			h.fanOut(message)

		case <-h.stopChannel:
			h.closeAll()
			return
		}
	}
}

func (h *Hub) fanOut(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
