package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// Config holds the fan-out tuning knobs.
type Config struct {
	// SendBuffer is the per-connection queue length. A peer whose queue is
	// full is dropped.
	SendBuffer int
	// QueueSize is the length of the hub's inbound delivery queue.
	QueueSize int
	// PingPeriod is how often idle connections are pinged. Zero disables pings.
	PingPeriod time.Duration
}

// DefaultConfig returns the defaults used when a field is unset.
func DefaultConfig() Config {
	return Config{
		SendBuffer: 256,
		QueueSize:  1024,
		PingPeriod: 54 * time.Second,
	}
}

func (c Config) sanitize() Config {
	def := DefaultConfig()
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.PingPeriod < 0 {
		c.PingPeriod = 0
	}
	return c
}

type scope int

const (
	scopeOne scope = iota
	scopeAll
	scopeMembers
)

// delivery is one marshalled event and the connections it targets.
type delivery struct {
	scope     scope
	target    string
	roomKey   string
	members   []string
	excluding string
	data      []byte
}

// detachRequest names the identity to unbind. A non-nil client restricts the
// request to that exact connection.
type detachRequest struct {
	id     string
	client *Client
}

// Hub owns the live connection of every online identity and fans events out
// to them. Delivery is best-effort and at-most-once: nothing is queued for
// offline identities and nothing is retried.
type Hub struct {
	clients    map[string]*Client // identityID -> Client
	register   chan *Client
	unregister chan detachRequest
	deliver    chan *delivery
	done       chan struct{}
	mu         sync.RWMutex
	wg         sync.WaitGroup
	cfg        Config
	logger     types.Logger
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub(cfg Config, logger types.Logger) *Hub {
	cfg = cfg.sanitize()
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan detachRequest),
		deliver:    make(chan *delivery, cfg.QueueSize),
		done:       make(chan struct{}),
		cfg:        cfg,
		logger:     logger,
	}
}

// Run starts the hub's main loop. All registration changes and fan-out
// happen on this goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllClients()
			h.wg.Wait()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case req := <-h.unregister:
			h.handleUnregister(req)
		case d := <-h.deliver:
			h.handleDeliver(d)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Attach binds conn as the live connection of identity id. Events sent after
// Attach returns reach the connection.
func (h *Hub) Attach(id string, conn Conn) {
	client := newClient(id, conn, h.cfg.SendBuffer)
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
	}
}

// Detach unbinds the live connection of identity id. Unknown ids are ignored.
func (h *Hub) Detach(id string) {
	h.requestDetach(detachRequest{id: id})
}

// detachClient unbinds client only if it is still the live connection of
// its identity.
func (h *Hub) detachClient(client *Client) {
	h.requestDetach(detachRequest{id: client.ID, client: client})
}

func (h *Hub) requestDetach(req detachRequest) {
	select {
	case h.unregister <- req:
	case <-h.done:
	}
}

// SendToOne delivers event to identity id if it is connected.
func (h *Hub) SendToOne(id string, event any) {
	h.enqueue(&delivery{scope: scopeOne, target: id}, event)
}

// SendToAll delivers event to every live connection except excludingID.
func (h *Hub) SendToAll(event any, excludingID string) {
	h.enqueue(&delivery{scope: scopeAll, excluding: excludingID}, event)
}

// SendToRoomMembers delivers event to the live connections of the given room
// members, skipping excludingID and members that are offline.
func (h *Hub) SendToRoomMembers(roomKey string, memberIDs []string, event any, excludingID string) {
	h.enqueue(&delivery{
		scope:     scopeMembers,
		roomKey:   roomKey,
		members:   memberIDs,
		excluding: excludingID,
	}, event)
}

// enqueue marshals event once and hands it to the hub loop without blocking.
func (h *Hub) enqueue(d *delivery, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event", "error", err)
		return
	}
	d.data = data

	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.deliver <- d:
	default:
		h.logger.Warn("Delivery queue full, dropping event", "target", d.target, "roomKey", d.roomKey)
	}
}

// closeAllClients closes all connected client connections.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		_ = client.conn.Close()
		close(client.send)
		delete(h.clients, id)
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	if old, ok := h.clients[client.ID]; ok {
		close(old.send)
	}
	h.clients[client.ID] = client
	count := len(h.clients)
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		client.writePump(h)
	}()
	h.logger.Debug("Client attached", "userID", client.ID, "clients", count)
}

func (h *Hub) handleUnregister(req detachRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[req.id]
	if !ok || (req.client != nil && req.client != client) {
		return
	}
	delete(h.clients, req.id)
	close(client.send)
	h.logger.Debug("Client detached", "userID", req.id, "clients", len(h.clients))
}

func (h *Hub) handleDeliver(d *delivery) {
	targets := h.targets(d)

	var failed []*Client
	for _, client := range targets {
		select {
		case client.send <- d.data:
		default:
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)
}

// targets returns a snapshot of the live clients a delivery addresses.
func (h *Hub) targets(d *delivery) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch d.scope {
	case scopeOne:
		if client, ok := h.clients[d.target]; ok {
			return []*Client{client}
		}
		return nil
	case scopeAll:
		clients := make([]*Client, 0, len(h.clients))
		for id, client := range h.clients {
			if id != d.excluding {
				clients = append(clients, client)
			}
		}
		return clients
	case scopeMembers:
		clients := make([]*Client, 0, len(d.members))
		for _, id := range d.members {
			if id == d.excluding {
				continue
			}
			if client, ok := h.clients[id]; ok {
				clients = append(clients, client)
			}
		}
		return clients
	}
	return nil
}

// removeFailedClients drops peers whose send queue is full.
func (h *Hub) removeFailedClients(clients []*Client) {
	if len(clients) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range clients {
		if current, ok := h.clients[client.ID]; ok && current == client {
			delete(h.clients, client.ID)
			close(client.send)
			h.logger.Warn("Client dropped due to full send buffer", "userID", client.ID)
		}
	}
}

// IsOnline reports whether identity id has a live connection.
func (h *Hub) IsOnline(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[id]
	return ok
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
