package broadcast

import "time"

// Conn is the write side of a live connection. Implementations apply their
// own write deadlines.
type Conn interface {
	Write(data []byte) error
	Ping() error
	Close() error
}

// Client is the live connection of one identity.
type Client struct {
	ID   string
	conn Conn
	send chan []byte
}

func newClient(id string, conn Conn, buffer int) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, buffer),
	}
}

// writePump is the only goroutine that writes to the connection. It exits
// when the send queue is closed or a write fails.
func (c *Client) writePump(h *Hub) {
	var tick <-chan time.Time
	if h.cfg.PingPeriod > 0 {
		ticker := time.NewTicker(h.cfg.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.Close()
				return
			}
			if err := c.conn.Write(data); err != nil {
				h.logger.Debug("Write failed, detaching client", "userID", c.ID, "error", err)
				c.fail(h)
				return
			}
		case <-tick:
			if err := c.conn.Ping(); err != nil {
				h.logger.Debug("Ping failed, detaching client", "userID", c.ID, "error", err)
				c.fail(h)
				return
			}
		}
	}
}

// fail closes the connection, which also unblocks the reader, and asks the
// hub to forget this client.
func (c *Client) fail(h *Hub) {
	_ = c.conn.Close()
	go h.detachClient(c)
}
