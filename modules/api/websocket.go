package api

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/7498valo/chat-v2/modules/broadcast"
	"github.com/7498valo/chat-v2/modules/session"
	"github.com/gofiber/contrib/websocket"
)

var (
	errConnReleased  = errors.New("connection released")
	errFrameTooLarge = errors.New("frame too large")
)

// hardFrameLimit is the transport read limit. Frames above MaxFrameBytes but
// under this limit are read, discarded, and the connection stays open.
const hardFrameLimit = 1 << 20

// frameSource yields inbound WebSocket messages one at a time.
type frameSource interface {
	NextReader() (messageType int, r io.Reader, err error)
}

// wsConn adapts a Fiber WebSocket connection to broadcast.Conn. The hub's
// write pump may outlive the handler, so every use is guarded and the
// connection is released exactly once.
type wsConn struct {
	mu        sync.Mutex
	c         *websocket.Conn
	writeWait time.Duration
	released  bool
}

var _ broadcast.Conn = (*wsConn)(nil)

func (w *wsConn) Write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return errConnReleased
	}
	if err := w.c.SetWriteDeadline(time.Now().Add(w.writeWait)); err != nil {
		return err
	}
	return w.c.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return errConnReleased
	}
	if err := w.c.SetWriteDeadline(time.Now().Add(w.writeWait)); err != nil {
		return err
	}
	return w.c.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsConn) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return nil
	}
	w.released = true
	return w.c.Close()
}

// handleWebSocket handles WebSocket connections at /ws. It owns the read side
// of the connection and feeds every frame to a session.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	conn := &wsConn{c: c, writeWait: m.cfg.WriteWait}
	sess := session.New(context.Background(), m.chatAdapter, m.hub, conn, m.logger)

	defer func() {
		sess.Close()
		_ = conn.Close()
		m.logger.Debug("WebSocket disconnected", "userID", sess.UserID())
	}()

	c.SetReadLimit(int64(max(m.cfg.MaxFrameBytes, hardFrameLimit)))
	_ = c.SetReadDeadline(time.Now().Add(m.cfg.PongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(m.cfg.PongWait))
	})

	m.logger.Debug("WebSocket connected", "remote", c.RemoteAddr().String())

	err := m.serveFrames(c, sess.HandleFrame)
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		m.logger.Warn("WebSocket read error", "userID", sess.UserID(), "error", err)
	}
}

// serveFrames passes every text frame up to MaxFrameBytes to handle until
// the source fails. Larger frames are dropped.
func (m *APIModule) serveFrames(src frameSource, handle func([]byte)) error {
	for {
		msgType, r, err := src.NextReader()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		data, err := readFrame(r, m.cfg.MaxFrameBytes)
		if errors.Is(err, errFrameTooLarge) {
			m.logger.Debug("Dropping oversized frame", "limit", m.cfg.MaxFrameBytes)
			continue
		}
		if err != nil {
			return err
		}
		handle(data)
	}
}

// readFrame reads at most limit bytes from r. A longer frame is drained and
// reported as errFrameTooLarge.
func readFrame(r io.Reader, limit int) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(data) <= limit {
		return data, nil
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	return nil, errFrameTooLarge
}
