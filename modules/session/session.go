// Package session drives one WebSocket connection through its lifecycle:
// login, room traffic, and logout on disconnect.
package session

import (
	"context"
	"errors"

	domain "github.com/7498valo/chat-v2/domain/chat"
	"github.com/7498valo/chat-v2/modules/broadcast"
	"github.com/7498valo/chat-v2/modules/chat"
	"github.com/7498valo/chat-v2/protocol"
	"github.com/go-monolith/mono/pkg/types"
)

// State is the lifecycle state of a session.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	Closed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Presence binds identities to live connections and delivers direct replies.
// *broadcast.Hub satisfies it.
type Presence interface {
	Attach(id string, conn broadcast.Conn)
	Detach(id string)
	SendToOne(id string, event any)
}

var _ Presence = (*broadcast.Hub)(nil)

// Session handles the inbound frames of a single connection. It is driven by
// the connection's reader goroutine and is not safe for concurrent use.
type Session struct {
	ctx      context.Context
	chat     chat.ChatPort
	presence Presence
	conn     broadcast.Conn
	logger   types.Logger

	state  State
	userID string
}

var _ protocol.Handler = (*Session)(nil)

// New creates an unauthenticated session for conn.
func New(ctx context.Context, port chat.ChatPort, presence Presence, conn broadcast.Conn, logger types.Logger) *Session {
	return &Session{
		ctx:      ctx,
		chat:     port,
		presence: presence,
		conn:     conn,
		logger:   logger,
		state:    Unauthenticated,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// UserID returns the bound identity, empty until login.
func (s *Session) UserID() string {
	return s.userID
}

// HandleFrame decodes and dispatches one inbound frame. Frames that cannot
// be decoded are dropped; the connection stays open.
func (s *Session) HandleFrame(data []byte) {
	if s.state == Closed {
		return
	}
	frame, err := protocol.Decode(data)
	if err != nil {
		s.logger.Debug("Dropping inbound frame", "userID", s.userID, "error", err)
		return
	}
	frame.Dispatch(s)
}

// Close ends the session. An authenticated identity is logged out, which
// marks it offline and announces the departure, and its connection is
// unbound. Closing twice is a no-op.
func (s *Session) Close() {
	if s.state == Closed {
		return
	}
	wasAuthenticated := s.state == Authenticated
	s.state = Closed
	if !wasAuthenticated {
		return
	}

	if err := s.chat.Logout(context.WithoutCancel(s.ctx), s.userID); err != nil {
		s.report("logout", err)
	}
	s.presence.Detach(s.userID)
	s.logger.Info("Session closed", "userID", s.userID)
}

// HandleLogin registers a new identity and binds it to this connection.
func (s *Session) HandleLogin(f protocol.Login) {
	if s.state != Unauthenticated {
		s.logger.Debug("Ignoring LOGIN on authenticated session", "userID", s.userID)
		return
	}

	resp, err := s.chat.Login(s.ctx, f.Name, f.Avatar)
	if err != nil {
		s.report("login", err)
		return
	}

	s.userID = resp.Me.ID
	s.state = Authenticated
	s.presence.Attach(s.userID, s.conn)
	s.presence.SendToOne(s.userID, protocol.NewSession(resp.Me, s.roster(resp.Others)))
}

// roster lists the other online identities once the connection is attached.
// Anyone who logs in later reaches this connection as USER_JOINED, so no
// login is missed between the two. On failure the roster taken at login is
// used.
func (s *Session) roster(atLogin []domain.Identity) []domain.Identity {
	users, err := s.chat.ListUsers(s.ctx)
	if err != nil {
		s.report("list users", err)
		return atLogin
	}
	others := make([]domain.Identity, 0, len(users))
	for _, u := range users {
		if u.ID != s.userID {
			others = append(others, u)
		}
	}
	return others
}

// HandleOpenRoom opens a direct room with a partner or an existing room and
// replies with its snapshot and history.
func (s *Session) HandleOpenRoom(f protocol.OpenRoom) {
	if !s.authenticated(protocol.TypeOpenRoom) {
		return
	}

	resp, err := s.chat.OpenRoom(s.ctx, &chat.OpenRoomRequest{
		UserID:    s.userID,
		PartnerID: f.PartnerID,
		RoomKey:   f.RoomID,
	})
	if err != nil {
		s.report("open room", err)
		return
	}
	s.presence.SendToOne(s.userID, protocol.NewRoomOpened(resp.Room, resp.Messages))
}

// HandleSendMessage appends a message. Delivery to members, the sender
// included, happens through the MessageSent event.
func (s *Session) HandleSendMessage(f protocol.SendMessage) {
	if !s.authenticated(protocol.TypeSendMessage) {
		return
	}

	if _, err := s.chat.SendMessage(s.ctx, &chat.SendMessageRequest{
		SenderID:  s.userID,
		RoomKey:   f.RoomKey,
		PartnerID: f.PartnerID,
		Text:      f.Text,
		Kind:      f.Kind,
	}); err != nil {
		s.report("send message", err)
	}
}

// HandleTyping relays a typing indicator to the other room members.
func (s *Session) HandleTyping(f protocol.Typing) {
	if !s.authenticated(protocol.TypeTyping) {
		return
	}
	if err := s.chat.Typing(s.ctx, s.userID, f.RoomKey); err != nil {
		s.report("typing", err)
	}
}

// HandleRead resets this identity's unread counter in a room.
func (s *Session) HandleRead(f protocol.Read) {
	if !s.authenticated(protocol.TypeRead) {
		return
	}
	if err := s.chat.MarkRead(s.ctx, s.userID, f.RoomKey); err != nil {
		s.report("read", err)
	}
}

func (s *Session) authenticated(frameType string) bool {
	if s.state == Authenticated {
		return true
	}
	s.logger.Debug("Dropping frame before login", "type", frameType, "state", s.state.String())
	return false
}

// report logs a failed operation. Client mistakes are debug noise; anything
// else is a fault in the chat core.
func (s *Session) report(op string, err error) {
	if errors.Is(err, chat.ErrValidation) || errors.Is(err, chat.ErrNotFound) {
		s.logger.Debug("Request rejected", "op", op, "userID", s.userID, "error", err)
		return
	}
	s.logger.Error("Request failed", "op", op, "userID", s.userID, "error", err)
}
