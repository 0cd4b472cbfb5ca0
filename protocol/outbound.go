package protocol

import domain "github.com/7498valo/chat-v2/domain/chat"

// Outbound frame types. TYPING is shared with the inbound set.
const (
	TypeSession    = "SESSION"
	TypeRoomOpened = "ROOM_OPENED"
	TypeNewMessage = "NEW_MESSAGE"
	TypeUserJoined = "USER_JOINED"
	TypeUserLeft   = "USER_LEFT"
)

// SessionFrame answers a successful login.
type SessionFrame struct {
	Type  string            `json:"type"`
	Me    domain.Identity   `json:"me"`
	Users []domain.Identity `json:"users"`
}

// RoomOpenedFrame answers OPEN_ROOM with the room and its full history.
type RoomOpenedFrame struct {
	Type     string           `json:"type"`
	Room     domain.RoomView  `json:"room"`
	Messages []domain.Message `json:"messages"`
}

// NewMessageFrame delivers a message appended to a room.
type NewMessageFrame struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

// UserJoinedFrame announces a new identity.
type UserJoinedFrame struct {
	Type string          `json:"type"`
	User domain.Identity `json:"user"`
}

// UserLeftFrame announces that an identity went offline.
type UserLeftFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// TypingFrame tells room members that someone is typing.
type TypingFrame struct {
	Type     string `json:"type"`
	RoomKey  string `json:"roomKey"`
	SenderID string `json:"senderId"`
}

// NewSession builds the login reply. A nil user list encodes as [].
func NewSession(me domain.Identity, users []domain.Identity) SessionFrame {
	if users == nil {
		users = []domain.Identity{}
	}
	return SessionFrame{Type: TypeSession, Me: me, Users: users}
}

// NewRoomOpened builds the OPEN_ROOM reply with the room's full history.
func NewRoomOpened(room domain.RoomView, messages []domain.Message) RoomOpenedFrame {
	if messages == nil {
		messages = []domain.Message{}
	}
	return RoomOpenedFrame{Type: TypeRoomOpened, Room: room, Messages: messages}
}

// NewNewMessage announces an appended message to the room members.
func NewNewMessage(msg domain.Message) NewMessageFrame {
	return NewMessageFrame{Type: TypeNewMessage, Message: msg}
}

// NewUserJoined announces a login.
func NewUserJoined(user domain.Identity) UserJoinedFrame {
	return UserJoinedFrame{Type: TypeUserJoined, User: user}
}

// NewUserLeft announces a disconnect.
func NewUserLeft(userID string) UserLeftFrame {
	return UserLeftFrame{Type: TypeUserLeft, UserID: userID}
}

// NewTyping relays a typing indicator.
func NewTyping(roomKey, senderID string) TypingFrame {
	return TypingFrame{Type: TypeTyping, RoomKey: roomKey, SenderID: senderID}
}
