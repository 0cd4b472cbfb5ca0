package chat

import "time"

// MessageKind tags the payload carried by a message.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
	KindAudio MessageKind = "audio"
	KindVideo MessageKind = "video"
)

// Valid reports whether k is a known message kind.
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindFile, KindAudio, KindVideo:
		return true
	}
	return false
}

// RoomKind distinguishes two-party rooms from named group rooms.
type RoomKind string

const (
	RoomDirect RoomKind = "direct"
	RoomGroup  RoomKind = "group"
)

// Identity is an ephemeral participant created at login.
type Identity struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	Online   bool      `json:"online"`
	JoinedAt time.Time `json:"joinedAt"`
	LeftAt   time.Time `json:"leftAt,omitzero"`
}

// Message is an immutable entry in a room's history.
type Message struct {
	ID        string      `json:"id"`
	RoomKey   string      `json:"roomKey"`
	SenderID  string      `json:"senderId"`
	Text      string      `json:"text"`
	Kind      MessageKind `json:"kind"`
	CreatedAt time.Time   `json:"createdAt"`
}

// RoomView is a room projected for a single viewer.
type RoomView struct {
	Key         string    `json:"key"`
	Kind        RoomKind  `json:"kind"`
	Name        string    `json:"name,omitempty"`
	Members     []string  `json:"members"`
	Partner     *Identity `json:"partner,omitempty"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
	Unread      int       `json:"unread"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LeftPlaceholder stands in for a room partner the registry no longer knows.
func LeftPlaceholder(id string) Identity {
	return Identity{ID: id, Name: "left", Online: false}
}
