package events

import (
	"time"

	domain "github.com/7498valo/chat-v2/domain/chat"
	"github.com/go-monolith/mono/pkg/helper"
)

// UserJoinedEvent is emitted when an identity logs in.
type UserJoinedEvent struct {
	User      domain.Identity `json:"user"`
	Timestamp time.Time       `json:"timestamp"`
}

// UserLeftEvent is emitted when an identity's connection goes away.
type UserLeftEvent struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageSentEvent is emitted after a message is appended to a room.
// Members is the room's member set at send time.
type MessageSentEvent struct {
	Message domain.Message `json:"message"`
	Members []string       `json:"members"`
}

// TypingEvent is emitted when a member is typing in a room.
type TypingEvent struct {
	RoomKey   string    `json:"roomKey"`
	SenderID  string    `json:"senderId"`
	Members   []string  `json:"members"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"chat",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"chat",
		"UserLeft",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	TypingV1 = helper.EventDefinition[TypingEvent](
		"chat",
		"Typing",
		"v1",
	)
)
