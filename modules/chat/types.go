package chat

import (
	"strings"
	"unicode/utf8"

	domain "github.com/7498valo/chat-v2/domain/chat"
)

// Validation constants
const (
	MaxNameLength     = 50
	MaxAvatarLength   = 256
	MaxRoomNameLength = 100
	MaxMessageLength  = 5000
)

// ValidateName trims a display name and checks it.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameEmpty
	}
	if !utf8.ValidString(name) {
		return "", ErrNameInvalid
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

// ValidateAvatar trims an avatar token and checks it. An empty avatar is allowed.
func ValidateAvatar(avatar string) (string, error) {
	avatar = strings.TrimSpace(avatar)
	if len(avatar) > MaxAvatarLength {
		return "", ErrAvatarTooLong
	}
	return avatar, nil
}

// ValidateRoomName validates a group room name.
func ValidateRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrRoomNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxRoomNameLength {
		return "", ErrRoomNameLong
	}
	return name, nil
}

// ValidateMessage checks message text against its kind and returns the
// effective kind. An empty kind means plain text.
func ValidateMessage(text string, kind domain.MessageKind) (domain.MessageKind, error) {
	if kind == "" {
		kind = domain.KindText
	}
	if !kind.Valid() {
		return "", ErrMessageKind
	}
	if kind == domain.KindText && strings.TrimSpace(text) == "" {
		return "", ErrMessageEmpty
	}
	if len(text) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	if !utf8.ValidString(text) {
		return "", ErrMessageInvalid
	}
	return kind, nil
}

// LoginRequest is the request for the login service.
type LoginRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// LoginResponse carries the new identity and everyone else online.
type LoginResponse struct {
	Me     domain.Identity   `json:"me"`
	Others []domain.Identity `json:"others"`
	Fault  *Fault            `json:"fault,omitempty"`
}

// LogoutRequest is the request for the logout service.
type LogoutRequest struct {
	UserID string `json:"userId"`
}

// OpenRoomRequest opens a direct room with PartnerID or an existing room by RoomKey.
type OpenRoomRequest struct {
	UserID    string `json:"userId"`
	PartnerID string `json:"partnerId,omitempty"`
	RoomKey   string `json:"roomKey,omitempty"`
}

// OpenRoomResponse is the room snapshot plus full history.
type OpenRoomResponse struct {
	Room     domain.RoomView  `json:"room"`
	Messages []domain.Message `json:"messages"`
	Fault    *Fault           `json:"fault,omitempty"`
}

// SendMessageRequest addresses a room by RoomKey or a direct partner by PartnerID.
type SendMessageRequest struct {
	SenderID  string             `json:"senderId"`
	RoomKey   string             `json:"roomKey,omitempty"`
	PartnerID string             `json:"partnerId,omitempty"`
	Text      string             `json:"text"`
	Kind      domain.MessageKind `json:"kind,omitempty"`
}

// SendMessageResponse is the appended message.
type SendMessageResponse struct {
	Message domain.Message `json:"message"`
	Fault   *Fault         `json:"fault,omitempty"`
}

// RoomActionRequest names a member acting on a room (typing, read).
type RoomActionRequest struct {
	UserID  string `json:"userId"`
	RoomKey string `json:"roomKey"`
}

// AckResponse is returned by services with no payload.
type AckResponse struct {
	OK    bool   `json:"ok"`
	Fault *Fault `json:"fault,omitempty"`
}

// ListUsersRequest is the request for the list-users service.
type ListUsersRequest struct{}

// ListUsersResponse lists online identities.
type ListUsersResponse struct {
	Users []domain.Identity `json:"users"`
}

// ListRoomsRequest is the request for the list-rooms service.
type ListRoomsRequest struct {
	UserID string `json:"userId"`
}

// ListRoomsResponse lists a member's rooms, newest first.
type ListRoomsResponse struct {
	Rooms []domain.RoomView `json:"rooms"`
	Fault *Fault            `json:"fault,omitempty"`
}

// GetHistoryRequest is the request for the get-history service.
type GetHistoryRequest struct {
	RoomKey string `json:"roomKey"`
}

// GetHistoryResponse is a room's full history in append order.
type GetHistoryResponse struct {
	Messages []domain.Message `json:"messages"`
	Fault    *Fault           `json:"fault,omitempty"`
}

// CreateGroupRequest is the request for the create-group service.
type CreateGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

// CreateGroupResponse is the new group room as seen by its first member.
type CreateGroupResponse struct {
	Room  domain.RoomView `json:"room"`
	Fault *Fault          `json:"fault,omitempty"`
}
