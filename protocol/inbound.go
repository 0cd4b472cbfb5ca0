// Package protocol defines the JSON frames exchanged over the chat
// WebSocket. Every frame is an object with a string "type" discriminator.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/7498valo/chat-v2/domain/chat"
)

// Inbound frame types.
const (
	TypeLogin       = "LOGIN"
	TypeOpenRoom    = "OPEN_ROOM"
	TypeSendMessage = "SEND_MESSAGE"
	TypeTyping      = "TYPING"
	TypeRead        = "READ"
)

// Decode errors.
var (
	ErrMalformed    = errors.New("malformed frame")
	ErrUnknownType  = errors.New("unknown frame type")
	ErrMissingField = errors.New("missing required field")
)

// Handler receives decoded inbound frames, one method per variant. Adding a
// variant without handling it everywhere fails to compile.
type Handler interface {
	HandleLogin(Login)
	HandleOpenRoom(OpenRoom)
	HandleSendMessage(SendMessage)
	HandleTyping(Typing)
	HandleRead(Read)
}

// Inbound is a decoded client frame.
type Inbound interface {
	Dispatch(h Handler)
}

// Login asks for a new identity.
type Login struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// OpenRoom opens the direct room with PartnerID, or the room RoomID.
type OpenRoom struct {
	PartnerID string `json:"partnerId"`
	RoomID    string `json:"roomId"`
}

// SendMessage posts to RoomKey, or to the direct room with PartnerID.
type SendMessage struct {
	RoomKey   string             `json:"roomKey"`
	PartnerID string             `json:"partnerId"`
	Text      string             `json:"text"`
	Kind      domain.MessageKind `json:"kind"`
}

// Typing signals that the sender is composing in RoomKey.
type Typing struct {
	RoomKey string `json:"roomKey"`
}

// Read marks RoomKey as read by the sender.
type Read struct {
	RoomKey string `json:"roomKey"`
}

func (f Login) Dispatch(h Handler)       { h.HandleLogin(f) }
func (f OpenRoom) Dispatch(h Handler)    { h.HandleOpenRoom(f) }
func (f SendMessage) Dispatch(h Handler) { h.HandleSendMessage(f) }
func (f Typing) Dispatch(h Handler)      { h.HandleTyping(f) }
func (f Read) Dispatch(h Handler)        { h.HandleRead(f) }

// envelope is the union of all inbound fields. roomId is accepted as an
// alias of roomKey wherever a room is addressed.
type envelope struct {
	Type      string             `json:"type"`
	Name      string             `json:"name"`
	Avatar    string             `json:"avatar"`
	PartnerID string             `json:"partnerId"`
	RoomKey   string             `json:"roomKey"`
	RoomID    string             `json:"roomId"`
	Text      string             `json:"text"`
	Kind      domain.MessageKind `json:"kind"`
}

func (e envelope) room() string {
	if e.RoomKey != "" {
		return e.RoomKey
	}
	return e.RoomID
}

// Decode parses one inbound frame.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeLogin:
		return Login{Name: env.Name, Avatar: env.Avatar}, nil
	case TypeOpenRoom:
		if env.PartnerID == "" && env.room() == "" {
			return nil, fmt.Errorf("%w: partnerId or roomId", ErrMissingField)
		}
		return OpenRoom{PartnerID: env.PartnerID, RoomID: env.room()}, nil
	case TypeSendMessage:
		if env.PartnerID == "" && env.room() == "" {
			return nil, fmt.Errorf("%w: roomKey or partnerId", ErrMissingField)
		}
		return SendMessage{
			RoomKey:   env.room(),
			PartnerID: env.PartnerID,
			Text:      env.Text,
			Kind:      env.Kind,
		}, nil
	case TypeTyping:
		if env.room() == "" {
			return nil, fmt.Errorf("%w: roomKey", ErrMissingField)
		}
		return Typing{RoomKey: env.room()}, nil
	case TypeRead:
		if env.room() == "" {
			return nil, fmt.Errorf("%w: roomKey", ErrMissingField)
		}
		return Read{RoomKey: env.room()}, nil
	case "":
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}
