package chat

import (
	"context"
	"fmt"
	"time"

	domain "github.com/7498valo/chat-v2/domain/chat"
	"github.com/7498valo/chat-v2/events"
	"github.com/go-monolith/mono/pkg/types"
)

// ChatPort defines the chat operations used by driving adapters (the
// WebSocket session and the HTTP query API).
type ChatPort interface {
	Login(ctx context.Context, name, avatar string) (*LoginResponse, error)
	Logout(ctx context.Context, userID string) error
	OpenRoom(ctx context.Context, req *OpenRoomRequest) (*OpenRoomResponse, error)
	SendMessage(ctx context.Context, req *SendMessageRequest) (*domain.Message, error)
	Typing(ctx context.Context, userID, roomKey string) error
	MarkRead(ctx context.Context, userID, roomKey string) error
	ListUsers(ctx context.Context) ([]domain.Identity, error)
	ListRooms(ctx context.Context, userID string) ([]domain.RoomView, error)
	GetHistory(ctx context.Context, roomKey string) ([]domain.Message, error)
	CreateGroup(ctx context.Context, name string, memberIDs []string) (*domain.RoomView, error)
}

// Publisher emits chat domain events. Publishing is best-effort.
type Publisher interface {
	UserJoined(event events.UserJoinedEvent) error
	UserLeft(event events.UserLeftEvent) error
	MessageSent(event events.MessageSentEvent) error
	Typing(event events.TypingEvent) error
}

// Service implements ChatPort over the identity registry and room store.
type Service struct {
	registry  *Registry
	store     *RoomStore
	publisher Publisher
	logger    types.Logger
}

var _ ChatPort = (*Service)(nil)

// NewService creates a chat service.
func NewService(registry *Registry, store *RoomStore, publisher Publisher, logger types.Logger) *Service {
	return &Service{
		registry:  registry,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Registry returns the identity registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Store returns the room store.
func (s *Service) Store() *RoomStore {
	return s.store
}

// Login registers a new identity and announces it.
func (s *Service) Login(_ context.Context, name, avatar string) (*LoginResponse, error) {
	me, err := s.registry.Register(name, avatar)
	if err != nil {
		return nil, err
	}

	s.warnIfFailed("UserJoined", s.publisher.UserJoined(events.UserJoinedEvent{
		User:      me,
		Timestamp: me.JoinedAt,
	}))
	s.logger.Info("User logged in", "userID", me.ID, "name", me.Name)

	return &LoginResponse{
		Me:     me,
		Others: s.registry.ListOthers(me.ID),
	}, nil
}

// Logout marks an identity offline and announces it. Unknown or already
// offline identities are ignored.
func (s *Service) Logout(_ context.Context, userID string) error {
	identity, changed := s.registry.Unregister(userID)
	if !changed {
		return nil
	}

	s.warnIfFailed("UserLeft", s.publisher.UserLeft(events.UserLeftEvent{
		UserID:    identity.ID,
		Name:      identity.Name,
		Timestamp: identity.LeftAt,
	}))
	s.logger.Info("User logged out", "userID", identity.ID)
	return nil
}

// OpenRoom opens a direct room with a partner, or an existing room by key,
// and resets the caller's unread counter for it.
func (s *Service) OpenRoom(_ context.Context, req *OpenRoomRequest) (*OpenRoomResponse, error) {
	if _, ok := s.registry.Lookup(req.UserID); !ok {
		return nil, ErrIdentityNotFound
	}

	key, err := s.resolveRoom(req.UserID, req.RoomKey, req.PartnerID)
	if err != nil {
		return nil, err
	}

	view, history, err := s.store.Open(key, req.UserID)
	if err != nil {
		return nil, err
	}

	return &OpenRoomResponse{Room: view, Messages: history}, nil
}

// SendMessage appends a message and announces it to the room.
func (s *Service) SendMessage(_ context.Context, req *SendMessageRequest) (*domain.Message, error) {
	if _, err := ValidateMessage(req.Text, req.Kind); err != nil {
		return nil, err
	}
	if _, ok := s.registry.Lookup(req.SenderID); !ok {
		return nil, ErrIdentityNotFound
	}

	key, err := s.resolveRoom(req.SenderID, req.RoomKey, req.PartnerID)
	if err != nil {
		return nil, err
	}

	msg, err := s.store.AppendMessage(key, req.SenderID, req.Text, req.Kind)
	if err != nil {
		return nil, err
	}
	members, err := s.store.Members(key)
	if err != nil {
		return nil, err
	}

	s.warnIfFailed("MessageSent", s.publisher.MessageSent(events.MessageSentEvent{
		Message: msg,
		Members: members,
	}))
	s.logger.Debug("Message sent", "userID", req.SenderID, "roomKey", key, "messageID", msg.ID)

	return &msg, nil
}

// Typing notifies the other members of a room. No state changes.
func (s *Service) Typing(_ context.Context, userID, roomKey string) error {
	room, err := s.memberRoom(userID, roomKey)
	if err != nil {
		return err
	}

	s.warnIfFailed("Typing", s.publisher.Typing(events.TypingEvent{
		RoomKey:   room.Key(),
		SenderID:  userID,
		Members:   room.Members(),
		Timestamp: time.Now(),
	}))
	return nil
}

// MarkRead resets the member's unread counter for a room.
func (s *Service) MarkRead(_ context.Context, userID, roomKey string) error {
	if _, err := s.memberRoom(userID, roomKey); err != nil {
		return err
	}
	s.store.ResetUnread(roomKey, userID)
	return nil
}

// ListUsers returns the online identities.
func (s *Service) ListUsers(_ context.Context) ([]domain.Identity, error) {
	return s.registry.ListOnline(), nil
}

// ListRooms returns a known identity's rooms, newest first.
func (s *Service) ListRooms(_ context.Context, userID string) ([]domain.RoomView, error) {
	if _, ok := s.registry.Lookup(userID); !ok {
		return nil, ErrIdentityNotFound
	}
	return s.store.RoomsFor(userID), nil
}

// GetHistory returns a room's full history.
func (s *Service) GetHistory(_ context.Context, roomKey string) ([]domain.Message, error) {
	if roomKey == "" {
		return nil, ErrMissingField
	}
	return s.store.History(roomKey)
}

// CreateGroup creates a group room between known identities.
func (s *Service) CreateGroup(_ context.Context, name string, memberIDs []string) (*domain.RoomView, error) {
	ids := distinct(memberIDs)
	if len(ids) < 2 {
		return nil, ErrRoomMembers
	}
	for _, id := range ids {
		if _, ok := s.registry.Lookup(id); !ok {
			return nil, fmt.Errorf("member %s: %w", id, ErrIdentityNotFound)
		}
	}

	room, err := s.store.CreateGroup(name, ids)
	if err != nil {
		return nil, err
	}
	view, err := s.store.Snapshot(room.Key(), ids[0])
	if err != nil {
		return nil, err
	}

	s.logger.Info("Group room created", "roomKey", room.Key(), "members", len(ids))
	return &view, nil
}

// resolveRoom returns the key of an existing room the user belongs to, or
// the direct room with partnerID, creating it on first contact.
func (s *Service) resolveRoom(userID, roomKey, partnerID string) (string, error) {
	if roomKey != "" {
		room, err := s.memberRoom(userID, roomKey)
		if err != nil {
			return "", err
		}
		return room.Key(), nil
	}
	if partnerID == "" {
		return "", ErrMissingField
	}
	if partnerID == userID {
		return "", ErrSelfRoom
	}
	if _, ok := s.registry.Lookup(partnerID); !ok {
		return "", ErrIdentityNotFound
	}

	room, created, err := s.store.GetOrCreate([]string{userID, partnerID})
	if err != nil {
		return "", err
	}
	if created {
		s.logger.Debug("Direct room created", "roomKey", room.Key())
	}
	return room.Key(), nil
}

func (s *Service) memberRoom(userID, roomKey string) (*Room, error) {
	if roomKey == "" {
		return nil, ErrMissingField
	}
	room, err := s.store.Get(roomKey)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, ErrNotMember
	}
	return room, nil
}

func (s *Service) warnIfFailed(event string, err error) {
	if err != nil {
		s.logger.Warn("Failed to publish event", "event", event, "error", err)
	}
}
