package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/7498valo/chat-v2/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Request-reply service names exposed by the chat module.
const (
	ServiceLogin       = "login"
	ServiceLogout      = "logout"
	ServiceOpenRoom    = "open-room"
	ServiceSendMessage = "send-message"
	ServiceTyping      = "typing"
	ServiceMarkRead    = "mark-read"
	ServiceListUsers   = "list-users"
	ServiceListRooms   = "list-rooms"
	ServiceGetHistory  = "get-history"
	ServiceCreateGroup = "create-group"
)

var errEventBusNotSet = errors.New("event bus not set")

// Module is the chat core: identity registry, room store and the services
// built on them.
type Module struct {
	service   *Service
	publisher *busPublisher
	logger    types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new chat module with empty stores.
func NewModule(logger types.Logger) *Module {
	logger = logger.WithModule("chat")
	registry := NewRegistry()
	publisher := &busPublisher{}
	return &Module{
		service:   NewService(registry, NewRoomStore(registry), publisher, logger),
		publisher: publisher,
		logger:    logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.publisher.setBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.MessageSentV1.ToBase(),
		events.TypingV1.ToBase(),
	}
}

// RegisterServices registers the chat request-reply services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceLogin, json.Unmarshal, json.Marshal, m.login,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceLogin, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceLogout, json.Unmarshal, json.Marshal, m.logout,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceLogout, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceOpenRoom, json.Unmarshal, json.Marshal, m.openRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceOpenRoom, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSendMessage, json.Unmarshal, json.Marshal, m.sendMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSendMessage, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceTyping, json.Unmarshal, json.Marshal, m.typing,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceTyping, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceMarkRead, json.Unmarshal, json.Marshal, m.markRead,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceMarkRead, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListUsers, json.Unmarshal, json.Marshal, m.listUsers,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListUsers, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListRooms, json.Unmarshal, json.Marshal, m.listRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRooms, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetHistory, json.Unmarshal, json.Marshal, m.getHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetHistory, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateGroup, json.Unmarshal, json.Marshal, m.createGroup,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateGroup, err)
	}

	m.logger.Info("Registered chat services", "count", 10)
	return nil
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	if !m.publisher.ready() {
		m.logger.Warn("Event bus not set, chat events will not be published")
	}
	m.logger.Info("Chat module started")
	return nil
}

// Stop stops the module. Stores are in-memory and discarded with the process.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Chat module stopped",
		"identities", m.service.Registry().Len(),
		"rooms", m.service.Store().Len())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"online_users": m.service.Registry().OnlineCount(),
			"rooms":        m.service.Store().Len(),
		},
	}
}

// Service returns the chat service.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) login(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	resp, err := m.service.Login(ctx, req.Name, req.Avatar)
	if fault := faultFrom(err); fault != nil {
		return LoginResponse{Fault: fault}, nil
	}
	if err != nil {
		return LoginResponse{}, err
	}
	return *resp, nil
}

func (m *Module) logout(ctx context.Context, req LogoutRequest, _ *mono.Msg) (AckResponse, error) {
	if err := m.service.Logout(ctx, req.UserID); err != nil {
		return AckResponse{}, err
	}
	return AckResponse{OK: true}, nil
}

func (m *Module) openRoom(ctx context.Context, req OpenRoomRequest, _ *mono.Msg) (OpenRoomResponse, error) {
	resp, err := m.service.OpenRoom(ctx, &req)
	if fault := faultFrom(err); fault != nil {
		return OpenRoomResponse{Fault: fault}, nil
	}
	if err != nil {
		return OpenRoomResponse{}, err
	}
	return *resp, nil
}

func (m *Module) sendMessage(ctx context.Context, req SendMessageRequest, _ *mono.Msg) (SendMessageResponse, error) {
	msg, err := m.service.SendMessage(ctx, &req)
	if fault := faultFrom(err); fault != nil {
		return SendMessageResponse{Fault: fault}, nil
	}
	if err != nil {
		return SendMessageResponse{}, err
	}
	return SendMessageResponse{Message: *msg}, nil
}

func (m *Module) typing(ctx context.Context, req RoomActionRequest, _ *mono.Msg) (AckResponse, error) {
	return ack(m.service.Typing(ctx, req.UserID, req.RoomKey))
}

func (m *Module) markRead(ctx context.Context, req RoomActionRequest, _ *mono.Msg) (AckResponse, error) {
	return ack(m.service.MarkRead(ctx, req.UserID, req.RoomKey))
}

func (m *Module) listUsers(ctx context.Context, _ ListUsersRequest, _ *mono.Msg) (ListUsersResponse, error) {
	users, err := m.service.ListUsers(ctx)
	if err != nil {
		return ListUsersResponse{}, err
	}
	return ListUsersResponse{Users: users}, nil
}

func (m *Module) listRooms(ctx context.Context, req ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	rooms, err := m.service.ListRooms(ctx, req.UserID)
	if fault := faultFrom(err); fault != nil {
		return ListRoomsResponse{Fault: fault}, nil
	}
	if err != nil {
		return ListRoomsResponse{}, err
	}
	return ListRoomsResponse{Rooms: rooms}, nil
}

func (m *Module) getHistory(ctx context.Context, req GetHistoryRequest, _ *mono.Msg) (GetHistoryResponse, error) {
	messages, err := m.service.GetHistory(ctx, req.RoomKey)
	if fault := faultFrom(err); fault != nil {
		return GetHistoryResponse{Fault: fault}, nil
	}
	if err != nil {
		return GetHistoryResponse{}, err
	}
	return GetHistoryResponse{Messages: messages}, nil
}

func (m *Module) createGroup(ctx context.Context, req CreateGroupRequest, _ *mono.Msg) (CreateGroupResponse, error) {
	room, err := m.service.CreateGroup(ctx, req.Name, req.MemberIDs)
	if fault := faultFrom(err); fault != nil {
		return CreateGroupResponse{Fault: fault}, nil
	}
	if err != nil {
		return CreateGroupResponse{}, err
	}
	return CreateGroupResponse{Room: *room}, nil
}

func ack(err error) (AckResponse, error) {
	if fault := faultFrom(err); fault != nil {
		return AckResponse{Fault: fault}, nil
	}
	if err != nil {
		return AckResponse{}, err
	}
	return AckResponse{OK: true}, nil
}

// busPublisher publishes chat events on the mono EventBus. The bus is
// injected by the framework after construction.
type busPublisher struct {
	mu  sync.RWMutex
	bus mono.EventBus
}

func (p *busPublisher) setBus(bus mono.EventBus) {
	p.mu.Lock()
	p.bus = bus
	p.mu.Unlock()
}

func (p *busPublisher) get() (mono.EventBus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.bus == nil {
		return nil, errEventBusNotSet
	}
	return p.bus, nil
}

func (p *busPublisher) ready() bool {
	_, err := p.get()
	return err == nil
}

func (p *busPublisher) UserJoined(event events.UserJoinedEvent) error {
	bus, err := p.get()
	if err != nil {
		return err
	}
	return events.UserJoinedV1.Publish(bus, event, nil)
}

func (p *busPublisher) UserLeft(event events.UserLeftEvent) error {
	bus, err := p.get()
	if err != nil {
		return err
	}
	return events.UserLeftV1.Publish(bus, event, nil)
}

func (p *busPublisher) MessageSent(event events.MessageSentEvent) error {
	bus, err := p.get()
	if err != nil {
		return err
	}
	return events.MessageSentV1.Publish(bus, event, nil)
}

func (p *busPublisher) Typing(event events.TypingEvent) error {
	bus, err := p.get()
	if err != nil {
		return err
	}
	return events.TypingV1.Publish(bus, event, nil)
}
