package broadcast

import (
	"context"
	"fmt"

	"github.com/7498valo/chat-v2/events"
	"github.com/7498valo/chat-v2/protocol"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// BroadcastModule is an EventConsumerModule that turns chat events into
// outbound frames for the live connections held by its hub.
type BroadcastModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
	logger    types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule(cfg Config, logger types.Logger) *BroadcastModule {
	logger = logger.WithModule("broadcast")
	return &BroadcastModule{
		hub:    NewHub(cfg, logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start initializes the module and starts the hub.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Broadcast module started, hub running")
	return nil
}

// Stop shuts down the module.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	m.logger.Info("Broadcast module stopped", "clients", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.TypingV1, m.handleTyping, m,
	); err != nil {
		return fmt.Errorf("failed to register Typing consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", "UserJoined, UserLeft, MessageSent, Typing")
	return nil
}

// Event handlers

func (m *BroadcastModule) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	m.logger.Debug("Broadcasting user joined", "userID", event.User.ID)
	m.hub.SendToAll(protocol.NewUserJoined(event.User), event.User.ID)
	return nil
}

func (m *BroadcastModule) handleUserLeft(_ context.Context, event events.UserLeftEvent, _ *mono.Msg) error {
	m.logger.Debug("Broadcasting user left", "userID", event.UserID)
	m.hub.SendToAll(protocol.NewUserLeft(event.UserID), event.UserID)
	return nil
}

func (m *BroadcastModule) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	msg := event.Message
	m.logger.Debug("Broadcasting message", "roomKey", msg.RoomKey, "messageID", msg.ID)
	m.hub.SendToRoomMembers(msg.RoomKey, event.Members, protocol.NewNewMessage(msg), "")
	return nil
}

func (m *BroadcastModule) handleTyping(_ context.Context, event events.TypingEvent, _ *mono.Msg) error {
	m.hub.SendToRoomMembers(event.RoomKey, event.Members,
		protocol.NewTyping(event.RoomKey, event.SenderID), event.SenderID)
	return nil
}

// GetHub returns the hub for the API module to attach connections to.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}
