package chat

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/7498valo/chat-v2/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChatAdapter implements ChatPort using the chat module's service container.
// Classified errors travel as a Fault in the response and are rebuilt here,
// so callers can still match ErrValidation and ErrNotFound.
type ChatAdapter struct {
	container mono.ServiceContainer
}

var _ ChatPort = (*ChatAdapter)(nil)

// NewChatAdapter creates a new ChatAdapter.
func NewChatAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("chat: ServiceContainer is nil")
	}
	return &ChatAdapter{container: container}
}

// Login registers a new identity.
func (a *ChatAdapter) Login(ctx context.Context, name, avatar string) (*LoginResponse, error) {
	req := LoginRequest{Name: name, Avatar: avatar}
	var resp LoginResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceLogin,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceLogin, err)
	}
	if resp.Fault != nil {
		return nil, resp.Fault.Err()
	}
	return &resp, nil
}

// Logout marks an identity offline.
func (a *ChatAdapter) Logout(ctx context.Context, userID string) error {
	req := LogoutRequest{UserID: userID}
	var resp AckResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceLogout,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", ServiceLogout, err)
	}
	return resp.Fault.Err()
}

// OpenRoom opens a room and returns its snapshot and history.
func (a *ChatAdapter) OpenRoom(ctx context.Context, req *OpenRoomRequest) (*OpenRoomResponse, error) {
	var resp OpenRoomResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceOpenRoom,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceOpenRoom, err)
	}
	if resp.Fault != nil {
		return nil, resp.Fault.Err()
	}
	return &resp, nil
}

// SendMessage appends a message to a room.
func (a *ChatAdapter) SendMessage(ctx context.Context, req *SendMessageRequest) (*domain.Message, error) {
	var resp SendMessageResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceSendMessage,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceSendMessage, err)
	}
	if resp.Fault != nil {
		return nil, resp.Fault.Err()
	}
	return &resp.Message, nil
}

// Typing notifies the other members of a room.
func (a *ChatAdapter) Typing(ctx context.Context, userID, roomKey string) error {
	req := RoomActionRequest{UserID: userID, RoomKey: roomKey}
	var resp AckResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceTyping,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", ServiceTyping, err)
	}
	return resp.Fault.Err()
}

// MarkRead resets a member's unread counter.
func (a *ChatAdapter) MarkRead(ctx context.Context, userID, roomKey string) error {
	req := RoomActionRequest{UserID: userID, RoomKey: roomKey}
	var resp AckResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceMarkRead,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", ServiceMarkRead, err)
	}
	return resp.Fault.Err()
}

// ListUsers returns the online identities.
func (a *ChatAdapter) ListUsers(ctx context.Context) ([]domain.Identity, error) {
	req := ListUsersRequest{}
	var resp ListUsersResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListUsers,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceListUsers, err)
	}
	return resp.Users, nil
}

// ListRooms returns an identity's rooms, newest first.
func (a *ChatAdapter) ListRooms(ctx context.Context, userID string) ([]domain.RoomView, error) {
	req := ListRoomsRequest{UserID: userID}
	var resp ListRoomsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListRooms,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceListRooms, err)
	}
	if resp.Fault != nil {
		return nil, resp.Fault.Err()
	}
	return resp.Rooms, nil
}

// GetHistory returns a room's full history.
func (a *ChatAdapter) GetHistory(ctx context.Context, roomKey string) ([]domain.Message, error) {
	req := GetHistoryRequest{RoomKey: roomKey}
	var resp GetHistoryResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetHistory,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceGetHistory, err)
	}
	if resp.Fault != nil {
		return nil, resp.Fault.Err()
	}
	return resp.Messages, nil
}

// CreateGroup creates a group room.
func (a *ChatAdapter) CreateGroup(ctx context.Context, name string, memberIDs []string) (*domain.RoomView, error) {
	req := CreateGroupRequest{Name: name, MemberIDs: memberIDs}
	var resp CreateGroupResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceCreateGroup,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceCreateGroup, err)
	}
	if resp.Fault != nil {
		return nil, resp.Fault.Err()
	}
	return &resp.Room, nil
}
