package api

import domain "github.com/7498valo/chat-v2/domain/chat"

// UserListResponse lists the online identities.
type UserListResponse struct {
	Users []domain.Identity `json:"users"`
}

// RoomListResponse lists a member's rooms, newest first.
type RoomListResponse struct {
	Rooms []domain.RoomView `json:"rooms"`
}

// HistoryResponse is a room's full message history.
type HistoryResponse struct {
	RoomKey  string           `json:"roomKey"`
	Messages []domain.Message `json:"messages"`
}

// MarkReadRequest names the member whose unread counter is reset.
type MarkReadRequest struct {
	UserID string `json:"userId"`
}

// CreateGroupRequest is the API request to create a group room.
type CreateGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

// OKResponse acknowledges a mutation with no payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
