package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/7498valo/chat-v2/domain/chat"
	"github.com/7498valo/chat-v2/events"
	"github.com/7498valo/chat-v2/modules/broadcast"
	"github.com/7498valo/chat-v2/modules/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)          {}
func (m *mockLogger) Info(msg string, args ...any)           {}
func (m *mockLogger) Warn(msg string, args ...any)           {}
func (m *mockLogger) Error(msg string, args ...any)          {}
func (m *mockLogger) With(args ...any) types.Logger          { return m }
func (m *mockLogger) WithError(err error) types.Logger       { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

type nopPublisher struct{}

func (nopPublisher) UserJoined(events.UserJoinedEvent) error   { return nil }
func (nopPublisher) UserLeft(events.UserLeftEvent) error       { return nil }
func (nopPublisher) MessageSent(events.MessageSentEvent) error { return nil }
func (nopPublisher) Typing(events.TypingEvent) error           { return nil }

func setupTestApp(port chat.ChatPort) *fiber.App {
	m := NewModule(DefaultConfig(), &mockLogger{})
	m.chatAdapter = port
	m.SetHub(broadcast.NewHub(broadcast.Config{}, &mockLogger{}))
	return m.newApp()
}

func newService() *chat.Service {
	registry := chat.NewRegistry()
	return chat.NewService(registry, chat.NewRoomStore(registry), nopPublisher{}, &mockLogger{})
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &payload), string(data))
	}
	return resp.StatusCode, payload
}

type world struct {
	service *chat.Service
	alice   domain.Identity
	bob     domain.Identity
	carol   domain.Identity
	roomKey string
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	s := newService()
	w := &world{service: s}
	for _, p := range []struct {
		name string
		dst  *domain.Identity
	}{{"Alice", &w.alice}, {"Bob", &w.bob}, {"Carol", &w.carol}} {
		resp, err := s.Login(ctx, p.name, "")
		require.NoError(t, err)
		*p.dst = resp.Me
	}
	msg, err := s.SendMessage(ctx, &chat.SendMessageRequest{SenderID: w.alice.ID, PartnerID: w.bob.ID, Text: "hi"})
	require.NoError(t, err)
	w.roomKey = msg.RoomKey
	return w
}

func TestHealthHandler(t *testing.T) {
	app := setupTestApp(newService())

	status, body := do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app := setupTestApp(newService())

	status, body := do(t, app, http.MethodGet, "/ws", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
	assert.NotEmpty(t, body["error"])
}

func TestListUsers(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.service.Logout(context.Background(), w.carol.ID))
	app := setupTestApp(w.service)

	status, body := do(t, app, http.MethodGet, "/users", "")
	require.Equal(t, fiber.StatusOK, status)
	users, ok := body["users"].([]any)
	require.True(t, ok)
	assert.Len(t, users, 2, "offline identities are not listed")
}

func TestListRooms(t *testing.T) {
	w := newWorld(t)
	app := setupTestApp(w.service)

	tests := []struct {
		name       string
		userID     string
		wantStatus int
		wantRooms  int
	}{
		{name: "member with one room", userID: w.bob.ID, wantStatus: fiber.StatusOK, wantRooms: 1},
		{name: "member without rooms", userID: w.carol.ID, wantStatus: fiber.StatusOK, wantRooms: 0},
		{name: "unknown user", userID: "ghost", wantStatus: fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, http.MethodGet, "/rooms/"+tt.userID, "")
			require.Equal(t, tt.wantStatus, status)
			if tt.wantStatus != fiber.StatusOK {
				assert.NotEmpty(t, body["error"])
				return
			}
			rooms, ok := body["rooms"].([]any)
			require.True(t, ok)
			assert.Len(t, rooms, tt.wantRooms)
		})
	}

	_, body := do(t, app, http.MethodGet, "/rooms/"+w.bob.ID, "")
	room := body["rooms"].([]any)[0].(map[string]any)
	assert.Equal(t, w.roomKey, room["key"])
	assert.EqualValues(t, 1, room["unread"])
}

func TestGetHistory(t *testing.T) {
	w := newWorld(t)
	app := setupTestApp(w.service)

	for _, path := range []string{
		"/rooms/" + w.roomKey + "/messages",
		"/rooms/" + strings.ReplaceAll(w.roomKey, ":", "%3A") + "/messages",
	} {
		status, body := do(t, app, http.MethodGet, path, "")
		require.Equal(t, fiber.StatusOK, status, path)
		assert.Equal(t, w.roomKey, body["roomKey"])
		messages, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 1)
		assert.Equal(t, "hi", messages[0].(map[string]any)["text"])
	}

	status, body := do(t, app, http.MethodGet, "/rooms/missing/messages", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])
}

func TestMarkRead(t *testing.T) {
	w := newWorld(t)
	app := setupTestApp(w.service)
	path := "/rooms/" + w.roomKey + "/read"

	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
	}{
		{name: "missing user", target: path, wantStatus: fiber.StatusBadRequest},
		{name: "invalid body", target: path, body: `{"userId":`, wantStatus: fiber.StatusBadRequest},
		{name: "non-member", target: path, body: `{"userId":"` + w.carol.ID + `"}`, wantStatus: fiber.StatusNotFound},
		{name: "unknown room", target: "/rooms/missing/read", body: `{"userId":"` + w.bob.ID + `"}`, wantStatus: fiber.StatusNotFound},
		{name: "user in query", target: path + "?userId=" + w.alice.ID, wantStatus: fiber.StatusOK},
		{name: "user in body", target: path, body: `{"userId":"` + w.bob.ID + `"}`, wantStatus: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, http.MethodPatch, tt.target, tt.body)
			require.Equal(t, tt.wantStatus, status)
			if tt.wantStatus == fiber.StatusOK {
				assert.Equal(t, true, body["ok"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}

	assert.Equal(t, 0, w.service.Store().Unread(w.roomKey, w.bob.ID))
}

func TestCreateGroup(t *testing.T) {
	w := newWorld(t)
	app := setupTestApp(w.service)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid group", body: `{"name":"Team","memberIds":["` + w.alice.ID + `","` + w.bob.ID + `","` + w.carol.ID + `"]}`, wantStatus: fiber.StatusCreated},
		{name: "blank name", body: `{"name":" ","memberIds":["` + w.alice.ID + `","` + w.bob.ID + `"]}`, wantStatus: fiber.StatusBadRequest},
		{name: "too few members", body: `{"name":"Solo","memberIds":["` + w.alice.ID + `"]}`, wantStatus: fiber.StatusBadRequest},
		{name: "unknown member", body: `{"name":"Team","memberIds":["` + w.alice.ID + `","ghost"]}`, wantStatus: fiber.StatusNotFound},
		{name: "invalid body", body: `{"name":`, wantStatus: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, http.MethodPost, "/rooms", tt.body)
			require.Equal(t, tt.wantStatus, status)
			if tt.wantStatus != fiber.StatusCreated {
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.Equal(t, string(domain.RoomGroup), body["kind"])
			assert.Equal(t, "Team", body["name"])
			assert.True(t, strings.HasPrefix(body["key"].(string), "g_"))
		})
	}
}

// brokenPort fails every call with an unclassified error.
type brokenPort struct {
	chat.ChatPort
}

func (brokenPort) ListUsers(context.Context) ([]domain.Identity, error) {
	return nil, errors.New("list-users service call failed: timeout")
}

func TestInternalErrorsAreHidden(t *testing.T) {
	app := setupTestApp(brokenPort{})

	status, body := do(t, app, http.MethodGet, "/users", "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["error"])
}
