package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/7498valo/chat-v2/modules/broadcast"
	"github.com/7498valo/chat-v2/modules/chat"
	"github.com/7498valo/chat-v2/modules/session"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConn collects the frames the hub writes to a connection.
type recordingConn struct {
	mu     sync.Mutex
	frames []map[string]any
}

func (c *recordingConn) Write(data []byte) error {
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *recordingConn) Ping() error  { return nil }
func (c *recordingConn) Close() error { return nil }

// ofType returns the received frames of the given type.
func (c *recordingConn) ofType(frameType string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, f := range c.frames {
		if f["type"] == frameType {
			out = append(out, f)
		}
	}
	return out
}

// startMonoApp boots chat, broadcast and api the way main does.
func startMonoApp(t *testing.T) *APIModule {
	t.Helper()

	app, err := mono.NewMonoApplication(
		mono.WithLogLevel(mono.LogLevelError), // Suppress logs in tests
	)
	require.NoError(t, err)

	chatModule := chat.NewModule(&mockLogger{})
	broadcastModule := broadcast.NewModule(broadcast.Config{}, &mockLogger{})
	apiModule := NewModule(Config{Port: "0"}, &mockLogger{})
	apiModule.SetHub(broadcastModule.GetHub())

	require.NoError(t, app.Register(chatModule))
	require.NoError(t, app.Register(broadcastModule))
	require.NoError(t, app.Register(apiModule))

	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})
	return apiModule
}

func TestMonoApp_Conversation(t *testing.T) {
	m := startMonoApp(t)
	ctx := context.Background()
	const waitFor, tick = 2 * time.Second, 10 * time.Millisecond

	aliceConn, bobConn := &recordingConn{}, &recordingConn{}
	alice := session.New(ctx, m.chatAdapter, m.hub, aliceConn, &mockLogger{})
	bob := session.New(ctx, m.chatAdapter, m.hub, bobConn, &mockLogger{})

	alice.HandleFrame([]byte(`{"type":"LOGIN","name":"Alice"}`))
	require.Equal(t, session.Authenticated, alice.State())
	require.Eventually(t, func() bool { return len(aliceConn.ofType("SESSION")) == 1 }, waitFor, tick)

	bob.HandleFrame([]byte(`{"type":"LOGIN","name":"Bob"}`))
	require.Equal(t, session.Authenticated, bob.State())
	require.Eventually(t, func() bool { return len(bobConn.ofType("SESSION")) == 1 }, waitFor, tick)
	users := bobConn.ofType("SESSION")[0]["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, alice.UserID(), users[0].(map[string]any)["id"])
	require.Eventually(t, func() bool { return len(aliceConn.ofType("USER_JOINED")) == 1 }, waitFor, tick)

	bob.HandleFrame([]byte(`{"type":"SEND_MESSAGE","partnerId":"` + alice.UserID() + `","text":"hi"}`))
	require.Eventually(t, func() bool {
		return len(aliceConn.ofType("NEW_MESSAGE")) == 1 && len(bobConn.ofType("NEW_MESSAGE")) == 1
	}, waitFor, tick)
	roomKey := chat.DeriveRoomKey(alice.UserID(), bob.UserID())

	app := m.newApp()
	status, body := do(t, app, http.MethodGet, "/users", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["users"], 2)

	status, body = do(t, app, http.MethodGet, "/rooms/"+roomKey+"/messages", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["messages"], 1)

	status, _ = do(t, app, http.MethodGet, "/rooms/ghost", "")
	assert.Equal(t, fiber.StatusNotFound, status, "not-found survives the service call")

	status, _ = do(t, app, http.MethodPost, "/rooms", `{"name":"","memberIds":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, status, "validation survives the service call")

	bob.Close()
	require.Eventually(t, func() bool { return len(aliceConn.ofType("USER_LEFT")) == 1 }, waitFor, tick)
	status, body = do(t, app, http.MethodGet, "/users", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["users"], 1)
}
