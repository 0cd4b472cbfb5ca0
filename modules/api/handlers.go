package api

import (
	"errors"

	"github.com/7498valo/chat-v2/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	// Health check
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handleWebSocket))

	app.Get("/users", m.listUsers)
	app.Post("/rooms", m.createGroup)
	app.Get("/rooms/:userId", m.listRooms)
	app.Get("/rooms/:roomId/messages", m.getHistory)
	app.Patch("/rooms/:roomId/read", m.markRead)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// listUsers handles GET /users.
func (m *APIModule) listUsers(c *fiber.Ctx) error {
	users, err := m.chatAdapter.ListUsers(c.UserContext())
	if err != nil {
		return m.respondError(c, err)
	}
	return c.JSON(UserListResponse{Users: users})
}

// listRooms handles GET /rooms/:userId.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	rooms, err := m.chatAdapter.ListRooms(c.UserContext(), c.Params("userId"))
	if err != nil {
		return m.respondError(c, err)
	}
	return c.JSON(RoomListResponse{Rooms: rooms})
}

// getHistory handles GET /rooms/:roomId/messages.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	roomKey := c.Params("roomId")
	messages, err := m.chatAdapter.GetHistory(c.UserContext(), roomKey)
	if err != nil {
		return m.respondError(c, err)
	}
	return c.JSON(HistoryResponse{RoomKey: roomKey, Messages: messages})
}

// markRead handles PATCH /rooms/:roomId/read. The member comes from the
// body or, failing that, the userId query parameter.
func (m *APIModule) markRead(c *fiber.Ctx) error {
	var req MarkReadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
		}
	}
	if req.UserID == "" {
		req.UserID = c.Query("userId")
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "userId is required"})
	}

	if err := m.chatAdapter.MarkRead(c.UserContext(), req.UserID, c.Params("roomId")); err != nil {
		return m.respondError(c, err)
	}
	return c.JSON(OKResponse{OK: true})
}

// createGroup handles POST /rooms.
func (m *APIModule) createGroup(c *fiber.Ctx) error {
	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	room, err := m.chatAdapter.CreateGroup(c.UserContext(), req.Name, req.MemberIDs)
	if err != nil {
		return m.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// respondError maps chat errors onto HTTP status codes.
func (m *APIModule) respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
	}
	m.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal server error"})
}
