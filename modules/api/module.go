package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/7498valo/chat-v2/modules/broadcast"
	"github.com/7498valo/chat-v2/modules/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Config holds the HTTP and WebSocket transport settings.
type Config struct {
	Port string
	// MaxFrameBytes caps a single inbound WebSocket frame.
	MaxFrameBytes int
	// PongWait is the read deadline, extended whenever a pong arrives.
	PongWait time.Duration
	// WriteWait bounds a single outbound write.
	WriteWait time.Duration
}

// DefaultConfig returns the transport defaults.
func DefaultConfig() Config {
	return Config{
		Port:          "3000",
		MaxFrameBytes: 16 * 1024,
		PongWait:      60 * time.Second,
		WriteWait:     10 * time.Second,
	}
}

// APIModule is the HTTP query API and the WebSocket endpoint.
type APIModule struct {
	app         *fiber.App
	chatAdapter chat.ChatPort
	hub         *broadcast.Hub
	cfg         Config
	logger      types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger types.Logger) *APIModule {
	def := DefaultConfig()
	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = def.MaxFrameBytes
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	return &APIModule{
		cfg:    cfg,
		logger: logger.WithModule("api"),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"chat"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "chat":
		m.chatAdapter = chat.NewChatAdapter(container)
	}
}

// SetHub sets the broadcast hub (called from main.go).
func (m *APIModule) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.chatAdapter == nil {
		return fmt.Errorf("chat adapter dependency not set")
	}
	if m.hub == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}

	m.app = m.newApp()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.cfg.Port); err != nil {
			errCh <- err
		}
	}()

	// Wait briefly to catch immediate startup errors
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "port", m.cfg.Port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"port": m.cfg.Port}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// newApp builds the Fiber app with middleware and routes.
func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		UnescapePath:          true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(m.loggerMiddleware())

	m.setupRoutes(app)
	return app
}

// errorHandler handles errors that escape the route handlers.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		m.logger.Error("Unhandled HTTP error", "method", c.Method(), "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{Error: message})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func (m *APIModule) loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		m.logger.Debug("HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start).String())
		return err
	}
}
