package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/7498valo/chat-v2/modules/api"
	"github.com/7498valo/chat-v2/modules/broadcast"
	"github.com/7498valo/chat-v2/modules/chat"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Chat Coordinator - Fiber + WebSocket + EventBus ===")

	shutdownTimeout := getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	pongWait := getEnvDuration("PONG_WAIT", 60*time.Second)

	apiCfg := api.Config{
		Port:          getEnv("PORT", "3000"),
		MaxFrameBytes: getEnvInt("MAX_FRAME_BYTES", 16*1024),
		PongWait:      pongWait,
		WriteWait:     getEnvDuration("WRITE_WAIT", 10*time.Second),
	}
	broadcastCfg := broadcast.Config{
		SendBuffer: getEnvInt("SEND_BUFFER", 256),
		PingPeriod: pongWait * 9 / 10,
	}

	// Create mono application
	logLevel := levelFor(getEnv("LOG_LEVEL", "info"),
		mono.LogLevelDebug, mono.LogLevelInfo, mono.LogLevelWarn, mono.LogLevelError)
	logFormat := formatFor(getEnv("LOG_FORMAT", "text"), mono.LogFormatText, mono.LogFormatJSON)
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(logFormat),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	chatModule := chat.NewModule(app.Logger())
	broadcastModule := broadcast.NewModule(broadcastCfg, app.Logger())
	apiModule := api.NewModule(apiCfg, app.Logger())

	// The hub holds live connections and is not exposed via ServiceContainer.
	apiModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - chat: registry, room store and services (ServiceProviderModule + EventEmitterModule)
	// - broadcast: connection hub (EventConsumerModule)
	// - api: Fiber HTTP/WebSocket server, depends on chat
	app.Register(chatModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(apiCfg.Port)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(port string) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Event-Driven Chat:")
	log.Println("  - UserJoined / UserLeft events  -> broadcast module -> all other connections")
	log.Println("  - MessageSent events            -> broadcast module -> room members")
	log.Println("  - Typing events                 -> broadcast module -> other room members")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                   - Health check")
	log.Println("  GET    /users                    - Online users")
	log.Println("  GET    /rooms/:userId            - A user's rooms, newest first")
	log.Println("  GET    /rooms/:roomId/messages   - Room history")
	log.Println("  PATCH  /rooms/:roomId/read       - Reset a member's unread counter")
	log.Println("  POST   /rooms                    - Create a group room")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Inbound:  LOGIN, OPEN_ROOM, SEND_MESSAGE, TYPING, READ")
	log.Println("  Outbound: SESSION, ROOM_OPENED, NEW_MESSAGE, USER_JOINED, USER_LEFT, TYPING")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as a duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		log.Printf("Warning: invalid duration for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}

// levelFor maps a LOG_LEVEL value onto one of the given levels. Unknown
// values log at info.
func levelFor[L any](value string, debug, info, warn, errLevel L) L {
	switch strings.ToLower(value) {
	case "debug":
		return debug
	case "info":
		return info
	case "warn", "warning":
		return warn
	case "error":
		return errLevel
	}
	log.Printf("Warning: unknown LOG_LEVEL %q, using info", value)
	return info
}

// formatFor maps a LOG_FORMAT value onto text or json output.
func formatFor[F any](value string, text, json F) F {
	switch strings.ToLower(value) {
	case "json":
		return json
	case "text":
		return text
	}
	log.Printf("Warning: unknown LOG_FORMAT %q, using text", value)
	return text
}
