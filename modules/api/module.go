// Package api exposes the HTTP and WebSocket surface: room lifecycle,
// admission-gated room navigation, the message log, and live fanout.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/ephemeral-chat-demo/modules/gate"
	"github.com/example/ephemeral-chat-demo/modules/messages"
	"github.com/example/ephemeral-chat-demo/modules/realtime"
	"github.com/example/ephemeral-chat-demo/modules/registry"
	"github.com/example/ephemeral-chat-demo/modules/stats"
	"github.com/example/ephemeral-chat-demo/modules/store"
	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Config holds the HTTP server settings.
type Config struct {
	Port          int
	SecureCookies bool
}

// Module implements the API module.
type Module struct {
	cfg       Config
	app       *fiber.App
	gate      *gate.Gate
	registry  *registry.Service
	messages  *messages.Service
	hub       *realtime.Hub
	stats     *stats.Store
	roomStore *store.RoomStore
	usernames *usernameGenerator
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the API module. All collaborators are required.
func NewModule(
	cfg Config,
	g *gate.Gate,
	reg *registry.Service,
	msgs *messages.Service,
	hub *realtime.Hub,
	statsStore *stats.Store,
	roomStore *store.RoomStore,
) (*Module, error) {
	usernames, err := newUsernameGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create username generator: %w", err)
	}

	return &Module{
		cfg:       cfg,
		gate:      g,
		registry:  reg,
		messages:  msgs,
		hub:       hub,
		stats:     statsStore,
		roomStore: roomStore,
		usernames: usernames,
	}, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// Init creates the Fiber application and registers routes.
func (m *Module) Init(_ mono.ServiceContainer) error {
	m.app = fiber.New(fiber.Config{
		AppName:               "ephemeral-chat",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[api] ${time} ${status} ${method} ${path} (${latency})\n",
	}))
	m.app.Use(cors.New())

	m.setupRoutes()
	return nil
}

func (m *Module) setupRoutes() {
	m.app.Get("/health", m.handleHealth)

	v1 := m.app.Group("/api/v1")
	v1.Post("/rooms", m.handleCreateRoom)
	v1.Get("/room/ttl", m.requireMember, m.handleRoomTTL)
	v1.Delete("/room", m.requireMember, m.handleDestroyRoom)
	v1.Post("/messages", m.requireMember, m.handlePostMessage)
	v1.Get("/messages", m.requireMember, m.handleListMessages)
	v1.Get("/username", m.handleUsername)
	v1.Get("/stats", m.handleStats)

	// Every navigation to a room runs through the admission gate before the
	// room view is reachable.
	room := m.app.Group("/room/:roomId", gate.Middleware(m.gate, gate.MiddlewareConfig{
		SecureCookies: m.cfg.SecureCookies,
	}))
	room.Get("/", m.handleRoomView)

	ws := m.app.Group("/ws/room/:roomId", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}, m.requireMember)
	ws.Get("/", websocket.New(m.handleWebSocket))
}

// handleRoomView serves the state an admitted member needs to render the
// room: its identifier, creation time, and remaining lifetime.
func (m *Module) handleRoomView(c *fiber.Ctx) error {
	roomID := c.Params("roomId")

	meta, err := m.roomStore.Meta(c.UserContext(), roomID)
	if err != nil {
		return m.storeError(c, err)
	}
	ttl, err := m.registry.RemainingTTL(c.UserContext(), roomID)
	if err != nil {
		return m.storeError(c, err)
	}
	return c.JSON(fiber.Map{
		"roomId":    roomID,
		"createdAt": meta.CreatedAt,
		"ttl":       ttl,
	})
}

func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(ErrorResponse{
		Error:   reasonInternalError,
		Message: err.Error(),
	})
}

// Start starts the HTTP server in a background goroutine.
func (m *Module) Start(_ context.Context) error {
	addr := fmt.Sprintf(":%d", m.cfg.Port)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			log.Printf("[api] Server stopped: %v", err)
		}
	}()
	log.Printf("[api] Listening on %s", addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	log.Println("[api] Shutting down server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health reports the API module's health.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if err := m.roomStore.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "store unreachable",
			Details: map[string]any{"error": err.Error()},
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "serving",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// App returns the Fiber application, for tests.
func (m *Module) App() *fiber.App {
	return m.app
}
