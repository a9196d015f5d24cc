package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	apimod "github.com/example/ephemeral-chat-demo/modules/api"
	"github.com/example/ephemeral-chat-demo/modules/gate"
	messagesmod "github.com/example/ephemeral-chat-demo/modules/messages"
	realtimemod "github.com/example/ephemeral-chat-demo/modules/realtime"
	registrymod "github.com/example/ephemeral-chat-demo/modules/registry"
	statsmod "github.com/example/ephemeral-chat-demo/modules/stats"
	storemod "github.com/example/ephemeral-chat-demo/modules/store"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from environment
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	httpPort := getEnvInt("HTTP_PORT", 3000)
	roomTTL := getEnvDuration("ROOM_TTL", 15*time.Minute)
	roomCapacity := getEnvInt("ROOM_CAPACITY", gate.DefaultCapacity)
	secureCookies := getEnv("SECURE_COOKIES", "false") == "true"

	log.Println("=== Ephemeral Chat Demo ===")
	log.Printf("Redis: %s", redisAddr)
	log.Printf("HTTP Port: %d", httpPort)
	log.Printf("Room TTL: %s", roomTTL)
	log.Printf("Room Capacity: %d", roomCapacity)

	// Create modules. The store module owns the shared Redis client, so it
	// is built first and everything else is wired from it.
	storeModule := storemod.NewModule(redisAddr, roomTTL)
	realtimeModule := realtimemod.NewModule(storeModule.Client(), storeModule.Store())

	registryModule, err := registrymod.NewModule(storeModule.Store(), realtimeModule.Broker(), roomTTL)
	if err != nil {
		log.Fatalf("Failed to create registry module: %v", err)
	}

	messagesModule, err := messagesmod.NewModule(storeModule.Store(), realtimeModule.Broker())
	if err != nil {
		log.Fatalf("Failed to create messages module: %v", err)
	}

	statsModule := statsmod.NewModule()

	admissionGate, err := gate.NewGate(storeModule.Store(), roomCapacity)
	if err != nil {
		log.Fatalf("Failed to create admission gate: %v", err)
	}

	apiModule, err := apimod.NewModule(
		apimod.Config{Port: httpPort, SecureCookies: secureCookies},
		admissionGate,
		registryModule.Service(),
		messagesModule.Service(),
		realtimeModule.Hub(),
		statsModule.Store(),
		storeModule.Store(),
	)
	if err != nil {
		log.Fatalf("Failed to create api module: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Register modules: storage first, then services, then the API surface.
	app.Register(storeModule)
	app.Register(realtimeModule)
	app.Register(registryModule)
	app.Register(messagesModule)
	app.Register(statsModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	printStartupInfo(httpPort, roomTTL, roomCapacity)

	// Setup graceful shutdown using gelmium/graceful-shutdown
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

func printStartupInfo(port int, roomTTL time.Duration, capacity int) {
	log.Println("=== Application Started ===")
	log.Printf("API available at http://localhost:%d", port)
	log.Printf("Rooms live for %s and hold up to %d members", roomTTL, capacity)
	log.Println("Endpoints:")
	log.Println("  GET    /health              - Health check")
	log.Println("  POST   /api/v1/rooms        - Create a room")
	log.Println("  GET    /api/v1/room/ttl     - Remaining room lifetime (?roomId=, members only)")
	log.Println("  DELETE /api/v1/room         - Destroy a room (?roomId=, members only)")
	log.Println("  POST   /api/v1/messages     - Post a message (?roomId=, members only)")
	log.Println("  GET    /api/v1/messages     - Message history (?roomId=, members only)")
	log.Println("  GET    /api/v1/username     - Generate a throwaway username")
	log.Println("  GET    /api/v1/stats        - Usage counters")
	log.Println("  GET    /room/:roomId        - Enter a room (admission gated)")
	log.Printf("WebSocket: ws://localhost:%d/ws/room/:roomId (members only)", port)
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
