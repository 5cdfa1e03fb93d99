package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"messaging-backend/internal/db"
	"messaging-backend/internal/handlers"
	"messaging-backend/internal/presence"
	"messaging-backend/internal/services"
	"messaging-backend/internal/session"
	"messaging-backend/internal/utils"
)

func Run() {
	// Load Env
	if err := utils.LoadEnv(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Init external stores. Both must be reachable before any route is
	// registered; a half-initialized store never races a connection.
	connString := utils.GetEnv("DATABASE_URL", "")
	if connString == "" {
		// Fallback to individual vars
		connString = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "messagingdb") + "?sslmode=disable"
	}

	if err := db.InitDB(connString); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseDB()

	resolver, err := session.NewResolver(utils.GetEnv("REDIS_ADDR", "localhost:6379"))
	if err != nil {
		log.Fatalf("Failed to connect to session store: %v", err)
	}
	defer resolver.Close()

	// Services
	authService := services.NewAuthService()
	dialogService := services.NewDialogService()
	chatService := services.NewChatService()

	// One presence registry per conversation mode, mirroring the two channel
	// namespaces.
	dialogRooms := presence.NewRegistry()
	chatRooms := presence.NewRegistry()

	// Fiber App
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Routes
	messaging := app.Group("/messaging")

	// Credential exchange stays open; everything below it carries the
	// service token.
	messaging.Post("/auth", handlers.AuthHandler(authService))

	messaging.Use(handlers.ServiceAuthMiddleware)
	messaging.Get("/dialogs", handlers.ListDialogsHandler(resolver, dialogService))
	messaging.Get("/dialogs/unread-messages", handlers.DialogsUnreadHandler(resolver, dialogService))
	messaging.Get("/chats", handlers.ListChatsHandler(resolver, chatService))
	messaging.Get("/chats/unread-messages", handlers.ChatsUnreadHandler(resolver, chatService))
	messaging.Put("/chats/:id", handlers.UpdateChatHandler(chatService))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// WebSocket Routes
	// Note: Middleware order matters. Admission resolves the session and
	// authorizes the room before the upgrade happens.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Get("/ws/dialog", handlers.DialogAdmission(resolver), handlers.DialogSocketHandler(dialogService, dialogRooms))
	app.Get("/ws/chat", handlers.ChatAdmission(resolver, chatService), handlers.ChatSocketHandler(chatService, chatRooms))

	// Start Server
	port := utils.GetEnv("PORT", "3001")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	// Graceful Shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c // Block until signal
	log.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	log.Println("Server shutdown complete")
}
