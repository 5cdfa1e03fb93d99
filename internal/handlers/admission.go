package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"messaging-backend/internal/services"
	"messaging-backend/internal/session"
	"messaging-backend/internal/utils"
)

const storeTimeout = 5 * time.Second

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// currentUser resolves the SESSION cookie to a durable user id.
func currentUser(c *fiber.Ctx, resolver *session.Resolver) (int, error) {
	return resolver.Resolve(c.Context(), c.Cookies("SESSION"))
}

// DialogAdmission resolves the connecting client's identity and the
// interlocutor it wants to talk to. Failure closes the connection attempt
// before the upgrade.
func DialogAdmission(resolver *session.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, resolver)
		if err != nil {
			utils.LogError(err, "DialogAdmission")
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid session")
		}

		interlocutorID := c.QueryInt("interlocutorId")
		if interlocutorID == 0 || interlocutorID == userID {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid interlocutorId")
		}

		c.Locals("user_id", userID)
		c.Locals("interlocutor_id", interlocutorID)
		return c.Next()
	}
}

// ChatAdmission resolves the client's identity and verifies durable chat
// membership. A removed member is rejected here with access denied.
func ChatAdmission(resolver *session.Resolver, chatService *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, resolver)
		if err != nil {
			utils.LogError(err, "ChatAdmission")
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid session")
		}

		chatID := c.QueryInt("chatId")
		if chatID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "chatId required")
		}

		if err := chatService.Authorize(c.Context(), chatID, userID); err != nil {
			if errors.Is(err, services.ErrAccessDenied) {
				utils.LogError(err, "ChatAdmission")
				return fiber.NewError(fiber.StatusForbidden, "Access denied")
			}
			utils.LogError(err, "ChatAdmission")
			return fiber.NewError(fiber.StatusInternalServerError, "Store failure")
		}

		c.Locals("user_id", userID)
		c.Locals("chat_id", chatID)
		return c.Next()
	}
}

// ServiceAuthMiddleware guards the messaging HTTP surface with a service
// token, distinct from the session cookie that identifies end users.
func ServiceAuthMiddleware(c *fiber.Ctx) error {
	token := c.Get("x-access-token")
	if token == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}

	if token == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "No token provided",
		})
	}

	claims, err := services.ValidateServiceToken(token)
	if err != nil {
		if errors.Is(err, services.ErrTokenExpired) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Token expired",
			})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Failed to authenticate token",
		})
	}

	c.Locals("service", claims["name"])
	return c.Next()
}
