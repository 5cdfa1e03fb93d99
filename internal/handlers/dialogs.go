package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"messaging-backend/internal/services"
	"messaging-backend/internal/session"
	"messaging-backend/internal/utils"
)

// ListDialogsHandler returns the user's interlocutors with the last message
// exchanged in each dialog.
func ListDialogsHandler(resolver *session.Resolver, dialogService *services.DialogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, resolver)
		if err != nil {
			utils.LogError(err, "ListDialogs")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session"})
		}
		log.Printf("User with id=%d requested list of interlocutors", userID)

		interlocutors, err := dialogService.Interlocutors(c.Context(), userID)
		if err != nil {
			utils.LogError(err, "ListDialogs")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Store failure"})
		}

		return c.JSON(fiber.Map{"interlocutors": interlocutors})
	}
}

// DialogsUnreadHandler returns the user's unread dialog message count.
func DialogsUnreadHandler(resolver *session.Resolver, dialogService *services.DialogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, resolver)
		if err != nil {
			utils.LogError(err, "DialogsUnread")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session"})
		}

		amount, err := dialogService.UnreadCount(c.Context(), userID)
		if err != nil {
			utils.LogError(err, "DialogsUnread")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Store failure"})
		}

		return c.JSON(fiber.Map{"unreadMessagesAmount": amount})
	}
}
