package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"messaging-backend/internal/services"
	"messaging-backend/internal/session"
	"messaging-backend/internal/utils"
)

// ListChatsHandler returns the latest message per chat the user belongs to.
func ListChatsHandler(resolver *session.Resolver, chatService *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, resolver)
		if err != nil {
			utils.LogError(err, "ListChats")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session"})
		}
		log.Printf("User with id=%d requested list of chats", userID)

		chats, err := chatService.Chats(c.Context(), userID)
		if err != nil {
			utils.LogError(err, "ListChats")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Store failure"})
		}

		return c.JSON(fiber.Map{"chats": chats})
	}
}

// ChatsUnreadHandler returns the user's unread chat message count.
func ChatsUnreadHandler(resolver *session.Resolver, chatService *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, resolver)
		if err != nil {
			utils.LogError(err, "ChatsUnread")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session"})
		}

		amount, err := chatService.UnreadCount(c.Context(), userID)
		if err != nil {
			utils.LogError(err, "ChatsUnread")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Store failure"})
		}

		return c.JSON(fiber.Map{"unreadMessagesAmount": amount})
	}
}

// UpdateChatHandler mutates a chat's membership set. Known weak contract,
// kept deliberately: the response is 200 {success:true} even when an update
// failed; failures are only logged.
func UpdateChatHandler(chatService *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		chatID, err := c.ParamsInt("id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid chat id",
			})
		}

		var body struct {
			UsersToAdd    []int `json:"usersToAdd"`
			UsersToRemove []int `json:"usersToRemove"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid request",
			})
		}

		if len(body.UsersToAdd) > 0 {
			if err := chatService.AddUsers(c.Context(), chatID, body.UsersToAdd); err != nil {
				utils.LogError(err, "AddUsers")
			} else {
				log.Printf("Users were added to chat %d", chatID)
			}
		}

		if len(body.UsersToRemove) > 0 {
			if err := chatService.RemoveUsers(c.Context(), chatID, body.UsersToRemove); err != nil {
				utils.LogError(err, "RemoveUsers")
			} else {
				log.Printf("Users were removed from chat %d", chatID)
			}
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
