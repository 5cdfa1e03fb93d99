package handlers

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"messaging-backend/internal/models"
	"messaging-backend/internal/presence"
	"messaging-backend/internal/services"
	"messaging-backend/internal/utils"
)

// ChatSocketHandler runs one chat channel session. Admission already
// verified durable membership; here the session joins the room, announces
// presence, pushes the welcome batch and relays live events.
func ChatSocketHandler(chatService *services.ChatService, rooms *presence.Registry) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID := c.Locals("user_id").(int)
		chatID := c.Locals("chat_id").(int)
		room := strconv.Itoa(chatID)
		connID := uuid.New().String()

		// All writes to this connection, broadcasts included, go through the
		// serializing wrapper.
		sink := presence.NewConn(c)

		log.Printf("OPENED chat socket for user %d in chat %d", userID, chatID)
		rooms.Join(room, connID, userID, sink)
		rooms.Broadcast(room, models.SocketEvent{Event: "users", Users: rooms.Snapshot(room)})

		defer func() {
			rooms.Leave(room, connID)
			log.Printf("CLOSED chat socket for user %d in chat %d", userID, chatID)
			// Remaining members see the updated presence set.
			rooms.Broadcast(room, models.SocketEvent{Event: "users", Users: rooms.Snapshot(room)})
			c.Close()
		}()

		if err := sendChatWelcome(chatService, rooms, room, chatID, userID); err != nil {
			utils.LogError(err, "ChatWelcome")
			utils.SendError(sink, msgStoreFailure)
		}

		for {
			msgType, raw, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("error: %v", err)
				}
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}

			var req models.SocketRequest
			if err := utils.SafeJSONParse(raw, &req); err != nil {
				utils.LogError(err, "JSON Parse")
				continue
			}

			switch req.Event {
			case "create_message":
				createChatMessage(sink, chatService, rooms, room, chatID, userID, req.Text)
			case "get_previous":
				previousChatMessages(sink, chatService, chatID, userID, req.EarliestID)
			default:
				log.Printf("Unknown event: %s", req.Event)
			}
		}
	})
}

// sendChatWelcome pushes the viewer's newest page of the chat. The batch is
// emitted to the whole room, matching the live system's behavior. At most
// the single newest unread message is marked read.
func sendChatWelcome(chatService *services.ChatService, rooms *presence.Registry, room string, chatID, userID int) error {
	ctx, cancel := opCtx()
	defer cancel()

	last, err := chatService.LastMessages(ctx, chatID, userID)
	if err != nil {
		return err
	}

	if markableChat(last) {
		last[0].Read = true
		if err := chatService.MarkRead(ctx, last[0].ID); err != nil {
			return err
		}
	}

	rooms.Broadcast(room, models.SocketEvent{Event: "messages", Messages: forChatDisplay(last)})
	return nil
}

// markableChat decides whether the newest message of a welcome batch gets
// marked read. The batch is recipient-scoped, so every message is addressed
// to the viewer already.
func markableChat(batch []models.ChatMessage) bool {
	return len(batch) > 0 && !batch[0].Read
}

// forChatDisplay flips a newest-first batch into chronological order.
func forChatDisplay(batch []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(batch))
	for i, msg := range batch {
		out[len(batch)-1-i] = msg
	}
	return out
}

// createChatMessage fans a new message out to every durable chat member.
// The presence snapshot taken here is the authoritative read for this send:
// members present in the room get their copy already marked read.
func createChatMessage(sink *presence.Conn, chatService *services.ChatService, rooms *presence.Registry, room string, chatID, userID int, text string) {
	ctx, cancel := opCtx()
	defer cancel()

	members, err := chatService.Members(ctx, chatID)
	if err != nil {
		utils.LogError(err, "CreateChatMessage")
		utils.SendError(sink, msgStoreFailure)
		return
	}

	present := rooms.Snapshot(room)
	date := time.Now()

	docs := services.BuildFanout(chatID, userID, text, members, present, date)
	chatService.SaveMessages(ctx, docs)

	rooms.Broadcast(room, models.SocketEvent{Event: "messages", Messages: []models.ChatBroadcast{{
		ChatID:   chatID,
		SenderID: userID,
		Text:     text,
		Date:     date,
	}}})
}

func previousChatMessages(sink *presence.Conn, chatService *services.ChatService, chatID, userID int, earliestID int64) {
	ctx, cancel := opCtx()
	defer cancel()

	previous, err := chatService.PreviousMessages(ctx, chatID, userID, earliestID)
	if err != nil {
		utils.LogError(err, "PreviousChatMessages")
		utils.SendError(sink, msgStoreFailure)
		return
	}

	if previous == nil {
		previous = []models.ChatMessage{}
	}

	if err := utils.SendEvent(sink, models.SocketEvent{Event: "previous", Messages: previous}); err != nil {
		utils.LogError(err, "PreviousChatMessages")
	}
}
