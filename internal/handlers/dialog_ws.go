package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"messaging-backend/internal/models"
	"messaging-backend/internal/presence"
	"messaging-backend/internal/services"
	"messaging-backend/internal/utils"
)

const msgStoreFailure = "store failure"

// DialogSocketHandler runs one dialog channel session: welcome batch on
// connect, then live create_message / get_previous events until disconnect.
func DialogSocketHandler(dialogService *services.DialogService, rooms *presence.Registry) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID := c.Locals("user_id").(int)
		interlocutorID := c.Locals("interlocutor_id").(int)
		dialogID := models.DialogKey(userID, interlocutorID)
		connID := uuid.New().String()

		// All writes to this connection, broadcasts included, go through the
		// serializing wrapper.
		sink := presence.NewConn(c)

		log.Printf("OPENED dialog socket between users %d and %d", userID, interlocutorID)
		rooms.Join(dialogID, connID, userID, sink)

		defer func() {
			rooms.Leave(dialogID, connID)
			log.Printf("CLOSED dialog socket between users %d and %d", userID, interlocutorID)
			c.Close()
		}()

		if err := sendDialogWelcome(sink, dialogService, dialogID, userID, interlocutorID); err != nil {
			utils.LogError(err, "DialogWelcome")
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
				createDialogMessage(sink, dialogService, rooms, dialogID, userID, req.Text)
			case "get_previous":
				previousDialogMessages(sink, dialogService, dialogID, req.EarliestID)
			default:
				log.Printf("Unknown event: %s", req.Event)
			}
		}
	})
}

// sendDialogWelcome pushes the newest page of the dialog to the joining
// connection. When the newest message is unread and authored by the partner,
// exactly that one message is marked read; older unread messages are left
// alone.
func sendDialogWelcome(sink *presence.Conn, dialogService *services.DialogService, dialogID string, userID, interlocutorID int) error {
	ctx, cancel := opCtx()
	defer cancel()

	if err := dialogService.EnsureInterlocutors(ctx, userID, interlocutorID); err != nil {
		return err
	}

	last, err := dialogService.LastMessages(ctx, dialogID)
	if err != nil {
		return err
	}

	if markableDialog(last, userID) {
		last[0].Read = true
		if err := dialogService.MarkRead(ctx, last[0].ID); err != nil {
			return err
		}
	}

	return utils.SendEvent(sink, models.SocketEvent{Event: "messages", Messages: forDialogDisplay(last)})
}

// markableDialog decides whether the newest message of a welcome batch gets
// marked read: it must exist, be unread, and not be the viewer's own.
func markableDialog(batch []models.DialogMessage, viewerID int) bool {
	return len(batch) > 0 && !batch[0].Read && batch[0].SenderID != viewerID
}

// forDialogDisplay strips the room key and flips a newest-first batch into
// chronological order for the client.
func forDialogDisplay(batch []models.DialogMessage) []models.DialogMessage {
	out := make([]models.DialogMessage, len(batch))
	for i, msg := range batch {
		msg.DialogID = ""
		out[len(batch)-1-i] = msg
	}
	return out
}

func createDialogMessage(sink *presence.Conn, dialogService *services.DialogService, rooms *presence.Registry, dialogID string, userID int, text string) {
	ctx, cancel := opCtx()
	defer cancel()

	// Both interlocutors holding an open channel right now means the message
	// is seen immediately. Decided once, at creation time.
	read := rooms.Count(dialogID) == 2

	msg, err := dialogService.CreateMessage(ctx, dialogID, userID, text, read)
	if err != nil {
		utils.LogError(err, "CreateDialogMessage")
		utils.SendError(sink, msgStoreFailure)
		return
	}

	out := *msg
	out.DialogID = ""
	rooms.Broadcast(dialogID, models.SocketEvent{Event: "messages", Messages: []models.DialogMessage{out}})
}

func previousDialogMessages(sink *presence.Conn, dialogService *services.DialogService, dialogID string, earliestID int64) {
	ctx, cancel := opCtx()
	defer cancel()

	previous, err := dialogService.PreviousMessages(ctx, dialogID, earliestID)
	if err != nil {
		utils.LogError(err, "PreviousDialogMessages")
		utils.SendError(sink, msgStoreFailure)
		return
	}

	if previous == nil {
		previous = []models.DialogMessage{}
	}
	for i := range previous {
		previous[i].DialogID = ""
	}

	if err := utils.SendEvent(sink, models.SocketEvent{Event: "previous", Messages: previous}); err != nil {
		utils.LogError(err, "PreviousDialogMessages")
	}
}
