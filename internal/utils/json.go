package utils

import (
	"encoding/json"
	"log"

	"messaging-backend/internal/models"
)

// EventWriter is the write side of a client channel. Handlers pass the
// per-connection serializing wrapper here, never the raw websocket
// connection: raw connections are not safe for concurrent writes.
type EventWriter interface {
	WriteJSON(v interface{}) error
}

// SafeJSONParse parses JSON safely
func SafeJSONParse(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// SendEvent writes one event frame to a client channel.
func SendEvent(w EventWriter, event models.SocketEvent) error {
	return w.WriteJSON(event)
}

// SendError reports a failed operation to the originating connection. Only
// the normalized message crosses the boundary, never the raw failure.
func SendError(w EventWriter, message string) {
	if err := w.WriteJSON(models.SocketEvent{Event: "error", Message: message}); err != nil {
		LogError(err, "SendError")
	}
}

// LogError logs an error if it's not nil
func LogError(err error, context string) {
	if err != nil {
		log.Printf("Error [%s]: %v", context, err)
	}
}
