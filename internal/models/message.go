package models

import "time"

// DialogMessage is one stored message in a dialog. The read flag is tracked
// from the sender's perspective: read means the interlocutor has seen it.
type DialogMessage struct {
	ID       int64     `json:"id"`
	DialogID string    `json:"dialogId,omitempty"`
	SenderID int       `json:"senderId"`
	Text     string    `json:"text"`
	Date     time.Time `json:"date"`
	Read     bool      `json:"read"`
}

// ChatMessage is one recipient-scoped message document. A chat message is
// fanned out as one document per member so read state is tracked per
// recipient.
type ChatMessage struct {
	ID          int64     `json:"id,omitempty"`
	ChatID      int       `json:"chatId"`
	RecipientID int       `json:"recipientId,omitempty"`
	SenderID    int       `json:"senderId"`
	Text        string    `json:"text"`
	Date        time.Time `json:"date"`
	Read        bool      `json:"read"`
}

// ChatBroadcast is the sender-agnostic shape pushed to the live room when a
// chat message is created. It carries no recipient or read split.
type ChatBroadcast struct {
	ChatID   int       `json:"chatId"`
	SenderID int       `json:"senderId"`
	Text     string    `json:"text"`
	Date     time.Time `json:"date"`
}

// SocketRequest is an inbound websocket frame.
type SocketRequest struct {
	Event      string `json:"event"`
	Text       string `json:"text,omitempty"`
	EarliestID int64  `json:"earliestId,omitempty"`
}

// SocketEvent is an outbound websocket frame.
type SocketEvent struct {
	Event    string      `json:"event"`
	Messages interface{} `json:"messages,omitempty"`
	Users    []int       `json:"users,omitempty"`
	Message  string      `json:"message,omitempty"`
}
