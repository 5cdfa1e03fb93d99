package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DialogKey builds the room key for a dialog between two users. The pair is
// sorted so both participants resolve to the same room regardless of who
// connects first.
func DialogKey(id1, id2 int) string {
	if id1 < id2 {
		return fmt.Sprintf("%d-%d", id1, id2)
	}
	return fmt.Sprintf("%d-%d", id2, id1)
}

// DialogPartner extracts the other participant's id from a dialog key. For
// a degenerate self-dialog key the partner is the user themselves.
func DialogPartner(dialogID string, userID int) int {
	self := false
	for _, part := range strings.Split(dialogID, "-") {
		id, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		if id != userID {
			return id
		}
		self = true
	}
	if self {
		return userID
	}
	return 0
}

// Interlocutor summarizes one dialog partner with the last message exchanged.
type Interlocutor struct {
	InterlocutorID int       `json:"interlocutorId"`
	SenderID       int       `json:"senderId"`
	Date           time.Time `json:"date"`
	Text           string    `json:"text"`
	Read           bool      `json:"read"`
}
