package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"messaging-backend/internal/models"
)

type df struct {
	sender int
	read   bool
}

func dialogBatch(flags ...df) []models.DialogMessage {
	batch := make([]models.DialogMessage, 0, len(flags))
	for i, f := range flags {
		batch = append(batch, models.DialogMessage{
			ID:       int64(100 - i), // newest-first
			DialogID: "1-2",
			SenderID: f.sender,
			Text:     "m",
			Date:     time.Now(),
			Read:     f.read,
		})
	}
	return batch
}

func TestMarkableDialog(t *testing.T) {
	req := require.New(t)

	// Newest unread from the partner gets marked.
	req.True(markableDialog(dialogBatch(df{2, false}, df{2, false}), 1))

	// Self-authored newest message is never marked by the author.
	req.False(markableDialog(dialogBatch(df{1, false}), 1))

	// Already read: nothing to do.
	req.False(markableDialog(dialogBatch(df{2, true}, df{2, false}), 1))

	// Empty batch.
	req.False(markableDialog(nil, 1))
}

func TestMarkableChat(t *testing.T) {
	req := require.New(t)

	req.True(markableChat([]models.ChatMessage{{ID: 2, Read: false}, {ID: 1, Read: false}}))
	req.False(markableChat([]models.ChatMessage{{ID: 2, Read: true}, {ID: 1, Read: false}}))
	req.False(markableChat(nil))
}

func TestForDialogDisplay(t *testing.T) {
	req := require.New(t)

	batch := dialogBatch(df{2, true}, df{1, false}, df{2, false})
	out := forDialogDisplay(batch)

	req.Len(out, 3)
	// Chronological: oldest first.
	req.Equal(int64(98), out[0].ID)
	req.Equal(int64(100), out[2].ID)
	// Room key stripped from the wire shape.
	for _, msg := range out {
		req.Empty(msg.DialogID)
	}
	// Input untouched.
	req.Equal("1-2", batch[0].DialogID)
}

func TestForChatDisplay(t *testing.T) {
	req := require.New(t)

	out := forChatDisplay([]models.ChatMessage{{ID: 3}, {ID: 2}, {ID: 1}})
	req.Equal(int64(1), out[0].ID)
	req.Equal(int64(3), out[2].ID)

	req.Empty(forChatDisplay(nil))
}
