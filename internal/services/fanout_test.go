package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildFanout_ReadFollowsPresence(t *testing.T) {
	req := require.New(t)

	// Chat with members A=1, B=2, C=3; only A and B hold open channels.
	members := []int{1, 2, 3}
	present := []int{1, 2}
	now := time.Now()

	docs := BuildFanout(42, 1, "hello", members, present, now)

	req.Len(docs, 3)

	byRecipient := make(map[int]bool, len(docs))
	for _, doc := range docs {
		req.Equal(42, doc.ChatID)
		req.Equal(1, doc.SenderID)
		req.Equal("hello", doc.Text)
		req.Equal(now, doc.Date)
		byRecipient[doc.RecipientID] = doc.Read
	}

	req.True(byRecipient[1], "present sender's own copy is read")
	req.True(byRecipient[2], "present member's copy is read")
	req.False(byRecipient[3], "absent member's copy is unread")
}

func TestBuildFanout_NoDocumentForNonMember(t *testing.T) {
	req := require.New(t)

	// User 9 is present in the room but no longer a member.
	docs := BuildFanout(42, 1, "hi", []int{1, 2}, []int{1, 9}, time.Now())

	req.Len(docs, 2)
	for _, doc := range docs {
		req.NotEqual(9, doc.RecipientID)
	}
}

func TestBuildFanout_EmptyMembership(t *testing.T) {
	require.Empty(t, BuildFanout(42, 1, "hi", nil, []int{1}, time.Now()))
}
