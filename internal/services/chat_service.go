package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"messaging-backend/internal/db"
	"messaging-backend/internal/models"
	"messaging-backend/internal/utils"
)

// ErrAccessDenied means the user is not a member of the chat they tried to
// open a channel on.
var ErrAccessDenied = errors.New("access denied")

type ChatService struct{}

func NewChatService() *ChatService {
	return &ChatService{}
}

// Members returns the durable membership set of a chat.
func (s *ChatService) Members(ctx context.Context, chatID int) ([]int, error) {
	var users []int
	err := db.Pool.QueryRow(ctx, `SELECT users FROM chats WHERE id = $1`, chatID).Scan(&users)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("chat %d: %w", chatID, ErrAccessDenied)
	}
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Authorize checks that the user belongs to the chat.
func (s *ChatService) Authorize(ctx context.Context, chatID, userID int) error {
	members, err := s.Members(ctx, chatID)
	if err != nil {
		return err
	}
	for _, id := range members {
		if id == userID {
			return nil
		}
	}
	return fmt.Errorf("user %d in chat %d: %w", userID, chatID, ErrAccessDenied)
}

// AddUsers adds users to a chat's membership set, creating the chat if it
// does not exist yet. Duplicates are never added.
func (s *ChatService) AddUsers(ctx context.Context, chatID int, users []int) error {
	query := `
		INSERT INTO chats (id, users) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET users = (
			SELECT COALESCE(array_agg(DISTINCT u ORDER BY u), '{}')
			FROM unnest(chats.users || EXCLUDED.users) u
		)
	`
	_, err := db.Pool.Exec(ctx, query, chatID, users)
	return err
}

// RemoveUsers removes users from a chat's membership set. Removed members
// lose access to future room admission. A no-op for an unknown chat.
func (s *ChatService) RemoveUsers(ctx context.Context, chatID int, users []int) error {
	query := `
		UPDATE chats
		SET users = (
			SELECT COALESCE(array_agg(u), '{}')
			FROM unnest(users) u
			WHERE NOT (u = ANY($2))
		)
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, chatID, users)
	return err
}

// BuildFanout constructs one recipient-scoped document per chat member for a
// new message. A recipient currently present in the room is considered to
// have seen the message immediately.
func BuildFanout(chatID, senderID int, text string, members, present []int, date time.Time) []models.ChatMessage {
	presentSet := make(map[int]struct{}, len(present))
	for _, id := range present {
		presentSet[id] = struct{}{}
	}

	docs := make([]models.ChatMessage, 0, len(members))
	for _, recipientID := range members {
		_, read := presentSet[recipientID]
		docs = append(docs, models.ChatMessage{
			ChatID:      chatID,
			RecipientID: recipientID,
			SenderID:    senderID,
			Text:        text,
			Date:        date,
			Read:        read,
		})
	}
	return docs
}

// SaveMessages persists the fanout documents with independent writes. A
// failed write is logged and does not abort the others: at-least-one-attempt
// per recipient, not transactional across recipients.
func (s *ChatService) SaveMessages(ctx context.Context, docs []models.ChatMessage) {
	query := `INSERT INTO chat_messages (chat_id, recipient_id, sender_id, text, date, read) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, doc := range docs {
		_, err := db.Pool.Exec(ctx, query, doc.ChatID, doc.RecipientID, doc.SenderID, doc.Text, doc.Date, doc.Read)
		utils.LogError(err, "SaveMessages")
	}
}

// LastMessages returns the newest messages addressed to the user in the
// chat, newest-first.
func (s *ChatService) LastMessages(ctx context.Context, chatID, userID int) ([]models.ChatMessage, error) {
	query := `
		SELECT id, chat_id, recipient_id, sender_id, text, date, read
		FROM chat_messages
		WHERE recipient_id = $1 AND chat_id = $2
		ORDER BY date DESC, id DESC
		LIMIT $3
	`
	return s.queryMessages(ctx, query, userID, chatID, PageSize)
}

// PreviousMessages returns the page of the user's messages in the chat
// strictly older than earliestID, newest-first.
func (s *ChatService) PreviousMessages(ctx context.Context, chatID, userID int, earliestID int64) ([]models.ChatMessage, error) {
	query := `
		SELECT id, chat_id, recipient_id, sender_id, text, date, read
		FROM chat_messages
		WHERE recipient_id = $1 AND chat_id = $2 AND id < $3
		ORDER BY date DESC, id DESC
		LIMIT $4
	`
	return s.queryMessages(ctx, query, userID, chatID, earliestID, PageSize)
}

func (s *ChatService) queryMessages(ctx context.Context, query string, args ...interface{}) ([]models.ChatMessage, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.RecipientID, &msg.SenderID, &msg.Text, &msg.Date, &msg.Read); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkRead transitions one message's read flag to true.
func (s *ChatService) MarkRead(ctx context.Context, messageID int64) error {
	_, err := db.Pool.Exec(ctx, `UPDATE chat_messages SET read = TRUE WHERE id = $1`, messageID)
	return err
}

// Chats lists the latest message addressed to the user per chat they belong
// to, newest-first.
func (s *ChatService) Chats(ctx context.Context, userID int) ([]models.ChatMessage, error) {
	chatIDs, err := s.chatIDs(ctx, userID)
	if err != nil || len(chatIDs) == 0 {
		return []models.ChatMessage{}, err
	}

	query := `
		SELECT DISTINCT ON (chat_id) id, chat_id, recipient_id, sender_id, text, date, read
		FROM chat_messages
		WHERE recipient_id = $1 AND chat_id = ANY($2)
		ORDER BY chat_id, id DESC
	`
	messages, err := s.queryMessages(ctx, query, userID, chatIDs)
	if err != nil {
		return nil, err
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Date.After(messages[j].Date)
	})
	return messages, nil
}

// UnreadCount counts chats whose latest message addressed to the user is
// unread and authored by someone else. Only the single most recent message
// per chat is eligible.
func (s *ChatService) UnreadCount(ctx context.Context, userID int) (int, error) {
	chatIDs, err := s.chatIDs(ctx, userID)
	if err != nil || len(chatIDs) == 0 {
		return 0, err
	}

	query := `
		SELECT COUNT(*) FROM (
			SELECT DISTINCT ON (chat_id) sender_id, read
			FROM chat_messages
			WHERE recipient_id = $1 AND chat_id = ANY($2)
			ORDER BY chat_id, id DESC
		) last
		WHERE last.read = FALSE AND last.sender_id <> $1
	`
	var amount int
	if err := db.Pool.QueryRow(ctx, query, userID, chatIDs).Scan(&amount); err != nil {
		return 0, err
	}
	return amount, nil
}

func (s *ChatService) chatIDs(ctx context.Context, userID int) ([]int, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id FROM chats WHERE $1 = ANY(users)`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
