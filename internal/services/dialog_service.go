package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"messaging-backend/internal/db"
	"messaging-backend/internal/models"
)

// PageSize is the number of messages served per welcome batch or pagination
// request.
const PageSize = 20

type DialogService struct{}

func NewDialogService() *DialogService {
	return &DialogService{}
}

// EnsureInterlocutors records both directions of the dialog relation so each
// participant's dialog listing discovers the partner. Set semantics: an
// already-known partner is not added twice.
func (s *DialogService) EnsureInterlocutors(ctx context.Context, userID, interlocutorID int) error {
	query := `
		INSERT INTO dialogs (user_id, interlocutors) VALUES ($1, ARRAY[$2]::int[])
		ON CONFLICT (user_id) DO UPDATE
		SET interlocutors = dialogs.interlocutors || EXCLUDED.interlocutors
		WHERE NOT dialogs.interlocutors @> EXCLUDED.interlocutors
	`
	for _, pair := range [][2]int{{userID, interlocutorID}, {interlocutorID, userID}} {
		if _, err := db.Pool.Exec(ctx, query, pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

// CreateMessage persists one dialog message. The read flag is decided by the
// caller from room presence at creation time and never re-evaluated.
func (s *DialogService) CreateMessage(ctx context.Context, dialogID string, senderID int, text string, read bool) (*models.DialogMessage, error) {
	msg := &models.DialogMessage{
		DialogID: dialogID,
		SenderID: senderID,
		Text:     text,
		Date:     time.Now(),
		Read:     read,
	}

	query := `INSERT INTO dialog_messages (dialog_id, sender_id, text, date, read) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := db.Pool.QueryRow(ctx, query, msg.DialogID, msg.SenderID, msg.Text, msg.Date, msg.Read).Scan(&msg.ID); err != nil {
		return nil, err
	}
	return msg, nil
}

// LastMessages returns the newest messages of a dialog, newest-first.
func (s *DialogService) LastMessages(ctx context.Context, dialogID string) ([]models.DialogMessage, error) {
	query := `
		SELECT id, dialog_id, sender_id, text, date, read
		FROM dialog_messages
		WHERE dialog_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2
	`
	return s.queryMessages(ctx, query, dialogID, PageSize)
}

// PreviousMessages returns the page of messages strictly older than
// earliestID, newest-first.
func (s *DialogService) PreviousMessages(ctx context.Context, dialogID string, earliestID int64) ([]models.DialogMessage, error) {
	query := `
		SELECT id, dialog_id, sender_id, text, date, read
		FROM dialog_messages
		WHERE dialog_id = $1 AND id < $2
		ORDER BY date DESC, id DESC
		LIMIT $3
	`
	return s.queryMessages(ctx, query, dialogID, earliestID, PageSize)
}

func (s *DialogService) queryMessages(ctx context.Context, query string, args ...interface{}) ([]models.DialogMessage, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.DialogMessage
	for rows.Next() {
		var msg models.DialogMessage
		if err := rows.Scan(&msg.ID, &msg.DialogID, &msg.SenderID, &msg.Text, &msg.Date, &msg.Read); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkRead transitions one message's read flag to true. The flag never goes
// back.
func (s *DialogService) MarkRead(ctx context.Context, messageID int64) error {
	_, err := db.Pool.Exec(ctx, `UPDATE dialog_messages SET read = TRUE WHERE id = $1`, messageID)
	return err
}

// Interlocutors lists the user's dialog partners with the last message of
// each dialog, newest-first.
func (s *DialogService) Interlocutors(ctx context.Context, userID int) ([]models.Interlocutor, error) {
	dialogIDs, err := s.dialogIDs(ctx, userID)
	if err != nil || len(dialogIDs) == 0 {
		return []models.Interlocutor{}, err
	}

	last, err := s.lastMessagePerDialog(ctx, dialogIDs)
	if err != nil {
		return nil, err
	}

	interlocutors := make([]models.Interlocutor, 0, len(last))
	for _, msg := range last {
		interlocutors = append(interlocutors, models.Interlocutor{
			InterlocutorID: models.DialogPartner(msg.DialogID, userID),
			SenderID:       msg.SenderID,
			Date:           msg.Date,
			Text:           msg.Text,
			Read:           msg.Read,
		})
	}

	sort.Slice(interlocutors, func(i, j int) bool {
		return interlocutors[i].Date.After(interlocutors[j].Date)
	})
	return interlocutors, nil
}

// UnreadCount counts dialogs whose latest message is unread and authored by
// the partner. Only the single most recent message per dialog is eligible;
// older unread messages never contribute.
func (s *DialogService) UnreadCount(ctx context.Context, userID int) (int, error) {
	dialogIDs, err := s.dialogIDs(ctx, userID)
	if err != nil || len(dialogIDs) == 0 {
		return 0, err
	}

	query := `
		SELECT COUNT(*) FROM (
			SELECT DISTINCT ON (dialog_id) sender_id, read
			FROM dialog_messages
			WHERE dialog_id = ANY($1)
			ORDER BY dialog_id, id DESC
		) last
		WHERE last.read = FALSE AND last.sender_id <> $2
	`
	var amount int
	if err := db.Pool.QueryRow(ctx, query, dialogIDs, userID).Scan(&amount); err != nil {
		return 0, err
	}
	return amount, nil
}

func (s *DialogService) dialogIDs(ctx context.Context, userID int) ([]string, error) {
	var interlocutors []int
	err := db.Pool.QueryRow(ctx, `SELECT interlocutors FROM dialogs WHERE user_id = $1`, userID).Scan(&interlocutors)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(interlocutors))
	for _, id := range interlocutors {
		ids = append(ids, models.DialogKey(userID, id))
	}
	return ids, nil
}

func (s *DialogService) lastMessagePerDialog(ctx context.Context, dialogIDs []string) ([]models.DialogMessage, error) {
	query := `
		SELECT DISTINCT ON (dialog_id) id, dialog_id, sender_id, text, date, read
		FROM dialog_messages
		WHERE dialog_id = ANY($1)
		ORDER BY dialog_id, id DESC
	`
	return s.queryMessages(ctx, query, dialogIDs)
}
