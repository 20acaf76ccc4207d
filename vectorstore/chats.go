package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github/itish2003/docchat/models"
)

// GetMessages returns the stored conversation of chatID in order. An unknown
// chat has no messages.
func (s *SQLStore) GetMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.bind(`
		SELECT role, content FROM messages WHERE chat_id = ? ORDER BY idx`), chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying messages: %v", models.ErrStore, err)
	}
	defer rows.Close()

	var messages []models.Message //nolint:prealloc // size unknown from query
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("%w: scanning message: %v", models.ErrStore, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating messages: %v", models.ErrStore, err)
	}
	return messages, nil
}

// SaveMessages replaces the stored conversation of chatID, creating the chat
// when it does not exist yet.
func (s *SQLStore) SaveMessages(ctx context.Context, chatID string, messages []models.Message) error {
	now := time.Now().UTC()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.dialect.bind(`
			INSERT INTO chats (id, created_at, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET updated_at = excluded.updated_at`),
			chatID, now, now); err != nil {
			return fmt.Errorf("saving chat: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.bind("DELETE FROM messages WHERE chat_id = ?"), chatID); err != nil {
			return fmt.Errorf("clearing messages: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, s.dialect.bind(`
			INSERT INTO messages (id, chat_id, idx, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for i, m := range messages {
			if _, err := stmt.ExecContext(ctx, uuid.New().String(), chatID, i, m.Role, m.Content, now); err != nil {
				return fmt.Errorf("inserting message %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}
	return nil
}

// DeleteChat removes a chat and its messages.
func (s *SQLStore) DeleteChat(ctx context.Context, chatID string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.bind("DELETE FROM chats WHERE id = ?"), chatID)
	if err != nil {
		return fmt.Errorf("%w: deleting chat: %v", models.ErrStore, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: chat %s", models.ErrNotFound, chatID)
	}
	return nil
}
