package storage

import (
	"context"
	"database/sql"
	"errors"
)

// User is a habit owner. TelegramChatID == 0 means no messaging identity is
// bound, which gates reminder registration.
type User struct {
	ID             int64
	Name           string
	TelegramChatID int64
}

func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(name, telegram_chat_id) VALUES(?,?)`,
		u.Name, u.TelegramChatID,
	)
	if err != nil {
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	u.ID = id
	return u, nil
}

// BindChat attaches a Telegram chat id to an owner.
func (s *Store) BindChat(ctx context.Context, userID, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET telegram_chat_id=? WHERE id=?`, chatID, userID)
	return err
}

// ChatID implements habit.OwnerDirectory. An unknown owner reads as no chat
// bound rather than an error.
func (s *Store) ChatID(ctx context.Context, ownerID int64) (int64, error) {
	var chatID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT telegram_chat_id FROM users WHERE id=?`, ownerID).Scan(&chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return chatID, nil
}
