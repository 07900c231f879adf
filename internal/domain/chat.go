package domain

import (
	"encoding/json"
	"time"
)

type ChatMessage struct {
	ID        string          `db:"id"`
	RoomID    string          `db:"room_id"`
	UserID    string          `db:"user_id"`
	Body      json.RawMessage `db:"body"`
	CreatedAt time.Time       `db:"created_at"`
}
