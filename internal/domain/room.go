package domain

import "time"

// Room — метаданные комнаты в хранилище. Живое состояние комнаты
// (участники, блокировки) держит registry и оно не персистится.
type Room struct {
	ID           string    `db:"id"`
	PasswordHash *string   `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
