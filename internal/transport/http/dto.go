package http

import (
	"encoding/json"
	"time"
)

type CreateRoomRequest struct {
	Password string `json:"password"`
}

type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ChatMessageItem struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"roomId"`
	UserID    string          `json:"userId"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ChatHistoryResponse struct {
	Items      []ChatMessageItem `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}
