package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cwrk-planet/canvas-service/internal/domain"
	"github.com/cwrk-planet/canvas-service/internal/postgres"
)

// todo: вынести в конфиг
const maxChatBodyBytes = 16 << 10

type ChatService struct {
	chatRepo *postgres.ChatRepository
}

func NewChatService(chatRepo *postgres.ChatRepository) *ChatService {
	return &ChatService{chatRepo: chatRepo}
}

func (s *ChatService) Save(ctx context.Context, roomID, userID string, body json.RawMessage) (*domain.ChatMessage, error) {
	if len(body) == 0 {
		return nil, errors.New("empty message")
	}
	if len(body) > maxChatBodyBytes {
		return nil, errors.New("message too long")
	}
	return s.chatRepo.Save(ctx, roomID, userID, body)
}

func (s *ChatService) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	return s.chatRepo.History(ctx, roomID, after, limit)
}
