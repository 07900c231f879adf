package service

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/canvas-service/internal/domain"
	"github.com/cwrk-planet/canvas-service/internal/postgres"
	"github.com/cwrk-planet/canvas-service/internal/security"

	"github.com/google/uuid"
)

type RoomService struct {
	roomRepo *postgres.RoomRepository
}

func NewRoomService(roomRepo *postgres.RoomRepository) *RoomService {
	return &RoomService{roomRepo: roomRepo}
}

// CreateRoom генерирует свежий id и сохраняет комнату. Пароль хранится только
// как bcrypt-хэш; пустой пароль — открытая комната.
func (s *RoomService) CreateRoom(ctx context.Context, password string) (string, error) {
	room := &domain.Room{ID: uuid.NewString()}

	if password != "" {
		hash, err := security.HashPassword(password)
		if err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
		room.PasswordHash = &hash
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return "", fmt.Errorf("roomRepo.Create: %w", err)
	}
	return room.ID, nil
}

func (s *RoomService) RoomExists(ctx context.Context, id string) (bool, error) {
	return s.roomRepo.Exists(ctx, id)
}

// IsPasswordCorrect сверяет пароль при входе. Комната без хэша пускает с любым
// паролем, в том числе без него.
func (s *RoomService) IsPasswordCorrect(ctx context.Context, id, password string) (bool, error) {
	room, err := s.roomRepo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if room.PasswordHash == nil {
		return true, nil
	}
	return security.ComparePassword(*room.PasswordHash, password) == nil, nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, id string) error {
	return s.roomRepo.Delete(ctx, id)
}
