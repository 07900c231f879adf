package service

import (
	"context"

	"github.com/cwrk-planet/canvas-service/internal/domain"
	"github.com/cwrk-planet/canvas-service/internal/postgres"
)

type ItemService struct {
	itemRepo *postgres.ItemRepository
}

func NewItemService(itemRepo *postgres.ItemRepository) *ItemService {
	return &ItemService{itemRepo: itemRepo}
}

func (s *ItemService) AllItems(ctx context.Context, roomID string) ([]domain.Item, error) {
	return s.itemRepo.ListByRoom(ctx, roomID)
}

// AddItem — create-or-replace по id; объект без id не принимается.
func (s *ItemService) AddItem(ctx context.Context, roomID string, item domain.Item) (domain.Item, error) {
	if item.ID == "" {
		return domain.Item{}, domain.ErrItemWithoutID
	}
	return s.itemRepo.Upsert(ctx, roomID, item)
}

// UpdateItem применяет частичное обновление к существующему объекту.
func (s *ItemService) UpdateItem(ctx context.Context, roomID string, patch domain.Item) error {
	if patch.ID == "" {
		return domain.ErrItemWithoutID
	}
	return s.itemRepo.ApplyPatch(ctx, roomID, patch)
}

func (s *ItemService) RemoveItem(ctx context.Context, roomID, id string) error {
	return s.itemRepo.Delete(ctx, roomID, id)
}
