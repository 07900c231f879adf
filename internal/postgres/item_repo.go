package postgres

import (
	"context"
	"encoding/json"

	"github.com/cwrk-planet/canvas-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemRepository struct {
	db *pgxpool.Pool
}

func NewItemRepository(db *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Item, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, doc FROM room_items WHERE room_id=$1 ORDER BY created_at ASC, id ASC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		items = append(items, domain.Item{ID: id, Doc: doc})
	}
	return items, rows.Err()
}

// Upsert — атомарный create-or-replace по id. Закрывает гонку
// «проверил-потом-записал» между двумя параллельными add по одному id.
func (r *ItemRepository) Upsert(ctx context.Context, roomID string, item domain.Item) (domain.Item, error) {
	var doc []byte
	err := r.db.QueryRow(ctx, `
		INSERT INTO room_items (room_id, id, doc)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
		RETURNING doc
	`, roomID, item.ID, []byte(item.Doc)).Scan(&doc)
	if err != nil {
		return domain.Item{}, err
	}
	return domain.Item{ID: item.ID, Doc: json.RawMessage(doc)}, nil
}

// ApplyPatch сливает частичное обновление в документ. Отсутствующий объект —
// ошибка: patch создавать документы не должен.
func (r *ItemRepository) ApplyPatch(ctx context.Context, roomID string, patch domain.Item) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE room_items
		SET doc = doc || $3::jsonb, updated_at = now()
		WHERE room_id=$1 AND id=$2
	`, roomID, patch.ID, []byte(patch.Doc))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, roomID, id string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM room_items WHERE room_id=$1 AND id=$2`, roomID, id)
	return err
}
