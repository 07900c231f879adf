package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cwrk-planet/canvas-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Save(ctx context.Context, roomID, userID string, body json.RawMessage) (*domain.ChatMessage, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO room_messages (id, room_id, user_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, room_id, user_id, body, created_at
	`, uuid.NewString(), roomID, userID, []byte(body))

	var m domain.ChatMessage
	var raw []byte
	if err := row.Scan(&m.ID, &m.RoomID, &m.UserID, &raw, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Body = raw
	return &m, nil
}

// History возвращает историю сообщений комнаты с курсорной пагинацией (created_at,id DESC).
func (r *ChatRepository) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	const baseQuery = `
		SELECT id, room_id, user_id, body, created_at
		FROM room_messages
		WHERE room_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, baseQuery, roomID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var raw []byte
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &raw, &m.CreatedAt); err != nil {
			return nil, "", err
		}
		m.Body = raw
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(out) == limit {
		last := out[len(out)-1]
		nextCursor, _ = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return out, nextCursor, nil
}
