// AngelaMos | 2026
// repository.go

package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

const messageColumns = `id, name, email, message, status, reply, replied_at, created_at`

type Repository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	List(ctx context.Context, params ListParams) ([]Message, int, error)
	SetReply(ctx context.Context, id int64, reply string) (*Message, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO messages (name, email, message)
		VALUES ($1, $2, $3)
		RETURNING id, status, created_at`

	err := r.db.QueryRowxContext(ctx, query, m.Name, m.Email, m.Message).
		Scan(&m.ID, &m.Status, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	var m Message
	err := r.db.GetContext(ctx, &m, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get message: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}

	return &m, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Message, int, error) {
	where := ""
	args := []any{}
	if params.Status != "" {
		where = "WHERE status = $1"
		args = append(args, params.Status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM messages "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM messages
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		messageColumns, where, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, params.Offset())

	var msgs []Message
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}

	return msgs, total, nil
}

func (r *repository) SetReply(ctx context.Context, id int64, reply string) (*Message, error) {
	query := `
		UPDATE messages
		SET reply = $2, status = 'replied', replied_at = NOW()
		WHERE id = $1
		RETURNING ` + messageColumns

	var m Message
	err := r.db.GetContext(ctx, &m, query, id, reply)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reply message: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reply message: %w", err)
	}

	return &m, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete message: %w", core.ErrNotFound)
	}

	return nil
}
