package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новый слот; повтор того же интервала не ошибка.
// Возвращает false, если такой слот уже был.
func (r *SlotRepository) Create(ctx context.Context, slot *model.AvailableSlot) (bool, error) {
	query := `
		INSERT INTO available_slots (consultant_id, start_at, end_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (consultant_id, start_at, end_at) DO NOTHING
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, slot.ConsultantID, slot.StartAt, slot.EndAt).
		Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("create slot: %w", err)
	}

	return true, nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error) {
	query := `
		SELECT id, consultant_id, start_at, end_at, created_at
		FROM available_slots
		WHERE id = $1
	`

	var slot model.AvailableSlot
	err := r.QueryRow(ctx, query, id).Scan(
		&slot.ID,
		&slot.ConsultantID,
		&slot.StartAt,
		&slot.EndAt,
		&slot.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return &slot, nil
}

// ListInRange слоты консультанта, начинающиеся в [from, to), по возрастанию начала
func (r *SlotRepository) ListInRange(ctx context.Context, consultantID int64, from, to time.Time) ([]*model.AvailableSlot, error) {
	query := `
		SELECT id, consultant_id, start_at, end_at, created_at
		FROM available_slots
		WHERE consultant_id = $1
		  AND start_at >= $2
		  AND start_at < $3
		ORDER BY start_at, end_at
	`

	rows, err := r.Query(ctx, query, consultantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots in range: %w", err)
	}
	defer rows.Close()

	var slots []*model.AvailableSlot
	for rows.Next() {
		var slot model.AvailableSlot
		err := rows.Scan(
			&slot.ID,
			&slot.ConsultantID,
			&slot.StartAt,
			&slot.EndAt,
			&slot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, &slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// Delete удаляет слот
func (r *SlotRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM available_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("slot not found")
	}

	return nil
}

// Exists проверяет точное совпадение интервала, без поиска вложенных
func (r *SlotRepository) Exists(ctx context.Context, consultantID int64, start, end time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM available_slots
			WHERE consultant_id = $1 AND start_at = $2 AND end_at = $3
		)
	`

	var exists bool
	err := r.QueryRow(ctx, query, consultantID, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slot exists: %w", err)
	}

	return exists, nil
}
