package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, name, role, tier, base_price, company, telegram_id, created_at`

// UserRepository читает пользователей; сами пользователи заводятся вне этого сервиса
type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// LockByID берёт эксклюзивную блокировку строки пользователя до конца транзакции.
// Для консультанта это сериализует все изменения его календаря.
func (r *UserRepository) LockByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return user, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user model.User
		tier *string
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&tier,
		&user.BasePrice,
		&user.Company,
		&user.TelegramID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tier != nil {
		user.Tier = model.ConsultantTier(*tier)
	}
	return &user, nil
}

// rowScanner общее у pgx.Row и pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
