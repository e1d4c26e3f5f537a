package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStaleVersion строку успели изменить с момента чтения
var ErrStaleVersion = errors.New("stale appointment version")

const appointmentColumns = `id, consultant_id, client_id, start_at, end_at, status, meeting_url, version, created_at, updated_at`

type AppointmentRepository struct {
	*base.Repository
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт запись. Нарушение appointments_no_overlap возвращается как есть,
// его распознаёт base.IsExclusionViolation.
func (r *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (consultant_id, client_id, start_at, end_at, status, meeting_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		a.ConsultantID,
		a.ClientID,
		a.StartAt,
		a.EndAt,
		a.Status,
		a.MeetingURL,
	).Scan(&a.ID, &a.Version, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.getOne(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
}

// GetByIDForUpdate то же, но с блокировкой строки до конца транзакции
func (r *AppointmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.getOne(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
}

// LockStaleRequested блокирует запись, только если она всё ещё просроченный холд.
// Строки, заблокированные другой транзакцией, пропускаются.
func (r *AppointmentRepository) LockStaleRequested(ctx context.Context, id int64, cutoff time.Time) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE id = $1 AND status = 'REQUESTED' AND created_at < $2
		FOR UPDATE SKIP LOCKED
	`
	return r.getOne(ctx, query, id, cutoff)
}

func (r *AppointmentRepository) getOne(ctx context.Context, query string, args ...any) (*model.Appointment, error) {
	a, err := scanAppointment(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

// GetByOrderID записи, привязанные к заказу
func (r *AppointmentRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*model.Appointment, error) {
	query := `
		SELECT a.id, a.consultant_id, a.client_id, a.start_at, a.end_at, a.status, a.meeting_url, a.version, a.created_at, a.updated_at
		FROM appointments a
		JOIN order_appointments oa ON oa.appointment_id = a.id
		WHERE oa.order_id = $1
		ORDER BY a.id
	`
	return r.list(ctx, "get appointments by order", query, orderID)
}

// GetByOrderIDForUpdate то же с блокировкой, в порядке id
func (r *AppointmentRepository) GetByOrderIDForUpdate(ctx context.Context, orderID int64) ([]*model.Appointment, error) {
	query := `
		SELECT a.id, a.consultant_id, a.client_id, a.start_at, a.end_at, a.status, a.meeting_url, a.version, a.created_at, a.updated_at
		FROM appointments a
		JOIN order_appointments oa ON oa.appointment_id = a.id
		WHERE oa.order_id = $1
		ORDER BY a.id
		FOR UPDATE OF a
	`
	return r.list(ctx, "lock appointments by order", query, orderID)
}

// GetByClientID получает все записи клиента
func (r *AppointmentRepository) GetByClientID(ctx context.Context, clientID int64) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE client_id = $1 ORDER BY start_at DESC`
	return r.list(ctx, "get appointments by client", query, clientID)
}

// GetByConsultantID получает все записи консультанта
func (r *AppointmentRepository) GetByConsultantID(ctx context.Context, consultantID int64) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE consultant_id = $1 ORDER BY start_at DESC`
	return r.list(ctx, "get appointments by consultant", query, consultantID)
}

// GetStaleRequestedIDs холды старше cutoff
func (r *AppointmentRepository) GetStaleRequestedIDs(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id
		FROM appointments
		WHERE status = 'REQUESTED' AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("get stale requested appointments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan appointment id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ExistsActiveOverlap единственный предикат пересечения для всех путей.
// excludeID = 0 означает "никого не исключать".
func (r *AppointmentRepository) ExistsActiveOverlap(ctx context.Context, consultantID int64, start, end time.Time, excludeID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE consultant_id = $1
			  AND ($4::bigint = 0 OR id <> $4)
			  AND status IN ('REQUESTED', 'APPROVED')
			  AND start_at < $3
			  AND end_at > $2
		)
	`

	var exists bool
	err := r.QueryRow(ctx, query, consultantID, start, end, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check appointment overlap: %w", err)
	}

	return exists, nil
}

// Update сохраняет интервал, статус и ссылку, увеличивая версию
func (r *AppointmentRepository) Update(ctx context.Context, a *model.Appointment) error {
	query := `
		UPDATE appointments
		SET start_at = $1, end_at = $2, status = $3, meeting_url = $4,
		    version = version + 1, updated_at = now()
		WHERE id = $5 AND version = $6
		RETURNING version, updated_at
	`

	err := r.QueryRow(ctx, query, a.StartAt, a.EndAt, a.Status, a.MeetingURL, a.ID, a.Version).
		Scan(&a.Version, &a.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return ErrStaleVersion
		}
		return fmt.Errorf("update appointment: %w", err)
	}

	return nil
}

func (r *AppointmentRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Appointment, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.ConsultantID,
		&a.ClientID,
		&a.StartAt,
		&a.EndAt,
		&a.Status,
		&a.MeetingURL,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
