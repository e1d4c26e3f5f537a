package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const ruleColumns = `id, consultant_id, weekday, start_minute, end_minute, slot_minutes, zone_id, created_at, updated_at`

// AvailabilityRuleRepository управляет еженедельными правилами доступности
type AvailabilityRuleRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewAvailabilityRuleRepository создаёт новый репозиторий
func NewAvailabilityRuleRepository(pool *pgxpool.Pool, logger *zap.Logger) *AvailabilityRuleRepository {
	return &AvailabilityRuleRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// Create создаёт новое правило
func (r *AvailabilityRuleRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	query := `
		INSERT INTO availability_rules (consultant_id, weekday, start_minute, end_minute, slot_minutes, zone_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		rule.ConsultantID,
		rule.Weekday,
		int(rule.StartTime),
		int(rule.EndTime),
		rule.SlotMinutes,
		rule.ZoneID,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create availability rule: %w", err)
	}

	return nil
}

// GetByID получает правило по ID
func (r *AvailabilityRuleRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilityRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM availability_rules WHERE id = $1`

	rule, err := scanRule(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability rule by id: %w", err)
	}
	return rule, nil
}

// GetByConsultantID возвращает все правила консультанта в порядке создания
func (r *AvailabilityRuleRepository) GetByConsultantID(ctx context.Context, consultantID int64) ([]*model.AvailabilityRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM availability_rules
		WHERE consultant_id = $1
		ORDER BY id
	`

	rows, err := r.Query(ctx, query, consultantID)
	if err != nil {
		return nil, fmt.Errorf("get availability rules by consultant: %w", err)
	}
	defer rows.Close()

	var rules []*model.AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability rules: %w", err)
	}

	r.logger.Debug("Loaded availability rules",
		zap.Int64("consultant_id", consultantID),
		zap.Int("count", len(rules)),
	)

	return rules, nil
}

// Delete удаляет правило
func (r *AvailabilityRuleRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM availability_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability rule: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("availability rule not found")
	}

	return nil
}

func scanRule(row rowScanner) (*model.AvailabilityRule, error) {
	var (
		rule       model.AvailabilityRule
		start, end int
	)
	err := row.Scan(
		&rule.ID,
		&rule.ConsultantID,
		&rule.Weekday,
		&start,
		&end,
		&rule.SlotMinutes,
		&rule.ZoneID,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.StartTime = model.TimeOfDay(start)
	rule.EndTime = model.TimeOfDay(end)
	return &rule, nil
}
