package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
)

var ErrRuleConflict = errors.New("competition already has a rule of this type")

type AdvancementRuleRepository interface {
	Create(ctx context.Context, rule *models.AdvancementRule) error
	ListByCompetition(ctx context.Context, fromCompetitionID uuid.UUID) ([]models.AdvancementRule, error)
	// ListAutoApply returns auto_apply rules, all of them when fromCompetitionID is nil.
	ListAutoApply(ctx context.Context, fromCompetitionID *uuid.UUID) ([]models.AdvancementRule, error)
}

type postgresAdvancementRuleRepository struct {
	db *sql.DB
}

func NewPostgresAdvancementRuleRepository(db *sql.DB) AdvancementRuleRepository {
	return &postgresAdvancementRuleRepository{db: db}
}

func (r *postgresAdvancementRuleRepository) Create(ctx context.Context, rule *models.AdvancementRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	query := `
		INSERT INTO competition_advancement_rules (
			id, from_competition_id, to_competition_id, rule_type, advancement_positions, auto_apply
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		rule.ID, rule.FromCompetitionID, rule.ToCompetitionID, rule.RuleType, rule.AdvancementPositions, rule.AutoApply,
	).Scan(&rule.CreatedAt)
	switch pqCode(err) {
	case codeUniqueViolation:
		return ErrRuleConflict
	case codeForeignKeyViolation:
		return ErrCompetitionNotFound
	}
	return err
}

const ruleSelect = `
	SELECT id, from_competition_id, to_competition_id, rule_type, advancement_positions, auto_apply, created_at
	FROM competition_advancement_rules`

func (r *postgresAdvancementRuleRepository) ListByCompetition(ctx context.Context, fromCompetitionID uuid.UUID) ([]models.AdvancementRule, error) {
	return r.list(ctx, ruleSelect+` WHERE from_competition_id = $1 ORDER BY created_at`, fromCompetitionID)
}

func (r *postgresAdvancementRuleRepository) ListAutoApply(ctx context.Context, fromCompetitionID *uuid.UUID) ([]models.AdvancementRule, error) {
	if fromCompetitionID == nil {
		return r.list(ctx, ruleSelect+` WHERE auto_apply ORDER BY from_competition_id, created_at`)
	}
	return r.list(ctx, ruleSelect+` WHERE auto_apply AND from_competition_id = $1 ORDER BY created_at`, *fromCompetitionID)
}

func (r *postgresAdvancementRuleRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.AdvancementRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query advancement rules: %w", err)
	}
	defer rows.Close()

	rules := make([]models.AdvancementRule, 0)
	for rows.Next() {
		var rule models.AdvancementRule
		if err := rows.Scan(
			&rule.ID, &rule.FromCompetitionID, &rule.ToCompetitionID, &rule.RuleType,
			&rule.AdvancementPositions, &rule.AutoApply, &rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan advancement rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}
