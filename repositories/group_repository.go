package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
)

var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrGroupNameConflict = errors.New("group name already used in competition")
)

type GroupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, g *models.Group) error
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID) ([]models.Group, error)
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, g *models.Group) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	query := `
		INSERT INTO competition_groups (id, competition_id, name, group_order)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query, g.ID, g.CompetitionID, g.Name, g.Order).Scan(&g.CreatedAt)
	switch pqCode(err) {
	case codeUniqueViolation:
		return ErrGroupNameConflict
	case codeForeignKeyViolation:
		return ErrCompetitionNotFound
	}
	return err
}

func (r *postgresGroupRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID) ([]models.Group, error) {
	query := `
		SELECT id, competition_id, name, group_order, created_at
		FROM competition_groups
		WHERE competition_id = $1
		ORDER BY group_order`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := make([]models.Group, 0)
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.CompetitionID, &g.Name, &g.Order, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}
