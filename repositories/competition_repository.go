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
	ErrCompetitionNotFound     = errors.New("competition not found")
	ErrCompetitionNameConflict = errors.New("competition name already used in this season")
)

type ListCompetitionsFilter struct {
	SeasonID   *uuid.UUID
	StageLevel *string
	Status     *models.CompetitionStatus
	Limit      int
	Offset     int
}

type CompetitionRepository interface {
	Create(ctx context.Context, c *models.Competition) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Competition, error)
	// GetByIDForUpdate locks the competition row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Competition, error)
	List(ctx context.Context, filter ListCompetitionsFilter) ([]models.Competition, error)
	Update(ctx context.Context, exec SQLExecutor, c *models.Competition) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.CompetitionStatus) error
}

type postgresCompetitionRepository struct {
	db *sql.DB
}

func NewPostgresCompetitionRepository(db *sql.DB) CompetitionRepository {
	return &postgresCompetitionRepository{db: db}
}

func (r *postgresCompetitionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const competitionColumns = `
	id, season_id, name, stage_level, format_type, legs,
	points_win, points_draw, points_loss, max_teams, min_teams, status,
	created_at, updated_at`

func scanCompetition(row interface{ Scan(...interface{}) error }, c *models.Competition) error {
	return row.Scan(
		&c.ID, &c.SeasonID, &c.Name, &c.StageLevel, &c.Format, &c.Legs,
		&c.PointsWin, &c.PointsDraw, &c.PointsLoss, &c.MaxTeams, &c.MinTeams, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	)
}

func (r *postgresCompetitionRepository) Create(ctx context.Context, c *models.Competition) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO competitions (
			id, season_id, name, stage_level, format_type, legs,
			points_win, points_draw, points_loss, max_teams, min_teams, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.SeasonID, c.Name, c.StageLevel, c.Format, c.Legs,
		c.PointsWin, c.PointsDraw, c.PointsLoss, c.MaxTeams, c.MinTeams, c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	return r.handleCompetitionError(err)
}

func (r *postgresCompetitionRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Competition, error) {
	return r.get(ctx, exec, `SELECT`+competitionColumns+` FROM competitions WHERE id = $1`, id)
}

func (r *postgresCompetitionRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Competition, error) {
	return r.get(ctx, exec, `SELECT`+competitionColumns+` FROM competitions WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresCompetitionRepository) get(ctx context.Context, exec SQLExecutor, query string, id uuid.UUID) (*models.Competition, error) {
	c := &models.Competition{}
	err := scanCompetition(r.getExecutor(exec).QueryRowContext(ctx, query, id), c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCompetitionRepository) List(ctx context.Context, filter ListCompetitionsFilter) ([]models.Competition, error) {
	query := `SELECT` + competitionColumns + ` FROM competitions WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.SeasonID != nil {
		query += fmt.Sprintf(" AND season_id = $%d", argID)
		args = append(args, *filter.SeasonID)
		argID++
	}
	if filter.StageLevel != nil {
		query += fmt.Sprintf(" AND stage_level = $%d", argID)
		args = append(args, *filter.StageLevel)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY stage_level, name"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	competitions := make([]models.Competition, 0)
	for rows.Next() {
		var c models.Competition
		if scanErr := scanCompetition(rows, &c); scanErr != nil {
			return nil, scanErr
		}
		competitions = append(competitions, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return competitions, nil
}

func (r *postgresCompetitionRepository) Update(ctx context.Context, exec SQLExecutor, c *models.Competition) error {
	query := `
		UPDATE competitions SET
			name = $1,
			stage_level = $2,
			format_type = $3,
			legs = $4,
			points_win = $5,
			points_draw = $6,
			points_loss = $7,
			max_teams = $8,
			min_teams = $9,
			status = $10,
			updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		c.Name, c.StageLevel, c.Format, c.Legs,
		c.PointsWin, c.PointsDraw, c.PointsLoss, c.MaxTeams, c.MinTeams, c.Status,
		c.ID,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCompetitionNotFound
	}
	return r.handleCompetitionError(err)
}

func (r *postgresCompetitionRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.CompetitionStatus) error {
	query := `UPDATE competitions SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleCompetitionError(err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

func (r *postgresCompetitionRepository) handleCompetitionError(err error) error {
	if err == nil {
		return nil
	}
	switch pqCode(err) {
	case codeUniqueViolation:
		if pqConstraint(err) == "competitions_season_id_name_key" {
			return ErrCompetitionNameConflict
		}
	case codeForeignKeyViolation:
		return ErrInvalidReference
	}
	return err
}
