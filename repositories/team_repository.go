package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
)

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name already exists")
)

// TeamRepository reads teams owned by the coaches module.
type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error)
	GetByIDs(ctx context.Context, exec SQLExecutor, ids []uuid.UUID) ([]models.Team, error)
	List(ctx context.Context, search string) ([]models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	query := `INSERT INTO teams (id, name) VALUES ($1, $2) RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, team.ID, team.Name).Scan(&team.CreatedAt)
	if pqCode(err) == codeUniqueViolation {
		return ErrTeamNameConflict
	}
	return err
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	query := `SELECT id, name, created_at FROM teams WHERE id = $1`

	var team models.Team
	err := r.db.QueryRowContext(ctx, query, id).Scan(&team.ID, &team.Name, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

// GetByIDs returns the teams that exist among ids; unknown ids are left out.
func (r *postgresTeamRepository) GetByIDs(ctx context.Context, exec SQLExecutor, ids []uuid.UUID) ([]models.Team, error) {
	if len(ids) == 0 {
		return []models.Team{}, nil
	}
	query := `SELECT id, name, created_at FROM teams WHERE id = ANY($1) ORDER BY name`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, uuidArray(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query teams by ids: %w", err)
	}
	defer rows.Close()
	return scanTeams(rows)
}

func (r *postgresTeamRepository) List(ctx context.Context, search string) ([]models.Team, error) {
	query := `SELECT id, name, created_at FROM teams`
	args := []interface{}{}
	if s := strings.TrimSpace(search); s != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+s+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()
	return scanTeams(rows)
}

func scanTeams(rows *sql.Rows) ([]models.Team, error) {
	teams := make([]models.Team, 0)
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}
