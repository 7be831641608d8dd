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
	ErrCompetitionTeamExists   = errors.New("team already enrolled in competition")
	ErrCompetitionTeamNotFound = errors.New("team is not enrolled in competition")
)

type CompetitionTeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, ct *models.CompetitionTeam) error
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID) ([]models.CompetitionTeam, error)
	ListByGroup(ctx context.Context, exec SQLExecutor, groupID uuid.UUID) ([]models.CompetitionTeam, error)
	CountByCompetition(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID) (int, error)
	SetGroup(ctx context.Context, exec SQLExecutor, competitionID, teamID uuid.UUID, groupID *uuid.UUID) error
}

type postgresCompetitionTeamRepository struct {
	db *sql.DB
}

func NewPostgresCompetitionTeamRepository(db *sql.DB) CompetitionTeamRepository {
	return &postgresCompetitionTeamRepository{db: db}
}

func (r *postgresCompetitionTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresCompetitionTeamRepository) Create(ctx context.Context, exec SQLExecutor, ct *models.CompetitionTeam) error {
	if ct.ID == uuid.Nil {
		ct.ID = uuid.New()
	}
	query := `
		INSERT INTO competition_teams (id, competition_id, team_id, manually_added, seeded_position, group_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		ct.ID, ct.CompetitionID, ct.TeamID, ct.ManuallyAdded, ct.SeededPosition, ct.GroupID,
	).Scan(&ct.CreatedAt)

	switch pqCode(err) {
	case "":
		return err
	case codeUniqueViolation:
		return ErrCompetitionTeamExists
	case codeForeignKeyViolation:
		if pqConstraint(err) == "competition_teams_team_id_fkey" {
			return ErrTeamNotFound
		}
		return ErrInvalidReference
	default:
		return err
	}
}

const competitionTeamSelect = `
	SELECT ct.id, ct.competition_id, ct.team_id, ct.manually_added, ct.seeded_position, ct.group_id,
	       ct.created_at, t.name
	FROM competition_teams ct
	JOIN teams t ON t.id = ct.team_id`

func (r *postgresCompetitionTeamRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID) ([]models.CompetitionTeam, error) {
	query := competitionTeamSelect + ` WHERE ct.competition_id = $1 ORDER BY ct.seeded_position`
	return r.list(ctx, exec, query, competitionID)
}

func (r *postgresCompetitionTeamRepository) ListByGroup(ctx context.Context, exec SQLExecutor, groupID uuid.UUID) ([]models.CompetitionTeam, error) {
	query := competitionTeamSelect + ` WHERE ct.group_id = $1 ORDER BY ct.seeded_position`
	return r.list(ctx, exec, query, groupID)
}

func (r *postgresCompetitionTeamRepository) list(ctx context.Context, exec SQLExecutor, query string, arg uuid.UUID) ([]models.CompetitionTeam, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query competition teams: %w", err)
	}
	defer rows.Close()

	members := make([]models.CompetitionTeam, 0)
	for rows.Next() {
		var ct models.CompetitionTeam
		if err := rows.Scan(
			&ct.ID, &ct.CompetitionID, &ct.TeamID, &ct.ManuallyAdded, &ct.SeededPosition, &ct.GroupID,
			&ct.CreatedAt, &ct.TeamName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan competition team: %w", err)
		}
		members = append(members, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *postgresCompetitionTeamRepository) CountByCompetition(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM competition_teams WHERE competition_id = $1`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, competitionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count competition teams: %w", err)
	}
	return count, nil
}

func (r *postgresCompetitionTeamRepository) SetGroup(ctx context.Context, exec SQLExecutor, competitionID, teamID uuid.UUID, groupID *uuid.UUID) error {
	query := `UPDATE competition_teams SET group_id = $1 WHERE competition_id = $2 AND team_id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, groupID, competitionID, teamID)
	if err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to set group: %w", err)
	}
	return checkAffectedRows(result, ErrCompetitionTeamNotFound)
}
