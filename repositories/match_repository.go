package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchInvalidTeam = errors.New("match references unknown team")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error)
	List(ctx context.Context, exec SQLExecutor, filter models.MatchFilter) ([]models.Match, error)
	CountByCompetition(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID) (int, error)
	// UpdateResult persists status and score.
	UpdateResult(ctx context.Context, exec SQLExecutor, m *models.Match) error
	UpdateDate(ctx context.Context, exec SQLExecutor, id uuid.UUID, date time.Time) error
	DeleteByRounds(ctx context.Context, exec SQLExecutor, roundIDs []uuid.UUID) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, home_team_id, away_team_id, competition_id, group_id, knockout_round_id, order_in_round,
	match_date, venue, status, home_score, away_score, leg, provisional, created_at, updated_at`

func scanMatch(row interface{ Scan(...interface{}) error }, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.HomeTeamID, &m.AwayTeamID, &m.CompetitionID, &m.GroupID, &m.KnockoutRoundID, &m.OrderInRound,
		&m.MatchDate, &m.Venue, &m.Status, &m.HomeScore, &m.AwayScore, &m.Leg, &m.Provisional, &m.CreatedAt, &m.UpdatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Leg == 0 {
		m.Leg = 1
	}
	query := `
		INSERT INTO matches (
			id, home_team_id, away_team_id, competition_id, group_id, knockout_round_id, order_in_round,
			match_date, venue, status, home_score, away_score, leg, provisional
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.ID, m.HomeTeamID, m.AwayTeamID, m.CompetitionID, m.GroupID, m.KnockoutRoundID, m.OrderInRound,
		m.MatchDate, m.Venue, m.Status, m.HomeScore, m.AwayScore, m.Leg, m.Provisional,
	).Scan(&m.CreatedAt, &m.UpdatedAt)

	if pqCode(err) == codeForeignKeyViolation {
		switch pqConstraint(err) {
		case "matches_home_team_id_fkey", "matches_away_team_id_fkey":
			return ErrMatchInvalidTeam
		default:
			return ErrInvalidReference
		}
	}
	return err
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	m := &models.Match{}
	if err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

// List returns matches ordered by date, then by their position in the round.
func (r *postgresMatchRepository) List(ctx context.Context, exec SQLExecutor, filter models.MatchFilter) ([]models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.CompetitionID != nil {
		query += fmt.Sprintf(" AND competition_id = $%d", argID)
		args = append(args, *filter.CompetitionID)
		argID++
	}
	if filter.GroupID != nil {
		query += fmt.Sprintf(" AND group_id = $%d", argID)
		args = append(args, *filter.GroupID)
		argID++
	}
	if filter.KnockoutRoundID != nil {
		query += fmt.Sprintf(" AND knockout_round_id = $%d", argID)
		args = append(args, *filter.KnockoutRoundID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
	}
	query += " ORDER BY match_date, order_in_round NULLS LAST, leg, created_at"

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountByCompetition(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM matches WHERE competition_id = $1`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, competitionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE matches
		SET status = $1, home_score = $2, away_score = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query, m.Status, m.HomeScore, m.AwayScore, m.ID).Scan(&m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMatchNotFound
	}
	return err
}

func (r *postgresMatchRepository) UpdateDate(ctx context.Context, exec SQLExecutor, id uuid.UUID, date time.Time) error {
	query := `UPDATE matches SET match_date = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, date, id)
	if err != nil {
		return fmt.Errorf("failed to update match date: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByRounds(ctx context.Context, exec SQLExecutor, roundIDs []uuid.UUID) error {
	if len(roundIDs) == 0 {
		return nil
	}
	query := `DELETE FROM matches WHERE knockout_round_id = ANY($1)`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, uuidArray(roundIDs)); err != nil {
		return fmt.Errorf("failed to delete round matches: %w", err)
	}
	return nil
}
