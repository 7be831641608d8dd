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
	ErrRoundNotFound      = errors.New("knockout round not found")
	ErrRoundOrderConflict = errors.New("knockout round order already exists")
)

type KnockoutRoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.KnockoutRound) error
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID) ([]models.KnockoutRound, error)
	GetByOrder(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID, order int) (*models.KnockoutRound, error)
	Update(ctx context.Context, exec SQLExecutor, round *models.KnockoutRound) error
	// DeleteAfter removes every round of the competition with round_order > order.
	DeleteAfter(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID, order int) error
}

type postgresKnockoutRoundRepository struct {
	db *sql.DB
}

func NewPostgresKnockoutRoundRepository(db *sql.DB) KnockoutRoundRepository {
	return &postgresKnockoutRoundRepository{db: db}
}

func (r *postgresKnockoutRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresKnockoutRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.KnockoutRound) error {
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	query := `
		INSERT INTO knockout_rounds (id, competition_id, round_name, round_order, matches_per_pairing, status, bye_team_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		round.ID, round.CompetitionID, round.RoundName, round.RoundOrder, round.MatchesPerPairing, round.Status, round.ByeTeamID,
	).Scan(&round.CreatedAt)
	switch pqCode(err) {
	case codeUniqueViolation:
		return ErrRoundOrderConflict
	case codeForeignKeyViolation:
		return ErrInvalidReference
	}
	return err
}

const knockoutRoundColumns = `id, competition_id, round_name, round_order, matches_per_pairing, status, bye_team_id, created_at`

func scanRound(row interface{ Scan(...interface{}) error }, kr *models.KnockoutRound) error {
	return row.Scan(&kr.ID, &kr.CompetitionID, &kr.RoundName, &kr.RoundOrder, &kr.MatchesPerPairing, &kr.Status, &kr.ByeTeamID, &kr.CreatedAt)
}

func (r *postgresKnockoutRoundRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID) ([]models.KnockoutRound, error) {
	query := `SELECT ` + knockoutRoundColumns + ` FROM knockout_rounds WHERE competition_id = $1 ORDER BY round_order`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query knockout rounds: %w", err)
	}
	defer rows.Close()

	rounds := make([]models.KnockoutRound, 0)
	for rows.Next() {
		var kr models.KnockoutRound
		if err := scanRound(rows, &kr); err != nil {
			return nil, fmt.Errorf("failed to scan knockout round: %w", err)
		}
		rounds = append(rounds, kr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *postgresKnockoutRoundRepository) GetByOrder(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID, order int) (*models.KnockoutRound, error) {
	query := `SELECT ` + knockoutRoundColumns + ` FROM knockout_rounds WHERE competition_id = $1 AND round_order = $2`
	kr := &models.KnockoutRound{}
	if err := scanRound(r.getExecutor(exec).QueryRowContext(ctx, query, competitionID, order), kr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return kr, nil
}

func (r *postgresKnockoutRoundRepository) Update(ctx context.Context, exec SQLExecutor, round *models.KnockoutRound) error {
	query := `
		UPDATE knockout_rounds
		SET round_name = $1, matches_per_pairing = $2, status = $3, bye_team_id = $4
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		round.RoundName, round.MatchesPerPairing, round.Status, round.ByeTeamID, round.ID)
	if err != nil {
		return fmt.Errorf("failed to update knockout round: %w", err)
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresKnockoutRoundRepository) DeleteAfter(ctx context.Context, exec SQLExecutor, competitionID uuid.UUID, order int) error {
	query := `DELETE FROM knockout_rounds WHERE competition_id = $1 AND round_order > $2`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, competitionID, order); err != nil {
		return fmt.Errorf("failed to delete knockout rounds after %d: %w", order, err)
	}
	return nil
}
