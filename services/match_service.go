package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/football-league/brackets"
	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/repositories"
	"github.com/google/uuid"
)

type ScheduleMatchInput struct {
	HomeTeamID    uuid.UUID  `json:"home_team_id"`
	AwayTeamID    uuid.UUID  `json:"away_team_id"`
	CompetitionID *uuid.UUID `json:"competition_id"`
	GroupID       *uuid.UUID `json:"group_id"`
	MatchDate     time.Time  `json:"match_date"`
	Venue         *string    `json:"venue"`
}

type UpdateScoreInput struct {
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
}

type ListMatchesInput struct {
	CompetitionID *uuid.UUID
	GroupID       *uuid.UUID
	RoundID       *uuid.UUID
	Status        *string
}

// MatchService drives a match through scheduled -> live -> finished.
// Cancellation is allowed until the match is finished.
type MatchService interface {
	Schedule(ctx context.Context, input ScheduleMatchInput) (*models.Match, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Match, error)
	List(ctx context.Context, input ListMatchesInput) ([]models.Match, error)
	Start(ctx context.Context, id uuid.UUID) (*models.Match, error)
	UpdateScore(ctx context.Context, id uuid.UUID, input UpdateScoreInput) (*models.Match, error)
	Finish(ctx context.Context, id uuid.UUID) (*models.Match, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Match, error)
}

type matchService struct {
	matchRepo       repositories.MatchRepository
	teamRepo        repositories.TeamRepository
	competitionRepo repositories.CompetitionRepository
	standings       StandingsService
	publisher       Publisher
	logger          *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	competitionRepo repositories.CompetitionRepository,
	standingsService StandingsService,
	publisher Publisher,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:       matchRepo,
		teamRepo:        teamRepo,
		competitionRepo: competitionRepo,
		standings:       standingsService,
		publisher:       publisherOrNoop(publisher),
		logger:          loggerOrDefault(logger),
	}
}

func (s *matchService) Schedule(ctx context.Context, input ScheduleMatchInput) (*models.Match, error) {
	if input.HomeTeamID == uuid.Nil || input.AwayTeamID == uuid.Nil {
		return nil, newValidationError(KindInvalidInput, nil, "home_team_id and away_team_id are required")
	}
	if input.HomeTeamID == input.AwayTeamID {
		return nil, newValidationError(KindInvalidInput, nil, "a team cannot play itself")
	}
	if input.MatchDate.IsZero() {
		return nil, newValidationError(KindInvalidInput, nil, "match_date is required")
	}
	if input.Venue != nil {
		venue := strings.TrimSpace(*input.Venue)
		input.Venue = &venue
	}

	if input.CompetitionID != nil {
		if _, err := s.competitionRepo.GetByID(ctx, nil, *input.CompetitionID); err != nil {
			return nil, handleRepositoryError(err)
		}
	}
	teams, err := s.teamRepo.GetByIDs(ctx, nil, []uuid.UUID{input.HomeTeamID, input.AwayTeamID})
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	if len(teams) != 2 {
		return nil, ErrTeamNotFound
	}

	m := &models.Match{
		HomeTeamID:    input.HomeTeamID,
		AwayTeamID:    input.AwayTeamID,
		CompetitionID: input.CompetitionID,
		GroupID:       input.GroupID,
		MatchDate:     input.MatchDate,
		Venue:         input.Venue,
		Status:        models.MatchScheduled,
		Leg:           1,
	}
	if err := s.matchRepo.Create(ctx, nil, m); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "match scheduled", slog.String("match_id", m.ID.String()))
	return m, nil
}

func (s *matchService) Get(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return m, nil
}

func (s *matchService) List(ctx context.Context, input ListMatchesInput) ([]models.Match, error) {
	filter := models.MatchFilter{
		CompetitionID:   input.CompetitionID,
		GroupID:         input.GroupID,
		KnockoutRoundID: input.RoundID,
	}
	if input.Status != nil {
		status, err := models.ParseMatchStatus(*input.Status)
		if err != nil {
			return nil, newValidationError(KindInvalidInput, err, "%v", err)
		}
		filter.Status = &status
	}
	matches, err := s.matchRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (s *matchService) Start(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	return s.transition(ctx, id, func(m *models.Match) error {
		if m.Status != models.MatchScheduled {
			return fmt.Errorf("%w: cannot start a %s match", ErrInvalidMatchTransition, m.Status)
		}
		if m.Provisional {
			return fmt.Errorf("%w: pairing is not decided yet", ErrInvalidMatchTransition)
		}
		m.Status = models.MatchLive
		m.HomeScore, m.AwayScore = 0, 0
		return nil
	})
}

func (s *matchService) UpdateScore(ctx context.Context, id uuid.UUID, input UpdateScoreInput) (*models.Match, error) {
	if input.HomeScore < 0 || input.AwayScore < 0 {
		return nil, newValidationError(KindInvalidInput, nil, "scores must not be negative")
	}
	return s.transition(ctx, id, func(m *models.Match) error {
		if m.Status != models.MatchLive {
			return fmt.Errorf("%w: score of a %s match cannot change", ErrInvalidMatchTransition, m.Status)
		}
		m.HomeScore, m.AwayScore = input.HomeScore, input.AwayScore
		return nil
	})
}

func (s *matchService) Finish(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	m, err := s.transition(ctx, id, func(m *models.Match) error {
		if m.Status != models.MatchLive {
			return fmt.Errorf("%w: cannot finish a %s match", ErrInvalidMatchTransition, m.Status)
		}
		m.Status = models.MatchFinished
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishStandings(ctx, m)
	return m, nil
}

func (s *matchService) Cancel(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	return s.transition(ctx, id, func(m *models.Match) error {
		if m.Status != models.MatchScheduled && m.Status != models.MatchLive {
			return fmt.Errorf("%w: cannot cancel a %s match", ErrInvalidMatchTransition, m.Status)
		}
		m.Status = models.MatchCancelled
		return nil
	})
}

func (s *matchService) transition(ctx context.Context, id uuid.UUID, apply func(m *models.Match) error) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if err := apply(m); err != nil {
		return nil, err
	}
	if err := s.matchRepo.UpdateResult(ctx, nil, m); err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "match updated",
		slog.String("match_id", m.ID.String()),
		slog.String("status", string(m.Status)),
		slog.Int("home_score", m.HomeScore),
		slog.Int("away_score", m.AwayScore))
	if m.CompetitionID != nil {
		s.publisher.PublishCompetition(*m.CompetitionID, brackets.MessageMatchUpdated, m)
	}
	return m, nil
}

// publishStandings pushes the recomputed table after a result. Failures are
// logged only, the result itself is already stored.
func (s *matchService) publishStandings(ctx context.Context, m *models.Match) {
	if m.CompetitionID == nil || s.standings == nil {
		return
	}
	rows, err := s.standings.Competition(ctx, *m.CompetitionID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to recompute standings",
			slog.String("competition_id", m.CompetitionID.String()), slog.Any("error", err))
		return
	}
	s.publisher.PublishCompetition(*m.CompetitionID, brackets.MessageStandingsUpdated, rows)
}
