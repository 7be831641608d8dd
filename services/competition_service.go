package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type CreateCompetitionInput struct {
	SeasonID   uuid.UUID `json:"season_id"`
	Name       string    `json:"name"`
	StageLevel string    `json:"stage_level"`
	Format     string    `json:"format_type"`
	Legs       int       `json:"legs"`
	PointsWin  *int      `json:"points_win"`
	PointsDraw *int      `json:"points_draw"`
	PointsLoss *int      `json:"points_loss"`
	MaxTeams   *int      `json:"max_teams"`
	MinTeams   *int      `json:"min_teams"`
}

// UpdateCompetitionInput carries only the fields to change.
type UpdateCompetitionInput struct {
	Name       *string `json:"name"`
	StageLevel *string `json:"stage_level"`
	Format     *string `json:"format_type"`
	Legs       *int    `json:"legs"`
	Status     *string `json:"status"`
	PointsWin  *int    `json:"points_win"`
	PointsDraw *int    `json:"points_draw"`
	PointsLoss *int    `json:"points_loss"`
	MaxTeams   *int    `json:"max_teams"`
	MinTeams   *int    `json:"min_teams"`
}

type ListCompetitionsInput struct {
	SeasonID   *uuid.UUID
	StageLevel *string
	Status     *string
}

type AddTeamsResult struct {
	Added   []models.CompetitionTeam `json:"added"`
	Skipped []uuid.UUID              `json:"skipped"`
}

type CompetitionService interface {
	Create(ctx context.Context, input CreateCompetitionInput) (*models.Competition, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Competition, error)
	ListBySeason(ctx context.Context, input ListCompetitionsInput) ([]models.Competition, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCompetitionInput) (*models.Competition, error)
	ListTeams(ctx context.Context, id uuid.UUID) ([]models.CompetitionTeam, error)
	// AddTeams enrolls teams in one transaction. Already enrolled teams are
	// skipped; the whole batch is rejected if it would exceed max_teams.
	AddTeams(ctx context.Context, id uuid.UUID, teamIDs []uuid.UUID, manual bool) (*AddTeamsResult, error)
}

type competitionService struct {
	tx              repositories.Transactor
	competitionRepo repositories.CompetitionRepository
	memberRepo      repositories.CompetitionTeamRepository
	teamRepo        repositories.TeamRepository
	matchRepo       repositories.MatchRepository
	logger          *slog.Logger
}

func NewCompetitionService(
	tx repositories.Transactor,
	competitionRepo repositories.CompetitionRepository,
	memberRepo repositories.CompetitionTeamRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) CompetitionService {
	return &competitionService{
		tx:              tx,
		competitionRepo: competitionRepo,
		memberRepo:      memberRepo,
		teamRepo:        teamRepo,
		matchRepo:       matchRepo,
		logger:          loggerOrDefault(logger),
	}
}

func (s *competitionService) Create(ctx context.Context, input CreateCompetitionInput) (*models.Competition, error) {
	format, err := models.ParseCompetitionFormat(input.Format)
	if err != nil {
		return nil, newValidationError(KindInvalidFormat, err, "%v", err)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, newValidationError(KindInvalidInput, nil, "competition name is required")
	}
	if input.SeasonID == uuid.Nil {
		return nil, newValidationError(KindInvalidInput, nil, "season_id is required")
	}

	c := &models.Competition{
		SeasonID:   input.SeasonID,
		Name:       name,
		StageLevel: strings.TrimSpace(input.StageLevel),
		Format:     format,
		Legs:       input.Legs,
		PointsWin:  intOr(input.PointsWin, models.DefaultPointsWin),
		PointsDraw: intOr(input.PointsDraw, models.DefaultPointsDraw),
		PointsLoss: intOr(input.PointsLoss, models.DefaultPointsLoss),
		MaxTeams:   input.MaxTeams,
		MinTeams:   input.MinTeams,
		Status:     models.CompetitionDraft,
	}
	if c.Legs == 0 {
		c.Legs = 1
	}
	if err := validateCompetition(c); err != nil {
		return nil, err
	}

	if err := s.competitionRepo.Create(ctx, c); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "competition created",
		slog.String("competition_id", c.ID.String()), slog.String("format", string(c.Format)))
	return c, nil
}

func (s *competitionService) Get(ctx context.Context, id uuid.UUID) (*models.Competition, error) {
	c, err := s.competitionRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.memberRepo.CountByCompetition(gctx, nil, id)
		c.TeamCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.matchRepo.CountByCompetition(gctx, nil, id)
		c.MatchCount = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load competition %s counts: %w", id, err)
	}
	return c, nil
}

func (s *competitionService) ListBySeason(ctx context.Context, input ListCompetitionsInput) ([]models.Competition, error) {
	filter := repositories.ListCompetitionsFilter{
		SeasonID:   input.SeasonID,
		StageLevel: input.StageLevel,
	}
	if input.Status != nil {
		status, err := models.ParseCompetitionStatus(*input.Status)
		if err != nil {
			return nil, newValidationError(KindInvalidInput, err, "%v", err)
		}
		filter.Status = &status
	}
	competitions, err := s.competitionRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	return competitions, nil
}

func (s *competitionService) Update(ctx context.Context, id uuid.UUID, input UpdateCompetitionInput) (*models.Competition, error) {
	var updated *models.Competition
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		c, err := s.competitionRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err)
		}

		if input.Format != nil {
			format, err := models.ParseCompetitionFormat(*input.Format)
			if err != nil {
				return newValidationError(KindInvalidFormat, err, "%v", err)
			}
			if format != c.Format {
				matches, err := s.matchRepo.CountByCompetition(ctx, exec, id)
				if err != nil {
					return err
				}
				if matches > 0 {
					return ErrFormatLocked
				}
				c.Format = format
			}
		}
		if input.Status != nil {
			status, err := models.ParseCompetitionStatus(*input.Status)
			if err != nil {
				return newValidationError(KindInvalidInput, err, "%v", err)
			}
			c.Status = status
		}
		if input.Name != nil {
			c.Name = strings.TrimSpace(*input.Name)
			if c.Name == "" {
				return newValidationError(KindInvalidInput, nil, "competition name is required")
			}
		}
		if input.StageLevel != nil {
			c.StageLevel = strings.TrimSpace(*input.StageLevel)
		}
		if input.Legs != nil {
			c.Legs = *input.Legs
		}
		if input.PointsWin != nil {
			c.PointsWin = *input.PointsWin
		}
		if input.PointsDraw != nil {
			c.PointsDraw = *input.PointsDraw
		}
		if input.PointsLoss != nil {
			c.PointsLoss = *input.PointsLoss
		}
		if input.MaxTeams != nil {
			c.MaxTeams = input.MaxTeams
		}
		if input.MinTeams != nil {
			c.MinTeams = input.MinTeams
		}
		if err := validateCompetition(c); err != nil {
			return err
		}

		if err := s.competitionRepo.Update(ctx, exec, c); err != nil {
			return handleRepositoryError(err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *competitionService) ListTeams(ctx context.Context, id uuid.UUID) ([]models.CompetitionTeam, error) {
	if _, err := s.competitionRepo.GetByID(ctx, nil, id); err != nil {
		return nil, handleRepositoryError(err)
	}
	members, err := s.memberRepo.ListByCompetition(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams of competition %s: %w", id, err)
	}
	return members, nil
}

func (s *competitionService) AddTeams(ctx context.Context, id uuid.UUID, teamIDs []uuid.UUID, manual bool) (*AddTeamsResult, error) {
	result := &AddTeamsResult{Added: []models.CompetitionTeam{}, Skipped: []uuid.UUID{}}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		// блокировка строки соревнования сериализует параллельные добавления
		c, err := s.competitionRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err)
		}

		existing, err := s.memberRepo.ListByCompetition(ctx, exec, id)
		if err != nil {
			return fmt.Errorf("failed to load members of competition %s: %w", id, err)
		}
		enrolled := make(map[uuid.UUID]bool, len(existing))
		for _, m := range existing {
			enrolled[m.TeamID] = true
		}

		var fresh []uuid.UUID
		for _, teamID := range teamIDs {
			if enrolled[teamID] {
				result.Skipped = append(result.Skipped, teamID)
				continue
			}
			enrolled[teamID] = true
			fresh = append(fresh, teamID)
		}
		if len(fresh) == 0 {
			return nil
		}

		teams, err := s.teamRepo.GetByIDs(ctx, exec, fresh)
		if err != nil {
			return fmt.Errorf("failed to load teams: %w", err)
		}
		if len(teams) != len(fresh) {
			found := make(map[uuid.UUID]bool, len(teams))
			for _, t := range teams {
				found[t.ID] = true
			}
			for _, teamID := range fresh {
				if !found[teamID] {
					return fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
				}
			}
		}
		names := make(map[uuid.UUID]string, len(teams))
		for _, t := range teams {
			names[t.ID] = t.Name
		}

		if !c.HasCapacityFor(len(existing), len(fresh)) {
			return newValidationError(KindCapacityExceeded, ErrCapacityExceeded,
				"competition %s holds at most %d teams (%d enrolled, %d requested)",
				c.Name, *c.MaxTeams, len(existing), len(fresh))
		}

		for k, teamID := range fresh {
			ct := models.CompetitionTeam{
				CompetitionID:  id,
				TeamID:         teamID,
				ManuallyAdded:  manual,
				SeededPosition: len(existing) + k + 1,
			}
			if err := s.memberRepo.Create(ctx, exec, &ct); err != nil {
				return handleRepositoryError(err)
			}
			ct.TeamName = names[teamID]
			result.Added = append(result.Added, ct)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "teams added to competition",
		slog.String("competition_id", id.String()),
		slog.Int("added", len(result.Added)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Bool("manual", manual))
	return result, nil
}

func validateCompetition(c *models.Competition) error {
	if c.Legs != 1 && c.Legs != 2 {
		return newValidationError(KindInvalidInput, nil, "legs must be 1 or 2, got %d", c.Legs)
	}
	if c.PointsWin < 0 || c.PointsDraw < 0 || c.PointsLoss < 0 {
		return newValidationError(KindInvalidInput, nil, "points must not be negative")
	}
	if c.MaxTeams != nil && *c.MaxTeams < 1 {
		return newValidationError(KindInvalidInput, nil, "max_teams must be positive")
	}
	if c.MinTeams != nil && *c.MinTeams < 0 {
		return newValidationError(KindInvalidInput, nil, "min_teams must not be negative")
	}
	if c.MaxTeams != nil && c.MinTeams != nil && *c.MinTeams > *c.MaxTeams {
		return newValidationError(KindInvalidInput, nil, "min_teams (%d) exceeds max_teams (%d)", *c.MinTeams, *c.MaxTeams)
	}
	return nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
