package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/repositories"
	"github.com/Dosada05/football-league/standings"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type StandingsService interface {
	Competition(ctx context.Context, competitionID uuid.UUID) ([]models.StandingsRow, error)
	Groups(ctx context.Context, competitionID uuid.UUID) ([]models.GroupStandings, error)
	// Archive stores the current table of a competition and returns the object key.
	Archive(ctx context.Context, competitionID uuid.UUID) (string, error)
}

type standingsService struct {
	competitionRepo repositories.CompetitionRepository
	memberRepo      repositories.CompetitionTeamRepository
	groupRepo       repositories.GroupRepository
	matchRepo       repositories.MatchRepository
	archiver        StandingsArchiver
	logger          *slog.Logger
}

func NewStandingsService(
	competitionRepo repositories.CompetitionRepository,
	memberRepo repositories.CompetitionTeamRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	archiver StandingsArchiver,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		competitionRepo: competitionRepo,
		memberRepo:      memberRepo,
		groupRepo:       groupRepo,
		matchRepo:       matchRepo,
		archiver:        archiver,
		logger:          loggerOrDefault(logger),
	}
}

func (s *standingsService) Competition(ctx context.Context, competitionID uuid.UUID) ([]models.StandingsRow, error) {
	c, err := s.competitionRepo.GetByID(ctx, nil, competitionID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.table(ctx, c)
}

func (s *standingsService) table(ctx context.Context, c *models.Competition) ([]models.StandingsRow, error) {
	var (
		members []models.CompetitionTeam
		matches []models.Match
	)
	finished := models.MatchFinished

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.memberRepo.ListByCompetition(gctx, nil, c.ID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.List(gctx, nil, models.MatchFilter{CompetitionID: &c.ID, Status: &finished})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load standings data for competition %s: %w", c.ID, err)
	}

	return standings.Compute(membersToTeams(members), matches, c.Points()), nil
}

// Groups computes one table per group, restricted to the group's own matches.
func (s *standingsService) Groups(ctx context.Context, competitionID uuid.UUID) ([]models.GroupStandings, error) {
	c, err := s.competitionRepo.GetByID(ctx, nil, competitionID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	groups, err := s.groupRepo.ListByCompetition(ctx, nil, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups of competition %s: %w", competitionID, err)
	}

	result := make([]models.GroupStandings, len(groups))
	finished := models.MatchFinished
	pts := c.Points()

	g, gctx := errgroup.WithContext(ctx)
	for i := range groups {
		i := i
		group := &groups[i]
		g.Go(func() error {
			members, err := s.memberRepo.ListByGroup(gctx, nil, group.ID)
			if err != nil {
				return fmt.Errorf("group %s members: %w", group.Name, err)
			}
			matches, err := s.matchRepo.List(gctx, nil, models.MatchFilter{GroupID: &group.ID, Status: &finished})
			if err != nil {
				return fmt.Errorf("group %s matches: %w", group.Name, err)
			}
			result[i] = models.GroupStandings{
				Group: group,
				Rows:  standings.Compute(membersToTeams(members), matches, pts),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute group standings for competition %s: %w", competitionID, err)
	}
	return result, nil
}

func (s *standingsService) Archive(ctx context.Context, competitionID uuid.UUID) (string, error) {
	if s.archiver == nil {
		return "", nil
	}
	c, err := s.competitionRepo.GetByID(ctx, nil, competitionID)
	if err != nil {
		return "", handleRepositoryError(err)
	}
	rows, err := s.table(ctx, c)
	if err != nil {
		return "", err
	}
	key, err := s.archiver.ArchiveStandings(ctx, c, rows)
	if err != nil {
		return "", fmt.Errorf("failed to archive standings of competition %s: %w", competitionID, err)
	}
	if key != "" {
		s.logger.InfoContext(ctx, "standings archived", slog.String("competition_id", competitionID.String()), slog.String("key", key))
	}
	return key, nil
}

func membersToTeams(members []models.CompetitionTeam) []models.Team {
	teams := make([]models.Team, len(members))
	for i, m := range members {
		teams[i] = models.Team{ID: m.TeamID, Name: m.TeamName}
	}
	return teams
}
