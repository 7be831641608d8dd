package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/repositories"
	"github.com/google/uuid"
)

type CreateTeamInput struct {
	Name string `json:"name"`
}

type TeamService interface {
	Create(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Team, error)
	List(ctx context.Context, search string) ([]models.Team, error)
}

type teamService struct {
	teamRepo repositories.TeamRepository
}

func NewTeamService(teamRepo repositories.TeamRepository) TeamService {
	return &teamService{teamRepo: teamRepo}
}

func (s *teamService) Create(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, newValidationError(KindInvalidInput, nil, "team name is required")
	}
	team := &models.Team{Name: name}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, handleRepositoryError(err)
	}
	return team, nil
}

func (s *teamService) Get(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return team, nil
}

func (s *teamService) List(ctx context.Context, search string) ([]models.Team, error) {
	teams, err := s.teamRepo.List(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}
