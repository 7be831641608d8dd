package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
)

// Publisher pushes live updates to subscribers of a competition.
// *brackets.Hub implements it.
type Publisher interface {
	PublishCompetition(competitionID uuid.UUID, msgType string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) PublishCompetition(uuid.UUID, string, interface{}) {}

func publisherOrNoop(p Publisher) Publisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// StandingsArchiver stores a final table outside the database and returns its object key.
type StandingsArchiver interface {
	ArchiveStandings(ctx context.Context, competition *models.Competition, rows []models.StandingsRow) (string, error)
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
