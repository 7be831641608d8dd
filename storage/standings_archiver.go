package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const standingsPrefix = "standings"

type archivedStandings struct {
	CompetitionID uuid.UUID                `json:"competition_id"`
	SeasonID      uuid.UUID                `json:"season_id"`
	Name          string                   `json:"name"`
	StageLevel    string                   `json:"stage_level"`
	Format        models.CompetitionFormat `json:"format_type"`
	ArchivedAt    time.Time                `json:"archived_at"`
	Standings     []models.StandingsRow    `json:"standings"`
}

// StandingsArchiver сохраняет итоговую таблицу соревнования JSON-документом в бакете.
type StandingsArchiver struct {
	uploader FileUploader
	logger   *slog.Logger
	now      func() time.Time
}

func NewStandingsArchiver(uploader FileUploader, logger *slog.Logger) *StandingsArchiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &StandingsArchiver{uploader: uploader, logger: logger, now: time.Now}
}

// StandingsKey returns the object key for a competition table, e.g.
// standings/premier-league-<id>.json.
func StandingsKey(c *models.Competition) string {
	name := slug.Make(c.Name)
	if name == "" {
		return fmt.Sprintf("%s/%s.json", standingsPrefix, c.ID)
	}
	return fmt.Sprintf("%s/%s-%s.json", standingsPrefix, name, c.ID)
}

func (a *StandingsArchiver) ArchiveStandings(ctx context.Context, c *models.Competition, rows []models.StandingsRow) (string, error) {
	if rows == nil {
		rows = []models.StandingsRow{}
	}
	doc := archivedStandings{
		CompetitionID: c.ID,
		SeasonID:      c.SeasonID,
		Name:          c.Name,
		StageLevel:    c.StageLevel,
		Format:        c.Format,
		ArchivedAt:    a.now().UTC(),
		Standings:     rows,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode standings: %w", err)
	}

	key := StandingsKey(c)
	result, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	a.logger.DebugContext(ctx, "standings uploaded",
		slog.String("key", result.Key),
		slog.String("location", result.Location),
		slog.String("etag", result.ETag),
	)
	return result.Key, nil
}
