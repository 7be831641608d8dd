package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CompetitionFormat определяет способ проведения соревнования.
type CompetitionFormat string

const (
	FormatRoundRobin    CompetitionFormat = "round_robin"
	FormatKnockout      CompetitionFormat = "knockout"
	FormatGroupKnockout CompetitionFormat = "group_knockout"
)

// CompetitionStatus представляет статусы соревнования.
type CompetitionStatus string

const (
	CompetitionDraft     CompetitionStatus = "draft"
	CompetitionOngoing   CompetitionStatus = "ongoing"
	CompetitionCompleted CompetitionStatus = "completed"
)

const (
	DefaultPointsWin  = 3
	DefaultPointsDraw = 1
	DefaultPointsLoss = 0
)

// PointsSystem is the number of table points awarded per match outcome.
type PointsSystem struct {
	Win  int `json:"points_win"`
	Draw int `json:"points_draw"`
	Loss int `json:"points_loss"`
}

// DefaultPointsSystem returns the usual 3/1/0 football scoring.
func DefaultPointsSystem() PointsSystem {
	return PointsSystem{Win: DefaultPointsWin, Draw: DefaultPointsDraw, Loss: DefaultPointsLoss}
}

// Competition is a staged contest (county league, regional knockout, ...).
type Competition struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	SeasonID   uuid.UUID         `json:"season_id" db:"season_id"`
	Name       string            `json:"name" db:"name"`
	StageLevel string            `json:"stage_level" db:"stage_level"`
	Format     CompetitionFormat `json:"format_type" db:"format_type"`
	Legs       int               `json:"legs" db:"legs"`
	PointsWin  int               `json:"points_win" db:"points_win"`
	PointsDraw int               `json:"points_draw" db:"points_draw"`
	PointsLoss int               `json:"points_loss" db:"points_loss"`
	MaxTeams   *int              `json:"max_teams,omitempty" db:"max_teams"`
	MinTeams   *int              `json:"min_teams,omitempty" db:"min_teams"`
	Status     CompetitionStatus `json:"status" db:"status"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" db:"updated_at"`

	// Заполняются сервисом, в БД не хранятся
	TeamCount  int `json:"team_count,omitempty" db:"-"`
	MatchCount int `json:"match_count,omitempty" db:"-"`
}

// Points returns the competition's points system.
func (c *Competition) Points() PointsSystem {
	return PointsSystem{Win: c.PointsWin, Draw: c.PointsDraw, Loss: c.PointsLoss}
}

// HasCapacityFor reports whether n more teams fit under MaxTeams given existing members.
func (c *Competition) HasCapacityFor(existing, n int) bool {
	if c.MaxTeams == nil {
		return true
	}
	return existing+n <= *c.MaxTeams
}

func ParseCompetitionFormat(s string) (CompetitionFormat, error) {
	switch f := CompetitionFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatRoundRobin, FormatKnockout, FormatGroupKnockout:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

func ParseCompetitionStatus(s string) (CompetitionStatus, error) {
	switch st := CompetitionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case CompetitionDraft, CompetitionOngoing, CompetitionCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCompetitionStatus, s)
	}
}
