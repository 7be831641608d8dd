package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchFinished  MatchStatus = "finished"
	MatchCancelled MatchStatus = "cancelled"
)

// ParseMatchStatus normalises legacy spellings used by older clients.
func ParseMatchStatus(s string) (MatchStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scheduled", "not_started":
		return MatchScheduled, nil
	case "live", "in_progress":
		return MatchLive, nil
	case "finished", "completed", "full_time":
		return MatchFinished, nil
	case "cancelled", "canceled":
		return MatchCancelled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMatchStatus, s)
	}
}

type Match struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	HomeTeamID      uuid.UUID   `json:"home_team_id" db:"home_team_id"`
	AwayTeamID      uuid.UUID   `json:"away_team_id" db:"away_team_id"`
	CompetitionID   *uuid.UUID  `json:"competition_id,omitempty" db:"competition_id"`
	GroupID         *uuid.UUID  `json:"group_id,omitempty" db:"group_id"`
	KnockoutRoundID *uuid.UUID  `json:"knockout_round_id,omitempty" db:"knockout_round_id"`
	OrderInRound    *int        `json:"order_in_round,omitempty" db:"order_in_round"`
	MatchDate       time.Time   `json:"match_date" db:"match_date"`
	Venue           *string     `json:"venue,omitempty" db:"venue"`
	Status          MatchStatus `json:"status" db:"status"`
	HomeScore       int         `json:"home_score" db:"home_score"`
	AwayScore       int         `json:"away_score" db:"away_score"`
	Leg             int         `json:"leg" db:"leg"`
	Provisional     bool        `json:"provisional" db:"provisional"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

func (m *Match) IsFinished() bool {
	return m.Status == MatchFinished
}

// Involves reports whether the team plays in the match.
func (m *Match) Involves(teamID uuid.UUID) bool {
	return m.HomeTeamID == teamID || m.AwayTeamID == teamID
}

// MatchFilter narrows match lookups; nil fields are not applied.
type MatchFilter struct {
	CompetitionID   *uuid.UUID
	GroupID         *uuid.UUID
	KnockoutRoundID *uuid.UUID
	Status          *MatchStatus
}
