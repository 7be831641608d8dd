package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type RoundStatus string

const (
	RoundPending   RoundStatus = "pending"
	RoundOngoing   RoundStatus = "ongoing"
	RoundCompleted RoundStatus = "completed"
)

// KnockoutRound is an ordered stage of a knockout structure; RoundOrder 1 is played first.
type KnockoutRound struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	CompetitionID     uuid.UUID   `json:"competition_id" db:"competition_id"`
	RoundName         string      `json:"round_name" db:"round_name"`
	RoundOrder        int         `json:"round_order" db:"round_order"`
	MatchesPerPairing int         `json:"matches_per_pairing" db:"matches_per_pairing"`
	Status            RoundStatus `json:"status" db:"status"`
	ByeTeamID         *uuid.UUID  `json:"bye_team_id,omitempty" db:"bye_team_id"` // проходит дальше без матча
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

func ParseRoundStatus(s string) (RoundStatus, error) {
	switch st := RoundStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RoundPending, RoundOngoing, RoundCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRoundStatus, s)
	}
}
