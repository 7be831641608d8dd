package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is owned by the coaches module; the competition engine only reads it.
type Team struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CompetitionTeam is a team's membership in a competition.
type CompetitionTeam struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	CompetitionID  uuid.UUID  `json:"competition_id" db:"competition_id"`
	TeamID         uuid.UUID  `json:"team_id" db:"team_id"`
	ManuallyAdded  bool       `json:"manually_added" db:"manually_added"`
	SeededPosition int        `json:"seeded_position" db:"seeded_position"`
	GroupID        *uuid.UUID `json:"group_id,omitempty" db:"group_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`

	TeamName string `json:"team_name,omitempty" db:"-"`
}
