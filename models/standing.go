package models

import "github.com/google/uuid"

// StandingsRow is one computed line of a league table. It is never persisted.
type StandingsRow struct {
	TeamID         uuid.UUID `json:"team_id"`
	TeamName       string    `json:"team_name"`
	Played         int       `json:"played"`
	Wins           int       `json:"wins"`
	Draws          int       `json:"draws"`
	Losses         int       `json:"losses"`
	GoalsFor       int       `json:"goals_for"`
	GoalsAgainst   int       `json:"goals_against"`
	GoalDifference int       `json:"goal_difference"`
	Points         int       `json:"points"`
	Position       int       `json:"position"`
}

// GroupStandings is the table of a single group.
type GroupStandings struct {
	Group *Group         `json:"group"`
	Rows  []StandingsRow `json:"standings"`
}
