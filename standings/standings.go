// Package standings computes league tables from finished matches.
package standings

import (
	"sort"
	"strings"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
)

// Compute builds the ranked table for teams from their finished matches.
//
// Matches that are not finished, or that involve a team outside teams, are
// ignored. Rows are ordered by points, goal difference and goals scored (all
// descending), then by team name case-insensitively and finally by team ID,
// so equal inputs always produce the same order. Positions start at 1.
func Compute(teams []models.Team, matches []models.Match, pts models.PointsSystem) []models.StandingsRow {
	rows := make([]models.StandingsRow, len(teams))
	index := make(map[uuid.UUID]int, len(teams))
	for i, t := range teams {
		rows[i] = models.StandingsRow{TeamID: t.ID, TeamName: t.Name}
		index[t.ID] = i
	}

	for i := range matches {
		m := &matches[i]
		if !m.IsFinished() {
			continue
		}
		hi, okHome := index[m.HomeTeamID]
		ai, okAway := index[m.AwayTeamID]
		if !okHome || !okAway {
			continue
		}
		home, away := &rows[hi], &rows[ai]

		home.Played++
		away.Played++
		home.GoalsFor += m.HomeScore
		home.GoalsAgainst += m.AwayScore
		away.GoalsFor += m.AwayScore
		away.GoalsAgainst += m.HomeScore

		switch {
		case m.HomeScore > m.AwayScore:
			home.Wins++
			home.Points += pts.Win
			away.Losses++
			away.Points += pts.Loss
		case m.HomeScore < m.AwayScore:
			away.Wins++
			away.Points += pts.Win
			home.Losses++
			home.Points += pts.Loss
		default:
			home.Draws++
			away.Draws++
			home.Points += pts.Draw
			away.Points += pts.Draw
		}
	}

	for i := range rows {
		rows[i].GoalDifference = rows[i].GoalsFor - rows[i].GoalsAgainst
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return less(&rows[i], &rows[j])
	})
	for i := range rows {
		rows[i].Position = i + 1
	}
	return rows
}

func less(a, b *models.StandingsRow) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.GoalDifference != b.GoalDifference {
		return a.GoalDifference > b.GoalDifference
	}
	if a.GoalsFor != b.GoalsFor {
		return a.GoalsFor > b.GoalsFor
	}
	an, bn := strings.ToLower(a.TeamName), strings.ToLower(b.TeamName)
	if an != bn {
		return an < bn
	}
	return strings.Compare(a.TeamID.String(), b.TeamID.String()) < 0
}

// Top returns the first n rows, or all rows when n is not positive or exceeds the table.
func Top(rows []models.StandingsRow, n int) []models.StandingsRow {
	if n <= 0 || n > len(rows) {
		return rows
	}
	return rows[:n]
}

// TeamIDs extracts team ids in table order.
func TeamIDs(rows []models.StandingsRow) []uuid.UUID {
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.TeamID
	}
	return ids
}
