package brackets

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)

func teamIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

type pairKey [2]uuid.UUID

func unordered(a, b uuid.UUID) pairKey {
	if a.String() < b.String() {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

func competition(format models.CompetitionFormat, legs int) *models.Competition {
	return &models.Competition{ID: uuid.New(), Format: format, Legs: legs}
}

func TestRoundRobinEveryPairOncePerLeg(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 6, 7, 10} {
		ids := teamIDs(n)
		bracket, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
			Competition: competition(models.FormatRoundRobin, 1),
			TeamIDs:     ids,
			StartDate:   start,
		})
		require.NoError(t, err)

		assert.Len(t, bracket.Matches, n*(n-1)/2, "n=%d", n)

		seen := map[pairKey]int{}
		for _, m := range bracket.Matches {
			assert.NotEqual(t, m.HomeTeamID, m.AwayTeamID)
			assert.NotEqual(t, uuid.Nil, m.HomeTeamID)
			assert.NotEqual(t, uuid.Nil, m.AwayTeamID)
			seen[unordered(m.HomeTeamID, m.AwayTeamID)]++
		}
		assert.Len(t, seen, n*(n-1)/2)
		for _, c := range seen {
			assert.Equal(t, 1, c)
		}
	}
}

func TestRoundRobinRoundsAndDates(t *testing.T) {
	ids := teamIDs(5)
	bracket, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Competition:        competition(models.FormatRoundRobin, 1),
		TeamIDs:            ids,
		StartDate:          start,
		DaysBetweenMatches: 3,
	})
	require.NoError(t, err)

	perRound := map[int][]*BracketMatch{}
	for _, m := range bracket.Matches {
		perRound[m.Round] = append(perRound[m.Round], m)
	}
	// 5 команд: 5 туров, в каждом один отдыхает
	require.Len(t, perRound, 5)
	for round, matches := range perRound {
		assert.Len(t, matches, 2)
		playing := map[uuid.UUID]bool{}
		for _, m := range matches {
			assert.True(t, start.AddDate(0, 0, 3*(round-1)).Equal(m.MatchDate))
			assert.False(t, playing[m.HomeTeamID])
			assert.False(t, playing[m.AwayTeamID])
			playing[m.HomeTeamID] = true
			playing[m.AwayTeamID] = true
		}
	}
}

func TestRoundRobinSecondLeg(t *testing.T) {
	ids := teamIDs(4)

	tests := []struct {
		name    string
		policy  LegPolicy
		swapped bool
	}{
		{name: "default reverses venues", policy: "", swapped: true},
		{name: "reverse venues", policy: LegReverseVenues, swapped: true},
		{name: "repeat", policy: LegRepeat, swapped: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bracket, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
				Competition: competition(models.FormatRoundRobin, 2),
				TeamIDs:     ids,
				StartDate:   start,
				LegPolicy:   tt.policy,
			})
			require.NoError(t, err)
			require.Len(t, bracket.Matches, 12)

			firstLeg := map[pairKey]*BracketMatch{}
			for _, m := range bracket.Matches {
				if m.Leg == 1 {
					firstLeg[unordered(m.HomeTeamID, m.AwayTeamID)] = m
				}
			}
			require.Len(t, firstLeg, 6)

			for _, m := range bracket.Matches {
				if m.Leg != 2 {
					continue
				}
				first := firstLeg[unordered(m.HomeTeamID, m.AwayTeamID)]
				require.NotNil(t, first)
				assert.True(t, m.MatchDate.After(first.MatchDate))
				if tt.swapped {
					assert.Equal(t, first.AwayTeamID, m.HomeTeamID)
				} else {
					assert.Equal(t, first.HomeTeamID, m.HomeTeamID)
				}
			}
		})
	}
}

func TestRoundRobinValidation(t *testing.T) {
	gen := NewRoundRobinGenerator()

	_, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{
		Competition: competition(models.FormatRoundRobin, 1),
		TeamIDs:     teamIDs(1),
	})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)

	_, err = gen.GenerateBracket(context.Background(), GenerateBracketParams{
		Competition: competition(models.FormatRoundRobin, 3),
		TeamIDs:     teamIDs(4),
	})
	assert.ErrorIs(t, err, ErrInvalidLegs)

	_, err = gen.GenerateBracket(context.Background(), GenerateBracketParams{
		Competition: competition(models.FormatRoundRobin, 2),
		TeamIDs:     teamIDs(4),
		LegPolicy:   "mirror",
	})
	assert.ErrorIs(t, err, ErrInvalidLegPolicy)
}

func TestKnockoutRoundsAndNames(t *testing.T) {
	tests := []struct {
		teams int
		names []string
	}{
		{teams: 2, names: []string{"Final"}},
		{teams: 4, names: []string{"Semi-Finals", "Final"}},
		{teams: 5, names: []string{"Quarter-Finals", "Semi-Finals", "Final"}},
		{teams: 16, names: []string{"Round of 16", "Quarter-Finals", "Semi-Finals", "Final"}},
		{teams: 40, names: []string{"Round of 64", "Round of 32", "Round of 16", "Quarter-Finals", "Semi-Finals", "Final"}},
		{teams: 100, names: []string{"Preliminary Round", "Round of 64", "Round of 32", "Round of 16", "Quarter-Finals", "Semi-Finals", "Final"}},
		{teams: 300, names: []string{"Qualifying Round 1", "Qualifying Round 2", "Preliminary Round", "Round of 64", "Round of 32", "Round of 16", "Quarter-Finals", "Semi-Finals", "Final"}},
	}

	for _, tt := range tests {
		bracket, err := NewKnockoutGenerator(NewShuffler(42)).GenerateBracket(context.Background(), GenerateBracketParams{
			Competition: competition(models.FormatKnockout, 1),
			TeamIDs:     teamIDs(tt.teams),
			StartDate:   start,
		})
		require.NoError(t, err)

		got := make([]string, len(bracket.Rounds))
		for i, r := range bracket.Rounds {
			got[i] = r.Name
			assert.Equal(t, i+1, r.Order)
		}
		assert.Equal(t, tt.names, got, "teams=%d", tt.teams)
	}
}

func TestPlanKnockoutKeepsRoundNumbering(t *testing.T) {
	plan := PlanKnockout(KnockoutPlanParams{
		Entries:    teamIDs(150),
		FirstRound: 2,
		StartDate:  start,
	})

	require.NotEmpty(t, plan.Rounds)
	assert.Equal(t, 2, plan.Rounds[0].Order)
	assert.Equal(t, "Qualifying Round 2", plan.Rounds[0].Name)
	assert.Equal(t, "Preliminary Round", plan.Rounds[1].Name)
	assert.Equal(t, "Final", plan.Rounds[len(plan.Rounds)-1].Name)
}

func TestKnockoutMatchCountPerRound(t *testing.T) {
	for _, n := range []int{2, 3, 5, 6, 7, 9, 12, 33} {
		bracket, err := NewKnockoutGenerator(nil).GenerateBracket(context.Background(), GenerateBracketParams{
			Competition: competition(models.FormatKnockout, 1),
			TeamIDs:     teamIDs(n),
			StartDate:   start,
		})
		require.NoError(t, err)

		perRound := map[int]int{}
		for _, m := range bracket.Matches {
			perRound[m.Round]++
			assert.Equal(t, m.Round != 1, m.Provisional)
		}

		entries := n
		for _, r := range bracket.Rounds {
			assert.Equal(t, entries/2, perRound[r.Order], "n=%d round=%d", n, r.Order)
			assert.Equal(t, entries%2 == 1, r.ByeTeamID != nil)
			entries = (entries + 1) / 2
		}
		assert.Equal(t, 1, entries)
	}
}

func TestKnockoutByeAdvances(t *testing.T) {
	ids := teamIDs(3)
	bracket, err := NewKnockoutGenerator(nil).GenerateBracket(context.Background(), GenerateBracketParams{
		Competition: competition(models.FormatKnockout, 1),
		TeamIDs:     ids,
		StartDate:   start,
	})
	require.NoError(t, err)
	require.Len(t, bracket.Rounds, 2)
	require.Len(t, bracket.Matches, 2)

	first, final := bracket.Matches[0], bracket.Matches[1]
	assert.Equal(t, ids[0], first.HomeTeamID)
	assert.Equal(t, ids[1], first.AwayTeamID)
	require.NotNil(t, bracket.Rounds[0].ByeTeamID)
	assert.Equal(t, ids[2], *bracket.Rounds[0].ByeTeamID)

	assert.True(t, final.Provisional)
	assert.Equal(t, ids[2], final.AwayTeamID)
	assert.True(t, start.AddDate(0, 0, DefaultDaysBetweenRounds).Equal(final.MatchDate))
}

func TestKnockoutTwoLegs(t *testing.T) {
	bracket, err := NewKnockoutGenerator(nil).GenerateBracket(context.Background(), GenerateBracketParams{
		Competition: competition(models.FormatKnockout, 2),
		TeamIDs:     teamIDs(4),
		StartDate:   start,
	})
	require.NoError(t, err)
	// 2 полуфинала и финал, по два матча на пару
	require.Len(t, bracket.Matches, 6)

	legs := map[string]*BracketMatch{}
	for _, m := range bracket.Matches {
		legs[m.UID] = m
	}
	first, second := legs["R1M1L1"], legs["R1M1L2"]
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.HomeTeamID, second.AwayTeamID)
	assert.Equal(t, first.AwayTeamID, second.HomeTeamID)
	assert.Equal(t, 2, bracket.Rounds[0].MatchesPerPairing)
}

func TestKnockoutShuffleIsDeterministicPerSeed(t *testing.T) {
	ids := teamIDs(8)
	gen := func() []*BracketMatch {
		b, err := NewKnockoutGenerator(NewShuffler(7)).GenerateBracket(context.Background(), GenerateBracketParams{
			Competition: competition(models.FormatKnockout, 1),
			TeamIDs:     ids,
		})
		require.NoError(t, err)
		return b.Matches
	}

	a, b := gen(), gen()
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].HomeTeamID, b[i].HomeTeamID)
		assert.Equal(t, a[i].AwayTeamID, b[i].AwayTeamID)
	}
}

func TestKnockoutNotEnoughTeams(t *testing.T) {
	_, err := NewKnockoutGenerator(nil).GenerateBracket(context.Background(), GenerateBracketParams{
		Competition: competition(models.FormatKnockout, 1),
		TeamIDs:     teamIDs(1),
	})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)
}

func TestSeedOrder(t *testing.T) {
	ids := teamIDs(5)
	got := SeedOrder(ids)
	assert.Equal(t, []uuid.UUID{ids[0], ids[4], ids[1], ids[3], ids[2]}, got)
}

func TestGroupKnockoutPartition(t *testing.T) {
	tests := []struct {
		teams  int
		groups int
		sizes  []int
		round  string
	}{
		{teams: 8, groups: 4, sizes: []int{2, 2, 2, 2}, round: "Semi-Finals"},
		{teams: 9, groups: 4, sizes: []int{3, 2, 2, 2}, round: "Semi-Finals"},
		{teams: 10, groups: 2, sizes: []int{5, 5}, round: "Final"},
		{teams: 24, groups: 8, sizes: []int{3, 3, 3, 3, 3, 3, 3, 3}, round: "Quarter-Finals"},
	}

	for _, tt := range tests {
		bracket, err := NewGroupKnockoutGenerator(NewShuffler(1)).GenerateBracket(context.Background(), GenerateBracketParams{
			Competition: competition(models.FormatGroupKnockout, 1),
			TeamIDs:     teamIDs(tt.teams),
			StartDate:   start,
			NumGroups:   tt.groups,
		})
		require.NoError(t, err)
		require.Len(t, bracket.Groups, tt.groups)

		wantMatches := 0
		seen := map[uuid.UUID]bool{}
		for i, g := range bracket.Groups {
			assert.Equal(t, tt.sizes[i], len(g.TeamIDs))
			assert.Equal(t, models.GroupName(i), g.Name)
			assert.Equal(t, i+1, g.Order)
			wantMatches += len(g.TeamIDs) * (len(g.TeamIDs) - 1) / 2
			for _, id := range g.TeamIDs {
				assert.False(t, seen[id])
				seen[id] = true
			}
		}
		assert.Len(t, seen, tt.teams)
		assert.Len(t, bracket.Matches, wantMatches)

		for _, m := range bracket.Matches {
			require.NotNil(t, m.GroupIndex)
			members := bracket.Groups[*m.GroupIndex].TeamIDs
			assert.Contains(t, members, m.HomeTeamID)
			assert.Contains(t, members, m.AwayTeamID)
		}

		require.Len(t, bracket.Rounds, 1)
		assert.Equal(t, tt.round, bracket.Rounds[0].Name)
		assert.Equal(t, models.RoundPending, bracket.Rounds[0].Status)
	}
}

func TestGroupKnockoutValidation(t *testing.T) {
	gen := NewGroupKnockoutGenerator(nil)
	comp := competition(models.FormatGroupKnockout, 1)

	_, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{Competition: comp, TeamIDs: teamIDs(3), NumGroups: 1})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)

	_, err = gen.GenerateBracket(context.Background(), GenerateBracketParams{Competition: comp, TeamIDs: teamIDs(7), NumGroups: 4})
	assert.ErrorIs(t, err, ErrGroupsUnderfilled)

	_, err = gen.GenerateBracket(context.Background(), GenerateBracketParams{Competition: comp, TeamIDs: teamIDs(8), NumGroups: 0})
	assert.ErrorIs(t, err, ErrInvalidGroupCount)

	_, err = gen.GenerateBracket(context.Background(), GenerateBracketParams{Competition: competition(models.FormatGroupKnockout, 2), TeamIDs: teamIDs(8), NumGroups: 2, LegPolicy: "mirror"})
	assert.ErrorIs(t, err, ErrInvalidLegPolicy)
}

func TestNewGenerator(t *testing.T) {
	for format, name := range map[models.CompetitionFormat]string{
		models.FormatRoundRobin:    "RoundRobin",
		models.FormatKnockout:      "Knockout",
		models.FormatGroupKnockout: "GroupKnockout",
	} {
		gen, err := NewGenerator(format, nil)
		require.NoError(t, err)
		assert.Equal(t, name, gen.GetName())
	}

	_, err := NewGenerator("swiss", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
