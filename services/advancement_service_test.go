package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/football-league/brackets"
	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leagueFixture builds a finished round robin where A > B > C > D.
type leagueFixture struct {
	env    *testEnv
	league *models.Competition
	teams  []uuid.UUID
}

func newLeagueFixture(t *testing.T) *leagueFixture {
	t.Helper()
	env := newTestEnv(t)
	ids := env.addTeams(t, "Ajax", "Benfica", "Celtic", "Dynamo")
	league := env.createCompetition(t, "League", "round_robin", nil)
	_, err := env.competitions.AddTeams(context.Background(), league.ID, ids, false)
	require.NoError(t, err)

	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	env.result(t, league.ID, a, b, 2, 0)
	env.result(t, league.ID, a, c, 3, 1)
	env.result(t, league.ID, a, d, 1, 0)
	env.result(t, league.ID, b, c, 2, 1)
	env.result(t, league.ID, b, d, 1, 1)
	env.result(t, league.ID, c, d, 2, 0)
	return &leagueFixture{env: env, league: league, teams: ids}
}

func TestAdvancementService_TopPositions(t *testing.T) {
	f := newLeagueFixture(t)
	ctx := context.Background()
	cup := f.env.createCompetition(t, "Cup", "knockout", nil)

	res, err := f.env.advancement.AdvanceTopPositions(ctx, f.league.ID, cup.ID, intPtr(2))
	require.NoError(t, err)
	require.Len(t, res.Advanced, 2)
	assert.Equal(t, f.teams[0], res.Advanced[0].TeamID)
	assert.Equal(t, f.teams[1], res.Advanced[1].TeamID)
	assert.False(t, res.Advanced[0].ManuallyAdded)
	assert.Empty(t, res.Skipped)

	// повторный запуск ничего не добавляет
	res, err = f.env.advancement.AdvanceTopPositions(ctx, f.league.ID, cup.ID, intPtr(2))
	require.NoError(t, err)
	assert.Empty(t, res.Advanced)
	assert.Equal(t, []uuid.UUID{f.teams[0], f.teams[1]}, res.Skipped)

	members, err := f.env.competitions.ListTeams(ctx, cup.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	assert.Equal(t, []string{brackets.MessageTeamsAdvanced}, f.env.publisher.types())
}

func TestAdvancementService_TopPositionsAllWhenUnset(t *testing.T) {
	f := newLeagueFixture(t)
	cup := f.env.createCompetition(t, "Cup", "knockout", nil)

	res, err := f.env.advancement.AdvanceTopPositions(context.Background(), f.league.ID, cup.ID, nil)
	require.NoError(t, err)
	assert.Len(t, res.Advanced, 4)
}

func TestAdvancementService_TopPositionsFromRule(t *testing.T) {
	f := newLeagueFixture(t)
	ctx := context.Background()
	cup := f.env.createCompetition(t, "Cup", "knockout", nil)
	_, err := f.env.advancement.CreateRule(ctx, f.league.ID, CreateRuleInput{
		ToCompetitionID:      &cup.ID,
		RuleType:             "top_positions",
		AdvancementPositions: intPtr(2),
	})
	require.NoError(t, err)

	res, err := f.env.advancement.AdvanceTopPositions(ctx, f.league.ID, cup.ID, nil)
	require.NoError(t, err)
	require.Len(t, res.Advanced, 2)
	assert.Equal(t, f.teams[0], res.Advanced[0].TeamID)
	assert.Equal(t, f.teams[1], res.Advanced[1].TeamID)

	// явное значение важнее правила
	res, err = f.env.advancement.AdvanceTopPositions(ctx, f.league.ID, cup.ID, intPtr(3))
	require.NoError(t, err)
	require.Len(t, res.Advanced, 1)
	assert.Equal(t, f.teams[2], res.Advanced[0].TeamID)
	assert.Equal(t, []uuid.UUID{f.teams[0], f.teams[1]}, res.Skipped)
}

func TestAdvancementService_GroupWinners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	groups, _ := enrolled(t, env, "World Cup", "group_knockout", "A", "B", "C", "D", "E", "F", "G", "H")
	_, err := env.fixtures.Generate(ctx, groups.ID, GenerateFixturesInput{StartDate: &fixtureStart, NumGroups: 2})
	require.NoError(t, err)
	env.finishGroupMatches(t)

	tables, err := env.standings.Groups(ctx, groups.ID)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	next := env.createCompetition(t, "Champions", "knockout", nil)
	res, err := env.advancement.AdvanceGroupWinners(ctx, groups.ID, next.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RuleGroupWinners, res.RuleType)
	require.Len(t, res.Advanced, 2)
	assert.Equal(t, tables[0].Rows[0].TeamID, res.Advanced[0].TeamID)
	assert.Equal(t, tables[1].Rows[0].TeamID, res.Advanced[1].TeamID)

	members, err := env.competitions.ListTeams(ctx, next.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestAdvancementService_KnockoutWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cup, ids := enrolled(t, env, "Cup", "knockout", "A", "B", "C", "D")
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	env.result(t, cup.ID, a, b, 2, 1)
	env.result(t, cup.ID, c, d, 1, 0)
	env.result(t, cup.ID, a, c, 3, 0)

	next := env.createCompetition(t, "Super Cup", "knockout", nil)
	res, err := env.advancement.AdvanceKnockoutWinner(ctx, cup.ID, next.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RuleKnockoutWinner, res.RuleType)
	require.Len(t, res.Advanced, 1)
	assert.Equal(t, a, res.Advanced[0].TeamID)
	assert.Equal(t, 1, res.Advanced[0].SeededPosition)
}

func TestAdvancementService_TopPositionsCapacity(t *testing.T) {
	f := newLeagueFixture(t)
	ctx := context.Background()
	cup := f.env.createCompetition(t, "Cup", "knockout", intPtr(1))

	_, err := f.env.advancement.AdvanceTopPositions(ctx, f.league.ID, cup.ID, intPtr(2))
	require.ErrorIs(t, err, ErrCapacityExceeded)

	members, err := f.env.competitions.ListTeams(ctx, cup.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestAdvancementService_Validation(t *testing.T) {
	f := newLeagueFixture(t)
	ctx := context.Background()
	cup := f.env.createCompetition(t, "Cup", "knockout", nil)

	_, err := f.env.advancement.AdvanceTopPositions(ctx, f.league.ID, f.league.ID, intPtr(2))
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.env.advancement.AdvanceTopPositions(ctx, f.league.ID, cup.ID, intPtr(0))
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.env.advancement.AdvanceTopPositions(ctx, f.league.ID, uuid.New(), intPtr(2))
	assert.ErrorIs(t, err, ErrCompetitionNotFound)

	_, err = f.env.advancement.AdvanceGroupWinners(ctx, f.league.ID, cup.ID)
	assert.ErrorIs(t, err, ErrValidationFailed, "round robin source has no groups")

	_, err = f.env.advancement.AdvanceManually(ctx, f.league.ID, cup.ID, nil)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestAdvancementService_KnockoutWinnerEmptyStandings(t *testing.T) {
	env := newTestEnv(t)
	cup := env.createCompetition(t, "Cup", "knockout", nil)
	next := env.createCompetition(t, "Super Cup", "knockout", nil)

	_, err := env.advancement.AdvanceKnockoutWinner(context.Background(), cup.ID, next.ID)
	require.ErrorIs(t, err, ErrEmptyStandings)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KindEmptyStandings, verr.Kind)
}

func TestAdvancementService_Manual(t *testing.T) {
	f := newLeagueFixture(t)
	ctx := context.Background()
	cup := f.env.createCompetition(t, "Cup", "knockout", nil)

	res, err := f.env.advancement.AdvanceManually(ctx, f.league.ID, cup.ID, []uuid.UUID{f.teams[3]})
	require.NoError(t, err)
	require.Len(t, res.Advanced, 1)
	assert.True(t, res.Advanced[0].ManuallyAdded)
	assert.Equal(t, models.RuleManualOnly, res.RuleType)

	// ручные и автоматические добавления делят один счетчик позиций
	res, err = f.env.advancement.AdvanceTopPositions(ctx, f.league.ID, cup.ID, intPtr(1))
	require.NoError(t, err)
	require.Len(t, res.Advanced, 1)
	assert.Equal(t, 2, res.Advanced[0].SeededPosition)
}

func TestAdvancementService_ApplyRulesPartialFailure(t *testing.T) {
	f := newLeagueFixture(t)
	ctx := context.Background()
	cup := f.env.createCompetition(t, "Cup", "knockout", nil)
	plate := f.env.createCompetition(t, "Plate", "knockout", nil)

	top, err := f.env.advancement.CreateRule(ctx, f.league.ID, CreateRuleInput{
		ToCompetitionID:      &cup.ID,
		RuleType:             "top_positions",
		AdvancementPositions: intPtr(2),
		AutoApply:            true,
	})
	require.NoError(t, err)

	// knockout_winner from a league cannot be created through the service
	f.env.store.mu.Lock()
	f.env.store.rules = append(f.env.store.rules,
		models.AdvancementRule{ID: uuid.New(), FromCompetitionID: f.league.ID, ToCompetitionID: &plate.ID, RuleType: models.RuleKnockoutWinner, AutoApply: true},
		models.AdvancementRule{ID: uuid.New(), FromCompetitionID: f.league.ID, RuleType: models.RuleGroupWinners, AutoApply: true},
	)
	f.env.store.mu.Unlock()

	outcomes, err := f.env.advancement.ApplyRules(ctx, f.league.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, top.ID, outcomes[0].RuleID)
	assert.Equal(t, OutcomeSuccess, outcomes[0].Status)
	assert.Equal(t, 2, outcomes[0].Advanced)
	assert.Equal(t, OutcomeError, outcomes[1].Status)
	assert.NotEmpty(t, outcomes[1].Message)
	assert.Equal(t, OutcomeSkipped, outcomes[2].Status)

	members, err := f.env.competitions.ListTeams(ctx, cup.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestAdvancementService_ApplyCompletedRules(t *testing.T) {
	f := newLeagueFixture(t)
	ctx := context.Background()
	cup := f.env.createCompetition(t, "Cup", "knockout", nil)
	_, err := f.env.advancement.CreateRule(ctx, f.league.ID, CreateRuleInput{
		ToCompetitionID:      &cup.ID,
		RuleType:             "top_positions",
		AdvancementPositions: intPtr(3),
		AutoApply:            true,
	})
	require.NoError(t, err)

	outcomes, err := f.env.advancement.ApplyCompletedRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, outcomes, "league is still a draft")

	status := "completed"
	_, err = f.env.competitions.Update(ctx, f.league.ID, UpdateCompetitionInput{Status: &status})
	require.NoError(t, err)

	outcomes, err = f.env.advancement.ApplyCompletedRules(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSuccess, outcomes[0].Status)
	assert.Equal(t, 3, outcomes[0].Advanced)
}

func TestAdvancementService_CreateRule(t *testing.T) {
	f := newLeagueFixture(t)
	ctx := context.Background()
	cup := f.env.createCompetition(t, "Cup", "knockout", nil)

	rule, err := f.env.advancement.CreateRule(ctx, f.league.ID, CreateRuleInput{ToCompetitionID: &cup.ID, RuleType: "top_positions", AdvancementPositions: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, models.RuleTopPositions, rule.RuleType)

	_, err = f.env.advancement.CreateRule(ctx, f.league.ID, CreateRuleInput{ToCompetitionID: &cup.ID, RuleType: "top_positions"})
	assert.ErrorIs(t, err, ErrRuleConflict)

	_, err = f.env.advancement.CreateRule(ctx, f.league.ID, CreateRuleInput{ToCompetitionID: &cup.ID, RuleType: "group_winners"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.env.advancement.CreateRule(ctx, f.league.ID, CreateRuleInput{ToCompetitionID: &f.league.ID, RuleType: "manual_only"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.env.advancement.CreateRule(ctx, f.league.ID, CreateRuleInput{RuleType: "lottery"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	rules, err := f.env.advancement.ListRules(ctx, f.league.ID)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestAdvancementService_EligibleAndSummary(t *testing.T) {
	f := newLeagueFixture(t)
	ctx := context.Background()
	cup := f.env.createCompetition(t, "Cup", "knockout", nil)

	_, err := f.env.advancement.EligibleTeams(ctx, f.league.ID, cup.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)

	_, err = f.env.advancement.CreateRule(ctx, f.league.ID, CreateRuleInput{ToCompetitionID: &cup.ID, RuleType: "top_positions", AdvancementPositions: intPtr(3)})
	require.NoError(t, err)
	_, err = f.env.advancement.AdvanceManually(ctx, f.league.ID, cup.ID, []uuid.UUID{f.teams[0]})
	require.NoError(t, err)

	rows, err := f.env.advancement.EligibleTeams(ctx, f.league.ID, cup.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, f.teams[1], rows[0].TeamID)
	assert.Equal(t, f.teams[2], rows[1].TeamID)

	summary, err := f.env.advancement.Summary(ctx, f.league.ID, &cup.ID)
	require.NoError(t, err)
	require.Len(t, summary.Rules, 1)
	assert.Equal(t, 2, summary.Rules[0].EligibleCount)
	assert.Empty(t, summary.Rules[0].Error)

	other := uuid.New()
	summary, err = f.env.advancement.Summary(ctx, f.league.ID, &other)
	require.NoError(t, err)
	assert.Empty(t, summary.Rules)
}
