package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/football-league/brackets"
	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/repositories"
	"github.com/google/uuid"
)

type GenerateFixturesInput struct {
	StartDate          *time.Time `json:"start_date"`
	DaysBetweenMatches int        `json:"days_between_matches"`
	DaysBetweenRounds  int        `json:"days_between_rounds"`
	NumGroups          int        `json:"num_groups"`
	LegPolicy          string     `json:"leg_policy"`
}

type RescheduleInput struct {
	StartDate   time.Time `json:"start_date"`
	DaysBetween int       `json:"days_between"`
}

type FixturesResult struct {
	CompetitionID uuid.UUID              `json:"competition_id"`
	Groups        []models.Group         `json:"groups"`
	Rounds        []models.KnockoutRound `json:"knockout_rounds"`
	Matches       []models.Match         `json:"matches"`
}

type RoundResolution struct {
	Round                models.KnockoutRound  `json:"round"`
	Winners              []uuid.UUID           `json:"winners"`
	NextRound            *models.KnockoutRound `json:"next_round,omitempty"`
	Matches              []models.Match        `json:"matches"`
	CompetitionCompleted bool                  `json:"competition_completed"`
	ChampionID           *uuid.UUID            `json:"champion_id,omitempty"`
}

type FixtureService interface {
	Generate(ctx context.Context, competitionID uuid.UUID, input GenerateFixturesInput) (*FixturesResult, error)
	Schedule(ctx context.Context, competitionID uuid.UUID, groupID, roundID *uuid.UUID) ([]models.Match, error)
	Rounds(ctx context.Context, competitionID uuid.UUID) ([]models.KnockoutRound, error)
	Reschedule(ctx context.Context, competitionID uuid.UUID, input RescheduleInput) (int, error)
	// ResolveKnockoutRound pairs the winners of a finished round into the next one.
	ResolveKnockoutRound(ctx context.Context, competitionID uuid.UUID, roundOrder int) (*RoundResolution, error)
	// SeedKnockoutStage fills the knockout stage of a group_knockout competition from the group tables.
	SeedKnockoutStage(ctx context.Context, competitionID uuid.UUID, qualifiersPerGroup int) (*FixturesResult, error)
}

type fixtureService struct {
	tx              repositories.Transactor
	competitionRepo repositories.CompetitionRepository
	memberRepo      repositories.CompetitionTeamRepository
	groupRepo       repositories.GroupRepository
	roundRepo       repositories.KnockoutRoundRepository
	matchRepo       repositories.MatchRepository
	standings       StandingsService
	publisher       Publisher
	shuffler        *brackets.Shuffler
	legPolicy       brackets.LegPolicy
	logger          *slog.Logger
	now             func() time.Time
}

type FixtureServiceDeps struct {
	Tx              repositories.Transactor
	CompetitionRepo repositories.CompetitionRepository
	MemberRepo      repositories.CompetitionTeamRepository
	GroupRepo       repositories.GroupRepository
	RoundRepo       repositories.KnockoutRoundRepository
	MatchRepo       repositories.MatchRepository
	Standings       StandingsService
	Publisher       Publisher
	Shuffler        *brackets.Shuffler
	LegPolicy       brackets.LegPolicy
	Logger          *slog.Logger
}

func NewFixtureService(deps FixtureServiceDeps) FixtureService {
	policy := deps.LegPolicy
	if policy == "" {
		policy = brackets.LegReverseVenues
	}
	return &fixtureService{
		tx:              deps.Tx,
		competitionRepo: deps.CompetitionRepo,
		memberRepo:      deps.MemberRepo,
		groupRepo:       deps.GroupRepo,
		roundRepo:       deps.RoundRepo,
		matchRepo:       deps.MatchRepo,
		standings:       deps.Standings,
		publisher:       publisherOrNoop(deps.Publisher),
		shuffler:        deps.Shuffler,
		legPolicy:       policy,
		logger:          loggerOrDefault(deps.Logger),
		now:             time.Now,
	}
}

func (s *fixtureService) Generate(ctx context.Context, competitionID uuid.UUID, input GenerateFixturesInput) (*FixturesResult, error) {
	policy := s.legPolicy
	if input.LegPolicy != "" {
		p, err := brackets.ParseLegPolicy(input.LegPolicy)
		if err != nil {
			return nil, newValidationError(KindInvalidInput, err, "%v", err)
		}
		policy = p
	}
	start := s.now().UTC()
	if input.StartDate != nil {
		start = *input.StartDate
	}
	numGroups := input.NumGroups
	if numGroups == 0 {
		numGroups = brackets.DefaultNumGroups
	}

	result := &FixturesResult{CompetitionID: competitionID}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		c, err := s.competitionRepo.GetByIDForUpdate(ctx, exec, competitionID)
		if err != nil {
			return handleRepositoryError(err)
		}
		existing, err := s.matchRepo.CountByCompetition(ctx, exec, competitionID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrFixturesExist
		}

		members, err := s.memberRepo.ListByCompetition(ctx, exec, competitionID)
		if err != nil {
			return fmt.Errorf("failed to list teams of competition %s: %w", competitionID, err)
		}
		if c.MinTeams != nil && len(members) < *c.MinTeams {
			return newValidationError(KindNotEnoughTeams, nil,
				"competition needs at least %d teams, has %d", *c.MinTeams, len(members))
		}
		teamIDs := make([]uuid.UUID, len(members))
		for i, m := range members {
			teamIDs[i] = m.TeamID
		}

		generator, err := brackets.NewGenerator(c.Format, s.shuffler)
		if err != nil {
			return newValidationError(KindInvalidFormat, err, "%v", err)
		}
		bracket, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
			Competition:        c,
			TeamIDs:            teamIDs,
			StartDate:          start,
			DaysBetweenMatches: input.DaysBetweenMatches,
			DaysBetweenRounds:  input.DaysBetweenRounds,
			NumGroups:          numGroups,
			LegPolicy:          policy,
		})
		if err != nil {
			return bracketValidationError(err)
		}

		if err := s.persistBracket(ctx, exec, c, bracket, result); err != nil {
			return err
		}
		if c.Status == models.CompetitionDraft {
			if err := s.competitionRepo.UpdateStatus(ctx, exec, c.ID, models.CompetitionOngoing); err != nil {
				return handleRepositoryError(err)
			}
		}

		s.logger.InfoContext(ctx, "fixtures generated",
			slog.String("competition_id", competitionID.String()),
			slog.String("generator", generator.GetName()),
			slog.Int("teams", len(teamIDs)),
			slog.Int("matches", len(result.Matches)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishCompetition(competitionID, brackets.MessageFixturesGenerated, result)
	return result, nil
}

func bracketValidationError(err error) error {
	switch {
	case errors.Is(err, brackets.ErrNotEnoughTeams), errors.Is(err, brackets.ErrGroupsUnderfilled):
		return newValidationError(KindNotEnoughTeams, err, "%v", err)
	case errors.Is(err, brackets.ErrUnsupportedFormat):
		return newValidationError(KindInvalidFormat, err, "%v", err)
	default:
		return newValidationError(KindInvalidInput, err, "%v", err)
	}
}

// persistBracket writes groups, rounds and matches of a generated bracket and
// appends the stored records to result.
func (s *fixtureService) persistBracket(ctx context.Context, exec repositories.SQLExecutor, c *models.Competition, b *brackets.Bracket, result *FixturesResult) error {
	groupIDs := make([]uuid.UUID, len(b.Groups))
	for i, bg := range b.Groups {
		g := models.Group{CompetitionID: c.ID, Name: bg.Name, Order: bg.Order}
		if err := s.groupRepo.Create(ctx, exec, &g); err != nil {
			return handleRepositoryError(err)
		}
		groupIDs[i] = g.ID
		for _, teamID := range bg.TeamIDs {
			gid := g.ID
			if err := s.memberRepo.SetGroup(ctx, exec, c.ID, teamID, &gid); err != nil {
				return fmt.Errorf("failed to assign team %s to %s: %w", teamID, g.Name, err)
			}
		}
		result.Groups = append(result.Groups, g)
	}

	roundIDs := make(map[int]uuid.UUID, len(b.Rounds))
	for _, br := range b.Rounds {
		kr := models.KnockoutRound{
			CompetitionID:     c.ID,
			RoundName:         br.Name,
			RoundOrder:        br.Order,
			MatchesPerPairing: br.MatchesPerPairing,
			Status:            br.Status,
			ByeTeamID:         br.ByeTeamID,
		}
		if err := s.roundRepo.Create(ctx, exec, &kr); err != nil {
			return handleRepositoryError(err)
		}
		roundIDs[br.Order] = kr.ID
		result.Rounds = append(result.Rounds, kr)
	}

	for _, bm := range b.Matches {
		competitionID := c.ID
		m := models.Match{
			HomeTeamID:    bm.HomeTeamID,
			AwayTeamID:    bm.AwayTeamID,
			CompetitionID: &competitionID,
			MatchDate:     bm.MatchDate,
			Status:        models.MatchScheduled,
			Leg:           bm.Leg,
			Provisional:   bm.Provisional,
		}
		if bm.GroupIndex != nil {
			gid := groupIDs[*bm.GroupIndex]
			m.GroupID = &gid
		} else if rid, ok := roundIDs[bm.Round]; ok {
			order := bm.OrderInRound
			m.KnockoutRoundID = &rid
			m.OrderInRound = &order
		}
		if err := s.matchRepo.Create(ctx, exec, &m); err != nil {
			return handleRepositoryError(err)
		}
		result.Matches = append(result.Matches, m)
	}
	return nil
}

func (s *fixtureService) Schedule(ctx context.Context, competitionID uuid.UUID, groupID, roundID *uuid.UUID) ([]models.Match, error) {
	if _, err := s.competitionRepo.GetByID(ctx, nil, competitionID); err != nil {
		return nil, handleRepositoryError(err)
	}
	matches, err := s.matchRepo.List(ctx, nil, models.MatchFilter{
		CompetitionID:   &competitionID,
		GroupID:         groupID,
		KnockoutRoundID: roundID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures of competition %s: %w", competitionID, err)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchDate.Before(matches[j].MatchDate)
	})
	return matches, nil
}

func (s *fixtureService) Rounds(ctx context.Context, competitionID uuid.UUID) ([]models.KnockoutRound, error) {
	if _, err := s.competitionRepo.GetByID(ctx, nil, competitionID); err != nil {
		return nil, handleRepositoryError(err)
	}
	rounds, err := s.roundRepo.ListByCompetition(ctx, nil, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list knockout rounds of competition %s: %w", competitionID, err)
	}
	return rounds, nil
}

// Reschedule moves every scheduled match onto a new calendar. Matchdays keep
// their order; the k-th distinct match date becomes start + k*interval.
func (s *fixtureService) Reschedule(ctx context.Context, competitionID uuid.UUID, input RescheduleInput) (int, error) {
	if input.StartDate.IsZero() {
		return 0, newValidationError(KindInvalidInput, nil, "start_date is required")
	}
	days := input.DaysBetween
	if days <= 0 {
		days = brackets.DefaultDaysBetweenMatches
	}
	interval := time.Duration(days) * 24 * time.Hour

	updated := 0
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		if _, err := s.competitionRepo.GetByIDForUpdate(ctx, exec, competitionID); err != nil {
			return handleRepositoryError(err)
		}
		scheduled := models.MatchScheduled
		matches, err := s.matchRepo.List(ctx, exec, models.MatchFilter{CompetitionID: &competitionID, Status: &scheduled})
		if err != nil {
			return fmt.Errorf("failed to list scheduled matches: %w", err)
		}

		var matchdays []time.Time
		seen := map[int64]bool{}
		for _, m := range matches {
			key := m.MatchDate.UnixNano()
			if !seen[key] {
				seen[key] = true
				matchdays = append(matchdays, m.MatchDate)
			}
		}
		sort.Slice(matchdays, func(i, j int) bool { return matchdays[i].Before(matchdays[j]) })
		newDate := make(map[int64]time.Time, len(matchdays))
		for k, d := range matchdays {
			newDate[d.UnixNano()] = input.StartDate.Add(time.Duration(k) * interval)
		}

		for _, m := range matches {
			if err := s.matchRepo.UpdateDate(ctx, exec, m.ID, newDate[m.MatchDate.UnixNano()]); err != nil {
				return handleRepositoryError(err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "fixtures rescheduled", slog.String("competition_id", competitionID.String()), slog.Int("matches", updated))
	return updated, nil
}

func (s *fixtureService) ResolveKnockoutRound(ctx context.Context, competitionID uuid.UUID, roundOrder int) (*RoundResolution, error) {
	res := &RoundResolution{Matches: []models.Match{}}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		c, err := s.competitionRepo.GetByIDForUpdate(ctx, exec, competitionID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if c.Format == models.FormatRoundRobin {
			return newValidationError(KindInvalidFormat, nil, "round robin competitions have no knockout rounds")
		}

		rounds, err := s.roundRepo.ListByCompetition(ctx, exec, competitionID)
		if err != nil {
			return fmt.Errorf("failed to list knockout rounds: %w", err)
		}
		idx := -1
		for i := range rounds {
			if rounds[i].RoundOrder == roundOrder {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrRoundNotFound
		}
		round := rounds[idx]
		if round.Status == models.RoundCompleted {
			return ErrRoundAlreadyResolved
		}
		if idx > 0 && rounds[idx-1].Status != models.RoundCompleted {
			return ErrRoundNotReady
		}

		matches, err := s.matchRepo.List(ctx, exec, models.MatchFilter{KnockoutRoundID: &round.ID})
		if err != nil {
			return fmt.Errorf("failed to list matches of round %s: %w", round.RoundName, err)
		}
		if len(matches) == 0 {
			return ErrRoundNotReady
		}
		for _, m := range matches {
			if m.Provisional {
				return ErrRoundNotReady
			}
			if !m.IsFinished() {
				return fmt.Errorf("%w: %s", ErrRoundIncomplete, round.RoundName)
			}
		}

		winners, err := pairingWinners(matches)
		if err != nil {
			return err
		}
		entries := append([]uuid.UUID{}, winners...)
		if round.ByeTeamID != nil {
			entries = append(entries, *round.ByeTeamID)
		}
		res.Winners = winners

		round.Status = models.RoundCompleted
		if err := s.roundRepo.Update(ctx, exec, &round); err != nil {
			return handleRepositoryError(err)
		}
		res.Round = round

		if len(entries) == 1 {
			champion := entries[0]
			res.ChampionID = &champion
			res.CompetitionCompleted = true
			// последующих раундов быть не должно, но чистим на случай ручных правок
			if err := s.dropRoundsAfter(ctx, exec, competitionID, rounds[idx+1:], roundOrder); err != nil {
				return err
			}
			return handleRepositoryError(s.competitionRepo.UpdateStatus(ctx, exec, competitionID, models.CompetitionCompleted))
		}

		if err := s.dropRoundsAfter(ctx, exec, competitionID, rounds[idx+1:], roundOrder); err != nil {
			return err
		}
		last := matches[0].MatchDate
		for _, m := range matches {
			if m.MatchDate.After(last) {
				last = m.MatchDate
			}
		}
		plan := brackets.PlanKnockout(brackets.KnockoutPlanParams{
			Entries:       entries,
			FirstRound:    roundOrder + 1,
			Legs:          c.Legs,
			StartDate:     last.Add(brackets.DefaultDaysBetweenRounds * 24 * time.Hour),
			RoundInterval: brackets.DefaultDaysBetweenRounds * 24 * time.Hour,
			LegInterval:   brackets.DefaultDaysBetweenMatches * 24 * time.Hour,
		})
		planned := &FixturesResult{CompetitionID: competitionID}
		if err := s.persistBracket(ctx, exec, c, plan, planned); err != nil {
			return err
		}
		if len(planned.Rounds) > 0 {
			next := planned.Rounds[0]
			res.NextRound = &next
		}
		for _, m := range planned.Matches {
			if res.NextRound != nil && m.KnockoutRoundID != nil && *m.KnockoutRoundID == res.NextRound.ID {
				res.Matches = append(res.Matches, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "knockout round resolved",
		slog.String("competition_id", competitionID.String()),
		slog.Int("round_order", roundOrder),
		slog.Int("winners", len(res.Winners)),
		slog.Bool("competition_completed", res.CompetitionCompleted))
	s.publisher.PublishCompetition(competitionID, brackets.MessageRoundResolved, res)

	if res.CompetitionCompleted && s.standings != nil {
		if _, err := s.standings.Archive(ctx, competitionID); err != nil {
			s.logger.ErrorContext(ctx, "failed to archive final standings",
				slog.String("competition_id", competitionID.String()), slog.Any("error", err))
		}
	}
	return res, nil
}

func (s *fixtureService) dropRoundsAfter(ctx context.Context, exec repositories.SQLExecutor, competitionID uuid.UUID, later []models.KnockoutRound, order int) error {
	if len(later) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(later))
	for i, r := range later {
		ids[i] = r.ID
	}
	if err := s.matchRepo.DeleteByRounds(ctx, exec, ids); err != nil {
		return err
	}
	return s.roundRepo.DeleteAfter(ctx, exec, competitionID, order)
}

// pairingWinners decides every pairing of a round on aggregate score, in
// bracket order.
func pairingWinners(matches []models.Match) ([]uuid.UUID, error) {
	byPairing := map[int][]models.Match{}
	var orders []int
	for i, m := range matches {
		order := i + 1
		if m.OrderInRound != nil {
			order = *m.OrderInRound
		}
		if _, ok := byPairing[order]; !ok {
			orders = append(orders, order)
		}
		byPairing[order] = append(byPairing[order], m)
	}
	sort.Ints(orders)

	winners := make([]uuid.UUID, 0, len(orders))
	for _, order := range orders {
		legs := byPairing[order]
		sort.Slice(legs, func(i, j int) bool { return legs[i].Leg < legs[j].Leg })
		first, second := legs[0].HomeTeamID, legs[0].AwayTeamID

		goals := map[uuid.UUID]int{}
		for _, m := range legs {
			goals[m.HomeTeamID] += m.HomeScore
			goals[m.AwayTeamID] += m.AwayScore
		}
		switch {
		case goals[first] > goals[second]:
			winners = append(winners, first)
		case goals[second] > goals[first]:
			winners = append(winners, second)
		default:
			return nil, fmt.Errorf("%w: %s vs %s (%d-%d)", ErrUnresolvedTie, first, second, goals[first], goals[second])
		}
	}
	return winners, nil
}

func (s *fixtureService) SeedKnockoutStage(ctx context.Context, competitionID uuid.UUID, qualifiersPerGroup int) (*FixturesResult, error) {
	if qualifiersPerGroup <= 0 {
		qualifiersPerGroup = 1
	}
	c, err := s.competitionRepo.GetByID(ctx, nil, competitionID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if c.Format != models.FormatGroupKnockout {
		return nil, newValidationError(KindInvalidFormat, nil, "only group_knockout competitions have a group stage")
	}

	tables, err := s.standings.Groups(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	var qualifiers []uuid.UUID
	for pos := 0; pos < qualifiersPerGroup; pos++ {
		for _, t := range tables {
			if pos < len(t.Rows) {
				qualifiers = append(qualifiers, t.Rows[pos].TeamID)
			}
		}
	}
	if len(qualifiers) < 2 {
		return nil, newValidationError(KindNotEnoughTeams, nil, "knockout stage needs at least 2 qualifiers, got %d", len(qualifiers))
	}

	result := &FixturesResult{CompetitionID: competitionID}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		if _, err := s.competitionRepo.GetByIDForUpdate(ctx, exec, competitionID); err != nil {
			return handleRepositoryError(err)
		}
		matches, err := s.matchRepo.List(ctx, exec, models.MatchFilter{CompetitionID: &competitionID})
		if err != nil {
			return fmt.Errorf("failed to list matches: %w", err)
		}
		last := s.now().UTC()
		if len(matches) > 0 {
			last = matches[0].MatchDate
		}
		for _, m := range matches {
			if m.KnockoutRoundID != nil {
				return ErrStageAlreadySeeded
			}
			if m.GroupID != nil && m.Status != models.MatchFinished && m.Status != models.MatchCancelled {
				return ErrGroupStageIncomplete
			}
			if m.MatchDate.After(last) {
				last = m.MatchDate
			}
		}

		rounds, err := s.roundRepo.ListByCompetition(ctx, exec, competitionID)
		if err != nil {
			return err
		}
		if err := s.dropRoundsAfter(ctx, exec, competitionID, rounds, 0); err != nil {
			return err
		}

		plan := brackets.PlanKnockout(brackets.KnockoutPlanParams{
			Entries:       brackets.SeedOrder(qualifiers),
			FirstRound:    1,
			Legs:          c.Legs,
			StartDate:     last.Add(brackets.DefaultDaysBetweenRounds * 24 * time.Hour),
			RoundInterval: brackets.DefaultDaysBetweenRounds * 24 * time.Hour,
			LegInterval:   brackets.DefaultDaysBetweenMatches * 24 * time.Hour,
		})
		return s.persistBracket(ctx, exec, c, plan, result)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "knockout stage seeded",
		slog.String("competition_id", competitionID.String()), slog.Int("qualifiers", len(qualifiers)))
	s.publisher.PublishCompetition(competitionID, brackets.MessageFixturesGenerated, result)
	return result, nil
}
