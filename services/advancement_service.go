package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/football-league/brackets"
	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/repositories"
	"github.com/Dosada05/football-league/standings"
	"github.com/google/uuid"
)

const summaryPreviewSize = 10

type RuleOutcomeStatus string

const (
	OutcomeSuccess RuleOutcomeStatus = "success"
	OutcomeError   RuleOutcomeStatus = "error"
	OutcomeSkipped RuleOutcomeStatus = "skipped"
)

type AdvancementResult struct {
	FromCompetitionID uuid.UUID                `json:"from_competition_id"`
	ToCompetitionID   uuid.UUID                `json:"to_competition_id"`
	RuleType          models.RuleType          `json:"rule_type"`
	Advanced          []models.CompetitionTeam `json:"advanced"`
	Skipped           []uuid.UUID              `json:"skipped"`
}

// RuleOutcome reports what happened to one rule during ApplyRules.
type RuleOutcome struct {
	RuleID            uuid.UUID         `json:"rule_id"`
	FromCompetitionID uuid.UUID         `json:"from_competition_id"`
	ToCompetitionID   *uuid.UUID        `json:"to_competition_id,omitempty"`
	RuleType          models.RuleType   `json:"rule_type"`
	Status            RuleOutcomeStatus `json:"status"`
	Message           string            `json:"message,omitempty"`
	Advanced          int               `json:"advanced"`
}

type CreateRuleInput struct {
	ToCompetitionID      *uuid.UUID `json:"to_competition_id"`
	RuleType             string     `json:"rule_type"`
	AdvancementPositions *int       `json:"advancement_positions"`
	AutoApply            bool       `json:"auto_apply"`
}

type RuleSummary struct {
	Rule          models.AdvancementRule `json:"rule"`
	EligibleCount int                    `json:"eligible_count"`
	EligibleTeams []models.StandingsRow  `json:"eligible_teams"`
	Error         string                 `json:"error,omitempty"`
}

type AdvancementSummary struct {
	FromCompetitionID uuid.UUID     `json:"from_competition_id"`
	Rules             []RuleSummary `json:"rules"`
}

type AdvancementService interface {
	AdvanceTopPositions(ctx context.Context, fromID, toID uuid.UUID, positions *int) (*AdvancementResult, error)
	AdvanceGroupWinners(ctx context.Context, fromID, toID uuid.UUID) (*AdvancementResult, error)
	AdvanceKnockoutWinner(ctx context.Context, fromID, toID uuid.UUID) (*AdvancementResult, error)
	AdvanceManually(ctx context.Context, fromID, toID uuid.UUID, teamIDs []uuid.UUID) (*AdvancementResult, error)
	// ApplyRules runs every auto_apply rule of a competition. A failing rule
	// is reported in its outcome and does not stop the others.
	ApplyRules(ctx context.Context, fromID uuid.UUID) ([]RuleOutcome, error)
	// ApplyCompletedRules runs the auto_apply rules of every completed competition.
	ApplyCompletedRules(ctx context.Context) ([]RuleOutcome, error)
	EligibleTeams(ctx context.Context, fromID, toID uuid.UUID) ([]models.StandingsRow, error)
	Summary(ctx context.Context, fromID uuid.UUID, toID *uuid.UUID) (*AdvancementSummary, error)
	CreateRule(ctx context.Context, fromID uuid.UUID, input CreateRuleInput) (*models.AdvancementRule, error)
	ListRules(ctx context.Context, fromID uuid.UUID) ([]models.AdvancementRule, error)
}

type advancementService struct {
	competitionRepo repositories.CompetitionRepository
	memberRepo      repositories.CompetitionTeamRepository
	ruleRepo        repositories.AdvancementRuleRepository
	standings       StandingsService
	registry        CompetitionService
	publisher       Publisher
	logger          *slog.Logger
}

func NewAdvancementService(
	competitionRepo repositories.CompetitionRepository,
	memberRepo repositories.CompetitionTeamRepository,
	ruleRepo repositories.AdvancementRuleRepository,
	standingsService StandingsService,
	registry CompetitionService,
	publisher Publisher,
	logger *slog.Logger,
) AdvancementService {
	return &advancementService{
		competitionRepo: competitionRepo,
		memberRepo:      memberRepo,
		ruleRepo:        ruleRepo,
		standings:       standingsService,
		registry:        registry,
		publisher:       publisherOrNoop(publisher),
		logger:          loggerOrDefault(logger),
	}
}

// AdvanceTopPositions advances the top N teams. Without an explicit N the
// advancement_positions of the top_positions rule between the pair is used,
// and every team when there is no such rule or it leaves N unset.
func (s *advancementService) AdvanceTopPositions(ctx context.Context, fromID, toID uuid.UUID, positions *int) (*AdvancementResult, error) {
	if positions == nil {
		n, err := s.rulePositions(ctx, fromID, toID)
		if err != nil {
			return nil, err
		}
		positions = n
	}
	return s.advance(ctx, fromID, toID, models.RuleTopPositions, positions)
}

func (s *advancementService) rulePositions(ctx context.Context, fromID, toID uuid.UUID) (*int, error) {
	rules, err := s.ruleRepo.ListByCompetition(ctx, fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to list advancement rules of competition %s: %w", fromID, err)
	}
	for _, rule := range rules {
		if rule.RuleType == models.RuleTopPositions && rule.ToCompetitionID != nil && *rule.ToCompetitionID == toID {
			return rule.AdvancementPositions, nil
		}
	}
	return nil, nil
}

func (s *advancementService) AdvanceGroupWinners(ctx context.Context, fromID, toID uuid.UUID) (*AdvancementResult, error) {
	return s.advance(ctx, fromID, toID, models.RuleGroupWinners, nil)
}

func (s *advancementService) AdvanceKnockoutWinner(ctx context.Context, fromID, toID uuid.UUID) (*AdvancementResult, error) {
	return s.advance(ctx, fromID, toID, models.RuleKnockoutWinner, nil)
}

func (s *advancementService) AdvanceManually(ctx context.Context, fromID, toID uuid.UUID, teamIDs []uuid.UUID) (*AdvancementResult, error) {
	if len(teamIDs) == 0 {
		return nil, newValidationError(KindInvalidInput, nil, "team_ids must not be empty")
	}
	if _, _, err := s.loadPair(ctx, fromID, toID); err != nil {
		return nil, err
	}
	return s.enroll(ctx, fromID, toID, models.RuleManualOnly, teamIDs, true)
}

func (s *advancementService) advance(ctx context.Context, fromID, toID uuid.UUID, ruleType models.RuleType, positions *int) (*AdvancementResult, error) {
	from, _, err := s.loadPair(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	rows, err := s.selectTeams(ctx, from, ruleType, positions)
	if err != nil {
		return nil, err
	}
	return s.enroll(ctx, fromID, toID, ruleType, standings.TeamIDs(rows), false)
}

func (s *advancementService) enroll(ctx context.Context, fromID, toID uuid.UUID, ruleType models.RuleType, teamIDs []uuid.UUID, manual bool) (*AdvancementResult, error) {
	added, err := s.registry.AddTeams(ctx, toID, teamIDs, manual)
	if err != nil {
		return nil, err
	}
	result := &AdvancementResult{
		FromCompetitionID: fromID,
		ToCompetitionID:   toID,
		RuleType:          ruleType,
		Advanced:          added.Added,
		Skipped:           added.Skipped,
	}
	s.logger.InfoContext(ctx, "teams advanced",
		slog.String("from_competition_id", fromID.String()),
		slog.String("to_competition_id", toID.String()),
		slog.String("rule_type", string(ruleType)),
		slog.Int("advanced", len(result.Advanced)))
	if len(result.Advanced) > 0 {
		s.publisher.PublishCompetition(toID, brackets.MessageTeamsAdvanced, result)
	}
	return result, nil
}

func (s *advancementService) loadPair(ctx context.Context, fromID, toID uuid.UUID) (*models.Competition, *models.Competition, error) {
	if fromID == toID {
		return nil, nil, newValidationError(KindInvalidRule, nil, "source and destination competition must differ")
	}
	from, err := s.competitionRepo.GetByID(ctx, nil, fromID)
	if err != nil {
		return nil, nil, fmt.Errorf("source: %w", handleRepositoryError(err))
	}
	to, err := s.competitionRepo.GetByID(ctx, nil, toID)
	if err != nil {
		return nil, nil, fmt.Errorf("destination: %w", handleRepositoryError(err))
	}
	return from, to, nil
}

// selectTeams picks the rows a rule advances, in table order.
func (s *advancementService) selectTeams(ctx context.Context, from *models.Competition, ruleType models.RuleType, positions *int) ([]models.StandingsRow, error) {
	if err := checkRuleSource(from, ruleType); err != nil {
		return nil, err
	}
	switch ruleType {
	case models.RuleTopPositions:
		if positions != nil && *positions <= 0 {
			return nil, newValidationError(KindInvalidRule, nil, "advancement_positions must be positive")
		}
		rows, err := s.standings.Competition(ctx, from.ID)
		if err != nil {
			return nil, err
		}
		n := 0
		if positions != nil {
			n = *positions
		}
		return standings.Top(rows, n), nil

	case models.RuleGroupWinners:
		tables, err := s.standings.Groups(ctx, from.ID)
		if err != nil {
			return nil, err
		}
		winners := make([]models.StandingsRow, 0, len(tables))
		for _, t := range tables {
			if len(t.Rows) > 0 {
				winners = append(winners, t.Rows[0])
			}
		}
		if len(winners) == 0 {
			return nil, newValidationError(KindEmptyStandings, ErrEmptyStandings, "competition %s has no group tables", from.Name)
		}
		return winners, nil

	case models.RuleKnockoutWinner:
		rows, err := s.standings.Competition(ctx, from.ID)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, newValidationError(KindEmptyStandings, ErrEmptyStandings, "competition %s has no standings", from.Name)
		}
		return rows[:1], nil

	case models.RuleManualOnly:
		return nil, newValidationError(KindInvalidRule, nil, "manual_only rules need an explicit team list")

	default:
		return nil, newValidationError(KindInvalidRule, models.ErrInvalidRuleType, "unknown rule type %q", ruleType)
	}
}

func checkRuleSource(from *models.Competition, ruleType models.RuleType) error {
	switch ruleType {
	case models.RuleGroupWinners:
		if from.Format != models.FormatGroupKnockout {
			return newValidationError(KindInvalidRule, nil, "group_winners needs a group_knockout source, %s is %s", from.Name, from.Format)
		}
	case models.RuleKnockoutWinner:
		if from.Format != models.FormatKnockout && from.Format != models.FormatGroupKnockout {
			return newValidationError(KindInvalidRule, nil, "knockout_winner needs a knockout source, %s is %s", from.Name, from.Format)
		}
	}
	return nil
}

func (s *advancementService) ApplyRules(ctx context.Context, fromID uuid.UUID) ([]RuleOutcome, error) {
	if _, err := s.competitionRepo.GetByID(ctx, nil, fromID); err != nil {
		return nil, handleRepositoryError(err)
	}
	rules, err := s.ruleRepo.ListAutoApply(ctx, &fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to list advancement rules of competition %s: %w", fromID, err)
	}
	return s.applyAll(ctx, rules), nil
}

func (s *advancementService) ApplyCompletedRules(ctx context.Context) ([]RuleOutcome, error) {
	rules, err := s.ruleRepo.ListAutoApply(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto advancement rules: %w", err)
	}

	completed := map[uuid.UUID]bool{}
	var due []models.AdvancementRule
	for _, rule := range rules {
		done, ok := completed[rule.FromCompetitionID]
		if !ok {
			c, err := s.competitionRepo.GetByID(ctx, nil, rule.FromCompetitionID)
			if err != nil {
				s.logger.WarnContext(ctx, "skipping rules of unreadable competition",
					slog.String("competition_id", rule.FromCompetitionID.String()), slog.Any("error", err))
				completed[rule.FromCompetitionID] = false
				continue
			}
			done = c.Status == models.CompetitionCompleted
			completed[rule.FromCompetitionID] = done
		}
		if done {
			due = append(due, rule)
		}
	}
	return s.applyAll(ctx, due), nil
}

func (s *advancementService) applyAll(ctx context.Context, rules []models.AdvancementRule) []RuleOutcome {
	outcomes := make([]RuleOutcome, 0, len(rules))
	for _, rule := range rules {
		outcomes = append(outcomes, s.applyRule(ctx, rule))
	}
	return outcomes
}

func (s *advancementService) applyRule(ctx context.Context, rule models.AdvancementRule) RuleOutcome {
	outcome := RuleOutcome{
		RuleID:            rule.ID,
		FromCompetitionID: rule.FromCompetitionID,
		ToCompetitionID:   rule.ToCompetitionID,
		RuleType:          rule.RuleType,
	}
	if rule.ToCompetitionID == nil {
		outcome.Status = OutcomeSkipped
		outcome.Message = "rule has no destination competition"
		return outcome
	}
	if rule.RuleType == models.RuleManualOnly {
		outcome.Status = OutcomeSkipped
		outcome.Message = "manual_only rules are applied by an administrator"
		return outcome
	}

	result, err := s.advance(ctx, rule.FromCompetitionID, *rule.ToCompetitionID, rule.RuleType, rule.AdvancementPositions)
	if err != nil {
		s.logger.WarnContext(ctx, "advancement rule failed",
			slog.String("rule_id", rule.ID.String()), slog.Any("error", err))
		outcome.Status = OutcomeError
		outcome.Message = err.Error()
		return outcome
	}
	outcome.Status = OutcomeSuccess
	outcome.Advanced = len(result.Advanced)
	outcome.Message = fmt.Sprintf("%d advanced, %d already enrolled", len(result.Advanced), len(result.Skipped))
	return outcome
}

func (s *advancementService) EligibleTeams(ctx context.Context, fromID, toID uuid.UUID) ([]models.StandingsRow, error) {
	from, _, err := s.loadPair(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	rules, err := s.ruleRepo.ListByCompetition(ctx, fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to list advancement rules: %w", err)
	}
	for _, rule := range rules {
		if rule.ToCompetitionID != nil && *rule.ToCompetitionID == toID {
			if rule.RuleType == models.RuleManualOnly {
				return []models.StandingsRow{}, nil
			}
			return s.eligible(ctx, from, rule, &toID)
		}
	}
	return nil, fmt.Errorf("%w: no rule from %s to %s", ErrRuleNotFound, fromID, toID)
}

// eligible lists the rows a rule would advance, minus teams already in the destination.
func (s *advancementService) eligible(ctx context.Context, from *models.Competition, rule models.AdvancementRule, toID *uuid.UUID) ([]models.StandingsRow, error) {
	rows, err := s.selectTeams(ctx, from, rule.RuleType, rule.AdvancementPositions)
	if err != nil {
		return nil, err
	}
	if toID == nil {
		return rows, nil
	}
	members, err := s.memberRepo.ListByCompetition(ctx, nil, *toID)
	if err != nil {
		return nil, fmt.Errorf("failed to list destination teams: %w", err)
	}
	enrolled := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		enrolled[m.TeamID] = true
	}
	out := make([]models.StandingsRow, 0, len(rows))
	for _, r := range rows {
		if !enrolled[r.TeamID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *advancementService) Summary(ctx context.Context, fromID uuid.UUID, toID *uuid.UUID) (*AdvancementSummary, error) {
	from, err := s.competitionRepo.GetByID(ctx, nil, fromID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	rules, err := s.ruleRepo.ListByCompetition(ctx, fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to list advancement rules: %w", err)
	}

	summary := &AdvancementSummary{FromCompetitionID: fromID, Rules: []RuleSummary{}}
	for _, rule := range rules {
		if toID != nil && (rule.ToCompetitionID == nil || *rule.ToCompetitionID != *toID) {
			continue
		}
		rs := RuleSummary{Rule: rule, EligibleTeams: []models.StandingsRow{}}
		if rule.RuleType != models.RuleManualOnly {
			rows, err := s.eligible(ctx, from, rule, rule.ToCompetitionID)
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					return nil, err
				}
				rs.Error = verr.Message
			}
			rs.EligibleCount = len(rows)
			if len(rows) > summaryPreviewSize {
				rows = rows[:summaryPreviewSize]
			}
			if rows != nil {
				rs.EligibleTeams = rows
			}
		}
		summary.Rules = append(summary.Rules, rs)
	}
	return summary, nil
}

func (s *advancementService) CreateRule(ctx context.Context, fromID uuid.UUID, input CreateRuleInput) (*models.AdvancementRule, error) {
	ruleType, err := models.ParseRuleType(input.RuleType)
	if err != nil {
		return nil, newValidationError(KindInvalidRule, err, "%v", err)
	}
	from, err := s.competitionRepo.GetByID(ctx, nil, fromID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if input.ToCompetitionID != nil {
		if _, _, err := s.loadPair(ctx, fromID, *input.ToCompetitionID); err != nil {
			return nil, err
		}
	}
	if err := checkRuleSource(from, ruleType); err != nil {
		return nil, err
	}
	positions := input.AdvancementPositions
	if ruleType != models.RuleTopPositions {
		positions = nil
	} else if positions != nil && *positions <= 0 {
		return nil, newValidationError(KindInvalidRule, nil, "advancement_positions must be positive")
	}

	rule := &models.AdvancementRule{
		FromCompetitionID:    fromID,
		ToCompetitionID:      input.ToCompetitionID,
		RuleType:             ruleType,
		AdvancementPositions: positions,
		AutoApply:            input.AutoApply,
	}
	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, handleRepositoryError(err)
	}
	return rule, nil
}

func (s *advancementService) ListRules(ctx context.Context, fromID uuid.UUID) ([]models.AdvancementRule, error) {
	if _, err := s.competitionRepo.GetByID(ctx, nil, fromID); err != nil {
		return nil, handleRepositoryError(err)
	}
	rules, err := s.ruleRepo.ListByCompetition(ctx, fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to list advancement rules: %w", err)
	}
	return rules, nil
}
