package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/football-league/repositories"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	ErrValidationFailed = errors.New("validation failed")

	// Ошибки, специфичные для сущностей
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrGroupNotFound       = errors.New("group not found")
	ErrRoundNotFound       = errors.New("knockout round not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrRuleNotFound        = errors.New("advancement rule not found")

	// Конфликты
	ErrCompetitionNameConflict = errors.New("competition name already exists in this season")
	ErrTeamNameConflict        = errors.New("team name already exists")
	ErrRuleConflict            = errors.New("competition already has an advancement rule of this type")
	ErrFixturesExist           = errors.New("fixtures already generated for this competition")
	ErrFormatLocked            = errors.New("competition format cannot change once fixtures exist")
	ErrRoundAlreadyResolved    = errors.New("knockout round already resolved")
	ErrStageAlreadySeeded      = errors.New("knockout stage already seeded")

	// Нарушения бизнес-правил
	ErrCapacityExceeded       = errors.New("competition capacity exceeded")
	ErrInvalidMatchTransition = errors.New("invalid match status transition")
	ErrUnresolvedTie          = errors.New("pairing is level on aggregate and has no winner")
	ErrRoundIncomplete        = errors.New("not every match of the round is finished")
	ErrRoundNotReady          = errors.New("previous round is not resolved yet")
	ErrGroupStageIncomplete   = errors.New("group stage is not finished")
	ErrEmptyStandings         = errors.New("standings are empty")
)

// Validation kinds reported to API clients.
const (
	KindNotEnoughTeams   = "not_enough_teams"
	KindCapacityExceeded = "capacity_exceeded"
	KindInvalidInput     = "invalid_input"
	KindInvalidFormat    = "invalid_format"
	KindInvalidRule      = "invalid_rule"
	KindEmptyStandings   = "empty_standings"
)

// ValidationError is a rejected operation with a machine-readable kind.
// It matches ErrValidationFailed and, when set, its cause.
type ValidationError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	cause   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrValidationFailed}
	}
	return []error{ErrValidationFailed, e.cause}
}

func newValidationError(kind string, cause error, format string, args ...interface{}) error {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисного слоя.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrCompetitionNotFound):
		return ErrCompetitionNotFound
	case errors.Is(err, repositories.ErrCompetitionNameConflict):
		return ErrCompetitionNameConflict
	case errors.Is(err, repositories.ErrTeamNameConflict):
		return ErrTeamNameConflict
	case errors.Is(err, repositories.ErrTeamNotFound),
		errors.Is(err, repositories.ErrMatchInvalidTeam):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrGroupNotFound):
		return ErrGroupNotFound
	case errors.Is(err, repositories.ErrRoundNotFound):
		return ErrRoundNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrRuleConflict):
		return ErrRuleConflict
	case errors.Is(err, repositories.ErrInvalidReference):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}
