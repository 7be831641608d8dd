package models

import "errors"

// Ошибки разбора значений перечислений на границе системы.
var (
	ErrInvalidFormat            = errors.New("invalid competition format")
	ErrInvalidCompetitionStatus = errors.New("invalid competition status")
	ErrInvalidMatchStatus       = errors.New("invalid match status")
	ErrInvalidRuleType          = errors.New("invalid advancement rule type")
	ErrInvalidRoundStatus       = errors.New("invalid knockout round status")
)
