package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type RuleType string

const (
	RuleTopPositions   RuleType = "top_positions"
	RuleGroupWinners   RuleType = "group_winners"
	RuleKnockoutWinner RuleType = "knockout_winner"
	RuleManualOnly     RuleType = "manual_only"
)

func ParseRuleType(s string) (RuleType, error) {
	switch rt := RuleType(strings.ToLower(strings.TrimSpace(s))); rt {
	case RuleTopPositions, RuleGroupWinners, RuleKnockoutWinner, RuleManualOnly:
		return rt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRuleType, s)
	}
}

// AdvancementRule describes how teams move from one competition into the next.
type AdvancementRule struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	FromCompetitionID    uuid.UUID  `json:"from_competition_id" db:"from_competition_id"`
	ToCompetitionID      *uuid.UUID `json:"to_competition_id,omitempty" db:"to_competition_id"`
	RuleType             RuleType   `json:"rule_type" db:"rule_type"`
	AdvancementPositions *int       `json:"advancement_positions,omitempty" db:"advancement_positions"` // только для top_positions
	AutoApply            bool       `json:"auto_apply" db:"auto_apply"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
}
