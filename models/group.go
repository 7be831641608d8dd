package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Group is a subdivision of a group_knockout competition.
type Group struct {
	ID            uuid.UUID `json:"id" db:"id"`
	CompetitionID uuid.UUID `json:"competition_id" db:"competition_id"`
	Name          string    `json:"name" db:"name"`
	Order         int       `json:"group_order" db:"group_order"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// GroupName returns "Group A", "Group B", ... for a zero-based index.
func GroupName(index int) string {
	if index < 26 {
		return fmt.Sprintf("Group %c", 'A'+index)
	}
	return fmt.Sprintf("Group %c%d", 'A'+index%26, index/26)
}
