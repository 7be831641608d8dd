package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
)

type GroupKnockoutGenerator struct {
	shuffler *Shuffler
}

func NewGroupKnockoutGenerator(shuffler *Shuffler) BracketGenerator {
	return &GroupKnockoutGenerator{shuffler: shuffler}
}

func (g *GroupKnockoutGenerator) GetName() string {
	return "GroupKnockout"
}

// GenerateBracket splits the teams into groups, schedules a round robin inside
// every group and appends one empty knockout round for the group winners.
func (g *GroupKnockoutGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Bracket, error) {
	n := len(params.TeamIDs)
	if n < 4 {
		return nil, fmt.Errorf("GroupKnockoutGenerator: %w (found %d, min 4 required)", ErrNotEnoughTeams, n)
	}
	numGroups := params.NumGroups
	if numGroups <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidGroupCount, numGroups)
	}
	if n < 2*numGroups {
		return nil, fmt.Errorf("%w: %d teams cannot fill %d groups", ErrGroupsUnderfilled, n, numGroups)
	}
	legs := params.legs()
	if err := validateLegs(legs); err != nil {
		return nil, err
	}
	policy, err := ParseLegPolicy(string(params.LegPolicy))
	if err != nil {
		return nil, err
	}

	shuffled := g.shuffler.Shuffle(params.TeamIDs)
	bracket := &Bracket{Groups: PartitionGroups(shuffled, numGroups)}

	for i, group := range bracket.Groups {
		idx := i
		bracket.Matches = append(bracket.Matches,
			roundRobinMatches(group.TeamIDs, legs, policy, params.StartDate, params.matchInterval(), &idx)...)
	}

	bracket.Rounds = append(bracket.Rounds, &BracketRound{
		Order:             1,
		Name:              RoundName(NextPowerOfTwo(max(numGroups, 2)), 1),
		MatchesPerPairing: legs,
		Status:            models.RoundPending,
	})
	return bracket, nil
}

// PartitionGroups cuts ids into numGroups contiguous chunks. The first
// len(ids)%numGroups groups take one extra team.
func PartitionGroups(ids []uuid.UUID, numGroups int) []*BracketGroup {
	base := len(ids) / numGroups
	extra := len(ids) % numGroups

	groups := make([]*BracketGroup, 0, numGroups)
	start := 0
	for i := 0; i < numGroups; i++ {
		size := base
		if i < extra {
			size++
		}
		members := make([]uuid.UUID, size)
		copy(members, ids[start:start+size])
		groups = append(groups, &BracketGroup{
			Name:    models.GroupName(i),
			Order:   i + 1,
			TeamIDs: members,
		})
		start += size
	}
	return groups
}
