package brackets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket creates a league schedule with the circle method.
// Every pair of teams meets once per leg; teams keep their seeding order.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Bracket, error) {
	if len(params.TeamIDs) < 2 {
		return nil, fmt.Errorf("RoundRobinGenerator: %w (found %d, min 2 required)", ErrNotEnoughTeams, len(params.TeamIDs))
	}
	legs := params.legs()
	if err := validateLegs(legs); err != nil {
		return nil, err
	}
	policy, err := ParseLegPolicy(string(params.LegPolicy))
	if err != nil {
		return nil, err
	}

	matches := roundRobinMatches(params.TeamIDs, legs, policy, params.StartDate, params.matchInterval(), nil)
	return &Bracket{Matches: matches}, nil
}

// roundRobinMatches runs the circle method. The first team stays fixed and the
// rest rotate; each round zips the first half against the reversed second half.
// uuid.Nil stands for the bye and its pairings are dropped.
func roundRobinMatches(teamIDs []uuid.UUID, legs int, policy LegPolicy, start time.Time, interval time.Duration, groupIndex *int) []*BracketMatch {
	slots := make([]uuid.UUID, len(teamIDs))
	copy(slots, teamIDs)
	if len(slots)%2 == 1 {
		slots = append(slots, uuid.Nil)
	}
	n := len(slots)
	roundsPerLeg := n - 1

	type pairing struct{ home, away uuid.UUID }
	rounds := make([][]pairing, 0, roundsPerLeg)
	for r := 0; r < roundsPerLeg; r++ {
		var round []pairing
		for i := 0; i < n/2; i++ {
			home, away := slots[i], slots[n-1-i]
			if home == uuid.Nil || away == uuid.Nil {
				continue
			}
			round = append(round, pairing{home, away})
		}
		rounds = append(rounds, round)

		// вращение: последний элемент встает на позицию 1
		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}

	prefix := "RR"
	if groupIndex != nil {
		prefix = fmt.Sprintf("G%d", *groupIndex+1)
	}

	var matches []*BracketMatch
	for leg := 1; leg <= legs; leg++ {
		for r, round := range rounds {
			matchday := (leg-1)*roundsPerLeg + r
			date := start.Add(time.Duration(matchday) * interval)
			for i, p := range round {
				home, away := p.home, p.away
				if leg == 2 && policy == LegReverseVenues {
					home, away = away, home
				}
				matches = append(matches, &BracketMatch{
					UID:          fmt.Sprintf("%s_MD%dM%d", prefix, matchday+1, i+1),
					Round:        matchday + 1,
					OrderInRound: i + 1,
					Leg:          leg,
					HomeTeamID:   home,
					AwayTeamID:   away,
					MatchDate:    date,
					GroupIndex:   groupIndex,
				})
			}
		}
	}
	return matches
}
