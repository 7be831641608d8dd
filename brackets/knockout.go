package brackets

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
)

type KnockoutGenerator struct {
	shuffler *Shuffler
}

// NewKnockoutGenerator returns a single elimination generator. A nil shuffler keeps seeding order.
func NewKnockoutGenerator(shuffler *Shuffler) BracketGenerator {
	return &KnockoutGenerator{shuffler: shuffler}
}

func (g *KnockoutGenerator) GetName() string {
	return "Knockout"
}

func (g *KnockoutGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Bracket, error) {
	n := len(params.TeamIDs)
	if n < 2 {
		return nil, fmt.Errorf("KnockoutGenerator: %w (found %d, min 2 required)", ErrNotEnoughTeams, n)
	}
	legs := params.legs()
	if err := validateLegs(legs); err != nil {
		return nil, err
	}

	entries := g.shuffler.Shuffle(params.TeamIDs)
	return PlanKnockout(KnockoutPlanParams{
		Entries:       entries,
		FirstRound:    1,
		Legs:          legs,
		StartDate:     params.StartDate,
		RoundInterval: params.roundInterval(),
		LegInterval:   params.matchInterval(),
	}), nil
}

type KnockoutPlanParams struct {
	Entries       []uuid.UUID // real teams entering the first planned round, in bracket order
	FirstRound    int
	Legs          int
	StartDate     time.Time
	RoundInterval time.Duration
	LegInterval   time.Duration
}

// PlanKnockout pairs adjacent entries round after round until a single entry
// remains. Only the first planned round holds real pairings; later rounds carry
// the home team of every pairing forward as a provisional slot holder. An odd
// entry out gets a bye.
func PlanKnockout(p KnockoutPlanParams) *Bracket {
	legs := p.Legs
	if legs == 0 {
		legs = 1
	}
	current := make([]uuid.UUID, len(p.Entries))
	copy(current, p.Entries)

	bracket := &Bracket{}
	date := p.StartDate
	order := p.FirstRound
	for len(current) > 1 {
		round := &BracketRound{
			Order:             order,
			Name:              RoundName(NextPowerOfTwo(len(current)), order),
			MatchesPerPairing: legs,
			Status:            models.RoundPending,
		}
		if order == p.FirstRound {
			round.Status = models.RoundOngoing
		}
		provisional := order != p.FirstRound

		next := make([]uuid.UUID, 0, (len(current)+1)/2)
		for i := 0; i+1 < len(current); i += 2 {
			home, away := current[i], current[i+1]
			pos := i/2 + 1
			bracket.Matches = append(bracket.Matches, &BracketMatch{
				UID:          fmt.Sprintf("R%dM%dL1", order, pos),
				Round:        order,
				OrderInRound: pos,
				Leg:          1,
				HomeTeamID:   home,
				AwayTeamID:   away,
				MatchDate:    date,
				Provisional:  provisional,
			})
			if legs == 2 {
				bracket.Matches = append(bracket.Matches, &BracketMatch{
					UID:          fmt.Sprintf("R%dM%dL2", order, pos),
					Round:        order,
					OrderInRound: pos,
					Leg:          2,
					HomeTeamID:   away,
					AwayTeamID:   home,
					MatchDate:    date.Add(p.LegInterval),
					Provisional:  provisional,
				})
			}
			next = append(next, home)
		}
		if len(current)%2 == 1 {
			bye := current[len(current)-1]
			round.ByeTeamID = &bye
			next = append(next, bye)
		}

		bracket.Rounds = append(bracket.Rounds, round)
		current = next
		date = date.Add(p.RoundInterval)
		order++
	}
	return bracket
}

// SeedOrder arranges qualifiers so that adjacent pairing meets first against
// last, second against second to last, and so on.
func SeedOrder(qualifiers []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(qualifiers))
	for i, j := 0, len(qualifiers)-1; i <= j; i, j = i+1, j-1 {
		out = append(out, qualifiers[i])
		if i != j {
			out = append(out, qualifiers[j])
		}
	}
	return out
}

// RoundName names a round after its bracket size. seq is the 1-based round
// order within the competition, so re-planned rounds keep their numbering.
func RoundName(bracketSize, seq int) string {
	switch {
	case bracketSize <= 2:
		return "Final"
	case bracketSize == 4:
		return "Semi-Finals"
	case bracketSize == 8:
		return "Quarter-Finals"
	case bracketSize <= 64:
		return fmt.Sprintf("Round of %d", bracketSize)
	case bracketSize == 128:
		return "Preliminary Round"
	default:
		return fmt.Sprintf("Qualifying Round %d", seq)
	}
}

// NextPowerOfTwo returns the smallest power of two >= n (and >= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
