package brackets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/football-league/models"
	"github.com/google/uuid"
)

var (
	ErrNotEnoughTeams    = errors.New("not enough teams to generate fixtures")
	ErrInvalidLegs       = errors.New("legs must be 1 or 2")
	ErrInvalidGroupCount = errors.New("number of groups must be positive")
	ErrUnsupportedFormat = errors.New("unsupported competition format")
	ErrInvalidLegPolicy  = errors.New("unknown leg policy")
	ErrGroupsUnderfilled = errors.New("every group needs at least 2 teams")
)

const (
	DefaultDaysBetweenMatches = 7
	DefaultDaysBetweenRounds  = 14
	DefaultNumGroups          = 4
)

// LegPolicy decides how the second leg of a round robin is built.
type LegPolicy string

const (
	// LegReverseVenues plays the second leg with home and away swapped.
	LegReverseVenues LegPolicy = "reverse_venues"
	// LegRepeat replays the first leg pairings unchanged.
	LegRepeat LegPolicy = "repeat"
)

func ParseLegPolicy(s string) (LegPolicy, error) {
	switch p := LegPolicy(s); p {
	case "":
		return LegReverseVenues, nil
	case LegReverseVenues, LegRepeat:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLegPolicy, s)
	}
}

type GenerateBracketParams struct {
	Competition        *models.Competition
	TeamIDs            []uuid.UUID // в порядке посева
	StartDate          time.Time
	DaysBetweenMatches int
	DaysBetweenRounds  int
	NumGroups          int
	LegPolicy          LegPolicy
}

func (p GenerateBracketParams) legs() int {
	if p.Competition == nil || p.Competition.Legs == 0 {
		return 1
	}
	return p.Competition.Legs
}

func (p GenerateBracketParams) matchInterval() time.Duration {
	days := p.DaysBetweenMatches
	if days <= 0 {
		days = DefaultDaysBetweenMatches
	}
	return time.Duration(days) * 24 * time.Hour
}

func (p GenerateBracketParams) roundInterval() time.Duration {
	days := p.DaysBetweenRounds
	if days <= 0 {
		days = DefaultDaysBetweenRounds
	}
	return time.Duration(days) * 24 * time.Hour
}

// BracketMatch is a fixture produced by a generator, not yet persisted.
type BracketMatch struct {
	UID          string
	Round        int // matchday for round robin, round order for knockout
	OrderInRound int
	Leg          int

	HomeTeamID uuid.UUID
	AwayTeamID uuid.UUID
	MatchDate  time.Time

	// Индекс группы в Bracket.Groups, nil вне группового этапа
	GroupIndex *int

	// Provisional matches hold carried-forward teams until the previous round is resolved.
	Provisional bool
}

type BracketRound struct {
	Order             int
	Name              string
	MatchesPerPairing int
	Status            models.RoundStatus
	// ByeTeamID advances to the next round without playing.
	ByeTeamID *uuid.UUID
}

type BracketGroup struct {
	Name    string
	Order   int
	TeamIDs []uuid.UUID
}

// Bracket is the full output of a generator.
type Bracket struct {
	Matches []*BracketMatch
	Rounds  []*BracketRound
	Groups  []*BracketGroup
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Bracket, error)

	GetName() string
}

// NewGenerator returns the generator for a competition format.
func NewGenerator(format models.CompetitionFormat, shuffler *Shuffler) (BracketGenerator, error) {
	switch format {
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	case models.FormatKnockout:
		return NewKnockoutGenerator(shuffler), nil
	case models.FormatGroupKnockout:
		return NewGroupKnockoutGenerator(shuffler), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func validateLegs(legs int) error {
	if legs != 1 && legs != 2 {
		return fmt.Errorf("%w (got %d)", ErrInvalidLegs, legs)
	}
	return nil
}
