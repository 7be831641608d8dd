package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/repositories"
	"github.com/google/uuid"
)

// memStore backs every fake repository with shared in-memory tables.
type memStore struct {
	mu           sync.Mutex
	competitions map[uuid.UUID]models.Competition
	teams        map[uuid.UUID]models.Team
	members      []models.CompetitionTeam
	groups       []models.Group
	rounds       []models.KnockoutRound
	matches      []models.Match
	rules        []models.AdvancementRule
}

func newMemStore() *memStore {
	return &memStore{
		competitions: map[uuid.UUID]models.Competition{},
		teams:        map[uuid.UUID]models.Team{},
	}
}

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context, exec repositories.SQLExecutor) error) error {
	return fn(ctx, nil)
}

type publishedMessage struct {
	CompetitionID uuid.UUID
	Type          string
	Payload       interface{}
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *fakePublisher) PublishCompetition(competitionID uuid.UUID, msgType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{competitionID, msgType, payload})
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	for i, m := range p.messages {
		out[i] = m.Type
	}
	return out
}

// --- competitions ---

type fakeCompetitionRepo struct{ s *memStore }

func (r fakeCompetitionRepo) Create(ctx context.Context, c *models.Competition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.competitions {
		if other.SeasonID == c.SeasonID && other.Name == c.Name {
			return repositories.ErrCompetitionNameConflict
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.s.competitions[c.ID] = *c
	return nil
}

func (r fakeCompetitionRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.competitions[id]
	if !ok {
		return nil, repositories.ErrCompetitionNotFound
	}
	return &c, nil
}

func (r fakeCompetitionRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Competition, error) {
	return r.GetByID(ctx, exec, id)
}

func (r fakeCompetitionRepo) List(ctx context.Context, filter repositories.ListCompetitionsFilter) ([]models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Competition{}
	for _, c := range r.s.competitions {
		if filter.SeasonID != nil && c.SeasonID != *filter.SeasonID {
			continue
		}
		if filter.StageLevel != nil && c.StageLevel != *filter.StageLevel {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeCompetitionRepo) Update(ctx context.Context, exec repositories.SQLExecutor, c *models.Competition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.competitions[c.ID]; !ok {
		return repositories.ErrCompetitionNotFound
	}
	r.s.competitions[c.ID] = *c
	return nil
}

func (r fakeCompetitionRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, status models.CompetitionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.competitions[id]
	if !ok {
		return repositories.ErrCompetitionNotFound
	}
	c.Status = status
	r.s.competitions[id] = c
	return nil
}

// --- teams ---

type fakeTeamRepo struct{ s *memStore }

func (r fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.teams {
		if t.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	r.s.teams[team.ID] = *team
	return nil
}

func (r fakeTeamRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return &t, nil
}

func (r fakeTeamRepo) GetByIDs(ctx context.Context, exec repositories.SQLExecutor, ids []uuid.UUID) ([]models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Team{}
	for _, id := range ids {
		if t, ok := r.s.teams[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r fakeTeamRepo) List(ctx context.Context, search string) ([]models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Team{}
	for _, t := range r.s.teams {
		if strings.Contains(strings.ToLower(t.Name), strings.ToLower(search)) {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- competition teams ---

type fakeMemberRepo struct{ s *memStore }

func (r fakeMemberRepo) Create(ctx context.Context, exec repositories.SQLExecutor, ct *models.CompetitionTeam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.CompetitionID == ct.CompetitionID && m.TeamID == ct.TeamID {
			return repositories.ErrCompetitionTeamExists
		}
	}
	if ct.ID == uuid.Nil {
		ct.ID = uuid.New()
	}
	r.s.members = append(r.s.members, *ct)
	return nil
}

func (r fakeMemberRepo) list(match func(m models.CompetitionTeam) bool) []models.CompetitionTeam {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.CompetitionTeam{}
	for _, m := range r.s.members {
		if match(m) {
			m.TeamName = r.s.teams[m.TeamID].Name
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SeededPosition < out[j].SeededPosition })
	return out
}

func (r fakeMemberRepo) ListByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID uuid.UUID) ([]models.CompetitionTeam, error) {
	return r.list(func(m models.CompetitionTeam) bool { return m.CompetitionID == competitionID }), nil
}

func (r fakeMemberRepo) ListByGroup(ctx context.Context, exec repositories.SQLExecutor, groupID uuid.UUID) ([]models.CompetitionTeam, error) {
	return r.list(func(m models.CompetitionTeam) bool { return m.GroupID != nil && *m.GroupID == groupID }), nil
}

func (r fakeMemberRepo) CountByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID uuid.UUID) (int, error) {
	members, _ := r.ListByCompetition(ctx, exec, competitionID)
	return len(members), nil
}

func (r fakeMemberRepo) SetGroup(ctx context.Context, exec repositories.SQLExecutor, competitionID, teamID uuid.UUID, groupID *uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.members {
		if r.s.members[i].CompetitionID == competitionID && r.s.members[i].TeamID == teamID {
			r.s.members[i].GroupID = groupID
			return nil
		}
	}
	return repositories.ErrCompetitionTeamNotFound
}

// --- groups ---

type fakeGroupRepo struct{ s *memStore }

func (r fakeGroupRepo) Create(ctx context.Context, exec repositories.SQLExecutor, g *models.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	r.s.groups = append(r.s.groups, *g)
	return nil
}

func (r fakeGroupRepo) ListByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID uuid.UUID) ([]models.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Group{}
	for _, g := range r.s.groups {
		if g.CompetitionID == competitionID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// --- knockout rounds ---

type fakeRoundRepo struct{ s *memStore }

func (r fakeRoundRepo) Create(ctx context.Context, exec repositories.SQLExecutor, round *models.KnockoutRound) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.rounds {
		if other.CompetitionID == round.CompetitionID && other.RoundOrder == round.RoundOrder {
			return repositories.ErrRoundOrderConflict
		}
	}
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	r.s.rounds = append(r.s.rounds, *round)
	return nil
}

func (r fakeRoundRepo) ListByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID uuid.UUID) ([]models.KnockoutRound, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.KnockoutRound{}
	for _, kr := range r.s.rounds {
		if kr.CompetitionID == competitionID {
			out = append(out, kr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundOrder < out[j].RoundOrder })
	return out, nil
}

func (r fakeRoundRepo) GetByOrder(ctx context.Context, exec repositories.SQLExecutor, competitionID uuid.UUID, order int) (*models.KnockoutRound, error) {
	rounds, _ := r.ListByCompetition(ctx, exec, competitionID)
	for _, kr := range rounds {
		if kr.RoundOrder == order {
			return &kr, nil
		}
	}
	return nil, repositories.ErrRoundNotFound
}

func (r fakeRoundRepo) Update(ctx context.Context, exec repositories.SQLExecutor, round *models.KnockoutRound) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.rounds {
		if r.s.rounds[i].ID == round.ID {
			r.s.rounds[i] = *round
			return nil
		}
	}
	return repositories.ErrRoundNotFound
}

func (r fakeRoundRepo) DeleteAfter(ctx context.Context, exec repositories.SQLExecutor, competitionID uuid.UUID, order int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.rounds[:0]
	for _, kr := range r.s.rounds {
		if kr.CompetitionID == competitionID && kr.RoundOrder > order {
			continue
		}
		kept = append(kept, kr)
	}
	r.s.rounds = kept
	return nil
}

// --- matches ---

type fakeMatchRepo struct{ s *memStore }

func (r fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[m.HomeTeamID]; !ok {
		return repositories.ErrMatchInvalidTeam
	}
	if _, ok := r.s.teams[m.AwayTeamID]; !ok {
		return repositories.ErrMatchInvalidTeam
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Leg == 0 {
		m.Leg = 1
	}
	r.s.matches = append(r.s.matches, *m)
	return nil
}

func (r fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.matches {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r fakeMatchRepo) List(ctx context.Context, exec repositories.SQLExecutor, filter models.MatchFilter) ([]models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Match{}
	for _, m := range r.s.matches {
		if filter.CompetitionID != nil && (m.CompetitionID == nil || *m.CompetitionID != *filter.CompetitionID) {
			continue
		}
		if filter.GroupID != nil && (m.GroupID == nil || *m.GroupID != *filter.GroupID) {
			continue
		}
		if filter.KnockoutRoundID != nil && (m.KnockoutRoundID == nil || *m.KnockoutRoundID != *filter.KnockoutRoundID) {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].MatchDate.Equal(out[j].MatchDate) {
			return out[i].MatchDate.Before(out[j].MatchDate)
		}
		oi, oj := orderOf(out[i]), orderOf(out[j])
		if oi != oj {
			return oi < oj
		}
		return out[i].Leg < out[j].Leg
	})
	return out, nil
}

func orderOf(m models.Match) int {
	if m.OrderInRound == nil {
		return 1 << 30
	}
	return *m.OrderInRound
}

func (r fakeMatchRepo) CountByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID uuid.UUID) (int, error) {
	matches, _ := r.List(ctx, exec, models.MatchFilter{CompetitionID: &competitionID})
	return len(matches), nil
}

func (r fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.matches {
		if r.s.matches[i].ID == m.ID {
			r.s.matches[i].Status = m.Status
			r.s.matches[i].HomeScore = m.HomeScore
			r.s.matches[i].AwayScore = m.AwayScore
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (r fakeMatchRepo) UpdateDate(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, date time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.matches {
		if r.s.matches[i].ID == id {
			r.s.matches[i].MatchDate = date
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (r fakeMatchRepo) DeleteByRounds(ctx context.Context, exec repositories.SQLExecutor, roundIDs []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	drop := make(map[uuid.UUID]bool, len(roundIDs))
	for _, id := range roundIDs {
		drop[id] = true
	}
	kept := r.s.matches[:0]
	for _, m := range r.s.matches {
		if m.KnockoutRoundID != nil && drop[*m.KnockoutRoundID] {
			continue
		}
		kept = append(kept, m)
	}
	r.s.matches = kept
	return nil
}

// --- advancement rules ---

type fakeRuleRepo struct{ s *memStore }

func (r fakeRuleRepo) Create(ctx context.Context, rule *models.AdvancementRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.rules {
		if other.FromCompetitionID == rule.FromCompetitionID && other.RuleType == rule.RuleType {
			return repositories.ErrRuleConflict
		}
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	r.s.rules = append(r.s.rules, *rule)
	return nil
}

func (r fakeRuleRepo) ListByCompetition(ctx context.Context, fromCompetitionID uuid.UUID) ([]models.AdvancementRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.AdvancementRule{}
	for _, rule := range r.s.rules {
		if rule.FromCompetitionID == fromCompetitionID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r fakeRuleRepo) ListAutoApply(ctx context.Context, fromCompetitionID *uuid.UUID) ([]models.AdvancementRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.AdvancementRule{}
	for _, rule := range r.s.rules {
		if !rule.AutoApply {
			continue
		}
		if fromCompetitionID != nil && rule.FromCompetitionID != *fromCompetitionID {
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

// --- wiring ---

type testEnv struct {
	store        *memStore
	publisher    *fakePublisher
	competitions CompetitionService
	standings    StandingsService
	fixtures     FixtureService
	advancement  AdvancementService
	matches      MatchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := newMemStore()
	pub := &fakePublisher{}

	competitionRepo := fakeCompetitionRepo{s}
	memberRepo := fakeMemberRepo{s}
	teamRepo := fakeTeamRepo{s}
	groupRepo := fakeGroupRepo{s}
	roundRepo := fakeRoundRepo{s}
	matchRepo := fakeMatchRepo{s}
	ruleRepo := fakeRuleRepo{s}

	competitions := NewCompetitionService(fakeTx{}, competitionRepo, memberRepo, teamRepo, matchRepo, nil)
	standingsService := NewStandingsService(competitionRepo, memberRepo, groupRepo, matchRepo, nil, nil)
	fixtures := NewFixtureService(FixtureServiceDeps{
		Tx:              fakeTx{},
		CompetitionRepo: competitionRepo,
		MemberRepo:      memberRepo,
		GroupRepo:       groupRepo,
		RoundRepo:       roundRepo,
		MatchRepo:       matchRepo,
		Standings:       standingsService,
		Publisher:       pub,
	})
	return &testEnv{
		store:        s,
		publisher:    pub,
		competitions: competitions,
		standings:    standingsService,
		fixtures:     fixtures,
		advancement:  NewAdvancementService(competitionRepo, memberRepo, ruleRepo, standingsService, competitions, pub, nil),
		matches:      NewMatchService(matchRepo, teamRepo, competitionRepo, standingsService, pub, nil),
	}
}

func (e *testEnv) addTeams(t *testing.T, names ...string) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, len(names))
	for i, name := range names {
		team := models.Team{ID: uuid.New(), Name: name}
		e.store.mu.Lock()
		e.store.teams[team.ID] = team
		e.store.mu.Unlock()
		ids[i] = team.ID
	}
	return ids
}

func (e *testEnv) createCompetition(t *testing.T, name, format string, maxTeams *int) *models.Competition {
	t.Helper()
	c, err := e.competitions.Create(context.Background(), CreateCompetitionInput{
		SeasonID: testSeason,
		Name:     name,
		Format:   format,
		MaxTeams: maxTeams,
	})
	if err != nil {
		t.Fatalf("create competition %s: %v", name, err)
	}
	return c
}

// play finishes the scheduled match between a and b with a scoring
// scoreA and b scoring scoreB, whichever side is at home.
func (e *testEnv) play(t *testing.T, a, b uuid.UUID, scoreA, scoreB int) {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	for i := range e.store.matches {
		m := &e.store.matches[i]
		if m.Status != models.MatchScheduled || m.Provisional {
			continue
		}
		switch {
		case m.HomeTeamID == a && m.AwayTeamID == b:
			m.HomeScore, m.AwayScore = scoreA, scoreB
		case m.HomeTeamID == b && m.AwayTeamID == a:
			m.HomeScore, m.AwayScore = scoreB, scoreA
		default:
			continue
		}
		m.Status = models.MatchFinished
		return
	}
	t.Fatalf("no scheduled match between %s and %s", a, b)
}

// result stores an already finished match of a competition.
func (e *testEnv) result(t *testing.T, competitionID, home, away uuid.UUID, homeScore, awayScore int) {
	t.Helper()
	cid := competitionID
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.matches = append(e.store.matches, models.Match{
		ID:            uuid.New(),
		HomeTeamID:    home,
		AwayTeamID:    away,
		CompetitionID: &cid,
		MatchDate:     time.Date(2025, 8, 1, 18, 0, 0, 0, time.UTC),
		Status:        models.MatchFinished,
		HomeScore:     homeScore,
		AwayScore:     awayScore,
		Leg:           1,
	})
}

// finishGroupMatches lets the home side win every scheduled group match 1-0.
func (e *testEnv) finishGroupMatches(t *testing.T) {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	for i := range e.store.matches {
		m := &e.store.matches[i]
		if m.GroupID != nil && m.Status == models.MatchScheduled {
			m.Status = models.MatchFinished
			m.HomeScore, m.AwayScore = 1, 0
		}
	}
}

var testSeason = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func intPtr(v int) *int { return &v }
