package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &services.ValidationError{Kind: "capacity_exceeded", Message: "full"}, http.StatusUnprocessableEntity},
		{"wrapped validation", fmt.Errorf("add teams: %w", &services.ValidationError{Kind: "invalid_format"}), http.StatusUnprocessableEntity},
		{"competition not found", fmt.Errorf("get: %w", services.ErrCompetitionNotFound), http.StatusNotFound},
		{"match not found", services.ErrMatchNotFound, http.StatusNotFound},
		{"name conflict", services.ErrCompetitionNameConflict, http.StatusConflict},
		{"fixtures exist", services.ErrFixturesExist, http.StatusConflict},
		{"unresolved tie", services.ErrUnresolvedTie, http.StatusConflict},
		{"invalid transition", services.ErrInvalidMatchTransition, http.StatusConflict},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestValidationErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		&services.ValidationError{Kind: "capacity_exceeded", Message: "competition is full"})

	var body struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "capacity_exceeded", body.Error["kind"])
	assert.Equal(t, "competition is full", body.Error["message"])
}

type stubMatchService struct {
	services.MatchService
	started []uuid.UUID
	err     error
}

func (s *stubMatchService) Start(_ context.Context, id uuid.UUID) (*models.Match, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.started = append(s.started, id)
	return &models.Match{ID: id, Status: models.MatchLive}, nil
}

func matchRouter(ms services.MatchService) http.Handler {
	h := NewMatchHandler(ms)
	r := chi.NewRouter()
	r.Post("/matches/{matchID}/start", h.Start)
	return r
}

func TestMatchHandlerStart(t *testing.T) {
	ms := &stubMatchService{}
	id := uuid.New()

	rec := httptest.NewRecorder()
	matchRouter(ms).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/matches/"+id.String()+"/start", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, ms.started)

	var body struct {
		Match models.Match `json:"match"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.MatchLive, body.Match.Status)
}

func TestMatchHandlerStartErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	matchRouter(&stubMatchService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/matches/not-a-uuid/start", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	ms := &stubMatchService{err: fmt.Errorf("start: %w", services.ErrInvalidMatchTransition)}
	matchRouter(ms).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/matches/"+uuid.NewString()+"/start", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

type stubAdvancementService struct {
	services.AdvancementService
	calls     []string
	positions *int
}

func (s *stubAdvancementService) AdvanceTopPositions(_ context.Context, from, to uuid.UUID, n *int) (*services.AdvancementResult, error) {
	s.calls = append(s.calls, "top")
	s.positions = n
	return &services.AdvancementResult{FromCompetitionID: from, ToCompetitionID: to, RuleType: models.RuleTopPositions}, nil
}

func (s *stubAdvancementService) AdvanceGroupWinners(_ context.Context, from, to uuid.UUID) (*services.AdvancementResult, error) {
	s.calls = append(s.calls, "group")
	return &services.AdvancementResult{FromCompetitionID: from, ToCompetitionID: to, RuleType: models.RuleGroupWinners}, nil
}

func (s *stubAdvancementService) AdvanceKnockoutWinner(_ context.Context, from, to uuid.UUID) (*services.AdvancementResult, error) {
	s.calls = append(s.calls, "knockout")
	return &services.AdvancementResult{FromCompetitionID: from, ToCompetitionID: to, RuleType: models.RuleKnockoutWinner}, nil
}

func TestAdvancementHandlerAdvanceDispatch(t *testing.T) {
	as := &stubAdvancementService{}
	h := NewAdvancementHandler(as)
	r := chi.NewRouter()
	r.Post("/competitions/{competitionID}/advance-to/{toID}", h.Advance)

	from, to := uuid.New(), uuid.New()
	path := "/competitions/" + from.String() + "/advance-to/" + to.String()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty body defaults to top positions", "", http.StatusOK},
		{"top positions with count", `{"positions": 2}`, http.StatusOK},
		{"group winners", `{"rule_type": "group_winners"}`, http.StatusOK},
		{"knockout winner", `{"rule_type": "knockout_winner"}`, http.StatusOK},
		{"manual only is rejected", `{"rule_type": "manual_only"}`, http.StatusBadRequest},
		{"unknown rule type", `{"rule_type": "coin_toss"}`, http.StatusBadRequest},
		{"unknown field", `{"teams": 2}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, []string{"top", "top", "group", "knockout"}, as.calls)
	require.NotNil(t, as.positions)
	assert.Equal(t, 2, *as.positions)
}

func TestAdvancementHandlerBadDestination(t *testing.T) {
	h := NewAdvancementHandler(&stubAdvancementService{})
	r := chi.NewRouter()
	r.Post("/competitions/{competitionID}/advance-to/{toID}", h.Advance)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/competitions/"+uuid.NewString()+"/advance-to/xyz", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
