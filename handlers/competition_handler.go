package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/services"
	"github.com/google/uuid"
)

type CompetitionHandler struct {
	competitionService services.CompetitionService
	standingsService   services.StandingsService
}

func NewCompetitionHandler(cs services.CompetitionService, ss services.StandingsService) *CompetitionHandler {
	return &CompetitionHandler{
		competitionService: cs,
		standingsService:   ss,
	}
}

type addTeamsRequest struct {
	TeamIDs []uuid.UUID `json:"team_ids"`
}

// Create godoc
// @Summary Создать соревнование
// @Tags competitions
// @Accept json
// @Produce json
// @Param input body services.CreateCompetitionInput true "Competition"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string "Имя уже занято в сезоне"
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /competitions [post]
func (h *CompetitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateCompetitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	competition, err := h.competitionService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Список соревнований сезона
// @Tags competitions
// @Produce json
// @Param season_id query string false "Season ID"
// @Param stage_level query string false "Stage level"
// @Param status query string false "draft | ongoing | completed"
// @Success 200 {object} map[string]interface{}
// @Router /competitions [get]
func (h *CompetitionHandler) List(w http.ResponseWriter, r *http.Request) {
	seasonID, err := uuidQuery(r, "season_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	competitions, err := h.competitionService.ListBySeason(r.Context(), services.ListCompetitionsInput{
		SeasonID:   seasonID,
		StageLevel: stringQuery(r, "stage_level"),
		Status:     stringQuery(r, "status"),
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"competitions": competitions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Соревнование с текущей таблицей
// @Tags competitions
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /competitions/{competitionID} [get]
func (h *CompetitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	competition, err := h.competitionService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	table, err := h.standingsService.Competition(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": competition, "standings": table}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Update godoc
// @Summary Обновить соревнование
// @Tags competitions
// @Accept json
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param input body services.UpdateCompetitionInput true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Формат нельзя менять после генерации матчей"
// @Security BearerAuth
// @Router /competitions/{competitionID} [patch]
func (h *CompetitionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateCompetitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	competition, err := h.competitionService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddTeams godoc
// @Summary Добавить команды в соревнование
// @Tags competitions
// @Accept json
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param input body addTeamsRequest true "Team IDs"
// @Success 200 {object} services.AddTeamsResult
// @Failure 422 {object} map[string]interface{} "capacity_exceeded"
// @Security BearerAuth
// @Router /competitions/{competitionID}/teams [post]
func (h *CompetitionHandler) AddTeams(w http.ResponseWriter, r *http.Request) {
	h.addTeams(w, r, false)
}

// AddTeamsManual godoc
// @Summary Добавить команды вручную
// @Tags competitions
// @Accept json
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param input body addTeamsRequest true "Team IDs"
// @Success 200 {object} services.AddTeamsResult
// @Security BearerAuth
// @Router /competitions/{competitionID}/teams/manual [post]
func (h *CompetitionHandler) AddTeamsManual(w http.ResponseWriter, r *http.Request) {
	h.addTeams(w, r, true)
}

func (h *CompetitionHandler) addTeams(w http.ResponseWriter, r *http.Request, manual bool) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input addTeamsRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(input.TeamIDs) == 0 {
		badRequestResponse(w, r, errors.New("team_ids must not be empty"))
		return
	}

	result, err := h.competitionService.AddTeams(r.Context(), id, input.TeamIDs, manual)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTeams godoc
// @Summary Участники соревнования
// @Tags competitions
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Success 200 {object} map[string]interface{}
// @Router /competitions/{competitionID}/teams [get]
func (h *CompetitionHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	members, err := h.competitionService.ListTeams(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if members == nil {
		members = []models.CompetitionTeam{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": members}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
