package handlers

import (
	"net/http"

	"github.com/Dosada05/football-league/services"
)

type FixtureHandler struct {
	fixtureService services.FixtureService
}

func NewFixtureHandler(fs services.FixtureService) *FixtureHandler {
	return &FixtureHandler{fixtureService: fs}
}

type seedKnockoutRequest struct {
	QualifiersPerGroup int `json:"qualifiers_per_group"`
}

// Generate godoc
// @Summary Сгенерировать расписание
// @Description Формат берется из соревнования: round_robin, knockout или group_knockout.
// @Tags fixtures
// @Accept json
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param input body services.GenerateFixturesInput false "Generation options"
// @Success 201 {object} services.FixturesResult
// @Failure 409 {object} map[string]string "Расписание уже создано"
// @Failure 422 {object} map[string]interface{} "not_enough_teams"
// @Security BearerAuth
// @Router /competitions/{competitionID}/generate-fixtures [post]
func (h *FixtureHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.GenerateFixturesInput
	if err := readOptionalJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.fixtureService.Generate(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Schedule godoc
// @Summary Расписание матчей
// @Tags fixtures
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param group_id query string false "Group ID"
// @Param knockout_round_id query string false "Knockout round ID"
// @Success 200 {object} map[string]interface{}
// @Router /competitions/{competitionID}/fixtures [get]
func (h *FixtureHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	groupID, err := uuidQuery(r, "group_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundID, err := uuidQuery(r, "knockout_round_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.fixtureService.Schedule(r.Context(), id, groupID, roundID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Reschedule godoc
// @Summary Перенести несыгранные матчи
// @Tags fixtures
// @Accept json
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param input body services.RescheduleInput true "New calendar"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /competitions/{competitionID}/reschedule [post]
func (h *FixtureHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RescheduleInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	updated, err := h.fixtureService.Reschedule(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rescheduled": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Rounds godoc
// @Summary Раунды плей-офф
// @Tags fixtures
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Success 200 {object} map[string]interface{}
// @Router /competitions/{competitionID}/knockout/rounds [get]
func (h *FixtureHandler) Rounds(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rounds, err := h.fixtureService.Rounds(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rounds": rounds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SeedKnockout godoc
// @Summary Посев плей-офф по итогам групп
// @Tags fixtures
// @Accept json
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param input body seedKnockoutRequest false "Qualifiers per group (default 1)"
// @Success 201 {object} services.FixturesResult
// @Failure 409 {object} map[string]string "Групповой этап не завершен / плей-офф уже сформирован"
// @Security BearerAuth
// @Router /competitions/{competitionID}/knockout/seed [post]
func (h *FixtureHandler) SeedKnockout(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input seedKnockoutRequest
	if err := readOptionalJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.fixtureService.SeedKnockoutStage(r.Context(), id, input.QualifiersPerGroup)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResolveRound godoc
// @Summary Подвести итог раунда плей-офф
// @Tags fixtures
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param roundOrder path int true "Round order"
// @Success 200 {object} services.RoundResolution
// @Failure 409 {object} map[string]string "Раунд не завершен / ничья по сумме"
// @Security BearerAuth
// @Router /competitions/{competitionID}/knockout/rounds/{roundOrder}/resolve [post]
func (h *FixtureHandler) ResolveRound(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	order, err := getIntFromURL(r, "roundOrder")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.fixtureService.ResolveKnockoutRound(r.Context(), id, order)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
