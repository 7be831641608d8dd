package handlers

import (
	"net/http"

	"github.com/Dosada05/football-league/services"
)

type StandingsHandler struct {
	standingsService services.StandingsService
}

func NewStandingsHandler(ss services.StandingsService) *StandingsHandler {
	return &StandingsHandler{standingsService: ss}
}

// Competition godoc
// @Summary Турнирная таблица
// @Tags standings
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /competitions/{competitionID}/standings [get]
func (h *StandingsHandler) Competition(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rows, err := h.standingsService.Competition(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": rows}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Groups godoc
// @Summary Таблицы групп
// @Tags standings
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Success 200 {object} map[string]interface{}
// @Router /competitions/{competitionID}/standings/groups [get]
func (h *StandingsHandler) Groups(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tables, err := h.standingsService.Groups(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": tables}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Archive godoc
// @Summary Сохранить таблицу в архив (R2)
// @Tags standings
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /competitions/{competitionID}/archive [post]
func (h *StandingsHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	key, err := h.standingsService.Archive(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"key": key, "archived": key != ""}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
