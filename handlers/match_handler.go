package handlers

import (
	"net/http"

	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/services"
	"github.com/google/uuid"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// Schedule godoc
// @Summary Назначить матч вручную
// @Tags matches
// @Accept json
// @Produce json
// @Param input body services.ScheduleMatchInput true "Match"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /matches [post]
func (h *MatchHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var input services.ScheduleMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Schedule(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Список матчей
// @Tags matches
// @Produce json
// @Param competition_id query string false "Competition ID"
// @Param group_id query string false "Group ID"
// @Param knockout_round_id query string false "Knockout round ID"
// @Param status query string false "scheduled | live | finished | cancelled"
// @Success 200 {object} map[string]interface{}
// @Router /matches [get]
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	var input services.ListMatchesInput
	for name, dst := range map[string]**uuid.UUID{
		"competition_id":    &input.CompetitionID,
		"group_id":          &input.GroupID,
		"knockout_round_id": &input.RoundID,
	} {
		id, err := uuidQuery(r, name)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		*dst = id
	}
	input.Status = stringQuery(r, "status")

	matches, err := h.matchService.List(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Матч
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /matches/{matchID} [get]
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(id uuid.UUID) (*models.Match, error) {
		return h.matchService.Get(r.Context(), id)
	})
}

// Start godoc
// @Summary Начать матч
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Недопустимый переход статуса"
// @Security BearerAuth
// @Router /matches/{matchID}/start [post]
func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(id uuid.UUID) (*models.Match, error) {
		return h.matchService.Start(r.Context(), id)
	})
}

// UpdateScore godoc
// @Summary Обновить счет идущего матча
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param input body services.UpdateScoreInput true "Score"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Матч не идет"
// @Security BearerAuth
// @Router /matches/{matchID}/score [post]
func (h *MatchHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateScoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.respond(w, r, func(id uuid.UUID) (*models.Match, error) {
		return h.matchService.UpdateScore(r.Context(), id, input)
	})
}

// Finish godoc
// @Summary Завершить матч
// @Description Итоговый счет фиксируется, таблица пересчитывается и рассылается по WebSocket.
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /matches/{matchID}/finish [post]
func (h *MatchHandler) Finish(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(id uuid.UUID) (*models.Match, error) {
		return h.matchService.Finish(r.Context(), id)
	})
}

// Cancel godoc
// @Summary Отменить матч
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /matches/{matchID}/cancel [post]
func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(id uuid.UUID) (*models.Match, error) {
		return h.matchService.Cancel(r.Context(), id)
	})
}

func (h *MatchHandler) respond(w http.ResponseWriter, r *http.Request, op func(id uuid.UUID) (*models.Match, error)) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := op(id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
