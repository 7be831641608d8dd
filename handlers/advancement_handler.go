package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Dosada05/football-league/models"
	"github.com/Dosada05/football-league/services"
	"github.com/google/uuid"
)

type AdvancementHandler struct {
	advancementService services.AdvancementService
}

func NewAdvancementHandler(as services.AdvancementService) *AdvancementHandler {
	return &AdvancementHandler{advancementService: as}
}

type advanceRequest struct {
	RuleType  string `json:"rule_type"`
	Positions *int   `json:"positions"`
}

type advanceManualRequest struct {
	TeamIDs []uuid.UUID `json:"team_ids"`
}

// fromTo reads the source {competitionID} and destination {toID} path parameters.
func fromTo(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	from, err := getIDFromURL(r, "competitionID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	to, err := getIDFromURL(r, "toID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return from, to, nil
}

// CreateRule godoc
// @Summary Создать правило перехода
// @Tags advancement
// @Accept json
// @Produce json
// @Param competitionID path string true "Source competition ID"
// @Param input body services.CreateRuleInput true "Rule"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Правило этого типа уже есть"
// @Security BearerAuth
// @Router /competitions/{competitionID}/rules [post]
func (h *AdvancementHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateRuleInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rule, err := h.advancementService.CreateRule(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"rule": rule}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListRules godoc
// @Summary Правила перехода соревнования
// @Tags advancement
// @Produce json
// @Param competitionID path string true "Source competition ID"
// @Success 200 {object} map[string]interface{}
// @Router /competitions/{competitionID}/rules [get]
func (h *AdvancementHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rules, err := h.advancementService.ListRules(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rules": rules}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EligibleTeams godoc
// @Summary Команды, которые пройдут по правилу
// @Tags advancement
// @Produce json
// @Param competitionID path string true "Source competition ID"
// @Param toID path string true "Destination competition ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Нет правила между соревнованиями"
// @Router /competitions/{competitionID}/to/{toID}/eligible-teams [get]
func (h *AdvancementHandler) EligibleTeams(w http.ResponseWriter, r *http.Request) {
	from, to, err := fromTo(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rows, err := h.advancementService.EligibleTeams(r.Context(), from, to)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": rows, "count": len(rows)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Advance godoc
// @Summary Перевести команды по итогам соревнования
// @Description rule_type: top_positions (по умолчанию), group_winners или knockout_winner.
// @Description Без positions берется advancement_positions правила между соревнованиями.
// @Tags advancement
// @Accept json
// @Produce json
// @Param competitionID path string true "Source competition ID"
// @Param toID path string true "Destination competition ID"
// @Param input body advanceRequest false "Rule type and positions"
// @Success 200 {object} services.AdvancementResult
// @Failure 422 {object} map[string]interface{} "capacity_exceeded / invalid_rule"
// @Security BearerAuth
// @Router /competitions/{competitionID}/advance-to/{toID} [post]
func (h *AdvancementHandler) Advance(w http.ResponseWriter, r *http.Request) {
	from, to, err := fromTo(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input advanceRequest
	if err := readOptionalJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	ruleType := models.RuleTopPositions
	if strings.TrimSpace(input.RuleType) != "" {
		ruleType, err = models.ParseRuleType(input.RuleType)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	var result *services.AdvancementResult
	switch ruleType {
	case models.RuleTopPositions:
		result, err = h.advancementService.AdvanceTopPositions(r.Context(), from, to, input.Positions)
	case models.RuleGroupWinners:
		result, err = h.advancementService.AdvanceGroupWinners(r.Context(), from, to)
	case models.RuleKnockoutWinner:
		result, err = h.advancementService.AdvanceKnockoutWinner(r.Context(), from, to)
	default:
		badRequestResponse(w, r, fmt.Errorf("rule type %s needs the advance-manual endpoint", ruleType))
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdvanceManual godoc
// @Summary Перевести выбранные команды вручную
// @Tags advancement
// @Accept json
// @Produce json
// @Param competitionID path string true "Source competition ID"
// @Param toID path string true "Destination competition ID"
// @Param input body advanceManualRequest true "Team IDs"
// @Success 200 {object} services.AdvancementResult
// @Security BearerAuth
// @Router /competitions/{competitionID}/advance-manual/{toID} [post]
func (h *AdvancementHandler) AdvanceManual(w http.ResponseWriter, r *http.Request) {
	from, to, err := fromTo(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input advanceManualRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.advancementService.AdvanceManually(r.Context(), from, to, input.TeamIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApplyRules godoc
// @Summary Применить автоматические правила
// @Description Ошибка одного правила не останавливает остальные, итог по каждому в outcomes.
// @Tags advancement
// @Produce json
// @Param competitionID path string true "Source competition ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /competitions/{competitionID}/apply-rules [post]
func (h *AdvancementHandler) ApplyRules(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcomes, err := h.advancementService.ApplyRules(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcomes": outcomes}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Summary godoc
// @Summary Сводка по правилам перехода
// @Tags advancement
// @Produce json
// @Param competitionID path string true "Source competition ID"
// @Param to_id query string false "Destination competition ID"
// @Success 200 {object} services.AdvancementSummary
// @Router /competitions/{competitionID}/advancement-summary [get]
func (h *AdvancementHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	to, err := uuidQuery(r, "to_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.advancementService.Summary(r.Context(), from, to)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, summary, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
