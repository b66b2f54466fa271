package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"edgescout/internal/repository"
)

type CompetitionHandler struct {
	Repo repository.Repository
}

func (h *CompetitionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/competitions")
	group.GET("", h.listCompetitions)
	group.GET("/rankings", h.rankings)
	group.GET("/:id/stats", h.stats)
}

// @Summary List competitions
// @Tags competitions
// @Param enabled_only query bool false "only enabled competitions"
// @Success 200 {object} apiResponse
// @Router /api/v1/competitions [get]
func (h *CompetitionHandler) listCompetitions(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListCompetitionsParams{
		Limit:       parseInt(c.Query("limit"), 500),
		Offset:      parseInt(c.Query("offset"), 0),
		EnabledOnly: c.Query("enabled_only") == "true",
	}
	if v := strings.TrimSpace(c.Query("country")); v != "" {
		params.Country = &v
	}
	items, err := h.Repo.ListCompetitions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary Competition rankings by average score
// @Description Competitions ordered by mean exploitability score over the trailing window.
// @Tags competitions
// @Param days query int false "trailing window in days (default 30)"
// @Param min_markets query int false "minimum scored markets in window"
// @Param limit query int false "page size"
// @Success 200 {object} apiResponse
// @Router /api/v1/competitions/rankings [get]
func (h *CompetitionHandler) rankings(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	days := parseInt(c.Query("days"), 30)
	minMarkets := parseInt(c.Query("min_markets"), 10)
	limit := parseInt(c.Query("limit"), 50)
	since := time.Now().UTC().AddDate(0, 0, -days)

	items, err := h.Repo.ListCompetitionRankings(c.Request.Context(), since, minMarkets, limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"days": days, "min_markets": minMarkets})
}

// @Summary Daily stats for one competition
// @Tags competitions
// @Param id path string true "competition id"
// @Param days query int false "trailing window in days (default 30)"
// @Success 200 {object} apiResponse
// @Router /api/v1/competitions/{id}/stats [get]
func (h *CompetitionHandler) stats(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	days := parseInt(c.Query("days"), 30)
	since := time.Now().UTC().AddDate(0, 0, -days)

	items, err := h.Repo.ListCompetitionStats(c.Request.Context(), id, since)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"competition_id": id, "days": days})
}
