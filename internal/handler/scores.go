package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"edgescout/internal/repository"
)

type ScoreHandler struct {
	Repo repository.Repository
}

func (h *ScoreHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/scores")
	group.GET("", h.listScores)
	group.GET("/:market_id", h.marketScore)
}

// @Summary Latest exploitability scores
// @Description Most recent score per market, filtered by minimum total and time bucket.
// @Tags scores
// @Param min_score query number false "minimum total score"
// @Param bucket query string false "time bucket"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/scores [get]
func (h *ScoreHandler) listScores(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListScoresParams{
		Limit:  parseInt(c.Query("limit"), 100),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if v := c.Query("min_score"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid min_score", nil)
			return
		}
		params.MinTotal = min
	}
	if v := strings.TrimSpace(c.Query("bucket")); v != "" {
		params.TimeBucket = &v
	}
	if v := c.Query("since_hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours < 0 {
			Error(c, http.StatusBadRequest, "invalid since_hours", nil)
			return
		}
		since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
		params.Since = &since
	}
	items, err := h.Repo.ListLatestScores(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary Latest score for one market
// @Tags scores
// @Param market_id path string true "market id"
// @Success 200 {object} apiResponse
// @Router /api/v1/scores/{market_id} [get]
func (h *ScoreHandler) marketScore(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	marketID := strings.TrimSpace(c.Param("market_id"))
	if marketID == "" {
		Error(c, http.StatusBadRequest, "market_id required", nil)
		return
	}
	item, err := h.Repo.LatestScoreForMarket(c.Request.Context(), marketID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "score not found", nil)
		return
	}
	Ok(c, item, nil)
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
