package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"edgescout/internal/repository"
)

type MarketHandler struct {
	Repo repository.Repository
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/markets")
	group.GET("", h.listMarkets)
	group.GET("/:id", h.getMarket)
	group.GET("/:id/profiles", h.profiles)
}

// @Summary List markets
// @Tags markets
// @Param status query string false "market status"
// @Param competition_id query string false "competition id"
// @Param market_type query string false "market type"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets [get]
func (h *MarketHandler) listMarkets(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListMarketsParams{
		Limit:  parseInt(c.Query("limit"), 100),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if v := strings.ToUpper(strings.TrimSpace(c.Query("status"))); v != "" {
		params.Status = &v
	}
	if v := strings.TrimSpace(c.Query("competition_id")); v != "" {
		params.CompetitionID = &v
	}
	if v := strings.TrimSpace(c.Query("market_type")); v != "" {
		params.MarketType = &v
	}
	items, err := h.Repo.ListMarkets(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary One market with its runners and latest snapshot
// @Tags markets
// @Param id path string true "market id"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id} [get]
func (h *MarketHandler) getMarket(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	market, err := h.Repo.GetMarket(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if market == nil {
		Error(c, http.StatusNotFound, "market not found", nil)
		return
	}
	runners, err := h.Repo.ListRunnersByMarketID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	snapshot, err := h.Repo.LatestSnapshot(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"market":   market,
		"runners":  runners,
		"snapshot": snapshot,
	}, nil)
}

// @Summary Liquidity profiles for one market
// @Description One row per (date, time bucket); optionally filtered to a single partition.
// @Tags markets
// @Param id path string true "market id"
// @Param date query string false "profile date (YYYY-MM-DD)"
// @Param bucket query string false "time bucket"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id}/profiles [get]
func (h *MarketHandler) profiles(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	dateRaw := strings.TrimSpace(c.Query("date"))
	bucket := strings.TrimSpace(c.Query("bucket"))
	if dateRaw != "" && bucket != "" {
		date, err := time.Parse("2006-01-02", dateRaw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid date", nil)
			return
		}
		item, err := h.Repo.GetProfile(c.Request.Context(), id, date, bucket)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		if item == nil {
			Error(c, http.StatusNotFound, "profile not found", nil)
			return
		}
		Ok(c, item, nil)
		return
	}

	items, err := h.Repo.ListProfilesByMarketID(c.Request.Context(), id, parseInt(c.Query("limit"), 100))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}
