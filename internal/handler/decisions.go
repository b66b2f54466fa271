package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"edgescout/internal/repository"
)

type DecisionHandler struct {
	Repo repository.Repository
}

func (h *DecisionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/decisions")
	group.GET("", h.listDecisions)
}

// @Summary List shadow decisions
// @Tags decisions
// @Param hypothesis query string false "hypothesis name"
// @Param outcome query string false "PENDING, WIN, LOSE or VOID"
// @Param market_id query string false "market id"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/decisions [get]
func (h *DecisionHandler) listDecisions(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListDecisionsParams{
		Limit:  parseInt(c.Query("limit"), 100),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if v := strings.TrimSpace(c.Query("hypothesis")); v != "" {
		params.Hypothesis = &v
	}
	if v := strings.ToUpper(strings.TrimSpace(c.Query("outcome"))); v != "" {
		params.Outcome = &v
	}
	if v := strings.TrimSpace(c.Query("market_id")); v != "" {
		params.MarketID = &v
	}

	items, err := h.Repo.ListShadowDecisions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountShadowDecisions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": total, "limit": params.Limit, "offset": params.Offset})
}
