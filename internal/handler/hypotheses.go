package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"edgescout/internal/repository"
	"edgescout/internal/validate"
)

type HypothesisHandler struct {
	Repo      repository.Repository
	Validator *validate.Validator
}

func (h *HypothesisHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/hypotheses")
	group.GET("", h.listHypotheses)
	group.GET("/validation", h.validateAll)
	group.GET("/:name/stats", h.stats)
	group.GET("/:name/validation", h.validation)
	group.POST("/:name/enable", h.enable)
	group.POST("/:name/disable", h.disable)
}

// @Summary List trading hypotheses
// @Tags hypotheses
// @Success 200 {object} apiResponse
// @Router /api/v1/hypotheses [get]
func (h *HypothesisHandler) listHypotheses(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListHypotheses(c.Request.Context(), false)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Aggregate stats for one hypothesis
// @Description Decision counts, win rate, net P&L, average CLV and ROI.
// @Tags hypotheses
// @Param name path string true "hypothesis name"
// @Success 200 {object} apiResponse
// @Router /api/v1/hypotheses/{name}/stats [get]
func (h *HypothesisHandler) stats(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "name required", nil)
		return
	}
	stats, err := h.Repo.HypothesisStats(c.Request.Context(), name)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, stats, map[string]any{"hypothesis": name})
}

// @Summary Holdout validation report for one hypothesis
// @Description Chronological in/out-sample split with Bonferroni-corrected significance.
// @Tags hypotheses
// @Param name path string true "hypothesis name"
// @Success 200 {object} apiResponse
// @Router /api/v1/hypotheses/{name}/validation [get]
func (h *HypothesisHandler) validation(c *gin.Context) {
	if h.Validator == nil {
		Error(c, http.StatusInternalServerError, "validator unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "name required", nil)
		return
	}
	report, err := h.Validator.Validate(c.Request.Context(), name)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, report, nil)
}

// @Summary Validation reports for all hypotheses
// @Tags hypotheses
// @Success 200 {object} apiResponse
// @Router /api/v1/hypotheses/validation [get]
func (h *HypothesisHandler) validateAll(c *gin.Context) {
	if h.Validator == nil {
		Error(c, http.StatusInternalServerError, "validator unavailable", nil)
		return
	}
	reports, err := h.Validator.ValidateAll(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, reports, map[string]any{"count": len(reports)})
}

func (h *HypothesisHandler) enable(c *gin.Context) {
	h.setEnabled(c, true)
}

func (h *HypothesisHandler) disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *HypothesisHandler) setEnabled(c *gin.Context, enabled bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "name required", nil)
		return
	}
	if err := h.Repo.SetHypothesisEnabled(c.Request.Context(), name, enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"name": name, "enabled": enabled}, nil)
}
