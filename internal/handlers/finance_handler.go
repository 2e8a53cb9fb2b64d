package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/services"
	"github.com/studioflow/class-payroll-service/internal/utils"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

type FinanceHandler struct {
	BaseHandler
	service services.FinanceService
}

func NewFinanceHandler(service services.FinanceService, v *validator.Validator, logger utils.Logger) *FinanceHandler {
	return &FinanceHandler{
		BaseHandler: NewBaseHandler(logger, v),
		service:     service,
	}
}

// ===== FINANCE ENDPOINTS =====

// GetDashboardMetrics returns month totals and growth against the previous month
// @Router /dashboard-metrics [get]
func (h *FinanceHandler) GetDashboardMetrics(c *gin.Context) {
	period, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting dashboard metrics", "period", period.Key())

	metrics, err := h.service.GetDashboardMetrics(c.Request.Context(), period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// GetProfitLoss counts classes with profit, loss and no check-in
// @Router /aulas-lucro-prejuizo [get]
func (h *FinanceHandler) GetProfitLoss(c *gin.Context) {
	period, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting profit/loss summary", "period", period.Key())

	summary, err := h.service.GetProfitLoss(c.Request.Context(), period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetSlotGrid returns the start time x weekday grid of class groups
// @Router /horarios-aulas [get]
func (h *FinanceHandler) GetSlotGrid(c *gin.Context) {
	period, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting slot grid", "period", period.Key())

	grid, err := h.service.GetSlotGrid(c.Request.Context(), period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, grid)
}

// GetSlotDetail breaks one slot down into classes and teacher costs
// @Router /detalhes-aula/{compositeId} [get]
func (h *FinanceHandler) GetSlotDetail(c *gin.Context) {
	key, err := models.ParseSlotKey(c.Param("compositeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid compositeId",
			Details: err.Error(),
		})
		return
	}

	period, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting slot detail", "period", period.Key(), "slot", key.Legacy())

	detail, err := h.service.GetSlotDetail(c.Request.Context(), period, key)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}
