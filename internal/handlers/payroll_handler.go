package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studioflow/class-payroll-service/internal/services"
	"github.com/studioflow/class-payroll-service/internal/utils"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PayrollHandler struct {
	BaseHandler
	service services.PayrollService
}

func NewPayrollHandler(service services.PayrollService, v *validator.Validator, logger utils.Logger) *PayrollHandler {
	return &PayrollHandler{
		BaseHandler: NewBaseHandler(logger, v),
		service:     service,
	}
}

// ListPayroll returns every teacher's month totals, highest earners first
// @Router /meritocracia/professores [get]
func (h *PayrollHandler) ListPayroll(c *gin.Context) {
	period, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing payroll", "period", period.Key())

	list, err := h.service.ListPayroll(c.Request.Context(), period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetTeacherPayroll returns one teacher's payroll with the per-class breakdown
// @Router /meritocracia/professor/{id} [get]
func (h *PayrollHandler) GetTeacherPayroll(c *gin.Context) {
	teacherID := h.parseIDParam(c, "id")
	if teacherID == 0 {
		return
	}
	period, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Not authenticated"})
		return
	}

	h.LogRequest(c, "Getting teacher payroll", "teacher_id", teacherID, "period", period.Key())

	payroll, err := h.service.GetTeacherPayroll(c.Request.Context(), user.Actor(), teacherID, period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, payroll)
}

// ExportPayroll streams the month payroll as an xlsx workbook
// @Router /meritocracia/professores/export [get]
func (h *PayrollHandler) ExportPayroll(c *gin.Context) {
	period, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting payroll", "period", period.Key())

	// buffered so a failure can still be answered with a JSON error
	var buf bytes.Buffer
	if err := h.service.ExportPayroll(c.Request.Context(), period, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="meritocracia-%s.xlsx"`, period.Key()))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
