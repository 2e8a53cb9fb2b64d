package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studioflow/class-payroll-service/internal/services"
	"github.com/studioflow/class-payroll-service/internal/utils"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

type ClassHandler struct {
	BaseHandler
	service services.ClassService
}

func NewClassHandler(service services.ClassService, v *validator.Validator, logger utils.Logger) *ClassHandler {
	return &ClassHandler{
		BaseHandler: NewBaseHandler(logger, v),
		service:     service,
	}
}

// ===== CLASS CRUD =====

// ListClasses returns the classes of ?mesAno (current month by default)
// @Router /aulas [get]
func (h *ClassHandler) ListClasses(c *gin.Context) {
	period, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing classes", "period", period.Key())

	classes, err := h.service.ListByPeriod(c.Request.Context(), period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, classes)
}

// @Router /aulas [post]
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req services.CreateClassRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating class", "date", req.Date, "start_time", req.StartTime)

	class, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, class)
}

// CreateSeries creates one class per selected weekday in a date range
// @Router /aulas/serie [post]
func (h *ClassHandler) CreateSeries(c *gin.Context) {
	var req services.CreateSeriesRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating class series", "start_date", req.StartDate, "end_date", req.EndDate)

	result, err := h.service.CreateSeries(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Created == 0 {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// @Router /aulas/{id} [get]
func (h *ClassHandler) GetClass(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	class, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, class)
}

// @Router /aulas/{id} [put]
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateClassRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating class", "class_id", id)

	class, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, class)
}

// @Router /aulas/{id} [delete]
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting class", "class_id", id)

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ===== CHECK-IN =====

// CheckIn records the attendance count; professors only for their own classes
// @Router /aulas/{id}/checkin [post]
func (h *ClassHandler) CheckIn(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req validator.CheckInRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Not authenticated"})
		return
	}

	h.LogRequest(c, "Recording check-in", "class_id", id, "attendance", req.Attendance)

	class, err := h.service.CheckIn(c.Request.Context(), user.Actor(), id, req.Attendance)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, class)
}
