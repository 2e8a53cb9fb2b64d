package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/services"
	"github.com/studioflow/class-payroll-service/internal/utils"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries what every handler needs for logging, binding and error mapping
type BaseHandler struct {
	logger    utils.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewBaseHandler(logger utils.Logger, v *validator.Validator) BaseHandler {
	return BaseHandler{logger: logger, validator: v, now: time.Now}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.LoggerFromContext(c, h.logger).Error(msg, append(args, "error", err.Error())...)
}

// bindJSON decodes and validates a request body, answering 400 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return false
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleServiceError(c, err)
		return false
	}
	return true
}

// parsePeriod reads ?mesAno=MM/YYYY, defaulting to the current month
func (h *BaseHandler) parsePeriod(c *gin.Context) (models.Period, bool) {
	var q validator.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid query", Details: err.Error()})
		return models.Period{}, false
	}
	if q.MesAno == "" {
		return models.PeriodOf(h.now()), true
	}
	if err := h.validator.Validate(&q); err != nil {
		h.handleServiceError(c, err)
		return models.Period{}, false
	}
	period, err := models.ParsePeriod(q.MesAno)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid mesAno", Details: err.Error()})
		return models.Period{}, false
	}
	return period, true
}

// parseIDParam returns 0 after answering 400 when the path id is not a positive integer
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid " + name})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: notFound.Error()})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Resource not found"})
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Details: err.Error()})
	case errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid or expired token"})
	case errors.Is(err, services.ErrBadRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Bad request", Details: err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Forbidden"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Resource conflict", Details: err.Error()})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
