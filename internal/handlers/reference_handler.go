package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studioflow/class-payroll-service/internal/services"
	"github.com/studioflow/class-payroll-service/internal/utils"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

// ReferenceHandler serves cargos, patentes, modalidades, professores and valores-fixos
type ReferenceHandler struct {
	BaseHandler
	service services.ReferenceService
}

func NewReferenceHandler(service services.ReferenceService, v *validator.Validator, logger utils.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		BaseHandler: NewBaseHandler(logger, v),
		service:     service,
	}
}

// respond writes result with status, or maps err
func (h *ReferenceHandler) respond(c *gin.Context, status int, result interface{}, err error) {
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(status, result)
}

func (h *ReferenceHandler) deleted(c *gin.Context, err error) {
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== ROLES (CARGOS) =====

func (h *ReferenceHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	h.respond(c, http.StatusOK, roles, err)
}

func (h *ReferenceHandler) CreateRole(c *gin.Context) {
	var req services.RoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Creating role", "name", req.Name)
	role, err := h.service.CreateRole(c.Request.Context(), &req)
	h.respond(c, http.StatusCreated, role, err)
}

func (h *ReferenceHandler) UpdateRole(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req services.RoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Updating role", "role_id", id)
	role, err := h.service.UpdateRole(c.Request.Context(), id, &req)
	h.respond(c, http.StatusOK, role, err)
}

func (h *ReferenceHandler) DeleteRole(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Deleting role", "role_id", id)
	h.deleted(c, h.service.DeleteRole(c.Request.Context(), id))
}

// ===== RANKS (PATENTES) =====

func (h *ReferenceHandler) ListRanks(c *gin.Context) {
	ranks, err := h.service.ListRanks(c.Request.Context())
	h.respond(c, http.StatusOK, ranks, err)
}

func (h *ReferenceHandler) CreateRank(c *gin.Context) {
	var req services.RankRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Creating rank", "name", req.Name)
	rank, err := h.service.CreateRank(c.Request.Context(), &req)
	h.respond(c, http.StatusCreated, rank, err)
}

func (h *ReferenceHandler) UpdateRank(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req services.RankRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Updating rank", "rank_id", id)
	rank, err := h.service.UpdateRank(c.Request.Context(), id, &req)
	h.respond(c, http.StatusOK, rank, err)
}

func (h *ReferenceHandler) DeleteRank(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Deleting rank", "rank_id", id)
	h.deleted(c, h.service.DeleteRank(c.Request.Context(), id))
}

// ===== MODALITIES =====

func (h *ReferenceHandler) ListModalities(c *gin.Context) {
	modalities, err := h.service.ListModalities(c.Request.Context())
	h.respond(c, http.StatusOK, modalities, err)
}

func (h *ReferenceHandler) CreateModality(c *gin.Context) {
	var req services.ModalityRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Creating modality", "name", req.Name)
	modality, err := h.service.CreateModality(c.Request.Context(), &req)
	h.respond(c, http.StatusCreated, modality, err)
}

func (h *ReferenceHandler) UpdateModality(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req services.ModalityRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Updating modality", "modality_id", id)
	modality, err := h.service.UpdateModality(c.Request.Context(), id, &req)
	h.respond(c, http.StatusOK, modality, err)
}

func (h *ReferenceHandler) DeleteModality(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Deleting modality", "modality_id", id)
	h.deleted(c, h.service.DeleteModality(c.Request.Context(), id))
}

// ===== TEACHERS =====

func (h *ReferenceHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.service.ListTeachers(c.Request.Context())
	h.respond(c, http.StatusOK, teachers, err)
}

func (h *ReferenceHandler) CreateTeacher(c *gin.Context) {
	var req services.CreateTeacherRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Creating teacher", "name", req.Name)
	teacher, err := h.service.CreateTeacher(c.Request.Context(), &req)
	h.respond(c, http.StatusCreated, teacher, err)
}

// ===== FIXED VALUES =====

func (h *ReferenceHandler) GetFixedValues(c *gin.Context) {
	values, err := h.service.GetFixedValues(c.Request.Context())
	h.respond(c, http.StatusOK, values, err)
}

func (h *ReferenceHandler) UpdateFixedValues(c *gin.Context) {
	var req services.FixedValuesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Updating fixed values",
		"revenue_per_student", req.RevenuePerStudent.String(),
		"fixed_cost_per_class", req.FixedCostPerClass.String())
	values, err := h.service.UpdateFixedValues(c.Request.Context(), &req)
	h.respond(c, http.StatusOK, values, err)
}
