package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studioflow/class-payroll-service/internal/services"
	"github.com/studioflow/class-payroll-service/internal/utils"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

type AuthHandler struct {
	BaseHandler
	service  services.AuthService
	sessions *SessionAuth
}

func NewAuthHandler(service services.AuthService, sessions *SessionAuth, v *validator.Validator, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger, v),
		service:     service,
		sessions:    sessions,
	}
}

// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req validator.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid email or password"})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	if err := h.sessions.Save(c, user); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "User logged in", "teacher_id", user.ID)
	c.JSON(http.StatusOK, user)
}

// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Clear(c); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Logged out"})
}

// Me reloads the session user so renamed or demoted accounts show current data
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Not authenticated"})
		return
	}

	me, err := h.service.Me(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			_ = h.sessions.Clear(c)
			c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Not authenticated"})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, me)
}

// ForgotPassword always answers the same way so accounts cannot be probed
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req validator.ForgotPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "If the email is registered, a reset link has been sent",
	})
}

// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req validator.ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Password updated"})
}
