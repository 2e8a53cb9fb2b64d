package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studioflow/class-payroll-service/internal/config"
	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/services"
	"github.com/studioflow/class-payroll-service/internal/utils"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

const serviceName = "class-payroll-service"

type HandlerManager struct {
	financeHandler   *FinanceHandler
	payrollHandler   *PayrollHandler
	classHandler     *ClassHandler
	referenceHandler *ReferenceHandler
	authHandler      *AuthHandler
	sessions         *SessionAuth
	health           func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	sessionConfig config.SessionConfig,
) *HandlerManager {
	sessions := NewSessionAuth(sessionConfig)

	return &HandlerManager{
		financeHandler:   NewFinanceHandler(serviceManager.Finance(), validator, logger),
		payrollHandler:   NewPayrollHandler(serviceManager.Payroll(), validator, logger),
		classHandler:     NewClassHandler(serviceManager.Class(), validator, logger),
		referenceHandler: NewReferenceHandler(serviceManager.Reference(), validator, logger),
		authHandler:      NewAuthHandler(serviceManager.Auth(), sessions, validator, logger),
		sessions:         sessions,
		health:           serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	// Public auth routes
	auth := api.Group("/auth")
	{
		auth.POST("/login", hm.authHandler.Login)
		auth.POST("/logout", hm.authHandler.Logout)
		auth.POST("/forgot-password", hm.authHandler.ForgotPassword)
		auth.POST("/reset-password", hm.authHandler.ResetPassword)
		auth.GET("/me", hm.sessions.RequireAuth(), hm.authHandler.Me)
	}

	authed := api.Group("")
	authed.Use(hm.sessions.RequireAuth())
	adminOnly := hm.sessions.RequireRole(models.RoleAdmin)
	{
		// Financial reports - admins only
		authed.GET("/dashboard-metrics", adminOnly, hm.financeHandler.GetDashboardMetrics)
		authed.GET("/aulas-lucro-prejuizo", adminOnly, hm.financeHandler.GetProfitLoss)
		authed.GET("/horarios-aulas", adminOnly, hm.financeHandler.GetSlotGrid)
		authed.GET("/detalhes-aula/:compositeId", adminOnly, hm.financeHandler.GetSlotDetail)

		// Payroll - a professor may read their own entry, checked in the service
		authed.GET("/meritocracia/professores", adminOnly, hm.payrollHandler.ListPayroll)
		authed.GET("/meritocracia/professores/export", adminOnly, hm.payrollHandler.ExportPayroll)
		authed.GET("/meritocracia/professor/:id", hm.payrollHandler.GetTeacherPayroll)

		// Classes
		aulas := authed.Group("/aulas")
		{
			aulas.GET("", hm.classHandler.ListClasses)
			aulas.GET("/:id", hm.classHandler.GetClass)
			aulas.POST("/:id/checkin", hm.classHandler.CheckIn)

			aulas.POST("", adminOnly, hm.classHandler.CreateClass)
			aulas.POST("/serie", adminOnly, hm.classHandler.CreateSeries)
			aulas.PUT("/:id", adminOnly, hm.classHandler.UpdateClass)
			aulas.DELETE("/:id", adminOnly, hm.classHandler.DeleteClass)
		}

		// Reference data - reads for everyone, writes for admins
		authed.GET("/cargos", hm.referenceHandler.ListRoles)
		authed.POST("/cargos", adminOnly, hm.referenceHandler.CreateRole)
		authed.PUT("/cargos/:id", adminOnly, hm.referenceHandler.UpdateRole)
		authed.DELETE("/cargos/:id", adminOnly, hm.referenceHandler.DeleteRole)

		authed.GET("/patentes", hm.referenceHandler.ListRanks)
		authed.POST("/patentes", adminOnly, hm.referenceHandler.CreateRank)
		authed.PUT("/patentes/:id", adminOnly, hm.referenceHandler.UpdateRank)
		authed.DELETE("/patentes/:id", adminOnly, hm.referenceHandler.DeleteRank)

		authed.GET("/modalidades", hm.referenceHandler.ListModalities)
		authed.POST("/modalidades", adminOnly, hm.referenceHandler.CreateModality)
		authed.PUT("/modalidades/:id", adminOnly, hm.referenceHandler.UpdateModality)
		authed.DELETE("/modalidades/:id", adminOnly, hm.referenceHandler.DeleteModality)

		authed.GET("/professores", hm.referenceHandler.ListTeachers)
		authed.POST("/professores", adminOnly, hm.referenceHandler.CreateTeacher)

		authed.GET("/valores-fixos", adminOnly, hm.referenceHandler.GetFixedValues)
		authed.PUT("/valores-fixos", adminOnly, hm.referenceHandler.UpdateFixedValues)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := hm.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": serviceName,
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})
}
