package services

import (
	"context"

	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use validator request types
type CreateClassRequest = validator.ClassCreateRequest
type UpdateClassRequest = validator.ClassUpdateRequest
type CreateSeriesRequest = validator.ClassSeriesRequest
type AssignmentRequest = validator.AssignmentRequest

type RoleRequest = validator.RoleRequest
type RankRequest = validator.RankRequest
type ModalityRequest = validator.ModalityRequest
type CreateTeacherRequest = validator.TeacherCreateRequest
type FixedValuesRequest = validator.FixedValuesRequest

// SeriesFailure is one candidate date that could not be created
type SeriesFailure struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// SeriesResult reports a recurring creation; Warning is set on partial success
type SeriesResult struct {
	Created  int             `json:"created"`
	ClassIDs []uint          `json:"classIds"`
	Failed   []SeriesFailure `json:"failed"`
	Warning  string          `json:"warning,omitempty"`
}

// SessionUser is what the session cookie carries about the caller
type SessionUser struct {
	ID    uint            `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email,omitempty"`
	Role  models.UserRole `json:"role"`
}

func (u SessionUser) Actor() Actor {
	return Actor{TeacherID: u.ID, Role: u.Role}
}

// ===== SERVICE INTERFACES =====

// ClassService owns the class ledger writes
type ClassService interface {
	Create(ctx context.Context, req *CreateClassRequest) (*models.ClassSession, error)
	CreateSeries(ctx context.Context, req *CreateSeriesRequest) (*SeriesResult, error)
	Get(ctx context.Context, id uint) (*models.ClassSession, error)
	ListByPeriod(ctx context.Context, period models.Period) ([]models.ClassSession, error)
	Update(ctx context.Context, id uint, req *UpdateClassRequest) (*models.ClassSession, error)
	Delete(ctx context.Context, id uint) error
	CheckIn(ctx context.Context, actor Actor, classID uint, attendance int) (*models.ClassSession, error)
}

// ReferenceService manages roles, ranks, modalities, teachers and fixed values
type ReferenceService interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	CreateRole(ctx context.Context, req *RoleRequest) (*models.Role, error)
	UpdateRole(ctx context.Context, id uint, req *RoleRequest) (*models.Role, error)
	DeleteRole(ctx context.Context, id uint) error

	ListRanks(ctx context.Context) ([]models.Rank, error)
	CreateRank(ctx context.Context, req *RankRequest) (*models.Rank, error)
	UpdateRank(ctx context.Context, id uint, req *RankRequest) (*models.Rank, error)
	DeleteRank(ctx context.Context, id uint) error

	ListModalities(ctx context.Context) ([]models.Modality, error)
	CreateModality(ctx context.Context, req *ModalityRequest) (*models.Modality, error)
	UpdateModality(ctx context.Context, id uint, req *ModalityRequest) (*models.Modality, error)
	DeleteModality(ctx context.Context, id uint) error

	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	CreateTeacher(ctx context.Context, req *CreateTeacherRequest) (*models.Teacher, error)

	GetFixedValues(ctx context.Context) (*models.FixedValues, error)
	UpdateFixedValues(ctx context.Context, req *FixedValuesRequest) (*models.FixedValues, error)
}

// AuthService verifies credentials and runs the password reset flow
type AuthService interface {
	Login(ctx context.Context, email, password string) (*SessionUser, error)
	Me(ctx context.Context, teacherID uint) (*SessionUser, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// ServiceManager manages all services and their lifecycle
type ServiceManager interface {
	// Core service getters
	Finance() FinanceService
	Payroll() PayrollService
	Class() ClassService
	Reference() ReferenceService
	Auth() AuthService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
