package validator

import (
	"github.com/shopspring/decimal"
)

// PeriodQuery is the mesAno filter shared by every report endpoint
type PeriodQuery struct {
	MesAno string `form:"mesAno" validate:"omitempty,mes_ano"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// AssignmentRequest puts one teacher on a class under a role and a rank
type AssignmentRequest struct {
	TeacherID uint `json:"teacherId" validate:"required"`
	RoleID    uint `json:"roleId" validate:"required"`
	RankID    uint `json:"rankId" validate:"required"`
}

type ClassCreateRequest struct {
	Date        string              `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string              `json:"startTime" validate:"required,start_time"`
	Capacity    int                 `json:"capacity" validate:"required,min=1"`
	ModalityID  uint                `json:"modalityId" validate:"required"`
	Assignments []AssignmentRequest `json:"assignments" validate:"required,min=1,dive"`
}

// ClassUpdateRequest replaces the class fields and its whole assignment set
type ClassUpdateRequest struct {
	Date        string              `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string              `json:"startTime" validate:"required,start_time"`
	Capacity    int                 `json:"capacity" validate:"required,min=1"`
	ModalityID  uint                `json:"modalityId" validate:"required"`
	Assignments []AssignmentRequest `json:"assignments" validate:"required,min=1,dive"`
}

// ClassSeriesRequest creates one class per matching weekday in [StartDate, EndDate]
type ClassSeriesRequest struct {
	StartDate   string              `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string              `json:"endDate" validate:"required,datetime=2006-01-02"`
	Weekdays    []int               `json:"weekdays" validate:"required,min=1,dive,min=0,max=6"`
	StartTime   string              `json:"startTime" validate:"required,start_time"`
	Capacity    int                 `json:"capacity" validate:"required,min=1"`
	ModalityID  uint                `json:"modalityId" validate:"required"`
	Assignments []AssignmentRequest `json:"assignments" validate:"required,min=1,dive"`
}

type CheckInRequest struct {
	Attendance int `json:"attendance" validate:"min=0"`
}

type RoleRequest struct {
	Name       string          `json:"name" validate:"required,min=1,max=100"`
	HourlyRate decimal.Decimal `json:"hourlyRate" validate:"gte=0"`
}

type RankRequest struct {
	Name       string          `json:"name" validate:"required,min=1,max=100"`
	Multiplier decimal.Decimal `json:"multiplier" validate:"gte=0"`
}

type ModalityRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type TeacherCreateRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=120"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Role     string  `json:"role" validate:"omitempty,user_role"`
}

type FixedValuesRequest struct {
	RevenuePerStudent decimal.Decimal `json:"revenuePerStudent" validate:"gte=0"`
	FixedCostPerClass decimal.Decimal `json:"fixedCostPerClass" validate:"gte=0"`
}
