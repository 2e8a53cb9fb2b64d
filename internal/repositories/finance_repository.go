package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/models"
)

// FinanceRepository exposes the read-side joins behind every financial report.
// All period bounds are half-open: from <= date < to.
type FinanceRepository interface {
	// ListClasses returns one row per class in the window
	ListClasses(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]ClassRow, error)

	// ListAssignments returns one row per (class, teacher) assignment in the window
	ListAssignments(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]AssignmentRow, error)

	// ListSlotGroups groups the window by (modality, weekday, start time)
	ListSlotGroups(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]SlotGroupRow, error)

	// ListSlotClasses and ListSlotAssignments restrict the window to one slot group
	ListSlotClasses(ctx context.Context, tx *gorm.DB, from, to time.Time, key models.SlotKey) ([]ClassRow, error)
	ListSlotAssignments(ctx context.Context, tx *gorm.DB, from, to time.Time, key models.SlotKey) ([]AssignmentRow, error)

	// ListTeacherAssignments returns every assignment row of one teacher in the window
	ListTeacherAssignments(ctx context.Context, tx *gorm.DB, teacherID uint, from, to time.Time) ([]AssignmentRow, error)

	// GetBlendedRates averages the live role and rank tables
	GetBlendedRates(ctx context.Context, tx *gorm.DB) (BlendedRates, error)
}

// ClassRow is one class with its modality resolved
type ClassRow struct {
	ClassID      uint      `gorm:"column:class_id"`
	Date         time.Time `gorm:"column:date"`
	StartTime    string    `gorm:"column:start_time"`
	Weekday      int       `gorm:"column:weekday"`
	Capacity     int       `gorm:"column:capacity"`
	Attendance   int       `gorm:"column:attendance"`
	ModalityID   uint      `gorm:"column:modality_id"`
	ModalityName string    `gorm:"column:modality_name"`
}

// Normalize clamps values that the formulas assume non-negative
func (r *ClassRow) Normalize() {
	if r.Capacity < 0 {
		r.Capacity = 0
	}
	if r.Attendance < 0 {
		r.Attendance = 0
	}
	if r.Weekday < 0 || r.Weekday > 6 {
		r.Weekday = int(r.Date.Weekday())
	}
}

// AssignmentRow is one teacher assignment joined with its class, role and rank
type AssignmentRow struct {
	AssignmentID uint            `gorm:"column:assignment_id"`
	ClassID      uint            `gorm:"column:class_id"`
	ClassDate    time.Time       `gorm:"column:class_date"`
	StartTime    string          `gorm:"column:start_time"`
	ModalityName string          `gorm:"column:modality_name"`
	Attendance   int             `gorm:"column:attendance"`
	Capacity     int             `gorm:"column:capacity"`
	TeacherID    uint            `gorm:"column:teacher_id"`
	TeacherName  string          `gorm:"column:teacher_name"`
	RoleID       uint            `gorm:"column:role_id"`
	RoleName     string          `gorm:"column:role_name"`
	HourlyRate   decimal.Decimal `gorm:"column:hourly_rate"`
	RankID       uint            `gorm:"column:rank_id"`
	RankName     string          `gorm:"column:rank_name"`
	Multiplier   decimal.Decimal `gorm:"column:multiplier"`
}

func (r *AssignmentRow) Normalize() {
	if r.Attendance < 0 {
		r.Attendance = 0
	}
	if r.Capacity < 0 {
		r.Capacity = 0
	}
}

// SlotGroupRow aggregates the classes sharing one (modality, weekday, start time)
type SlotGroupRow struct {
	ModalityID      uint   `gorm:"column:modality_id"`
	ModalityName    string `gorm:"column:modality_name"`
	Weekday         int    `gorm:"column:weekday"`
	StartTime       string `gorm:"column:start_time"`
	ClassCount      int    `gorm:"column:class_count"`
	TotalAttendance int    `gorm:"column:total_attendance"`
	Capacity        int    `gorm:"column:capacity"`
}

func (r *SlotGroupRow) Key() models.SlotKey {
	return models.SlotKey{
		StartTime: r.StartTime,
		Weekday:   time.Weekday(r.Weekday),
		Modality:  r.ModalityName,
	}
}

// BlendedRates are the fallback averages used when a slot group cannot be priced exactly
type BlendedRates struct {
	AverageHourlyRate decimal.Decimal `gorm:"column:average_hourly_rate"`
	AverageMultiplier decimal.Decimal `gorm:"column:average_multiplier"`
}
