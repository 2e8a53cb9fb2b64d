package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/models"
)

// ClassFilters narrows class listings
type ClassFilters struct {
	From       time.Time
	To         time.Time // exclusive
	ModalityID *uint
	TeacherID  *uint
}

// ClassRepository persists classes and their teacher assignments
type ClassRepository interface {
	// Create inserts the class together with its assignments
	Create(ctx context.Context, tx *gorm.DB, class *models.ClassSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ClassSession, error)
	List(ctx context.Context, tx *gorm.DB, filters ClassFilters) ([]models.ClassSession, error)

	// Update writes the class row only; assignments go through ReplaceAssignments
	Update(ctx context.Context, tx *gorm.DB, class *models.ClassSession) error
	ReplaceAssignments(ctx context.Context, tx *gorm.DB, classID uint, assignments []models.ClassAssignment) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	UpdateAttendance(ctx context.Context, tx *gorm.DB, id uint, attendance int) error
	IsAssigned(ctx context.Context, tx *gorm.DB, classID, teacherID uint) (bool, error)
}
