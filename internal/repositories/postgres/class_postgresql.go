package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/repositories"
)

type classRepository struct {
	db *gorm.DB
}

func NewClassRepository(db *gorm.DB) repositories.ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Modality").
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("aula_professores.id")
		}).
		Preload("Assignments.Teacher").
		Preload("Assignments.Role").
		Preload("Assignments.Rank")
}

func (r *classRepository) Create(ctx context.Context, tx *gorm.DB, class *models.ClassSession) error {
	db := r.getDB(tx).WithContext(ctx)

	assignments := class.Assignments
	if err := db.Omit(clause.Associations).Create(class).Error; err != nil {
		return translateError("create class", err)
	}

	if len(assignments) == 0 {
		return nil
	}
	for i := range assignments {
		assignments[i].ID = 0
		assignments[i].ClassID = class.ID
	}
	if err := db.Omit(clause.Associations).Create(&assignments).Error; err != nil {
		return translateError("create class assignments", err)
	}
	class.Assignments = assignments
	return nil
}

func (r *classRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ClassSession, error) {
	var class models.ClassSession
	if err := withDetails(r.getDB(tx).WithContext(ctx)).First(&class, id).Error; err != nil {
		return nil, translateError(fmt.Sprintf("get class %d", id), err)
	}
	return &class, nil
}

func (r *classRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.ClassFilters) ([]models.ClassSession, error) {
	query := withDetails(r.getDB(tx).WithContext(ctx)).Model(&models.ClassSession{})

	if !filters.From.IsZero() {
		query = query.Where("date >= ?", filters.From.Format("2006-01-02"))
	}
	if !filters.To.IsZero() {
		query = query.Where("date < ?", filters.To.Format("2006-01-02"))
	}
	if filters.ModalityID != nil {
		query = query.Where("modality_id = ?", *filters.ModalityID)
	}
	if filters.TeacherID != nil {
		query = query.Where("EXISTS (SELECT 1 FROM aula_professores ap WHERE ap.class_id = aulas.id AND ap.teacher_id = ?)", *filters.TeacherID)
	}

	var classes []models.ClassSession
	if err := query.Order("date, start_time, id").Find(&classes).Error; err != nil {
		return nil, translateError("list classes", err)
	}
	return classes, nil
}

func (r *classRepository) Update(ctx context.Context, tx *gorm.DB, class *models.ClassSession) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.ClassSession{}).
		Where("id = ?", class.ID).
		Updates(map[string]interface{}{
			"date":        class.Date,
			"start_time":  class.StartTime,
			"capacity":    class.Capacity,
			"modality_id": class.ModalityID,
		})
	return requireRows(fmt.Sprintf("update class %d", class.ID), result)
}

func (r *classRepository) ReplaceAssignments(ctx context.Context, tx *gorm.DB, classID uint, assignments []models.ClassAssignment) error {
	db := r.getDB(tx).WithContext(ctx)

	if err := db.Where("class_id = ?", classID).Delete(&models.ClassAssignment{}).Error; err != nil {
		return translateError("delete class assignments", err)
	}
	if len(assignments) == 0 {
		return nil
	}

	for i := range assignments {
		assignments[i].ID = 0
		assignments[i].ClassID = classID
	}
	if err := db.Omit(clause.Associations).Create(&assignments).Error; err != nil {
		return translateError("create class assignments", err)
	}
	return nil
}

func (r *classRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := r.getDB(tx).WithContext(ctx).Delete(&models.ClassSession{}, id)
	return requireRows(fmt.Sprintf("delete class %d", id), result)
}

func (r *classRepository) UpdateAttendance(ctx context.Context, tx *gorm.DB, id uint, attendance int) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.ClassSession{}).
		Where("id = ?", id).
		Update("attendance", attendance)
	return requireRows(fmt.Sprintf("update attendance of class %d", id), result)
}

func (r *classRepository) IsAssigned(ctx context.Context, tx *gorm.DB, classID, teacherID uint) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.ClassAssignment{}).
		Where("class_id = ? AND teacher_id = ?", classID, teacherID).
		Count(&count).Error; err != nil {
		return false, translateError("check class assignment", err)
	}
	return count > 0, nil
}
