package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/repositories"
)

type teacherRepository struct {
	db *gorm.DB
}

func NewTeacherRepository(db *gorm.DB) repositories.TeacherRepository {
	return &teacherRepository{db: db}
}

func (r *teacherRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *teacherRepository) List(ctx context.Context, tx *gorm.DB) ([]models.Teacher, error) {
	var teachers []models.Teacher
	if err := r.getDB(tx).WithContext(ctx).Order("name, id").Find(&teachers).Error; err != nil {
		return nil, translateError("list teachers", err)
	}
	return teachers, nil
}

func (r *teacherRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.getDB(tx).WithContext(ctx).First(&teacher, id).Error; err != nil {
		return nil, translateError(fmt.Sprintf("get teacher %d", id), err)
	}
	return &teacher, nil
}

func (r *teacherRepository) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.getDB(tx).WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&teacher).Error; err != nil {
		return nil, translateError("get teacher by email", err)
	}
	return &teacher, nil
}

func (r *teacherRepository) Create(ctx context.Context, tx *gorm.DB, teacher *models.Teacher) error {
	return translateError("create teacher", r.getDB(tx).WithContext(ctx).Create(teacher).Error)
}

func (r *teacherRepository) UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, passwordHash string) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Teacher{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	return requireRows(fmt.Sprintf("update password of teacher %d", id), result)
}

type passwordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) repositories.PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *passwordResetRepository) Create(ctx context.Context, tx *gorm.DB, token *models.PasswordResetToken) error {
	return translateError("create password reset token", r.getDB(tx).WithContext(ctx).Create(token).Error)
}

func (r *passwordResetRepository) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.PasswordResetToken, error) {
	var reset models.PasswordResetToken
	if err := r.getDB(tx).WithContext(ctx).
		Where("token = ?", token).
		First(&reset).Error; err != nil {
		return nil, translateError("get password reset token", err)
	}
	return &reset, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, tx *gorm.DB, id uint) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.PasswordResetToken{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	return requireRows(fmt.Sprintf("mark password reset token %d used", id), result)
}
