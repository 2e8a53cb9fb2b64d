package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/models"
)

// ReferenceRepository covers the single-table reference data
type ReferenceRepository interface {
	ListRoles(ctx context.Context, tx *gorm.DB) ([]models.Role, error)
	GetRole(ctx context.Context, tx *gorm.DB, id uint) (*models.Role, error)
	CreateRole(ctx context.Context, tx *gorm.DB, role *models.Role) error
	UpdateRole(ctx context.Context, tx *gorm.DB, role *models.Role) error
	DeleteRole(ctx context.Context, tx *gorm.DB, id uint) error

	ListRanks(ctx context.Context, tx *gorm.DB) ([]models.Rank, error)
	GetRank(ctx context.Context, tx *gorm.DB, id uint) (*models.Rank, error)
	CreateRank(ctx context.Context, tx *gorm.DB, rank *models.Rank) error
	UpdateRank(ctx context.Context, tx *gorm.DB, rank *models.Rank) error
	DeleteRank(ctx context.Context, tx *gorm.DB, id uint) error

	ListModalities(ctx context.Context, tx *gorm.DB) ([]models.Modality, error)
	GetModality(ctx context.Context, tx *gorm.DB, id uint) (*models.Modality, error)
	CreateModality(ctx context.Context, tx *gorm.DB, modality *models.Modality) error
	UpdateModality(ctx context.Context, tx *gorm.DB, modality *models.Modality) error
	DeleteModality(ctx context.Context, tx *gorm.DB, id uint) error

	// GetFixedValues returns the most recently updated row, ErrNotFound when the table is empty
	GetFixedValues(ctx context.Context, tx *gorm.DB) (*models.FixedValues, error)
	SaveFixedValues(ctx context.Context, tx *gorm.DB, values *models.FixedValues) error
}

// TeacherRepository persists teacher accounts
type TeacherRepository interface {
	List(ctx context.Context, tx *gorm.DB) ([]models.Teacher, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Teacher, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Teacher, error)
	Create(ctx context.Context, tx *gorm.DB, teacher *models.Teacher) error
	UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, passwordHash string) error
}

// PasswordResetRepository stores single-use reset tokens
type PasswordResetRepository interface {
	Create(ctx context.Context, tx *gorm.DB, token *models.PasswordResetToken) error
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, tx *gorm.DB, id uint) error
}
