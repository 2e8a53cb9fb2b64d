package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/repositories"
)

type referenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) repositories.ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== ROLES (CARGOS) =====

func (r *referenceRepository) ListRoles(ctx context.Context, tx *gorm.DB) ([]models.Role, error) {
	var roles []models.Role
	if err := r.getDB(tx).WithContext(ctx).Order("name").Find(&roles).Error; err != nil {
		return nil, translateError("list roles", err)
	}
	return roles, nil
}

func (r *referenceRepository) GetRole(ctx context.Context, tx *gorm.DB, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.getDB(tx).WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, translateError(fmt.Sprintf("get role %d", id), err)
	}
	return &role, nil
}

func (r *referenceRepository) CreateRole(ctx context.Context, tx *gorm.DB, role *models.Role) error {
	return translateError("create role", r.getDB(tx).WithContext(ctx).Create(role).Error)
}

func (r *referenceRepository) UpdateRole(ctx context.Context, tx *gorm.DB, role *models.Role) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Role{}).
		Where("id = ?", role.ID).
		Updates(map[string]interface{}{"name": role.Name, "hourly_rate": role.HourlyRate})
	return requireRows(fmt.Sprintf("update role %d", role.ID), result)
}

func (r *referenceRepository) DeleteRole(ctx context.Context, tx *gorm.DB, id uint) error {
	return requireRows(fmt.Sprintf("delete role %d", id), r.getDB(tx).WithContext(ctx).Delete(&models.Role{}, id))
}

// ===== RANKS (PATENTES) =====

func (r *referenceRepository) ListRanks(ctx context.Context, tx *gorm.DB) ([]models.Rank, error) {
	var ranks []models.Rank
	if err := r.getDB(tx).WithContext(ctx).Order("name").Find(&ranks).Error; err != nil {
		return nil, translateError("list ranks", err)
	}
	return ranks, nil
}

func (r *referenceRepository) GetRank(ctx context.Context, tx *gorm.DB, id uint) (*models.Rank, error) {
	var rank models.Rank
	if err := r.getDB(tx).WithContext(ctx).First(&rank, id).Error; err != nil {
		return nil, translateError(fmt.Sprintf("get rank %d", id), err)
	}
	return &rank, nil
}

func (r *referenceRepository) CreateRank(ctx context.Context, tx *gorm.DB, rank *models.Rank) error {
	return translateError("create rank", r.getDB(tx).WithContext(ctx).Create(rank).Error)
}

func (r *referenceRepository) UpdateRank(ctx context.Context, tx *gorm.DB, rank *models.Rank) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Rank{}).
		Where("id = ?", rank.ID).
		Updates(map[string]interface{}{"name": rank.Name, "multiplier": rank.Multiplier})
	return requireRows(fmt.Sprintf("update rank %d", rank.ID), result)
}

func (r *referenceRepository) DeleteRank(ctx context.Context, tx *gorm.DB, id uint) error {
	return requireRows(fmt.Sprintf("delete rank %d", id), r.getDB(tx).WithContext(ctx).Delete(&models.Rank{}, id))
}

// ===== MODALITIES =====

func (r *referenceRepository) ListModalities(ctx context.Context, tx *gorm.DB) ([]models.Modality, error) {
	var modalities []models.Modality
	if err := r.getDB(tx).WithContext(ctx).Order("name").Find(&modalities).Error; err != nil {
		return nil, translateError("list modalities", err)
	}
	return modalities, nil
}

func (r *referenceRepository) GetModality(ctx context.Context, tx *gorm.DB, id uint) (*models.Modality, error) {
	var modality models.Modality
	if err := r.getDB(tx).WithContext(ctx).First(&modality, id).Error; err != nil {
		return nil, translateError(fmt.Sprintf("get modality %d", id), err)
	}
	return &modality, nil
}

func (r *referenceRepository) CreateModality(ctx context.Context, tx *gorm.DB, modality *models.Modality) error {
	return translateError("create modality", r.getDB(tx).WithContext(ctx).Create(modality).Error)
}

func (r *referenceRepository) UpdateModality(ctx context.Context, tx *gorm.DB, modality *models.Modality) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Modality{}).
		Where("id = ?", modality.ID).
		Update("name", modality.Name)
	return requireRows(fmt.Sprintf("update modality %d", modality.ID), result)
}

func (r *referenceRepository) DeleteModality(ctx context.Context, tx *gorm.DB, id uint) error {
	return requireRows(fmt.Sprintf("delete modality %d", id), r.getDB(tx).WithContext(ctx).Delete(&models.Modality{}, id))
}

// ===== FIXED VALUES =====

func (r *referenceRepository) GetFixedValues(ctx context.Context, tx *gorm.DB) (*models.FixedValues, error) {
	var values models.FixedValues
	if err := r.getDB(tx).WithContext(ctx).
		Order("updated_at DESC, id DESC").
		First(&values).Error; err != nil {
		return nil, translateError("get fixed values", err)
	}
	return &values, nil
}

func (r *referenceRepository) SaveFixedValues(ctx context.Context, tx *gorm.DB, values *models.FixedValues) error {
	db := r.getDB(tx).WithContext(ctx)
	if values.ID == 0 {
		return translateError("create fixed values", db.Create(values).Error)
	}
	return translateError("update fixed values", db.Save(values).Error)
}
