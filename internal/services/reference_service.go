package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/cache"
	"github.com/studioflow/class-payroll-service/internal/events"
	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/repositories"
)

const (
	entityRole        = "role"
	entityRank        = "rank"
	entityModality    = "modality"
	entityTeacher     = "teacher"
	entityFixedValues = "fixed_values"
)

type referenceService struct {
	repo      repositories.Repository
	db        *gorm.DB
	cache     *cache.CacheManager
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewReferenceService(repo repositories.Repository, db *gorm.DB, cm *cache.CacheManager, publisher events.EventPublisher, logger *slog.Logger) ReferenceService {
	if cm == nil {
		cm = cache.NewCacheManager(nil, 0)
	}
	return &referenceService{
		repo:      repo,
		db:        db,
		cache:     cm,
		publisher: publisher,
		logger:    logger,
	}
}

// ===== ROLES =====

func (s *referenceService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.Reference().ListRoles(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (s *referenceService) CreateRole(ctx context.Context, req *RoleRequest) (*models.Role, error) {
	role := &models.Role{Name: strings.TrimSpace(req.Name), HourlyRate: req.HourlyRate}
	if err := s.repo.Reference().CreateRole(ctx, nil, role); err != nil {
		return nil, mapRepoError(entityRole, role.Name, err)
	}

	s.logger.Info("Role created", "role_id", role.ID, "name", role.Name)
	s.publishReference(ctx, entityRole, "created", role.ID)
	return role, nil
}

func (s *referenceService) UpdateRole(ctx context.Context, id uint, req *RoleRequest) (*models.Role, error) {
	role, err := s.repo.Reference().GetRole(ctx, nil, id)
	if err != nil {
		return nil, mapRepoError(entityRole, id, err)
	}

	role.Name = strings.TrimSpace(req.Name)
	role.HourlyRate = req.HourlyRate
	if err := s.repo.Reference().UpdateRole(ctx, nil, role); err != nil {
		return nil, mapRepoError(entityRole, id, err)
	}

	s.logger.Info("Role updated", "role_id", id)
	s.publishReference(ctx, entityRole, "updated", id)
	return role, nil
}

func (s *referenceService) DeleteRole(ctx context.Context, id uint) error {
	if err := s.repo.Reference().DeleteRole(ctx, nil, id); err != nil {
		return mapRepoError(entityRole, id, err)
	}

	s.logger.Info("Role deleted", "role_id", id)
	s.publishReference(ctx, entityRole, "deleted", id)
	return nil
}

// ===== RANKS =====

func (s *referenceService) ListRanks(ctx context.Context) ([]models.Rank, error) {
	ranks, err := s.repo.Reference().ListRanks(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranks: %w", err)
	}
	return ranks, nil
}

func (s *referenceService) CreateRank(ctx context.Context, req *RankRequest) (*models.Rank, error) {
	rank := &models.Rank{Name: strings.TrimSpace(req.Name), Multiplier: req.Multiplier}
	if err := s.repo.Reference().CreateRank(ctx, nil, rank); err != nil {
		return nil, mapRepoError(entityRank, rank.Name, err)
	}

	s.logger.Info("Rank created", "rank_id", rank.ID, "name", rank.Name)
	s.publishReference(ctx, entityRank, "created", rank.ID)
	return rank, nil
}

func (s *referenceService) UpdateRank(ctx context.Context, id uint, req *RankRequest) (*models.Rank, error) {
	rank, err := s.repo.Reference().GetRank(ctx, nil, id)
	if err != nil {
		return nil, mapRepoError(entityRank, id, err)
	}

	rank.Name = strings.TrimSpace(req.Name)
	rank.Multiplier = req.Multiplier
	if err := s.repo.Reference().UpdateRank(ctx, nil, rank); err != nil {
		return nil, mapRepoError(entityRank, id, err)
	}

	s.logger.Info("Rank updated", "rank_id", id)
	s.publishReference(ctx, entityRank, "updated", id)
	return rank, nil
}

func (s *referenceService) DeleteRank(ctx context.Context, id uint) error {
	if err := s.repo.Reference().DeleteRank(ctx, nil, id); err != nil {
		return mapRepoError(entityRank, id, err)
	}

	s.logger.Info("Rank deleted", "rank_id", id)
	s.publishReference(ctx, entityRank, "deleted", id)
	return nil
}

// ===== MODALITIES =====

func (s *referenceService) ListModalities(ctx context.Context) ([]models.Modality, error) {
	modalities, err := s.repo.Reference().ListModalities(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list modalities: %w", err)
	}
	return modalities, nil
}

func (s *referenceService) CreateModality(ctx context.Context, req *ModalityRequest) (*models.Modality, error) {
	modality := &models.Modality{Name: strings.TrimSpace(req.Name)}
	if err := s.repo.Reference().CreateModality(ctx, nil, modality); err != nil {
		return nil, mapRepoError(entityModality, modality.Name, err)
	}

	s.logger.Info("Modality created", "modality_id", modality.ID, "name", modality.Name)
	s.publishReference(ctx, entityModality, "created", modality.ID)
	return modality, nil
}

func (s *referenceService) UpdateModality(ctx context.Context, id uint, req *ModalityRequest) (*models.Modality, error) {
	modality, err := s.repo.Reference().GetModality(ctx, nil, id)
	if err != nil {
		return nil, mapRepoError(entityModality, id, err)
	}

	modality.Name = strings.TrimSpace(req.Name)
	if err := s.repo.Reference().UpdateModality(ctx, nil, modality); err != nil {
		return nil, mapRepoError(entityModality, id, err)
	}

	s.logger.Info("Modality updated", "modality_id", id)
	s.publishReference(ctx, entityModality, "updated", id)
	return modality, nil
}

func (s *referenceService) DeleteModality(ctx context.Context, id uint) error {
	if err := s.repo.Reference().DeleteModality(ctx, nil, id); err != nil {
		return mapRepoError(entityModality, id, err)
	}

	s.logger.Info("Modality deleted", "modality_id", id)
	s.publishReference(ctx, entityModality, "deleted", id)
	return nil
}

// ===== TEACHERS =====

func (s *referenceService) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.repo.Teacher().List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	return teachers, nil
}

func (s *referenceService) CreateTeacher(ctx context.Context, req *CreateTeacherRequest) (*models.Teacher, error) {
	teacher := &models.Teacher{
		Name: strings.TrimSpace(req.Name),
		Role: models.RoleProfessor,
	}
	if req.Role != "" {
		teacher.Role = models.UserRole(req.Role)
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		email := normalizeEmail(*req.Email)
		teacher.Email = &email
	}
	if err := teacher.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.Teacher().Create(ctx, nil, teacher); err != nil {
		return nil, mapRepoError(entityTeacher, teacher.Name, err)
	}

	s.logger.Info("Teacher created", "teacher_id", teacher.ID, "role", teacher.Role)
	s.publishReference(ctx, entityTeacher, "created", teacher.ID)
	return teacher, nil
}

// ===== FIXED VALUES =====

// GetFixedValues returns the live row, or the defaults when none is stored
func (s *referenceService) GetFixedValues(ctx context.Context) (*models.FixedValues, error) {
	values, err := s.repo.Reference().GetFixedValues(ctx, nil)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			defaults := models.DefaultFixedValues()
			return &defaults, nil
		}
		return nil, fmt.Errorf("failed to get fixed values: %w", err)
	}
	return values, nil
}

// UpdateFixedValues overwrites the live row, creating it on first use
func (s *referenceService) UpdateFixedValues(ctx context.Context, req *FixedValuesRequest) (*models.FixedValues, error) {
	var values *models.FixedValues
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := tx.Reference().GetFixedValues(ctx, nil)
		switch {
		case err == nil:
			values = current
		case repositories.IsNotFoundError(err):
			values = &models.FixedValues{}
		default:
			return err
		}

		values.RevenuePerStudent = req.RevenuePerStudent
		values.FixedCostPerClass = req.FixedCostPerClass
		return tx.Reference().SaveFixedValues(ctx, nil, values)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update fixed values: %w", err)
	}

	s.logger.Info("Fixed values updated",
		"revenue_per_student", values.RevenuePerStudent.String(),
		"fixed_cost_per_class", values.FixedCostPerClass.String())

	// drop the cached copy right away; the event clears the reports
	cache.SafeDelete(ctx, s.cache.Reference, cache.FixedValuesKey())
	s.publishReference(ctx, entityFixedValues, "updated", values.ID)
	return values, nil
}

// ===== HELPERS =====

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *referenceService) publishReference(ctx context.Context, entity, action string, id uint) {
	if s.publisher == nil {
		return
	}
	event := events.ReferenceChanged{Entity: entity, Action: action, EntityID: id}
	if err := s.publisher.PublishReferenceChanged(ctx, event); err != nil {
		s.logger.Warn("Failed to publish reference event", "entity", entity, "action", action, "error", err)
	}
}
