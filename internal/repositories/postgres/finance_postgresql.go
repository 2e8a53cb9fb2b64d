package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/repositories"
)

const classRowColumns = `a.id AS class_id,
	a.date AS date,
	a.start_time AS start_time,
	EXTRACT(DOW FROM a.date)::int AS weekday,
	a.capacity AS capacity,
	a.attendance AS attendance,
	a.modality_id AS modality_id,
	m.name AS modality_name`

const assignmentRowColumns = `ap.id AS assignment_id,
	a.id AS class_id,
	a.date AS class_date,
	a.start_time AS start_time,
	m.name AS modality_name,
	a.attendance AS attendance,
	a.capacity AS capacity,
	p.id AS teacher_id,
	p.name AS teacher_name,
	c.id AS role_id,
	c.name AS role_name,
	c.hourly_rate AS hourly_rate,
	pt.id AS rank_id,
	pt.name AS rank_name,
	pt.multiplier AS multiplier`

const slotGroupColumns = `a.modality_id AS modality_id,
	m.name AS modality_name,
	EXTRACT(DOW FROM a.date)::int AS weekday,
	a.start_time AS start_time,
	COUNT(*) AS class_count,
	COALESCE(SUM(a.attendance), 0) AS total_attendance,
	COALESCE(MAX(a.capacity), 0) AS capacity`

type financeRepository struct {
	db *gorm.DB
}

func NewFinanceRepository(db *gorm.DB) repositories.FinanceRepository {
	return &financeRepository{db: db}
}

func (r *financeRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *financeRepository) classQuery(ctx context.Context, tx *gorm.DB, from, to time.Time) *gorm.DB {
	query := r.getDB(tx).WithContext(ctx).
		Table("aulas AS a").
		Select(classRowColumns).
		Joins("JOIN modalidades m ON m.id = a.modality_id")
	return dateWindow(query, from, to)
}

func (r *financeRepository) assignmentQuery(ctx context.Context, tx *gorm.DB, from, to time.Time) *gorm.DB {
	query := r.getDB(tx).WithContext(ctx).
		Table("aula_professores AS ap").
		Select(assignmentRowColumns).
		Joins("JOIN aulas a ON a.id = ap.class_id").
		Joins("JOIN modalidades m ON m.id = a.modality_id").
		Joins("JOIN professores p ON p.id = ap.teacher_id").
		Joins("JOIN cargos c ON c.id = ap.role_id").
		Joins("JOIN patentes pt ON pt.id = ap.rank_id")
	return dateWindow(query, from, to)
}

func slotFilter(query *gorm.DB, key models.SlotKey) *gorm.DB {
	return query.Where("a.start_time = ? AND EXTRACT(DOW FROM a.date) = ? AND m.name = ?",
		key.StartTime, int(key.Weekday), key.Modality)
}

// ===== CLASS ROWS =====

func (r *financeRepository) ListClasses(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]repositories.ClassRow, error) {
	var rows []repositories.ClassRow
	if err := r.classQuery(ctx, tx, from, to).
		Order("a.date, a.start_time, a.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list classes for period: %w", err)
	}
	return normalizeClassRows(rows), nil
}

func (r *financeRepository) ListSlotClasses(ctx context.Context, tx *gorm.DB, from, to time.Time, key models.SlotKey) ([]repositories.ClassRow, error) {
	var rows []repositories.ClassRow
	if err := slotFilter(r.classQuery(ctx, tx, from, to), key).
		Order("a.date, a.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list classes for slot %s: %w", key.Legacy(), err)
	}
	return normalizeClassRows(rows), nil
}

// ===== ASSIGNMENT ROWS =====

func (r *financeRepository) ListAssignments(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]repositories.AssignmentRow, error) {
	var rows []repositories.AssignmentRow
	if err := r.assignmentQuery(ctx, tx, from, to).
		Order("a.date, a.start_time, a.id, ap.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments for period: %w", err)
	}
	return normalizeAssignmentRows(rows), nil
}

func (r *financeRepository) ListSlotAssignments(ctx context.Context, tx *gorm.DB, from, to time.Time, key models.SlotKey) ([]repositories.AssignmentRow, error) {
	var rows []repositories.AssignmentRow
	if err := slotFilter(r.assignmentQuery(ctx, tx, from, to), key).
		Order("a.date, a.id, ap.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments for slot %s: %w", key.Legacy(), err)
	}
	return normalizeAssignmentRows(rows), nil
}

func (r *financeRepository) ListTeacherAssignments(ctx context.Context, tx *gorm.DB, teacherID uint, from, to time.Time) ([]repositories.AssignmentRow, error) {
	var rows []repositories.AssignmentRow
	if err := r.assignmentQuery(ctx, tx, from, to).
		Where("ap.teacher_id = ?", teacherID).
		Order("a.date, a.start_time, a.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments for teacher %d: %w", teacherID, err)
	}
	return normalizeAssignmentRows(rows), nil
}

// ===== SLOT GROUPS =====

func (r *financeRepository) ListSlotGroups(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]repositories.SlotGroupRow, error) {
	query := r.getDB(tx).WithContext(ctx).
		Table("aulas AS a").
		Select(slotGroupColumns).
		Joins("JOIN modalidades m ON m.id = a.modality_id")

	var rows []repositories.SlotGroupRow
	if err := dateWindow(query, from, to).
		Group("1, 2, 3, 4").
		Order("a.start_time, weekday, m.name").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group classes by slot: %w", err)
	}

	for i := range rows {
		if rows[i].Capacity < 0 {
			rows[i].Capacity = 0
		}
		if rows[i].TotalAttendance < 0 {
			rows[i].TotalAttendance = 0
		}
	}
	return rows, nil
}

// ===== BLENDED RATES =====

func (r *financeRepository) GetBlendedRates(ctx context.Context, tx *gorm.DB) (repositories.BlendedRates, error) {
	var rates repositories.BlendedRates
	if err := r.getDB(tx).WithContext(ctx).Raw(`SELECT
		(SELECT COALESCE(AVG(hourly_rate), 0) FROM cargos) AS average_hourly_rate,
		(SELECT COALESCE(AVG(multiplier), 0) FROM patentes) AS average_multiplier`).
		Scan(&rates).Error; err != nil {
		return repositories.BlendedRates{}, fmt.Errorf("failed to compute blended rates: %w", err)
	}
	return rates, nil
}

func normalizeClassRows(rows []repositories.ClassRow) []repositories.ClassRow {
	for i := range rows {
		rows[i].Normalize()
	}
	return rows
}

func normalizeAssignmentRows(rows []repositories.AssignmentRow) []repositories.AssignmentRow {
	for i := range rows {
		rows[i].Normalize()
	}
	return rows
}
