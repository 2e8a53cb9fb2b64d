package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/cache"
	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/repositories"
)

// PayrollClass is one assignment of a teacher in the period
type PayrollClass struct {
	ClassID      uint            `json:"classId"`
	Date         string          `json:"date"`
	StartTime    string          `json:"startTime"`
	Modality     string          `json:"modality"`
	Attendance   int             `json:"attendance"`
	Role         string          `json:"role"`
	Rank         string          `json:"rank"`
	HourlyRate   decimal.Decimal `json:"hourlyRate"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	ValorCargo   decimal.Decimal `json:"valorCargo"`
	ValorPatente decimal.Decimal `json:"valorPatente"`
	Total        decimal.Decimal `json:"total"`
}

// TeacherPayroll is the exact monthly earnings of one teacher
type TeacherPayroll struct {
	TeacherID    uint            `json:"teacherId"`
	Name         string          `json:"name"`
	MesAno       string          `json:"mesAno"`
	TotalAulas   int             `json:"totalAulas"`
	ValorCargo   decimal.Decimal `json:"valorCargo"`
	ValorPatente decimal.Decimal `json:"valorPatente"`
	TotalGanhos  decimal.Decimal `json:"totalGanhos"`
	Aulas        []PayrollClass  `json:"aulas,omitempty"`
}

// PayrollService computes teacher earnings per assignment row
type PayrollService interface {
	GetTeacherPayroll(ctx context.Context, actor Actor, teacherID uint, period models.Period) (*TeacherPayroll, error)
	ListPayroll(ctx context.Context, period models.Period) ([]TeacherPayroll, error)
	ExportPayroll(ctx context.Context, period models.Period, w io.Writer) error
}

type payrollService struct {
	repo   repositories.Repository
	db     *gorm.DB
	cache  *cache.CacheManager
	logger *slog.Logger
}

func NewPayrollService(repo repositories.Repository, db *gorm.DB, cm *cache.CacheManager, logger *slog.Logger) PayrollService {
	if cm == nil {
		cm = cache.NewCacheManager(nil, 0)
	}
	return &payrollService{
		repo:   repo,
		db:     db,
		cache:  cm,
		logger: logger,
	}
}

// ===== COMPUTATION =====

// computePayroll sums every assignment row of one teacher:
//
//	valorCargo   = sum(hourlyRate)
//	valorPatente = sum(attendance of that class * multiplier on that assignment)
func computePayroll(teacherID uint, name string, rows []repositories.AssignmentRow, withClasses bool) TeacherPayroll {
	p := TeacherPayroll{
		TeacherID:    teacherID,
		Name:         name,
		ValorCargo:   decimal.Zero,
		ValorPatente: decimal.Zero,
	}

	for _, r := range rows {
		cargo := r.HourlyRate
		patente := decimal.NewFromInt(int64(r.Attendance)).Mul(r.Multiplier)

		p.TotalAulas++
		p.ValorCargo = p.ValorCargo.Add(cargo)
		p.ValorPatente = p.ValorPatente.Add(patente)

		if withClasses {
			p.Aulas = append(p.Aulas, PayrollClass{
				ClassID:      r.ClassID,
				Date:         r.ClassDate.Format(time.DateOnly),
				StartTime:    r.StartTime,
				Modality:     r.ModalityName,
				Attendance:   r.Attendance,
				Role:         r.RoleName,
				Rank:         r.RankName,
				HourlyRate:   roundMoney(r.HourlyRate),
				Multiplier:   roundMoney(r.Multiplier),
				ValorCargo:   roundMoney(cargo),
				ValorPatente: roundMoney(patente),
				Total:        roundMoney(cargo.Add(patente)),
			})
		}
	}

	p.TotalGanhos = roundMoney(p.ValorCargo.Add(p.ValorPatente))
	p.ValorCargo = roundMoney(p.ValorCargo)
	p.ValorPatente = roundMoney(p.ValorPatente)
	if withClasses && p.Aulas == nil {
		p.Aulas = []PayrollClass{}
	}
	return p
}

// sortPayroll orders by totalGanhos descending, then by name
func sortPayroll(list []TeacherPayroll) {
	sort.SliceStable(list, func(i, j int) bool {
		if c := list[i].TotalGanhos.Cmp(list[j].TotalGanhos); c != 0 {
			return c > 0
		}
		return list[i].Name < list[j].Name
	})
}

// ===== SINGLE TEACHER =====

func (s *payrollService) GetTeacherPayroll(ctx context.Context, actor Actor, teacherID uint, period models.Period) (*TeacherPayroll, error) {
	if !actor.canRead(teacherID) {
		return nil, fmt.Errorf("payroll of teacher %d: %w", teacherID, ErrForbidden)
	}

	s.logger.Info("Getting teacher payroll", "teacher_id", teacherID, "mes_ano", period.String())

	key := cache.ReportKey(cache.KindPayroll, period.Key(), strconv.FormatUint(uint64(teacherID), 10))

	var payroll TeacherPayroll
	err := s.cache.Reports.CacheOrExecute(ctx, key, &payroll, s.cache.ReportTTL(), func() (interface{}, error) {
		teacher, err := s.repo.Teacher().GetByID(ctx, nil, teacherID)
		if err != nil {
			return nil, mapRepoError("teacher", teacherID, err)
		}

		rows, err := s.repo.Finance().ListTeacherAssignments(ctx, nil, teacherID, period.Start(), period.End())
		if err != nil {
			return nil, fmt.Errorf("failed to list teacher assignments: %w", err)
		}

		p := computePayroll(teacher.ID, teacher.Name, rows, true)
		p.MesAno = period.String()
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher payroll: %w", err)
	}
	return &payroll, nil
}

// ===== ALL TEACHERS =====

func (s *payrollService) ListPayroll(ctx context.Context, period models.Period) ([]TeacherPayroll, error) {
	s.logger.Info("Listing payroll", "mes_ano", period.String())

	var list []TeacherPayroll
	err := s.cache.Reports.CacheOrExecute(ctx, cache.ReportKey(cache.KindPayroll, period.Key()), &list, s.cache.ReportTTL(), func() (interface{}, error) {
		return s.buildPayrollList(ctx, period, false)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("Failed to build payroll, returning empty list", "mes_ano", period.String(), "error", err)
		return []TeacherPayroll{}, nil
	}
	return list, nil
}

// buildPayrollList covers every professor plus anyone else with an assignment in the period
func (s *payrollService) buildPayrollList(ctx context.Context, period models.Period, withClasses bool) ([]TeacherPayroll, error) {
	teachers, err := s.repo.Teacher().List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	rows, err := s.repo.Finance().ListAssignments(ctx, nil, period.Start(), period.End())
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	byTeacher := make(map[uint][]repositories.AssignmentRow)
	for _, r := range rows {
		byTeacher[r.TeacherID] = append(byTeacher[r.TeacherID], r)
	}

	list := make([]TeacherPayroll, 0, len(teachers))
	for _, t := range teachers {
		assigned := byTeacher[t.ID]
		if len(assigned) == 0 && t.Role != models.RoleProfessor {
			continue
		}
		p := computePayroll(t.ID, t.Name, assigned, withClasses)
		p.MesAno = period.String()
		list = append(list, p)
	}

	sortPayroll(list)
	return list, nil
}

// ===== EXPORT =====

const (
	summarySheet = "Resumo"
	classesSheet = "Aulas"
)

// ExportPayroll writes an xlsx workbook with a summary sheet and a per-class sheet
func (s *payrollService) ExportPayroll(ctx context.Context, period models.Period, w io.Writer) error {
	s.logger.Info("Exporting payroll", "mes_ano", period.String())

	list, err := s.buildPayrollList(ctx, period, true)
	if err != nil {
		return fmt.Errorf("failed to export payroll: %w", err)
	}

	f, err := payrollWorkbook(list)
	if err != nil {
		return fmt.Errorf("failed to build payroll workbook: %w", err)
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write payroll workbook: %w", err)
	}
	return nil
}

func payrollWorkbook(list []TeacherPayroll) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(classesSheet); err != nil {
		return nil, err
	}

	if err := writeHeaders(f, summarySheet, []string{"Professor", "Aulas", "Valor Cargo", "Valor Patente", "Total Ganhos"}); err != nil {
		return nil, err
	}
	if err := writeHeaders(f, classesSheet, []string{"Professor", "Data", "Horário", "Modalidade", "Alunos", "Cargo", "Patente", "Valor Cargo", "Valor Patente", "Total"}); err != nil {
		return nil, err
	}

	classRow := 2
	for i, p := range list {
		row := i + 2
		values := []interface{}{p.Name, p.TotalAulas, p.ValorCargo.InexactFloat64(), p.ValorPatente.InexactFloat64(), p.TotalGanhos.InexactFloat64()}
		if err := writeRow(f, summarySheet, row, values); err != nil {
			return nil, err
		}

		for _, a := range p.Aulas {
			values := []interface{}{p.Name, a.Date, a.StartTime, a.Modality, a.Attendance, a.Role, a.Rank,
				a.ValorCargo.InexactFloat64(), a.ValorPatente.InexactFloat64(), a.Total.InexactFloat64()}
			if err := writeRow(f, classesSheet, classRow, values); err != nil {
				return nil, err
			}
			classRow++
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
